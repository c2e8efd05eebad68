package insts

// signExtend sign-extends the low bits of v to 32 bits.
func signExtend(v uint32, bits uint) uint32 {
	shift := 32 - bits
	return uint32(int32(v<<shift) >> shift)
}

// ImmI returns the I-format immediate: sext(word[31:20]).
func ImmI(word uint32) uint32 {
	return uint32(int32(word) >> 20)
}

// ImmS returns the S-format immediate: sext(word[31:25] | word[11:7]).
func ImmS(word uint32) uint32 {
	v := ((word >> 25) << 5) | ((word >> 7) & 0x1F)
	return signExtend(v, 12)
}

// ImmB returns the B-format immediate, an even offset:
// sext(word[31] | word[7] | word[30:25] | word[11:8] | 0).
func ImmB(word uint32) uint32 {
	v := ((word >> 31) & 0x1) << 12
	v |= ((word >> 7) & 0x1) << 11
	v |= ((word >> 25) & 0x3F) << 5
	v |= ((word >> 8) & 0xF) << 1
	return signExtend(v, 13)
}

// ImmU returns the U-format immediate: word[31:12] with the low 12 bits zero.
func ImmU(word uint32) uint32 {
	return word & 0xFFFFF000
}

// ImmJ returns the J-format immediate, an even offset:
// sext(word[31] | word[19:12] | word[20] | word[30:21] | 0).
func ImmJ(word uint32) uint32 {
	v := ((word >> 31) & 0x1) << 20
	v |= ((word >> 12) & 0xFF) << 12
	v |= ((word >> 20) & 0x1) << 11
	v |= ((word >> 21) & 0x3FF) << 1
	return signExtend(v, 21)
}

// Immediate extracts the immediate of an instruction word, selecting the
// format from the opcode. Opcodes without an immediate yield zero.
func Immediate(word uint32) uint32 {
	switch word & 0x7F {
	case OpcodeLoad, OpcodeOpImm, OpcodeJALR:
		return ImmI(word)
	case OpcodeStore:
		return ImmS(word)
	case OpcodeBranch:
		return ImmB(word)
	case OpcodeLUI, OpcodeAUIPC:
		return ImmU(word)
	case OpcodeJAL:
		return ImmJ(word)
	default:
		return 0
	}
}
