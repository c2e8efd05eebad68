package emu

import "fmt"

// HexU32 lazily formats a 32-bit value as 8 hex digits in log attributes.
type HexU32 uint32

func (v HexU32) String() string {
	return fmt.Sprintf("%08x", uint32(v))
}

// MarshalText implements encoding.TextMarshaler.
func (v HexU32) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}
