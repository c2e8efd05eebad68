package loader

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrInvalidHex is returned for malformed hex images.
var ErrInvalidHex = errors.New("invalid hex image")

// LoadHex reads a $readmemh-style word image from path.
func LoadHex(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hex file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseHex(f)
}

// ParseHex parses a $readmemh-style word image. Each token is one 32-bit
// word in hex, placed at consecutive word addresses starting at 0. A token
// "@<hex>" moves the load position to that word address. Text after "//"
// or "#" is a comment; underscores inside numbers are ignored.
//
// Every run of consecutive words becomes one executable segment.
func ParseHex(r io.Reader) (*Program, error) {
	p := &parser{prog: &Program{}}

	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		if i := strings.Index(text, "//"); i >= 0 {
			text = text[:i]
		}
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}

		for _, tok := range strings.Fields(text) {
			if err := p.token(tok); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hex image: %w", err)
	}

	p.closeSegment()
	return p.prog, nil
}

// maxWordAddr is the last word address of the 32-bit byte address space.
const maxWordAddr = 0x3FFFFFFF

type parser struct {
	prog    *Program
	wordPos uint32
	current *Segment
}

func (p *parser) token(tok string) error {
	if strings.HasPrefix(tok, "@") {
		addr, err := parseHexWord(tok[1:])
		if err != nil {
			return err
		}
		if addr > maxWordAddr {
			return fmt.Errorf("%w: word address %q out of range", ErrInvalidHex, tok)
		}
		p.closeSegment()
		p.wordPos = addr
		return nil
	}

	word, err := parseHexWord(tok)
	if err != nil {
		return err
	}
	if p.wordPos > maxWordAddr {
		return fmt.Errorf("%w: word %q past the end of the address space", ErrInvalidHex, tok)
	}

	if p.current == nil {
		p.current = &Segment{
			Addr:  p.wordPos * 4,
			Flags: SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}
	}
	p.current.Data = binary.LittleEndian.AppendUint32(p.current.Data, word)
	p.wordPos++
	return nil
}

func (p *parser) closeSegment() {
	if p.current == nil {
		return
	}
	p.current.MemSize = uint32(len(p.current.Data))
	p.prog.Segments = append(p.prog.Segments, *p.current)
	p.current = nil
}

func parseHexWord(tok string) (uint32, error) {
	clean := strings.ReplaceAll(tok, "_", "")
	if clean == "" {
		return 0, fmt.Errorf("%w: empty token %q", ErrInvalidHex, tok)
	}
	v, err := strconv.ParseUint(clean, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: bad token %q", ErrInvalidHex, tok)
	}
	return uint32(v), nil
}
