// Package rite reads the container layout of mruby's RITE binary format
// (.mrb files): a fixed header followed by sections that end with "END\0".
// Multi-byte fields of the container are big-endian.
package rite

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/haveachin/bytecode/pkg/bytecode"
	"go.uber.org/multierr"
)

const (
	Ident        = "RITE"
	CompilerName = "MATZ"

	SectionIrep  = "IREP"
	SectionDebug = "DBG\x00"
	SectionLVar  = "LVAR"
	SectionEnd   = "END\x00"

	HeaderSize        = 20
	LegacyHeaderSize  = 22
	SectionHeaderSize = 8

	identSize = 4
	// Versions before this carry a CRC-16 after the version field.
	firstVersionWithoutCRC = "0300"
)

var (
	ErrInvalidIdent       = errors.New("invalid binary identifier")
	ErrInvalidVersion     = errors.New("invalid binary version")
	ErrSizeMismatch       = errors.New("binary size does not match buffer length")
	ErrUnknownCompiler    = errors.New("unknown compiler name")
	ErrInvalidSectionSize = errors.New("invalid section size")
	ErrMissingEnd         = errors.New("missing END section")
)

type Header struct {
	Ident   string
	Version string
	// CRC is only set when HasCRC is true.
	CRC             uint16
	HasCRC          bool
	Size            uint32
	CompilerName    string
	CompilerVersion string
}

// Len returns the encoded length of the header.
func (h Header) Len() int {
	if h.HasCRC {
		return LegacyHeaderSize
	}
	return HeaderSize
}

// Validate reports every inconsistency of the header at once. bufLen is the
// length of the buffer the header was read from.
func (h Header) Validate(bufLen int) error {
	var err error
	if h.Ident != Ident {
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrInvalidIdent, h.Ident))
	}
	if !isDigits(h.Version) {
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrInvalidVersion, h.Version))
	}
	if int64(h.Size) != int64(bufLen) {
		err = multierr.Append(err, fmt.Errorf("%w: header says %d, got %d", ErrSizeMismatch, h.Size, bufLen))
	}
	if h.CompilerName != CompilerName {
		err = multierr.Append(err, fmt.Errorf("%w: %q", ErrUnknownCompiler, h.CompilerName))
	}
	return err
}

type Section struct {
	Ident string
	// Offset is the absolute offset of the section header.
	Offset int
	// Size includes the section header.
	Size uint32
	Body []byte
}

type File struct {
	Header   Header
	Sections []Section
}

// Section returns the first section with the given identifier.
func (f File) Section(ident string) (Section, bool) {
	for _, s := range f.Sections {
		if s.Ident == ident {
			return s, true
		}
	}
	return Section{}, false
}

// Parse reads the header and all sections starting at the current position
// of c.
func Parse(c *bytecode.Cursor) (File, error) {
	h, err := ParseHeader(c)
	if err != nil {
		return File{}, err
	}

	sections, err := ReadSections(c)
	if err != nil {
		return File{}, err
	}

	return File{
		Header:   h,
		Sections: sections,
	}, nil
}

// ParseHeader reads a binary header and advances c past it.
func ParseHeader(c *bytecode.Cursor) (Header, error) {
	var h Header
	var err error

	if h.Ident, err = takeString(c, identSize); err != nil {
		return Header{}, fmt.Errorf("rite: reading ident: %w", err)
	}

	if h.Version, err = takeString(c, identSize); err != nil {
		return Header{}, fmt.Errorf("rite: reading version: %w", err)
	}

	if h.Version < firstVersionWithoutCRC {
		h.HasCRC = true
		if h.CRC, err = takeUint16(c); err != nil {
			return Header{}, fmt.Errorf("rite: reading crc: %w", err)
		}
	}

	if h.Size, err = takeUint32(c); err != nil {
		return Header{}, fmt.Errorf("rite: reading size: %w", err)
	}

	if h.CompilerName, err = takeString(c, identSize); err != nil {
		return Header{}, fmt.Errorf("rite: reading compiler name: %w", err)
	}

	if h.CompilerVersion, err = takeString(c, identSize); err != nil {
		return Header{}, fmt.Errorf("rite: reading compiler version: %w", err)
	}

	return h, nil
}

// ReadSections reads sections from c until the END section.
func ReadSections(c *bytecode.Cursor) ([]Section, error) {
	var sections []Section
	for {
		if c.IsEnd() {
			return sections, fmt.Errorf("rite: %w at offset %d", ErrMissingEnd, c.Pos())
		}

		s, err := readSection(c)
		if err != nil {
			return sections, err
		}
		sections = append(sections, s)

		if s.Ident == SectionEnd {
			return sections, nil
		}
	}
}

func readSection(c *bytecode.Cursor) (Section, error) {
	s := Section{
		Offset: c.Pos(),
	}

	var err error
	if s.Ident, err = takeString(c, identSize); err != nil {
		return Section{}, fmt.Errorf("rite: reading section ident at offset %d: %w", s.Offset, err)
	}

	if s.Size, err = takeUint32(c); err != nil {
		return Section{}, fmt.Errorf("rite: reading size of section %q at offset %d: %w", s.Ident, s.Offset, err)
	}

	if s.Size < SectionHeaderSize {
		return Section{}, fmt.Errorf("rite: %w: section %q at offset %d has size %d",
			ErrInvalidSectionSize, s.Ident, s.Offset, s.Size)
	}

	bodyLen := int64(s.Size) - SectionHeaderSize
	if bodyLen > int64(c.Remaining()) {
		return Section{}, fmt.Errorf("rite: section %q at offset %d overruns buffer: %w",
			s.Ident, s.Offset, &bytecode.BoundsError{
				Offset: s.Offset,
				Want:   int(s.Size),
				Len:    c.Len(),
			})
	}
	s.Body = c.Take(int(bodyLen))

	return s, nil
}

func takeString(c *bytecode.Cursor, n int) (string, error) {
	b, err := c.TakeExact(n)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func takeUint16(c *bytecode.Cursor) (uint16, error) {
	b, err := c.TakeExact(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func takeUint32(c *bytecode.Cursor) (uint32, error) {
	b, err := c.TakeExact(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func isDigits(s string) bool {
	return len(s) == identSize && strings.Trim(s, "0123456789") == ""
}
