package rite_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/haveachin/bytecode/pkg/bytecode"
	"github.com/haveachin/bytecode/pkg/rite"
	"go.uber.org/multierr"
)

type section struct {
	ident string
	body  []byte
}

// build encodes a RITE binary. A non-nil crc selects the legacy header.
func build(version string, crc *uint16, sections ...section) []byte {
	var body []byte
	for _, s := range sections {
		body = append(body, s.ident...)
		body = binary.BigEndian.AppendUint32(body, uint32(rite.SectionHeaderSize+len(s.body)))
		body = append(body, s.body...)
	}

	headerLen := rite.HeaderSize
	if crc != nil {
		headerLen = rite.LegacyHeaderSize
	}

	bb := []byte(rite.Ident + version)
	if crc != nil {
		bb = binary.BigEndian.AppendUint16(bb, *crc)
	}
	bb = binary.BigEndian.AppendUint32(bb, uint32(headerLen+len(body)))
	bb = append(bb, rite.CompilerName+"0000"...)
	return append(bb, body...)
}

func TestParse(t *testing.T) {
	crc := uint16(0xbeef)

	tt := []struct {
		name             string
		data             []byte
		expectedHeader   rite.Header
		expectedSections []string
	}{
		{
			name: "mruby3",
			data: build("0300", nil,
				section{ident: rite.SectionIrep, body: []byte{0x00, 0x01, 0x02}},
				section{ident: rite.SectionEnd},
			),
			expectedHeader: rite.Header{
				Ident:           rite.Ident,
				Version:         "0300",
				Size:            rite.HeaderSize + 11 + 8,
				CompilerName:    rite.CompilerName,
				CompilerVersion: "0000",
			},
			expectedSections: []string{rite.SectionIrep, rite.SectionEnd},
		},
		{
			name: "legacy with crc",
			data: build("0006", &crc,
				section{ident: rite.SectionIrep, body: []byte{0x0a}},
				section{ident: rite.SectionLVar, body: []byte{0x0b, 0x0c}},
				section{ident: rite.SectionEnd},
			),
			expectedHeader: rite.Header{
				Ident:           rite.Ident,
				Version:         "0006",
				CRC:             0xbeef,
				HasCRC:          true,
				Size:            rite.LegacyHeaderSize + 9 + 10 + 8,
				CompilerName:    rite.CompilerName,
				CompilerVersion: "0000",
			},
			expectedSections: []string{rite.SectionIrep, rite.SectionLVar, rite.SectionEnd},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			c := bytecode.New(tc.data)

			// Act
			f, err := rite.Parse(c)
			if err != nil {
				t.Fatal(err)
			}

			// Assert
			if f.Header != tc.expectedHeader {
				t.Errorf("got: %+v; want: %+v", f.Header, tc.expectedHeader)
			}
			if err := f.Header.Validate(len(tc.data)); err != nil {
				t.Errorf("valid header reported: %v", err)
			}
			if len(f.Sections) != len(tc.expectedSections) {
				t.Fatalf("got %d sections; want %d", len(f.Sections), len(tc.expectedSections))
			}
			for i, s := range f.Sections {
				if s.Ident != tc.expectedSections[i] {
					t.Errorf("section %d: got: %q; want: %q", i, s.Ident, tc.expectedSections[i])
				}
				if int(s.Size) != rite.SectionHeaderSize+len(s.Body) {
					t.Errorf("section %d: size %d does not match body length %d", i, s.Size, len(s.Body))
				}
			}
			if !c.IsEnd() {
				t.Errorf("%d bytes left after END", c.Remaining())
			}
		})
	}
}

func TestFile_Section(t *testing.T) {
	data := build("0300", nil,
		section{ident: rite.SectionIrep, body: []byte{0x01, 0x02}},
		section{ident: rite.SectionEnd},
	)

	f, err := rite.Parse(bytecode.New(data))
	if err != nil {
		t.Fatal(err)
	}

	s, ok := f.Section(rite.SectionIrep)
	if !ok {
		t.Fatal("IREP section not found")
	}
	if s.Offset != rite.HeaderSize {
		t.Errorf("got: %d; want: %d", s.Offset, rite.HeaderSize)
	}
	if !bytes.Equal(s.Body, []byte{0x01, 0x02}) {
		t.Errorf("got: %v", s.Body)
	}

	if _, ok := f.Section(rite.SectionDebug); ok {
		t.Error("DBG section should not exist")
	}
}

func TestParseHeader_truncated(t *testing.T) {
	data := build("0300", nil, section{ident: rite.SectionEnd})

	for n := 0; n < rite.HeaderSize; n++ {
		_, err := rite.ParseHeader(bytecode.New(data[:n]))
		if !errors.Is(err, bytecode.ErrOutOfBounds) {
			t.Errorf("header of %d bytes: got: %v; want: %v", n, err, bytecode.ErrOutOfBounds)
		}
	}
}

func TestHeader_Validate(t *testing.T) {
	h := rite.Header{
		Ident:        "RITF",
		Version:      "03x0",
		Size:         100,
		CompilerName: "ABCD",
	}

	err := h.Validate(50)

	for _, want := range []error{
		rite.ErrInvalidIdent,
		rite.ErrInvalidVersion,
		rite.ErrSizeMismatch,
		rite.ErrUnknownCompiler,
	} {
		if !errors.Is(err, want) {
			t.Errorf("missing %v in %v", want, err)
		}
	}
	if n := len(multierr.Errors(err)); n != 4 {
		t.Errorf("got %d errors; want 4", n)
	}
}

func TestReadSections(t *testing.T) {
	tt := []struct {
		name   string
		data   []byte
		target error
	}{
		{
			name:   "missing end",
			data:   []byte("IREP\x00\x00\x00\x09\x01"),
			target: rite.ErrMissingEnd,
		},
		{
			name:   "size smaller than header",
			data:   []byte("IREP\x00\x00\x00\x04"),
			target: rite.ErrInvalidSectionSize,
		},
		{
			name:   "body overruns buffer",
			data:   []byte("IREP\x00\x00\x00\x10\x01\x02"),
			target: bytecode.ErrOutOfBounds,
		},
		{
			name:   "truncated section header",
			data:   []byte("IRE"),
			target: bytecode.ErrOutOfBounds,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rite.ReadSections(bytecode.New(tc.data))
			if !errors.Is(err, tc.target) {
				t.Errorf("got: %v; want: %v", err, tc.target)
			}
		})
	}
}

func TestReadSections_boundsOffset(t *testing.T) {
	data := append([]byte("IREP\x00\x00\x00\x09\x01"), "LVAR\x00\x00\x01\x00"...)

	_, err := rite.ReadSections(bytecode.New(data))

	var boundsErr *bytecode.BoundsError
	if !errors.As(err, &boundsErr) {
		t.Fatalf("got: %v; want: *bytecode.BoundsError", err)
	}
	if boundsErr.Offset != 9 {
		t.Errorf("got: %d; want: 9", boundsErr.Offset)
	}
}
