// Package bytecode provides Cursor, a sequential reader over an in-memory
// byte buffer for parsing binary formats.
//
// Reads come in two flavours. Peek, Take and Advance are tolerant: they
// truncate or clamp at the end of the buffer and never fail. At, Slice, Next,
// TakeExact and the fixed-width integer reads are strict: they either return
// exactly what was asked for or an error matching ErrOutOfBounds.
package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	sizeUint16 = 2
	sizeUint32 = 4
)

// Cursor is a read position over a fixed byte buffer.
// The zero value is an empty cursor. A Cursor must not be used by multiple
// goroutines at once.
type Cursor struct {
	buf []byte
	pos int
}

// New returns a Cursor over a copy of b.
func New(b []byte) *Cursor {
	buf := make([]byte, len(b))
	copy(buf, b)
	return From(buf)
}

// From returns a Cursor that adopts b without copying it.
// The caller must not modify b afterwards.
func From(b []byte) *Cursor {
	return &Cursor{
		buf: b,
	}
}

// Pos returns the current read position.
func (c *Cursor) Pos() int {
	return c.pos
}

// Len returns the length of the whole buffer. Consumed bytes are counted.
func (c *Cursor) Len() int {
	return len(c.buf)
}

// Remaining returns the number of bytes that have not been consumed yet.
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// IsEnd reports whether every byte has been consumed.
func (c *Cursor) IsEnd() bool {
	return c.pos == len(c.buf)
}

// Bytes returns the unconsumed part of the buffer. It aliases the buffer and
// must not be modified.
func (c *Cursor) Bytes() []byte {
	return c.view(c.pos, len(c.buf))
}

// Reset moves the position back to the start of the buffer.
func (c *Cursor) Reset() {
	c.pos = 0
}

// At returns the byte at the absolute offset i. The position is not used
// or changed.
func (c *Cursor) At(i int) (byte, error) {
	if i < 0 || i >= len(c.buf) {
		return 0, newBoundsError(i, 1, len(c.buf))
	}
	return c.buf[i], nil
}

// Slice returns the bytes in the absolute range [start, end). The result
// aliases the buffer and must not be modified.
func (c *Cursor) Slice(start, end int) ([]byte, error) {
	if start < 0 || start > end || end > len(c.buf) {
		return nil, newBoundsError(start, end-start, len(c.buf))
	}
	return c.view(start, end), nil
}

// Peek returns up to n bytes from the current position without advancing.
// Fewer bytes are returned when the buffer ends first.
func (c *Cursor) Peek(n int) []byte {
	return c.view(c.pos, c.pos+c.clamp(n))
}

// Advance moves the position forward by n bytes, stopping at the end of the
// buffer.
func (c *Cursor) Advance(n int) {
	c.pos += c.clamp(n)
}

// Skip is an alias for Advance.
func (c *Cursor) Skip(n int) {
	c.Advance(n)
}

// Rewind moves the position back by n bytes, stopping at the start of the
// buffer.
func (c *Cursor) Rewind(n int) {
	switch {
	case n <= 0:
	case n > c.pos:
		c.pos = 0
	default:
		c.pos -= n
	}
}

// Take returns a copy of up to n bytes from the current position and advances
// past them. Fewer bytes are returned when the buffer ends first.
func (c *Cursor) Take(n int) []byte {
	b := bytes.Clone(c.Peek(n))
	if b == nil {
		b = []byte{}
	}
	c.pos += len(b)
	return b
}

// TakeExact is the strict form of Take. It returns exactly n bytes or an
// error, in which case the position is left unchanged.
func (c *Cursor) TakeExact(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, newBoundsError(c.pos, n, len(c.buf))
	}
	return c.Take(n), nil
}

// Next returns the byte at the current position and advances past it.
func (c *Cursor) Next() (byte, error) {
	if c.IsEnd() {
		return 0, newBoundsError(c.pos, 1, len(c.buf))
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// StartsWith reports whether the unconsumed bytes begin with prefix.
func (c *Cursor) StartsWith(prefix []byte) bool {
	if len(prefix) > c.Remaining() {
		return false
	}
	return bytes.Equal(c.Peek(len(prefix)), prefix)
}

// TakeUint16 reads a little-endian uint16 and advances by 2 bytes.
func (c *Cursor) TakeUint16() (uint16, error) {
	b, err := c.fixed(sizeUint16)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// TakeUint32 reads a little-endian uint32 and advances by 4 bytes.
func (c *Cursor) TakeUint32() (uint32, error) {
	b, err := c.fixed(sizeUint32)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Read implements io.Reader. It returns io.EOF once the buffer is consumed.
func (c *Cursor) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if c.IsEnd() {
		return 0, io.EOF
	}
	n := copy(p, c.buf[c.pos:])
	c.pos += n
	return n, nil
}

// ReadByte implements io.ByteReader. Unlike Next it returns io.EOF at the end.
func (c *Cursor) ReadByte() (byte, error) {
	if c.IsEnd() {
		return 0, io.EOF
	}
	return c.Next()
}

func (c *Cursor) String() string {
	return fmt.Sprintf("bytecode.Cursor{pos: %d, len: %d}", c.pos, len(c.buf))
}

func (c *Cursor) fixed(n int) ([]byte, error) {
	if c.Remaining() < n {
		return nil, newBoundsError(c.pos, n, len(c.buf))
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// clamp limits n to the range [0, Remaining()].
func (c *Cursor) clamp(n int) int {
	switch r := c.Remaining(); {
	case n < 0:
		return 0
	case n > r:
		return r
	default:
		return n
	}
}

func (c *Cursor) view(start, end int) []byte {
	return c.buf[start:end:end]
}
