package bytecode

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is matched by every error returned from a strict read.
var ErrOutOfBounds = errors.New("out of bounds")

// BoundsError reports a strict read that the buffer could not satisfy.
type BoundsError struct {
	// Offset is the absolute offset the read started at.
	Offset int
	// Want is the number of bytes the read required.
	Want int
	// Len is the length of the whole buffer.
	Len int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("bytecode: %s: want %d byte(s) at offset %d (0x%X), buffer length %d",
		ErrOutOfBounds, e.Want, e.Offset, e.Offset, e.Len)
}

func (e *BoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

func newBoundsError(offset, want, length int) error {
	return &BoundsError{
		Offset: offset,
		Want:   want,
		Len:    length,
	}
}
