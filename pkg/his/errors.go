package his

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedHeader = errors.New("malformed HIS header")
	ErrMetadataDecode  = errors.New("cannot decode HIS metadata")
	ErrFrameOutOfRange = errors.New("frame out of range")
	ErrCorruptFrame    = errors.New("corrupt HIS frame")
	ErrClosed          = errors.New("HIS file is closed")
	ErrEmptySelection  = errors.New("no frames selected")
)

// FrameError reports a failure tied to one frame record.
type FrameError struct {
	Frame  int
	Offset int64
	Err    error
}

func (e *FrameError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("frame %d: %v", e.Frame, e.Err)
	}
	return fmt.Sprintf("frame %d at offset %d: %v", e.Frame, e.Offset, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

func outOfRange(id, count int) error {
	return &FrameError{
		Frame:  id,
		Offset: -1,
		Err:    fmt.Errorf("%w: stack has %d frames", ErrFrameOutOfRange, count),
	}
}

func corruptAt(id int, off int64, reason string) error {
	return &FrameError{
		Frame:  id,
		Offset: off,
		Err:    fmt.Errorf("%w: %s", ErrCorruptFrame, reason),
	}
}
