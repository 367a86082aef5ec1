package his

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// prologueSize is the fixed region at the start of the file. It doubles
	// as the vendor header of frame 0.
	prologueSize = VendorHeaderSize

	// recordHeaderSize is the magic marker plus the header-size field.
	recordHeaderSize = 4
)

// Header holds the fixed fields of the file prologue.
type Header struct {
	BaseOffset int16
	Width      int16
	Height     int16
	PixelSize  int16
	FrameCount uint32
}

func decodeHeader(b []byte) (Header, bool) {
	if len(b) < prologueSize {
		return Header{}, false
	}
	le := binary.LittleEndian
	return Header{
		BaseOffset: int16(le.Uint16(b[2:4])),
		Width:      int16(le.Uint16(b[4:6])),
		Height:     int16(le.Uint16(b[6:8])),
		PixelSize:  int16(le.Uint16(b[12:14])),
		FrameCount: le.Uint32(b[14:18]),
	}, true
}

func (h Header) validate() error {
	if h.BaseOffset < 0 {
		return fmt.Errorf("%w: negative base offset %d", ErrMalformedHeader, h.BaseOffset)
	}
	if h.Width <= 0 || h.Height <= 0 {
		return fmt.Errorf("%w: invalid frame size %dx%d", ErrMalformedHeader, h.Width, h.Height)
	}
	if h.PixelSize != 1 && h.PixelSize != 2 {
		return fmt.Errorf("%w: unsupported pixel size %d", ErrMalformedHeader, h.PixelSize)
	}
	return nil
}

// PayloadSize is the number of pixel bytes in one frame.
func (h Header) PayloadSize() int64 {
	return int64(h.Width) * int64(h.Height) * int64(h.PixelSize)
}

// readHeader decodes the prologue and returns the raw metadata blob that
// follows it.
func readHeader(r io.ReaderAt, size int64) (Header, []byte, error) {
	if size >= 0 && size < prologueSize {
		return Header{}, nil, fmt.Errorf("%w: file is %d bytes, need at least %d", ErrMalformedHeader, size, prologueSize)
	}
	var raw [prologueSize]byte
	if n, err := r.ReadAt(raw[:], 0); n < len(raw) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return Header{}, nil, fmt.Errorf("%w: read prologue: %v", ErrMalformedHeader, err)
	}
	hdr, ok := decodeHeader(raw[:])
	if !ok {
		return Header{}, nil, ErrMalformedHeader
	}
	if err := hdr.validate(); err != nil {
		return Header{}, nil, err
	}

	blob := make([]byte, int(hdr.BaseOffset))
	if len(blob) > 0 {
		n, err := r.ReadAt(blob, prologueSize)
		if n < len(blob) {
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return Header{}, nil, fmt.Errorf("%w: read %d metadata bytes: %v", ErrMalformedHeader, len(blob), err)
		}
	}
	return hdr, blob, nil
}

// readRecord reads the magic marker and header-size field of the record at
// off. ok is false when the marker does not match; headerSize is decoded
// either way.
func readRecord(r io.ReaderAt, off int64) (headerSize int16, ok bool, err error) {
	if off < 0 {
		return 0, false, fmt.Errorf("negative offset %d", off)
	}
	var b [recordHeaderSize]byte
	n, err := r.ReadAt(b[:], off)
	if n < len(b) {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return 0, false, err
	}
	headerSize = int16(binary.LittleEndian.Uint16(b[2:4]))
	return headerSize, string(b[:2]) == Magic, nil
}
