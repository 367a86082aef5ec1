package his

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Frame is one decoded image with shape (Width, Height). Samples are stored
// row-major: element (i, j) is sample i*Height + j. Pix holds the samples
// exactly as they appear on disk (little-endian for Uint16).
type Frame struct {
	Width  int
	Height int
	Type   PixelType
	Pix    []byte
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int, t PixelType) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Type:   t,
		Pix:    make([]byte, width*height*t.Size()),
	}
}

// Len is the number of samples.
func (fr *Frame) Len() int {
	return fr.Width * fr.Height
}

// Sample returns the k-th sample in storage order.
func (fr *Frame) Sample(k int) uint16 {
	if fr.Type == Uint8 {
		return uint16(fr.Pix[k])
	}
	return binary.LittleEndian.Uint16(fr.Pix[2*k:])
}

// SetSample stores v as the k-th sample, clamped to the pixel type.
func (fr *Frame) SetSample(k int, v uint16) {
	if fr.Type == Uint8 {
		fr.Pix[k] = uint8(min(v, 0xff))
		return
	}
	binary.LittleEndian.PutUint16(fr.Pix[2*k:], v)
}

// At returns element (i, j) with i < Width and j < Height.
func (fr *Frame) At(i, j int) uint16 {
	return fr.Sample(i*fr.Height + j)
}

// Samples decodes every sample in storage order.
func (fr *Frame) Samples() []uint16 {
	out := make([]uint16, fr.Len())
	for k := range out {
		out[k] = fr.Sample(k)
	}
	return out
}

// Checksum fingerprints the pixel payload.
func (fr *Frame) Checksum() uint64 {
	return xxhash.Sum64(fr.Pix)
}

// Equal reports whether both frames have the same shape, type and samples.
func (fr *Frame) Equal(o *Frame) bool {
	if fr == nil || o == nil {
		return fr == o
	}
	return fr.Width == o.Width && fr.Height == o.Height && fr.Type == o.Type && bytes.Equal(fr.Pix, o.Pix)
}

// FrameStack holds several frames of one file back to back, with shape
// (len(IDs), Width, Height).
type FrameStack struct {
	IDs    []int
	Width  int
	Height int
	Type   PixelType
	Pix    []byte
}

// Len is the number of frames.
func (s *FrameStack) Len() int {
	return len(s.IDs)
}

// Frame returns a view of the k-th frame. It shares memory with the stack.
func (s *FrameStack) Frame(k int) *Frame {
	n := s.Width * s.Height * s.Type.Size()
	return &Frame{
		Width:  s.Width,
		Height: s.Height,
		Type:   s.Type,
		Pix:    s.Pix[k*n : (k+1)*n : (k+1)*n],
	}
}

// ReadFrame reads frame id from disk. It fails with ErrCorruptFrame when no
// record marker is found at the computed offset; Verify or EnsureConsistent
// builds a frame index that may fix the addressing.
func (f *File) ReadFrame(id int) (*Frame, error) {
	off, err := f.OffsetOf(id)
	if err != nil {
		return nil, err
	}
	fr := NewFrame(f.Width(), f.Height(), f.PixelType())
	if err := f.readFrameAt(id, off, fr.Pix); err != nil {
		return nil, err
	}
	return fr, nil
}

func (f *File) readFrameInto(id int, dst []byte) error {
	off, err := f.OffsetOf(id)
	if err != nil {
		return err
	}
	return f.readFrameAt(id, off, dst)
}

func (f *File) readFrameAt(id int, off int64, dst []byte) error {
	r, err := f.reader()
	if err != nil {
		return err
	}
	hs, ok, err := readRecord(r, off)
	if err != nil {
		return corruptAt(id, off, "record header unreadable: "+err.Error())
	}
	if !ok {
		return corruptAt(id, off, "missing magic marker")
	}
	if hs < 0 {
		return corruptAt(id, off, fmt.Sprintf("negative header size %d", hs))
	}
	data := off + int64(hs) + VendorHeaderSize
	n, err := r.ReadAt(dst, data)
	if n < len(dst) {
		return corruptAt(id, data, fmt.Sprintf("payload truncated after %d of %d bytes: %v", n, len(dst), err))
	}
	return nil
}

// ReadFrameStack reads the given frames in order. All ids are checked
// before anything is read. The first corrupt frame triggers one quick
// verification and a single retry of that frame; a frame that is still
// corrupt afterwards fails the call.
func (f *File) ReadFrameStack(ids []int) (*FrameStack, error) {
	for _, id := range ids {
		if id < 0 || id >= f.FrameCount() {
			return nil, outOfRange(id, f.FrameCount())
		}
	}
	if _, err := f.reader(); err != nil {
		return nil, err
	}

	size := int(f.FramePayloadSize())
	st := &FrameStack{
		IDs:    append([]int(nil), ids...),
		Width:  f.Width(),
		Height: f.Height(),
		Type:   f.PixelType(),
		Pix:    make([]byte, len(ids)*size),
	}

	rebuilt := false
	for k, id := range ids {
		dst := st.Pix[k*size : (k+1)*size]
		err := f.readFrameInto(id, dst)
		if err != nil && isCorrupt(err) && !rebuilt {
			rebuilt = true
			f.log.Debug("rebuilding frame index after corrupt read", "frame", id, "error", err)
			if verr := f.EnsureConsistent(ModeQuick); verr != nil {
				return nil, fmt.Errorf("rebuild frame index after frame %d: %w", id, verr)
			}
			err = f.readFrameInto(id, dst)
		}
		if err != nil {
			return nil, err
		}
	}
	return st, nil
}
