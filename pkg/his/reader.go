package his

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"

	"github.com/samcharles93/hisread/internal/logger"
)

// File is an open HIS stack.
type File struct {
	// Path is empty for stacks opened with OpenReaderAt.
	Path   string
	Header Header

	// GapHeaderSize is the header-size field of frame 1. The baseline
	// addressing assumes every frame after frame 0 uses it.
	GapHeaderSize int16

	meta    map[string]string
	metaErr error

	src    io.ReaderAt
	closer io.Closer
	size   int64

	state State
	index *frameIndex

	quickStep int
	log       logger.Logger
}

type options struct {
	log       logger.Logger
	quickStep int
	verify    bool
	mode      Mode
}

// Option configures Open and OpenReaderAt.
type Option func(*options)

// WithLogger routes verification diagnostics to l.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithQuickStep sets the initial forward jump of the quick check.
func WithQuickStep(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.quickStep = n
		}
	}
}

// WithVerify builds the frame index while opening instead of on the first
// corrupt read.
func WithVerify(mode Mode) Option {
	return func(o *options) {
		o.verify = true
		o.mode = mode
	}
}

// Open opens a HIS file read-only and parses its prologue.
// The returned file must be closed to release the descriptor.
func Open(path string, opts ...Option) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	hf, err := openFile(f, path, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return hf, nil
}

func openFile(f *os.File, path string, opts []Option) (*File, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	hf, err := newFile(f, st.Size(), opts)
	if err != nil {
		return nil, err
	}
	if err := adviseRandom(f); err != nil {
		hf.log.Debug("access pattern hint rejected", "path", path, "error", err)
	}
	hf.Path = path
	hf.closer = f
	return hf, nil
}

// OpenReaderAt parses a HIS stack from a random-access reader. Close does
// not close r.
func OpenReaderAt(r io.ReaderAt, size int64, opts ...Option) (*File, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrMalformedHeader, size)
	}
	return newFile(r, size, opts)
}

func newFile(r io.ReaderAt, size int64, opts []Option) (*File, error) {
	o := options{
		log:       logger.Nop(),
		quickStep: DefaultQuickStep,
	}
	for _, opt := range opts {
		opt(&o)
	}

	hdr, blob, err := readHeader(r, size)
	if err != nil {
		return nil, err
	}

	hf := &File{
		Header:        hdr,
		GapHeaderSize: hdr.BaseOffset,
		src:           r,
		size:          size,
		quickStep:     o.quickStep,
		log:           o.log,
	}

	hf.meta, hf.metaErr = DecodeMetadata(blob)
	if hf.metaErr != nil {
		hf.log.Warn("ignoring unreadable metadata", "error", hf.metaErr)
		hf.meta = map[string]string{}
	}

	if hdr.FrameCount >= 2 {
		off := int64(hdr.BaseOffset) + VendorHeaderSize + hdr.PayloadSize()
		gap, ok, err := readRecord(r, off)
		if err != nil {
			return nil, fmt.Errorf("%w: read frame 1 header at %d: %v", ErrMalformedHeader, off, err)
		}
		if ok {
			hf.GapHeaderSize = gap
		} else {
			hf.log.Debug("frame 1 has no magic marker at its baseline offset", "offset", off)
		}
	}

	if o.verify {
		if err := hf.EnsureConsistent(o.mode); err != nil {
			return nil, err
		}
	}
	return hf, nil
}

// Close releases the file descriptor. Geometry, metadata and the frame
// index stay available; reads fail with ErrClosed until Reopen.
func (f *File) Close() error {
	if f == nil || f.src == nil {
		return nil
	}
	var err error
	if f.closer != nil {
		err = f.closer.Close()
	}
	f.src = nil
	f.closer = nil
	return err
}

// Reopen reacquires the descriptor of a closed, path-backed file. The
// prologue must be unchanged.
func (f *File) Reopen() error {
	if f.src != nil {
		return nil
	}
	if f.Path == "" {
		return fmt.Errorf("%w: no path to reopen", ErrClosed)
	}
	fd, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	st, err := fd.Stat()
	if err != nil {
		_ = fd.Close()
		return err
	}
	hdr, _, err := readHeader(fd, st.Size())
	if err != nil {
		_ = fd.Close()
		return err
	}
	if hdr != f.Header {
		_ = fd.Close()
		return fmt.Errorf("%w: %s changed since it was opened", ErrMalformedHeader, f.Path)
	}
	if err := adviseRandom(fd); err != nil {
		f.log.Debug("access pattern hint rejected", "path", f.Path, "error", err)
	}
	f.src = fd
	f.closer = fd
	f.size = st.Size()
	return nil
}

// Closed reports whether the descriptor has been released.
func (f *File) Closed() bool {
	return f.src == nil
}

func (f *File) reader() (io.ReaderAt, error) {
	if f.src == nil {
		return nil, ErrClosed
	}
	return f.src, nil
}

// Width is the size of the first frame axis.
func (f *File) Width() int { return int(f.Header.Width) }

// Height is the size of the second frame axis.
func (f *File) Height() int { return int(f.Header.Height) }

func (f *File) FrameCount() int { return int(f.Header.FrameCount) }

func (f *File) PixelType() PixelType { return PixelType(f.Header.PixelSize) }

func (f *File) BaseOffset() int64 { return int64(f.Header.BaseOffset) }

// FramePayloadSize is the number of pixel bytes per frame.
func (f *File) FramePayloadSize() int64 { return f.Header.PayloadSize() }

// Size is the byte size of the backing source when it was opened.
func (f *File) Size() int64 { return f.size }

// Metadata returns a copy of the decoded vendor key/value pairs.
func (f *File) Metadata() map[string]string {
	return maps.Clone(f.meta)
}

// MetadataErr reports why metadata decoding failed, if it did. The file is
// usable either way.
func (f *File) MetadataErr() error {
	return f.metaErr
}

// ConsistencyState reports the result of the last verification.
func (f *File) ConsistencyState() State {
	return f.state
}

func isCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptFrame)
}
