package his

import (
	"io"
	"slices"
)

// HeaderChange is a point where the header size differs from the size the
// previous frames used.
type HeaderChange struct {
	Frame int
	From  int16
	To    int16
}

// IndexReport describes the last verification run.
type IndexReport struct {
	Mode    Mode
	State   State
	Probes  int
	Changes []HeaderChange
}

// frameIndex holds the verified offset and header size of every frame.
// It is built whole and never modified after it is installed.
type frameIndex struct {
	offsets []int64
	headers []int16

	mode    Mode
	probes  int
	changes []HeaderChange
}

func newFrameIndex(n int, mode Mode) *frameIndex {
	return &frameIndex{
		offsets: make([]int64, n),
		headers: make([]int16, n),
		mode:    mode,
	}
}

func (x *frameIndex) set(id int, off int64, hs int16) {
	x.offsets[id] = off
	x.headers[id] = hs
}

// recordLen is the distance from one magic marker to the next for a record
// with the given header size.
func (f *File) recordLen(headerSize int16) int64 {
	return int64(headerSize) + VendorHeaderSize + f.FramePayloadSize()
}

// baselineOffset assumes every frame after frame 0 has GapHeaderSize.
func (f *File) baselineOffset(id int) int64 {
	if id == 0 {
		return 0
	}
	return f.recordLen(f.Header.BaseOffset) + int64(id-1)*f.recordLen(f.GapHeaderSize)
}

// OffsetOf returns the byte offset of the magic marker of frame id. Once a
// verification has run the frame index is used, otherwise the baseline
// formula.
func (f *File) OffsetOf(id int) (int64, error) {
	if id < 0 || id >= f.FrameCount() {
		return 0, outOfRange(id, f.FrameCount())
	}
	if f.index != nil {
		return f.index.offsets[id], nil
	}
	return f.baselineOffset(id), nil
}

// EnsureConsistent builds the frame index with the given mode unless a
// verification has already run.
func (f *File) EnsureConsistent(mode Mode) error {
	if f.state != Unknown {
		return nil
	}
	return f.Verify(mode)
}

// Verify rebuilds the frame index unconditionally. On failure the previous
// index and state are kept.
func (f *File) Verify(mode Mode) error {
	r, err := f.reader()
	if err != nil {
		return err
	}
	log := f.log.With("path", f.Path, "mode", mode.String())
	log.Debug("verifying frame index", "frames", f.FrameCount())

	var idx *frameIndex
	switch mode {
	case ModeFull:
		idx, err = f.verifyFull(r)
	default:
		idx, err = f.verifyQuick(r)
	}
	if err != nil {
		log.Debug("frame index verification failed", "error", err)
		return err
	}

	for _, c := range idx.changes {
		log.Warn("header size changed", "frame", c.Frame, "from", c.From, "to", c.To)
	}
	f.index = idx
	if len(idx.changes) == 0 {
		f.state = Consistent
	} else {
		f.state = Inconsistent
	}
	log.Debug("frame index built", "probes", idx.probes, "state", f.state.String())
	return nil
}

// IndexReport returns a summary of the installed frame index. ok is false
// when no verification has run.
func (f *File) IndexReport() (IndexReport, bool) {
	if f.index == nil {
		return IndexReport{}, false
	}
	return IndexReport{
		Mode:    f.index.mode,
		State:   f.state,
		Probes:  f.index.probes,
		Changes: slices.Clone(f.index.changes),
	}, true
}

// verifyFull walks every record from the start of the file. Header sizes of
// frames 0, 1 and the last frame are not compared; frame 0 carries the
// metadata and the last frame is allowed to differ.
func (f *File) verifyFull(r io.ReaderAt) (*frameIndex, error) {
	n := f.FrameCount()
	idx := newFrameIndex(n, ModeFull)

	var off int64
	var prev int16
	for i := range n {
		hs, ok, err := readRecord(r, off)
		idx.probes++
		if err != nil {
			return nil, corruptAt(i, off, "record header unreadable: "+err.Error())
		}
		idx.set(i, off, hs)
		if i > 1 && i < n-1 && (!ok || hs != prev) {
			idx.changes = append(idx.changes, HeaderChange{Frame: i, From: prev, To: hs})
		}
		prev = hs
		off += f.recordLen(hs)
	}
	return idx, nil
}

// verifyQuick probes forward from the last frame whose marker was found
// (the anchor). A probe that misses the marker is retried from the same
// anchor with half the jump, so each anchor costs O(log step) probes. The
// frames between two anchors are filled in arithmetically, which misses a
// header change that is undone again before the next anchor.
//
// A probe is accepted on the marker alone. After a header change a long
// jump can land on the real marker of a different frame when the byte
// distances happen to line up (58 records of 86 bytes span 43 records of
// 116), and that frame is then indexed under the wrong id. Later reads
// return the wrong frame or fail with ErrCorruptFrame. Small steps or
// ModeFull avoid this.
func (f *File) verifyQuick(r io.ReaderAt) (*frameIndex, error) {
	n := f.FrameCount()
	idx := newFrameIndex(n, ModeQuick)
	if n == 0 {
		return idx, nil
	}

	hs0, ok, err := readRecord(r, 0)
	idx.probes++
	if err != nil {
		return nil, corruptAt(0, 0, "record header unreadable: "+err.Error())
	}
	if !ok {
		return nil, corruptAt(0, 0, "missing magic marker")
	}
	idx.set(0, 0, hs0)

	// Records after the anchor are assumed to repeat stride; for frame 0
	// that is the gap header size, not its own.
	anchor, anchorOff, anchorHS := 0, int64(0), hs0
	stride := f.GapHeaderSize
	step := max(f.quickStep, 1)
	jump := step

	at := func(j int) int64 {
		return anchorOff + f.recordLen(anchorHS) + int64(j-1)*f.recordLen(stride)
	}

	for anchor < n-1 {
		j := min(jump, n-1-anchor)
		off := at(j)
		hs, ok, err := readRecord(r, off)
		idx.probes++
		if err != nil || !ok {
			if j == 1 {
				return nil, corruptAt(anchor+1, off, "no magic marker after the last verified frame")
			}
			jump = max(j/2, 1)
			continue
		}

		next := anchor + j
		for k := 1; k < j; k++ {
			idx.set(anchor+k, at(k), stride)
		}
		idx.set(next, off, hs)
		if hs != stride {
			idx.changes = append(idx.changes, HeaderChange{Frame: next, From: stride, To: hs})
		}

		anchor, anchorOff, anchorHS = next, off, hs
		stride = hs
		jump = step
	}
	return idx, nil
}
