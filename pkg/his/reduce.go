package his

import (
	"fmt"
	"math"
	"slices"
)

// ReduceFunc folds the samples of one pixel position across frames.
// values may be reordered by the function.
type ReduceFunc func(values []uint16) float64

// Max is the default reduction.
func Max(values []uint16) float64 {
	return float64(slices.Max(values))
}

func Min(values []uint16) float64 {
	return float64(slices.Min(values))
}

func Mean(values []uint16) float64 {
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return sum / float64(len(values))
}

func Median(values []uint16) float64 {
	slices.Sort(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return float64(values[mid])
	}
	return (float64(values[mid-1]) + float64(values[mid])) / 2
}

// ParseReduceFunc maps a name to one of the built-in reductions.
func ParseReduceFunc(name string) (ReduceFunc, error) {
	switch name {
	case "max", "":
		return Max, nil
	case "min":
		return Min, nil
	case "mean", "avg":
		return Mean, nil
	case "median":
		return Median, nil
	default:
		return nil, fmt.Errorf("unknown reduction %q", name)
	}
}

// Selector picks the frames of a reduction.
type Selector struct {
	ids   []int
	count int
}

// Frames selects an explicit, ordered list of frames.
func Frames(ids ...int) Selector {
	return Selector{ids: slices.Clone(ids)}
}

// Sample selects about k frames spread evenly over the stack, starting at
// frame 0 with stride max(1, frameCount/k).
func Sample(k int) Selector {
	return Selector{count: k}
}

// Resolve returns the frame ids picked from a stack of n frames.
func (s Selector) Resolve(n int) ([]int, error) {
	if s.ids != nil {
		if len(s.ids) == 0 {
			return nil, ErrEmptySelection
		}
		return slices.Clone(s.ids), nil
	}
	if s.count <= 0 {
		return nil, fmt.Errorf("%w: sample count %d", ErrEmptySelection, s.count)
	}
	if n <= 0 {
		return nil, ErrEmptySelection
	}
	stride := max(1, n/s.count)
	ids := make([]int, 0, (n+stride-1)/stride)
	for id := 0; id < n; id += stride {
		ids = append(ids, id)
	}
	return ids, nil
}

// ReadFrameReduction reads the selected frames and folds them into one
// frame with fn (Max when nil). It fails like ReadFrameStack.
func (f *File) ReadFrameReduction(sel Selector, fn ReduceFunc) (*Frame, error) {
	ids, err := sel.Resolve(f.FrameCount())
	if err != nil {
		return nil, err
	}
	st, err := f.ReadFrameStack(ids)
	if err != nil {
		return nil, err
	}
	return ReduceStack(st, fn), nil
}

// ReduceStack applies fn across the frame axis of st. Results are rounded
// and clamped to the stack's pixel type.
func ReduceStack(st *FrameStack, fn ReduceFunc) *Frame {
	if fn == nil {
		fn = Max
	}
	out := NewFrame(st.Width, st.Height, st.Type)
	if st.Len() == 0 {
		return out
	}
	frames := make([]*Frame, st.Len())
	for k := range frames {
		frames[k] = st.Frame(k)
	}

	limit := float64(st.Type.Max())
	values := make([]uint16, len(frames))
	for p := range out.Len() {
		for k, fr := range frames {
			values[k] = fr.Sample(p)
		}
		v := math.Round(fn(values))
		switch {
		case math.IsNaN(v) || v < 0:
			v = 0
		case v > limit:
			v = limit
		}
		out.SetSample(p, uint16(v))
	}
	return out
}
