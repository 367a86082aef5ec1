// Package his reads Hamamatsu HIS image stacks.
//
// A HIS file is a sequence of 2-D camera frames, each preceded by a small
// record header. The header of frame 0 carries the vendor metadata text, so
// it is larger than the headers of later frames, and some recorders change
// the header size again mid-file. The package addresses frames with a
// constant-stride formula until a read proves it wrong, then builds an
// explicit frame index by probing the file.
//
// A File is not safe for concurrent use.
package his

import "fmt"

// HIS layout constants must never change.
const (
	// Magic is the marker at the start of every frame record.
	Magic = "IM"

	// VendorHeaderSize is the fixed region at the start of every record,
	// counted from the magic marker. The variable header follows it.
	VendorHeaderSize = 64

	// DefaultQuickStep is the initial forward jump of the quick check.
	DefaultQuickStep = 2000
)

// PixelType is the sample type of a frame.
type PixelType uint8

const (
	Uint8  PixelType = 1
	Uint16 PixelType = 2
)

// Size returns the number of bytes per sample.
func (t PixelType) Size() int {
	return int(t)
}

func (t PixelType) String() string {
	switch t {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	default:
		return fmt.Sprintf("pixel(%d)", uint8(t))
	}
}

// Max returns the largest sample value representable by t.
func (t PixelType) Max() uint16 {
	if t == Uint8 {
		return 0xff
	}
	return 0xffff
}

// State records what the last verification learned about header sizes.
type State uint8

const (
	// Unknown means no verification has run; addressing uses the
	// constant-stride formula.
	Unknown State = iota
	// Consistent means every checked header had the same size.
	Consistent
	// Inconsistent means the header size changed at least once.
	Inconsistent
)

func (s State) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case Consistent:
		return "consistent"
	case Inconsistent:
		return "inconsistent"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Mode selects a verification strategy.
type Mode uint8

const (
	// ModeQuick probes the file with exponentially sized jumps and fills
	// the gaps between probes arithmetically.
	ModeQuick Mode = iota
	// ModeFull visits every frame header.
	ModeFull
)

func (m Mode) String() string {
	switch m {
	case ModeQuick:
		return "quick"
	case ModeFull:
		return "full"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode converts "quick" or "full" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "quick", "":
		return ModeQuick, nil
	case "full":
		return ModeFull, nil
	default:
		return ModeQuick, fmt.Errorf("unknown verify mode %q", s)
	}
}
