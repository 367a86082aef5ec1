package his

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/samcharles93/hisread/internal/logger"
)

// Header sizes in these tests keep the record lengths coprime (188, 185,
// 219 bytes for a 4x3 uint16 frame) so a mis-strided probe cannot land on a
// real marker within the stack.
const (
	hsBase     int16 = 100
	hsSmaller  int16 = 97
	hsLarger   int16 = 131
	testFrames       = 90
)

func layout(headers []int16) stackLayout {
	return stackLayout{width: 4, height: 3, pixelSize: 2, meta: testMeta, headers: headers}
}

func offsetsOf(t *testing.T, f *File) []int64 {
	t.Helper()
	out := make([]int64, f.FrameCount())
	for i := range out {
		off, err := f.OffsetOf(i)
		if err != nil {
			t.Fatalf("OffsetOf(%d): %v", i, err)
		}
		out[i] = off
	}
	return out
}

func TestBaselineMatchesFullVerification(t *testing.T) {
	t.Parallel()

	data, truth := layout(uniformHeaders(testFrames, hsBase)).build(t)
	f := openBytes(t, data)

	baseline := offsetsOf(t, f)
	if err := f.Verify(ModeFull); err != nil {
		t.Fatalf("verify full: %v", err)
	}
	if f.ConsistencyState() != Consistent {
		t.Fatalf("state: got %v", f.ConsistencyState())
	}
	full := offsetsOf(t, f)
	for i := range truth {
		if baseline[i] != full[i] || full[i] != truth[i] {
			t.Fatalf("frame %d: baseline=%d full=%d truth=%d", i, baseline[i], full[i], truth[i])
		}
	}

	rep, ok := f.IndexReport()
	if !ok || rep.Mode != ModeFull || rep.Probes != testFrames || len(rep.Changes) != 0 {
		t.Fatalf("unexpected report: %+v ok=%v", rep, ok)
	}
}

func TestQuickVerificationConsistentStack(t *testing.T) {
	t.Parallel()

	data, truth := layout(uniformHeaders(testFrames, hsBase)).build(t)
	f := openBytes(t, data)
	if err := f.EnsureConsistent(ModeQuick); err != nil {
		t.Fatalf("verify quick: %v", err)
	}
	if f.ConsistencyState() != Consistent {
		t.Fatalf("state: got %v", f.ConsistencyState())
	}
	got := offsetsOf(t, f)
	for i := range truth {
		if got[i] != truth[i] {
			t.Fatalf("frame %d: got %d want %d", i, got[i], truth[i])
		}
	}
	rep, _ := f.IndexReport()
	// Frame 0 plus one probe straight to the last frame.
	if rep.Probes != 2 {
		t.Fatalf("probes: got %d want 2", rep.Probes)
	}
}

func TestQuickVerificationSingleChange(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name  string
		after int16
		k     int
	}{
		{"larger at 37", hsLarger, 37},
		{"smaller at 37", hsSmaller, 37},
		{"larger at 2", hsLarger, 2},
		{"larger at last frame", hsLarger, testFrames - 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			data, truth := layout(changedHeaders(testFrames, hsBase, tc.after, tc.k)).build(t)

			quick := openBytes(t, data)
			if err := quick.EnsureConsistent(ModeQuick); err != nil {
				t.Fatalf("verify quick: %v", err)
			}
			if quick.ConsistencyState() != Inconsistent {
				t.Fatalf("quick state: got %v", quick.ConsistencyState())
			}
			rep, _ := quick.IndexReport()
			if len(rep.Changes) != 1 || rep.Changes[0] != (HeaderChange{Frame: tc.k, From: hsBase, To: tc.after}) {
				t.Fatalf("changes: got %+v", rep.Changes)
			}

			full := openBytes(t, data)
			if err := full.EnsureConsistent(ModeFull); err != nil {
				t.Fatalf("verify full: %v", err)
			}

			q, g := offsetsOf(t, quick), offsetsOf(t, full)
			for i := range truth {
				if q[i] != g[i] || g[i] != truth[i] {
					t.Fatalf("frame %d: quick=%d full=%d truth=%d", i, q[i], g[i], truth[i])
				}
			}
		})
	}
}

func TestFullVerificationFlagsInteriorChangesOnly(t *testing.T) {
	t.Parallel()

	data, _ := layout(changedHeaders(testFrames, hsBase, hsLarger, testFrames-1)).build(t)
	f := openBytes(t, data, WithVerify(ModeFull))
	if f.ConsistencyState() != Consistent {
		t.Fatalf("a change at the last frame must not count, got %v", f.ConsistencyState())
	}

	data, _ = layout(changedHeaders(testFrames, hsBase, hsLarger, 40)).build(t)
	f = openBytes(t, data, WithVerify(ModeFull))
	if f.ConsistencyState() != Inconsistent {
		t.Fatalf("state: got %v", f.ConsistencyState())
	}
	rep, _ := f.IndexReport()
	if len(rep.Changes) != 1 || rep.Changes[0].Frame != 40 {
		t.Fatalf("changes: got %+v", rep.Changes)
	}
}

func TestQuickVerificationSmallStepPlacesManyAnchors(t *testing.T) {
	t.Parallel()

	headers := uniformHeaders(testFrames, hsBase)
	for i := 30; i < testFrames; i++ {
		headers[i-1] = hsLarger
	}
	for i := 70; i < testFrames; i++ {
		headers[i-1] = hsSmaller
	}
	data, truth := layout(headers).build(t)

	f := openBytes(t, data, WithQuickStep(8))
	if err := f.Verify(ModeQuick); err != nil {
		t.Fatalf("verify quick: %v", err)
	}
	got := offsetsOf(t, f)
	for i := range truth {
		if got[i] != truth[i] {
			t.Fatalf("frame %d: got %d want %d", i, got[i], truth[i])
		}
	}
	rep, _ := f.IndexReport()
	want := []HeaderChange{{Frame: 30, From: hsBase, To: hsLarger}, {Frame: 70, From: hsLarger, To: hsSmaller}}
	if len(rep.Changes) != len(want) || rep.Changes[0] != want[0] || rep.Changes[1] != want[1] {
		t.Fatalf("changes: got %+v want %+v", rep.Changes, want)
	}
	if rep.Probes < testFrames/8 {
		t.Fatalf("expected at least one probe per step, got %d", rep.Probes)
	}
}

func TestQuickVerificationMissesCompensatedChange(t *testing.T) {
	t.Parallel()

	// Frames 10..19 grow and 20.. shrink back: the 20-byte detour is
	// invisible to a probe that jumps over it, but frames inside it are
	// mis-addressed.
	headers := uniformHeaders(testFrames, hsBase)
	for i := 10; i < 20; i++ {
		headers[i-1] = hsBase + 2
	}
	for i := 20; i < 30; i++ {
		headers[i-1] = hsBase - 2
	}
	data, _ := layout(headers).build(t)

	f := openBytes(t, data)
	if err := f.Verify(ModeQuick); err != nil {
		t.Fatalf("verify quick: %v", err)
	}
	if f.ConsistencyState() != Consistent {
		t.Fatalf("quick check is expected to miss the compensated change, got %v", f.ConsistencyState())
	}

	if err := f.Verify(ModeFull); err != nil {
		t.Fatalf("verify full: %v", err)
	}
	if f.ConsistencyState() != Inconsistent {
		t.Fatalf("full check must see the change, got %v", f.ConsistencyState())
	}
}

func TestQuickVerificationAcceptsAliasedMarker(t *testing.T) {
	t.Parallel()

	// 12-byte payloads: 86-byte records before frame 9 and 116-byte records
	// after it. The first jump expects frame 299 at the byte where frame 224
	// really starts.
	l := stackLayout{width: 4, height: 3, pixelSize: 1, meta: testMeta,
		headers: changedHeaders(300, 10, 40, 9)}
	data, truth := l.build(t)

	f := openBytes(t, data)
	if err := f.Verify(ModeQuick); err != nil {
		t.Fatalf("verify quick: %v", err)
	}
	rep, _ := f.IndexReport()
	want := HeaderChange{Frame: 299, From: 10, To: 40}
	if rep.Probes != 2 || len(rep.Changes) != 1 || rep.Changes[0] != want {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if off, _ := f.OffsetOf(299); off != truth[224] {
		t.Fatalf("frame 299: got offset %d, want frame 224 at %d", off, truth[224])
	}
	fr, err := f.ReadFrame(299)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(fr.Pix, expectedPayload(224, 12)) {
		t.Fatalf("expected the payload of frame 224, got %v", fr.Pix)
	}

	if err := f.Verify(ModeFull); err != nil {
		t.Fatalf("verify full: %v", err)
	}
	got := offsetsOf(t, f)
	for i := range truth {
		if got[i] != truth[i] {
			t.Fatalf("full: frame %d: got %d want %d", i, got[i], truth[i])
		}
	}
}

func TestEnsureConsistentRunsOnce(t *testing.T) {
	t.Parallel()

	data, _ := layout(changedHeaders(testFrames, hsBase, hsLarger, 50)).build(t)
	f := openBytes(t, data)
	if err := f.EnsureConsistent(ModeQuick); err != nil {
		t.Fatalf("first: %v", err)
	}
	rep1, _ := f.IndexReport()
	if err := f.EnsureConsistent(ModeFull); err != nil {
		t.Fatalf("second: %v", err)
	}
	rep2, _ := f.IndexReport()
	if rep2.Mode != ModeQuick || rep2.Probes != rep1.Probes {
		t.Fatalf("EnsureConsistent must be a no-op once verified: %+v", rep2)
	}
}

func TestVerifyTruncatedStack(t *testing.T) {
	t.Parallel()

	data, truth := layout(uniformHeaders(20, hsBase)).build(t)
	data = data[:truth[15]+10]

	for _, mode := range []Mode{ModeQuick, ModeFull} {
		f := openBytes(t, data)
		err := f.Verify(mode)
		if !errors.Is(err, ErrCorruptFrame) {
			t.Fatalf("%v: expected ErrCorruptFrame, got %v", mode, err)
		}
		var fe *FrameError
		if !errors.As(err, &fe) {
			t.Fatalf("%v: expected *FrameError, got %T", mode, err)
		}
		if f.ConsistencyState() != Unknown {
			t.Fatalf("%v: failed verification must leave the state alone, got %v", mode, f.ConsistencyState())
		}
		if _, ok := f.IndexReport(); ok {
			t.Fatalf("%v: failed verification must not install an index", mode)
		}
	}
}

func TestQuickVerificationRequiresFrameZeroMarker(t *testing.T) {
	t.Parallel()

	data, _ := layout(uniformHeaders(5, hsBase)).build(t)
	data = bytes.Clone(data)
	copy(data, "XX")

	f := openBytes(t, data)
	err := f.Verify(ModeQuick)
	var fe *FrameError
	if !errors.As(err, &fe) || fe.Frame != 0 || !errors.Is(err, ErrCorruptFrame) {
		t.Fatalf("expected corrupt frame 0, got %v", err)
	}
}

func TestVerifyEmptyStack(t *testing.T) {
	t.Parallel()

	data, _ := layout(nil).build(t)
	setFrameCount(data, 0)
	f := openBytes(t, data)
	for _, mode := range []Mode{ModeQuick, ModeFull} {
		if err := f.Verify(mode); err != nil {
			t.Fatalf("%v: %v", mode, err)
		}
		if f.ConsistencyState() != Consistent {
			t.Fatalf("%v: state %v", mode, f.ConsistencyState())
		}
	}
}

func TestOffsetOfRange(t *testing.T) {
	t.Parallel()

	data, _ := layout(uniformHeaders(4, hsBase)).build(t)
	f := openBytes(t, data)
	for _, id := range []int{-1, 4, 100} {
		if _, err := f.OffsetOf(id); !errors.Is(err, ErrFrameOutOfRange) {
			t.Errorf("OffsetOf(%d): expected ErrFrameOutOfRange, got %v", id, err)
		}
	}
}

func TestVerifyLogsHeaderChanges(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	data, _ := layout(changedHeaders(testFrames, hsBase, hsLarger, 37)).build(t)
	f := openBytes(t, data, WithLogger(logger.JSON(&buf, slog.LevelWarn)))
	if err := f.Verify(ModeQuick); err != nil {
		t.Fatalf("verify: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "header size changed") || !strings.Contains(out, `"frame":37`) {
		t.Fatalf("expected a warning for frame 37, got: %s", out)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	if m, err := ParseMode("full"); err != nil || m != ModeFull {
		t.Fatalf("full: %v %v", m, err)
	}
	if m, err := ParseMode(""); err != nil || m != ModeQuick {
		t.Fatalf("empty: %v %v", m, err)
	}
	if _, err := ParseMode("slow"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}
