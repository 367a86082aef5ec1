package his

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

const testMeta = "Hokawo v2.8 @Hokawo@vExpTim1=0.050;vDate=2020/01/17;Binning=1;Comment=a=b;NoSeparator~Hokawo~\x00\x00"

// stackLayout describes a synthetic stack. headers[i] is the header-size
// field of frame i+1; frame 0 always uses the metadata length.
type stackLayout struct {
	width, height, pixelSize int
	meta                     string
	headers                  []int16
}

func uniformHeaders(frames int, hs int16) []int16 {
	out := make([]int16, frames-1)
	for i := range out {
		out[i] = hs
	}
	return out
}

// changedHeaders returns headers for frames 1..frames-1 where every frame
// from k on uses after instead of before.
func changedHeaders(frames int, before, after int16, k int) []int16 {
	out := uniformHeaders(frames, before)
	for i := k; i < frames; i++ {
		out[i-1] = after
	}
	return out
}

// payloadByte never produces the byte pair "IM": neighbours differ by one.
func payloadByte(frame, j int) byte {
	return byte(frame + j)
}

func expectedPayload(frame, size int) []byte {
	b := make([]byte, size)
	for j := range b {
		b[j] = payloadByte(frame, j)
	}
	return b
}

// build encodes the stack and returns the file bytes and the offset of
// every frame record.
func (l stackLayout) build(t testing.TB) ([]byte, []int64) {
	t.Helper()
	if l.pixelSize == 0 {
		l.pixelSize = 1
	}
	payload := l.width * l.height * l.pixelSize
	frames := len(l.headers) + 1

	var buf bytes.Buffer
	offsets := make([]int64, 0, frames)

	var prologue [prologueSize]byte
	copy(prologue[:2], Magic)
	binary.LittleEndian.PutUint16(prologue[2:], uint16(len(l.meta)))
	binary.LittleEndian.PutUint16(prologue[4:], uint16(l.width))
	binary.LittleEndian.PutUint16(prologue[6:], uint16(l.height))
	binary.LittleEndian.PutUint16(prologue[12:], uint16(l.pixelSize))
	binary.LittleEndian.PutUint32(prologue[14:], uint32(frames))
	offsets = append(offsets, 0)
	buf.Write(prologue[:])
	buf.WriteString(l.meta)
	buf.Write(expectedPayload(0, payload))

	for i, hs := range l.headers {
		offsets = append(offsets, int64(buf.Len()))
		var rec [VendorHeaderSize]byte
		copy(rec[:2], Magic)
		binary.LittleEndian.PutUint16(rec[2:], uint16(hs))
		buf.Write(rec[:])
		buf.Write(make([]byte, int(hs)))
		buf.Write(expectedPayload(i+1, payload))
	}
	return buf.Bytes(), offsets
}

func setFrameCount(data []byte, n uint32) {
	binary.LittleEndian.PutUint32(data[14:], n)
}

func openBytes(t testing.TB, data []byte, opts ...Option) *File {
	t.Helper()
	f, err := OpenReaderAt(bytes.NewReader(data), int64(len(data)), opts...)
	if err != nil {
		t.Fatalf("open stack: %v", err)
	}
	return f
}

func writeTemp(t testing.TB, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stack.HIS")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write stack: %v", err)
	}
	return path
}
