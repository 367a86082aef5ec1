package his

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestOpenReadsGeometry(t *testing.T) {
	t.Parallel()

	data, _ := stackLayout{width: 4, height: 3, pixelSize: 2, meta: testMeta, headers: uniformHeaders(5, 100)}.build(t)
	f := openBytes(t, data)

	if f.Width() != 4 || f.Height() != 3 {
		t.Fatalf("geometry: got %dx%d", f.Width(), f.Height())
	}
	if f.PixelType() != Uint16 {
		t.Fatalf("pixel type: got %v", f.PixelType())
	}
	if f.FrameCount() != 5 {
		t.Fatalf("frame count: got %d", f.FrameCount())
	}
	if f.BaseOffset() != int64(len(testMeta)) {
		t.Fatalf("base offset: got %d want %d", f.BaseOffset(), len(testMeta))
	}
	if f.FramePayloadSize() != 24 {
		t.Fatalf("payload size: got %d", f.FramePayloadSize())
	}
	if f.GapHeaderSize != 100 {
		t.Fatalf("gap header size: got %d", f.GapHeaderSize)
	}
	if f.ConsistencyState() != Unknown {
		t.Fatalf("state after open: got %v", f.ConsistencyState())
	}
	if _, ok := f.IndexReport(); ok {
		t.Fatal("open must not build the frame index")
	}
}

func TestDecodeHeaderLittleEndian(t *testing.T) {
	t.Parallel()

	var raw [prologueSize]byte
	binary.LittleEndian.PutUint16(raw[2:], 0x0102)
	binary.LittleEndian.PutUint16(raw[4:], 0x0304)
	binary.LittleEndian.PutUint16(raw[6:], 0x0506)
	binary.LittleEndian.PutUint16(raw[12:], 2)
	binary.LittleEndian.PutUint32(raw[14:], 0x0a0b0c0d)

	h, ok := decodeHeader(raw[:])
	if !ok {
		t.Fatal("decode failed")
	}
	want := Header{BaseOffset: 0x0102, Width: 0x0304, Height: 0x0506, PixelSize: 2, FrameCount: 0x0a0b0c0d}
	if h != want {
		t.Fatalf("got %+v want %+v", h, want)
	}
	if _, ok := decodeHeader(raw[:10]); ok {
		t.Fatal("decode of a short prologue must fail")
	}
}

func TestOpenMalformedHeader(t *testing.T) {
	t.Parallel()

	good, _ := stackLayout{width: 4, height: 3, meta: testMeta, headers: uniformHeaders(3, 100)}.build(t)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"shorter than prologue", func(b []byte) []byte { return b[:40] }},
		{"empty", func(b []byte) []byte { return nil }},
		{"pixel size 3", func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[12:], 3)
			return b
		}},
		{"zero width", func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[4:], 0)
			return b
		}},
		{"negative base offset", func(b []byte) []byte {
			binary.LittleEndian.PutUint16(b[2:], 0xffff)
			return b
		}},
		{"metadata truncated", func(b []byte) []byte { return b[:prologueSize+10] }},
		{"frame 1 header missing", func(b []byte) []byte { return b[:prologueSize+len(testMeta)+12] }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			data := tc.mutate(bytes.Clone(good))
			_, err := OpenReaderAt(bytes.NewReader(data), int64(len(data)))
			if !errors.Is(err, ErrMalformedHeader) {
				t.Fatalf("expected ErrMalformedHeader, got %v", err)
			}
		})
	}
}

func TestOpenClosesFileOnError(t *testing.T) {
	t.Parallel()

	path := writeTemp(t, []byte("IM too short"))
	if _, err := Open(path); !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestOpenSingleFrameUsesBaseOffsetAsGap(t *testing.T) {
	t.Parallel()

	data, _ := stackLayout{width: 2, height: 2, meta: testMeta}.build(t)
	f := openBytes(t, data)
	if f.FrameCount() != 1 {
		t.Fatalf("frame count: got %d", f.FrameCount())
	}
	if f.GapHeaderSize != f.Header.BaseOffset {
		t.Fatalf("gap: got %d want %d", f.GapHeaderSize, f.Header.BaseOffset)
	}
}

func TestReadRecord(t *testing.T) {
	t.Parallel()

	r := bytes.NewReader([]byte{'I', 'M', 0x64, 0x00, 'X', 'M', 0x10, 0x00, 'I'})
	hs, ok, err := readRecord(r, 0)
	if err != nil || !ok || hs != 100 {
		t.Fatalf("record at 0: hs=%d ok=%v err=%v", hs, ok, err)
	}
	hs, ok, err = readRecord(r, 4)
	if err != nil || ok || hs != 16 {
		t.Fatalf("record at 4: hs=%d ok=%v err=%v", hs, ok, err)
	}
	if _, _, err := readRecord(r, 8); err == nil {
		t.Fatal("expected error for a record cut short")
	}
	if _, _, err := readRecord(r, -1); err == nil {
		t.Fatal("expected error for a negative offset")
	}
}
