//go:build linux

package his

import (
	"errors"
	"os"
	"syscall"
	"testing"
)

func TestAdviseRandom(t *testing.T) {
	t.Parallel()

	data, _ := layout(uniformHeaders(3, hsBase)).build(t)
	f, err := os.Open(writeTemp(t, data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = f.Close() }()
	if err := adviseRandom(f); err != nil {
		t.Fatalf("regular file: %v", err)
	}

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer func() { _ = r.Close(); _ = w.Close() }()
	if err := adviseRandom(r); !errors.Is(err, syscall.ESPIPE) {
		t.Fatalf("pipe: expected ESPIPE, got %v", err)
	}
}
