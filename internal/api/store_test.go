package api

import (
	"errors"
	"testing"
	"time"

	"github.com/samcharles93/hisread/pkg/his"
)

func TestStackStoreOrderAndClose(t *testing.T) {
	t.Parallel()

	store := NewStackStore(his.WithVerify(his.ModeQuick))
	path := writeStack(t, 2, 2, 5, 0)
	now := time.Unix(1_700_000_000, 0)

	second, err := store.Open(path, now.Add(time.Second))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	first, err := store.Open(path, now)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if first.ID == second.ID {
		t.Fatal("ids must be unique")
	}
	if first.Info(false).State != "consistent" {
		t.Fatalf("store options not applied: %+v", first.Info(false))
	}

	list := store.List()
	if len(list) != 2 || list[0] != first || list[1] != second {
		t.Fatal("stacks must be listed oldest first")
	}

	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(store.List()) != 0 {
		t.Fatal("close must empty the store")
	}
	err = first.Use(func(f *his.File) error {
		_, err := f.ReadFrame(0)
		return err
	})
	if !errors.Is(err, his.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}
