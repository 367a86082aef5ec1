package api

import (
	"cmp"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samcharles93/hisread/pkg/his"
)

// StackHandle is one opened stack. his.File is not safe for concurrent
// use, so every access goes through Use.
type StackHandle struct {
	ID        string
	CreatedAt time.Time

	mu   sync.Mutex
	file *his.File
}

// Use runs fn with exclusive access to the stack.
func (h *StackHandle) Use(fn func(f *his.File) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.file)
}

// Info describes the stack. Metadata is included when withMeta is set.
func (h *StackHandle) Info(withMeta bool) StackInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	f := h.file
	info := StackInfo{
		ID:            h.ID,
		Object:        "stack",
		Path:          f.Path,
		CreatedAt:     h.CreatedAt.Unix(),
		Width:         f.Width(),
		Height:        f.Height(),
		FrameCount:    f.FrameCount(),
		PixelType:     f.PixelType().String(),
		BaseOffset:    f.BaseOffset(),
		GapHeaderSize: f.GapHeaderSize,
		State:         f.ConsistencyState().String(),
	}
	if withMeta {
		info.Metadata = f.Metadata()
		if err := f.MetadataErr(); err != nil {
			info.MetadataError = err.Error()
		}
	}
	return info
}

type StackStore struct {
	mu     sync.Mutex
	stacks map[string]*StackHandle
	opts   []his.Option
}

// NewStackStore returns an empty store. opts are passed to every his.Open.
func NewStackStore(opts ...his.Option) *StackStore {
	return &StackStore{
		stacks: make(map[string]*StackHandle),
		opts:   opts,
	}
}

func (s *StackStore) Open(path string, now time.Time) (*StackHandle, error) {
	f, err := his.Open(path, s.opts...)
	if err != nil {
		return nil, err
	}
	h := &StackHandle{
		ID:        newStackID(),
		CreatedAt: now,
		file:      f,
	}
	s.mu.Lock()
	s.stacks[h.ID] = h
	s.mu.Unlock()
	return h, nil
}

func (s *StackStore) Get(id string) (*StackHandle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.stacks[id]
	return h, ok
}

// List returns the open stacks, oldest first.
func (s *StackStore) List() []*StackHandle {
	s.mu.Lock()
	out := make([]*StackHandle, 0, len(s.stacks))
	for _, h := range s.stacks {
		out = append(out, h)
	}
	s.mu.Unlock()
	slices.SortFunc(out, func(a, b *StackHandle) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// Delete removes the stack and closes its file. ok is false for unknown ids.
func (s *StackStore) Delete(id string) (ok bool, err error) {
	s.mu.Lock()
	h, ok := s.stacks[id]
	delete(s.stacks, id)
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, h.Use(func(f *his.File) error { return f.Close() })
}

// Close closes every stack and empties the store.
func (s *StackStore) Close() error {
	s.mu.Lock()
	stacks := s.stacks
	s.stacks = make(map[string]*StackHandle)
	s.mu.Unlock()

	var errs []error
	for _, h := range stacks {
		errs = append(errs, h.Use(func(f *his.File) error { return f.Close() }))
	}
	return errors.Join(errs...)
}

func newStackID() string {
	return "stack_" + uuid.NewString()
}
