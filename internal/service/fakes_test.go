package service_test

import (
	"context"
	"sync"

	"github.com/atinyakov/bodylog/internal/models"
)

// memStore is an in-memory EntryStore and WatermarkStore. It lists entries in
// reverse insertion order to catch callers that rely on natural order.
type memStore struct {
	mu        sync.Mutex
	entries   []models.Entry
	nextID    int64
	watermark int64

	InsertErr    error
	ListErr      error
	DeleteErr    error
	LoadWMErr    error
	SaveWMErr    error
	deleteCalls  int
	saveWMCalls  int
	purgeCalls   int
	deletedOrder []string
}

func newMemStore(entries ...models.Entry) *memStore {
	s := &memStore{}
	for _, e := range entries {
		s.entries = append(s.entries, e)
		if e.ID > s.nextID {
			s.nextID = e.ID
		}
	}
	return s
}

func (s *memStore) Insert(_ context.Context, e models.Entry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	if s.InsertErr != nil {
		return 0, s.InsertErr
	}
	e.ID = s.nextID
	s.entries = append(s.entries, e)
	return e.ID, nil
}

func (s *memStore) ListAll(context.Context) ([]models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]models.Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		out = append(out, s.entries[i])
	}
	return out, nil
}

func (s *memStore) DeleteMany(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	s.deletedOrder = append(s.deletedOrder, "delete")
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.remove(ids)
	return nil
}

func (s *memStore) remove(ids []int64) {
	drop := make(map[int64]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.entries[:0]
	for _, e := range s.entries {
		if !drop[e.ID] {
			kept = append(kept, e)
		}
	}
	s.entries = kept
}

func (s *memStore) LoadWatermark(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.LoadWMErr != nil {
		return 0, s.LoadWMErr
	}
	return s.watermark, nil
}

func (s *memStore) SaveWatermark(_ context.Context, v int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveWMCalls++
	s.deletedOrder = append(s.deletedOrder, "watermark")
	if s.SaveWMErr != nil {
		return s.SaveWMErr
	}
	s.watermark = v
	return nil
}

func (s *memStore) ids() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.ID
	}
	return out
}

// atomicMemStore adds PurgeAndAdvance on top of memStore.
type atomicMemStore struct {
	*memStore
}

func (s atomicMemStore) PurgeAndAdvance(_ context.Context, ids []int64, wm int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeCalls++
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.remove(ids)
	s.watermark = wm
	return nil
}

// recordingPresenter captures every Present call.
type recordingPresenter struct {
	mu    sync.Mutex
	calls [][]models.Entry
}

func (p *recordingPresenter) Present(entries []models.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]models.Entry, len(entries))
	copy(cp, entries)
	p.calls = append(p.calls, cp)
}

func (p *recordingPresenter) last() []models.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.calls) == 0 {
		return nil
	}
	return p.calls[len(p.calls)-1]
}
