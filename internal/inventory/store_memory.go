package inventory

import (
	"cmp"
	"context"
	"slices"
	"sync"
)

// MemBackend is a Backend kept entirely in process memory. Nothing survives
// a restart.
type MemBackend struct {
	mu     sync.RWMutex
	m      map[int64]Product
	nextID int64
}

func NewMemBackend() *MemBackend {
	return &MemBackend{m: map[int64]Product{}, nextID: 1}
}

func (s *MemBackend) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemBackend) Insert(ctx context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.nextID
	}
	if _, ok := s.m[p.ID]; ok {
		return Product{}, ErrDuplicateKey
	}
	s.m[p.ID] = p
	if p.ID >= s.nextID {
		s.nextID = p.ID + 1
	}
	return p, nil
}

func (s *MemBackend) List(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedByID(s.m), nil
}

func (s *MemBackend) Get(ctx context.Context, id int64) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *MemBackend) Update(ctx context.Context, id int64, u ProductUpdate) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.m[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	p = u.apply(p)
	s.m[id] = p
	return p, nil
}

func (s *MemBackend) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[id]; !ok {
		return ErrNotFound
	}
	delete(s.m, id)
	return nil
}

func (s *MemBackend) Close() error { return nil }

func sortedByID(m map[int64]Product) []Product {
	out := make([]Product, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Product) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

var _ Backend = (*MemBackend)(nil)
