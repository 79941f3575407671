package inventory

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"Inventory/pkg/kit"
)

// Store mediates between callers and the durable backend. With the cache
// enabled it keeps every row in memory and mirrors each successful durable
// mutation into it before returning.
//
// The index lock only protects the map itself. A durable write and the
// matching index update are not one atomic step, so concurrent writers to
// the same id can leave the index out of step with the table until the next
// Reload. The store is meant for a single interactive user; it is not safe
// under concurrent write load.
type Store struct {
	backend Backend
	log     *zap.Logger
	metrics *kit.StoreMetrics

	cache *index
}

type Option func(*Store)

// WithCache turns on the in-memory index. NewStore fills it from the
// backend before returning.
func WithCache() Option {
	return func(s *Store) { s.cache = newIndex() }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *kit.StoreMetrics) Option {
	return func(s *Store) { s.metrics = m }
}

func NewStore(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	s := &Store{backend: backend, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Cached() bool { return s.cache != nil }

func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// Reload replaces the index with a full read of the backend. Without a
// cache it does nothing.
func (s *Store) Reload(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	all, err := s.backend.List(ctx)
	s.observe("reload", err)
	if err != nil {
		return err
	}
	s.cache.replace(all)
	s.metrics.SetCacheEntries(s.cache.len())
	return nil
}

// Add inserts p. The index learns about the row only after the backend
// accepted it.
func (s *Store) Add(ctx context.Context, p Product) (Product, error) {
	p, err := NewProduct(p.ID, p.Name, p.Quantity, p.Price)
	if err != nil {
		s.observe("add", err)
		return Product{}, err
	}

	stored, err := s.backend.Insert(ctx, p)
	s.observe("add", err)
	if err != nil {
		return Product{}, err
	}

	if s.cache != nil {
		s.cache.put(stored)
		s.metrics.SetCacheEntries(s.cache.len())
	}
	return stored, nil
}

func (s *Store) List(ctx context.Context) ([]Product, error) {
	if s.cache != nil {
		s.observe("list", nil)
		return s.cache.list(), nil
	}
	all, err := s.backend.List(ctx)
	s.observe("list", err)
	return all, err
}

// Search returns the products whose name contains substr, ignoring case,
// in List order.
func (s *Store) Search(ctx context.Context, substr string) ([]Product, error) {
	var (
		all []Product
		err error
	)
	if s.cache != nil {
		all = s.cache.list()
	} else {
		all, err = s.backend.List(ctx)
	}
	s.observe("search", err)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(substr)
	out := make([]Product, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id int64) (Product, error) {
	if s.cache != nil {
		p, ok := s.cache.get(id)
		if !ok {
			s.observe("get", ErrNotFound)
			return Product{}, ErrNotFound
		}
		s.observe("get", nil)
		return p, nil
	}
	p, err := s.backend.Get(ctx, id)
	s.observe("get", err)
	return p, err
}

// Update changes quantity and/or price of product id. The index entry is
// replaced with the row the backend reports after the write.
func (s *Store) Update(ctx context.Context, id int64, u ProductUpdate) (Product, error) {
	if err := u.Validate(); err != nil {
		s.observe("update", err)
		return Product{}, err
	}

	p, err := s.backend.Update(ctx, id, u)
	s.observe("update", err)
	if err != nil {
		return Product{}, err
	}

	if s.cache != nil {
		s.cache.put(p)
	}
	return p, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	err := s.backend.Delete(ctx, id)
	s.observe("delete", err)
	if err != nil {
		return err
	}

	if s.cache != nil {
		s.cache.remove(id)
		s.metrics.SetCacheEntries(s.cache.len())
	}
	return nil
}

func (s *Store) observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case errors.Is(err, ErrDuplicateKey):
		result = "duplicate"
	case errors.Is(err, ErrInvalidInput):
		result = "invalid"
	default:
		result = "error"
		s.log.Error("store operation failed", zap.String("op", op), zap.Error(err))
	}
	s.metrics.Observe(op, result)
}

type index struct {
	mu sync.RWMutex
	m  map[int64]Product
}

func newIndex() *index {
	return &index{m: map[int64]Product{}}
}

func (ix *index) replace(all []Product) {
	m := make(map[int64]Product, len(all))
	for _, p := range all {
		m[p.ID] = p
	}
	ix.mu.Lock()
	ix.m = m
	ix.mu.Unlock()
}

func (ix *index) put(p Product) {
	ix.mu.Lock()
	ix.m[p.ID] = p
	ix.mu.Unlock()
}

func (ix *index) remove(id int64) {
	ix.mu.Lock()
	delete(ix.m, id)
	ix.mu.Unlock()
}

func (ix *index) get(id int64) (Product, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p, ok := ix.m[id]
	return p, ok
}

func (ix *index) list() []Product {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return sortedByID(ix.m)
}

func (ix *index) len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.m)
}
