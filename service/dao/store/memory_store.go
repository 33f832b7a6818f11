package store

import (
	"context"
	"sort"
	"sync"

	"github.com/viant/fleurflow/service/dao"
	"github.com/viant/fleurflow/service/dao/criteria"
)

// Entity is implemented by records kept in MemoryStore
type Entity[T any] interface {
	*T
	Clone() *T
	Attributes() map[string]string
}

// MemoryStore is a generic in-memory dao.Service keeping clones of records keyed by id
type MemoryStore[T any, P Entity[T]] struct {
	mu          sync.RWMutex
	records     map[string]P
	keySelector func(P) string
	order       func(a, b P) bool
}

// NewMemoryStore creates a store; keySelector extracts the record id, order sorts List results
func NewMemoryStore[T any, P Entity[T]](keySelector func(P) string, order func(a, b P) bool) *MemoryStore[T, P] {
	return &MemoryStore[T, P]{
		records:     make(map[string]P),
		keySelector: keySelector,
		order:       order,
	}
}

// Save stores a clone of the record
func (s *MemoryStore[T, P]) Save(_ context.Context, v *T) error {
	if v == nil {
		return dao.ErrNilEntity
	}
	key := s.keySelector(P(v))
	if key == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = P(v).Clone()
	return nil
}

// Load returns a clone of the record or dao.ErrNotFound
func (s *MemoryStore[T, P]) Load(_ context.Context, key string) (*T, error) {
	if key == "" {
		return nil, dao.ErrInvalidID
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.records[key]
	if !ok {
		return nil, dao.ErrNotFound
	}
	return v.Clone(), nil
}

// Delete removes a record
func (s *MemoryStore[T, P]) Delete(_ context.Context, key string) error {
	if key == "" {
		return dao.ErrInvalidID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return dao.ErrNotFound
	}
	delete(s.records, key)
	return nil
}

// List returns clones of records matching parameters
func (s *MemoryStore[T, P]) List(_ context.Context, parameters ...*dao.Parameter) ([]*T, error) {
	s.mu.RLock()
	var matched []P
	for _, v := range s.records {
		if criteria.Match(v.Attributes(), parameters) {
			matched = append(matched, v)
		}
	}
	s.mu.RUnlock()
	if s.order != nil {
		sort.Slice(matched, func(i, j int) bool { return s.order(matched[i], matched[j]) })
	}
	out := make([]*T, 0, len(matched))
	for _, v := range matched {
		out = append(out, v.Clone())
	}
	return out, nil
}
