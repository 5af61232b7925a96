package memory

import (
	"context"
	"sync"
)

// Store 进程内实体存储，用于测试与 dry-run
type Store[ID ~string, T interface{ EntityID() ID }] struct {
	mu       sync.RWMutex
	entities map[ID]T
}

func NewStore[ID ~string, T interface{ EntityID() ID }]() *Store[ID, T] {
	return &Store[ID, T]{entities: make(map[ID]T)}
}

func (s *Store[ID, T]) Get(_ context.Context, id ID) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	return e, ok, nil
}

func (s *Store[ID, T]) Save(ctx context.Context, entity T) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entities[entity.EntityID()] = entity
	return entity, nil
}

func (s *Store[ID, T]) RemoveAll(_ context.Context, ids []ID) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := make([]T, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entities[id]; ok {
			removed = append(removed, e)
			delete(s.entities, id)
		}
	}
	return removed, nil
}

// All 返回所有实体的快照，顺序不保证
func (s *Store[ID, T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, e)
	}
	return out
}

func (s *Store[ID, T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}
