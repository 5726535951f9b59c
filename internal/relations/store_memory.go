package relations

import (
	"context"
	"sort"
	"sync"

	"github.com/vidhub/backend/internal/models"
)

// MemoryStore is an in-process Store used by tests and local development.
// Listing methods return ids ordered by insertion, newest first.
type MemoryStore struct {
	mu    sync.Mutex
	edges map[models.Edge]int64
	seq   int64
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{edges: make(map[models.Edge]int64)}
}

func (s *MemoryStore) Exists(_ context.Context, edge models.Edge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.edges[edge]
	return ok, nil
}

func (s *MemoryStore) Insert(_ context.Context, edge models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[edge]; ok {
		return ErrAlreadyExists
	}
	s.seq++
	s.edges[edge] = s.seq
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, edge models.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.edges[edge]; !ok {
		return ErrNotFound
	}
	delete(s.edges, edge)
	return nil
}

func (s *MemoryStore) CountByTarget(_ context.Context, targetID string, kind models.EdgeKind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for edge := range s.edges {
		if edge.TargetID == targetID && edge.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountByActor(_ context.Context, actorID string, kind models.EdgeKind) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for edge := range s.edges {
		if edge.ActorID == actorID && edge.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) ListTargets(_ context.Context, actorID string, kind models.EdgeKind) ([]string, error) {
	return s.collect(func(e models.Edge) (string, bool) {
		return e.TargetID, e.ActorID == actorID && e.Kind == kind
	}), nil
}

func (s *MemoryStore) ListActors(_ context.Context, targetID string, kind models.EdgeKind) ([]string, error) {
	return s.collect(func(e models.Edge) (string, bool) {
		return e.ActorID, e.TargetID == targetID && e.Kind == kind
	}), nil
}

func (s *MemoryStore) collect(match func(models.Edge) (string, bool)) []string {
	s.mu.Lock()
	type hit struct {
		id string
		at int64
	}
	var hits []hit
	for edge, at := range s.edges {
		if id, ok := match(edge); ok {
			hits = append(hits, hit{id: id, at: at})
		}
	}
	s.mu.Unlock()

	sort.Slice(hits, func(i, j int) bool { return hits[i].at > hits[j].at })
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.id)
	}
	return ids
}
