// Package queue buffers mutations that could not reach the server and
// replays them in order once connectivity returns. The Store interface is
// the durable queue; any backing store that preserves creation order can
// satisfy it.
package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"forestfocus/internal/model"
)

var ErrNotFound = errors.New("queue: mutation not found")

// Store is the durable local queue. Listing must return entries in
// creation order; ULID ids make that a lexical sort.
type Store interface {
	Insert(ctx context.Context, m model.PendingMutation) error
	Get(ctx context.Context, id string) (*model.PendingMutation, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.PendingMutation, error)
	ListPending(ctx context.Context) ([]model.PendingMutation, error)
	ListAll(ctx context.Context) ([]model.PendingMutation, error)
	UpdateStatus(ctx context.Context, id, status, lastError string, updatedAt time.Time) error
}

// MemoryStore keeps the queue in process memory. Tests and UI previews run
// against it; production uses the sqlite-backed repository.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]model.PendingMutation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.PendingMutation)}
}

func (s *MemoryStore) Insert(_ context.Context, m model.PendingMutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[m.ID] = m
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.PendingMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) FindByIdempotencyKey(_ context.Context, key string) (*model.PendingMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.entries {
		if m.IdempotencyKey == key && (m.Status == model.MutationPending || m.Status == model.MutationProcessing) {
			found := m
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListPending(ctx context.Context) ([]model.PendingMutation, error) {
	return s.list(func(m model.PendingMutation) bool { return m.Status == model.MutationPending })
}

func (s *MemoryStore) ListAll(ctx context.Context) ([]model.PendingMutation, error) {
	return s.list(func(model.PendingMutation) bool { return true })
}

func (s *MemoryStore) UpdateStatus(_ context.Context, id, status, lastError string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.entries[id]
	if !ok {
		return ErrNotFound
	}
	m.Status = status
	m.LastError = lastError
	m.UpdatedAt = updatedAt
	s.entries[id] = m
	return nil
}

func (s *MemoryStore) list(keep func(model.PendingMutation) bool) ([]model.PendingMutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PendingMutation, 0, len(s.entries))
	for _, m := range s.entries {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
