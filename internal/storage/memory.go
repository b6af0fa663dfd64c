package storage

import (
	"context"
	"errors"
	"sync"

	"ampclimb/internal/model"
)

// MemoryStore keeps encoded batches so callers never share slices with the
// store.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	batches     map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.batches = make(map[string][]byte)
	return nil
}

func (s *MemoryStore) SaveBatch(_ context.Context, batch model.Batch) error {
	payload, err := EncodeBatch(batch)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.batches[batch.ID] = payload
	return nil
}

func (s *MemoryStore) GetBatch(_ context.Context, id string) (model.Batch, bool, error) {
	s.mu.RLock()
	payload, ok := s.batches[id]
	s.mu.RUnlock()

	if !ok {
		return model.Batch{}, false, nil
	}
	batch, err := DecodeBatch(payload)
	if err != nil {
		return model.Batch{}, false, err
	}
	return batch, true, nil
}

func (s *MemoryStore) ListBatches(_ context.Context) ([]model.BatchSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.BatchSummary, 0, len(s.batches))
	for _, payload := range s.batches {
		batch, err := DecodeBatch(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, batch.Summarize())
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) DeleteBatch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.batches, id)
	return nil
}
