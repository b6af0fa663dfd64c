package storage

import (
	"context"

	"ampclimb/internal/model"
)

// Store persists finished batches. Get reports presence with its bool result
// rather than an error.
type Store interface {
	Init(ctx context.Context) error
	SaveBatch(ctx context.Context, batch model.Batch) error
	GetBatch(ctx context.Context, id string) (model.Batch, bool, error)
	// ListBatches returns summaries newest first.
	ListBatches(ctx context.Context) ([]model.BatchSummary, error)
	DeleteBatch(ctx context.Context, id string) error
}
