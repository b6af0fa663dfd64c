package oracle

import (
	"context"
	"math"
	"sync"
)

// Locked serializes access to an oracle that is not safe for concurrent use.
type Locked struct {
	Inner Oracle
	mu    sync.Mutex
}

func NewLocked(inner Oracle) *Locked {
	return &Locked{Inner: inner}
}

func (l *Locked) ScoreMany(ctx context.Context, sequences []string) ([]float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.Inner.ScoreMany(ctx, sequences)
}

// Rounded rounds every score to a fixed number of decimals, matching
// classifiers that report coarse probabilities.
type Rounded struct {
	Inner    Oracle
	Decimals int
}

func (r Rounded) ScoreMany(ctx context.Context, sequences []string) ([]float64, error) {
	scores, err := Score(ctx, r.Inner, sequences)
	if err != nil {
		return nil, err
	}
	scale := math.Pow(10, float64(r.Decimals))
	out := make([]float64, len(scores))
	for i, s := range scores {
		out[i] = math.Round(s*scale) / scale
	}
	return out, nil
}
