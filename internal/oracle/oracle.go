package oracle

import (
	"context"
	"errors"
	"fmt"
)

// Oracle scores sequences. Scores must be deterministic for a fixed model and
// input; higher is better. Implementations used by a batch runner must be
// safe for concurrent use, or be wrapped in Locked.
type Oracle interface {
	ScoreMany(ctx context.Context, sequences []string) ([]float64, error)
}

// Func adapts a plain function to Oracle.
type Func func(ctx context.Context, sequences []string) ([]float64, error)

func (f Func) ScoreMany(ctx context.Context, sequences []string) ([]float64, error) {
	return f(ctx, sequences)
}

// PerSequence adapts a single-sequence scoring function to Oracle.
func PerSequence(score func(sequence string) (float64, error)) Oracle {
	return Func(func(ctx context.Context, sequences []string) ([]float64, error) {
		out := make([]float64, len(sequences))
		for i, seq := range sequences {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			v, err := score(seq)
			if err != nil {
				return nil, fmt.Errorf("score %q: %w", seq, err)
			}
			out[i] = v
		}
		return out, nil
	})
}

var ErrScoreCount = errors.New("oracle returned wrong number of scores")

// ScoreOne scores a single sequence.
func ScoreOne(ctx context.Context, o Oracle, sequence string) (float64, error) {
	scores, err := Score(ctx, o, []string{sequence})
	if err != nil {
		return 0, err
	}
	return scores[0], nil
}

// Score calls o and checks that one score came back per sequence.
func Score(ctx context.Context, o Oracle, sequences []string) ([]float64, error) {
	scores, err := o.ScoreMany(ctx, sequences)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(sequences) {
		return nil, fmt.Errorf("%w: got %d want %d", ErrScoreCount, len(scores), len(sequences))
	}
	return scores, nil
}

// OracleError attaches the failing sequence and search position to a scoring
// failure. Step and Position are -1 when not applicable.
type OracleError struct {
	Sequence string
	Step     int
	Position int
	Err      error
}

func (e *OracleError) Error() string {
	msg := fmt.Sprintf("oracle failed on %q", e.Sequence)
	if e.Step >= 0 {
		msg += fmt.Sprintf(" at step %d", e.Step)
	}
	if e.Position >= 0 {
		msg += fmt.Sprintf(" position %d", e.Position)
	}
	return msg + ": " + e.Err.Error()
}

func (e *OracleError) Unwrap() error {
	return e.Err
}
