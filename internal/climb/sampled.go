package climb

import (
	"context"
	"errors"

	"ampclimb/internal/model"
	"ampclimb/internal/mutate"
	"ampclimb/internal/oracle"
)

func (c *Climber) sampledPositions(sequence string) ([]int, error) {
	if len(c.cfg.Positions) == 0 {
		positions := make([]int, len(sequence))
		for i := range positions {
			positions[i] = i
		}
		return positions, nil
	}
	for _, pos := range c.cfg.Positions {
		if pos >= len(sequence) {
			return nil, &mutate.PositionError{Position: pos, Length: len(sequence)}
		}
	}
	return c.cfg.Positions, nil
}

// runSampled draws Completions random variants per position each epoch from m
// and moves to the best strict improvement among them. Without Patience it always
// spends the whole budget.
func (c *Climber) runSampled(ctx context.Context, m *mutate.Mutator, sequence string, score float64) (Result, error) {
	res := Result{
		Trace: model.Trace{{Sequence: sequence, Score: score}},
		State: model.StateRunning,
	}
	positions, err := c.sampledPositions(sequence)
	if err != nil {
		res.State = model.StateFailed
		return res, err
	}

	current := res.Trace[0]
	stale := 0
	for epoch := 1; epoch <= c.cfg.EpochBudget; epoch++ {
		if err := ctx.Err(); err != nil {
			res.State = model.StateFailed
			return res, err
		}
		res.Epochs = epoch
		stepsTotal.WithLabelValues(string(StrategySampled)).Inc()

		var candidates []string
		for _, pos := range positions {
			variants, err := m.GenerateCompletions(current.Sequence, []int{pos}, c.cfg.Completions, c.cfg.Alphabet)
			if errors.Is(err, mutate.ErrInvalidAlphabet) {
				continue
			}
			if err != nil {
				res.State = model.StateFailed
				return res, err
			}
			candidates = append(candidates, variants...)
		}
		if len(candidates) == 0 {
			res.State = model.StateConverged
			return res, nil
		}

		scores, err := oracle.Score(ctx, c.oracle, candidates)
		if err != nil {
			res.State = model.StateFailed
			return res, &oracle.OracleError{Sequence: current.Sequence, Step: epoch, Position: -1, Err: err}
		}
		best := current
		for i, s := range scores {
			if s > best.Score {
				best = model.ScoreRecord{Sequence: candidates[i], Score: s}
			}
		}
		if best.Score > current.Score {
			best.Improvement = best.Score - current.Score
			acceptedTotal.WithLabelValues(string(StrategySampled)).Inc()
			c.logger.Debug("step accepted", "start", sequence, "epoch", epoch, "score", best.Score, "improvement", best.Improvement, "sequence", best.Sequence)
			res.Trace = append(res.Trace, best)
			current = best
			stale = 0
			continue
		}
		stale++
		if c.cfg.Patience > 0 && stale >= c.cfg.Patience {
			res.State = model.StateConverged
			c.logger.Info("climb stalled", "start", sequence, "epoch", epoch, "score", current.Score, "sequence", current.Sequence)
			return res, nil
		}
	}
	res.State = model.StateBudgetExhausted
	return res, nil
}
