package climb

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ampclimb/internal/model"
	"ampclimb/internal/mutate"
	"ampclimb/internal/oracle"
)

func countB() oracle.Oracle {
	return oracle.PerSequence(func(s string) (float64, error) {
		return float64(strings.Count(s, "B")) / float64(len(s)), nil
	})
}

func abConfig(budget int) Config {
	return Config{Alphabet: mutate.MustAlphabet("AB"), EpochBudget: budget}
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	cases := map[string]Config{
		"zero budget":      {Alphabet: mutate.DefaultAlphabet, EpochBudget: 0},
		"negative budget":  {Alphabet: mutate.DefaultAlphabet, EpochBudget: -3},
		"missing alphabet": {EpochBudget: 1},
		"unknown strategy": {Alphabet: mutate.DefaultAlphabet, EpochBudget: 1, Strategy: "annealing"},
		"no completions":   {Alphabet: mutate.DefaultAlphabet, EpochBudget: 1, Strategy: StrategySampled},
		"negative patience": {
			Alphabet: mutate.DefaultAlphabet, EpochBudget: 1, Strategy: StrategySampled, Completions: 1, Patience: -1,
		},
		"negative position": {
			Alphabet: mutate.DefaultAlphabet, EpochBudget: 1, Strategy: StrategySampled, Completions: 1, Positions: []int{-1},
		},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(cfg, countB())
			require.ErrorIs(t, err, ErrConfiguration)
		})
	}

	_, err := New(abConfig(1), nil)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestOptimizeSingleOriginExample(t *testing.T) {
	c, err := New(abConfig(100), countB())
	require.NoError(t, err)

	res, err := c.Optimize(context.Background(), "AAAA")
	require.NoError(t, err)

	assert.Equal(t, model.StateConverged, res.State)
	assert.Equal(t, 5, res.Epochs)
	assert.Equal(t, model.Trace{
		{Sequence: "AAAA", Score: 0, Improvement: 0},
		{Sequence: "BAAA", Score: 0.25, Improvement: 0.25},
		{Sequence: "BBAA", Score: 0.5, Improvement: 0.25},
		{Sequence: "BBBA", Score: 0.75, Improvement: 0.25},
		{Sequence: "BBBB", Score: 1, Improvement: 0.25},
	}, res.Trace)
}

func TestOptimizeBudgetExhausted(t *testing.T) {
	c, err := New(abConfig(1), countB())
	require.NoError(t, err)

	res, err := c.Optimize(context.Background(), "AAAA")
	require.NoError(t, err)
	assert.Equal(t, model.StateBudgetExhausted, res.State)
	assert.Equal(t, 1, res.Epochs)
	require.Len(t, res.Trace, 2)
	assert.Equal(t, "BAAA", res.Trace[1].Sequence)
}

func TestOptimizeConvergesOnFinalBudgetStep(t *testing.T) {
	c, err := New(abConfig(5), countB())
	require.NoError(t, err)

	res, err := c.Optimize(context.Background(), "AAAA")
	require.NoError(t, err)
	assert.Equal(t, model.StateConverged, res.State)
	assert.Len(t, res.Trace, 5)
}

func TestOptimizeCompounding(t *testing.T) {
	cfg := abConfig(100)
	cfg.ChangeMultiple = true
	c, err := New(cfg, countB())
	require.NoError(t, err)

	res, err := c.Optimize(context.Background(), "AAAA")
	require.NoError(t, err)
	assert.Equal(t, model.StateConverged, res.State)
	assert.Equal(t, model.Trace{
		{Sequence: "AAAA", Score: 0, Improvement: 0},
		{Sequence: "BBBB", Score: 1, Improvement: 1},
	}, res.Trace)
}

func TestStepTiesKeepFirstFound(t *testing.T) {
	// Every substitution scores the same, so the first candidate in canonical
	// order (position 0, first differing symbol) must win.
	flat := oracle.PerSequence(func(s string) (float64, error) {
		if s == "AAA" {
			return 0, nil
		}
		return 1, nil
	})
	c, err := New(Config{Alphabet: mutate.MustAlphabet("ACB"), EpochBudget: 1}, flat)
	require.NoError(t, err)

	rec, err := c.Step(context.Background(), "AAA")
	require.NoError(t, err)
	assert.Equal(t, "CAA", rec.Sequence)
	assert.Equal(t, 1.0, rec.Improvement)
}

func TestStepAtLocalOptimumHasNoImprovement(t *testing.T) {
	c, err := New(abConfig(1), countB())
	require.NoError(t, err)

	rec, err := c.Step(context.Background(), "BBBB")
	require.NoError(t, err)
	assert.Equal(t, model.ScoreRecord{Sequence: "BBBB", Score: 1, Improvement: 0}, rec)
}

func TestSingleSymbolAlphabetIsNoOp(t *testing.T) {
	c, err := New(Config{Alphabet: mutate.MustAlphabet("A"), EpochBudget: 3}, countB())
	require.NoError(t, err)

	res, err := c.Optimize(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, model.StateConverged, res.State)
	assert.Len(t, res.Trace, 1)
}

func TestOptimizeRejectsEmptySequence(t *testing.T) {
	c, err := New(abConfig(1), countB())
	require.NoError(t, err)
	_, err = c.Optimize(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidSequence)
	_, err = c.Step(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidSequence)
}

func TestOracleFailureCarriesContext(t *testing.T) {
	boom := errors.New("model crashed")
	var calls atomic.Int64
	failing := oracle.Func(func(_ context.Context, seqs []string) ([]float64, error) {
		if calls.Add(1) > 1 {
			return nil, boom
		}
		return make([]float64, len(seqs)), nil
	})

	c, err := New(abConfig(10), failing)
	require.NoError(t, err)
	res, err := c.Optimize(context.Background(), "AAAA")
	require.ErrorIs(t, err, boom)
	assert.Equal(t, model.StateFailed, res.State)
	require.Len(t, res.Trace, 1)

	var oe *oracle.OracleError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, "AAAA", oe.Sequence)
	assert.Equal(t, 1, oe.Step)
}

func TestCompoundingOracleFailureReportsPosition(t *testing.T) {
	boom := errors.New("bad residue")
	o := oracle.PerSequence(func(s string) (float64, error) {
		if s == "BBAA" {
			return 0, boom
		}
		return float64(strings.Count(s, "B")), nil
	})
	cfg := abConfig(10)
	cfg.ChangeMultiple = true
	c, err := New(cfg, o)
	require.NoError(t, err)

	_, err = c.Optimize(context.Background(), "AAAA")
	var oe *oracle.OracleError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, 1, oe.Position)
	assert.Equal(t, 1, oe.Step)
}

func TestOptimizeStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	o := oracle.Func(func(_ context.Context, seqs []string) ([]float64, error) {
		cancel()
		return make([]float64, len(seqs)), nil
	})
	c, err := New(abConfig(10), o)
	require.NoError(t, err)
	_, err = c.Optimize(ctx, "AAAA")
	require.ErrorIs(t, err, context.Canceled)
}

// landscape is a deterministic random fitness table over short sequences.
func landscape(seed int64) oracle.Oracle {
	weights := make(map[int]map[byte]float64)
	r := rand.New(rand.NewSource(seed))
	for pos := 0; pos < 12; pos++ {
		weights[pos] = make(map[byte]float64)
		for _, c := range []byte(mutate.DefaultSymbols) {
			weights[pos][c] = r.Float64()
		}
	}
	return oracle.PerSequence(func(s string) (float64, error) {
		total := 0.0
		for i := 0; i < len(s); i++ {
			total += weights[i][s[i]]
		}
		for i := 1; i < len(s); i++ {
			if s[i] == s[i-1] {
				total -= 0.3
			}
		}
		return total, nil
	})
}

func TestTracesAreMonotonicAndConvergedRunsAreLocalOptima(t *testing.T) {
	o := landscape(42)
	starts := []string{"AAAAAAAAAAAA", "KRRWRNIGLFGK", "GLFDIVKKVVGA"}
	for _, multiple := range []bool{false, true} {
		c, err := New(Config{Alphabet: mutate.DefaultAlphabet, EpochBudget: 200, ChangeMultiple: multiple}, o)
		require.NoError(t, err)
		for _, start := range starts {
			res, err := c.Optimize(context.Background(), start)
			require.NoError(t, err)
			require.Equal(t, model.StateConverged, res.State)

			for i := 1; i < len(res.Trace); i++ {
				assert.Greater(t, res.Trace[i].Score, res.Trace[i-1].Score)
				assert.Greater(t, res.Trace[i].Improvement, 0.0)
			}

			best, _ := res.Trace.Best()
			bestScore, err := oracle.ScoreOne(context.Background(), o, best.Sequence)
			require.NoError(t, err)
			neighbours := mutate.SubstitutionNeighbours(best.Sequence, mutate.DefaultAlphabet)
			scores, err := o.ScoreMany(context.Background(), neighbours)
			require.NoError(t, err)
			for i, s := range scores {
				assert.LessOrEqual(t, s, bestScore, "neighbour %s beats converged sequence", neighbours[i])
			}
		}
	}
}

func TestSingleOriginIsDeterministic(t *testing.T) {
	o := landscape(7)
	c, err := New(Config{Alphabet: mutate.DefaultAlphabet, EpochBudget: 50}, o)
	require.NoError(t, err)

	first, err := c.Optimize(context.Background(), "KRRWRQVMGAFW")
	require.NoError(t, err)
	second, err := c.Optimize(context.Background(), "KRRWRQVMGAFW")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
