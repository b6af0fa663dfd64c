package climb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ampclimb/internal/model"
	"ampclimb/internal/mutate"
)

func sampledConfig(budget, completions, patience int, positions ...int) Config {
	return Config{
		Alphabet:    mutate.MustAlphabet("AB"),
		EpochBudget: budget,
		Strategy:    StrategySampled,
		Completions: completions,
		Patience:    patience,
		Positions:   positions,
	}
}

func TestSampledSpendsBudgetWithoutPatience(t *testing.T) {
	c, err := New(sampledConfig(6, 3, 0), countB(), WithMutator(mutate.NewMutator(1)))
	require.NoError(t, err)

	res, err := c.Optimize(context.Background(), "AAAA")
	require.NoError(t, err)
	assert.Equal(t, model.StateBudgetExhausted, res.State)
	assert.Equal(t, 6, res.Epochs)
	// With a two-letter alphabet every completion flips the position, so the
	// first four epochs each find one more B.
	require.Len(t, res.Trace, 5)
	assert.Equal(t, "BBBB", res.Trace[4].Sequence)
	for i := 1; i < len(res.Trace); i++ {
		assert.Greater(t, res.Trace[i].Improvement, 0.0)
	}
}

func TestSampledPatienceConverges(t *testing.T) {
	c, err := New(sampledConfig(100, 2, 2), countB())
	require.NoError(t, err)

	res, err := c.Optimize(context.Background(), "BBBB")
	require.NoError(t, err)
	assert.Equal(t, model.StateConverged, res.State)
	assert.Equal(t, 2, res.Epochs)
	assert.Len(t, res.Trace, 1)
}

func TestSampledRestrictedPositions(t *testing.T) {
	c, err := New(sampledConfig(10, 1, 3, 1, 2), countB())
	require.NoError(t, err)

	res, err := c.Optimize(context.Background(), "AAAA")
	require.NoError(t, err)
	best, _ := res.Trace.Best()
	assert.Equal(t, "ABBA", best.Sequence)
}

func TestSampledPositionOutOfRange(t *testing.T) {
	c, err := New(sampledConfig(1, 1, 0, 9), countB())
	require.NoError(t, err)

	_, err = c.Optimize(context.Background(), "AAAA")
	require.ErrorIs(t, err, mutate.ErrInvalidPosition)
}

func TestSampledSingleSymbolAlphabetConverges(t *testing.T) {
	cfg := sampledConfig(5, 2, 0)
	cfg.Alphabet = mutate.MustAlphabet("A")
	c, err := New(cfg, countB())
	require.NoError(t, err)

	res, err := c.Optimize(context.Background(), "AA")
	require.NoError(t, err)
	assert.Equal(t, model.StateConverged, res.State)
}

func TestSampledOptimizeWithUsesGivenSource(t *testing.T) {
	cfg := sampledConfig(8, 2, 0)
	cfg.Alphabet = mutate.MustAlphabet("ABCD")
	c, err := New(cfg, countB())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := c.OptimizeWith(ctx, "AAAAAA", mutate.NewMutator(42))
	require.NoError(t, err)
	// Advances the climber's own source; the explicit source is unaffected.
	_, err = c.Optimize(ctx, "AAAAAA")
	require.NoError(t, err)
	second, err := c.OptimizeWith(ctx, "AAAAAA", mutate.NewMutator(42))
	require.NoError(t, err)
	assert.Equal(t, first.Trace, second.Trace)
}
