package ampclimb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ampclimb/internal/climb"
	"ampclimb/internal/config"
	"ampclimb/internal/model"
	"ampclimb/internal/oracle"
	"ampclimb/internal/stats"
)

func fractionConfig() config.Config {
	cfg := config.Default()
	cfg.Alphabet = "AB"
	cfg.Oracle = oracle.Spec{Kind: "fraction", Targets: "B"}
	cfg.Store = config.Store{Kind: "memory"}
	cfg.Cache = config.Cache{Kind: "memory"}
	cfg.Workers = 2
	return cfg
}

func newTestClient(t *testing.T) (*Client, string, string) {
	t.Helper()
	base := t.TempDir()
	artifactsDir := filepath.Join(base, "runs")
	exportsDir := filepath.Join(base, "exports")
	client, err := New(Options{StoreKind: "memory", ArtifactsDir: artifactsDir, ExportsDir: exportsDir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, artifactsDir, exportsDir
}

func TestClientClimbRunsShowAndExport(t *testing.T) {
	client, artifactsDir, exportsDir := newTestClient(t)
	ctx := context.Background()

	summary, err := client.Climb(ctx, ClimbRequest{
		Starts: []string{"AAAA", "ABAB", ""},
		Config: fractionConfig(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, summary.BatchID)
	assert.Equal(t, filepath.Join(artifactsDir, summary.BatchID), summary.ArtifactsDir)

	require.Len(t, summary.Results, 3)
	assert.Equal(t, model.StateConverged, summary.Results[0].State)
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, summary.Results[0].Trace.Scores())
	assert.True(t, summary.Results[2].Failed())
	assert.ErrorIs(t, summary.Results[2].Err, climb.ErrInvalidSequence)
	assert.Equal(t, 1.0, summary.Summary.BestScore)
	assert.Equal(t, 1, summary.Summary.Failed)

	runs, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.BatchID, runs[0].BatchID)
	assert.Equal(t, "fraction", runs[0].Oracle)
	assert.Equal(t, "BBBB", runs[0].BestSequence)

	shown, err := client.Show(ctx, ShowRequest{Latest: true})
	require.NoError(t, err)
	assert.Equal(t, summary.BatchID, shown.BatchID)
	require.Len(t, shown.Traces, 3)
	assert.Equal(t, summary.Results[1].Trace, shown.Traces[1])

	exported, err := client.Export(ctx, ExportRequest{Latest: true})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(exportsDir, summary.BatchID), exported.Directory)
	_, err = os.Stat(filepath.Join(exported.Directory, stats.ResultsFile))
	require.NoError(t, err)
}

func TestClientShowFallsBackToArtifacts(t *testing.T) {
	client, artifactsDir, _ := newTestClient(t)
	ctx := context.Background()

	summary, err := client.Climb(ctx, ClimbRequest{Starts: []string{"AAB"}, Config: fractionConfig()})
	require.NoError(t, err)
	require.NoError(t, client.Delete(ctx, summary.BatchID))

	shown, err := client.Show(ctx, ShowRequest{BatchID: summary.BatchID})
	require.NoError(t, err)
	assert.Equal(t, "BBB", shown.Summary.BestSequence)
	require.Len(t, shown.Traces, 1)

	fresh, err := New(Options{StoreKind: "memory", ArtifactsDir: artifactsDir})
	require.NoError(t, err)
	_, err = fresh.Show(ctx, ShowRequest{BatchID: "missing"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestClientRunsNewestFirstWithLimit(t *testing.T) {
	client, _, _ := newTestClient(t)
	ctx := context.Background()

	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	client.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := client.Climb(ctx, ClimbRequest{Starts: []string{"AB"}, Config: fractionConfig()})
		require.NoError(t, err)
		ids = append(ids, s.BatchID)
	}

	runs, err := client.Runs(ctx, RunsRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].BatchID)
	assert.Equal(t, ids[1], runs[1].BatchID)
}

func TestClientClimbWithCustomOracle(t *testing.T) {
	client, _, _ := newTestClient(t)
	countK := oracle.PerSequence(func(s string) (float64, error) {
		return float64(strings.Count(s, "K")), nil
	})
	cfg := fractionConfig()
	cfg.Alphabet = "AK"
	cfg.ChangeMultiple = true

	summary, err := client.Climb(context.Background(), ClimbRequest{
		Starts:     []string{"AAA"},
		Config:     cfg,
		Oracle:     countK,
		OracleName: "count-k",
	})
	require.NoError(t, err)
	best, _ := summary.Results[0].Trace.Best()
	assert.Equal(t, "KKK", best.Sequence)
	assert.Len(t, summary.Results[0].Trace, 2)

	runs, err := client.Runs(context.Background(), RunsRequest{})
	require.NoError(t, err)
	assert.Equal(t, "count-k", runs[0].Oracle)
}

func TestClientClimbBadgerCache(t *testing.T) {
	client, _, _ := newTestClient(t)
	cfg := fractionConfig()
	cfg.Cache = config.Cache{Kind: "badger"}
	cfg.SerializeOracle = true

	summary, err := client.Climb(context.Background(), ClimbRequest{Starts: []string{"AAA", "BAA"}, Config: cfg})
	require.NoError(t, err)
	assert.Zero(t, summary.Summary.Failed)
	assert.Equal(t, 1.0, summary.Summary.BestScore)
}

func TestClientClimbRejectsBadInput(t *testing.T) {
	client, _, _ := newTestClient(t)
	ctx := context.Background()

	_, err := client.Climb(ctx, ClimbRequest{Config: fractionConfig()})
	require.ErrorIs(t, err, ErrNoStarts)

	cfg := fractionConfig()
	cfg.EpochBudget = 0
	_, err = client.Climb(ctx, ClimbRequest{Starts: []string{"AA"}, Config: cfg})
	require.ErrorIs(t, err, climb.ErrConfiguration)

	cfg = fractionConfig()
	cfg.Oracle = oracle.Spec{Kind: "nope"}
	_, err = client.Climb(ctx, ClimbRequest{Starts: []string{"AA"}, Config: cfg})
	require.ErrorIs(t, err, oracle.ErrOracleNotFound)
}

func TestClientLatestWithoutBatches(t *testing.T) {
	client, _, _ := newTestClient(t)
	_, err := client.Export(context.Background(), ExportRequest{Latest: true})
	require.True(t, errors.Is(err, ErrNoBatches))

	_, err = client.Show(context.Background(), ShowRequest{BatchID: "x", Latest: true})
	require.Error(t, err)
	_, err = client.Show(context.Background(), ShowRequest{})
	require.Error(t, err)
}

func TestLoadStarts(t *testing.T) {
	dir := t.TempDir()
	fasta := filepath.Join(dir, "in.fasta")
	require.NoError(t, os.WriteFile(fasta, []byte(">a\nKLAK\n>b\nGLFD\n"), 0o644))
	starts, err := LoadStarts(fasta)
	require.NoError(t, err)
	assert.Equal(t, []string{"KLAK", "GLFD"}, starts)

	results := filepath.Join(dir, "results.json")
	require.NoError(t, os.WriteFile(results, []byte(`[{"results":[{"sequence":"AAAA","score":0,"improvement":0},{"sequence":"BAAA","score":0.25,"improvement":0.25}]}]`), 0o644))
	starts, err = LoadStartsFromResults(results)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAAA"}, starts)
}

func TestRandomStarts(t *testing.T) {
	starts, err := RandomStarts(20, 18, 25, "ADEFGHIKLMNPQRSTVWY", 3)
	require.NoError(t, err)
	require.Len(t, starts, 20)
	for _, s := range starts {
		assert.GreaterOrEqual(t, len(s), 18)
		assert.LessOrEqual(t, len(s), 25)
		assert.NotContains(t, s, "C")
	}

	again, err := RandomStarts(20, 18, 25, "ADEFGHIKLMNPQRSTVWY", 3)
	require.NoError(t, err)
	assert.Equal(t, starts, again)

	_, err = RandomStarts(1, 5, 2, "AB", 1)
	require.Error(t, err)
}

func TestClimbSampledBatchReproducibleFromSeed(t *testing.T) {
	client, _, _ := newTestClient(t)
	cfg := fractionConfig()
	cfg.Alphabet = "ABCD"
	cfg.Strategy = string(climb.StrategySampled)
	cfg.Sampled.Completions = 2
	cfg.EpochBudget = 8
	cfg.Workers = 8
	cfg.Seed = 42
	starts := []string{"AAAAAA", "ACDACD", "DDDDDD", "CACACA", "ADADAD", "CCCCCC", "DCADCA", "AACCDD"}

	first, err := client.Climb(context.Background(), ClimbRequest{Starts: starts, Config: cfg})
	require.NoError(t, err)
	second, err := client.Climb(context.Background(), ClimbRequest{Starts: starts, Config: cfg})
	require.NoError(t, err)
	require.Len(t, second.Results, len(starts))
	for i := range starts {
		assert.Equal(t, first.Results[i].Trace, second.Results[i].Trace, "run %d", i)
	}
}
