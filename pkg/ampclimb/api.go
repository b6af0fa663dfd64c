package ampclimb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"ampclimb/internal/batch"
	"ampclimb/internal/climb"
	"ampclimb/internal/config"
	"ampclimb/internal/model"
	"ampclimb/internal/oracle"
	"ampclimb/internal/stats"
	"ampclimb/internal/storage"
)

const (
	defaultArtifactsDir = "runs"
	defaultExportsDir   = "exports"
	defaultDBPath       = "ampclimb.db"

	createdAtLayout = "2006-01-02T15:04:05.000000000Z"
)

var (
	ErrNoStarts  = errors.New("no start sequences")
	ErrNotFound  = errors.New("batch not found")
	ErrNoBatches = errors.New("no batches available")
)

type Options struct {
	StoreKind      string
	DBPath         string
	ArtifactsDir   string
	ExportsDir     string
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
}

type Client struct {
	store storage.Store

	initMu      sync.Mutex
	initialized bool

	artifactsDir string
	exportsDir   string
	logger       *slog.Logger
	tp           trace.TracerProvider
	now          func() time.Time
}

type ClimbRequest struct {
	Starts []string
	Config config.Config
	// Oracle replaces the oracle described by Config.Oracle. It is used as
	// given: no cache, metrics or locking is added.
	Oracle oracle.Oracle
	// OracleName labels a custom Oracle in persisted records.
	OracleName string
}

type ClimbSummary struct {
	BatchID      string
	ArtifactsDir string
	Results      model.BatchResult
	Summary      stats.BatchSummary
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	BatchID      string
	CreatedAtUTC string
	Oracle       string
	Strategy     string
	Runs         int
	Failed       int
	BestScore    float64
	BestSequence string
}

type ShowRequest struct {
	BatchID string
	Latest  bool
}

type ShowResult struct {
	BatchID string
	Summary stats.BatchSummary
	Traces  []model.Trace
}

type ExportRequest struct {
	BatchID string
	Latest  bool
	OutDir  string
}

type ExportSummary struct {
	BatchID   string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	artifactsDir := opts.ArtifactsDir
	if artifactsDir == "" {
		artifactsDir = defaultArtifactsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:        store,
		artifactsDir: artifactsDir,
		exportsDir:   exportsDir,
		logger:       logger,
		tp:           opts.TracerProvider,
		now:          time.Now,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) ensureStore(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

// Climb optimizes every start sequence, persists the batch and writes its
// artifacts. Individual run failures are reported in the results, not as an
// error.
func (c *Client) Climb(ctx context.Context, req ClimbRequest) (ClimbSummary, error) {
	if len(req.Starts) == 0 {
		return ClimbSummary{}, ErrNoStarts
	}
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return ClimbSummary{}, err
	}
	climbCfg, err := cfg.ClimbConfig()
	if err != nil {
		return ClimbSummary{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return ClimbSummary{}, err
	}

	o := req.Oracle
	oracleName := req.OracleName
	if o == nil {
		built, closeOracle, err := BuildOracle(cfg)
		if err != nil {
			return ClimbSummary{}, err
		}
		defer func() {
			if err := closeOracle(); err != nil {
				c.logger.Warn("close oracle cache", "error", err)
			}
		}()
		o = built
		oracleName = cfg.Oracle.Kind
	}
	if oracleName == "" {
		oracleName = "custom"
	}

	climber, err := climb.New(climbCfg, o, climb.WithLogger(c.logger))
	if err != nil {
		return ClimbSummary{}, err
	}
	runner := &batch.Runner{
		Climber:        climber,
		Workers:        cfg.Workers,
		Logger:         c.logger,
		TracerProvider: c.tp,
		Mutators:       batch.SeededMutators(cfg.Seed),
	}

	batchID := uuid.NewString()
	c.logger.Info("batch started", "batch_id", batchID, "runs", len(req.Starts), "oracle", oracleName, "strategy", cfg.Strategy)
	results := runner.Run(ctx, req.Starts)
	if err := ctx.Err(); err != nil {
		return ClimbSummary{}, err
	}

	b := storage.Stamp(model.Batch{
		ID:           batchID,
		CreatedAtUTC: c.now().UTC().Format(createdAtLayout),
		Config: model.BatchConfig{
			Strategy:           cfg.Strategy,
			Alphabet:           cfg.Alphabet,
			ChangeMultiple:     cfg.ChangeMultiple,
			EpochBudget:        cfg.EpochBudget,
			SampledPositions:   cfg.Sampled.Positions,
			SampledCompletions: cfg.Sampled.Completions,
			SampledPatience:    cfg.Sampled.Patience,
			Workers:            cfg.Workers,
			Seed:               cfg.Seed,
			Oracle:             oracleName,
			SerializeOracle:    cfg.SerializeOracle,
		},
		Results: results,
	})
	if err := c.store.SaveBatch(ctx, b); err != nil {
		return ClimbSummary{}, fmt.Errorf("save batch %s: %w", batchID, err)
	}

	runDir, err := stats.WriteBatchArtifacts(c.artifactsDir, b)
	if err != nil {
		return ClimbSummary{}, err
	}
	summary := stats.Summarize(b)
	if err := stats.AppendRunIndex(c.artifactsDir, stats.IndexEntry(b, summary)); err != nil {
		return ClimbSummary{}, err
	}

	return ClimbSummary{
		BatchID:      batchID,
		ArtifactsDir: filepath.Clean(runDir),
		Results:      results,
		Summary:      summary,
	}, nil
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}

	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}

	out := make([]RunItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, RunItem{
			BatchID:      e.BatchID,
			CreatedAtUTC: e.CreatedAtUTC,
			Oracle:       e.Oracle,
			Strategy:     e.Strategy,
			Runs:         e.Runs,
			Failed:       e.Failed,
			BestScore:    e.BestScore,
			BestSequence: e.BestSequence,
		})
	}
	return out, nil
}

// Show loads a batch from the store, falling back to its artifacts when the
// store no longer holds it (for example a memory store in a new process).
func (c *Client) Show(ctx context.Context, req ShowRequest) (ShowResult, error) {
	batchID, err := c.resolveBatchID(req.BatchID, req.Latest)
	if err != nil {
		return ShowResult{}, err
	}
	if err := c.ensureStore(ctx); err != nil {
		return ShowResult{}, err
	}

	b, ok, err := c.store.GetBatch(ctx, batchID)
	if err != nil {
		return ShowResult{}, err
	}
	if ok {
		traces := make([]model.Trace, len(b.Results))
		for i, r := range b.Results {
			traces[i] = r.Trace
		}
		return ShowResult{BatchID: batchID, Summary: stats.Summarize(b), Traces: traces}, nil
	}

	summary, ok, err := stats.ReadSummary(c.artifactsDir, batchID)
	if err != nil {
		return ShowResult{}, err
	}
	if !ok {
		return ShowResult{}, fmt.Errorf("%w: %s", ErrNotFound, batchID)
	}
	traces, err := ReadTracesFile(filepath.Join(c.artifactsDir, batchID, stats.ResultsFile))
	if err != nil {
		return ShowResult{}, err
	}
	return ShowResult{BatchID: batchID, Summary: summary, Traces: traces}, nil
}

// Delete removes a batch from the store. Artifacts on disk are kept.
func (c *Client) Delete(ctx context.Context, batchID string) error {
	if batchID == "" {
		return errors.New("batch id is required")
	}
	if err := c.ensureStore(ctx); err != nil {
		return err
	}
	return c.store.DeleteBatch(ctx, batchID)
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	batchID, err := c.resolveBatchID(req.BatchID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	exportedDir, err := stats.ExportBatchArtifacts(c.artifactsDir, batchID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{BatchID: batchID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) resolveBatchID(batchID string, latest bool) (string, error) {
	if batchID != "" && latest {
		return "", errors.New("use either batch id or latest")
	}
	if batchID == "" && !latest {
		return "", errors.New("batch id or latest is required")
	}
	if batchID != "" {
		return batchID, nil
	}
	entries, err := stats.ListRunIndex(c.artifactsDir)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "", ErrNoBatches
	}
	return entries[0].BatchID, nil
}
