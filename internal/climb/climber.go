package climb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ampclimb/internal/model"
	"ampclimb/internal/mutate"
	"ampclimb/internal/oracle"
)

var (
	ErrConfiguration   = errors.New("invalid configuration")
	ErrInvalidSequence = errors.New("invalid sequence")
)

type Strategy string

const (
	// StrategyExhaustive scans the full single-substitution neighbourhood
	// every step and stops at a local optimum.
	StrategyExhaustive Strategy = "exhaustive"
	// StrategySampled scores random completions at chosen positions every
	// epoch.
	StrategySampled Strategy = "sampled"
)

type Config struct {
	Alphabet mutate.Alphabet
	// ChangeMultiple derives later candidates of a step from the running best
	// instead of the step-start sequence, so changes compound within a step.
	ChangeMultiple bool
	EpochBudget    int
	Strategy       Strategy

	// Sampled strategy only.
	Positions   []int
	Completions int
	Patience    int
}

type Climber struct {
	cfg     Config
	oracle  oracle.Oracle
	mutator *mutate.Mutator
	logger  *slog.Logger
}

type Option func(*Climber)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Climber) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMutator sets the random source used by the sampled strategy.
func WithMutator(m *mutate.Mutator) Option {
	return func(c *Climber) {
		if m != nil {
			c.mutator = m
		}
	}
}

func New(cfg Config, o oracle.Oracle, opts ...Option) (*Climber, error) {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyExhaustive
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("%w: oracle is required", ErrConfiguration)
	}
	c := &Climber{
		cfg:     cfg,
		oracle:  o,
		mutator: mutate.NewMutator(1),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func validate(cfg Config) error {
	if cfg.EpochBudget <= 0 {
		return fmt.Errorf("%w: epoch budget must be > 0, got %d", ErrConfiguration, cfg.EpochBudget)
	}
	if cfg.Alphabet.IsZero() {
		return fmt.Errorf("%w: alphabet is required", ErrConfiguration)
	}
	switch cfg.Strategy {
	case StrategyExhaustive:
	case StrategySampled:
		if cfg.Completions <= 0 {
			return fmt.Errorf("%w: completions must be > 0, got %d", ErrConfiguration, cfg.Completions)
		}
		if cfg.Patience < 0 {
			return fmt.Errorf("%w: patience must be >= 0, got %d", ErrConfiguration, cfg.Patience)
		}
		for _, pos := range cfg.Positions {
			if pos < 0 {
				return fmt.Errorf("%w: negative position %d", ErrConfiguration, pos)
			}
		}
	default:
		return fmt.Errorf("%w: unsupported strategy %q", ErrConfiguration, cfg.Strategy)
	}
	return nil
}

func (c *Climber) Config() Config {
	return c.cfg
}

// Result is the finalized outcome of one Optimize call.
type Result struct {
	Trace  model.Trace
	State  model.RunState
	Epochs int
}

// Optimize climbs from sequence until convergence or until the epoch budget
// is spent. On error the returned Result holds the trace accumulated so far.
func (c *Climber) Optimize(ctx context.Context, sequence string) (Result, error) {
	return c.OptimizeWith(ctx, sequence, c.mutator)
}

// OptimizeWith is Optimize drawing random choices from m instead of the
// climber's own source. Concurrent runs that each own a source stay
// reproducible regardless of scheduling.
func (c *Climber) OptimizeWith(ctx context.Context, sequence string, m *mutate.Mutator) (Result, error) {
	if m == nil {
		m = c.mutator
	}
	if sequence == "" {
		return Result{State: model.StateFailed}, fmt.Errorf("%w: empty sequence", ErrInvalidSequence)
	}
	score, err := oracle.ScoreOne(ctx, c.oracle, sequence)
	if err != nil {
		return Result{State: model.StateFailed}, &oracle.OracleError{Sequence: sequence, Step: 0, Position: -1, Err: err}
	}

	var res Result
	switch c.cfg.Strategy {
	case StrategySampled:
		res, err = c.runSampled(ctx, m, sequence, score)
	default:
		res, err = c.runExhaustive(ctx, sequence, score)
	}
	runsTotal.WithLabelValues(string(c.cfg.Strategy), string(res.State)).Inc()
	return res, err
}

func (c *Climber) runExhaustive(ctx context.Context, sequence string, score float64) (Result, error) {
	res := Result{
		Trace: model.Trace{{Sequence: sequence, Score: score}},
		State: model.StateRunning,
	}
	current := res.Trace[0]
	for epoch := 1; epoch <= c.cfg.EpochBudget; epoch++ {
		if err := ctx.Err(); err != nil {
			res.State = model.StateFailed
			return res, err
		}
		rec, err := c.step(ctx, epoch, current.Sequence, current.Score)
		if err != nil {
			res.State = model.StateFailed
			return res, err
		}
		res.Epochs = epoch
		stepsTotal.WithLabelValues(string(StrategyExhaustive)).Inc()
		if rec.Improvement <= 0 {
			res.State = model.StateConverged
			c.logger.Info("climb converged", "start", sequence, "epoch", epoch, "score", current.Score, "sequence", current.Sequence)
			return res, nil
		}
		acceptedTotal.WithLabelValues(string(StrategyExhaustive)).Inc()
		c.logger.Debug("step accepted", "start", sequence, "epoch", epoch, "score", rec.Score, "improvement", rec.Improvement, "sequence", rec.Sequence)
		res.Trace = append(res.Trace, rec)
		current = rec
	}
	res.State = model.StateBudgetExhausted
	c.logger.Info("climb budget exhausted", "start", sequence, "epochs", res.Epochs, "score", current.Score, "sequence", current.Sequence)
	return res, nil
}

// Step runs one neighbourhood scan from sequence and returns the best
// candidate found. Improvement is zero when sequence is a local optimum.
func (c *Climber) Step(ctx context.Context, sequence string) (model.ScoreRecord, error) {
	if sequence == "" {
		return model.ScoreRecord{}, fmt.Errorf("%w: empty sequence", ErrInvalidSequence)
	}
	score, err := oracle.ScoreOne(ctx, c.oracle, sequence)
	if err != nil {
		return model.ScoreRecord{}, &oracle.OracleError{Sequence: sequence, Step: 0, Position: -1, Err: err}
	}
	return c.step(ctx, 0, sequence, score)
}

func (c *Climber) step(ctx context.Context, epoch int, original string, originalScore float64) (model.ScoreRecord, error) {
	if c.cfg.ChangeMultiple {
		return c.stepCompounding(ctx, epoch, original, originalScore)
	}
	return c.stepSingleOrigin(ctx, epoch, original, originalScore)
}

// stepSingleOrigin derives every candidate from original, so the whole
// neighbourhood can be scored in one oracle call.
func (c *Climber) stepSingleOrigin(ctx context.Context, epoch int, original string, originalScore float64) (model.ScoreRecord, error) {
	candidates := mutate.SubstitutionNeighbours(original, c.cfg.Alphabet)
	best := model.ScoreRecord{Sequence: original, Score: originalScore}
	if len(candidates) == 0 {
		return best, nil
	}
	scores, err := oracle.Score(ctx, c.oracle, candidates)
	if err != nil {
		return model.ScoreRecord{}, &oracle.OracleError{Sequence: original, Step: epoch, Position: -1, Err: err}
	}
	for i, s := range scores {
		if s > best.Score {
			best = model.ScoreRecord{Sequence: candidates[i], Score: s}
		}
	}
	best.Improvement = best.Score - originalScore
	return best, nil
}

// stepCompounding applies each strict improvement immediately, so candidates
// must be scored one at a time in canonical order.
func (c *Climber) stepCompounding(ctx context.Context, epoch int, original string, originalScore float64) (model.ScoreRecord, error) {
	best := model.ScoreRecord{Sequence: original, Score: originalScore}
	for pos := 0; pos < len(original); pos++ {
		for i := 0; i < c.cfg.Alphabet.Len(); i++ {
			symbol := c.cfg.Alphabet.At(i)
			if symbol == best.Sequence[pos] {
				continue
			}
			candidate := mutate.Replace(best.Sequence, pos, symbol)
			s, err := oracle.ScoreOne(ctx, c.oracle, candidate)
			if err != nil {
				return model.ScoreRecord{}, &oracle.OracleError{Sequence: candidate, Step: epoch, Position: pos, Err: err}
			}
			if s > best.Score {
				best = model.ScoreRecord{Sequence: candidate, Score: s}
			}
		}
	}
	best.Improvement = best.Score - originalScore
	return best, nil
}
