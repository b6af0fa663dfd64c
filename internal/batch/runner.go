package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"ampclimb/internal/climb"
	"ampclimb/internal/model"
	"ampclimb/internal/mutate"
)

const tracerName = "ampclimb/batch"

// ErrRunPanicked marks a run whose climb panicked. The panic value is in the
// error text.
var ErrRunPanicked = errors.New("climb run panicked")

// Runner executes one independent climb per start sequence on a bounded
// worker pool. The oracle behind Climber must be safe for concurrent use when
// Workers > 1; wrap it in oracle.Locked otherwise.
type Runner struct {
	Climber *climb.Climber
	// Workers bounds concurrent runs. Zero means runtime.GOMAXPROCS(0).
	Workers        int
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	// Mutators returns the random source for the run at index. When nil every
	// run shares the climber's own source.
	Mutators func(index int) *mutate.Mutator
}

// SeededMutators gives run i a source seeded with seed+i.
func SeededMutators(seed int64) func(index int) *mutate.Mutator {
	return func(index int) *mutate.Mutator {
		return mutate.NewMutator(seed + int64(index))
	}
}

func (r *Runner) workers(n int) int {
	w := r.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

func (r *Runner) tracer() trace.Tracer {
	if r.TracerProvider != nil {
		return r.TracerProvider.Tracer(tracerName)
	}
	return otel.Tracer(tracerName)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Run optimizes every start sequence and returns one result per input in
// submission order. A failed run is recorded in its slot and never cancels
// its siblings. Cancelling ctx fails the runs that have not finished.
func (r *Runner) Run(ctx context.Context, starts []string) model.BatchResult {
	results := make(model.BatchResult, len(starts))
	if len(starts) == 0 {
		return results
	}
	tracer := r.tracer()
	logger := r.logger()

	ctx, span := tracer.Start(ctx, "batch.Run", trace.WithAttributes(
		attribute.Int("runs", len(starts)),
		attribute.Int("workers", r.workers(len(starts))),
	))
	defer span.End()

	var g errgroup.Group
	g.SetLimit(r.workers(len(starts)))
	for i, start := range starts {
		g.Go(func() error {
			results[i] = r.runOne(ctx, tracer, i, start)
			if results[i].Failed() {
				logger.Warn("climb run failed", "index", i, "start", start, "error", results[i].Error)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := results.FailedCount()
	span.SetAttributes(attribute.Int("failed", failed))
	if failed > 0 {
		span.SetStatus(codes.Error, "one or more runs failed")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	logger.Info("batch finished", "runs", len(starts), "failed", failed)
	return results
}

func (r *Runner) runOne(ctx context.Context, tracer trace.Tracer, index int, start string) (out model.RunResult) {
	ctx, span := tracer.Start(ctx, "batch.Optimize", trace.WithAttributes(
		attribute.Int("index", index),
		attribute.Int("length", len(start)),
	))
	defer span.End()

	out = model.RunResult{Index: index, Start: start}
	fail := func(err error) {
		out.State = model.StateFailed
		out.Err = err
		out.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	defer func() {
		if p := recover(); p != nil {
			out = model.RunResult{Index: index, Start: start}
			fail(fmt.Errorf("%w: %v", ErrRunPanicked, p))
		}
	}()

	if err := ctx.Err(); err != nil {
		fail(err)
		return out
	}

	var m *mutate.Mutator
	if r.Mutators != nil {
		m = r.Mutators(index)
	}
	res, err := r.Climber.OptimizeWith(ctx, start, m)
	out.Trace = res.Trace
	out.State = res.State
	out.Epochs = res.Epochs
	if err != nil {
		fail(err)
		return out
	}
	span.SetAttributes(
		attribute.String("state", string(res.State)),
		attribute.Int("epochs", res.Epochs),
		attribute.Int("accepted", len(res.Trace)-1),
	)
	return out
}
