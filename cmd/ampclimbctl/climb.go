package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ampclimb/internal/oracle"
	"ampclimb/pkg/ampclimb"
)

type climbFlags struct {
	input   string
	sameAs  string
	num     int
	minLen  int
	maxLen  int
	jsonOut bool

	alphabet       string
	epochs         int
	changeMultiple bool
	strategy       string
	workers        int
	seed           int64
	oracleKind     string
	targets        string
	url            string
	cacheKind      string
	serialize      bool
}

func newClimbCmd(c *cli) *cobra.Command {
	f := &climbFlags{}
	cmd := &cobra.Command{
		Use:   "climb",
		Short: "Optimize a batch of start sequences",
		Long: "Optimize start sequences read from --input, taken from an earlier results file " +
			"with --same-as, or drawn at random. Results are persisted and written as artifacts.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runClimb(cmd, f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.input, "input", "", "FASTA or plain sequence file with start sequences")
	fl.StringVar(&f.sameAs, "same-as", "", "results JSON whose first sequences become the starts")
	fl.IntVar(&f.num, "num", 10, "number of random start sequences")
	fl.IntVar(&f.minLen, "min-len", 18, "minimum random start length")
	fl.IntVar(&f.maxLen, "max-len", 25, "maximum random start length")
	fl.BoolVar(&f.jsonOut, "json", false, "emit the batch summary as JSON")

	fl.StringVar(&f.alphabet, "alphabet", "", "symbols substitutions draw from")
	fl.IntVar(&f.epochs, "epochs", 0, "epoch budget per run")
	fl.BoolVar(&f.changeMultiple, "change-multiple", false, "compound improvements within a step")
	fl.StringVar(&f.strategy, "strategy", "", "exhaustive|sampled")
	fl.IntVar(&f.workers, "workers", 0, "concurrent runs (0 = all CPUs)")
	fl.Int64Var(&f.seed, "seed", 0, "random seed for start sequences and sampling")
	fl.StringVar(&f.oracleKind, "oracle", "", "oracle kind: "+strings.Join(oracle.Kinds(), "|"))
	fl.StringVar(&f.targets, "targets", "", "target symbols for the fraction oracle")
	fl.StringVar(&f.url, "url", "", "endpoint for the http oracle")
	fl.StringVar(&f.cacheKind, "cache", "", "score cache: none|memory|badger")
	fl.BoolVar(&f.serialize, "serialize-oracle", false, "call the oracle from one run at a time")
	cmd.MarkFlagsMutuallyExclusive("input", "same-as")
	return cmd
}

func (f *climbFlags) apply(cmd *cobra.Command, c *cli) {
	fl := cmd.Flags()
	cfg := &c.cfg
	if fl.Changed("alphabet") {
		cfg.Alphabet = f.alphabet
	}
	if fl.Changed("epochs") {
		cfg.EpochBudget = f.epochs
	}
	if fl.Changed("change-multiple") {
		cfg.ChangeMultiple = f.changeMultiple
	}
	if fl.Changed("strategy") {
		cfg.Strategy = f.strategy
	}
	if fl.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fl.Changed("seed") {
		cfg.Seed = f.seed
	}
	if fl.Changed("oracle") {
		cfg.Oracle.Kind = f.oracleKind
	}
	if fl.Changed("targets") {
		cfg.Oracle.Targets = f.targets
	}
	if fl.Changed("url") {
		cfg.Oracle.URL = f.url
	}
	if fl.Changed("cache") {
		cfg.Cache.Kind = f.cacheKind
	}
	if fl.Changed("serialize-oracle") {
		cfg.SerializeOracle = f.serialize
	}
}

func (f *climbFlags) starts(c *cli) ([]string, error) {
	switch {
	case f.input != "":
		return ampclimb.LoadStarts(f.input)
	case f.sameAs != "":
		return ampclimb.LoadStartsFromResults(f.sameAs)
	default:
		if f.num <= 0 {
			return nil, errors.New("num must be > 0")
		}
		return ampclimb.RandomStarts(f.num, f.minLen, f.maxLen, c.cfg.Alphabet, c.cfg.Seed)
	}
}

func (c *cli) runClimb(cmd *cobra.Command, f *climbFlags) error {
	f.apply(cmd, c)
	if err := c.cfg.Validate(); err != nil {
		return err
	}
	starts, err := f.starts(c)
	if err != nil {
		return err
	}

	client, err := c.client()
	if err != nil {
		return err
	}
	defer client.Close()

	began := time.Now()
	summary, err := client.Climb(cmd.Context(), ampclimb.ClimbRequest{Starts: starts, Config: c.cfg})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if f.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"batch_id":      summary.BatchID,
			"artifacts_dir": summary.ArtifactsDir,
			"summary":       summary.Summary,
		})
	}

	s := summary.Summary
	fmt.Fprintf(out, "batch_id=%s runs=%s converged=%d budget_exhausted=%d failed=%d took=%s\n",
		summary.BatchID, humanize.Comma(int64(s.Runs)), s.Converged, s.BudgetExhausted, s.Failed,
		time.Since(began).Round(time.Millisecond))
	fmt.Fprintf(out, "best=%.6f sequence=%s mean_gain=%.6f mean_steps=%.2f\n",
		s.BestScore, s.BestSequence, s.MeanGain, s.MeanSteps)
	for _, r := range summary.Results {
		if r.Failed() {
			fmt.Fprintf(out, "run %d failed: %s\n", r.Index, r.Error)
		}
	}
	fmt.Fprintf(out, "artifacts=%s\n", summary.ArtifactsDir)
	return nil
}
