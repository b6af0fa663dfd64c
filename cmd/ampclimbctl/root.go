package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"ampclimb/internal/config"
	"ampclimb/internal/logging"
	"ampclimb/pkg/ampclimb"
)

// cli carries state shared by every subcommand once the root pre-run has
// loaded configuration.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	configPath   string
	logLevel     string
	logJSON      bool
	metricsAddr  string
	artifactsDir string
	exportsDir   string
	storeKind    string
	dbPath       string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "ampclimbctl",
		Short:         "Greedy hill climbing over peptide sequences",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "YAML configuration file")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.BoolVar(&c.logJSON, "log-json", false, "emit logs as JSON")
	pf.StringVar(&c.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	pf.StringVar(&c.artifactsDir, "artifacts-dir", "", "directory for batch artifacts (default \"runs\")")
	pf.StringVar(&c.exportsDir, "exports-dir", "exports", "default export destination")
	pf.StringVar(&c.storeKind, "store", "", "store backend: memory|sqlite")
	pf.StringVar(&c.dbPath, "db", "", "sqlite database path")

	root.AddCommand(
		newClimbCmd(c),
		newNeighboursCmd(c),
		newCompletionsCmd(c),
		newToFASTACmd(c),
		newImportTSVCmd(c),
		newRunsCmd(c),
		newShowCmd(c),
		newExportCmd(c),
		newDeleteCmd(c),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = c.logJSON
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = c.metricsAddr
	}
	if flags.Changed("artifacts-dir") {
		cfg.ArtifactsDir = c.artifactsDir
	}
	if flags.Changed("store") {
		cfg.Store.Kind = c.storeKind
	}
	if flags.Changed("db") {
		cfg.Store.Path = c.dbPath
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logging.New(logging.Config{Level: level, JSON: cfg.LogJSON, Writer: c.stderr, Service: "ampclimbctl"})

	if cfg.MetricsAddr != "" {
		if err := serveMetrics(cmd.Context(), cfg.MetricsAddr, c.logger); err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) client() (*ampclimb.Client, error) {
	return ampclimb.New(ampclimb.Options{
		StoreKind:    c.cfg.Store.Kind,
		DBPath:       c.cfg.Store.Path,
		ArtifactsDir: c.cfg.ArtifactsDir,
		ExportsDir:   c.exportsDir,
		Logger:       c.logger,
	})
}

// serveMetrics exposes /metrics until ctx is done. The listener is bound
// before returning so a bad address fails the command up front.
func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())
	return nil
}
