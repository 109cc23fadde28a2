package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"fluxcore/internal/blob"
	"fluxcore/internal/catalog"
	"fluxcore/internal/config"
	"fluxcore/internal/core"
	"fluxcore/pkg/domain"
)

// app carries the resources shared by every subcommand. It is populated by
// the root command's PersistentPreRunE.
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)

	configPath  string
	envFile     string
	logLevel    string
	metricsFile string
	trace       bool

	cfg      config.Config
	logger   *slog.Logger
	docs     blob.Store
	catalog  domain.ModelCatalog
	expvar   *core.ExpvarMetricsRecorder
	registry *prometheus.Registry
	// serviceOpts builds svc; summary derives services with extra collaborators from it.
	serviceOpts []core.Option
	svc         *core.Service
}

// newRootCommand builds the command tree. The returned cleanup releases the
// catalog and flushes metrics; it must run after Execute, whatever its result.
func newRootCommand(stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) (*cobra.Command, func() error) {
	a := &app{stdout: stdout, stderr: stderr, lookupEnv: lookupEnv}
	root := &cobra.Command{
		Use:   "fluxsummary",
		Short: "Summarise metabolite fluxes of constraint-based models",
		Long: `fluxsummary reports which reactions produce and consume a metabolite in a
flux distribution, optionally with flux variability ranges. Models, solutions
and variability results are read from a document store or a model catalog.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd.Context()) },
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	flags.StringVar(&a.envFile, "env-file", config.DefaultEnvFile, "dotenv file with FLUXCORE_* overrides")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides configuration")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file on exit")
	flags.BoolVar(&a.trace, "trace", false, "emit JSON trace spans on stderr")

	root.AddCommand(newSummaryCommand(a), newImportCommand(a), newListCommand(a))
	return root, a.teardown
}

func (a *app) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Loader{EnvFile: a.envFile, LookupEnv: a.lookupEnv}.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))

	a.docs, err = blob.Open(ctx, cfg.BlobConfig())
	if err != nil {
		return fmt.Errorf("open documents: %w", err)
	}
	a.catalog, err = catalog.Open(ctx, cfg.CatalogConfig())
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}

	opts := []core.Option{
		core.WithCatalog(a.catalog),
		core.WithLogger(a.logger),
		core.WithAuditRecorder(auditLog{logger: a.logger}),
	}
	metrics, err := a.metricsRecorder()
	if err != nil {
		return err
	}
	if metrics != nil {
		opts = append(opts, core.WithMetricsRecorder(metrics))
	}
	if a.trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(a.stderr)))
	}
	a.serviceOpts = opts
	a.svc = core.NewService(opts...)
	a.logger.Debug("configured", "catalog", cfg.Catalog.Driver, "documents", a.docs.Driver(), "metrics", cfg.Metrics)
	return nil
}

func (a *app) metricsRecorder() (core.MetricsRecorder, error) {
	if a.metricsFile != "" && a.cfg.Metrics != config.MetricsPrometheus {
		return nil, errors.New("--metrics-file requires the prometheus metrics exporter")
	}
	switch a.cfg.Metrics {
	case config.MetricsExpvar:
		a.expvar = core.NewExpvarMetricsRecorder("")
		return a.expvar, nil
	case config.MetricsPrometheus:
		a.registry = prometheus.NewRegistry()
		return core.NewPrometheusMetricsRecorder(a.registry)
	}
	return nil, nil
}

func (a *app) teardown() error {
	var errs []error
	if a.expvar != nil && a.logger != nil {
		if b, err := json.Marshal(a.expvar.Snapshot()); err == nil {
			a.logger.Debug("metrics", "expvar", a.expvar.Name(), "snapshot", string(b))
		}
	}
	if a.registry != nil && a.metricsFile != "" {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close catalog: %w", err))
		}
		a.catalog = nil
	}
	return errors.Join(errs...)
}

// auditLog writes catalog changes to the application log.
type auditLog struct{ logger *slog.Logger }

func (l auditLog) Record(ctx context.Context, e core.AuditEntry) {
	attrs := []any{"operation", e.Operation, "entity", e.Entity, "id", e.EntityID, "status", string(e.Status)}
	if e.Error != "" {
		l.logger.WarnContext(ctx, "audit", append(attrs, "error", e.Error)...)
		return
	}
	l.logger.InfoContext(ctx, "audit", attrs...)
}
