// Package cli implements the idsearch command line.
package cli

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"idsearch/internal/blob"
	"idsearch/internal/core"
	"idsearch/internal/platform/config"
	"idsearch/internal/platform/logging"
	"idsearch/internal/report"
)

// app holds the resources opened for a single command invocation.
type app struct {
	flags struct {
		config   string
		dbURL    string
		logLevel string
	}
	cfg       config.Config
	storage   core.StorageConfig
	logger    zerolog.Logger
	metrics   http.Handler
	store     core.PersistentStore
	svc       *core.Service
	publisher *report.Publisher
	closers   []io.Closer
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{File: a.flags.config})
	if err != nil {
		return err
	}
	if a.flags.dbURL != "" {
		cfg.DatabaseURL = a.flags.dbURL
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	a.cfg = cfg

	if a.logger, err = logging.New(cfg.Log, cmd.ErrOrStderr()); err != nil {
		return err
	}
	if cfg.File != "" {
		a.logger.Debug().Str("file", cfg.File).Msg("config loaded")
	}

	if a.storage, err = cfg.StorageConfig(); err != nil {
		return err
	}
	a.store, err = core.OpenPersistentStore(a.storage, core.NewDefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open %s store: %w", a.storage.Driver, err)
	}
	if c, ok := a.store.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	recorder, err := a.openMetrics()
	if err != nil {
		return err
	}
	a.svc = core.NewService(a.store,
		core.WithLogger(a.logger),
		core.WithMetrics(recorder),
	)

	artifacts, err := blob.Open(cmd.Context(), cfg.Blob)
	if err != nil {
		return fmt.Errorf("open %s blob store: %w", cfg.Blob.Driver, err)
	}
	a.publisher = report.NewPublisher(artifacts, report.WithLogger(a.logger))
	return nil
}

// expvarName is the expvar variable holding operation metrics.
const expvarName = "idsearch_operations"

func (a *app) openMetrics() (core.MetricsRecorder, error) {
	switch a.cfg.Metrics.Exporter {
	case "", config.MetricsPrometheus:
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		return core.NewPrometheusMetricsRecorder(reg), nil
	case config.MetricsExpvar:
		name := expvarName
		if expvar.Get(name) != nil {
			// already published by an earlier command in this process
			name = ""
		}
		a.metrics = expvar.Handler()
		return core.NewExpvarMetricsRecorder(name), nil
	default:
		return nil, fmt.Errorf("unknown metrics exporter %q", a.cfg.Metrics.Exporter)
	}
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	root, _ := newRootCommand()
	return root
}

func newRootCommand() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:           "idsearch",
		Short:         "Look up and manage participant identifiers",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return a.open(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.config, "config", "", "config file (default ./config.yaml)")
	pf.StringVar(&a.flags.dbURL, "db-url", "", "database URL, e.g. sqlite:///db/idsearch.db or postgres://host/db")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newInitDBCommand(a),
		newLoadDataCommand(a),
		newCentersCommand(a),
		newLookupCommand(a),
		newBatchCommand(a),
		newAddAliasCommand(a),
		newMakePrimaryCommand(a),
		newServeCommand(a),
	)
	return root, a
}

// Execute runs the command line with args. Resources are released even when
// the command fails.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root, a := newRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	return errors.Join(err, a.close())
}
