package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/piwi3910/cabinetcalc/internal/logging"
	"github.com/piwi3910/cabinetcalc/internal/model"
	"github.com/piwi3910/cabinetcalc/internal/project"
	"github.com/piwi3910/cabinetcalc/internal/service"
	"github.com/piwi3910/cabinetcalc/internal/store/gormstore"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath  string
	envFile     string
	dbDriver    string
	dsn         string
	logLevel    string
	logFormat   string
	metricsAddr string
	jsonOutput  bool
}

// app is the wiring built before each subcommand runs.
type app struct {
	cfg      model.AppConfig
	log      zerolog.Logger
	db       *gorm.DB
	store    *gormstore.Store
	svc      *service.Service
	registry *prometheus.Registry
	metrics  *http.Server
	json     bool
}

func newRootCmd() (*cobra.Command, *app) {
	flags := &globalFlags{}
	a := &app{}

	root := &cobra.Command{
		Use:           "cabinetcalc",
		Short:         "Cabinet depth calculator with calculation audits",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", project.DefaultConfigPath(), "engine config file (JSON)")
	pf.StringVar(&flags.envFile, "env-file", ".env", "dotenv file read before the config")
	pf.StringVar(&flags.dbDriver, "db-driver", "", "database driver: sqlite, postgres or mysql")
	pf.StringVar(&flags.dsn, "dsn", "", "database DSN (SQLite file path for sqlite)")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: trace, debug, info, warn or error")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: console or json")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while the command runs")
	pf.BoolVar(&flags.jsonOutput, "json", false, "print results as JSON")

	root.AddCommand(
		newInitDBCmd(a),
		newImportTemplatesCmd(a),
		newExportTemplatesCmd(a),
		newTemplatesCmd(a),
		newImportScheduleCmd(a),
		newRecalcCabinetCmd(a),
		newRecalcSubtreeCmd(a),
		newResolveCmd(a),
		newAuditsCmd(a),
		newOverrideCmd(a),
		newReviewCmd(a),
		newReportCmd(a),
		newBackupCmd(a),
	)
	return root, a
}

// setup loads config, then builds the logger, database, store and service.
func (a *app) setup(cmd *cobra.Command, flags *globalFlags) error {
	cfg, err := project.LoadConfig(flags.configPath, flags.envFile)
	if err != nil {
		return err
	}
	f := cmd.Flags()
	if f.Changed("db-driver") {
		cfg.DBDriver = flags.dbDriver
	}
	if f.Changed("dsn") {
		cfg.DBDSN = flags.dsn
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = flags.logFormat
	}
	if f.Changed("metrics-addr") {
		cfg.MetricsAddr = flags.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.json = flags.jsonOutput

	a.log, err = logging.New(cmd.ErrOrStderr(), cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	a.log = a.log.With().Str("command", cmd.Name()).Logger()

	a.db, err = gormstore.Open(cfg.DBDriver, cfg.DBDSN, a.log)
	if err != nil {
		return err
	}
	a.store = gormstore.New(a.db)

	a.registry = prometheus.NewRegistry()
	a.svc, err = service.New(a.store, cfg, a.log, a.registry)
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}
	return nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	a.metrics = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	a.log.Info().Str("addr", addr).Msg("serving metrics")
}

// close stops the metrics server and closes the database. It is safe to
// call when setup never ran.
func (a *app) close(ctx context.Context) error {
	if a.metrics != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(shutdownCtx)
		a.metrics = nil
	}
	if a.db == nil {
		return nil
	}
	sqlDB, err := a.db.DB()
	a.db = nil
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}
