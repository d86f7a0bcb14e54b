package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"ductflow/internal/config"
	"ductflow/internal/domain"
	"ductflow/internal/repository/sqlite"
	"ductflow/internal/service"
)

// app carries state shared by every subcommand once the config is loaded
type app struct {
	configPath string
	dbPath     string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "ductflow",
		Short: "Sum terminal airflow across HVAC duct networks",
		Long: `ductflow stores duct network documents and computes the total airflow
delivered by every terminal reachable from a chosen duct segment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: discovered)")
	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newComputeCmd(a),
		newImportCmd(a),
		newNetworksCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// load resolves config with flags taking precedence, then builds the logger
func (a *app) load(cmd *cobra.Command) error {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if a.configPath != "" {
		cfg, path, err = config.LoadFromPath(a.configPath)
		if err == nil {
			cfg.ApplyEnv()
		}
	} else {
		cfg, path, err = config.Load()
	}
	if err != nil {
		return err
	}

	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = cfg.Logging.NewLogger(cmd.ErrOrStderr())
	slog.SetDefault(a.logger)
	if path != "" {
		a.logger.Debug("config loaded", "path", path)
	}
	a.logger.Debug("effective config", "summary", cfg.Summary())
	return nil
}

// airflowOptions maps traversal config onto the service options
func (a *app) airflowOptions() service.AirflowOptions {
	return service.AirflowOptions{
		StartCategories: a.cfg.Traversal.StartCategories,
		MaxExpansions:   a.cfg.Traversal.MaxExpansions,
	}
}

func (a *app) classifier() *domain.Classifier {
	return a.cfg.Classifier()
}

// openServices opens the database and wires the services on top of it. The
// returned close function releases the database.
func (a *app) openServices(bus *service.EventBus) (*service.NetworkService, *service.AirflowService, func() error, error) {
	repo, err := sqlite.New(a.cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database %s: %w", a.cfg.Database.Path, err)
	}
	a.logger.Debug("database opened", "path", a.cfg.Database.Path)

	networks := service.NewNetworkService(repo, bus, a.classifier(), a.logger)
	airflowSvc := service.NewAirflowService(networks, bus, a.airflowOptions(), a.logger)
	return networks, airflowSvc, repo.Close, nil
}
