package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"course-eligibility/internal/catalog"
	"course-eligibility/internal/catalog/cache"
	"course-eligibility/internal/catalog/postgres"
	"course-eligibility/internal/catalog/sqlite"
	"course-eligibility/internal/config"
	"course-eligibility/internal/sftpclient"
)

// app holds what every subcommand shares once the root has run.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "KCSE programme eligibility engine",
		Long: `Eligibility decides which degree, diploma, certificate, medical training
and artisan programmes a KCSE candidate qualifies for.

Settings come from an optional YAML file (--config) overridden by
environment variables (DATABASE_URL, CATALOG_BACKEND, REDIS_ADDR, ...).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")

	cmd.AddCommand(
		serveCmd(a),
		checkCmd(a),
		importCmd(a),
		migrateCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(a.logger)
	return nil
}

// openStore connects the configured catalog backend.
func (a *app) openStore(ctx context.Context) (catalog.Store, error) {
	switch a.cfg.Catalog.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, a.cfg.Catalog.DatabaseURL, a.logger)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.BackendSQLite:
		store, err := sqlite.Open(a.cfg.Catalog.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown catalog backend %q", a.cfg.Catalog.Backend)
}

// readCatalog puts the redis cache in front of store when one is
// configured. An unreachable redis is logged and the store is used directly.
func (a *app) readCatalog(ctx context.Context, store catalog.Store) (catalog.Catalog, func()) {
	addr := a.cfg.Cache.RedisAddr
	if addr == "" {
		return store, func() {}
	}
	kv, err := cache.NewRedis(ctx, addr)
	if err != nil {
		a.logger.Warn("catalog cache disabled", "redis_addr", addr, "error", err)
		return store, func() {}
	}
	a.logger.Info("catalog cache enabled", "redis_addr", addr, "ttl", a.cfg.Cache.TTL)
	return cache.New(store, kv, a.cfg.Cache.TTL, a.logger), func() { _ = kv.Close() }
}

func (a *app) sftpConfig() sftpclient.Config {
	s := a.cfg.SFTP
	return sftpclient.Config{
		Host:                  s.Host,
		Port:                  s.Port,
		User:                  s.User,
		Pass:                  s.Pass,
		RemoteDir:             s.Dir,
		KnownHostsFile:        s.KnownHostsFile,
		InsecureIgnoreHostKey: s.InsecureIgnoreHostKey,
	}
}
