// Package cli implements the mobminer command line.
package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jengzang/mobility-backend-go/internal/config"
	"github.com/jengzang/mobility-backend-go/internal/database"
	"github.com/jengzang/mobility-backend-go/internal/logging"
)

var (
	dbPath   string
	logLevel string
	jsonLogs bool
)

var rootCmd = &cobra.Command{
	Use:           "mobminer",
	Short:         "Mine movement circles and compare mobility graphs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits non-zero on error. SIGINT and
// SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the sqlite database (overrides DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "Log as JSON")
}

// env is what every command needs: configuration, a logger and a migrated
// database
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
}

func (e *env) Close() {
	e.db.Close()
	_ = e.logger.Sync()
}

// openEnv loads the configuration, applies the persistent flags and opens
// the database
func openEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if jsonLogs {
		cfg.LogFormat = "json"
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(database.Config{Path: cfg.DBPath, Logger: logger})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: db}, nil
}

// openInput opens path for reading, or stdin for "-"
func openInput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
