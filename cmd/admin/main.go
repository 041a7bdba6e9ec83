package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"task-manager-api/internal/core/config"
	"task-manager-api/internal/core/logger"
	"task-manager-api/internal/repo"
	"task-manager-api/internal/service"
)

const usage = `usage: admin [flags] <command>

commands:
  backfill-priorities   rewrite legacy numeric task priorities (1/2/3) to low/medium/high

flags:
`

func main() {
	fs := pflag.NewFlagSet("admin", pflag.ExitOnError)
	configPath := fs.StringP("config", "c", "", "config file (default $CONFIG_PATH or ./configs/config.local.yaml)")
	timeout := fs.Duration("timeout", 5*time.Minute, "overall deadline for the command")
	fs.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		fs.PrintDefaults()
	}
	_ = fs.Parse(os.Args[1:])
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch cmd := fs.Arg(0); cmd {
	case "backfill-priorities":
		if err := backfill(ctx, cfg, log); err != nil {
			log.Error("backfill failed", zap.Error(err))
			cleanup()
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		fs.Usage()
		os.Exit(2)
	}
}

func backfill(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.DB.DSN == "" {
		return errors.New("db.dsn (MONGO_URI / DATABASE_URL) is required")
	}
	store, err := repo.Open(ctx, cfg.DB, log)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close(context.Background()) }()
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	n, err := service.BackfillPriorities(ctx, store.Tasks, log)
	if err != nil {
		return err
	}
	log.Info("priorities updated successfully", zap.Int64("tasks", n))
	return nil
}
