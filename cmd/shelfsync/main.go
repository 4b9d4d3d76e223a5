// Command shelfsync reconciles articles, highlights, books and notes from
// reading services into one local library.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/shelfsync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/shelfsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/shelfsync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/shelfsync/internal/adapters/driving/cli"
	"github.com/custodia-labs/shelfsync/internal/config"
	"github.com/custodia-labs/shelfsync/internal/core/ports/driven"
	"github.com/custodia-labs/shelfsync/internal/core/services"
	"github.com/custodia-labs/shelfsync/internal/logger"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

const httpTimeout = 60 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx, bootstrap, version); err != nil {
		stop()
		os.Exit(1)
	}
}

// bootstrap wires adapters into services for one command invocation.
func bootstrap(_ context.Context, opts cli.Options) (*cli.Services, func(), error) {
	if _, err := config.LoadEnvFile(opts.EnvFile); err != nil {
		return nil, nil, err
	}

	dir := opts.DataDir
	if dir == "" {
		var err error
		if dir, err = file.DefaultDir(); err != nil {
			return nil, nil, err
		}
	}
	store, err := file.NewConfigStore(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening settings: %w", err)
	}
	if opts.ConfigOnly {
		return &cli.Services{ConfigStore: store}, nil, nil
	}

	cfg, err := config.Load(store, dir)
	if err != nil {
		return nil, nil, err
	}
	if opts.DataDir != "" {
		cfg.DataDir = opts.DataDir
	}

	var (
		records   driven.RecordStore
		schedules driven.SchedulerStore
		cleanup   func()
	)
	if opts.Memory {
		logger.Info("using in-memory storage; nothing will be saved")
		records = memory.NewRecordStore()
		schedules = memory.NewSchedulerStore()
	} else {
		db, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		logger.Debug("database %s", cfg.DatabasePath())
		records = db.RecordStore()
		schedules = db.SchedulerStore()
		cleanup = func() {
			if err := db.Close(); err != nil {
				logger.Warn("closing database: %v", err)
			}
		}
	}

	sources, err := cfg.BuildSources(&http.Client{Timeout: httpTimeout})
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, err
	}

	reconcile := services.NewReconcileService(records, sources, cfg.Limits)
	return &cli.Services{
		Reconcile:   reconcile,
		Records:     services.NewRecordService(records),
		Scheduler:   services.NewScheduler(cfg.TaskSchedule(), schedules, reconcile),
		ConfigStore: store,
		Config:      cfg,
	}, cleanup, nil
}
