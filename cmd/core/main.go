// Package main runs the Stillpoint sync core as a standalone process.
// It wires the durable store, connectivity observer, mutation queue
// processor, and background scheduler together.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/evelynmak/stillpoint/core/internal/config"
	"github.com/evelynmak/stillpoint/core/internal/connectivity"
	"github.com/evelynmak/stillpoint/core/internal/db"
	"github.com/evelynmak/stillpoint/core/internal/insights"
	"github.com/evelynmak/stillpoint/core/internal/logging"
	"github.com/evelynmak/stillpoint/core/internal/remote"
	"github.com/evelynmak/stillpoint/core/internal/store"
	syncpkg "github.com/evelynmak/stillpoint/core/internal/sync"
	"github.com/evelynmak/stillpoint/core/internal/sync/scheduler"
	"github.com/evelynmak/stillpoint/core/internal/telemetry"
)

// Version is set at build time.
var Version = "0.1.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "stillpoint-core: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(os.Stderr, logging.ParseLevel(cfg.Log.Level))
	logging.Info("Stillpoint core starting", map[string]interface{}{
		"version": Version,
	})

	database, err := db.Open(cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := db.NewMigrator(database.DB).Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	st := store.New(database, cfg.Store)

	backend := remote.NewClient(cfg.Remote)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	observer := connectivity.New(cfg.Connectivity, st,
		connectivity.NewStaticSignal(true, "unknown"),
		connectivity.NewHTTPProber(cfg.Connectivity.ProbeURL))

	processor := syncpkg.NewProcessor(cfg.Sync, st, backend, observer)

	// Coming back online is the one transition that triggers a drain
	observer.SetOnlineTrigger(func() {
		if _, err := processor.Drain(ctx); err != nil {
			logging.Debug("Reconnect drain skipped", map[string]interface{}{
				"error": err.Error(),
			})
		}
	})

	sched := scheduler.New(processor, st, &scheduler.Config{
		DrainInterval: cfg.Sync.DrainInterval,
		SweepInterval: cfg.Sync.SweepInterval,
	})
	observer.AddListener(func(state connectivity.State) {
		sched.SetOnlineStatus(state.Online)
	})

	observer.Start(ctx)
	defer observer.Stop()

	sched.Start(ctx)
	defer sched.Stop()

	weekly := insights.NewService(st).Moods(7)
	logging.Info("Stillpoint core ready", map[string]interface{}{
		"status":            observer.StatusMessage(),
		"entries_this_week": weekly.TotalEntries,
	})
	telemetry.TrackEvent("core_started", map[string]interface{}{
		"version": Version,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	logging.Info("Shutting down", map[string]interface{}{
		"signal": sig.String(),
	})
	return telemetry.Shutdown(context.Background())
}
