package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/cassiomorais/gateway-reconciler/internal/application/reconcile"
	"github.com/cassiomorais/gateway-reconciler/internal/bootstrap"
	infraBilling "github.com/cassiomorais/gateway-reconciler/internal/infrastructure/billing"
	infraRedis "github.com/cassiomorais/gateway-reconciler/internal/infrastructure/redis"
	"github.com/cassiomorais/gateway-reconciler/internal/repository/postgres"
	"github.com/cassiomorais/gateway-reconciler/internal/worker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "gateway-reconciler-worker", "gateway_reconciler_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Store and outbound ports ---
	store := postgres.NewGatewayStore(app.Pool)
	billingClient := infraBilling.NewClient(app.Config.Billing, app.Logger).WithMetrics(app.Metrics)
	outcomeProducer := infraRedis.NewOutcomeProducer(app.Redis)

	// --- Reconciliation engine (shared with the API, rebuilt here) ---
	engine := reconcile.NewEngine(
		store,
		billingClient,
		outcomeProducer,
		app.Config.Gateway.PluginName,
		app.Logger,
	).WithMetrics(app.Metrics)

	// --- Orphan sweeper ---
	sweeperCfg := app.Config.Sweeper
	lock := infraRedis.NewDistributedLock(app.Redis, "sweeper", sweeperCfg.LockTTL)
	checkpoints := infraRedis.NewCheckpointStore(app.Redis, sweeperCfg.CheckpointKey)

	sweeper := worker.NewSweeper(store, engine, lock, checkpoints, worker.Config{
		Interval:  sweeperCfg.Interval,
		BatchSize: sweeperCfg.BatchSize,
		Lookback:  sweeperCfg.Lookback,
	}, app.Metrics, app.Logger)

	app.Logger.Info().
		Dur("interval", sweeperCfg.Interval).
		Int("batch_size", sweeperCfg.BatchSize).
		Msg("Worker started, sweeping for orphan notifications...")

	// Signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Orphan sweeper loop.
	g.Go(func() error {
		return sweeper.Run(gCtx)
	})

	// 2. Wait for shutdown signal.
	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
