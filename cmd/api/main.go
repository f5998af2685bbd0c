package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cassiomorais/gateway-reconciler/internal/application/reconcile"
	"github.com/cassiomorais/gateway-reconciler/internal/bootstrap"
	"github.com/cassiomorais/gateway-reconciler/internal/controller"
	infraBilling "github.com/cassiomorais/gateway-reconciler/internal/infrastructure/billing"
	infraRedis "github.com/cassiomorais/gateway-reconciler/internal/infrastructure/redis"
	"github.com/cassiomorais/gateway-reconciler/internal/repository/postgres"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "gateway-reconciler-api", "gateway_reconciler")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	// --- Store and outbound ports ---
	store := postgres.NewGatewayStore(app.Pool)
	billingClient := infraBilling.NewClient(app.Config.Billing, app.Logger).WithMetrics(app.Metrics)
	outcomeProducer := infraRedis.NewOutcomeProducer(app.Redis)

	// --- Reconciliation engine ---
	engine := reconcile.NewEngine(
		store,
		billingClient,
		outcomeProducer,
		app.Config.Gateway.PluginName,
		app.Logger,
	).WithMetrics(app.Metrics)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:        app.Pool,
		RedisClient: app.Redis,
		Processor:   engine,
		Metrics:     app.Metrics,
		CORSConfig:  app.Config.Server.CORS,
		Logger:      app.Logger,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
