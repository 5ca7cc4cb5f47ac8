// resolve-worker hosts the Temporal worker that executes scheduled
// reconciliation pulls, and serves Prometheus metrics.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/wareline/resolve-core/internal/cache"
	"github.com/wareline/resolve-core/internal/config"
	"github.com/wareline/resolve-core/internal/connector/warehouse"
	"github.com/wareline/resolve-core/internal/metrics"
	"github.com/wareline/resolve-core/internal/syncrun"
	"github.com/wareline/resolve-core/internal/workflows"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database URL is required for the worker")
	}
	store, err := cache.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer store.Close()

	gateway := cache.NewGateway(store)
	whClient := warehouse.NewClient(cfg.BaseURL, log)
	reconciler := syncrun.New(whClient, cfg.WarehouseStores(), gateway, log)

	metrics.Register()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			log.Error("metrics server stopped", zap.Error(err))
		}
	}()

	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.Address,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("connect to Temporal: %w", err)
	}
	defer tc.Close()

	w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflowWithOptions(workflows.SyncWindowWorkflowFunc, workflow.RegisterOptions{
		Name: workflows.SyncWindowWorkflow,
	})
	w.RegisterActivityWithOptions(workflows.NewActivities(reconciler).RunSyncWindow, activity.RegisterOptions{
		Name: workflows.RunSyncWindowActivity,
	})

	log.Info("worker starting",
		zap.String("taskQueue", cfg.Temporal.TaskQueue),
		zap.String("namespace", cfg.Temporal.Namespace))

	if err := w.Run(worker.InterruptCh()); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	return nil
}
