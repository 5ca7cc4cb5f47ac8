// resolvectl is the operator CLI for the record resolution engine. It can
// resolve a single term, run a batch of terms, and trigger reconciliation
// pulls either inline or through the Temporal worker.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wareline/resolve-core/internal/batch"
	"github.com/wareline/resolve-core/internal/cache"
	"github.com/wareline/resolve-core/internal/config"
	"github.com/wareline/resolve-core/internal/connector/warehouse"
	"github.com/wareline/resolve-core/internal/planner"
	"github.com/wareline/resolve-core/internal/record"
	"github.com/wareline/resolve-core/internal/resolution"
	"github.com/wareline/resolve-core/internal/syncrun"
	"github.com/wareline/resolve-core/internal/workflows"
)

var (
	flagConfig     string
	flagStore      string
	flagDirections []string
	flagDays       int
	flagFrom       string
	flagTo         string
	flagTemporal   bool
	flagVerbose    bool
)

func main() {
	// Missing .env is fine; environment variables may come from anywhere.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "resolvectl",
		Short:         "Federated warehouse record resolution",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	searchCmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Resolve one identifier across the cache and all stores",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().StringVar(&flagStore, "store", "", "restrict the search to one store by name")
	searchCmd.Flags().StringSliceVar(&flagDirections, "direction", nil, "directions to search (outbound, inbound)")

	batchCmd := &cobra.Command{
		Use:   "batch <term>...",
		Short: "Resolve a list of identifiers sequentially",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBatch,
	}
	batchCmd.Flags().StringVar(&flagStore, "store", "", "restrict the search to one store by name")
	batchCmd.Flags().StringSliceVar(&flagDirections, "direction", nil, "directions to search (outbound, inbound)")

	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull a date window from every store into the local cache",
		Args:  cobra.NoArgs,
		RunE:  runSync,
	}
	syncCmd.Flags().IntVar(&flagDays, "days", 1, "window size in days ending now")
	syncCmd.Flags().StringVar(&flagFrom, "from", "", "explicit window start (RFC 3339)")
	syncCmd.Flags().StringVar(&flagTo, "to", "", "explicit window end (RFC 3339)")
	syncCmd.Flags().BoolVar(&flagTemporal, "via-temporal", false, "run the pull through the Temporal worker")

	root.AddCommand(searchCmd, batchCmd, syncCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// =============================================================================
// WIRING
// =============================================================================

type app struct {
	cfg     *config.Config
	log     *zap.Logger
	store   cache.DocumentStore
	gateway *cache.Gateway
	engine  *resolution.Engine
}

func newApp() (*app, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	log, err := newLogger()
	if err != nil {
		return nil, err
	}

	var store cache.DocumentStore
	if cfg.DatabaseURL != "" {
		store, err = cache.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open document store: %w", err)
		}
	} else {
		log.Warn("no database configured, using in-memory cache")
		store = cache.NewMemoryStore()
	}

	gateway := cache.NewGateway(store)
	client := warehouse.NewClient(cfg.BaseURL, log)
	pl := planner.New(client, cfg.WarehouseStores(), log)

	return &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		gateway: gateway,
		engine:  resolution.NewEngine(gateway, pl),
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("closing document store", zap.Error(err))
	}
	_ = a.log.Sync()
}

func newLogger() (*zap.Logger, error) {
	if flagVerbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// drainEvents prints every progress line from a resolution stream and
// returns the terminal result, or nil when the stream closed without one
// (cancellation).
func drainEvents(events <-chan resolution.ProgressEvent, print func(string)) *resolution.Result {
	var result *resolution.Result
	for ev := range events {
		switch ev := ev.(type) {
		case resolution.LogEvent:
			print(ev.Line)
		case resolution.ResultEvent:
			result = ev.Result
		}
	}
	return result
}

func parseDirections(values []string) ([]record.Direction, error) {
	dirs := make([]record.Direction, 0, len(values))
	for _, v := range values {
		dir := record.Direction(strings.ToLower(strings.TrimSpace(v)))
		if !dir.Valid() {
			return nil, fmt.Errorf("unknown direction %q (use outbound or inbound)", v)
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

// =============================================================================
// COMMANDS
// =============================================================================

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	dirs, err := parseDirections(flagDirections)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	events := a.engine.Resolve(ctx, resolution.SearchRequest{
		Term:       args[0],
		Store:      flagStore,
		Directions: dirs,
	})

	result := drainEvents(events, func(line string) {
		fmt.Println(line)
	})

	switch {
	case result == nil:
		return fmt.Errorf("search cancelled")
	case result.Err != "":
		return fmt.Errorf("%s", result.Err)
	case result.Primary == nil:
		fmt.Println("no record found")
		return nil
	}

	printRecord("record", result.Primary)
	if result.Related != nil {
		printRecord("related", result.Related)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	dirs, err := parseDirections(flagDirections)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	report := batch.New(a.engine).Run(ctx, batch.Request{
		Terms:      args,
		Store:      flagStore,
		Directions: dirs,
	}, func(ev resolution.ProgressEvent) {
		if log, ok := ev.(resolution.LogEvent); ok {
			fmt.Println(log.Line)
		}
	})

	if report.Err != "" {
		return fmt.Errorf("%s", report.Err)
	}

	fmt.Printf("resolved %d, related %d, not found %d\n",
		len(report.Results), len(report.Related), len(report.NotFound))
	for _, rec := range report.Results {
		printRecord("record", rec)
	}
	for _, rec := range report.Related {
		printRecord("related", rec)
	}
	for _, term := range report.NotFound {
		fmt.Printf("not found: %s\n", term)
	}
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext()
	defer cancel()

	input := workflows.SyncWindowInput{Days: flagDays, From: flagFrom, To: flagTo}

	var report *syncrun.Report
	if flagTemporal {
		tc, err := workflows.NewClient(a.cfg.Temporal)
		if err != nil {
			return err
		}
		defer tc.Close()

		report, err = tc.TriggerSyncWindow(ctx, input)
		if err != nil {
			return err
		}
	} else {
		window, err := workflows.ResolveWindow(input)
		if err != nil {
			return err
		}
		client := warehouse.NewClient(a.cfg.BaseURL, a.log)
		rec := syncrun.New(client, a.cfg.WarehouseStores(), a.gateway, a.log)
		report = rec.Run(ctx, window)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if !report.Success {
		return fmt.Errorf("sync finished with errors")
	}
	return nil
}

func printRecord(label string, rec *record.Record) {
	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		fmt.Printf("%s: %v\n", label, rec)
		return
	}
	fmt.Printf("%s:\n%s\n", label, out)
}
