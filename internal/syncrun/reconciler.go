// Package syncrun pulls every record changed in a date window from every
// configured store and reconciles it into the local cache.
package syncrun

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wareline/resolve-core/internal/cache"
	"github.com/wareline/resolve-core/internal/connector/warehouse"
	"github.com/wareline/resolve-core/internal/metrics"
	"github.com/wareline/resolve-core/internal/record"
)

// DefaultPageSize is the bulk-list page size for reconciliation pulls.
const DefaultPageSize = 500

// upsertWorkers bounds per-batch record concurrency.
const upsertWorkers = 8

// Window bounds one reconciliation run.
type Window struct {
	From time.Time
	To   time.Time
}

// WindowFromDays builds a window covering the last n days up to now.
func WindowFromDays(days int, now time.Time) Window {
	now = now.UTC()
	return Window{From: now.AddDate(0, 0, -days), To: now}
}

// Report summarizes one reconciliation run. A run with per-unit errors is
// still a success-with-errors, never all-or-nothing.
type Report struct {
	RunID   string   `json:"runId"`
	Success bool     `json:"success"`
	Created int      `json:"recordsCreated"`
	Updated int      `json:"recordsUpdated"`
	Errors  []string `json:"errors,omitempty"`
	Message string   `json:"message"`
}

// Reconciler runs direction-aware bulk pulls for every configured store.
type Reconciler struct {
	client   *warehouse.Client
	stores   []warehouse.Store
	gateway  *cache.Gateway
	log      *zap.Logger
	pageSize int
}

// New creates a reconciler.
func New(client *warehouse.Client, stores []warehouse.Store, gateway *cache.Gateway, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		client:   client,
		stores:   stores,
		gateway:  gateway,
		log:      log,
		pageSize: DefaultPageSize,
	}
}

// Run reconciles the window across all stores. Store×direction batches fan
// out concurrently: they write disjoint identities, and every write is a
// merge-upsert, so no coordination is needed. One store's outage must not
// block the others; failures land in the error list.
func (r *Reconciler) Run(ctx context.Context, window Window) *Report {
	runID := uuid.NewString()
	start := time.Now()
	r.log.Info("reconciliation started",
		zap.String("runId", runID),
		zap.Time("from", window.From),
		zap.Time("to", window.To))

	var (
		created, updated atomic.Int64
		mu               sync.Mutex
		errs             []string
	)
	collect := func(unit string, err error) {
		metrics.SyncErrorsTotal.Inc()
		mu.Lock()
		errs = append(errs, fmt.Sprintf("%s: %v", unit, err))
		mu.Unlock()
	}

	var g errgroup.Group
	for _, store := range r.stores {
		if !store.HasCredentials() {
			r.log.Info("skipping store without credentials", zap.String("store", store.Name))
			continue
		}
		for _, dir := range []record.Direction{record.Outbound, record.Inbound} {
			store, dir := store, dir
			g.Go(func() error {
				unit := fmt.Sprintf("%s/%s", store.Name, dir)
				n, u, err := r.reconcileBatch(ctx, store, dir, window)
				created.Add(n)
				updated.Add(u)
				if err != nil {
					r.log.Warn("batch failed", zap.String("unit", unit), zap.Error(err))
					collect(unit, err)
				}
				return nil
			})
		}
	}
	g.Wait()

	report := &Report{
		RunID:   runID,
		Success: ctx.Err() == nil,
		Created: int(created.Load()),
		Updated: int(updated.Load()),
		Errors:  errs,
	}
	report.Message = fmt.Sprintf("reconciled %d created, %d updated, %d errors in %s",
		report.Created, report.Updated, len(report.Errors), time.Since(start).Round(time.Millisecond))
	r.log.Info("reconciliation finished", zap.String("runId", runID), zap.String("message", report.Message))
	return report
}

// reconcileBatch pulls one store/direction and upserts every returned
// record, concurrently within the batch.
func (r *Reconciler) reconcileBatch(ctx context.Context, store warehouse.Store, dir record.Direction, window Window) (created, updated int64, err error) {
	items, err := r.client.List(ctx, store, dir, window.From, window.To, r.pageSize)
	if err != nil {
		return 0, 0, fmt.Errorf("bulk list: %w", err)
	}

	var (
		c, u     atomic.Int64
		mu       sync.Mutex
		itemErrs []error
	)

	var g errgroup.Group
	g.SetLimit(upsertWorkers)
	for _, payload := range items {
		payload := payload
		g.Go(func() error {
			rec := record.Normalize(payload, dir, store.Name)
			if rec.ID == "" {
				return nil
			}

			existing, err := r.gateway.GetByID(ctx, dir, rec.ID)
			if err != nil {
				mu.Lock()
				itemErrs = append(itemErrs, fmt.Errorf("%s: %w", rec.ID, err))
				mu.Unlock()
				return nil
			}
			if err := r.gateway.Put(ctx, rec); err != nil {
				mu.Lock()
				itemErrs = append(itemErrs, fmt.Errorf("%s: %w", rec.ID, err))
				mu.Unlock()
				return nil
			}

			if existing == nil {
				c.Add(1)
				metrics.SyncRecordsCreatedTotal.Inc()
			} else {
				u.Add(1)
				metrics.SyncRecordsUpdatedTotal.Inc()
			}
			return nil
		})
	}
	g.Wait()

	if len(itemErrs) > 0 {
		return c.Load(), u.Load(), fmt.Errorf("%d of %d records failed, first: %w", len(itemErrs), len(items), itemErrs[0])
	}
	return c.Load(), u.Load(), nil
}
