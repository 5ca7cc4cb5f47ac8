package resolution

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wareline/resolve-core/internal/cache"
	"github.com/wareline/resolve-core/internal/metrics"
	"github.com/wareline/resolve-core/internal/planner"
	"github.com/wareline/resolve-core/internal/record"
)

// Search tier widths in days. Historical covers every plausible order date.
const (
	RecentDays     = 90
	HistoricalDays = 730
)

// relatedIDPrefix marks derived return identifiers.
const relatedIDPrefix = "RET-"

// lookupFields is the fixed ordered list of indexed fields tried against the
// cache after the direct id lookup misses.
var lookupFields = []string{"orderId", "customerName", "trackingNumber", "channelId"}

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the resolution state machine: local lookup, then recent remote,
// then historical remote, then related-record linking and write-through.
type Engine struct {
	gateway *cache.Gateway
	planner *planner.Planner
	now     func() time.Time
}

// NewEngine creates a resolution engine.
func NewEngine(gateway *cache.Gateway, p *planner.Planner) *Engine {
	return &Engine{gateway: gateway, planner: p, now: time.Now}
}

// Resolve runs one resolution and streams its progress. The channel closes
// after the single ResultEvent; if the context is cancelled mid-flight the
// channel closes with no result and the caller must treat the bare close as
// cancellation, not as not-found.
func (e *Engine) Resolve(ctx context.Context, req SearchRequest) <-chan ProgressEvent {
	ch := make(chan ProgressEvent, 16)
	go func() {
		defer close(ch)
		e.Run(ctx, req, func(ev ProgressEvent) {
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		})
	}()
	return ch
}

// Run executes the state machine, delivering events through emit. Exposed so
// the batch orchestrator can interleave its own attribution.
func (e *Engine) Run(ctx context.Context, req SearchRequest, emit func(ProgressEvent)) {
	logf := func(format string, args ...any) {
		emit(LogEvent{Line: fmt.Sprintf(format, args...)})
	}

	finish := func(res *Result) {
		switch {
		case res.Err != "":
			metrics.ResolutionsTotal.WithLabelValues("error").Inc()
		case res.Primary == nil:
			metrics.ResolutionsTotal.WithLabelValues("not_found").Inc()
		default:
			metrics.ResolutionsTotal.WithLabelValues("found").Inc()
		}
		emit(ResultEvent{Result: res})
	}

	// State: LocalLookup.
	logf("local cache: looking up %q", req.Term)
	primary, err := e.localLookup(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// A broken local store is fatal for this resolution, not a miss.
		logf("local cache error: %v", err)
		finish(&Result{Err: fmt.Sprintf("local cache unavailable: %v", err)})
		return
	}

	if primary != nil {
		logf("local cache: hit %s (%s, %s)", primary.ID, primary.Direction, primary.Store)
	} else {
		logf("local cache: miss")

		if !e.planner.HasUsableStores(req.Term, req.Store) {
			logf("no stores with usable credentials configured")
			finish(&Result{Err: fmt.Sprintf("no record found for %q in any configured store", req.Term)})
			return
		}

		// State: RecentRemote.
		primary = e.remoteTier(ctx, req, RecentDays, "recent", logf)
		if ctx.Err() != nil {
			return
		}

		// State: HistoricalRemote.
		if primary == nil {
			primary = e.remoteTier(ctx, req, HistoricalDays, "historical", logf)
			if ctx.Err() != nil {
				return
			}
		}

		if primary == nil {
			logf("exhausted all tiers for %q", req.Term)
			finish(&Result{Err: fmt.Sprintf("no record found for %q in any configured store", req.Term)})
			return
		}

		// State: Persist. Write-through is best-effort: the record was
		// already resolved, a failed cache write must not fail the search.
		if err := e.gateway.Put(ctx, primary); err != nil {
			logf("cache write failed for %s: %v", primary.ID, err)
		} else {
			logf("cached %s", primary.ID)
		}
	}

	// State: ResolveRelated.
	related := e.resolveRelated(ctx, primary, logf)
	if ctx.Err() != nil {
		return
	}

	// State: Done.
	finish(&Result{Primary: primary, Related: related})
}

// localLookup queries the cache by document id and then by each indexed
// field, outbound collection first, honoring the direction filter. Gateway
// errors propagate: remote escalation must not mask a broken local store.
func (e *Engine) localLookup(ctx context.Context, req SearchRequest) (*record.Record, error) {
	dirs := directionsOrDefault(req.Directions)

	for _, dir := range dirs {
		rec, err := e.gateway.GetByID(ctx, dir, req.Term)
		if err != nil || rec != nil {
			return rec, err
		}
	}

	for _, field := range lookupFields {
		for _, dir := range dirs {
			rec, err := e.gateway.FindByField(ctx, dir, field, req.Term)
			if err != nil || rec != nil {
				return rec, err
			}
		}
	}
	return nil, nil
}

// remoteTier runs the planner over one date window. Cancellation surfaces
// only through ctx; every other failure is a miss.
func (e *Engine) remoteTier(ctx context.Context, req SearchRequest, days int, tier string, logf func(string, ...any)) *record.Record {
	if ctx.Err() != nil {
		return nil
	}
	now := e.now().UTC()
	logf("remote search (%s tier, last %d days)", tier, days)
	rec, err := e.planner.Search(ctx, planner.Request{
		Term:       req.Term,
		Store:      req.Store,
		Directions: req.Directions,
		From:       now.AddDate(0, 0, -days),
		To:         now,
	}, func(line string) {
		logf("%s", line)
	})
	if err != nil {
		// The planner only errors on cancellation.
		return nil
	}
	return rec
}

// resolveRelated links an outbound shipment to its return: derive the
// candidate return id, check the inbound cache, then escalate through the
// remote tiers restricted to inbound and unfiltered store. Finding nothing
// is not a failure.
func (e *Engine) resolveRelated(ctx context.Context, primary *record.Record, logf func(string, ...any)) *record.Record {
	if primary == nil || primary.Direction != record.Outbound {
		return nil
	}

	relatedID := RelatedReturnID(primary.ID)
	logf("linking return %s", relatedID)

	related, err := e.gateway.GetByID(ctx, record.Inbound, relatedID)
	if err != nil {
		logf("local cache error during linking: %v", err)
		related = nil
	}
	if related != nil {
		logf("local cache: return hit %s", related.ID)
		return related
	}

	if e.planner.HasUsableStores(relatedID, "") {
		for _, days := range []int{RecentDays, HistoricalDays} {
			if ctx.Err() != nil {
				return nil
			}
			req := SearchRequest{Term: relatedID, Directions: []record.Direction{record.Inbound}}
			related = e.remoteTier(ctx, req, days, tierName(days), logf)
			if related != nil {
				break
			}
		}
	}

	if related == nil {
		logf("no return found for %s", primary.ID)
		return nil
	}

	if err := e.gateway.Put(ctx, related); err != nil {
		logf("cache write failed for %s: %v", related.ID, err)
	} else {
		logf("cached %s", related.ID)
	}
	return related
}

// RelatedReturnID derives the candidate return identifier from a shipment
// identity: non-digit characters stripped, fixed return marker applied.
func RelatedReturnID(shipmentID string) string {
	var digits strings.Builder
	for _, r := range shipmentID {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return relatedIDPrefix + digits.String()
}

func directionsOrDefault(dirs []record.Direction) []record.Direction {
	if len(dirs) == 0 {
		return []record.Direction{record.Outbound, record.Inbound}
	}
	return dirs
}

func tierName(days int) string {
	if days == RecentDays {
		return "recent"
	}
	return "historical"
}
