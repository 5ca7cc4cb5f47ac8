// Package planner performs ordered remote lookups for one search tier: a
// date-windowed sweep across stores and endpoint strategies that stops at
// the first hit.
package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wareline/resolve-core/internal/connector/warehouse"
	"github.com/wareline/resolve-core/internal/record"
)

// Request describes one tier of remote search.
type Request struct {
	// Term is the opaque search term: an order id, customer name, tracking
	// number or any other indexed field.
	Term string

	// Store restricts the search to one named store. Empty searches all.
	Store string

	// Directions lists the directions to try, in order. Empty means both,
	// outbound first.
	Directions []record.Direction

	// From and To bound the keyword-search date window.
	From, To time.Time

	// PageSize for the keyword search. Zero uses the client default.
	PageSize int
}

// Planner sweeps the configured stores for one tier. Deliberately sequential
// and short-circuiting rather than racing: remote call volume must stay
// bounded, and store order encodes a priority heuristic a race would discard.
type Planner struct {
	client *warehouse.Client
	stores []warehouse.Store
	log    *zap.Logger
}

// New creates a planner over the given stores.
func New(client *warehouse.Client, stores []warehouse.Store, log *zap.Logger) *Planner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Planner{client: client, stores: stores, log: log}
}

// Search tries each store and strategy in order and returns the first match,
// or nil when every tier attempt missed. emit receives one line per attempt
// and outcome, in causal order. The only error returned is cancellation.
func (p *Planner) Search(ctx context.Context, req Request, emit func(string)) (*record.Record, error) {
	if emit == nil {
		emit = func(string) {}
	}

	stores := p.orderStores(req.Term, req.Store)
	if len(stores) == 0 {
		emit("no stores with usable credentials configured")
		return nil, nil
	}

	directions := req.Directions
	if len(directions) == 0 {
		directions = []record.Direction{record.Outbound, record.Inbound}
	}

	window := fmt.Sprintf("%s..%s", record.FormatWindow(req.From), record.FormatWindow(req.To))
	for _, store := range stores {
		for _, dir := range directions {
			rec, err := p.tryStore(ctx, store, dir, req, window, emit)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				// First hit wins; no further stores are queried.
				return rec, nil
			}
		}
	}
	return nil, nil
}

// tryStore runs the two endpoint strategies for one store and direction:
// the direct-id probe, then the windowed keyword search plus detail fetch.
func (p *Planner) tryStore(ctx context.Context, store warehouse.Store, dir record.Direction, req Request, window string, emit func(string)) (*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	emit(fmt.Sprintf("%s/%s: probing direct id %q", store.Name, dir, req.Term))
	payload, err := p.client.DirectProbe(ctx, store, dir, req.Term)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Transport failures rank as misses at this layer; the client
		// already logged the detail.
		p.log.Warn("direct probe failed", zap.String("store", store.Name), zap.Error(err))
		payload = nil
	}
	if payload != nil {
		emit(fmt.Sprintf("%s/%s: direct id hit", store.Name, dir))
		return record.Normalize(payload, dir, store.Name), nil
	}
	emit(fmt.Sprintf("%s/%s: direct id miss", store.Name, dir))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	emit(fmt.Sprintf("%s/%s: keyword search %q in %s", store.Name, dir, req.Term, window))
	items, err := p.client.Search(ctx, store, dir, req.Term, req.From, req.To, req.PageSize)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.log.Warn("keyword search failed", zap.String("store", store.Name), zap.Error(err))
		items = nil
	}
	if len(items) == 0 {
		emit(fmt.Sprintf("%s/%s: keyword search returned 0 results", store.Name, dir))
		return nil, nil
	}

	// List endpoints return summaries; the first result's full detail needs
	// a second call.
	summary := items[0]
	rec := record.Normalize(summary, dir, store.Name)
	if rec.OrderID != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emit(fmt.Sprintf("%s/%s: fetching detail for %s", store.Name, dir, rec.OrderID))
		detail, err := p.client.Detail(ctx, store, dir, rec.OrderID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			p.log.Warn("detail fetch failed", zap.String("store", store.Name), zap.Error(err))
		}
		if detail != nil {
			rec = record.Normalize(detail, dir, store.Name)
		}
	}

	emit(fmt.Sprintf("%s/%s: keyword search hit %s", store.Name, dir, rec.ID))
	return rec, nil
}

// HasUsableStores reports whether Search would have any store to sweep for
// this term and filter. Callers running several tiers check once up front so
// the credentials notice is not repeated per tier.
func (p *Planner) HasUsableStores(term, filter string) bool {
	return len(p.orderStores(term, filter)) > 0
}

// orderStores selects and orders the stores to sweep. A named store filter
// wins outright. Otherwise all credentialed stores are swept, stably
// reordered so stores whose prefix character matches the term's first
// character come first; relative order is otherwise preserved.
func (p *Planner) orderStores(term, filter string) []warehouse.Store {
	if filter != "" {
		for _, s := range p.stores {
			if strings.EqualFold(s.Name, filter) && s.HasCredentials() {
				return []warehouse.Store{s}
			}
		}
		return nil
	}

	var preferred, rest []warehouse.Store
	for _, s := range p.stores {
		if !s.HasCredentials() {
			continue
		}
		if s.PrefixMatches(term) {
			preferred = append(preferred, s)
		} else {
			rest = append(rest, s)
		}
	}
	return append(preferred, rest...)
}
