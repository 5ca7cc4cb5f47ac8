// Package batch runs many resolutions sequentially and consolidates their
// outcomes into one report.
package batch

import (
	"context"
	"fmt"

	"github.com/wareline/resolve-core/internal/record"
	"github.com/wareline/resolve-core/internal/resolution"
)

// Request describes a batch of search terms sharing one set of filters.
type Request struct {
	Terms      []string
	Store      string
	Directions []record.Direction
}

// Report is the consolidated outcome of a batch run.
type Report struct {
	// Results holds found primary records, deduplicated by identity with
	// first occurrence winning.
	Results []*record.Record

	// Related holds linked return records, deduplicated the same way.
	Related []*record.Record

	// NotFound lists the terms that produced no primary record, in input
	// order.
	NotFound []string

	// Err is set only when the batch itself was cancelled.
	Err string
}

// Orchestrator runs the resolution engine once per term.
type Orchestrator struct {
	engine *resolution.Engine
}

// New creates a batch orchestrator over the given engine.
func New(engine *resolution.Engine) *Orchestrator {
	return &Orchestrator{engine: engine}
}

// Run resolves every term sequentially so that log lines from different
// terms never interleave; each resolution is awaited to completion before
// the next begins. Per-term log lines are forwarded through emit with term
// attribution.
func (o *Orchestrator) Run(ctx context.Context, req Request, emit func(resolution.ProgressEvent)) *Report {
	if emit == nil {
		emit = func(resolution.ProgressEvent) {}
	}

	report := &Report{}
	seen := make(map[string]bool)
	seenRelated := make(map[string]bool)

	for i, term := range req.Terms {
		if ctx.Err() != nil {
			report.Err = "batch cancelled"
			return report
		}

		emit(resolution.LogEvent{Line: fmt.Sprintf("[%s] resolving (%d/%d)", term, i+1, len(req.Terms))})

		var result *resolution.Result
		for ev := range o.engine.Resolve(ctx, resolution.SearchRequest{
			Term:       term,
			Store:      req.Store,
			Directions: req.Directions,
		}) {
			switch ev := ev.(type) {
			case resolution.LogEvent:
				emit(resolution.LogEvent{Line: fmt.Sprintf("[%s] %s", term, ev.Line)})
			case resolution.ResultEvent:
				result = ev.Result
			}
		}

		// Stream ended without a result: the resolution was cancelled.
		if result == nil {
			report.Err = "batch cancelled"
			return report
		}

		if result.Primary == nil {
			report.NotFound = append(report.NotFound, term)
			continue
		}

		if !seen[result.Primary.ID] {
			seen[result.Primary.ID] = true
			report.Results = append(report.Results, result.Primary)
		}
		if result.Related != nil && !seenRelated[result.Related.ID] {
			seenRelated[result.Related.ID] = true
			report.Related = append(report.Related, result.Related)
		}
	}

	return report
}
