package batch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/wareline/resolve-core/internal/cache"
	"github.com/wareline/resolve-core/internal/connector/warehouse"
	"github.com/wareline/resolve-core/internal/planner"
	"github.com/wareline/resolve-core/internal/record"
	"github.com/wareline/resolve-core/internal/resolution"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// newTestOrchestrator builds an orchestrator whose remote tiers always miss,
// so outcomes are driven entirely by the seeded cache.
func newTestOrchestrator(t *testing.T, seed ...*record.Record) *Orchestrator {
	t.Helper()

	gateway := cache.NewGateway(cache.NewMemoryStore())
	for _, rec := range seed {
		if err := gateway.Put(context.Background(), rec); err != nil {
			t.Fatalf("seed %s: %v", rec.ID, err)
		}
	}

	client := warehouse.NewClient("https://api.example.test/v1", nil, warehouse.WithTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     http.Header{},
			Body:       io.NopCloser(strings.NewReader("{}")),
		}, nil
	})))
	stores := []warehouse.Store{{Name: "Jeep Apparel", Prefix: 'J', Key: "k", Secret: "s"}}
	return New(resolution.NewEngine(gateway, planner.New(client, stores, nil)))
}

func TestRunDeduplicatesRepeatedTerms(t *testing.T) {
	o := newTestOrchestrator(t,
		&record.Record{ID: "A1", Direction: record.Outbound},
		&record.Record{ID: "B2", Direction: record.Outbound},
	)

	report := o.Run(context.Background(), Request{Terms: []string{"A1", "B2", "A1"}}, nil)
	if report.Err != "" {
		t.Fatalf("unexpected batch error %q", report.Err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 deduplicated results, got %d", len(report.Results))
	}
	if report.Results[0].ID != "A1" || report.Results[1].ID != "B2" {
		t.Errorf("first occurrence must win, got %s, %s", report.Results[0].ID, report.Results[1].ID)
	}
	if len(report.NotFound) != 0 {
		t.Errorf("unexpected not-found terms %v", report.NotFound)
	}
}

func TestRunRecordsNotFoundInInputOrder(t *testing.T) {
	o := newTestOrchestrator(t, &record.Record{ID: "B2", Direction: record.Outbound})

	report := o.Run(context.Background(), Request{Terms: []string{"X9", "B2", "Y8"}}, nil)
	if report.Err != "" {
		t.Fatalf("unexpected batch error %q", report.Err)
	}
	if len(report.Results) != 1 || report.Results[0].ID != "B2" {
		t.Fatalf("unexpected results %v", report.Results)
	}
	if len(report.NotFound) != 2 || report.NotFound[0] != "X9" || report.NotFound[1] != "Y8" {
		t.Errorf("not-found terms must keep input order, got %v", report.NotFound)
	}
}

func TestRunAttributesProgressLines(t *testing.T) {
	o := newTestOrchestrator(t, &record.Record{ID: "A1", Direction: record.Outbound})

	var lines []string
	o.Run(context.Background(), Request{Terms: []string{"A1"}}, func(ev resolution.ProgressEvent) {
		if log, ok := ev.(resolution.LogEvent); ok {
			lines = append(lines, log.Line)
		}
	})

	if len(lines) == 0 {
		t.Fatal("expected progress lines")
	}
	if !strings.Contains(lines[0], "[A1] resolving (1/1)") {
		t.Errorf("missing batch header, got %q", lines[0])
	}
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "[A1] ") {
			t.Errorf("line missing term attribution: %q", line)
		}
	}
}

func TestRunCancelledMidBatch(t *testing.T) {
	o := newTestOrchestrator(t, &record.Record{ID: "A1", Direction: record.Outbound})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := o.Run(ctx, Request{Terms: []string{"A1", "B2"}}, nil)
	if report.Err != "batch cancelled" {
		t.Fatalf("expected a cancellation report, got %+v", report)
	}
}
