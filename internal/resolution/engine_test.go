package resolution

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/wareline/resolve-core/internal/cache"
	"github.com/wareline/resolve-core/internal/connector/warehouse"
	"github.com/wareline/resolve-core/internal/planner"
	"github.com/wareline/resolve-core/internal/record"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func stubResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

var engineStores = []warehouse.Store{
	{Name: "Jeep Apparel", Prefix: 'J', Key: "jeep-key", Secret: "s"},
}

func newTestEngine(store cache.DocumentStore, rt roundTripFunc) (*Engine, *cache.Gateway) {
	gateway := cache.NewGateway(store)
	client := warehouse.NewClient("https://api.example.test/v1", nil, warehouse.WithTransport(rt))
	engine := NewEngine(gateway, planner.New(client, engineStores, nil))
	engine.now = func() time.Time {
		return time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	}
	return engine, gateway
}

// collect drains a progress stream into its log lines and final result. A
// nil result means the stream closed without one.
func collect(ch <-chan ProgressEvent) ([]string, *Result) {
	var lines []string
	var result *Result
	for ev := range ch {
		switch ev := ev.(type) {
		case LogEvent:
			lines = append(lines, ev.Line)
		case ResultEvent:
			result = ev.Result
		}
	}
	return lines, result
}

func TestResolveLocalHitSkipsRemote(t *testing.T) {
	store := cache.NewMemoryStore()
	calls := 0
	engine, gateway := newTestEngine(store, func(req *http.Request) (*http.Response, error) {
		calls++
		return stubResponse(http.StatusNotFound, "{}"), nil
	})

	ctx := context.Background()
	primary := &record.Record{ID: "J16530", Direction: record.Outbound, Store: "Jeep Apparel"}
	related := &record.Record{ID: "RET-16530", Direction: record.Inbound, Store: "Jeep Apparel"}
	if err := gateway.Put(ctx, primary); err != nil {
		t.Fatalf("seed primary: %v", err)
	}
	if err := gateway.Put(ctx, related); err != nil {
		t.Fatalf("seed related: %v", err)
	}

	lines, result := collect(engine.Resolve(ctx, SearchRequest{Term: "J16530"}))
	if result == nil || result.Err != "" {
		t.Fatalf("expected a clean result, got %+v", result)
	}
	if result.Primary == nil || result.Primary.ID != "J16530" {
		t.Fatalf("expected the cached record, got %+v", result.Primary)
	}
	if result.Related == nil || result.Related.ID != "RET-16530" {
		t.Fatalf("expected the cached return, got %+v", result.Related)
	}
	if calls != 0 {
		t.Errorf("a full local hit must make zero remote calls, saw %d", calls)
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "local cache: hit") {
		t.Errorf("progress must report the cache hit:\n%s", joined)
	}
}

func TestResolveRecentTierHitSkipsHistorical(t *testing.T) {
	engine, _ := newTestEngine(cache.NewMemoryStore(), func(req *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusOK, `{"clientId":"RET-16530","id":2001,"statusDescription":"Received"}`), nil
	})

	lines, result := collect(engine.Resolve(context.Background(), SearchRequest{
		Term:       "RET-16530",
		Directions: []record.Direction{record.Inbound},
	}))
	if result == nil || result.Primary == nil {
		t.Fatalf("expected a found result, got %+v", result)
	}
	if result.Primary.Direction != record.Inbound {
		t.Errorf("direction filter violated: %+v", result.Primary)
	}

	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "recent tier") {
		t.Errorf("expected the recent tier to run:\n%s", joined)
	}
	if strings.Contains(joined, "historical tier") {
		t.Errorf("a recent hit must not escalate:\n%s", joined)
	}
}

func TestResolveEscalatesThenReportsNotFound(t *testing.T) {
	engine, _ := newTestEngine(cache.NewMemoryStore(), func(req *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusNotFound, "{}"), nil
	})

	lines, result := collect(engine.Resolve(context.Background(), SearchRequest{
		Term:       "NOPE",
		Directions: []record.Direction{record.Inbound},
	}))
	if result == nil {
		t.Fatal("expected a result")
	}
	if result.Primary != nil {
		t.Fatalf("expected not-found, got %+v", result.Primary)
	}
	if !strings.Contains(result.Err, `no record found for "NOPE"`) {
		t.Errorf("unexpected error text %q", result.Err)
	}

	joined := strings.Join(lines, "\n")
	for _, want := range []string{"recent tier", "historical tier", "exhausted all tiers"} {
		if !strings.Contains(joined, want) {
			t.Errorf("progress missing %q:\n%s", want, joined)
		}
	}
}

func TestResolveRemoteHitIsCachedAndLinked(t *testing.T) {
	store := cache.NewMemoryStore()
	engine, gateway := newTestEngine(store, func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Header.Get("X-Client-Id") == "SHP-10000534785":
			return stubResponse(http.StatusOK, `{"clientId":"SHP-10000534785","id":3001,"statusDescription":"Delivered"}`), nil
		case req.Header.Get("X-Client-Id") == "RET-10000534785":
			return stubResponse(http.StatusOK, `{"clientId":"RET-10000534785","id":3002,"statusDescription":"Return Received"}`), nil
		default:
			return stubResponse(http.StatusNotFound, "{}"), nil
		}
	})

	ctx := context.Background()
	_, result := collect(engine.Resolve(ctx, SearchRequest{
		Term:       "SHP-10000534785",
		Directions: []record.Direction{record.Outbound},
	}))
	if result == nil || result.Err != "" {
		t.Fatalf("expected a clean result, got %+v", result)
	}
	if result.Primary == nil || result.Primary.ID != "SHP-10000534785" {
		t.Fatalf("unexpected primary %+v", result.Primary)
	}
	if result.Related == nil || result.Related.ID != "RET-10000534785" {
		t.Fatalf("expected the linked return, got %+v", result.Related)
	}

	// Both records were written through to the cache.
	cached, err := gateway.GetByID(ctx, record.Outbound, "SHP-10000534785")
	if err != nil || cached == nil {
		t.Fatalf("primary not cached: %v, %v", cached, err)
	}
	cachedReturn, err := gateway.GetByID(ctx, record.Inbound, "RET-10000534785")
	if err != nil || cachedReturn == nil {
		t.Fatalf("return not cached: %v, %v", cachedReturn, err)
	}
}

func TestResolveInboundPrimaryHasNoRelated(t *testing.T) {
	store := cache.NewMemoryStore()
	engine, gateway := newTestEngine(store, func(req *http.Request) (*http.Response, error) {
		t.Error("no remote call expected")
		return stubResponse(http.StatusNotFound, "{}"), nil
	})

	ctx := context.Background()
	if err := gateway.Put(ctx, &record.Record{ID: "RET-1", Direction: record.Inbound}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, result := collect(engine.Resolve(ctx, SearchRequest{Term: "RET-1", Directions: []record.Direction{record.Inbound}}))
	if result == nil || result.Primary == nil {
		t.Fatalf("expected a found result, got %+v", result)
	}
	if result.Related != nil {
		t.Errorf("inbound records never link onward, got %+v", result.Related)
	}
}

func TestResolveCancelledClosesWithoutResult(t *testing.T) {
	engine, _ := newTestEngine(cache.NewMemoryStore(), func(req *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusNotFound, "{}"), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, result := collect(engine.Resolve(ctx, SearchRequest{Term: "J16530"}))
	if result != nil {
		t.Fatalf("a cancelled stream must close without a result, got %+v", result)
	}
}

type failingStore struct {
	cache.DocumentStore
}

func (failingStore) GetByID(ctx context.Context, collection, id string) (cache.Document, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) QueryByField(ctx context.Context, collection, field, value string) (cache.Document, error) {
	return nil, errors.New("connection refused")
}

func TestResolveBrokenLocalStoreIsFatal(t *testing.T) {
	engine, _ := newTestEngine(failingStore{cache.NewMemoryStore()}, func(req *http.Request) (*http.Response, error) {
		t.Error("a broken cache must not escalate to remote search")
		return stubResponse(http.StatusNotFound, "{}"), nil
	})

	_, result := collect(engine.Resolve(context.Background(), SearchRequest{Term: "J16530"}))
	if result == nil {
		t.Fatal("expected an error result")
	}
	if !strings.Contains(result.Err, "local cache unavailable") {
		t.Errorf("unexpected error text %q", result.Err)
	}
}

func TestResolveWithoutUsableStoresNoticesOnce(t *testing.T) {
	gateway := cache.NewGateway(cache.NewMemoryStore())
	client := warehouse.NewClient("https://api.example.test/v1", nil, warehouse.WithTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		t.Error("no store should be queried")
		return stubResponse(http.StatusNotFound, "{}"), nil
	})))
	bare := []warehouse.Store{{Name: "Diesel", Prefix: 'D'}}
	engine := NewEngine(gateway, planner.New(client, bare, nil))

	lines, result := collect(engine.Resolve(context.Background(), SearchRequest{Term: "D123"}))
	if result == nil || result.Primary != nil {
		t.Fatalf("expected a not-found result, got %+v", result)
	}
	if !strings.Contains(result.Err, `no record found for "D123"`) {
		t.Errorf("unexpected error text %q", result.Err)
	}

	notices := 0
	for _, line := range lines {
		if strings.Contains(line, "usable credentials") {
			notices++
		}
	}
	if notices != 1 {
		t.Errorf("credentials notice must appear exactly once, saw %d in:\n%s", notices, strings.Join(lines, "\n"))
	}
}

func TestRelatedReturnID(t *testing.T) {
	cases := map[string]string{
		"SHP-10000534785": "RET-10000534785",
		"J16530":          "RET-16530",
		"10000534785":     "RET-10000534785",
	}
	for in, want := range cases {
		if got := RelatedReturnID(in); got != want {
			t.Errorf("RelatedReturnID(%q) = %q, want %q", in, got, want)
		}
	}
}
