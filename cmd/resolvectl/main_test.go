package main

import (
	"testing"

	"github.com/wareline/resolve-core/internal/record"
	"github.com/wareline/resolve-core/internal/resolution"
)

func TestDrainEventsReturnsTerminalResult(t *testing.T) {
	want := &resolution.Result{Primary: &record.Record{ID: "J16530", Direction: record.Outbound}}
	ch := make(chan resolution.ProgressEvent, 3)
	ch <- resolution.LogEvent{Line: "local cache: miss"}
	ch <- resolution.LogEvent{Line: "cached J16530"}
	ch <- resolution.ResultEvent{Result: want}
	close(ch)

	var lines []string
	got := drainEvents(ch, func(line string) { lines = append(lines, line) })
	if got != want {
		t.Fatalf("expected the streamed result, got %+v", got)
	}
	if len(lines) != 2 || lines[0] != "local cache: miss" {
		t.Errorf("progress lines lost or reordered: %v", lines)
	}
}

func TestDrainEventsNilOnBareClose(t *testing.T) {
	ch := make(chan resolution.ProgressEvent)
	close(ch)

	if got := drainEvents(ch, func(string) {}); got != nil {
		t.Fatalf("a bare close means cancellation, got %+v", got)
	}
}

func TestParseDirections(t *testing.T) {
	dirs, err := parseDirections([]string{"Outbound", " inbound "})
	if err != nil {
		t.Fatalf("parseDirections: %v", err)
	}
	if len(dirs) != 2 || dirs[0] != record.Outbound || dirs[1] != record.Inbound {
		t.Errorf("unexpected directions %v", dirs)
	}

	if _, err := parseDirections([]string{"sideways"}); err == nil {
		t.Fatal("expected an error for an unknown direction")
	}

	dirs, err = parseDirections(nil)
	if err != nil || len(dirs) != 0 {
		t.Errorf("empty input must stay empty, got %v, %v", dirs, err)
	}
}
