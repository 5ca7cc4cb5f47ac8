package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/wareline/resolve-core/internal/syncrun"
)

// =============================================================================
// ACTIVITIES
// =============================================================================

// Activities carries the dependencies of the reconciliation activities.
type Activities struct {
	reconciler *syncrun.Reconciler
}

// NewActivities creates the activity set.
func NewActivities(reconciler *syncrun.Reconciler) *Activities {
	return &Activities{reconciler: reconciler}
}

// RunSyncWindow executes one reconciliation run for the requested window.
func (a *Activities) RunSyncWindow(ctx context.Context, input SyncWindowInput) (*syncrun.Report, error) {
	window, err := resolveWindow(input, time.Now())
	if err != nil {
		return nil, err
	}
	return a.reconciler.Run(ctx, window), nil
}

// ResolveWindow turns workflow input into concrete bounds against the
// current time. Callers outside the worker use it to run pulls inline.
func ResolveWindow(input SyncWindowInput) (syncrun.Window, error) {
	return resolveWindow(input, time.Now())
}

// resolveWindow turns the workflow input into concrete bounds. Explicit
// bounds win over the day count; a bare input defaults to one day.
func resolveWindow(input SyncWindowInput, now time.Time) (syncrun.Window, error) {
	if input.From != "" || input.To != "" {
		from, err := time.Parse(time.RFC3339, input.From)
		if err != nil {
			return syncrun.Window{}, fmt.Errorf("parse from: %w", err)
		}
		to, err := time.Parse(time.RFC3339, input.To)
		if err != nil {
			return syncrun.Window{}, fmt.Errorf("parse to: %w", err)
		}
		return syncrun.Window{From: from, To: to}, nil
	}

	days := input.Days
	if days <= 0 {
		days = 1
	}
	return syncrun.WindowFromDays(days, now), nil
}
