// Package workflows provides the Temporal workflow definitions for
// scheduled reconciliation runs.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/wareline/resolve-core/internal/syncrun"
)

// =============================================================================
// WORKFLOW NAMES
// =============================================================================

const (
	SyncWindowWorkflow = "syncWindowWorkflow"

	// RunSyncWindowActivity is the activity executing one reconciliation.
	RunSyncWindowActivity = "RunSyncWindow"
)

// =============================================================================
// ACTIVITY OPTIONS
// =============================================================================

var defaultActivityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: time.Hour,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    time.Minute,
		MaximumAttempts:    3,
	},
}

// =============================================================================
// SYNC WINDOW WORKFLOW
// =============================================================================

// SyncWindowInput is the input for SyncWindowWorkflow. Either an explicit
// RFC 3339 From/To pair or a day count relative to now.
type SyncWindowInput struct {
	Days int    `json:"days,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// SyncWindowWorkflowFunc runs one reconciliation through the worker's
// activity. Scheduling (cron or Temporal schedules) happens outside.
func SyncWindowWorkflowFunc(ctx workflow.Context, input SyncWindowInput) (*syncrun.Report, error) {
	logger := workflow.GetLogger(ctx)
	actCtx := workflow.WithActivityOptions(ctx, defaultActivityOptions)

	var report syncrun.Report
	if err := workflow.ExecuteActivity(actCtx, RunSyncWindowActivity, input).Get(ctx, &report); err != nil {
		return nil, err
	}

	logger.Info("sync window complete",
		"runId", report.RunID,
		"created", report.Created,
		"updated", report.Updated,
		"errors", len(report.Errors))
	return &report, nil
}
