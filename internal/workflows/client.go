package workflows

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/wareline/resolve-core/internal/config"
	"github.com/wareline/resolve-core/internal/syncrun"
)

// Client wraps the Temporal client with helper methods.
type Client struct {
	client    client.Client
	taskQueue string
}

// NewClient dials Temporal with the configured address and namespace.
func NewClient(cfg config.TemporalConfig) (*Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Address,
		Namespace: cfg.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to Temporal: %w", err)
	}
	return &Client{client: c, taskQueue: cfg.TaskQueue}, nil
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.client.Close()
}

// Client returns the underlying Temporal client.
func (c *Client) Client() client.Client {
	return c.client
}

// workflowOptions creates standard workflow options.
func (c *Client) workflowOptions(workflowID string) client.StartWorkflowOptions {
	return client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                c.taskQueue,
		WorkflowExecutionTimeout: 2 * time.Hour,
		WorkflowTaskTimeout:      10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	}
}

// TriggerSyncWindow starts a sync workflow and waits for its report.
func (c *Client) TriggerSyncWindow(ctx context.Context, input SyncWindowInput) (*syncrun.Report, error) {
	workflowID := fmt.Sprintf("sync-window-%d", time.Now().UnixNano())
	run, err := c.client.ExecuteWorkflow(ctx, c.workflowOptions(workflowID), SyncWindowWorkflow, input)
	if err != nil {
		return nil, fmt.Errorf("start sync workflow: %w", err)
	}

	var report syncrun.Report
	if err := run.Get(ctx, &report); err != nil {
		return nil, fmt.Errorf("sync workflow failed: %w", err)
	}
	return &report, nil
}
