package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/himanshudhami/InvoiceX-sub001/jobs"
)

// JobsCLI wraps manual management helpers for ledger jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector jobs.QueueInspector
}

// NewJobsCLI wires a job client and queue inspector.
func NewJobsCLI(client *jobs.Client, inspector jobs.QueueInspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
}

// Trigger enqueues a ledger job by name. The "ledger:" prefix is optional.
func (c *JobsCLI) Trigger(ctx context.Context, name string, companyID int64) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	if !strings.HasPrefix(name, "ledger:") {
		name = "ledger:" + name
	}
	return c.client.Enqueue(ctx, name, companyID)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueue reports the metrics of the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

func newJobsCommand(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Trigger and inspect background ledger jobs",
	}

	var company int64
	enqueue := &cobra.Command{
		Use:   "enqueue <periods:recalc|integrity:check>",
		Short: "Enqueue a ledger job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, open, func(d Deps) error {
				if d.Queue == nil {
					return errNotConfigured
				}
				info, err := d.Queue.Trigger(cmd.Context(), args[0], company)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
				return nil
			})
		},
	}
	enqueue.Flags().Int64Var(&company, "company", 0, "company id (0 for every company)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show queue depth",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, open, func(d Deps) error {
				if d.Queue == nil {
					return errNotConfigured
				}
				s, err := d.Queue.InspectQueue(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
					s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
				return nil
			})
		},
	}

	cmd.AddCommand(enqueue, stats)
	return cmd
}
