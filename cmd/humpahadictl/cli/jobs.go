package cli

import (
	"context"
	"errors"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/humpahadi/humpahadi/jobs"
)

// JobsCLI wraps queue management helpers for Asynq jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) (*JobsCLI, error) {
	opts, err := jobs.RedisOpt(redisAddr)
	if err != nil {
		return nil, err
	}
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &JobsCLI{client: client, inspector: asynq.NewInspector(opts)}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Stats reports the known queues.
func (c *JobsCLI) Stats() ([]jobs.QueueStat, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	return jobs.Stats(c.inspector)
}

// EnqueueAuditPrune schedules an immediate prune run.
func (c *JobsCLI) EnqueueAuditPrune(ctx context.Context, retentionDays int) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	return c.client.EnqueueAuditPrune(ctx, retentionDays)
}

func newJobsCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect the background job queues",
	}
	var days int
	prune := &cobra.Command{
		Use:   "prune-audit",
		Short: "Enqueue an access audit prune run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			queue, err := opts.queue(ctx)
			if err != nil {
				return err
			}
			info, err := queue.EnqueueAuditPrune(ctx, days)
			if err != nil {
				return err
			}
			opts.printf("enqueued %s on %s (id %s)\n", info.Type, info.Queue, info.ID)
			return nil
		},
	}
	prune.Flags().IntVar(&days, "days", jobs.DefaultAuditRetentionDays, "Retention window in days")

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Show queue sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, err := opts.queue(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := queue.Stats()
			if err != nil {
				return err
			}
			if opts.json {
				return opts.printJSON(stats)
			}
			w := newTable(opts.env.Stdout, "QUEUE", "PENDING", "ACTIVE", "RETRY", "ARCHIVED", "PROCESSED", "FAILED")
			for _, s := range stats {
				w.row(s.Queue, strconv.Itoa(s.Pending), strconv.Itoa(s.Active), strconv.Itoa(s.Retry),
					strconv.Itoa(s.Archived), strconv.Itoa(s.Processed), strconv.Itoa(s.Failed))
			}
			return w.flush()
		},
	}, prune)
	return cmd
}
