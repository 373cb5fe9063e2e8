package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/hibiken/asynq"

	"github.com/b2bmarket/marketplace/internal/orders"
	"github.com/b2bmarket/marketplace/jobs"
)

// Enqueuer submits tasks. *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Inspector reads queue state. *asynq.Inspector satisfies it.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Enqueuer
	inspector Inspector
	closers   []func() error
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: redisAddr})
	return &JobsCLI{client: client, inspector: inspector, closers: []func() error{client.Close, inspector.Close}}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	for _, closeFn := range c.closers {
		if closeErr := closeFn(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name. order:placed takes the order id as its argument.
func (c *JobsCLI) Trigger(ctx context.Context, name string, args ...string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	var err error
	switch name {
	case jobs.TaskIdempotencyCleanup:
		hours := 0
		if len(args) > 0 {
			if hours, err = strconv.Atoi(args[0]); err != nil {
				return nil, fmt.Errorf("jobs cli: retention hours: %w", err)
			}
		}
		task, err = jobs.NewIdempotencyCleanupTask(hours)
	case jobs.TaskOrderPlaced:
		if len(args) == 0 {
			return nil, errors.New("jobs cli: order id required")
		}
		id, parseErr := strconv.ParseInt(args[0], 10, 64)
		if parseErr != nil || id <= 0 {
			return nil, fmt.Errorf("jobs cli: invalid order id %q", args[0])
		}
		task, err = jobs.NewOrderPlacedTask(orders.Order{ID: id})
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.MaxRetry(3))
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

// InspectQueue reports the queue metrics for the default queue.
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
