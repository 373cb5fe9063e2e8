package cli

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b2bmarket/marketplace/jobs"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

type fixedInspector struct{ info *asynq.QueueInfo }

func (f fixedInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, nil }

func TestTrigger(t *testing.T) {
	enq := &recordingEnqueuer{}
	c := &JobsCLI{client: enq}

	info, err := c.Trigger(context.Background(), jobs.TaskIdempotencyCleanup, "48")
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskIdempotencyCleanup, info.Type)
	var cleanup jobs.IdempotencyCleanupPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &cleanup))
	assert.Equal(t, 48, cleanup.RetentionHours)

	_, err = c.Trigger(context.Background(), jobs.TaskOrderPlaced, "17")
	require.NoError(t, err)
	var placed jobs.OrderPlacedPayload
	require.NoError(t, json.Unmarshal(enq.tasks[1].Payload(), &placed))
	assert.Equal(t, int64(17), placed.OrderID)

	_, err = c.Trigger(context.Background(), jobs.TaskOrderPlaced)
	assert.Error(t, err)
	_, err = c.Trigger(context.Background(), jobs.TaskOrderPlaced, "x")
	assert.Error(t, err)
	_, err = c.Trigger(context.Background(), "report:rebuild")
	assert.Error(t, err)
	assert.Len(t, enq.tasks, 2)
}

func TestInspectQueue(t *testing.T) {
	c := &JobsCLI{inspector: fixedInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 2, Retry: 1}}}
	stats, err := c.InspectQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 2, Retry: 1}, stats)

	_, err = (&JobsCLI{}).InspectQueue(context.Background())
	assert.Error(t, err)
}
