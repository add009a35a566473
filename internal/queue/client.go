package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/dunamismax/blastflow/internal/pipeline"
	"github.com/hibiken/asynq"
)

// unboundedTimeout stands in for "no limit". asynq gives a task with neither
// a timeout nor a deadline 30 minutes, far less than a large job needs.
const unboundedTimeout = 100 * 365 * 24 * time.Hour

type Client struct {
	client  *asynq.Client
	queue   string
	timeout time.Duration
}

// NewClient returns a queue client whose tasks may run for up to timeout.
// Zero means a task may run for as long as it needs.
func NewClient(redisOpt asynq.RedisClientOpt, queueName string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = unboundedTimeout
	}
	return &Client{
		client:  asynq.NewClient(redisOpt),
		queue:   queueName,
		timeout: timeout,
	}
}

// EnqueueRunJob queues a job run. Failed runs are not retried. A run that
// the worker abandons on shutdown is requeued and resumes from the rows the
// first attempt wrote.
func (c *Client) EnqueueRunJob(ctx context.Context, payload RunJobPayload) (*asynq.TaskInfo, error) {
	task, err := NewRunJobTask(payload)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(
		ctx,
		task,
		asynq.Queue(c.queue),
		asynq.TaskID(payload.Request.JobID),
		asynq.MaxRetry(0),
		asynq.Timeout(c.timeout),
	)
}

// Launch implements dispatch.Launcher.
func (c *Client) Launch(ctx context.Context, req pipeline.Request) error {
	if _, err := c.EnqueueRunJob(ctx, RunJobPayload{Request: req, RequestedAt: time.Now().UTC()}); err != nil {
		return fmt.Errorf("enqueue job %s: %w", req.JobID, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.client.Close()
}
