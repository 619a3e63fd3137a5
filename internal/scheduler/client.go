// Package scheduler queues and cancels flow call tasks on Redis via asynq.
package scheduler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"outreach_backend/platform/config"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// FlowCallScheduler is the port the flows module schedules through.
type FlowCallScheduler interface {
	ScheduleFlowCall(ctx context.Context, payload FlowCallPayload, runAt time.Time) (string, error)
	CancelFlowCall(ctx context.Context, taskID string) error
}

// Client schedules flow call tasks.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	queue     string
}

// NewClient creates a scheduler client from config.
func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueue()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client:    asynq.NewClient(opt),
		inspector: asynq.NewInspector(opt),
		queue:     queue,
	}, nil
}

// Close releases the underlying Redis connections.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	if c.inspector != nil {
		_ = c.inspector.Close()
	}
	return c.client.Close()
}

// ScheduleFlowCall enqueues a call for runAt under the pair's deterministic
// task ID, replacing any task already queued for the same pair. Returns the
// task ID for storage on the contact's flow state.
func (c *Client) ScheduleFlowCall(ctx context.Context, payload FlowCallPayload, runAt time.Time) (string, error) {
	task, err := NewFlowCallTask(payload)
	if err != nil {
		return "", err
	}

	taskID := FlowCallTaskID(payload.FlowID, payload.ContactID)
	if err := c.CancelFlowCall(ctx, taskID); err != nil {
		return "", err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.TaskID(taskID),
		asynq.ProcessAt(runAt),
		asynq.Queue(c.queue),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue flow call: %w", err)
	}
	return taskID, nil
}

// CancelFlowCall deletes a queued task. A task that already ran or never
// existed is not an error.
func (c *Client) CancelFlowCall(_ context.Context, taskID string) error {
	if taskID == "" {
		return nil
	}
	err := c.inspector.DeleteTask(c.queue, taskID)
	if err == nil ||
		errors.Is(err, asynq.ErrTaskNotFound) ||
		errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return fmt.Errorf("cancel flow call %s: %w", taskID, err)
}

func redisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
