package scheduler

import (
	"context"
	"fmt"

	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// CallTrigger is the port the worker fires due calls through. The trigger
// module provides the implementation.
type CallTrigger interface {
	TriggerScheduledCall(ctx context.Context, flowID, contactID, organizationID string) error
}

// Worker consumes flow call tasks and triggers the calls.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	trigger CallTrigger
	log     *logger.Logger
}

// NewWorker creates the asynq consumer.
func NewWorker(cfg config.SchedulerConfig, trigger CallTrigger, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		trigger: trigger,
		log:     log,
	}

	mux.HandleFunc(TaskFlowScheduledCall, w.handleFlowScheduledCall)

	return w, nil
}

func (w *Worker) handleFlowScheduledCall(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFlowCallPayload(task)
	if err != nil {
		return err
	}

	w.log.Info("scheduled flow call due",
		"flow_id", payload.FlowID,
		"contact_id", payload.ContactID,
	)

	if err := w.trigger.TriggerScheduledCall(ctx, payload.FlowID, payload.ContactID, payload.OrganizationID); err != nil {
		w.log.Error("scheduled flow call failed",
			"flow_id", payload.FlowID,
			"contact_id", payload.ContactID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

// Run blocks serving tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
