// Package service implements batch scheduling and cancellation of flow
// calls. A reschedule fans one asynq task out per flow contact, spread
// across the target hour so a large flow does not dial everyone at once.
package service

import (
	"context"
	"math/rand/v2"
	"time"

	"outreach_backend/internal/scheduler"
	"outreach_backend/internal/store"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"

	"golang.org/x/sync/errgroup"
)

const (
	// Furthest a batch may be scheduled out.
	maxScheduleAhead = 30 * 24 * time.Hour

	// Contacts scheduled or cancelled concurrently per request.
	batchConcurrency = 8
)

// Store is the document access the flows module needs.
type Store interface {
	GetFlow(ctx context.Context, id string) (*store.Flow, error)
	PutFlow(ctx context.Context, id string, flow *store.Flow) error
	ListFlowContacts(ctx context.Context, flowID string) ([]store.FlowContact, error)
	PutFlowContact(ctx context.Context, fc *store.FlowContact) error
	UpdateContact(ctx context.Context, id string, fn func(*store.Contact) error) error
}

// RescheduleRequest moves a flow's batch to a new hour.
type RescheduleRequest struct {
	FlowID           string
	NewScheduledTime time.Time
}

// BatchResult reports how many contacts a batch operation touched.
type BatchResult struct {
	FlowID    string `json:"flow_id"`
	Contacts  int    `json:"contacts"`
	Scheduled int    `json:"scheduled,omitempty"`
	Cancelled int    `json:"cancelled,omitempty"`
}

// Service schedules and cancels flow call batches.
type Service struct {
	store     Store
	scheduler scheduler.FlowCallScheduler
	log       *logger.Logger
	now       func() time.Time
	randInt   func(n int) int
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRandInt overrides the random source used to spread calls across
// the target hour.
func WithRandInt(fn func(n int) int) Option {
	return func(s *Service) { s.randInt = fn }
}

// New creates the flows service.
func New(st Store, sched scheduler.FlowCallScheduler, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:     st,
		scheduler: sched,
		log:       log,
		now:       time.Now,
		randInt:   rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Reschedule queues one call per flow contact within the requested hour.
// The flow document is only updated after every contact was scheduled, so
// a partial failure leaves the flow in its previous state for a retry.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (*BatchResult, error) {
	now := s.now().UTC()
	target := req.NewScheduledTime.UTC()

	if target.Before(now) {
		return nil, apperr.BadRequest("scheduled time is in the past")
	}
	if target.After(now.Add(maxScheduleAhead)) {
		return nil, apperr.BadRequest("scheduled time is more than 30 days out")
	}

	flow, err := s.store.GetFlow(ctx, req.FlowID)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListFlowContacts(ctx, req.FlowID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i := range members {
		member := members[i]
		g.Go(func() error {
			return s.scheduleContact(gctx, flow, member, target)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	flow.ScheduledFor = &target
	flow.Status = store.FlowStatusScheduled
	flow.UpdatedAt = &now
	if err := s.store.PutFlow(ctx, req.FlowID, flow); err != nil {
		return nil, err
	}

	s.log.Info("flow rescheduled",
		"flow_id", req.FlowID,
		"contacts", len(members),
		"scheduled_for", target,
	)
	return &BatchResult{FlowID: req.FlowID, Contacts: len(members), Scheduled: len(members)}, nil
}

// scheduleContact enqueues the contact's call at a random minute and
// second inside the target hour, then records the task on the contact's
// flow state.
func (s *Service) scheduleContact(ctx context.Context, flow *store.Flow, member store.FlowContact, target time.Time) error {
	runAt := s.spreadWithinHour(target)

	taskID, err := s.scheduler.ScheduleFlowCall(ctx, scheduler.FlowCallPayload{
		FlowID:         member.FlowID,
		ContactID:      member.ContactID,
		OrganizationID: flow.OrganizationID,
	}, runAt)
	if err != nil {
		return err
	}

	err = s.store.UpdateContact(ctx, member.ContactID, func(c *store.Contact) error {
		if _, ok := c.ActiveFlow(member.FlowID); !ok {
			if err := c.AttachFlow(store.FlowState{
				FlowID:    member.FlowID,
				FlowName:  flow.Name,
				Type:      flow.FlowType,
				Status:    store.FlowStatusPending,
				CreatedAt: s.now().UTC(),
			}); err != nil {
				return err
			}
		}
		c.MarkScheduled(member.FlowID, target, runAt, taskID)
		return nil
	})
	if err != nil {
		return err
	}

	member.IsScheduled = true
	return s.store.PutFlowContact(ctx, &member)
}

// Cancel removes every queued call for the flow and returns the flow to
// draft.
func (s *Service) Cancel(ctx context.Context, flowID string) (*BatchResult, error) {
	flow, err := s.store.GetFlow(ctx, flowID)
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListFlowContacts(ctx, flowID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)
	for i := range members {
		member := members[i]
		g.Go(func() error {
			return s.cancelContact(gctx, member)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	flow.ScheduledFor = nil
	flow.Status = store.FlowStatusDraft
	flow.UpdatedAt = &now
	if err := s.store.PutFlow(ctx, flowID, flow); err != nil {
		return nil, err
	}

	s.log.Info("flow cancelled", "flow_id", flowID, "contacts", len(members))
	return &BatchResult{FlowID: flowID, Contacts: len(members), Cancelled: len(members)}, nil
}

// cancelContact drops the contact's active flow state and deletes the
// queued task it pointed at. The stored task ID wins over the derived one
// when both exist.
func (s *Service) cancelContact(ctx context.Context, member store.FlowContact) error {
	taskID := scheduler.FlowCallTaskID(member.FlowID, member.ContactID)

	err := s.store.UpdateContact(ctx, member.ContactID, func(c *store.Contact) error {
		if removed, ok := c.RemoveActiveFlow(member.FlowID); ok && removed.TaskID != "" {
			taskID = removed.TaskID
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := s.scheduler.CancelFlowCall(ctx, taskID); err != nil {
		return err
	}

	member.IsScheduled = false
	return s.store.PutFlowContact(ctx, &member)
}

// spreadWithinHour keeps the target's hour and randomizes minute and
// second.
func (s *Service) spreadWithinHour(target time.Time) time.Time {
	return time.Date(
		target.Year(), target.Month(), target.Day(), target.Hour(),
		s.randInt(60), s.randInt(60), 0, target.Location(),
	)
}
