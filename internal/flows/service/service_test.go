package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"outreach_backend/internal/scheduler"
	"outreach_backend/internal/store"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

var testNow = time.Date(2025, time.June, 2, 15, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu       sync.Mutex
	flows    map[string]*store.Flow
	members  map[string][]store.FlowContact
	contacts map[string]*store.Contact
	putFlows int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		flows:    map[string]*store.Flow{},
		members:  map[string][]store.FlowContact{},
		contacts: map[string]*store.Contact{},
	}
}

func (f *fakeStore) GetFlow(_ context.Context, id string) (*store.Flow, error) {
	if flow, ok := f.flows[id]; ok {
		return flow, nil
	}
	return nil, apperr.NotFound("flow not found")
}

func (f *fakeStore) PutFlow(_ context.Context, id string, flow *store.Flow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flows[id] = flow
	f.putFlows++
	return nil
}

func (f *fakeStore) ListFlowContacts(_ context.Context, flowID string) ([]store.FlowContact, error) {
	return f.members[flowID], nil
}

func (f *fakeStore) PutFlowContact(_ context.Context, fc *store.FlowContact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := f.members[fc.FlowID]
	for i := range members {
		if members[i].ContactID == fc.ContactID {
			members[i] = *fc
			return nil
		}
	}
	return apperr.NotFound("flow contact not found")
}

func (f *fakeStore) UpdateContact(_ context.Context, id string, fn func(*store.Contact) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	contact, ok := f.contacts[id]
	if !ok {
		return apperr.NotFound("contact not found")
	}
	return fn(contact)
}

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[string]time.Time
	cancelled []string
	err       error
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: map[string]time.Time{}}
}

func (f *fakeScheduler) ScheduleFlowCall(_ context.Context, payload scheduler.FlowCallPayload, runAt time.Time) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	taskID := scheduler.FlowCallTaskID(payload.FlowID, payload.ContactID)
	f.scheduled[taskID] = runAt
	return taskID, nil
}

func (f *fakeScheduler) CancelFlowCall(_ context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, taskID)
	return nil
}

func fixture() (*fakeStore, *fakeScheduler, *Service) {
	st := newFakeStore()
	sched := newFakeScheduler()
	svc := New(st, sched, logger.New("test"),
		WithClock(func() time.Time { return testNow }),
		WithRandInt(func(int) int { return 30 }),
	)

	st.flows["flow-1"] = &store.Flow{
		Name:           "Spring outreach",
		FlowType:       store.FlowTypeConvert,
		OrganizationID: "org-1",
		Status:         store.FlowStatusScheduled,
	}
	for _, id := range []string{"contact-1", "contact-2"} {
		st.contacts[id] = &store.Contact{PhoneNumber: "15125550100", OrganizationID: "org-1"}
		st.members["flow-1"] = append(st.members["flow-1"], store.FlowContact{
			FlowID:    "flow-1",
			ContactID: id,
		})
	}
	return st, sched, svc
}

func TestRescheduleQueuesEveryContact(t *testing.T) {
	st, sched, svc := fixture()
	target := testNow.Add(48 * time.Hour).Truncate(time.Hour)

	result, err := svc.Reschedule(context.Background(), RescheduleRequest{
		FlowID:           "flow-1",
		NewScheduledTime: target,
	})
	if err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}

	if result.Contacts != 2 || result.Scheduled != 2 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(sched.scheduled) != 2 {
		t.Fatalf("expected 2 queued tasks, got %d", len(sched.scheduled))
	}

	wantRunAt := target.Add(30*time.Minute + 30*time.Second)
	for taskID, runAt := range sched.scheduled {
		if !runAt.Equal(wantRunAt) {
			t.Fatalf("task %s: expected run at %v, got %v", taskID, wantRunAt, runAt)
		}
	}

	for _, id := range []string{"contact-1", "contact-2"} {
		state, ok := st.contacts[id].ActiveFlow("flow-1")
		if !ok {
			t.Fatalf("%s: expected an active flow state", id)
		}
		if state.Status != store.FlowStatusScheduled {
			t.Fatalf("%s: expected status scheduled, got %q", id, state.Status)
		}
		if state.TaskID != scheduler.FlowCallTaskID("flow-1", id) {
			t.Fatalf("%s: unexpected task id %q", id, state.TaskID)
		}
		if state.NextStepTime == nil || !state.NextStepTime.Equal(target) {
			t.Fatalf("%s: unexpected nextStepTime %v", id, state.NextStepTime)
		}
	}

	for _, member := range st.members["flow-1"] {
		if !member.IsScheduled {
			t.Fatalf("%s: expected isScheduled set", member.ContactID)
		}
	}

	flow := st.flows["flow-1"]
	if flow.Status != store.FlowStatusScheduled {
		t.Fatalf("unexpected flow status %q", flow.Status)
	}
	if flow.ScheduledFor == nil || !flow.ScheduledFor.Equal(target) {
		t.Fatalf("unexpected scheduledFor %v", flow.ScheduledFor)
	}
}

func TestRescheduleRejectsPastTime(t *testing.T) {
	_, _, svc := fixture()

	_, err := svc.Reschedule(context.Background(), RescheduleRequest{
		FlowID:           "flow-1",
		NewScheduledTime: testNow.Add(-time.Hour),
	})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestRescheduleRejectsFarFuture(t *testing.T) {
	_, _, svc := fixture()

	_, err := svc.Reschedule(context.Background(), RescheduleRequest{
		FlowID:           "flow-1",
		NewScheduledTime: testNow.Add(31 * 24 * time.Hour),
	})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}

func TestRescheduleLeavesFlowUntouchedOnFailure(t *testing.T) {
	st, sched, svc := fixture()
	sched.err = apperr.Internal("queue unavailable")
	st.flows["flow-1"].Status = store.FlowStatusDraft

	_, err := svc.Reschedule(context.Background(), RescheduleRequest{
		FlowID:           "flow-1",
		NewScheduledTime: testNow.Add(24 * time.Hour),
	})
	if err == nil {
		t.Fatal("expected the scheduler failure to surface")
	}

	if st.putFlows != 0 {
		t.Fatal("expected the flow document untouched after a partial failure")
	}
	if st.flows["flow-1"].Status != store.FlowStatusDraft {
		t.Fatalf("unexpected flow status %q", st.flows["flow-1"].Status)
	}
}

func TestCancelClearsQueuedCalls(t *testing.T) {
	st, sched, svc := fixture()
	target := testNow.Add(24 * time.Hour)
	if _, err := svc.Reschedule(context.Background(), RescheduleRequest{
		FlowID:           "flow-1",
		NewScheduledTime: target,
	}); err != nil {
		t.Fatalf("reschedule failed: %v", err)
	}

	result, err := svc.Cancel(context.Background(), "flow-1")
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if result.Cancelled != 2 {
		t.Fatalf("expected 2 cancelled, got %d", result.Cancelled)
	}
	if len(sched.cancelled) != 2 {
		t.Fatalf("expected 2 cancelled tasks, got %d", len(sched.cancelled))
	}

	for _, id := range []string{"contact-1", "contact-2"} {
		if _, ok := st.contacts[id].ActiveFlow("flow-1"); ok {
			t.Fatalf("%s: expected the flow state removed", id)
		}
	}
	for _, member := range st.members["flow-1"] {
		if member.IsScheduled {
			t.Fatalf("%s: expected isScheduled cleared", member.ContactID)
		}
	}

	flow := st.flows["flow-1"]
	if flow.Status != store.FlowStatusDraft {
		t.Fatalf("expected draft, got %q", flow.Status)
	}
	if flow.ScheduledFor != nil {
		t.Fatalf("expected scheduledFor cleared, got %v", flow.ScheduledFor)
	}
}

func TestCancelPrefersStoredTaskID(t *testing.T) {
	st, sched, svc := fixture()
	st.contacts["contact-1"].ActiveFlows = []store.FlowState{{
		FlowID: "flow-1",
		Status: store.FlowStatusScheduled,
		TaskID: "task-legacy",
	}}
	st.members["flow-1"] = st.members["flow-1"][:1]

	if _, err := svc.Cancel(context.Background(), "flow-1"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if len(sched.cancelled) != 1 || sched.cancelled[0] != "task-legacy" {
		t.Fatalf("expected the stored task id cancelled, got %v", sched.cancelled)
	}
}
