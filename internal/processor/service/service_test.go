package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"outreach_backend/internal/events"
	"outreach_backend/internal/store"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

type fakeStore struct {
	calls      map[string]*store.Call
	flows      map[string]*store.Flow
	insights   map[string]*store.Insights
	contacts   map[string]*store.Contact
	orgs       map[string]*store.Organization
	orgByPhone map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		calls:      map[string]*store.Call{},
		flows:      map[string]*store.Flow{},
		insights:   map[string]*store.Insights{},
		contacts:   map[string]*store.Contact{},
		orgs:       map[string]*store.Organization{},
		orgByPhone: map[string]string{},
	}
}

func (f *fakeStore) GetCall(_ context.Context, id string) (*store.Call, error) {
	call, ok := f.calls[id]
	if !ok {
		return nil, apperr.NotFound("call not found")
	}
	copied := *call
	return &copied, nil
}

func (f *fakeStore) PutCall(_ context.Context, id string, call *store.Call) error {
	f.calls[id] = call
	return nil
}

func (f *fakeStore) GetFlow(_ context.Context, id string) (*store.Flow, error) {
	flow, ok := f.flows[id]
	if !ok {
		return nil, apperr.NotFound("flow not found")
	}
	return flow, nil
}

func (f *fakeStore) GetInsights(_ context.Context, id string) (*store.Insights, error) {
	ins, ok := f.insights[id]
	if !ok {
		return nil, apperr.NotFound("insights not found")
	}
	return ins, nil
}

func (f *fakeStore) UpdateContact(_ context.Context, id string, fn func(*store.Contact) error) error {
	contact, ok := f.contacts[id]
	if !ok {
		return apperr.NotFound("contact not found")
	}
	return fn(contact)
}

func (f *fakeStore) FindContactByPhone(_ context.Context, orgID, phone string) (string, *store.Contact, error) {
	for id, c := range f.contacts {
		if c.OrganizationID == orgID && c.PhoneNumber == phone {
			return id, c, nil
		}
	}
	return "", nil, apperr.NotFound("contact not found")
}

func (f *fakeStore) PutContact(_ context.Context, id string, contact *store.Contact) error {
	f.contacts[id] = contact
	return nil
}

func (f *fakeStore) FindOrganizationByPhone(_ context.Context, phone string) (string, *store.Organization, error) {
	id, ok := f.orgByPhone[phone]
	if !ok {
		return "", nil, apperr.NotFound("organization not found")
	}
	return id, f.orgs[id], nil
}

type fakeAnalyzer struct {
	classification string
	classifyErr    error
	analysis       *store.CallAnalysis
	insightsErr    error
	classifyCalls  int
	insightsCalls  int
}

func (f *fakeAnalyzer) ClassifyOutcome(_ context.Context, _ string) (string, error) {
	f.classifyCalls++
	return f.classification, f.classifyErr
}

func (f *fakeAnalyzer) ExtractInsights(_ context.Context, _ *store.Insights, _ string) (*store.CallAnalysis, error) {
	f.insightsCalls++
	return f.analysis, f.insightsErr
}

type fakeBus struct {
	published []events.Event
}

func (f *fakeBus) Publish(_ context.Context, event events.Event) {
	f.published = append(f.published, event)
}

func (f *fakeBus) PublishSync(_ context.Context, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakeBus) Subscribe(string, events.Handler) {}

func fixture() (*fakeStore, *fakeAnalyzer, *fakeBus, *Service) {
	st := newFakeStore()
	an := &fakeAnalyzer{classification: "answered", analysis: &store.CallAnalysis{Outcome: "interested"}}
	bus := &fakeBus{}
	svc := New(st, an, bus, logger.New("test"))
	svc.now = func() time.Time { return time.Date(2025, time.June, 2, 15, 0, 0, 0, time.UTC) }

	st.calls["call-1"] = &store.Call{
		CallID:         "call-1",
		OrganizationID: "org-1",
		ContactID:      "contact-1",
		FlowID:         "flow-1",
	}
	st.flows["flow-1"] = &store.Flow{
		OrganizationID:   "org-1",
		MaxAttempts:      3,
		PromptParameters: store.PromptParameters{InsightsID: "ins-1"},
	}
	st.insights["ins-1"] = &store.Insights{
		QuestionsToAnswer: map[string]string{"budget": "What is their budget?"},
	}
	st.contacts["contact-1"] = &store.Contact{
		PhoneNumber:    "15125550100",
		OrganizationID: "org-1",
		ActiveFlows: []store.FlowState{{
			FlowID:      "flow-1",
			Status:      store.FlowStatusPending,
			CallCounter: 1,
		}},
	}
	return st, an, bus, svc
}

func outboundWebhook() WebhookRequest {
	return WebhookRequest{
		CallID:                 "call-1",
		To:                     "15125550100",
		From:                   "15125550000",
		Completed:              true,
		ConcatenatedTranscript: "user: Hello?\nassistant: Hi, this is Sky.",
		Metadata: WebhookMetadata{
			OrganizationID: "org-1",
			ContactID:      "contact-1",
			FlowID:         "flow-1",
		},
	}
}

func TestProcessAnsweredCompletesFlow(t *testing.T) {
	st, an, bus, svc := fixture()

	result, err := svc.Process(context.Background(), outboundWebhook())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if result.Outcome != "interested" {
		t.Fatalf("expected outcome interested, got %q", result.Outcome)
	}
	if an.insightsCalls != 1 {
		t.Fatalf("expected one insights extraction, got %d", an.insightsCalls)
	}

	call := st.calls["call-1"]
	if call.AnsweredBy != AnsweredByHuman {
		t.Fatalf("expected answered_by human, got %q", call.AnsweredBy)
	}
	if call.CallAnalysis == nil || call.CallAnalysis.Outcome != "interested" {
		t.Fatalf("unexpected analysis: %+v", call.CallAnalysis)
	}
	if call.ProcessedAt == nil {
		t.Fatal("expected processed_at stamped")
	}

	contact := st.contacts["contact-1"]
	if len(contact.ActiveFlows) != 0 {
		t.Fatal("expected the flow completed off activeFlows")
	}
	if len(contact.FinishedFlows) != 1 || contact.FinishedFlows[0].Status != store.FlowStatusSuccess {
		t.Fatalf("unexpected finished flows: %+v", contact.FinishedFlows)
	}
	if contact.RecentOutcome != "interested" {
		t.Fatalf("expected recentOutcome interested, got %q", contact.RecentOutcome)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(bus.published))
	}
}

func TestProcessNoAnswerLeavesFlowActive(t *testing.T) {
	st, an, bus, svc := fixture()
	an.classification = "no answer"

	result, err := svc.Process(context.Background(), outboundWebhook())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if result.Outcome != AnsweredByNoAnswer {
		t.Fatalf("expected no answer, got %q", result.Outcome)
	}
	if st.calls["call-1"].AnsweredBy != AnsweredByNoAnswer {
		t.Fatalf("expected answered_by no answer, got %q", st.calls["call-1"].AnsweredBy)
	}
	if an.insightsCalls != 0 {
		t.Fatal("expected no insights extraction for an unanswered call")
	}

	contact := st.contacts["contact-1"]
	if len(contact.ActiveFlows) != 1 {
		t.Fatal("expected the flow to stay active after no answer")
	}
	if len(bus.published) != 0 {
		t.Fatal("expected no events for an unanswered call")
	}
}

func TestProcessVoicemail(t *testing.T) {
	st, an, _, svc := fixture()
	an.classification = "Voicemail"

	result, err := svc.Process(context.Background(), outboundWebhook())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if result.Outcome != AnsweredByVoicemail {
		t.Fatalf("expected voicemail, got %q", result.Outcome)
	}
	if st.calls["call-1"].AnsweredBy != AnsweredByVoicemail {
		t.Fatalf("unexpected answered_by %q", st.calls["call-1"].AnsweredBy)
	}
}

func TestProcessClassifierFailureFallsBackToNoAnswer(t *testing.T) {
	st, an, _, svc := fixture()
	an.classifyErr = apperr.Upstream(503, "model unavailable")

	result, err := svc.Process(context.Background(), outboundWebhook())
	if err != nil {
		t.Fatalf("expected classifier failure to be absorbed, got %v", err)
	}
	if result.Outcome != AnsweredByNoAnswer {
		t.Fatalf("expected no answer fallback, got %q", result.Outcome)
	}
	if len(st.contacts["contact-1"].ActiveFlows) != 1 {
		t.Fatal("expected the flow untouched on classifier failure")
	}
}

func TestProcessEmptyTranscriptSkipsClassifier(t *testing.T) {
	_, an, _, svc := fixture()
	req := outboundWebhook()
	req.ConcatenatedTranscript = ""

	result, err := svc.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if an.classifyCalls != 0 {
		t.Fatal("expected no classification for an empty transcript")
	}
	if result.Outcome != AnsweredByNoAnswer {
		t.Fatalf("expected no answer, got %q", result.Outcome)
	}
}

func TestProcessAnsweredIsIdempotent(t *testing.T) {
	st, _, bus, svc := fixture()

	if _, err := svc.Process(context.Background(), outboundWebhook()); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if _, err := svc.Process(context.Background(), outboundWebhook()); err != nil {
		t.Fatalf("replayed delivery failed: %v", err)
	}

	contact := st.contacts["contact-1"]
	if len(contact.FinishedFlows) != 1 {
		t.Fatalf("expected a replay to update, not duplicate, finished flows: %+v", contact.FinishedFlows)
	}
	if len(bus.published) != 2 {
		t.Fatalf("expected an event per delivery, got %d", len(bus.published))
	}
}

func TestProcessTestCallSkipsFlowState(t *testing.T) {
	st, _, bus, svc := fixture()
	st.calls["call-1"].IsTest = true

	if _, err := svc.Process(context.Background(), outboundWebhook()); err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if len(st.contacts["contact-1"].ActiveFlows) != 1 {
		t.Fatal("expected test call to leave flow state untouched")
	}
	if len(bus.published) != 0 {
		t.Fatal("expected no events for a test call")
	}
}

func TestProcessAnsweredWithoutInsightsDoc(t *testing.T) {
	st, an, _, svc := fixture()
	st.flows["flow-1"].PromptParameters.InsightsID = ""

	var logs bytes.Buffer
	svc.log = &logger.Logger{Logger: slog.New(slog.NewTextHandler(&logs, nil))}

	result, err := svc.Process(context.Background(), outboundWebhook())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if an.insightsCalls != 0 {
		t.Fatal("expected no insights extraction without an insights doc")
	}
	if result.Outcome != "answered" {
		t.Fatalf("expected minimal answered outcome, got %q", result.Outcome)
	}
	if !strings.Contains(logs.String(), "no insights prompt") {
		t.Fatalf("expected a warning about the missing insights prompt, got %q", logs.String())
	}
}

func TestWebhookRequestDecodesPrice(t *testing.T) {
	raw := `{"call_id":"call-1","price":9.5,"call_length":2.4,"completed":true}`

	var req WebhookRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if req.Price != 9.5 {
		t.Fatalf("expected price 9.5 from the provider report, got %v", req.Price)
	}
}

func TestProcessStoresCallCostFromPrice(t *testing.T) {
	st, _, _, svc := fixture()
	req := outboundWebhook()
	req.Price = 0.42

	if _, err := svc.Process(context.Background(), req); err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if got := st.calls["call-1"].CallCost; got != 0.42 {
		t.Fatalf("expected call_cost 0.42, got %v", got)
	}
}

func TestProcessInboundCreatesContact(t *testing.T) {
	st, _, _, svc := fixture()
	st.orgs["org-1"] = &store.Organization{Name: "Acme", PhoneNumbers: store.OrgPhoneNumbers{Outbound: "15125550000"}}
	st.orgByPhone["15125550000"] = "org-1"

	req := WebhookRequest{
		CallID:    "call-inbound",
		To:        "15125550000",
		From:      "15125559999",
		Inbound:   true,
		Completed: true,
	}

	result, err := svc.Process(context.Background(), req)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if result.Outcome != "inbound" {
		t.Fatalf("expected outcome inbound, got %q", result.Outcome)
	}

	id, contact, err := st.FindContactByPhone(context.Background(), "org-1", "15125559999")
	if err != nil {
		t.Fatalf("expected a contact created for the caller: %v", err)
	}
	if contact.LeadSource != "inbound_call" {
		t.Fatalf("unexpected lead source %q", contact.LeadSource)
	}
	if contact.RecentOutcome != "inbound" {
		t.Fatalf("expected recentOutcome inbound, got %q", contact.RecentOutcome)
	}

	call := st.calls["call-inbound"]
	if call.ContactID != id || call.OrganizationID != "org-1" {
		t.Fatalf("unexpected call attribution: %+v", call)
	}
	if call.AnsweredBy != AnsweredByHuman {
		t.Fatalf("expected inbound calls marked human, got %q", call.AnsweredBy)
	}
}

func TestProcessUnknownCall(t *testing.T) {
	_, _, _, svc := fixture()
	req := outboundWebhook()
	req.CallID = "call-missing"

	if _, err := svc.Process(context.Background(), req); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for an unknown call, got %v", err)
	}
}
