// Package service processes call-completion webhooks: transcript
// classification, insight extraction, call persistence, and flow-state
// completion.
package service

import (
	"context"
	"time"

	"outreach_backend/internal/events"
	"outreach_backend/internal/llm"
	"outreach_backend/internal/store"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/phone"

	"github.com/google/uuid"
)

// Canonical answered_by values on the call record.
const (
	AnsweredByHuman     = "human"
	AnsweredByVoicemail = "voicemail"
	AnsweredByNoAnswer  = "no answer"
)

const outcomeInbound = "inbound"

// WebhookMetadata is the metadata echoed back by the provider.
type WebhookMetadata struct {
	OrganizationID string `json:"organization_id"`
	ContactID      string `json:"contact_id"`
	FlowID         string `json:"flow_id"`
	IsTest         bool   `json:"is_test"`
}

// WebhookRequest is the provider's call-completion report.
type WebhookRequest struct {
	CallID                 string          `json:"call_id"`
	To                     string          `json:"to"`
	From                   string          `json:"from"`
	Inbound                bool            `json:"inbound"`
	Completed              bool            `json:"completed"`
	Status                 string          `json:"status"`
	ErrorMessage           string          `json:"error_message"`
	AnsweredBy             string          `json:"answered_by"`
	RecordingURL           string          `json:"recording_url"`
	ConcatenatedTranscript string          `json:"concatenated_transcript"`
	CallLength             float64         `json:"call_length"`
	CorrectedDuration      string          `json:"corrected_duration"`
	EndAt                  *time.Time      `json:"end_at"`
	Price                  float64         `json:"price"`
	QueueStatus            string          `json:"queue_status"`
	EndpointURL            string          `json:"endpoint_url"`
	MaxDuration            float64         `json:"max_duration"`
	Language               string          `json:"language"`
	Metadata               WebhookMetadata `json:"metadata"`
}

// ProcessResult reports what the processor did with the webhook.
type ProcessResult struct {
	CallID  string `json:"call_id"`
	Outcome string `json:"outcome"`
}

// Store is the document access the processor needs.
type Store interface {
	GetCall(ctx context.Context, id string) (*store.Call, error)
	PutCall(ctx context.Context, id string, call *store.Call) error
	GetFlow(ctx context.Context, id string) (*store.Flow, error)
	GetInsights(ctx context.Context, id string) (*store.Insights, error)
	UpdateContact(ctx context.Context, id string, fn func(*store.Contact) error) error
	FindContactByPhone(ctx context.Context, organizationID, phone string) (string, *store.Contact, error)
	PutContact(ctx context.Context, id string, contact *store.Contact) error
	FindOrganizationByPhone(ctx context.Context, phone string) (string, *store.Organization, error)
}

// Service processes call-completion webhooks.
type Service struct {
	store    Store
	analyzer llm.Analyzer
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates the processor service.
func New(st Store, analyzer llm.Analyzer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    st,
		analyzer: analyzer,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// Process handles one webhook delivery. Reprocessing the same call ID
// overwrites the previous result, so retried deliveries are safe.
func (s *Service) Process(ctx context.Context, req WebhookRequest) (*ProcessResult, error) {
	if req.Inbound {
		return s.processInbound(ctx, req)
	}
	return s.processOutbound(ctx, req)
}

// processInbound records a call the contact made to the org's number,
// creating the contact when the caller is unknown.
func (s *Service) processInbound(ctx context.Context, req WebhookRequest) (*ProcessResult, error) {
	orgPhone := phone.NormalizeDigits(req.To)
	orgID, _, err := s.store.FindOrganizationByPhone(ctx, orgPhone)
	if err != nil {
		return nil, err
	}

	callerPhone := phone.NormalizeDigits(req.From)
	contactID, _, err := s.store.FindContactByPhone(ctx, orgID, callerPhone)
	if apperr.Is(err, apperr.KindNotFound) {
		contactID = uuid.New().String()
		now := s.now().UTC()
		err = s.store.PutContact(ctx, contactID, &store.Contact{
			PhoneNumber:    callerPhone,
			OrganizationID: orgID,
			LeadSource:     "inbound_call",
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	call := s.callFromWebhook(req)
	call.OrganizationID = orgID
	call.ContactID = contactID
	call.AnsweredBy = AnsweredByHuman
	call.CallAnalysis = &store.CallAnalysis{Outcome: outcomeInbound}
	call.ProcessedAt = &now
	if err := s.store.PutCall(ctx, req.CallID, call); err != nil {
		return nil, err
	}

	err = s.store.UpdateContact(ctx, contactID, func(c *store.Contact) error {
		c.RecentOutcome = outcomeInbound
		c.LastCallAnswered = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("inbound call recorded", "call_id", req.CallID, "contact_id", contactID)
	return &ProcessResult{CallID: req.CallID, Outcome: outcomeInbound}, nil
}

// processOutbound classifies the finished call and dispatches on the
// result: answered calls get full analysis and flow completion, voicemail
// and unanswered calls only update the call record.
func (s *Service) processOutbound(ctx context.Context, req WebhookRequest) (*ProcessResult, error) {
	existing, err := s.store.GetCall(ctx, req.CallID)
	if err != nil {
		return nil, err
	}

	label := AnsweredByNoAnswer
	if req.ConcatenatedTranscript != "" {
		classified, err := s.analyzer.ClassifyOutcome(ctx, req.ConcatenatedTranscript)
		if err != nil {
			s.log.UpstreamError("classifier", 0, err)
		} else {
			switch llm.NormalizeStatus(classified) {
			case "answered":
				label = AnsweredByHuman
			case "voicemail":
				label = AnsweredByVoicemail
			}
		}
	}

	if label != AnsweredByHuman {
		return s.finishUnanswered(ctx, req, existing, label)
	}
	return s.finishAnswered(ctx, req, existing)
}

func (s *Service) finishUnanswered(ctx context.Context, req WebhookRequest, existing *store.Call, label string) (*ProcessResult, error) {
	now := s.now().UTC()
	call := s.mergeWebhook(existing, req)
	call.AnsweredBy = label
	call.ProcessedAt = &now

	if err := s.store.PutCall(ctx, req.CallID, call); err != nil {
		return nil, err
	}

	s.log.Info("call processed without answer", "call_id", req.CallID, "answered_by", label)
	return &ProcessResult{CallID: req.CallID, Outcome: label}, nil
}

func (s *Service) finishAnswered(ctx context.Context, req WebhookRequest, existing *store.Call) (*ProcessResult, error) {
	analysis := &store.CallAnalysis{Outcome: "answered"}

	flow, err := s.store.GetFlow(ctx, req.Metadata.FlowID)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, err
	}
	if flow != nil && flow.PromptParameters.InsightsID != "" {
		insights, err := s.store.GetInsights(ctx, flow.PromptParameters.InsightsID)
		if err != nil {
			return nil, err
		}
		analysis, err = s.analyzer.ExtractInsights(ctx, insights, req.ConcatenatedTranscript)
		if err != nil {
			return nil, err
		}
	} else {
		s.log.Warn("no insights prompt for answered call, recording outcome only",
			"call_id", req.CallID, "flow_id", req.Metadata.FlowID)
	}

	now := s.now().UTC()
	call := s.mergeWebhook(existing, req)
	call.AnsweredBy = AnsweredByHuman
	call.CallAnalysis = analysis
	call.ProcessedAt = &now

	if err := s.store.PutCall(ctx, req.CallID, call); err != nil {
		return nil, err
	}

	isTest := existing.IsTest || req.Metadata.IsTest
	if !isTest && req.Metadata.ContactID != "" {
		err = s.store.UpdateContact(ctx, req.Metadata.ContactID, func(c *store.Contact) error {
			c.CompleteFlow(req.Metadata.FlowID, analysis.Outcome, req.CallID, now)
			return nil
		})
		if err != nil {
			return nil, err
		}

		s.bus.Publish(ctx, events.CallAnswered{
			BaseEvent:      events.NewBaseEvent(),
			OrganizationID: req.Metadata.OrganizationID,
			ContactID:      req.Metadata.ContactID,
			FlowID:         req.Metadata.FlowID,
			CallID:         req.CallID,
		})
	}

	s.log.Info("answered call processed", "call_id", req.CallID, "outcome", analysis.Outcome)
	return &ProcessResult{CallID: req.CallID, Outcome: analysis.Outcome}, nil
}

// callFromWebhook builds a fresh call record from webhook fields only.
func (s *Service) callFromWebhook(req WebhookRequest) *store.Call {
	return s.mergeWebhook(&store.Call{
		CallID:    req.CallID,
		CreatedAt: s.now().UTC(),
	}, req)
}

// mergeWebhook overlays the webhook's final call data on the record
// created at trigger time. The overlay is total: replaying a webhook
// produces the same stored document.
func (s *Service) mergeWebhook(existing *store.Call, req WebhookRequest) *store.Call {
	call := *existing
	call.CallID = req.CallID
	call.ToNumber = phone.NormalizeDigits(req.To)
	call.FromNumber = phone.NormalizeDigits(req.From)
	call.Inbound = req.Inbound
	call.Completed = req.Completed
	call.Status = req.Status
	call.ErrorMessage = req.ErrorMessage
	call.RecordingURL = req.RecordingURL
	call.ConcatenatedTranscript = req.ConcatenatedTranscript
	call.CallLength = req.CallLength
	call.CorrectedDuration = req.CorrectedDuration
	call.EndAt = req.EndAt
	call.CallCost = req.Price
	call.QueueStatus = req.QueueStatus
	call.EndpointURL = req.EndpointURL
	call.MaxDuration = req.MaxDuration
	call.Language = req.Language
	if call.OrganizationID == "" {
		call.OrganizationID = req.Metadata.OrganizationID
	}
	if call.ContactID == "" {
		call.ContactID = req.Metadata.ContactID
	}
	if call.FlowID == "" {
		call.FlowID = req.Metadata.FlowID
	}
	return &call
}
