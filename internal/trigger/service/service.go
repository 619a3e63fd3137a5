// Package service orchestrates outbound call triggering: document
// resolution, settings merging, payload selection, and the provider call.
package service

import (
	"context"
	"encoding/json"
	"time"

	"outreach_backend/internal/dialer"
	"outreach_backend/internal/payload"
	"outreach_backend/internal/store"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
)

// TriggerRequest asks for one outbound call.
type TriggerRequest struct {
	FlowID         string
	ContactID      string
	OrganizationID string
	Test           bool
}

// TriggerResult reports the started call.
type TriggerResult struct {
	CallID string `json:"call_id"`
	Status string `json:"status,omitempty"`
	Kind   string `json:"kind"`
}

// Store is the document access the trigger needs.
type Store interface {
	GetFlow(ctx context.Context, id string) (*store.Flow, error)
	GetOrganization(ctx context.Context, id string) (*store.Organization, error)
	GetContact(ctx context.Context, id string) (*store.Contact, error)
	GetScript(ctx context.Context, id string) (*store.Script, error)
	GetRules(ctx context.Context, id string) (*store.Rules, error)
	GetKnowledgeBase(ctx context.Context, id string) (*store.KnowledgeBase, error)
	PutCall(ctx context.Context, id string, call *store.Call) error
	UpdateContact(ctx context.Context, id string, fn func(*store.Contact) error) error
}

// Dialer starts calls against the provider.
type Dialer interface {
	StartCall(ctx context.Context, p *payload.Payload) (*dialer.CallResponse, error)
}

// PayloadFactory builds provider payloads.
type PayloadFactory interface {
	Build(kind payload.Kind, in payload.Input) (*payload.Payload, error)
}

// Service triggers outbound calls.
type Service struct {
	store   Store
	factory PayloadFactory
	dialer  Dialer
	log     *logger.Logger
	now     func() time.Time
}

// New creates the trigger service.
func New(st Store, factory PayloadFactory, dial Dialer, log *logger.Logger) *Service {
	return &Service{
		store:   st,
		factory: factory,
		dialer:  dial,
		log:     log,
		now:     time.Now,
	}
}

// Trigger resolves all documents for the request, builds the right payload
// variant, starts the call, and records the attempt. Test calls skip the
// contact's flow-state bookkeeping.
func (s *Service) Trigger(ctx context.Context, req TriggerRequest) (*TriggerResult, error) {
	flow, err := s.store.GetFlow(ctx, req.FlowID)
	if err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganization(ctx, req.OrganizationID)
	if err != nil {
		return nil, err
	}
	contact, err := s.store.GetContact(ctx, req.ContactID)
	if err != nil {
		return nil, err
	}

	script, err := s.store.GetScript(ctx, flow.PromptParameters.ScriptID)
	if err != nil {
		return nil, err
	}

	var rules *store.Rules
	if id := flow.PromptParameters.RulesID; id != "" {
		rules, err = s.store.GetRules(ctx, id)
		if err != nil {
			return nil, err
		}
	}

	knowledge, err := s.resolveKnowledge(ctx, flow)
	if err != nil {
		return nil, err
	}

	// Org defaults, flow overrides. The provider credential always comes
	// from the org, never from flow settings.
	settings := org.CallSettings.Merge(flow.CallSettings)
	settings.EncryptedKey = org.Twilio.EncryptedKey

	callCounter := 0
	if state, ok := contact.ActiveFlow(req.FlowID); ok {
		callCounter = state.CallCounter
	}

	kind := payload.SelectKind(flow.FlowType, callCounter, req.Test, script.PathwayID != "")

	p, err := s.factory.Build(kind, payload.Input{
		OrganizationID: req.OrganizationID,
		ContactID:      req.ContactID,
		FlowID:         req.FlowID,
		Org:            org,
		Contact:        contact,
		Flow:           flow,
		Script:         script,
		Rules:          rules,
		Knowledge:      knowledge,
		Settings:       settings,
		IsTest:         req.Test,
	})
	if err != nil {
		return nil, err
	}

	resp, err := s.dialer.StartCall(ctx, p)
	if err != nil {
		return nil, err
	}
	if resp.CallID == "" {
		return nil, apperr.Upstream(502, "provider response missing call id")
	}

	now := s.now().UTC()
	call := &store.Call{
		CallID:          resp.CallID,
		OrganizationID:  req.OrganizationID,
		ContactID:       req.ContactID,
		FlowID:          req.FlowID,
		OriginalRequest: payloadSnapshot(p),
		Response:        resp.Raw,
		CallTimestamp:   &now,
		ToNumber:        contact.PhoneNumber,
		FromNumber:      org.PhoneNumbers.Outbound,
		IsTest:          req.Test,
		CreatedAt:       now,
	}
	if err := s.store.PutCall(ctx, resp.CallID, call); err != nil {
		return nil, err
	}

	if !req.Test {
		err := s.store.UpdateContact(ctx, req.ContactID, func(c *store.Contact) error {
			if !c.RecordAttempt(req.FlowID, flow.MaxAttempts, now) {
				s.log.Warn("call attempt on inactive flow",
					"flow_id", req.FlowID,
					"contact_id", req.ContactID,
				)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	s.log.Info("call started",
		"call_id", resp.CallID,
		"flow_id", req.FlowID,
		"contact_id", req.ContactID,
		"kind", string(kind),
		"test", req.Test,
	)

	return &TriggerResult{CallID: resp.CallID, Status: resp.Status, Kind: string(kind)}, nil
}

// TriggerScheduledCall lets the queue worker fire a due call.
func (s *Service) TriggerScheduledCall(ctx context.Context, flowID, contactID, organizationID string) error {
	_, err := s.Trigger(ctx, TriggerRequest{
		FlowID:         flowID,
		ContactID:      contactID,
		OrganizationID: organizationID,
	})
	return err
}

// resolveKnowledge merges the flow's general and specific knowledge bases,
// specific entries overriding general ones. Both are optional.
func (s *Service) resolveKnowledge(ctx context.Context, flow *store.Flow) (store.KnowledgeBase, error) {
	var merged store.KnowledgeBase

	if id := flow.PromptParameters.GeneralKnowledgeBaseID; id != "" {
		kb, err := s.store.GetKnowledgeBase(ctx, id)
		if err != nil {
			return store.KnowledgeBase{}, err
		}
		merged = *kb
	}
	if id := flow.PromptParameters.SpecificKnowledgeBaseID; id != "" {
		kb, err := s.store.GetKnowledgeBase(ctx, id)
		if err != nil {
			return store.KnowledgeBase{}, err
		}
		merged = store.MergeKnowledgeBases(merged, *kb)
	}
	return merged, nil
}

func payloadSnapshot(p *payload.Payload) map[string]any {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	var snapshot map[string]any
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil
	}
	return snapshot
}
