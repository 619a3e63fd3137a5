// Package service turns forwarded lead emails into contacts attached to
// the flow registered for the sender.
package service

import (
	"context"
	"time"

	"outreach_backend/internal/events"
	"outreach_backend/internal/leadintake/extract"
	"outreach_backend/internal/store"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/phone"

	"github.com/google/uuid"
)

// IngestRequest is one forwarded lead email.
type IngestRequest struct {
	EmailBody   string
	ClientEmail string
}

// IngestResult reports the stored lead.
type IngestResult struct {
	ContactID string `json:"contact_id"`
	FlowID    string `json:"flow_id"`
	Created   bool   `json:"created"`
}

// Store is the document access lead intake needs.
type Store interface {
	FindFlowByLeadEmail(ctx context.Context, leadEmail string) (string, *store.Flow, error)
	FindContactByPhone(ctx context.Context, organizationID, phone string) (string, *store.Contact, error)
	PutContact(ctx context.Context, id string, contact *store.Contact) error
	UpdateContact(ctx context.Context, id string, fn func(*store.Contact) error) error
	PutFlowContact(ctx context.Context, fc *store.FlowContact) error
}

// Service processes lead emails.
type Service struct {
	store     Store
	extractor extract.Extractor
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

// New creates the lead intake service.
func New(st Store, ex extract.Extractor, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:     st,
		extractor: ex,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// Ingest extracts the lead from the email, finds the flow registered for
// the receiving address, and attaches the contact to it. A contact that is
// already mid-flow is rejected rather than double-dialed.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	flowID, flow, err := s.store.FindFlowByLeadEmail(ctx, req.ClientEmail)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("no matching flow found for the given client email")
		}
		return nil, err
	}

	info, err := s.extractor.ExtractLead(ctx, req.EmailBody)
	if err != nil {
		return nil, err
	}

	phoneNumber, err := sanitizePhone(info.PhoneNumber)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	state := store.FlowState{
		FlowID:    flowID,
		FlowName:  flow.Name,
		Type:      store.FlowTypeConvert,
		Status:    store.FlowStatusPending,
		CreatedAt: now,
	}

	contactID, existing, err := s.store.FindContactByPhone(ctx, flow.OrganizationID, phoneNumber)
	switch {
	case err == nil:
		if len(existing.ActiveFlows) > 0 {
			return nil, apperr.Conflict("contact already has an active flow")
		}
		err = s.store.UpdateContact(ctx, contactID, func(c *store.Contact) error {
			if len(c.ActiveFlows) > 0 {
				return apperr.Conflict("contact already has an active flow")
			}
			applyLeadInfo(c, info)
			return c.AttachFlow(state)
		})
		if err != nil {
			return nil, err
		}
	case apperr.Is(err, apperr.KindNotFound):
		contactID = uuid.New().String()
		contact := &store.Contact{
			PhoneNumber:    phoneNumber,
			OrganizationID: flow.OrganizationID,
			LeadSource:     flow.LeadSource,
			ActiveFlows:    []store.FlowState{state},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		applyLeadInfo(contact, info)
		if err := s.store.PutContact(ctx, contactID, contact); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	err = s.store.PutFlowContact(ctx, &store.FlowContact{
		FlowID:    flowID,
		ContactID: contactID,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.LeadIngested{
		BaseEvent:      events.NewBaseEvent(),
		OrganizationID: flow.OrganizationID,
		ContactID:      contactID,
		FlowID:         flowID,
	})

	s.log.Info("lead ingested", "flow_id", flowID, "contact_id", contactID)
	created := existing == nil
	return &IngestResult{ContactID: contactID, FlowID: flowID, Created: created}, nil
}

// sanitizePhone reduces the extracted number to digits and normalizes a
// bare 10-digit US number to 11 digits.
func sanitizePhone(raw string) (string, error) {
	digits := phone.Digits(raw)
	if len(digits) == 10 {
		digits = "1" + digits
	}
	if len(digits) < 11 {
		return "", apperr.BadRequest("phone number is too short")
	}
	return digits, nil
}

func applyLeadInfo(c *store.Contact, info *extract.LeadInfo) {
	if info.FirstName != "" {
		c.FirstName = info.FirstName
	}
	if info.LastName != "" {
		c.LastName = info.LastName
	}
	if info.Email != "" {
		c.Email = info.Email
	}
	if len(info.Tags) > 0 {
		c.Tags = info.Tags
	}
	if info.Address != nil {
		c.Address = info.Address
	}
}
