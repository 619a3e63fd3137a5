// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"outreach_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Call Domain Events
// =============================================================================

// CallAnswered is published after an answered call has been fully
// processed: analysis stored and the contact's flow state completed.
// Subscribers fan out the side effects (CRM sync, notification email).
type CallAnswered struct {
	BaseEvent
	OrganizationID string `json:"organizationId"`
	ContactID      string `json:"contactId"`
	FlowID         string `json:"flowId"`
	CallID         string `json:"callId"`
}

func (e CallAnswered) EventName() string { return "calls.call.answered" }

// LeadIngested is published when the lead intake endpoint attaches a new
// contact to a flow.
type LeadIngested struct {
	BaseEvent
	OrganizationID string `json:"organizationId"`
	ContactID      string `json:"contactId"`
	FlowID         string `json:"flowId"`
}

func (e LeadIngested) EventName() string { return "leads.lead.ingested" }
