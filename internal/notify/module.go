// Package notify fans out side effects of answered calls: posting the
// result to the organization's CRM sync link and emailing the sales
// inbox. It subscribes to domain events and never fails the caller, a
// lost notification is logged and dropped.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"outreach_backend/internal/email"
	"outreach_backend/internal/events"
	"outreach_backend/internal/store"
	"outreach_backend/platform/logger"
)

const (
	syncTimeout    = 15 * time.Second
	syncFlowStatus = "answered"
	callTimeLayout = "Jan 2, 2006 at 3:04 PM MST"
)

// Store is the document access notifications need.
type Store interface {
	GetOrganization(ctx context.Context, id string) (*store.Organization, error)
	GetContact(ctx context.Context, id string) (*store.Contact, error)
	GetCall(ctx context.Context, id string) (*store.Call, error)
}

// Module subscribes to call events and delivers notifications.
type Module struct {
	store  Store
	sender email.Sender
	client *http.Client
	log    *logger.Logger
}

// NewModule creates the notify module.
func NewModule(st Store, sender email.Sender, log *logger.Logger) *Module {
	return &Module{
		store:  st,
		sender: sender,
		client: &http.Client{Timeout: syncTimeout},
		log:    log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notify" }

// RegisterHandlers subscribes to the domain events this module reacts to.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.CallAnswered{}.EventName(), m)
}

// Handle dispatches a domain event to its handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.CallAnswered:
		return m.handleCallAnswered(ctx, e)
	default:
		return nil
	}
}

// handleCallAnswered runs both side effects independently. One failing
// must not block the other, so errors are logged here and swallowed.
func (m *Module) handleCallAnswered(ctx context.Context, e events.CallAnswered) error {
	org, err := m.store.GetOrganization(ctx, e.OrganizationID)
	if err != nil {
		m.log.Error("notify: load organization", "error", err, "organization_id", e.OrganizationID)
		return nil
	}
	contact, err := m.store.GetContact(ctx, e.ContactID)
	if err != nil {
		m.log.Error("notify: load contact", "error", err, "contact_id", e.ContactID)
		return nil
	}
	call, err := m.store.GetCall(ctx, e.CallID)
	if err != nil {
		m.log.Error("notify: load call", "error", err, "call_id", e.CallID)
		return nil
	}

	if org.SyncLink != "" {
		if err := m.postSync(ctx, org.SyncLink, contact, call); err != nil {
			m.log.Error("notify: crm sync failed", "error", err, "call_id", e.CallID)
		}
	}
	if org.NotificationEmail != "" {
		if err := m.sendEmail(ctx, org, contact, call); err != nil {
			m.log.Error("notify: email failed", "error", err, "call_id", e.CallID)
		}
	}
	return nil
}

// postSync delivers {contact, call, flow_status} to the org's sync link.
// The call's cost is internal and stripped before it leaves the system.
func (m *Module) postSync(ctx context.Context, url string, contact *store.Contact, call *store.Call) error {
	callDoc, err := toMap(call)
	if err != nil {
		return err
	}
	delete(callDoc, "call_cost")

	contactDoc, err := toMap(contact)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"contact":     contactDoc,
		"call":        callDoc,
		"flow_status": syncFlowStatus,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sync link returned status %d", resp.StatusCode)
	}
	return nil
}

func (m *Module) sendEmail(ctx context.Context, org *store.Organization, contact *store.Contact, call *store.Call) error {
	data := email.AnsweredCallData{
		ContactName:      contactName(contact),
		ContactPhone:     contact.PhoneNumber,
		OrganizationName: org.Name,
		RecordingURL:     call.RecordingURL,
	}
	if call.CallAnalysis != nil {
		data.Outcome = call.CallAnalysis.Outcome
		data.Summary = call.CallAnalysis.Summary
		data.Answers = call.CallAnalysis.Answers
	}
	if call.EndAt != nil {
		loc, err := time.LoadLocation(org.Timezone)
		if err != nil {
			loc = time.UTC
		}
		data.CallTime = call.EndAt.In(loc).Format(callTimeLayout)
	}
	return m.sender.SendAnsweredCallEmail(ctx, org.NotificationEmail, data)
}

func contactName(c *store.Contact) string {
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

func toMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
