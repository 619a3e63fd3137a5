package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"outreach_backend/platform/apperr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Collection table names. Each table is (id TEXT PRIMARY KEY, doc JSONB,
// created_at, updated_at).
const (
	tableOrganizations  = "organizations"
	tableContacts       = "contacts"
	tableFlows          = "flows"
	tableScripts        = "scripts"
	tableRules          = "rules"
	tableKnowledgeBases = "knowledge_bases"
	tableInsights       = "insights"
	tableCalls          = "calls"
	tableFlowContacts   = "flow_contacts"
	tableLiveTransfers  = "live_transfers"
)

// Store provides typed access to the document collections.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on top of a pgx connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) getDoc(ctx context.Context, table, id string, dest any) error {
	query := fmt.Sprintf("SELECT doc FROM %s WHERE id = $1", table)

	var raw []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound(notFoundMessage(table))
	}
	if err != nil {
		return fmt.Errorf("get %s %s: %w", table, id, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s %s: %w", table, id, err)
	}
	return nil
}

func (s *Store) putDoc(ctx context.Context, table, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", table, id, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, doc, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`, table)

	if _, err := s.pool.Exec(ctx, query, id, raw); err != nil {
		return fmt.Errorf("put %s %s: %w", table, id, err)
	}
	return nil
}

func notFoundMessage(table string) string {
	switch table {
	case tableOrganizations:
		return "organization not found"
	case tableContacts:
		return "contact not found"
	case tableFlows:
		return "flow not found"
	case tableScripts:
		return "script not found"
	case tableRules:
		return "rules not found"
	case tableKnowledgeBases:
		return "knowledge base not found"
	case tableInsights:
		return "insights not found"
	case tableCalls:
		return "call not found"
	default:
		return "document not found"
	}
}

// GetOrganization fetches an organization by ID.
func (s *Store) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	var org Organization
	if err := s.getDoc(ctx, tableOrganizations, id, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

// GetFlow fetches a flow by ID.
func (s *Store) GetFlow(ctx context.Context, id string) (*Flow, error) {
	var flow Flow
	if err := s.getDoc(ctx, tableFlows, id, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

// PutFlow stores a full flow document.
func (s *Store) PutFlow(ctx context.Context, id string, flow *Flow) error {
	return s.putDoc(ctx, tableFlows, id, flow)
}

// GetContact fetches a contact by ID.
func (s *Store) GetContact(ctx context.Context, id string) (*Contact, error) {
	var contact Contact
	if err := s.getDoc(ctx, tableContacts, id, &contact); err != nil {
		return nil, err
	}
	return &contact, nil
}

// PutContact stores a full contact document.
func (s *Store) PutContact(ctx context.Context, id string, contact *Contact) error {
	return s.putDoc(ctx, tableContacts, id, contact)
}

// GetScript fetches a script by ID.
func (s *Store) GetScript(ctx context.Context, id string) (*Script, error) {
	var script Script
	if err := s.getDoc(ctx, tableScripts, id, &script); err != nil {
		return nil, err
	}
	return &script, nil
}

// GetRules fetches a rules document by ID.
func (s *Store) GetRules(ctx context.Context, id string) (*Rules, error) {
	var rules Rules
	if err := s.getDoc(ctx, tableRules, id, &rules); err != nil {
		return nil, err
	}
	return &rules, nil
}

// GetKnowledgeBase fetches a knowledge base by ID.
func (s *Store) GetKnowledgeBase(ctx context.Context, id string) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	if err := s.getDoc(ctx, tableKnowledgeBases, id, &kb); err != nil {
		return nil, err
	}
	return &kb, nil
}

// GetInsights fetches an insights document by ID.
func (s *Store) GetInsights(ctx context.Context, id string) (*Insights, error) {
	var ins Insights
	if err := s.getDoc(ctx, tableInsights, id, &ins); err != nil {
		return nil, err
	}
	return &ins, nil
}

// GetCall fetches a call record by provider call ID.
func (s *Store) GetCall(ctx context.Context, id string) (*Call, error) {
	var call Call
	if err := s.getDoc(ctx, tableCalls, id, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// PutCall stores a call record keyed by provider call ID. Re-delivery of
// the same call overwrites the previous record, which keeps webhook
// processing idempotent.
func (s *Store) PutCall(ctx context.Context, id string, call *Call) error {
	return s.putDoc(ctx, tableCalls, id, call)
}

// FindContactByPhone looks a contact up by normalized phone number within
// an organization. Returns the document ID alongside the contact.
func (s *Store) FindContactByPhone(ctx context.Context, organizationID, phone string) (string, *Contact, error) {
	const query = `
		SELECT id, doc FROM contacts
		WHERE doc->>'organization_id' = $1 AND doc->>'phoneNumber' = $2
		LIMIT 1`

	var (
		id  string
		raw []byte
	)
	err := s.pool.QueryRow(ctx, query, organizationID, phone).Scan(&id, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, apperr.NotFound("contact not found")
	}
	if err != nil {
		return "", nil, fmt.Errorf("find contact by phone: %w", err)
	}

	var contact Contact
	if err := json.Unmarshal(raw, &contact); err != nil {
		return "", nil, fmt.Errorf("decode contact %s: %w", id, err)
	}
	return id, &contact, nil
}

// FindOrganizationByPhone looks an organization up by its outbound number,
// used to attribute inbound calls.
func (s *Store) FindOrganizationByPhone(ctx context.Context, phone string) (string, *Organization, error) {
	const query = `
		SELECT id, doc FROM organizations
		WHERE doc->'phoneNumbers'->>'outbound' = $1
		LIMIT 1`

	var (
		id  string
		raw []byte
	)
	err := s.pool.QueryRow(ctx, query, phone).Scan(&id, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, apperr.NotFound("organization not found")
	}
	if err != nil {
		return "", nil, fmt.Errorf("find organization by phone: %w", err)
	}

	var org Organization
	if err := json.Unmarshal(raw, &org); err != nil {
		return "", nil, fmt.Errorf("decode organization %s: %w", id, err)
	}
	return id, &org, nil
}

// FindFlowByLeadEmail looks a flow up by its lead intake email address.
func (s *Store) FindFlowByLeadEmail(ctx context.Context, leadEmail string) (string, *Flow, error) {
	const query = `
		SELECT id, doc FROM flows
		WHERE doc->>'lead_email' = $1
		LIMIT 1`

	var (
		id  string
		raw []byte
	)
	err := s.pool.QueryRow(ctx, query, leadEmail).Scan(&id, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, apperr.NotFound("flow not found")
	}
	if err != nil {
		return "", nil, fmt.Errorf("find flow by lead email: %w", err)
	}

	var flow Flow
	if err := json.Unmarshal(raw, &flow); err != nil {
		return "", nil, fmt.Errorf("decode flow %s: %w", id, err)
	}
	return id, &flow, nil
}

// FlowContactID is the composite document ID for a flow membership row.
func FlowContactID(flowID, contactID string) string {
	return flowID + ":" + contactID
}

// PutFlowContact stores a flow membership row.
func (s *Store) PutFlowContact(ctx context.Context, fc *FlowContact) error {
	return s.putDoc(ctx, tableFlowContacts, FlowContactID(fc.FlowID, fc.ContactID), fc)
}

// ListFlowContacts returns all membership rows for a flow.
func (s *Store) ListFlowContacts(ctx context.Context, flowID string) ([]FlowContact, error) {
	const query = `
		SELECT doc FROM flow_contacts
		WHERE doc->>'flow_id' = $1
		ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query, flowID)
	if err != nil {
		return nil, fmt.Errorf("list flow contacts: %w", err)
	}
	defer rows.Close()

	var out []FlowContact
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan flow contact: %w", err)
		}
		var fc FlowContact
		if err := json.Unmarshal(raw, &fc); err != nil {
			return nil, fmt.Errorf("decode flow contact: %w", err)
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

// FindLiveTransferByHash checks whether a live transfer with the given
// request hash has already been stored.
func (s *Store) FindLiveTransferByHash(ctx context.Context, hash string) (string, *LiveTransfer, error) {
	const query = `
		SELECT id, doc FROM live_transfers
		WHERE doc->>'request_hash' = $1
		LIMIT 1`

	var (
		id  string
		raw []byte
	)
	err := s.pool.QueryRow(ctx, query, hash).Scan(&id, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil, apperr.NotFound("live transfer not found")
	}
	if err != nil {
		return "", nil, fmt.Errorf("find live transfer: %w", err)
	}

	var lt LiveTransfer
	if err := json.Unmarshal(raw, &lt); err != nil {
		return "", nil, fmt.Errorf("decode live transfer %s: %w", id, err)
	}
	return id, &lt, nil
}

// PutLiveTransfer stores a live transfer record.
func (s *Store) PutLiveTransfer(ctx context.Context, id string, lt *LiveTransfer) error {
	return s.putDoc(ctx, tableLiveTransfers, id, lt)
}

// UpdateContact runs fn against a contact inside a transaction, holding a
// row lock for the duration. All activeFlows/finishedFlows mutations go
// through here so concurrent webhooks and schedulers cannot lose updates.
func (s *Store) UpdateContact(ctx context.Context, id string, fn func(*Contact) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin contact update: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx, "SELECT doc FROM contacts WHERE id = $1 FOR UPDATE", id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("contact not found")
	}
	if err != nil {
		return fmt.Errorf("lock contact %s: %w", id, err)
	}

	var contact Contact
	if err := json.Unmarshal(raw, &contact); err != nil {
		return fmt.Errorf("decode contact %s: %w", id, err)
	}

	if err := fn(&contact); err != nil {
		return err
	}
	contact.UpdatedAt = time.Now().UTC()

	updated, err := json.Marshal(&contact)
	if err != nil {
		return fmt.Errorf("encode contact %s: %w", id, err)
	}
	if _, err := tx.Exec(ctx, "UPDATE contacts SET doc = $2, updated_at = now() WHERE id = $1", id, updated); err != nil {
		return fmt.Errorf("update contact %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit contact update: %w", err)
	}
	return nil
}
