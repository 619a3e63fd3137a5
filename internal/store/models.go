// Package store implements the document store backing the outreach domain.
// Documents are persisted as JSONB rows in Postgres, one table per
// collection, keyed by a string document ID.
package store

import (
	"time"
)

// Flow types drive the payload policy for outbound calls.
const (
	FlowTypeConvert = "Convert"
	FlowTypeEngage  = "Engage"
	FlowTypeRevive  = "Revive"
)

// FlowState statuses. Draft applies to the Flow document itself once a
// scheduled batch is cancelled.
const (
	FlowStatusPending      = "pending"
	FlowStatusScheduled    = "scheduled"
	FlowStatusSuccess      = "success"
	FlowStatusUnresponsive = "unresponsive"
	FlowStatusDraft        = "draft"
)

// FlowState tracks one contact's progress through a flow. A contact holds
// these in activeFlows while the flow is in progress and finishedFlows once
// it terminates.
type FlowState struct {
	FlowID              string     `json:"flow_id"`
	FlowName            string     `json:"flow_name,omitempty"`
	Type                string     `json:"type,omitempty"`
	Status              string     `json:"status"`
	CallCounter         int        `json:"callCounter"`
	TaskID              string     `json:"task_id,omitempty"`
	NextStepTime        *time.Time `json:"nextStepTime,omitempty"`
	ActualScheduledTime *time.Time `json:"actualScheduledTime,omitempty"`
	Outcome             string     `json:"outcome,omitempty"`
	CallID              string     `json:"call_id,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// Address is a contact's postal address.
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
	State  string `json:"state,omitempty"`
	Zip    string `json:"zip,omitempty"`
}

// Contact is a person reachable by phone. PhoneNumber is stored digits-only
// with the country code prefixed ("15125550100") and serves as a lookup key
// together with the organization ID.
type Contact struct {
	FirstName        string      `json:"firstName,omitempty"`
	LastName         string      `json:"lastName,omitempty"`
	Email            string      `json:"email,omitempty"`
	PhoneNumber      string      `json:"phoneNumber"`
	OrganizationID   string      `json:"organization_id"`
	Address          *Address    `json:"address,omitempty"`
	Tags             []string    `json:"tags,omitempty"`
	LeadSource       string      `json:"lead_source,omitempty"`
	ActiveFlows      []FlowState `json:"activeFlows,omitempty"`
	FinishedFlows    []FlowState `json:"finishedFlows,omitempty"`
	RecentOutcome    string      `json:"recentOutcome,omitempty"`
	LastCallAttempt  *time.Time  `json:"lastCallAttempt,omitempty"`
	LastCallAnswered *time.Time  `json:"lastCallAnswered,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// CallSettings are the tunable parameters of an outbound call. Pointer
// fields distinguish "unset" from an explicit zero so organization defaults
// and flow overrides can merge per field.
type CallSettings struct {
	Model                 *string        `json:"model,omitempty"`
	Temperature           *float64       `json:"temperature,omitempty"`
	Voice                 *string        `json:"voice,omitempty"`
	VoiceSettings         map[string]any `json:"voice_settings,omitempty"`
	MaxDuration           *int           `json:"max_duration,omitempty"`
	InterruptionThreshold *float64       `json:"interruption_threshold,omitempty"`
	WaitForGreeting       *bool          `json:"wait_for_greeting,omitempty"`
	Record                *bool          `json:"record,omitempty"`
	AnsweredByEnabled     *bool          `json:"answered_by_enabled,omitempty"`
	Language              *string        `json:"language,omitempty"`
	TransferPhoneNumber   *string        `json:"transfer_phone_number,omitempty"`
	EncryptedKey          string         `json:"encrypted_key,omitempty"`
}

// Merge layers override on top of base, field by field. Neither input is
// mutated. TransferPhoneNumber always comes from the override layer, even
// when unset there, so a flow without its own transfer number gets none.
func (base CallSettings) Merge(override CallSettings) CallSettings {
	out := base
	if override.Model != nil {
		out.Model = override.Model
	}
	if override.Temperature != nil {
		out.Temperature = override.Temperature
	}
	if override.Voice != nil {
		out.Voice = override.Voice
	}
	if override.VoiceSettings != nil {
		out.VoiceSettings = override.VoiceSettings
	}
	if override.MaxDuration != nil {
		out.MaxDuration = override.MaxDuration
	}
	if override.InterruptionThreshold != nil {
		out.InterruptionThreshold = override.InterruptionThreshold
	}
	if override.WaitForGreeting != nil {
		out.WaitForGreeting = override.WaitForGreeting
	}
	if override.Record != nil {
		out.Record = override.Record
	}
	if override.AnsweredByEnabled != nil {
		out.AnsweredByEnabled = override.AnsweredByEnabled
	}
	if override.Language != nil {
		out.Language = override.Language
	}
	out.TransferPhoneNumber = override.TransferPhoneNumber
	return out
}

// TwilioCredentials carries the encrypted provider credential for an org.
type TwilioCredentials struct {
	EncryptedKey string `json:"encrypted_key,omitempty"`
}

// OrgPhoneNumbers holds the org's provisioned numbers.
type OrgPhoneNumbers struct {
	Outbound string `json:"outbound,omitempty"`
}

// Organization is a tenant running outreach flows.
type Organization struct {
	Name                       string            `json:"org_name"`
	Timezone                   string            `json:"timezone,omitempty"`
	AssistantName              string            `json:"assistant_name,omitempty"`
	AssistantNamePronunciation string            `json:"assistant_name_pronunciation,omitempty"`
	PhoneNumbers               OrgPhoneNumbers   `json:"phoneNumbers"`
	CallSettings               CallSettings      `json:"call_settings"`
	Twilio                     TwilioCredentials `json:"twilio"`
	SyncLink                   string            `json:"sync_link,omitempty"`
	NotificationEmail          string            `json:"notification_email,omitempty"`
	Info                       string            `json:"info,omitempty"`
}

// PromptParameters reference the documents a flow builds its prompt from.
type PromptParameters struct {
	ScriptID                string `json:"script_id,omitempty"`
	RulesID                 string `json:"rules_id,omitempty"`
	InsightsID              string `json:"insights_id,omitempty"`
	GeneralKnowledgeBaseID  string `json:"general_knowledgebase_id,omitempty"`
	SpecificKnowledgeBaseID string `json:"specific_knowledgebase_id,omitempty"`
}

// Flow is an outreach campaign joining contacts to a script and settings.
type Flow struct {
	Name             string           `json:"name,omitempty"`
	FlowType         string           `json:"flow_type"`
	OrganizationID   string           `json:"organization_id"`
	PromptParameters PromptParameters `json:"prompt_parameters"`
	CallSettings     CallSettings     `json:"call_settings"`
	MaxAttempts      int              `json:"maxAttempts,omitempty"`
	Status           string           `json:"status,omitempty"`
	ScheduledFor     *time.Time       `json:"scheduled_for,omitempty"`
	ValueLink        string           `json:"value_link,omitempty"`
	LeadEmail        string           `json:"lead_email,omitempty"`
	LeadSource       string           `json:"lead_source,omitempty"`
	UpdatedAt        *time.Time       `json:"updated_at,omitempty"`
}

// Script holds the conversational content of a flow.
type Script struct {
	PathwayID          string `json:"pathway_id,omitempty"`
	PromptLogic        string `json:"prompt_logic,omitempty"`
	DefaultPromptStart string `json:"default_prompt_start,omitempty"`
	Prompt             string `json:"prompt,omitempty"`
	DefaultPromptEnd   string `json:"default_prompt_end,omitempty"`
	Voicemail          string `json:"voicemail,omitempty"`
	Context            string `json:"context,omitempty"`
}

// Rules constrain assistant behaviour. Older documents carry a single
// joined string, newer ones separate rules and guidelines.
type Rules struct {
	RulesAndGuidelines string   `json:"rules_and_guidelines,omitempty"`
	Rules              []string `json:"rules,omitempty"`
	Guidelines         []string `json:"guidelines,omitempty"`
}

// Text flattens either document shape into one newline-joined block.
func (r Rules) Text() string {
	if r.RulesAndGuidelines != "" {
		return r.RulesAndGuidelines
	}
	parts := make([]string, 0, len(r.Rules)+len(r.Guidelines))
	parts = append(parts, r.Rules...)
	parts = append(parts, r.Guidelines...)
	return joinNonEmpty(parts, "\n")
}

// KnowledgeBaseEntry is one Q&A pair.
type KnowledgeBaseEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// KnowledgeBase holds background Q&A material for prompts.
type KnowledgeBase struct {
	Entries []KnowledgeBaseEntry `json:"knowledge_base,omitempty"`
	Text    string               `json:"knowledge_base_text,omitempty"`
}

// MergeKnowledgeBases overlays the specific KB on the general one. Specific
// fields win when present.
func MergeKnowledgeBases(general, specific KnowledgeBase) KnowledgeBase {
	out := general
	if len(specific.Entries) > 0 {
		out.Entries = specific.Entries
	}
	if specific.Text != "" {
		out.Text = specific.Text
	}
	return out
}

// Insights describe what post-call analysis should extract.
type Insights struct {
	ScriptContext     string            `json:"script_context,omitempty"`
	QuestionsToAnswer map[string]string `json:"questions_to_answer,omitempty"`
	Outcomes          map[string]string `json:"outcomes,omitempty"`
}

// CallAnalysis is the structured result of post-call analysis.
type CallAnalysis struct {
	Outcome string            `json:"outcome,omitempty"`
	Answers map[string]string `json:"answers,omitempty"`
	Summary string            `json:"summary,omitempty"`
}

// Call is the record of one call attempt, keyed by the provider's call ID.
type Call struct {
	CallID                 string          `json:"call_id"`
	OrganizationID         string          `json:"organization_id,omitempty"`
	ContactID              string          `json:"contact_id,omitempty"`
	FlowID                 string          `json:"flow_id,omitempty"`
	OriginalRequest        map[string]any  `json:"original_request,omitempty"`
	Response               string          `json:"response,omitempty"`
	CallTimestamp          *time.Time      `json:"callTimestamp,omitempty"`
	ToNumber               string          `json:"to_number,omitempty"`
	FromNumber             string          `json:"from_number,omitempty"`
	Language               string          `json:"language,omitempty"`
	Completed              bool            `json:"completed,omitempty"`
	Inbound                bool            `json:"inbound,omitempty"`
	QueueStatus            string          `json:"queue_status,omitempty"`
	EndpointURL            string          `json:"endpoint_url,omitempty"`
	MaxDuration            float64         `json:"max_duration,omitempty"`
	ErrorMessage           string          `json:"error_message,omitempty"`
	AnsweredBy             string          `json:"answered_by,omitempty"`
	RecordingURL           string          `json:"recording_url,omitempty"`
	ConcatenatedTranscript string          `json:"concatenated_transcript,omitempty"`
	Status                 string          `json:"status,omitempty"`
	CallLength             float64         `json:"call_length,omitempty"`
	CorrectedDuration      string          `json:"corrected_duration,omitempty"`
	EndAt                  *time.Time      `json:"end_at,omitempty"`
	CallCost               float64         `json:"call_cost,omitempty"`
	CallAnalysis           *CallAnalysis   `json:"call_analysis,omitempty"`
	IsTest                 bool            `json:"is_test,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
	ProcessedAt            *time.Time      `json:"processed_at,omitempty"`
}

// FlowContact is a membership row joining a flow to a contact, with the
// scheduling flag the batch scheduler maintains.
type FlowContact struct {
	FlowID      string    `json:"flow_id"`
	ContactID   string    `json:"contact_id"`
	IsScheduled bool      `json:"isScheduled"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LiveTransfer records an inbound live-transfer request.
type LiveTransfer struct {
	From           string    `json:"from"`
	To             string    `json:"to"`
	TransferNumber string    `json:"transfer_number"`
	ReasonSay      string    `json:"reason_say,omitempty"`
	FromName       string    `json:"from_name,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	RequestHash    string    `json:"request_hash"`
	Processed      bool      `json:"processed"`
	Answered       bool      `json:"answered"`
	CreatedAt      time.Time `json:"created_at"`
}

func joinNonEmpty(parts []string, sep string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += sep
		}
		out += p
	}
	return out
}
