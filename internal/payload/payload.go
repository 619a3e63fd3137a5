package payload

import "outreach_backend/internal/secrets"

// Actions the provider supports when a voicemail box answers.
const voicemailActionLeaveMessage = "leave_message"

// RequestData is contextual material the provider passes through to the
// live conversation.
type RequestData struct {
	StartSentence     string `json:"start_sentence,omitempty"`
	AssistantInfo     string `json:"assistant_info,omitempty"`
	ContactInfo       string `json:"contact_info,omitempty"`
	OrganizationInfo  string `json:"organization_info,omitempty"`
	KnowledgeBaseInfo string `json:"knowledge_base_info,omitempty"`
	PathwayTransfer   string `json:"pathway_transfer,omitempty"`
	Context           string `json:"context,omitempty"`
	ValueLink         string `json:"value_link,omitempty"`
}

// Metadata rides along with the call and comes back on the webhook.
type Metadata struct {
	OrganizationID string `json:"organization_id"`
	ContactID      string `json:"contact_id,omitempty"`
	FlowID         string `json:"flow_id,omitempty"`
	IsTest         bool   `json:"is_test,omitempty"`
}

// Retry tells the provider to redial once and leave a voicemail if the
// retry also goes unanswered.
type Retry struct {
	Wait             int    `json:"wait"`
	VoicemailAction  string `json:"voicemail_action"`
	VoicemailMessage string `json:"voicemail_message"`
}

// Payload is the request body for the provider's call endpoint.
// TransferPhoneNumber and Language are pointers without omitempty: unset
// values must serialize as an explicit null, not a default.
type Payload struct {
	PhoneNumber           string                       `json:"phone_number"`
	Task                  string                       `json:"task,omitempty"`
	Model                 string                       `json:"model"`
	TransferPhoneNumber   *string                      `json:"transfer_phone_number"`
	AnsweredByEnabled     bool                         `json:"answered_by_enabled"`
	EncryptedKey          string                       `json:"encrypted_key,omitempty"`
	From                  string                       `json:"from,omitempty"`
	PronunciationGuide    []secrets.PronunciationEntry `json:"pronunciation_guide,omitempty"`
	Temperature           float64                      `json:"temperature"`
	Voice                 string                       `json:"voice"`
	Webhook               string                       `json:"webhook"`
	WaitForGreeting       bool                         `json:"wait_for_greeting"`
	FirstSentence         string                       `json:"first_sentence,omitempty"`
	Record                bool                         `json:"record"`
	Language              *string                      `json:"language"`
	MaxDuration           int                          `json:"max_duration"`
	InterruptionThreshold float64                      `json:"interruption_threshold"`
	VoiceSettings         map[string]any               `json:"voice_settings,omitempty"`
	RequestData           RequestData                  `json:"request_data"`
	Metadata              Metadata                     `json:"metadata"`
	PathwayID             string                       `json:"pathway_id,omitempty"`
	VoicemailMessage      string                       `json:"voicemail_message,omitempty"`
	VoicemailAction       string                       `json:"voicemail_action,omitempty"`
	Retry                 *Retry                       `json:"retry,omitempty"`
}
