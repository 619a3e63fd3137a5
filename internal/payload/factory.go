package payload

import (
	"math/rand/v2"
	"time"

	"outreach_backend/internal/secrets"
	"outreach_backend/internal/store"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/phone"
)

// Voicemail attempts are short: ring, leave the message, hang up.
const voicemailMaxDuration = 60

// Retry wait in seconds between the first ring and the voicemail redial
// on convert flows.
const convertRetryWait = 10

// Input carries everything a payload build needs, already fetched and
// merged by the caller.
type Input struct {
	OrganizationID string
	ContactID      string
	FlowID         string
	Org            *store.Organization
	Contact        *store.Contact
	Flow           *store.Flow
	Script         *store.Script
	Rules          *store.Rules
	Knowledge      store.KnowledgeBase
	Settings       store.CallSettings
	IsTest         bool
}

// Factory builds provider payloads. One factory serves every variant,
// parameterized by environment rather than duplicated per deployment.
type Factory struct {
	defaults           secrets.PayloadDefaults
	pronunciationGuide []secrets.PronunciationEntry
	webhookURL         string
	testWebhookURL     string
	now                func() time.Time
	randInt            func(n int) int
}

// Option configures a Factory.
type Option func(*Factory)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) { f.now = now }
}

// WithRandInt overrides the random source used for voicemail rotation.
func WithRandInt(fn func(n int) int) Option {
	return func(f *Factory) { f.randInt = fn }
}

// NewFactory creates a payload factory.
func NewFactory(defaults secrets.PayloadDefaults, guide []secrets.PronunciationEntry, webhookURL, testWebhookURL string, opts ...Option) *Factory {
	f := &Factory{
		defaults:           defaults,
		pronunciationGuide: guide,
		webhookURL:         webhookURL,
		testWebhookURL:     testWebhookURL,
		now:                time.Now,
		randInt:            rand.IntN,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Build produces the payload for the given variant.
func (f *Factory) Build(kind Kind, in Input) (*Payload, error) {
	if in.Org == nil || in.Contact == nil || in.Flow == nil || in.Script == nil {
		return nil, apperr.Internal("payload input is incomplete")
	}

	p := f.standard(in)

	switch kind {
	case KindStandard:
		return p, nil

	case KindPathway:
		f.applyPathway(p, in)
		return p, nil

	case KindVoicemail:
		f.applyPathway(p, in)
		p.VoicemailMessage = f.buildVoicemail(in)
		p.VoicemailAction = voicemailActionLeaveMessage
		p.MaxDuration = voicemailMaxDuration
		p.WaitForGreeting = true
		return p, nil

	case KindConvertVoicemail:
		f.applyPathway(p, in)
		p.Retry = &Retry{
			Wait:             convertRetryWait,
			VoicemailAction:  voicemailActionLeaveMessage,
			VoicemailMessage: f.buildVoicemail(in),
		}
		p.MaxDuration = voicemailMaxDuration
		p.WaitForGreeting = true
		return p, nil

	default:
		return nil, apperr.Internal("unknown payload kind " + string(kind))
	}
}

// standard builds the base payload every variant starts from.
func (f *Factory) standard(in Input) *Payload {
	now := f.now()
	settings := in.Settings
	opener := firstSentence(in.Contact.FirstName, in.Org.Timezone, now)

	var transfer *string
	if settings.TransferPhoneNumber != nil {
		if digits := phone.ValidateTransferNumber(*settings.TransferPhoneNumber); digits != "" {
			transfer = &digits
		}
	}

	webhook := f.webhookURL
	if in.IsTest && f.testWebhookURL != "" {
		webhook = f.testWebhookURL
	}

	p := &Payload{
		PhoneNumber:           in.Contact.PhoneNumber,
		Task:                  buildTask(in),
		Model:                 stringOr(settings.Model, f.defaults.Model),
		TransferPhoneNumber:   transfer,
		AnsweredByEnabled:     boolOr(settings.AnsweredByEnabled, true),
		EncryptedKey:          settings.EncryptedKey,
		From:                  in.Org.PhoneNumbers.Outbound,
		PronunciationGuide:    f.pronunciationGuide,
		Temperature:           floatOr(settings.Temperature, f.defaults.Temperature),
		Voice:                 stringOr(settings.Voice, f.defaults.Voice),
		Webhook:               webhook,
		WaitForGreeting:       boolOr(settings.WaitForGreeting, true),
		FirstSentence:         opener,
		Record:                boolOr(settings.Record, true),
		Language:              settings.Language,
		MaxDuration:           intOr(settings.MaxDuration, f.defaults.MaxDuration),
		InterruptionThreshold: floatOr(settings.InterruptionThreshold, f.defaults.InterruptionThreshold),
		VoiceSettings:         settings.VoiceSettings,
		RequestData: RequestData{
			StartSentence:     opener,
			AssistantInfo:     assistantInfo(in.Org),
			ContactInfo:       contactInfo(in.Contact),
			OrganizationInfo:  organizationInfo(in.Org),
			KnowledgeBaseInfo: knowledgeBaseInfo(in.Knowledge),
			PathwayTransfer:   derefOr(transfer, ""),
			Context:           in.Script.Context,
			ValueLink:         in.Flow.ValueLink,
		},
		Metadata: Metadata{
			OrganizationID: in.OrganizationID,
			ContactID:      in.ContactID,
			FlowID:         in.FlowID,
			IsTest:         in.IsTest,
		},
	}
	return p
}

// applyPathway switches a payload from prompt-driven to pathway-driven.
// The provider rejects requests carrying both a task and a pathway.
func (f *Factory) applyPathway(p *Payload, in Input) {
	p.PathwayID = in.Script.PathwayID
	p.Task = ""
}

func (f *Factory) buildVoicemail(in Input) string {
	return f.voicemailMessage(
		in.Contact.FirstName,
		in.Org.AssistantName,
		in.Org.Name,
		in.Script.Voicemail,
		in.Org.Timezone,
		f.now(),
	)
}

func stringOr(v *string, fallback string) string {
	if v != nil && *v != "" {
		return *v
	}
	return fallback
}

func floatOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

func intOr(v *int, fallback int) int {
	if v != nil && *v > 0 {
		return *v
	}
	return fallback
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}

func derefOr(v *string, fallback string) string {
	if v != nil {
		return *v
	}
	return fallback
}
