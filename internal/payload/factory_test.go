package payload

import (
	"strings"
	"testing"
	"time"

	"outreach_backend/internal/secrets"
	"outreach_backend/internal/store"
)

// Tuesday 09:00 UTC
var tuesdayMorning = time.Date(2025, time.March, 11, 9, 0, 0, 0, time.UTC)

// Friday 15:00 UTC
var fridayAfternoon = time.Date(2025, time.March, 14, 15, 0, 0, 0, time.UTC)

func testFactory(now time.Time) *Factory {
	return NewFactory(
		secrets.BuiltinDefaults(),
		nil,
		"https://example.com/webhook",
		"https://example.com/webhook-test",
		WithClock(func() time.Time { return now }),
		WithRandInt(func(n int) int { return 0 }),
	)
}

func testInput() Input {
	return Input{
		OrganizationID: "org-1",
		ContactID:      "contact-1",
		FlowID:         "flow-1",
		Org: &store.Organization{
			Name:          "Acme Realty",
			Timezone:      "UTC",
			AssistantName: "Sky",
			PhoneNumbers:  store.OrgPhoneNumbers{Outbound: "15125550000"},
		},
		Contact: &store.Contact{
			FirstName:   "Alex",
			PhoneNumber: "15125550100",
		},
		Flow: &store.Flow{
			FlowType: store.FlowTypeConvert,
		},
		Script: &store.Script{
			Prompt: "Talk to the lead about their inquiry.",
		},
	}
}

func TestSelectKind(t *testing.T) {
	cases := []struct {
		name        string
		flowType    string
		callCounter int
		isTest      bool
		hasPathway  bool
		want        Kind
	}{
		{"convert first call", store.FlowTypeConvert, 0, false, false, KindConvertVoicemail},
		{"convert first call test", store.FlowTypeConvert, 0, true, false, KindStandard},
		{"convert second call", store.FlowTypeConvert, 1, false, false, KindStandard},
		{"convert second call with pathway", store.FlowTypeConvert, 1, false, true, KindPathway},
		{"engage always voicemail", store.FlowTypeEngage, 3, false, true, KindVoicemail},
		{"revive standard", store.FlowTypeRevive, 0, false, false, KindStandard},
		{"revive pathway", store.FlowTypeRevive, 0, false, true, KindPathway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SelectKind(tc.flowType, tc.callCounter, tc.isTest, tc.hasPathway)
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestBuildConvertVoicemail(t *testing.T) {
	f := testFactory(tuesdayMorning)

	p, err := f.Build(KindConvertVoicemail, testInput())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if p.Retry == nil {
		t.Fatal("expected a retry block")
	}
	if p.Retry.Wait != 10 {
		t.Fatalf("expected retry wait 10, got %d", p.Retry.Wait)
	}
	if p.Retry.VoicemailAction != "leave_message" {
		t.Fatalf("expected voicemail_action leave_message, got %q", p.Retry.VoicemailAction)
	}
	if p.Retry.VoicemailMessage == "" {
		t.Fatal("expected a voicemail message on the retry block")
	}
	if p.Task != "" {
		t.Fatalf("expected no task on a pathway-capable variant, got %q", p.Task)
	}
	if p.MaxDuration != 60 {
		t.Fatalf("expected max_duration 60, got %d", p.MaxDuration)
	}
	if !p.WaitForGreeting {
		t.Fatal("expected wait_for_greeting")
	}
}

func TestBuildEngageVoicemail(t *testing.T) {
	f := testFactory(tuesdayMorning)
	in := testInput()
	in.Flow.FlowType = store.FlowTypeEngage

	p, err := f.Build(KindVoicemail, in)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if p.MaxDuration != 60 {
		t.Fatalf("expected max_duration 60, got %d", p.MaxDuration)
	}
	if p.VoicemailAction != "leave_message" {
		t.Fatalf("expected voicemail_action leave_message, got %q", p.VoicemailAction)
	}
	if p.VoicemailMessage == "" {
		t.Fatal("expected a voicemail message")
	}
	if p.Retry != nil {
		t.Fatal("expected no retry block on the voicemail variant")
	}
}

func TestBuildStandardDefaults(t *testing.T) {
	f := testFactory(tuesdayMorning)

	p, err := f.Build(KindStandard, testInput())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if p.Model != "enhanced" {
		t.Fatalf("expected default model enhanced, got %q", p.Model)
	}
	if p.Temperature != 0.5 {
		t.Fatalf("expected default temperature 0.5, got %v", p.Temperature)
	}
	if p.MaxDuration != 300 {
		t.Fatalf("expected default max_duration 300, got %d", p.MaxDuration)
	}
	if p.Webhook != "https://example.com/webhook" {
		t.Fatalf("unexpected webhook %q", p.Webhook)
	}
	if p.Task == "" {
		t.Fatal("expected a task on the standard variant")
	}
	if p.Metadata.OrganizationID != "org-1" || p.Metadata.ContactID != "contact-1" || p.Metadata.FlowID != "flow-1" {
		t.Fatalf("unexpected metadata: %+v", p.Metadata)
	}
}

func TestBuildTestCallUsesTestWebhook(t *testing.T) {
	f := testFactory(tuesdayMorning)
	in := testInput()
	in.IsTest = true

	p, err := f.Build(KindStandard, in)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if p.Webhook != "https://example.com/webhook-test" {
		t.Fatalf("expected test webhook, got %q", p.Webhook)
	}
	if !p.Metadata.IsTest {
		t.Fatal("expected is_test metadata")
	}
}

func TestBuildPathwayClearsTask(t *testing.T) {
	f := testFactory(tuesdayMorning)
	in := testInput()
	in.Script.PathwayID = "pathway-7"

	p, err := f.Build(KindPathway, in)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if p.PathwayID != "pathway-7" {
		t.Fatalf("expected pathway_id pathway-7, got %q", p.PathwayID)
	}
	if p.Task != "" {
		t.Fatalf("expected no task with a pathway, got %q", p.Task)
	}
}

func TestTransferPhoneNumberValidation(t *testing.T) {
	f := testFactory(tuesdayMorning)

	short := "555-1234"
	in := testInput()
	in.Settings.TransferPhoneNumber = &short

	p, err := f.Build(KindStandard, in)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if p.TransferPhoneNumber != nil {
		t.Fatalf("expected nil transfer number for a short input, got %q", *p.TransferPhoneNumber)
	}

	valid := "(512) 555-0100"
	in.Settings.TransferPhoneNumber = &valid

	p, err = f.Build(KindStandard, in)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if p.TransferPhoneNumber == nil || *p.TransferPhoneNumber != "5125550100" {
		t.Fatalf("expected transfer number 5125550100, got %v", p.TransferPhoneNumber)
	}
}

func TestLanguagePassesThroughUnset(t *testing.T) {
	f := testFactory(tuesdayMorning)

	p, err := f.Build(KindStandard, testInput())
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if p.Language != nil {
		t.Fatalf("expected null language when no setting overrides it, got %q", *p.Language)
	}

	es := "es"
	in := testInput()
	in.Settings.Language = &es

	p, err = f.Build(KindStandard, in)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if p.Language == nil || *p.Language != "es" {
		t.Fatalf("expected language es from call settings, got %v", p.Language)
	}
}

func TestFirstSentenceWithName(t *testing.T) {
	got := firstSentence("Alex", "UTC", tuesdayMorning)
	want := "Hey there, happy Tuesday morning, is this Alex?"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFirstSentenceWithoutName(t *testing.T) {
	got := firstSentence("", "UTC", fridayAfternoon)
	want := "Hey there, happy Friday, how are you doing this afternoon?"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestVoicemailTimePhrase(t *testing.T) {
	f := testFactory(fridayAfternoon)
	in := testInput()

	p, err := f.Build(KindVoicemail, in)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if !strings.Contains(p.VoicemailMessage, "rest of your weekend!") {
		t.Fatalf("expected a weekend sign-off on Friday, got %q", p.VoicemailMessage)
	}
	if !strings.Contains(p.VoicemailMessage, "Hey there Alex, ") {
		t.Fatalf("expected a personalized greeting, got %q", p.VoicemailMessage)
	}
	if !strings.Contains(p.VoicemailMessage, "This is Sky with Acme Realty.") {
		t.Fatalf("expected the assistant intro, got %q", p.VoicemailMessage)
	}
}

func TestBuildIncompleteInput(t *testing.T) {
	f := testFactory(tuesdayMorning)
	in := testInput()
	in.Script = nil

	if _, err := f.Build(KindStandard, in); err == nil {
		t.Fatal("expected an error for incomplete input")
	}
}
