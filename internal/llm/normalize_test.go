package llm

import "testing"

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"No Answer!", "noanswer"},
		{"answered", "answered"},
		{"Answered.", "answered"},
		{" Voicemail ", "voicemail"},
		{"VOICE-MAIL", "voicemail"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := NormalizeStatus(tc.in); got != tc.want {
			t.Fatalf("NormalizeStatus(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestStripJSONFences(t *testing.T) {
	fenced := "```json\n{\"outcome\": \"interested\"}\n```"
	if got := StripJSONFences(fenced); got != `{"outcome": "interested"}` {
		t.Fatalf("unexpected result %q", got)
	}

	bare := "```\n{\"a\":1}\n```"
	if got := StripJSONFences(bare); got != `{"a":1}` {
		t.Fatalf("unexpected result %q", got)
	}

	plain := `{"a":1}`
	if got := StripJSONFences(plain); got != plain {
		t.Fatalf("expected passthrough, got %q", got)
	}
}

func TestParseAnalysis(t *testing.T) {
	raw := "```json\n{\"outcome\": \"interested\", \"answers\": {\"budget\": \"500k\"}, \"summary\": \"Wants a call back.\"}\n```"

	analysis, err := ParseAnalysis(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if analysis.Outcome != "interested" {
		t.Fatalf("expected outcome interested, got %q", analysis.Outcome)
	}
	if analysis.Answers["budget"] != "500k" {
		t.Fatalf("unexpected answers: %v", analysis.Answers)
	}
	if analysis.Summary != "Wants a call back." {
		t.Fatalf("unexpected summary: %q", analysis.Summary)
	}
}

func TestParseAnalysisRejectsGarbage(t *testing.T) {
	if _, err := ParseAnalysis("the call went well"); err == nil {
		t.Fatal("expected an error for a non-JSON response")
	}
}
