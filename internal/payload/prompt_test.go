package payload

import (
	"strings"
	"testing"

	"outreach_backend/internal/store"
)

func TestBuildTaskSectionOrder(t *testing.T) {
	in := Input{
		Org: &store.Organization{
			Name:          "Acme Realty",
			AssistantName: "Sky",
		},
		Contact: &store.Contact{FirstName: "Alex"},
		Flow:    &store.Flow{},
		Script: &store.Script{
			PromptLogic:        "LOGIC",
			DefaultPromptStart: "START",
			Prompt:             "BODY",
			DefaultPromptEnd:   "END",
		},
		Rules: &store.Rules{RulesAndGuidelines: "RULES"},
	}

	task := buildTask(in)

	markers := []string{"RULES", "LOGIC", "START", "BODY", "END", "Organization Information:", "Contact Information:", "Your name is Sky"}
	last := -1
	for _, marker := range markers {
		idx := strings.Index(task, marker)
		if idx < 0 {
			t.Fatalf("section %q missing from task:\n%s", marker, task)
		}
		if idx < last {
			t.Fatalf("section %q out of order in task:\n%s", marker, task)
		}
		last = idx
	}
}

func TestBuildTaskSanitizesHTML(t *testing.T) {
	in := Input{
		Org:     &store.Organization{Name: "Acme"},
		Contact: &store.Contact{FirstName: "Alex"},
		Flow:    &store.Flow{},
		Script: &store.Script{
			Prompt: "<p>Ask about the <b>house</b>.</p><p>Then close.</p>",
		},
	}

	task := buildTask(in)

	if strings.Contains(task, "<") {
		t.Fatalf("expected tags stripped, got %q", task)
	}
	if !strings.Contains(task, "Ask about the house.\nThen close.") {
		t.Fatalf("expected paragraph break preserved as newline, got %q", task)
	}
}

func TestKnowledgeBaseInfoFormat(t *testing.T) {
	kb := store.KnowledgeBase{
		Entries: []store.KnowledgeBaseEntry{
			{Question: "What areas do you cover?", Answer: "All of Travis county."},
			{Question: "Do you charge fees?", Answer: "No upfront fees."},
		},
	}

	got := knowledgeBaseInfo(kb)
	want := "Knowledge Base Q&A:\n" +
		"Q: What areas do you cover?\n" +
		"A: All of Travis county.\n\n" +
		"Q: Do you charge fees?\n" +
		"A: No upfront fees."
	if got != want {
		t.Fatalf("expected:\n%q\ngot:\n%q", want, got)
	}
}

func TestKnowledgeBaseInfoEmpty(t *testing.T) {
	if got := knowledgeBaseInfo(store.KnowledgeBase{}); got != "" {
		t.Fatalf("expected empty knowledge base section, got %q", got)
	}
}

func TestContactInfoSkipsEmptyFields(t *testing.T) {
	if got := contactInfo(&store.Contact{}); got != "" {
		t.Fatalf("expected empty contact section for an empty contact, got %q", got)
	}

	got := contactInfo(&store.Contact{
		FirstName: "Alex",
		Address:   &store.Address{City: "Austin"},
	})
	if !strings.Contains(got, "First name: Alex") || !strings.Contains(got, "City: Austin") {
		t.Fatalf("unexpected contact section: %q", got)
	}
	if strings.Contains(got, "Last name") {
		t.Fatalf("expected absent fields skipped, got %q", got)
	}
}
