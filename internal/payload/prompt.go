package payload

import (
	"fmt"
	"strings"

	"outreach_backend/internal/store"
	"outreach_backend/platform/sanitize"
)

// buildTask assembles the call prompt. Section order is fixed: rules,
// prompt logic, prompt start, prompt body, prompt end, then the org,
// contact and assistant context, then knowledge base Q&A. Empty sections
// are skipped and HTML content is flattened to plain text.
func buildTask(in Input) string {
	sections := []string{
		rulesSection(in.Rules),
		in.Script.PromptLogic,
		in.Script.DefaultPromptStart,
		in.Script.Prompt,
		in.Script.DefaultPromptEnd,
		organizationInfo(in.Org),
		contactInfo(in.Contact),
		assistantInfo(in.Org),
	}

	parts := make([]string, 0, len(sections)+1)
	for _, section := range sections {
		text := sanitize.Text(section)
		if text != "" {
			parts = append(parts, text)
		}
	}
	// The knowledge base keeps its own blank-line layout, so it skips the
	// HTML flattening applied per section above.
	if kb := knowledgeBaseInfo(in.Knowledge); kb != "" {
		parts = append(parts, kb)
	}
	return strings.Join(parts, "\n")
}

func rulesSection(rules *store.Rules) string {
	if rules == nil {
		return ""
	}
	return rules.Text()
}

func organizationInfo(org *store.Organization) string {
	if org == nil {
		return ""
	}
	lines := []string{"Organization Information:", "Name: " + org.Name}
	if org.Info != "" {
		lines = append(lines, org.Info)
	}
	return strings.Join(lines, "\n")
}

func contactInfo(contact *store.Contact) string {
	if contact == nil {
		return ""
	}
	lines := []string{"Contact Information:"}
	if contact.FirstName != "" {
		lines = append(lines, "First name: "+contact.FirstName)
	}
	if contact.LastName != "" {
		lines = append(lines, "Last name: "+contact.LastName)
	}
	if contact.Email != "" {
		lines = append(lines, "Email: "+contact.Email)
	}
	if contact.Address != nil {
		if contact.Address.City != "" {
			lines = append(lines, "City: "+contact.Address.City)
		}
		if contact.Address.State != "" {
			lines = append(lines, "State: "+contact.Address.State)
		}
	}
	if len(lines) == 1 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func assistantInfo(org *store.Organization) string {
	if org == nil || org.AssistantName == "" {
		return ""
	}
	info := fmt.Sprintf("Your name is %s and you work for %s.", org.AssistantName, org.Name)
	if org.AssistantNamePronunciation != "" {
		info += fmt.Sprintf(" Your name is pronounced %s.", org.AssistantNamePronunciation)
	}
	return info
}

// knowledgeBaseInfo renders Q&A pairs in the fixed prompt format. The free
// text block, when present, follows the pairs.
func knowledgeBaseInfo(kb store.KnowledgeBase) string {
	if len(kb.Entries) == 0 && kb.Text == "" {
		return ""
	}

	var b strings.Builder
	if len(kb.Entries) > 0 {
		b.WriteString("Knowledge Base Q&A:\n")
		for _, entry := range kb.Entries {
			b.WriteString("Q: " + sanitize.Text(entry.Question) + "\n")
			b.WriteString("A: " + sanitize.Text(entry.Answer) + "\n\n")
		}
	}
	if kb.Text != "" {
		b.WriteString(kb.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}
