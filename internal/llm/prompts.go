package llm

import (
	"fmt"
	"sort"
	"strings"

	"outreach_backend/internal/store"
)

const classificationSystemPrompt = `You are analyzing the transcript of a phone call made by an AI assistant.
The transcript labels the assistant's lines with "assistant:" and the callee's lines with "user:".
Classify how the call ended. Respond with exactly one word from this list:
answered - a human answered and spoke with the assistant
voicemail - the call reached a voicemail or answering machine
no answer - nobody answered the call
Respond with only the classification, nothing else.`

// insightsPrompt builds the extraction instructions from a flow's insights
// document. The model must answer the configured questions, pick one of
// the configured outcomes, and summarize the call, as strict JSON.
func insightsPrompt(ins *store.Insights) string {
	var b strings.Builder

	b.WriteString("You are analyzing the transcript of a phone call made by an AI sales assistant.\n")
	if ins.ScriptContext != "" {
		b.WriteString("Context for the call:\n")
		b.WriteString(ins.ScriptContext)
		b.WriteString("\n\n")
	}

	if len(ins.QuestionsToAnswer) > 0 {
		b.WriteString("Answer the following questions based only on the transcript:\n")
		for _, key := range sortedKeys(ins.QuestionsToAnswer) {
			fmt.Fprintf(&b, "- %s: %s\n", key, ins.QuestionsToAnswer[key])
		}
		b.WriteString("\n")
	}

	if len(ins.Outcomes) > 0 {
		b.WriteString("Choose exactly one outcome from this list:\n")
		for _, key := range sortedKeys(ins.Outcomes) {
			fmt.Fprintf(&b, "- %s: %s\n", key, ins.Outcomes[key])
		}
		b.WriteString("\n")
	}

	b.WriteString(`Respond with strict JSON only, no markdown, in this shape:
{
  "outcome": "<one outcome key>",
  "answers": {"<question key>": "<answer>"},
  "summary": "<two sentence summary of the call>"
}`)

	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
