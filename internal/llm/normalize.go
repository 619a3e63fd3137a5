// Package llm runs post-call language-model analysis: outcome
// classification and insight extraction over call transcripts.
package llm

import "strings"

// NormalizeStatus canonicalizes a model-reported call status for
// comparison: lowercase, alphanumerics only, no spaces. "No Answer!"
// becomes "noanswer".
func NormalizeStatus(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}
