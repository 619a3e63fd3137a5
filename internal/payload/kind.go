// Package payload builds the request bodies sent to the voice-call
// provider: the prompt, the call parameters, and the variant-specific
// voicemail behaviour.
package payload

import "outreach_backend/internal/store"

// Kind identifies a payload variant.
type Kind string

const (
	// KindStandard is a plain prompt-driven call.
	KindStandard Kind = "standard"
	// KindPathway is a call driven by a conversational pathway.
	KindPathway Kind = "pathway"
	// KindVoicemail leaves a voicemail when nobody answers.
	KindVoicemail Kind = "voicemail"
	// KindConvertVoicemail is the first touch of a Convert flow: one ring
	// attempt, then a voicemail on no answer.
	KindConvertVoicemail Kind = "convert_voicemail"
)

// SelectKind chooses the payload variant for a call attempt.
//
// Convert flows lead with a voicemail-capable attempt on the very first
// call (unless the call is a test), Engage flows always leave voicemails,
// and everything else runs a standard or pathway call depending on whether
// the script carries a pathway.
func SelectKind(flowType string, callCounter int, isTest, hasPathway bool) Kind {
	switch flowType {
	case store.FlowTypeConvert:
		if callCounter == 0 && !isTest {
			return KindConvertVoicemail
		}
	case store.FlowTypeEngage:
		return KindVoicemail
	}
	if hasPathway {
		return KindPathway
	}
	return KindStandard
}
