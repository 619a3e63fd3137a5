package payload

import (
	"fmt"
	"strings"
	"time"
)

var voicemailBodies = []string{
	"I was reaching out to see how things are going and whether there is anything we can help you with.",
	"I wanted to touch base about your recent inquiry and see if you had any questions for us.",
	"I was giving you a quick call to follow up and see if now might be a good time to connect.",
	"I wanted to check in and see if you are still interested in moving forward with us.",
	"I was calling to share a quick update and see if there is a good time to chat this week.",
}

var voicemailEndings = []string{
	"Feel free to call us back whenever works for you. Have an amazing rest of your %s!",
	"Give us a ring back when you get a chance. Enjoy the rest of your %s!",
	"We would love to hear back from you. Have a wonderful rest of your %s!",
	"Call us back anytime, we are happy to help. Have a great rest of your %s!",
	"Hope to talk soon. Have a fantastic rest of your %s!",
}

// voicemailMessage assembles the message left on a contact's voicemail:
// a personalized greeting, the script's voicemail body (or a rotating
// canned one), and a friendly sign-off keyed to the day of the week.
func (f *Factory) voicemailMessage(firstName, assistantName, companyName, scriptVoicemail, timezone string, now time.Time) string {
	day, part := dayTime(timezone, now)

	greeting := "Hey there, "
	if name := strings.TrimSpace(firstName); name != "" {
		greeting = fmt.Sprintf("Hey there %s, ", name)
	}

	intro := fmt.Sprintf("This is %s with %s. I hope you are having a great %s %s. ",
		assistantName, companyName, strings.ToLower(day), part)

	body := strings.TrimSpace(scriptVoicemail)
	if body == "" {
		body = voicemailBodies[f.randInt(len(voicemailBodies))]
	}

	ending := fmt.Sprintf(voicemailEndings[f.randInt(len(voicemailEndings))], timePhrase(day))

	return greeting + intro + body + " " + ending
}
