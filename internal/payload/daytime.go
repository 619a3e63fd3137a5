package payload

import (
	"strings"
	"time"
)

const defaultTimezone = "America/Chicago"

// dayTime returns the weekday name and coarse part of day ("morning" before
// noon, "afternoon" after) in the organization's timezone. An unknown or
// empty timezone falls back to the default.
func dayTime(timezone string, now time.Time) (day, part string) {
	if timezone == "" {
		timezone = defaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc, _ = time.LoadLocation(defaultTimezone)
	}

	local := now.In(loc)
	day = local.Weekday().String()
	if local.Hour() < 12 {
		part = "morning"
	} else {
		part = "afternoon"
	}
	return day, part
}

// timePhrase picks the closing phrase unit for voicemail endings. Late-week
// days wish the contact a good weekend.
func timePhrase(day string) string {
	switch day {
	case "Friday", "Saturday", "Sunday":
		return "weekend"
	default:
		return "week"
	}
}

// firstSentence builds the call opener. With a known first name the
// assistant confirms who picked up, otherwise it greets generically.
func firstSentence(firstName, timezone string, now time.Time) string {
	day, part := dayTime(timezone, now)
	name := strings.TrimSpace(firstName)
	if name != "" {
		return "Hey there, happy " + day + " " + part + ", is this " + name + "?"
	}
	return "Hey there, happy " + day + ", how are you doing this " + part + "?"
}
