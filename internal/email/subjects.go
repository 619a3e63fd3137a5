package email

const (
	subjectAnsweredCall    = "Your assistant just finished an answered call"
	subjectAnsweredCallFmt = "Your assistant just spoke with %s"
)
