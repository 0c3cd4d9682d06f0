package model

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lead-qualification labels applied to emails by the backend.
const (
	LabelInterested    = "INTERESTED"
	LabelNotInterested = "NOT_INTERESTED"
	LabelMeetingBooked = "MEETING_BOOKED"
	LabelFollowUp      = "FOLLOW_UP"
	LabelWrongPerson   = "WRONG_PERSON"
	LabelQualified     = "QUALIFIED"
	LabelNotQualified  = "NOT_QUALIFIED"
	LabelContacted     = "CONTACTED"
	LabelResponded     = "RESPONDED"
	LabelNoResponse    = "NO_RESPONSE"
)

// FilterLabels is the closed set offered by the inbox label filter, in
// display order. The empty string (all labels) is not included.
var FilterLabels = []string{
	LabelInterested,
	LabelNotInterested,
	LabelMeetingBooked,
	LabelFollowUp,
	LabelWrongPerson,
	LabelQualified,
	LabelNotQualified,
	LabelContacted,
	LabelResponded,
	LabelNoResponse,
}

// IsFilterLabel reports whether label is a valid inbox filter value.
// The empty string means "all" and is valid.
func IsFilterLabel(label string) bool {
	if label == "" {
		return true
	}
	for _, l := range FilterLabels {
		if l == label {
			return true
		}
	}
	return false
}

var titleCaser = cases.Title(language.English)

// LabelDisplayName turns an upper snake-case label into title case,
// e.g. MEETING_BOOKED becomes "Meeting Booked".
func LabelDisplayName(label string) string {
	if label == "" {
		return "All"
	}
	words := strings.ToLower(strings.ReplaceAll(label, "_", " "))
	return titleCaser.String(words)
}
