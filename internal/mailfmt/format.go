// Package mailfmt renders email fields for the terminal.
package mailfmt

import (
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/nhle/outreach-inbox/internal/model"
)

// NoContent is shown when a message has neither an HTML nor a text body.
const NoContent = "No content available"

// NoSubject is shown for messages with an empty subject.
const NoSubject = "(no subject)"

// strictPolicy removes every tag, keeping only text.
var strictPolicy = bluemonday.StrictPolicy()

var (
	lineBreakTags = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockEndTags  = regexp.MustCompile(`(?i)</(p|div|li|tr|h[1-6]|blockquote|pre|table)\s*>`)
	listItemTags  = regexp.MustCompile(`(?i)<li(\s[^>]*)?>`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// Addresses formats a list as "Name <addr>, addr2".
func Addresses(list []model.EmailAddress) string {
	parts := make([]string, 0, len(list))
	for _, a := range list {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}

// Subject returns s, or a placeholder when it is blank.
func Subject(s string) string {
	if strings.TrimSpace(s) == "" {
		return NoSubject
	}
	return s
}

// ReplySubject derives the subject of a reply.
func ReplySubject(s string) string {
	return "Re: " + s
}

// HTMLToText converts an HTML body to plain text, keeping paragraph and
// line breaks.
func HTMLToText(s string) string {
	s = lineBreakTags.ReplaceAllString(s, "\n")
	s = blockEndTags.ReplaceAllString(s, "\n")
	s = listItemTags.ReplaceAllString(s, "• ")
	s = html.UnescapeString(strictPolicy.Sanitize(s))

	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Body picks the rendering to display: HTML when present, else text with
// its newlines preserved, else NoContent.
func Body(b model.EmailBody) string {
	if strings.TrimSpace(b.HTML) != "" {
		if text := HTMLToText(b.HTML); text != "" {
			return text
		}
	}
	if strings.TrimSpace(b.Text) != "" {
		return strings.TrimRight(strings.ReplaceAll(b.Text, "\r\n", "\n"), "\n")
	}
	return NoContent
}

// Timestamp formats the creation time of e in local time, or "" when
// unknown.
func Timestamp(e model.Email) string {
	t, ok := e.CreatedAt()
	if !ok {
		return ""
	}
	return t.Local().Format("Jan 2, 2006 3:04 PM")
}

// ShortTime formats a list-row time relative to now: the clock time for
// today, the month and day within the year, the full date otherwise.
func ShortTime(e model.Email, now time.Time) string {
	t, ok := e.CreatedAt()
	if !ok {
		return ""
	}
	t = t.In(now.Location())
	switch {
	case sameDay(t, now):
		return t.Format("3:04 PM")
	case t.Year() == now.Year():
		return t.Format("Jan 2")
	default:
		return t.Format("Jan 2, 2006")
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
