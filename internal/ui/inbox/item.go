package inbox

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/outreach-inbox/internal/mailfmt"
	"github.com/nhle/outreach-inbox/internal/model"
	"github.com/nhle/outreach-inbox/internal/theme"
)

// EmailItem wraps a model.Email so it can be used in a bubbles/list.
type EmailItem struct {
	Email model.Email
}

// FilterValue returns the string used for fuzzy filtering.
func (i EmailItem) FilterValue() string { return i.Email.Subject }

// Title returns the subject line.
func (i EmailItem) Title() string { return mailfmt.Subject(i.Email.Subject) }

// Description returns the sender and preview.
func (i EmailItem) Description() string {
	return i.Email.SenderName() + " | " + i.Email.ContentPreview
}

// EmailDelegate renders inbox rows on two lines: sender and time, then
// subject and preview.
type EmailDelegate struct {
	// now is stubbed in tests.
	now func() time.Time
}

// Height returns the number of lines each item takes.
func (d EmailDelegate) Height() int { return 2 }

// Spacing returns the number of blank lines between items.
func (d EmailDelegate) Spacing() int { return 1 }

// Update handles per-item messages (unused).
func (d EmailDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single inbox row.
func (d EmailDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ei, ok := item.(EmailItem)
	if !ok {
		return
	}
	e := ei.Email
	selected := index == m.Index()
	width := m.Width()

	now := time.Now()
	if d.now != nil {
		now = d.now()
	}

	marker := "  "
	senderStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	if e.IsUnread {
		marker = theme.UnreadStyle.Render("● ")
		senderStyle = theme.UnreadStyle
	}
	if selected {
		marker = lipgloss.NewStyle().Foreground(theme.ColorBlue).Render("▌ ")
	}

	stamp := mailfmt.ShortTime(e, now)
	var label string
	if e.Label != "" {
		label = " " + theme.LabelStyle(e.Label).Render(model.LabelDisplayName(e.Label))
	}

	sender := truncate(e.SenderName(), width-lipgloss.Width(stamp)-lipgloss.Width(label)-6)
	first := marker + senderStyle.Render(sender) + label
	if gap := width - lipgloss.Width(first) - lipgloss.Width(stamp) - 1; gap > 0 {
		first += strings.Repeat(" ", gap)
	}
	first += theme.MutedStyle.Render(stamp)

	subject := mailfmt.Subject(e.Subject)
	subjectStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	if selected {
		subjectStyle = subjectStyle.Bold(true)
	}
	rest := width - lipgloss.Width(subject) - 5
	preview := ""
	if rest > 3 && e.ContentPreview != "" {
		preview = theme.MutedStyle.Render(" - " + truncate(oneLine(e.ContentPreview), rest))
	}
	second := "  " + subjectStyle.Render(truncate(subject, width-4)) + preview

	fmt.Fprintf(w, "%s\n%s", first, second)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
