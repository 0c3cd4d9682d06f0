package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorTeal   = lipgloss.AdaptiveColor{Dark: "#38D9A9", Light: "#2C7A7B"}
	ColorPurple = lipgloss.AdaptiveColor{Dark: "#B197FC", Light: "#6B46C1"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the top bar and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps the detail and form areas.
var PanelStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// TitleStyle renders message subjects and panel titles.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// FieldLabelStyle renders "From:", "To:" and similar captions.
var FieldLabelStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Width(6)

// UnreadStyle marks unread rows.
var UnreadStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// MutedStyle renders placeholders and secondary text.
var MutedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ErrorTextStyle renders inline error lines.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(ColorRed)

// BorderStyle provides a standard rounded border for panels.
var BorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// badge is the base for every inline pill.
var badge = lipgloss.NewStyle().Bold(true).Padding(0, 1)

// LeadStatusStyle returns a color-coded badge style for a lead status.
// Unknown statuses get the neutral gray badge.
func LeadStatusStyle(status string) lipgloss.Style {
	switch status {
	case "COMPLETED", "REPLIED":
		return badge.Foreground(ColorGreen)
	case "PENDING":
		return badge.Foreground(ColorYellow)
	case "NOT_CONTACTED":
		return badge.Foreground(ColorBlue)
	case "CONTACTED":
		return badge.Foreground(ColorTeal)
	case "BOUNCED":
		return badge.Foreground(ColorRed)
	case "UNSUBSCRIBED":
		return badge.Foreground(ColorPurple)
	case "RESCHEDULED":
		return badge.Foreground(ColorOrange)
	default:
		return badge.Foreground(ColorGray)
	}
}

// LabelStyle returns the badge style for an email qualification label.
func LabelStyle(label string) lipgloss.Style {
	switch label {
	case "INTERESTED", "MEETING_BOOKED", "QUALIFIED":
		return badge.Foreground(ColorGreen)
	case "NOT_INTERESTED", "WRONG_PERSON", "NOT_QUALIFIED":
		return badge.Foreground(ColorRed)
	case "FOLLOW_UP":
		return badge.Foreground(ColorOrange)
	case "CONTACTED", "RESPONDED":
		return badge.Foreground(ColorTeal)
	default:
		return badge.Foreground(ColorGray)
	}
}

// ToastStyle returns the status-area style for a notification kind.
func ToastStyle(kind string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)

	switch kind {
	case "success":
		return base.Foreground(ColorGreen)
	case "error":
		return base.Foreground(ColorRed)
	default:
		return base.Foreground(ColorBlue)
	}
}
