package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// handleGlobalKey processes keys that work across views. It reports
// false when the key belongs to the active view.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, m.quit(), true
	}

	if m.currentView == ViewCommand && msg.String() == "esc" {
		m.currentView = m.previousView
		return m, nil, true
	}
	if m.capturing() {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		switch m.currentView {
		case ViewInbox, ViewContacts, ViewAnalytics:
			return m, m.quit(), true
		}

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.switchTo(ViewHelp)
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		m.switchTo(ViewCommand)
		return m, m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Inbox):
		m.switchTo(ViewInbox)
		return m, nil, true

	case key.Matches(msg, m.keys.Contacts):
		return m, m.showContacts(), true

	case key.Matches(msg, m.keys.Analytics):
		return m, m.showAnalytics(), true

	case key.Matches(msg, m.keys.Settings):
		return m, m.showSettings(), true

	case key.Matches(msg, m.keys.Back):
		switch m.currentView {
		case ViewHelp:
			m.currentView = m.previousView
			return m, nil, true
		case ViewContacts, ViewAnalytics:
			m.switchTo(ViewInbox)
			return m, nil, true
		}
	}
	return m, nil, false
}
