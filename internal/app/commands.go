package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/outreach-inbox/internal/ui/command"
	"github.com/nhle/outreach-inbox/internal/ui/compose"
	"github.com/nhle/outreach-inbox/internal/ui/toast"
)

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(c command.CommandMsg) tea.Cmd {
	switch c.Name() {
	case command.Inbox, "i":
		m.switchTo(ViewInbox)
		return nil
	case command.Contacts, "leads":
		return m.showContacts()
	case command.Analytics, "stats":
		return m.showAnalytics()
	case command.Settings, "token":
		return m.showSettings()
	case command.Compose, "new":
		var p compose.Params
		if args := c.Args(); len(args) > 0 {
			p.To = args[0]
		}
		return m.openCompose(p)
	case command.Refresh, "sync":
		return m.refreshActive()
	case command.Help:
		m.switchTo(ViewHelp)
		return nil
	case command.Quit, "q":
		return m.quit()
	default:
		return toast.Error("Unknown command", string(c))
	}
}
