package help

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/outreach-inbox/internal/keys"
)

func TestViewListsGroups(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 160, 60)
	out := m.View()

	assert.Contains(t, out, "Keyboard Shortcuts")
	for _, name := range sections {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "reply")
	assert.Contains(t, out, "page size")
}
