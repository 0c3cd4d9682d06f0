package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) *string { return &s }

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress(" Ada Lovelace <ada@example.com> ")
	require.NoError(t, err)
	assert.Equal(t, EmailAddress{Address: "ada@example.com", Name: "Ada Lovelace"}, a)
	assert.Equal(t, "Ada Lovelace <ada@example.com>", a.String())

	a, err = ParseAddress("bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", a.String())

	_, err = ParseAddress("bob at example")
	assert.Error(t, err)
}

func TestEmail_CreatedAt(t *testing.T) {
	tests := []struct {
		name  string
		value *string
		ok    bool
	}{
		{"missing", nil, false},
		{"empty", ts(""), false},
		{"rfc3339", ts("2024-03-01T10:00:00Z"), true},
		{"fractional no zone", ts("2024-03-01T10:00:00.123456"), true},
		{"space separated", ts("2024-03-01 10:00:00"), true},
		{"garbage", ts("yesterday"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := Email{TimestampCreated: tt.value}.CreatedAt()
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestEmail_SenderName(t *testing.T) {
	e := Email{FromAddressEmail: "ada@example.com"}
	assert.Equal(t, "ada@example.com", e.SenderName())

	e.FromAddresses = []EmailAddress{{Address: "ada@example.com", Name: "Ada"}}
	assert.Equal(t, "Ada", e.SenderName())
}

func TestThreadAncestors(t *testing.T) {
	thread := []Email{
		{ID: "a", TimestampCreated: ts("2024-01-01T09:00:00Z")},
		{ID: "focal", TimestampCreated: ts("2024-01-03T09:00:00Z")},
		{ID: "undated"},
		{ID: "c", TimestampCreated: ts("2024-01-02T09:00:00Z")},
	}

	got := ThreadAncestors(thread, "focal")
	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"c", "a", "undated"}, ids)
	assert.Empty(t, ThreadAncestors(nil, "focal"))
}

func TestProperty_ThreadAncestors(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	build := func(offsets []int, focal int) ([]Email, string) {
		thread := make([]Email, len(offsets))
		for i, off := range offsets {
			thread[i].ID = fmt.Sprintf("m%d", i)
			// Negative offsets model entries without a timestamp.
			if off >= 0 {
				thread[i].TimestampCreated = ts(base.Add(time.Duration(off) * time.Hour).Format(time.RFC3339))
			}
		}
		if len(thread) == 0 {
			return thread, "none"
		}
		return thread, thread[focal%len(thread)].ID
	}

	offsets := gen.SliceOf(gen.IntRange(-3, 500))

	properties.Property("focal message is excluded", prop.ForAll(
		func(offs []int, focal int) bool {
			thread, id := build(offs, focal)
			got := ThreadAncestors(thread, id)
			for _, e := range got {
				if e.ID == id {
					return false
				}
			}
			want := len(thread)
			if want > 0 {
				want--
			}
			return len(got) == want
		},
		offsets, gen.IntRange(0, 1000),
	))

	properties.Property("ordered newest first with undated last", prop.ForAll(
		func(offs []int, focal int) bool {
			thread, id := build(offs, focal)
			got := ThreadAncestors(thread, id)
			seenUndated := false
			for i, e := range got {
				at, ok := e.CreatedAt()
				if !ok {
					seenUndated = true
					continue
				}
				if seenUndated {
					return false
				}
				if i > 0 {
					prev, _ := got[i-1].CreatedAt()
					if at.After(prev) {
						return false
					}
				}
			}
			return true
		},
		offsets, gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

func TestLabelDisplayName(t *testing.T) {
	assert.Equal(t, "Meeting Booked", LabelDisplayName(LabelMeetingBooked))
	assert.Equal(t, "Interested", LabelDisplayName(LabelInterested))
	assert.Equal(t, "All", LabelDisplayName(""))
}

func TestIsFilterLabel(t *testing.T) {
	assert.True(t, IsFilterLabel(""))
	assert.True(t, IsFilterLabel(LabelNoResponse))
	assert.False(t, IsFilterLabel("interested"))
	assert.False(t, IsFilterLabel("SPAM"))
}

func TestLead(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", Lead{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", Lead{FirstName: "Ada"}.FullName())
	assert.Equal(t, "Lovelace", Lead{LastName: "Lovelace"}.FullName())

	assert.True(t, LeadStatusReplied.Known())
	assert.False(t, LeadStatus("ARCHIVED").Known())
}
