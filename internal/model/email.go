package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
)

// EmailAddress is a single mailbox as exchanged with the backend.
type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// String formats the address as "Name <address>", or the bare address
// when no display name is set.
func (a EmailAddress) String() string {
	if a.Name == "" {
		return a.Address
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Address)
}

// ParseAddress parses a single RFC 5322 mailbox such as
// "Ada Lovelace <ada@example.com>" or "ada@example.com".
func ParseAddress(s string) (EmailAddress, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(s))
	if err != nil {
		return EmailAddress{}, fmt.Errorf("parsing address %q: %w", s, err)
	}
	return EmailAddress{Address: addr.Address, Name: addr.Name}, nil
}

// EmailBody holds the alternative renderings of a message body.
type EmailBody struct {
	Text string `json:"text,omitempty"`
	HTML string `json:"html,omitempty"`
}

// IsEmpty reports whether neither rendering is present.
func (b EmailBody) IsEmpty() bool {
	return b.Text == "" && b.HTML == ""
}

// Email is a message record owned by the backend. The client only holds
// read-only cached copies of it.
type Email struct {
	// ID is the backend identifier of the message.
	ID string `json:"id"`

	// MessageID is the RFC 5322 Message-ID header value.
	MessageID string `json:"message_id"`

	Subject          string         `json:"subject"`
	FromAddressEmail string         `json:"from_address_email"`
	FromAddresses    []EmailAddress `json:"from_address_json"`
	ToAddresses      []EmailAddress `json:"to_address_json"`
	CCAddresses      []EmailAddress `json:"cc_address_json,omitempty"`

	// TimestampCreated is an ISO-8601 string, or nil when the backend
	// does not know when the message was created.
	TimestampCreated *string `json:"timestamp_created,omitempty"`

	ContentPreview string    `json:"content_preview"`
	Body           EmailBody `json:"body"`

	Label      string `json:"label,omitempty"`
	CampaignID string `json:"campaign_id,omitempty"`
	LeadID     string `json:"lead_id,omitempty"`

	// ThreadID identifies the conversation. It is distinct from ID and
	// is the key used for read state.
	ThreadID string `json:"thread_id,omitempty"`
	IsUnread bool   `json:"is_unread,omitempty"`

	// Thread holds related messages. It may contain this message itself
	// and carries no ordering guarantee.
	Thread []Email `json:"thread,omitempty"`

	// Preview is true when the record came from a preview-only listing
	// and therefore lacks the full body.
	Preview bool `json:"-"`
}

// CreatedAt parses TimestampCreated. The second return is false when the
// timestamp is missing or unparseable.
func (e Email) CreatedAt() (time.Time, bool) {
	if e.TimestampCreated == nil || *e.TimestampCreated == "" {
		return time.Time{}, false
	}
	return ParseTimestamp(*e.TimestampCreated)
}

// SenderName returns the display name of the first sender, falling back
// to the sender address.
func (e Email) SenderName() string {
	if len(e.FromAddresses) > 0 && e.FromAddresses[0].Name != "" {
		return e.FromAddresses[0].Name
	}
	return e.FromAddressEmail
}

// timestampLayouts are the ISO-8601 variants the backend is known to emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp in any of the layouts the
// backend produces.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ThreadAncestors returns the thread entries to render beneath the message
// with id focalID: every entry except the focal message, newest first.
// Entries without a usable timestamp sort as if created at the Unix epoch,
// i.e. after every dated entry.
func ThreadAncestors(thread []Email, focalID string) []Email {
	out := make([]Email, 0, len(thread))
	for _, e := range thread {
		if e.ID == focalID {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return sortTime(out[i]).After(sortTime(out[j]))
	})
	return out
}

func sortTime(e Email) time.Time {
	if t, ok := e.CreatedAt(); ok {
		return t
	}
	return time.Unix(0, 0)
}

// SendEmailRequest is the payload for POST /api/emails/send.
type SendEmailRequest struct {
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	ReplyToID string `json:"reply_to_id,omitempty"`
}

// Email types accepted by the listing endpoint.
const (
	EmailTypeAll      = "all"
	EmailTypeSent     = "sent"
	EmailTypeReceived = "received"
)
