package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/nhle/outreach-inbox/internal/model"
)

// EmailQuery holds the filters accepted by GET /api/emails. Empty fields
// are omitted from the request.
type EmailQuery struct {
	PreviewOnly bool
	LeadEmail   string
	CampaignID  string
	EmailType   string
	Label       string
}

func (q EmailQuery) values() url.Values {
	v := url.Values{}
	v.Set("preview_only", strconv.FormatBool(q.PreviewOnly))
	setIf(v, "lead_email", q.LeadEmail)
	setIf(v, "campaign_id", q.CampaignID)
	setIf(v, "email_type", q.EmailType)
	setIf(v, "label", q.Label)
	return v
}

// ListEmails fetches emails matching q. When q.PreviewOnly is set the
// returned records are marked as previews.
func (c *Client) ListEmails(ctx context.Context, q EmailQuery) ([]model.Email, error) {
	var emails []model.Email
	if err := c.get(ctx, "/api/emails", q.values(), &emails); err != nil {
		return nil, err
	}
	if q.PreviewOnly {
		for i := range emails {
			emails[i].Preview = true
		}
	}
	return emails, nil
}

// SendEmail sends a new message or, with ReplyToID set, a reply.
func (c *Client) SendEmail(ctx context.Context, req model.SendEmailRequest) error {
	return c.post(ctx, "/api/emails/send", nil, req, nil)
}

// MarkThreadRead marks every message of a thread as read. Marking an
// already-read thread is a no-op on the backend.
func (c *Client) MarkThreadRead(ctx context.Context, threadID string) error {
	return c.post(ctx, "/api/emails/mark-read/"+url.PathEscape(threadID), nil, nil, nil)
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

// UnreadCount returns the number of unread emails.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var resp unreadCountResponse
	if err := c.get(ctx, "/api/emails/unread/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// ListLabels returns the labels the backend accepts.
func (c *Client) ListLabels(ctx context.Context) ([]string, error) {
	var labels []string
	if err := c.get(ctx, "/api/labels", nil, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// UpdateLabel sets the label of one email.
func (c *Client) UpdateLabel(ctx context.Context, emailID, label string) error {
	q := url.Values{}
	q.Set("label", label)
	return c.post(ctx, "/api/emails/"+url.PathEscape(emailID)+"/label", q, nil, nil)
}

func setIf(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}
