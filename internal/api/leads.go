package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/nhle/outreach-inbox/internal/model"
)

// LeadQuery holds the filters, sort and page window for GET /api/leads.
type LeadQuery struct {
	CampaignID string
	Status     string
	Label      string
	Email      string
	FirstName  string
	LastName   string
	Page       int
	Limit      int
	Sort       string
	Direction  string
}

func (q LeadQuery) values() url.Values {
	v := url.Values{}
	setIf(v, "campaign_id", q.CampaignID)
	setIf(v, "status", q.Status)
	setIf(v, "label", q.Label)
	setIf(v, "email", q.Email)
	setIf(v, "first_name", q.FirstName)
	setIf(v, "last_name", q.LastName)
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	setIf(v, "sort", q.Sort)
	setIf(v, "direction", q.Direction)
	return v
}

// ListLeads fetches one page of contacts. A page longer than the
// requested limit is truncated so callers can rely on len(Data) <= Limit.
func (c *Client) ListLeads(ctx context.Context, q LeadQuery) (*model.LeadsPage, error) {
	var page model.LeadsPage
	if err := c.get(ctx, "/api/leads", q.values(), &page); err != nil {
		return nil, err
	}
	if page.Limit <= 0 {
		page.Limit = q.Limit
	}
	if page.Limit > 0 && len(page.Data) > page.Limit {
		page.Data = page.Data[:page.Limit]
	}
	if page.Page <= 0 {
		page.Page = q.Page
	}
	return &page, nil
}

// ListCampaigns returns every campaign visible to the account.
func (c *Client) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	var campaigns []model.Campaign
	if err := c.get(ctx, "/api/campaigns", nil, &campaigns); err != nil {
		return nil, err
	}
	return campaigns, nil
}

// GetAnalytics returns campaign statistics, optionally restricted to one
// campaign.
func (c *Client) GetAnalytics(ctx context.Context, campaignID string) (model.Analytics, error) {
	q := url.Values{}
	setIf(q, "campaign_id", campaignID)
	analytics := model.Analytics{}
	if err := c.get(ctx, "/api/analytics", q, &analytics); err != nil {
		return nil, err
	}
	return analytics, nil
}
