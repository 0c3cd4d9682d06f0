package model

// LeadStatus is the outreach progress of a lead within its campaign.
type LeadStatus string

const (
	LeadStatusSkipped      LeadStatus = "SKIPPED"
	LeadStatusCompleted    LeadStatus = "COMPLETED"
	LeadStatusPending      LeadStatus = "PENDING"
	LeadStatusNotContacted LeadStatus = "NOT_CONTACTED"
	LeadStatusContacted    LeadStatus = "CONTACTED"
	LeadStatusBounced      LeadStatus = "BOUNCED"
	LeadStatusReplied      LeadStatus = "REPLIED"
	LeadStatusUnsubscribed LeadStatus = "UNSUBSCRIBED"
	LeadStatusRescheduled  LeadStatus = "RESCHEDULED"
)

// LeadStatuses lists every known status in display order.
var LeadStatuses = []LeadStatus{
	LeadStatusSkipped,
	LeadStatusCompleted,
	LeadStatusPending,
	LeadStatusNotContacted,
	LeadStatusContacted,
	LeadStatusBounced,
	LeadStatusReplied,
	LeadStatusUnsubscribed,
	LeadStatusRescheduled,
}

// Known reports whether s is one of the enumerated statuses.
func (s LeadStatus) Known() bool {
	for _, known := range LeadStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Lead is a contact tracked through a multi-step outreach campaign.
type Lead struct {
	ID             string `json:"_id"`
	OrganizationID string `json:"organization_id"`
	CampaignID     string `json:"campaign_id"`
	WorkspaceID    string `json:"workspace_id"`
	EmailAccountID string `json:"email_account_id"`
	EmailAccName   string `json:"email_acc_name"`
	CampaignName   string `json:"camp_name"`

	Status      LeadStatus `json:"status"`
	Label       string     `json:"label"`
	IsCompleted int        `json:"is_completed"`
	CurrentStep int        `json:"current_step"`
	TotalSteps  int        `json:"total_steps"`

	// Counters are nullable on the backend.
	SentStep     *int   `json:"sent_step"`
	RepliedCount *int   `json:"replied_count"`
	OpenedCount  *int   `json:"opened_count"`
	LastSentAt   string `json:"last_sent_at"`

	CreatedAt  string `json:"created_at"`
	ModifiedAt string `json:"modified_at"`

	IsMX int    `json:"is_mx"`
	MX   string `json:"mx"`

	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`

	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`

	JobTitle           string `json:"job_title"`
	Department         string `json:"department"`
	CompanyName        string `json:"company_name"`
	CompanyWebsite     string `json:"company_website"`
	Industry           string `json:"industry"`
	LinkedInPersonURL  string `json:"linkedin_person_url"`
	LinkedInCompanyURL string `json:"linkedin_company_url"`
}

// FullName joins first and last name, trimming missing parts.
func (l Lead) FullName() string {
	switch {
	case l.FirstName == "":
		return l.LastName
	case l.LastName == "":
		return l.FirstName
	default:
		return l.FirstName + " " + l.LastName
	}
}

// LeadsPage is one page of the paginated contacts listing. Total counts
// every matching lead regardless of the page window.
type LeadsPage struct {
	Data  []Lead `json:"data"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// Campaign is an outreach campaign as listed by /api/campaigns.
type Campaign struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Analytics is the free-form statistics object from /api/analytics.
type Analytics map[string]any
