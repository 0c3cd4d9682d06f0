package contacts

import (
	"strconv"
	"strings"

	"github.com/nhle/outreach-inbox/internal/api"
	"github.com/nhle/outreach-inbox/internal/model"
)

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// DefaultSort orders leads by id until a column is chosen.
const DefaultSort = "_id"

// PageSizes are the selectable page sizes, smallest first.
var PageSizes = model.PageSizes

// Column is a sortable table column.
type Column struct {
	Field string
	Title string
}

// SortColumns are the sortable columns, bound to keys 1 through 6.
var SortColumns = []Column{
	{Field: "first_name", Title: "Name"},
	{Field: "email", Title: "Email"},
	{Field: "company_name", Title: "Company"},
	{Field: "job_title", Title: "Title"},
	{Field: "status", Title: "Status"},
	{Field: "last_sent_at", Title: "Last Sent"},
}

// Filters narrows the listing. Empty fields match everything.
type Filters struct {
	CampaignID string
	Status     string
	Label      string
	Email      string
	FirstName  string
	LastName   string
}

// Active counts the non-empty filters.
func (f Filters) Active() int {
	n := 0
	for _, v := range []string{f.CampaignID, f.Status, f.Label, f.Email, f.FirstName, f.LastName} {
		if v != "" {
			n++
		}
	}
	return n
}

func (f Filters) trimmed() Filters {
	return Filters{
		CampaignID: strings.TrimSpace(f.CampaignID),
		Status:     strings.TrimSpace(f.Status),
		Label:      strings.TrimSpace(f.Label),
		Email:      strings.TrimSpace(f.Email),
		FirstName:  strings.TrimSpace(f.FirstName),
		LastName:   strings.TrimSpace(f.LastName),
	}
}

// State is the query state of the contacts table: filters, sort and the
// page window. Page is 1-based. Total is the matching count reported by
// the last successful fetch.
type State struct {
	Filters   Filters
	Page      int
	Limit     int
	Sort      string
	Direction string
	Total     int
}

// NewState returns the initial state with the given page size, falling
// back to the smallest size when limit is not selectable.
func NewState(limit int) State {
	if !validLimit(limit) {
		limit = PageSizes[0]
	}
	return State{Page: 1, Limit: limit, Sort: DefaultSort, Direction: Asc}
}

func validLimit(n int) bool {
	return model.IsPageSize(n)
}

// SetFilters replaces the filters and returns to the first page.
func (s *State) SetFilters(f Filters) {
	s.Filters = f.trimmed()
	s.Page = 1
}

// SetLimit changes the page size and returns to the first page. Sizes
// outside PageSizes are ignored.
func (s *State) SetLimit(limit int) {
	if !validLimit(limit) {
		return
	}
	s.Limit = limit
	s.Page = 1
}

// NextLimit cycles to the next page size.
func (s *State) NextLimit() {
	for i, size := range PageSizes {
		if size == s.Limit {
			s.SetLimit(PageSizes[(i+1)%len(PageSizes)])
			return
		}
	}
	s.SetLimit(PageSizes[0])
}

// ToggleSort sorts by field. The active field flips direction; any other
// field becomes active in ascending order.
func (s *State) ToggleSort(field string) {
	if s.Sort == field {
		if s.Direction == Asc {
			s.Direction = Desc
		} else {
			s.Direction = Asc
		}
		return
	}
	s.Sort = field
	s.Direction = Asc
}

// TotalPages is ceil(Total/Limit), at least 1.
func (s State) TotalPages() int {
	if s.Limit <= 0 || s.Total <= 0 {
		return 1
	}
	return (s.Total + s.Limit - 1) / s.Limit
}

// HasPrev reports whether a previous page exists.
func (s State) HasPrev() bool { return s.Page > 1 }

// HasNext reports whether a next page exists.
func (s State) HasNext() bool { return s.Page < s.TotalPages() }

// PrevPage moves back one page. It reports false at the first page.
func (s *State) PrevPage() bool {
	if !s.HasPrev() {
		return false
	}
	s.Page--
	return true
}

// NextPage moves forward one page. It reports false at the last page.
func (s *State) NextPage() bool {
	if !s.HasNext() {
		return false
	}
	s.Page++
	return true
}

// Range returns the 1-based bounds of the rows shown on the current page.
func (s State) Range() (from, to int) {
	if s.Total == 0 {
		return 0, 0
	}
	from = (s.Page-1)*s.Limit + 1
	to = s.Page * s.Limit
	if to > s.Total {
		to = s.Total
	}
	return from, to
}

// Query builds the request for the current state.
func (s State) Query() api.LeadQuery {
	return api.LeadQuery{
		CampaignID: s.Filters.CampaignID,
		Status:     s.Filters.Status,
		Label:      s.Filters.Label,
		Email:      s.Filters.Email,
		FirstName:  s.Filters.FirstName,
		LastName:   s.Filters.LastName,
		Page:       s.Page,
		Limit:      s.Limit,
		Sort:       s.Sort,
		Direction:  s.Direction,
	}
}

// Key identifies the query for caching and last-query-wins checks.
func (s State) Key() string {
	f := s.Filters
	return strings.Join([]string{
		f.CampaignID, f.Status, f.Label, f.Email, f.FirstName, f.LastName,
		strconv.Itoa(s.Page), strconv.Itoa(s.Limit), s.Sort, s.Direction,
	}, "\x1f")
}
