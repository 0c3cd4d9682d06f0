package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nhle/outreach-inbox/internal/model"
)

// Failure makes the fake backend answer a route with an error.
type Failure struct {
	Status int
	Detail string

	// Hang delays the response past any sane client timeout.
	Hang time.Duration
}

// FakeAPI is an in-memory stand-in for the outreach backend served over
// httptest. Its exported fields may be seeded before requests are made;
// use Lock/Unlock when touching them concurrently with requests.
type FakeAPI struct {
	Server *httptest.Server

	mu sync.Mutex

	Emails      []model.Email
	Leads       []model.Lead
	Campaigns   []model.Campaign
	Labels      []string
	Analytics   map[string]any
	Sent        []model.SendEmailRequest
	MarkedRead  []string
	LabelSets   map[string]string
	Queries     map[string][]url.Values
	Headers     []http.Header
	failures    map[string]Failure
}

// NewFakeAPI starts a fake backend that is shut down when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		Labels:      append([]string(nil), model.FilterLabels...),
		Analytics:   map[string]any{},
		LabelSets:   map[string]string{},
		Queries:     map[string][]url.Values{},
		failures:    map[string]Failure{},
	}

	r := chi.NewRouter()
	r.Use(f.record)
	r.Route("/api", func(r chi.Router) {
		r.Get("/emails", f.listEmails)
		r.Post("/emails/send", f.sendEmail)
		r.Post("/emails/mark-read/{threadID}", f.markRead)
		r.Get("/emails/unread/count", f.unreadCount)
		r.Post("/emails/{emailID}/label", f.updateLabel)
		r.Get("/labels", f.listLabels)
		r.Get("/campaigns", f.listCampaigns)
		r.Get("/analytics", f.analytics)
		r.Get("/leads", f.listLeads)
	})

	f.Server = httptest.NewServer(r)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake backend.
func (f *FakeAPI) URL() string {
	return f.Server.URL
}

// Lock guards the exported fields.
func (f *FakeAPI) Lock() { f.mu.Lock() }

// Unlock releases Lock.
func (f *FakeAPI) Unlock() { f.mu.Unlock() }

// Fail makes requests to path (e.g. "/api/leads") fail until cleared.
func (f *FakeAPI) Fail(path string, failure Failure) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[path] = failure
}

// ClearFailures restores normal responses.
func (f *FakeAPI) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = map[string]Failure{}
}

// Hits returns how many requests were made to path.
func (f *FakeAPI) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Queries[path])
}

// LastQuery returns the query string of the last request to path.
func (f *FakeAPI) LastQuery(path string) url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	qs := f.Queries[path]
	if len(qs) == 0 {
		return nil
	}
	return qs[len(qs)-1]
}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.Queries[r.URL.Path] = append(f.Queries[r.URL.Path], r.URL.Query())
		f.Headers = append(f.Headers, r.Header.Clone())
		failure, failing := f.failures[r.URL.Path]
		f.mu.Unlock()

		if failing {
			if failure.Hang > 0 {
				select {
				case <-time.After(failure.Hang):
				case <-r.Context().Done():
				}
				return
			}
			if failure.Detail == "" {
				w.WriteHeader(failure.Status)
				return
			}
			writeJSON(w, failure.Status, map[string]string{"detail": failure.Detail})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *FakeAPI) listEmails(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	preview := q.Get("preview_only") == "true"

	f.mu.Lock()
	out := make([]model.Email, 0, len(f.Emails))
	for _, e := range f.Emails {
		if label := q.Get("label"); label != "" && e.Label != label {
			continue
		}
		if lead := q.Get("lead_email"); lead != "" && !strings.EqualFold(e.FromAddressEmail, lead) {
			continue
		}
		if c := q.Get("campaign_id"); c != "" && e.CampaignID != c {
			continue
		}
		if preview {
			e.Body = model.EmailBody{}
			e.Thread = nil
		}
		out = append(out, e)
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) sendEmail(w http.ResponseWriter, r *http.Request) {
	var req model.SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": err.Error()}},
		})
		return
	}

	f.mu.Lock()
	f.Sent = append(f.Sent, req)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (f *FakeAPI) markRead(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	f.mu.Lock()
	f.MarkedRead = append(f.MarkedRead, threadID)
	updated := 0
	for i := range f.Emails {
		if f.Emails[i].ThreadID == threadID && f.Emails[i].IsUnread {
			f.Emails[i].IsUnread = false
			updated++
		}
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

func (f *FakeAPI) unreadCount(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	n := 0
	for _, e := range f.Emails {
		if e.IsUnread {
			n++
		}
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (f *FakeAPI) updateLabel(w http.ResponseWriter, r *http.Request) {
	emailID := chi.URLParam(r, "emailID")
	label := r.URL.Query().Get("label")

	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.Emails {
		if f.Emails[i].ID == emailID {
			f.Emails[i].Label = label
			f.LabelSets[emailID] = label
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Email not found"})
}

func (f *FakeAPI) listLabels(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	labels := append([]string(nil), f.Labels...)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, labels)
}

func (f *FakeAPI) listCampaigns(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	campaigns := append([]model.Campaign(nil), f.Campaigns...)
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, campaigns)
}

func (f *FakeAPI) analytics(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	out := make(map[string]any, len(f.Analytics)+1)
	for k, v := range f.Analytics {
		out[k] = v
	}
	f.mu.Unlock()

	if c := r.URL.Query().Get("campaign_id"); c != "" {
		out["campaign_id"] = c
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) listLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 10
	}

	f.mu.Lock()
	matched := make([]model.Lead, 0, len(f.Leads))
	for _, l := range f.Leads {
		if v := q.Get("campaign_id"); v != "" && l.CampaignID != v {
			continue
		}
		if v := q.Get("status"); v != "" && string(l.Status) != v {
			continue
		}
		if v := q.Get("label"); v != "" && l.Label != v {
			continue
		}
		if v := q.Get("email"); v != "" && !strings.Contains(strings.ToLower(l.Email), strings.ToLower(v)) {
			continue
		}
		if v := q.Get("first_name"); v != "" && !strings.EqualFold(l.FirstName, v) {
			continue
		}
		if v := q.Get("last_name"); v != "" && !strings.EqualFold(l.LastName, v) {
			continue
		}
		matched = append(matched, l)
	}
	f.mu.Unlock()

	desc := q.Get("direction") == "desc"
	field := q.Get("sort")
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := leadField(matched[i], field), leadField(matched[j], field)
		if desc {
			return a > b
		}
		return a < b
	})

	total := len(matched)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, model.LeadsPage{
		Data:  matched[start:end],
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func leadField(l model.Lead, field string) string {
	switch field {
	case "first_name":
		return l.FirstName
	case "email":
		return l.Email
	case "company_name":
		return l.CompanyName
	case "job_title":
		return l.JobTitle
	case "status":
		return string(l.Status)
	case "last_sent_at":
		return l.LastSentAt
	default:
		return l.ID
	}
}
