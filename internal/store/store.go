package store

import (
	"context"

	"github.com/nhle/outreach-inbox/internal/model"
)

// Sort orders supported by Search.
const (
	SortByDate    = "date"
	SortBySender  = "sender"
	SortBySubject = "subject"
)

// SortOrders lists the inbox sort orders in cycling order.
var SortOrders = []string{SortByDate, SortBySender, SortBySubject}

// EmailFilter controls filtering and sorting for projected email queries.
type EmailFilter struct {
	Label  string // exact label match, "" for all
	Term   string // case-insensitive match over sender, subject and preview
	SortBy string // "date" (default, newest first), "sender" or "subject"
}

// EmailStore is a disposable projection of email listings fetched from the
// backend. A scope groups the rows of one listing (e.g. one label filter)
// so a refetch replaces exactly the rows it owns.
type EmailStore interface {
	ReplaceScope(ctx context.Context, scope string, emails []model.Email) error
	Search(ctx context.Context, scope string, filter EmailFilter) ([]model.Email, error)
	GetEmail(ctx context.Context, id string) (*model.Email, error)
	Close() error
}
