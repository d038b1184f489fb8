// Package gateway is the Record Gateway: typed access to the remote record
// management API that owns all persistent CRM state. Each entity type is a
// Collection with list/get/create/update/delete; the backend behind it is
// either the remote GraphQL record API or an embedded SQLite store.
package gateway

import (
	"context"
	"errors"

	"github.com/robby/pflow/internal/domain"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrRejected indicates the backend refused a write (validation or permissions).
	ErrRejected = errors.New("record rejected")
	// ErrUnknownBackend indicates an unsupported backend name in Options.
	ErrUnknownBackend = errors.New("unknown backend")
)

// DefaultPageSize is used when a Filter leaves Limit unset.
const DefaultPageSize = 50

// Filter narrows a List call. Zero values disable each condition.
type Filter struct {
	Search    string // Case-insensitive "contains" match on the record's name/title
	Status    string // Exact status match; "all" disables
	ContactID string // Only records linked to this contact
	OrderBy   string // Record field to sort by; backend default when empty
	Desc      bool
	Limit     int
	Offset    int
}

func (f Filter) limit() int {
	if f.Limit <= 0 {
		return DefaultPageSize
	}
	return f.Limit
}

func (f Filter) status() string {
	if f.Status == "all" {
		return ""
	}
	return f.Status
}

// Collection is the per-entity contract consumed by the rest of the app.
// Every call may fail; callers check the error rather than assuming success.
type Collection[T any] interface {
	List(ctx context.Context, filter Filter) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, fields domain.Fields) (T, error)
	Update(ctx context.Context, id string, fields domain.Fields) (T, error)
	Delete(ctx context.Context, id string) error
}

// Gateway groups the collections for every entity type.
type Gateway struct {
	Deals       Collection[domain.Deal]
	Contacts    Collection[domain.Contact]
	Companies   Collection[domain.Company]
	Quotes      Collection[domain.Quote]
	SalesOrders Collection[domain.SalesOrder]
	Activities  Collection[domain.Activity]
}

// ListAll pages through a collection until it is exhausted.
func ListAll[T any](ctx context.Context, c Collection[T], filter Filter) ([]T, error) {
	filter.Limit = filter.limit()
	var all []T
	for {
		page, err := c.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < filter.Limit {
			return all, nil
		}
		filter.Offset += len(page)
	}
}
