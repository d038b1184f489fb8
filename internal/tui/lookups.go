package tui

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
)

// lookupLimit caps how many related records a selector offers.
const lookupLimit = 100

type lookupKind int

const (
	lookupNone lookupKind = iota
	lookupContact
	lookupCompany
	lookupDeal
	lookupQuote
)

// option is one selectable related record.
type option struct {
	ID    string
	Label string
}

// lookups holds the related records that forms and detail views resolve
// ids against.
type lookups struct {
	contacts   []domain.Contact
	companies  []domain.Company
	deals      []domain.Deal
	quotes     []domain.Quote
	activities []domain.Activity // Only loaded for a single contact
}

// loadLookups fetches contacts, companies, deals and quotes concurrently.
// When contactID is set the contact's activities are fetched as well.
func loadLookups(ctx context.Context, gw *gateway.Gateway, contactID string) (lookups, error) {
	var l lookups
	g, ctx := errgroup.WithContext(ctx)
	page := gateway.Filter{Limit: lookupLimit, OrderBy: "name"}

	g.Go(func() (err error) {
		l.contacts, err = gw.Contacts.List(ctx, page)
		return err
	})
	g.Go(func() (err error) {
		l.companies, err = gw.Companies.List(ctx, page)
		return err
	})
	g.Go(func() (err error) {
		l.deals, err = gw.Deals.List(ctx, gateway.Filter{Limit: lookupLimit, OrderBy: domain.FieldTitle})
		return err
	})
	g.Go(func() (err error) {
		l.quotes, err = gw.Quotes.List(ctx, page)
		return err
	})
	if contactID != "" {
		g.Go(func() (err error) {
			l.activities, err = gw.Activities.List(ctx, gateway.Filter{
				ContactID: contactID,
				OrderBy:   domain.FieldActivityTimestamp,
				Desc:      true,
				Limit:     timelineLimit,
			})
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return lookups{}, err
	}
	return l, nil
}

func (l lookups) options(k lookupKind) []option {
	var out []option
	switch k {
	case lookupContact:
		for _, c := range l.contacts {
			out = append(out, option{ID: c.ID, Label: c.Name})
		}
	case lookupCompany:
		for _, c := range l.companies {
			out = append(out, option{ID: c.ID, Label: c.Name})
		}
	case lookupDeal:
		for _, d := range l.deals {
			out = append(out, option{ID: d.ID, Label: d.Title})
		}
	case lookupQuote:
		for _, q := range l.quotes {
			label := q.Name
			if q.Title != "" {
				label += " " + q.Title
			}
			out = append(out, option{ID: q.ID, Label: label})
		}
	}
	return out
}

// name resolves id to a display label, "-" when unset and the raw id when
// the record is not among the loaded ones.
func (l lookups) name(k lookupKind, id string) string {
	if id == "" {
		return "-"
	}
	for _, o := range l.options(k) {
		if o.ID == id {
			return o.Label
		}
	}
	return "#" + id
}
