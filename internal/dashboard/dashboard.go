// Package dashboard computes the headline metrics shown on the home screen.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/pipeline"
)

const (
	// RecentActivityLimit caps the activity feed.
	RecentActivityLimit = 8
	// NewContactWindow is how far back a contact counts as recently added.
	NewContactWindow = 7 * 24 * time.Hour
	// StrongConversionRate is the win rate at which conversion is highlighted.
	StrongConversionRate = 25.0
)

// ActivityLine is one feed entry with its contact resolved.
type ActivityLine struct {
	Activity    domain.Activity
	ContactName string
}

// Summary holds every dashboard figure.
type Summary struct {
	TotalContacts  int
	NewContacts    int // Added within NewContactWindow
	TotalDeals     int
	ActiveDeals    int
	ActiveShare    float64 // Percent of all deals that are active
	PipelineValue  decimal.Decimal
	AverageDeal    decimal.Decimal // PipelineValue / ActiveDeals
	WonDeals       int
	ConversionRate float64 // Percent, one decimal
	Recent         []ActivityLine
	Stages         []pipeline.Column
}

// StrongConversion reports whether the win rate deserves highlighting.
func (s Summary) StrongConversion() bool {
	return s.ConversionRate >= StrongConversionRate
}

// Compute derives a Summary from already-loaded records.
func Compute(deals []domain.Deal, contacts []domain.Contact, activities []domain.Activity, now time.Time) Summary {
	s := Summary{
		TotalContacts: len(contacts),
		TotalDeals:    len(deals),
		PipelineValue: decimal.Zero,
		AverageDeal:   decimal.Zero,
		Stages:        pipeline.Columns(deals),
	}

	names := make(map[string]string, len(contacts))
	for _, c := range contacts {
		names[c.ID] = c.Name
		if !c.CreatedAt.IsZero() && now.Sub(c.CreatedAt) <= NewContactWindow {
			s.NewContacts++
		}
	}

	totals := pipeline.ActiveTotals(deals)
	s.ActiveDeals = totals.ActiveDeals
	s.PipelineValue = totals.ActiveValue
	if s.ActiveDeals > 0 {
		s.AverageDeal = s.PipelineValue.Div(decimal.NewFromInt(int64(s.ActiveDeals))).Round(2)
	}
	for _, d := range deals {
		if d.Stage == domain.StageClosedWon {
			s.WonDeals++
		}
	}
	if s.TotalDeals > 0 {
		s.ActiveShare = percent(s.ActiveDeals, s.TotalDeals)
		s.ConversionRate = percent(s.WonDeals, s.TotalDeals)
	}

	recent := append([]domain.Activity(nil), activities...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})
	if len(recent) > RecentActivityLimit {
		recent = recent[:RecentActivityLimit]
	}
	for _, a := range recent {
		name, ok := names[a.ContactID]
		if !ok || name == "" {
			name = domain.UnknownContact
		}
		s.Recent = append(s.Recent, ActivityLine{Activity: a, ContactName: name})
	}

	return s
}

// percent returns part/whole*100 rounded to one decimal place.
func percent(part, whole int) float64 {
	v, _ := decimal.NewFromInt(int64(part)).
		Div(decimal.NewFromInt(int64(whole))).
		Mul(decimal.NewFromInt(100)).
		Round(1).
		Float64()
	return v
}

// Load fetches deals, contacts and activities concurrently and computes the
// summary.
func Load(ctx context.Context, gw *gateway.Gateway, now time.Time) (Summary, error) {
	var (
		deals      []domain.Deal
		contacts   []domain.Contact
		activities []domain.Activity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		deals, err = gateway.ListAll(gctx, gw.Deals, gateway.Filter{})
		if err != nil {
			return fmt.Errorf("failed to load deals: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		contacts, err = gateway.ListAll(gctx, gw.Contacts, gateway.Filter{})
		if err != nil {
			return fmt.Errorf("failed to load contacts: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		activities, err = gw.Activities.List(gctx, gateway.Filter{
			OrderBy: domain.FieldActivityTimestamp,
			Desc:    true,
			Limit:   RecentActivityLimit,
		})
		if err != nil {
			return fmt.Errorf("failed to load activities: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	return Compute(deals, contacts, activities, now), nil
}
