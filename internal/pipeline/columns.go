package pipeline

import (
	"github.com/shopspring/decimal"

	"github.com/robby/pflow/internal/domain"
)

// Column is one stage of the board, projected from the current deals.
// Columns are recomputed on every render and never cached.
type Column struct {
	Stage domain.Stage
	Deals []domain.Deal
	Count int
	Value decimal.Decimal // Sum of AggregateValue over Deals
}

// Label returns the column title.
func (c Column) Label() string {
	return c.Stage.Label()
}

// Columns groups deals into one column per fixed stage, in board order.
// Deals with an unknown stage are not renderable and are skipped.
func Columns(deals []domain.Deal) []Column {
	stages := domain.Stages()
	cols := make([]Column, len(stages))
	for i, st := range stages {
		cols[i] = Column{Stage: st, Value: decimal.Zero}
	}
	for _, d := range deals {
		i := d.Stage.Index()
		if i < 0 {
			continue
		}
		cols[i].Deals = append(cols[i].Deals, d)
		cols[i].Count++
		cols[i].Value = cols[i].Value.Add(d.AggregateValue())
	}
	return cols
}

// Totals summarizes the open part of the pipeline for the board header.
type Totals struct {
	ActiveDeals int
	ActiveValue decimal.Decimal
}

// ActiveTotals counts deals that are neither won nor lost and sums their value.
func ActiveTotals(deals []domain.Deal) Totals {
	t := Totals{ActiveValue: decimal.Zero}
	for _, d := range deals {
		if d.Active() {
			t.ActiveDeals++
			t.ActiveValue = t.ActiveValue.Add(d.AggregateValue())
		}
	}
	return t
}
