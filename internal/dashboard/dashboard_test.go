package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/gateway/gatewaytest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testDeals() []domain.Deal {
	return []domain.Deal{
		{ID: "1", Stage: domain.StageLead, Value: decimal.NewFromInt(1000)},
		{ID: "2", Stage: domain.StageProposal, Value: decimal.NewFromInt(2000)},
		{ID: "3", Stage: domain.StageClosedWon, Value: decimal.NewFromInt(5000)},
		{ID: "4", Stage: domain.StageClosedLost, Value: decimal.NewFromInt(700)},
		{ID: "5", Stage: domain.StageQualified, Value: decimal.NewFromInt(-10)},
		{ID: "6", Stage: domain.StageClosedWon, Value: decimal.NewFromInt(300)},
	}
}

func testContacts() []domain.Contact {
	return []domain.Contact{
		{ID: "c1", Name: "Ada", CreatedAt: now.Add(-2 * 24 * time.Hour)},
		{ID: "c2", Name: "Grace", CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{ID: "c3", Name: "Alan"},
	}
}

func TestCompute(t *testing.T) {
	s := Compute(testDeals(), testContacts(), nil, now)

	assert.Equal(t, 3, s.TotalContacts)
	assert.Equal(t, 1, s.NewContacts)
	assert.Equal(t, 6, s.TotalDeals)
	assert.Equal(t, 3, s.ActiveDeals)
	assert.Equal(t, 50.0, s.ActiveShare)
	assert.Equal(t, "3000", s.PipelineValue.String())
	assert.Equal(t, "1000", s.AverageDeal.String())
	assert.Equal(t, 2, s.WonDeals)
	assert.Equal(t, 33.3, s.ConversionRate)
	assert.True(t, s.StrongConversion())
	assert.Len(t, s.Stages, 5)
}

func TestCompute_Empty(t *testing.T) {
	s := Compute(nil, nil, nil, now)
	assert.Zero(t, s.ActiveShare)
	assert.Zero(t, s.ConversionRate)
	assert.True(t, s.AverageDeal.IsZero())
	assert.False(t, s.StrongConversion())
}

func TestCompute_RecentActivities(t *testing.T) {
	var acts []domain.Activity
	for i := 0; i < 10; i++ {
		acts = append(acts, domain.Activity{
			ID:        string(rune('a' + i)),
			ContactID: "c1",
			Timestamp: now.Add(-time.Duration(i) * time.Hour),
		})
	}
	acts = append(acts, domain.Activity{ID: "latest", ContactID: "gone", Timestamp: now.Add(time.Minute)})

	s := Compute(nil, testContacts(), acts, now)
	require.Len(t, s.Recent, RecentActivityLimit)
	assert.Equal(t, "latest", s.Recent[0].Activity.ID)
	assert.Equal(t, "Unknown Contact", s.Recent[0].ContactName)
	assert.Equal(t, "Ada", s.Recent[1].ContactName)
	for i := 1; i < len(s.Recent); i++ {
		assert.False(t, s.Recent[i].Activity.Timestamp.After(s.Recent[i-1].Activity.Timestamp))
	}
}

func TestLoad(t *testing.T) {
	gw := gatewaytest.Gateway()
	gw.Deals = gatewaytest.New(gateway.DealTable, testDeals()...)
	gw.Contacts = gatewaytest.New(gateway.ContactTable, testContacts()...)

	s, err := Load(context.Background(), gw, now)
	require.NoError(t, err)
	assert.Equal(t, 6, s.TotalDeals)
	assert.Equal(t, 3, s.TotalContacts)

	acts := gatewaytest.New(gateway.ActivityTable)
	acts.Fail(gatewaytest.OpList, errors.New("down"))
	gw.Activities = acts
	_, err = Load(context.Background(), gw, now)
	assert.ErrorContains(t, err, "failed to load activities")
}
