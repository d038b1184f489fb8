package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/gateway/gatewaytest"
)

func TestDashboardModel_Load(t *testing.T) {
	gw := gatewaytest.Gateway()
	gw.Deals = gatewaytest.New(gateway.DealTable, createTestDeals()...)
	gw.Contacts = gatewaytest.New(gateway.ContactTable, createTestContacts()...)
	gw.Activities = gatewaytest.New(gateway.ActivityTable, domain.Activity{
		ID: "a1", Type: domain.ActivityCall, ContactID: "c1", Description: "Discussed renewal terms", Timestamp: testNow.Add(-2 * time.Hour),
	})

	m := NewDashboardModel(gw, context.Background(), testClock)
	assert.Contains(t, m.View(), "Loading")

	model, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	m = model.(DashboardModel)
	model, _ = m.Update(findMsg[dashboardLoadedMsg](t, m.load()))
	m = model.(DashboardModel)

	require.NotNil(t, m.summary)
	assert.Equal(t, 3, m.summary.ActiveDeals)
	view := m.View()
	assert.Contains(t, view, "Pipeline Value")
	assert.Contains(t, view, "$7,500")
	assert.Contains(t, view, "Ada Lovelace")
	assert.Contains(t, view, "Discussed renewal terms")
	for _, st := range domain.Stages() {
		assert.Contains(t, view, st.Label())
	}
}

func TestDashboardModel_LoadError(t *testing.T) {
	gw := gatewaytest.Gateway()
	deals := gatewaytest.New(gateway.DealTable)
	deals.Fail(gatewaytest.OpList, errors.New("offline"))
	gw.Deals = deals

	m := NewDashboardModel(gw, context.Background(), testClock)
	model, _ := m.Update(findMsg[dashboardLoadedMsg](t, m.load()))
	m = model.(DashboardModel)

	assert.Nil(t, m.summary)
	assert.Contains(t, m.View(), "Failed to load dashboard")
	assert.Contains(t, m.View(), "Press r to retry")
}

func TestDashboardModel_NewDeal(t *testing.T) {
	m := NewDashboardModel(gatewaytest.Gateway(), context.Background(), testClock)

	_, cmd := m.Update(keyPress("n"))
	findMsg[newDealMsg](t, cmd)
}
