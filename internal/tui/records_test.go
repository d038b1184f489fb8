package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/gateway/gatewaytest"
)

type quoteList = RecordListModel[domain.Quote]

func createTestQuotes() []domain.Quote {
	return []domain.Quote{
		{ID: "q1", Name: "Q-1001", Title: "Acme licences", Status: domain.QuoteDraft, Amount: decimal.NewFromInt(1200), ExpiresOn: testNow.AddDate(0, 1, 0)},
		{ID: "q2", Name: "Q-1002", Title: "Globex support", Status: domain.QuoteSent, Amount: decimal.NewFromInt(800), ExpiresOn: testNow.AddDate(0, 0, -2)},
		{ID: "q3", Name: "Q-1003", Title: "Initech rollout", Status: domain.QuoteAccepted, Amount: decimal.NewFromInt(5000)},
	}
}

// createTestQuoteList returns a loaded quote list over a fake collection.
func createTestQuoteList(t *testing.T) (quoteList, *gatewaytest.Collection[domain.Quote]) {
	t.Helper()
	fake := gatewaytest.New(gateway.QuoteTable, createTestQuotes()...)
	gw := gatewaytest.Gateway()
	gw.Quotes = fake
	m := NewRecordListModel(gw, fake, gateway.QuoteTable, QuotesScreen(), context.Background(), testClock, 50)
	m = updateList(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})
	m = updateList(t, m, findMsg[recordsLoadedMsg[domain.Quote]](t, m.load()))
	return m, fake
}

func updateList(t *testing.T, m quoteList, msg tea.Msg) quoteList {
	t.Helper()
	model, _ := m.Update(msg)
	return model.(quoteList)
}

func pressList(t *testing.T, m quoteList, keys ...string) (quoteList, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var model tea.Model
		model, cmd = m.Update(keyPress(k))
		m = model.(quoteList)
	}
	return m, cmd
}

func TestRecordList_Load(t *testing.T) {
	m, fake := createTestQuoteList(t)

	assert.False(t, m.loading)
	assert.Len(t, m.items, 3)
	assert.Len(t, m.grid.Rows(), 3)
	assert.Contains(t, m.View(), "Quotes (3)")
	assert.Contains(t, m.View(), "status: all")

	lists := fake.Calls(gatewaytest.OpList)
	require.NotEmpty(t, lists)
}

func TestRecordList_StatusFilterCycles(t *testing.T) {
	m, _ := createTestQuoteList(t)

	m, cmd := pressList(t, m, "s")
	assert.Equal(t, domain.QuoteDraft, m.status())
	m = updateList(t, m, findMsg[recordsLoadedMsg[domain.Quote]](t, cmd))
	require.Len(t, m.items, 1)
	assert.Equal(t, "q1", m.items[0].ID)

	m, _ = pressList(t, m, "s", "s", "s", "s")
	assert.Equal(t, domain.QuoteExpired, m.status())
	m, cmd = pressList(t, m, "s")
	assert.Equal(t, "all", m.status(), "wraps back to all")
	m = updateList(t, m, findMsg[recordsLoadedMsg[domain.Quote]](t, cmd))
	assert.Len(t, m.items, 3)
}

func TestRecordList_Search(t *testing.T) {
	m, _ := createTestQuoteList(t)

	m, _ = pressList(t, m, "/")
	assert.True(t, m.Capturing())
	m, cmd := pressList(t, m, "g", "l", "o", "b", "e", "x", "enter")
	assert.False(t, m.Capturing())
	assert.Equal(t, "globex", m.search)

	m = updateList(t, m, findMsg[recordsLoadedMsg[domain.Quote]](t, cmd))
	require.Len(t, m.items, 1)
	assert.Equal(t, "q2", m.items[0].ID)
}

func TestRecordList_Delete(t *testing.T) {
	m, fake := createTestQuoteList(t)

	m, _ = pressList(t, m, "j", "d")
	require.True(t, m.confirmDelete)
	assert.Contains(t, m.View(), `Delete "Q-1002"?`)

	m, cmd := pressList(t, m, "y")
	m = updateList(t, m, findMsg[recordDeletedMsg](t, cmd))

	assert.Len(t, m.items, 2)
	assert.Len(t, m.grid.Rows(), 2)
	assert.Equal(t, `Deleted "Q-1002"`, m.toast)
	deletes := fake.Calls(gatewaytest.OpDelete)
	require.Len(t, deletes, 1)
	assert.Equal(t, "q2", deletes[0].ID)
}

func TestRecordList_DeleteFailureKeepsRow(t *testing.T) {
	m, fake := createTestQuoteList(t)
	fake.Fail(gatewaytest.OpDelete, errors.New("forbidden"))

	m, cmd := pressList(t, m, "d", "y")
	m = updateList(t, m, findMsg[recordDeletedMsg](t, cmd))

	assert.Len(t, m.items, 3)
	assert.True(t, m.toastIsErr)
	assert.Contains(t, m.toast, "forbidden")
}

func TestRecordList_LoadError(t *testing.T) {
	fake := gatewaytest.New(gateway.QuoteTable)
	fake.Fail(gatewaytest.OpList, errors.New("bad gateway"))
	m := NewRecordListModel(gatewaytest.Gateway(), fake, gateway.QuoteTable, QuotesScreen(), context.Background(), testClock, 50)

	m = updateList(t, m, findMsg[recordsLoadedMsg[domain.Quote]](t, m.load()))
	assert.Contains(t, m.View(), "Failed to load quotes: bad gateway")
	assert.Contains(t, m.View(), "Press r to retry")
}

func TestQuotesScreen_MarksExpired(t *testing.T) {
	screen := QuotesScreen()
	quotes := createTestQuotes()

	assert.NotContains(t, screen.Row(quotes[0], testNow)[5], "expired")
	assert.Contains(t, screen.Row(quotes[1], testNow)[5], "(expired)")
	assert.Equal(t, "-", screen.Row(quotes[2], testNow)[5])
	assert.Equal(t, "$1,200", screen.Row(quotes[0], testNow)[2])
}

func TestRecordScreens_Links(t *testing.T) {
	companies := CompaniesScreen()
	assert.Equal(t, "https://acme.example", companies.Link(domain.Company{Website: "acme.example"}))
	assert.Equal(t, "http://globex.example", companies.Link(domain.Company{Website: "http://globex.example"}))
	assert.Empty(t, companies.Link(domain.Company{}))

	contacts := ContactsScreen()
	assert.Equal(t, "mailto:ada@example.com", contacts.Link(domain.Contact{Email: "ada@example.com"}))
	assert.Empty(t, contacts.Link(domain.Contact{}))

	assert.Nil(t, QuotesScreen().Link)
	assert.Nil(t, OrdersScreen().Link)
	assert.Equal(t, domain.OrderStatuses(), OrdersScreen().Statuses)
}
