package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/gateway/gatewaytest"
	"github.com/robby/pflow/internal/pipeline"
	"github.com/robby/pflow/internal/store"
)

var (
	testMoved = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	testNow   = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	testClose = time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
)

func testClock() time.Time { return testNow }

func createTestDeals() []domain.Deal {
	return []domain.Deal{
		{ID: "d1", Title: "Acme renewal", Value: decimal.NewFromInt(1000), Stage: domain.StageLead, ContactID: "c1", MovedToStageAt: testMoved, ExpectedCloseDate: testClose},
		{ID: "d2", Title: "Globex pilot", Value: decimal.NewFromInt(2500), Stage: domain.StageLead, ContactID: "c2", MovedToStageAt: testMoved, ExpectedCloseDate: testClose},
		{ID: "d3", Title: "Initech upgrade", Value: decimal.NewFromInt(4000), Stage: domain.StageQualified, ContactID: "c1", MovedToStageAt: testMoved, ExpectedCloseDate: testClose},
		{ID: "d4", Title: "Umbrella audit", Value: decimal.NewFromInt(9000), Stage: domain.StageClosedWon, ContactID: "c2", MovedToStageAt: testMoved.AddDate(0, -3, 0), ExpectedCloseDate: testClose.AddDate(0, -2, 0)},
	}
}

func createTestContacts() []domain.Contact {
	return []domain.Contact{
		{ID: "c1", Name: "Ada Lovelace", Email: "ada@example.com"},
		{ID: "c2", Name: "Grace Hopper", Email: "grace@example.com"},
	}
}

// createTestBoardModel returns a loaded board model over fake collections.
func createTestBoardModel(t *testing.T) (BoardModel, *gatewaytest.Collection[domain.Deal]) {
	t.Helper()
	deals := gatewaytest.New(gateway.DealTable, createTestDeals()...)
	contacts := gatewaytest.New(gateway.ContactTable, createTestContacts()...)
	st := store.New(deals, contacts)
	require.NoError(t, st.Load(context.Background()))

	b := pipeline.New(st, deals, pipeline.WithClock(testClock))
	m := NewBoardModel(b, deals, context.Background(), 1)
	model, _ := m.Update(dealsLoadedMsg{session: 1})
	m = model.(BoardModel)
	model, _ = m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	return model.(BoardModel), deals
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds keys in order and returns the model and the last command.
func press(t *testing.T, m BoardModel, keys ...string) (BoardModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var model tea.Model
		model, cmd = m.Update(keyPress(k))
		m = model.(BoardModel)
	}
	return m, cmd
}

// findMsg runs cmd, descending into batches, and returns the first message
// of type T. A command still blocked after cmdWait is skipped, which leaves
// toast and spinner ticks out of the search.
func findMsg[T any](t *testing.T, cmd tea.Cmd) T {
	t.Helper()
	require.NotNil(t, cmd)
	var found []T
	var walk func(tea.Cmd)
	walk = func(c tea.Cmd) {
		if c == nil {
			return
		}
		switch msg := runCmd(c).(type) {
		case tea.BatchMsg:
			for _, sub := range msg {
				walk(sub)
			}
		case T:
			found = append(found, msg)
		}
	}
	walk(cmd)
	require.NotEmpty(t, found, "expected a %T", *new(T))
	return found[0]
}

const cmdWait = 200 * time.Millisecond

// runCmd returns the message of c, or nil when c does not finish in time.
func runCmd(c tea.Cmd) tea.Msg {
	done := make(chan tea.Msg, 1)
	go func() { done <- c() }()
	select {
	case msg := <-done:
		return msg
	case <-time.After(cmdWait):
		return nil
	}
}

func stageOf(t *testing.T, m BoardModel, id string) domain.Stage {
	t.Helper()
	d, err := m.board.Store().Get(id)
	require.NoError(t, err)
	return d.Stage
}

func TestBoardModel_RebuildColumns(t *testing.T) {
	m, _ := createTestBoardModel(t)

	require.Len(t, m.columns, 5)
	for i, st := range domain.Stages() {
		assert.Equal(t, st, m.columns[i].Stage)
	}
	assert.Len(t, m.visible[domain.StageLead], 2)
	assert.Len(t, m.visible[domain.StageQualified], 1)
	assert.Len(t, m.visible[domain.StageProposal], 0)
	assert.Len(t, m.visible[domain.StageClosedWon], 1)
	assert.False(t, m.loading)
}

func TestBoardModel_Navigation(t *testing.T) {
	m, _ := createTestBoardModel(t)
	assert.Equal(t, 0, m.selectedColumn)

	m, _ = press(t, m, "l")
	assert.Equal(t, 1, m.selectedColumn)
	m, _ = press(t, m, "l", "l", "l", "l", "l")
	assert.Equal(t, 4, m.selectedColumn, "stops at the last column")
	m, _ = press(t, m, "h", "h", "h", "h")
	assert.Equal(t, 0, m.selectedColumn)

	m, _ = press(t, m, "j")
	assert.Equal(t, 1, m.selectedCard[domain.StageLead])
	d, ok := m.selectedDeal()
	require.True(t, ok)
	assert.Equal(t, "d2", d.ID)

	m, _ = press(t, m, "k", "k")
	assert.Equal(t, 0, m.selectedCard[domain.StageLead], "stops at the top")
}

func TestBoardModel_DragToOtherStage(t *testing.T) {
	m, fake := createTestBoardModel(t)

	m, _ = press(t, m, "m")
	held, target, ok := m.board.Held()
	require.True(t, ok)
	assert.Equal(t, "d1", held.ID)
	assert.Equal(t, domain.StageLead, target)
	assert.True(t, m.Capturing())

	m, _ = press(t, m, "l", "l")
	_, target, _ = m.board.Held()
	assert.Equal(t, domain.StageProposal, target)

	m, cmd := press(t, m, "enter")
	assert.Equal(t, pipeline.Committing, m.board.Phase("d1"))
	assert.Equal(t, domain.StageLead, stageOf(t, m, "d1"), "store changes only after the gateway confirms")
	assert.Contains(t, m.View(), "saving")

	committed := findMsg[stageCommittedMsg](t, cmd)
	assert.Equal(t, 1, committed.boardSession())
	model, _ := m.Update(committed)
	m = model.(BoardModel)

	assert.Equal(t, pipeline.Idle, m.board.Phase("d1"))
	assert.Equal(t, domain.StageProposal, stageOf(t, m, "d1"))
	assert.Len(t, m.visible[domain.StageLead], 1)
	assert.Len(t, m.visible[domain.StageProposal], 1)
	assert.Equal(t, "Deal moved to Proposal", m.toast)
	assert.False(t, m.toastIsErr)
	assert.Equal(t, 2, m.selectedColumn, "selection follows the moved deal")

	updates := fake.Calls(gatewaytest.OpUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, "d1", updates[0].ID)
	assert.Equal(t, "proposal", updates[0].Fields[domain.FieldStage])
}

func TestBoardModel_DropOnDigit(t *testing.T) {
	m, _ := createTestBoardModel(t)

	m, cmd := press(t, m, "m", "4")
	model, _ := m.Update(findMsg[stageCommittedMsg](t, cmd))
	m = model.(BoardModel)

	assert.Equal(t, domain.StageClosedWon, stageOf(t, m, "d1"))
	d, err := m.board.Store().Get("d1")
	require.NoError(t, err)
	assert.True(t, testNow.Equal(d.MovedToStageAt), "stage change is stamped with the board clock")
}

func TestBoardModel_DropOnSameColumnIsNoop(t *testing.T) {
	m, fake := createTestBoardModel(t)

	m, cmd := press(t, m, "m", "enter")
	assert.Nil(t, cmd)
	assert.Equal(t, pipeline.Idle, m.board.Phase("d1"))
	_, _, held := m.board.Held()
	assert.False(t, held)
	assert.Empty(t, fake.Calls(gatewaytest.OpUpdate))
}

func TestBoardModel_DropOutsideColumnsIsAbandoned(t *testing.T) {
	m, fake := createTestBoardModel(t)

	m, cmd := press(t, m, "m", "l", "9")
	assert.Nil(t, cmd)
	assert.Equal(t, pipeline.Idle, m.board.Phase("d1"))
	assert.Equal(t, domain.StageLead, stageOf(t, m, "d1"))
	assert.Empty(t, fake.Calls(gatewaytest.OpUpdate))
}

func TestBoardModel_CancelDrag(t *testing.T) {
	m, fake := createTestBoardModel(t)

	m, _ = press(t, m, "m", "l", "esc")
	_, _, held := m.board.Held()
	assert.False(t, held)
	assert.False(t, m.Capturing())
	assert.Equal(t, domain.StageLead, stageOf(t, m, "d1"))
	assert.Empty(t, fake.Calls(gatewaytest.OpUpdate))
}

func TestBoardModel_FailedCommitKeepsStore(t *testing.T) {
	m, fake := createTestBoardModel(t)
	fake.Fail(gatewaytest.OpUpdate, errors.New("record api unavailable"))

	m, cmd := press(t, m, "m", "l", "enter")
	model, _ := m.Update(findMsg[stageCommittedMsg](t, cmd))
	m = model.(BoardModel)

	assert.Equal(t, pipeline.Idle, m.board.Phase("d1"))
	assert.Equal(t, domain.StageLead, stageOf(t, m, "d1"))
	assert.Len(t, m.visible[domain.StageLead], 2)
	assert.Equal(t, "Failed to move deal", m.toast)
	assert.True(t, m.toastIsErr)
}

func TestBoardModel_StagePicker(t *testing.T) {
	m, _ := createTestBoardModel(t)

	m, _ = press(t, m, "s")
	require.NotNil(t, m.stagePicker)
	assert.True(t, m.Capturing())

	model, cmd := m.Update(StageSelectedMsg{Stage: domain.StageQualified})
	m = model.(BoardModel)
	assert.Nil(t, m.stagePicker)
	assert.Equal(t, pipeline.Committing, m.board.Phase("d1"))

	model, _ = m.Update(findMsg[stageCommittedMsg](t, cmd))
	m = model.(BoardModel)
	assert.Equal(t, domain.StageQualified, stageOf(t, m, "d1"))
}

func TestBoardModel_StagePickerClosed(t *testing.T) {
	m, _ := createTestBoardModel(t)

	m, _ = press(t, m, "s")
	model, _ := m.Update(pickerClosedMsg{})
	m = model.(BoardModel)

	assert.Nil(t, m.stagePicker)
	_, _, held := m.board.Held()
	assert.False(t, held)
}

func TestBoardModel_Filter(t *testing.T) {
	m, _ := createTestBoardModel(t)

	m, _ = press(t, m, "/")
	assert.True(t, m.filterMode)
	m, _ = press(t, m, "g", "r", "a", "c", "e", "enter")
	assert.False(t, m.filterMode)
	assert.Equal(t, "grace", m.filterText)

	// Matches by contact name
	assert.Len(t, m.visible[domain.StageLead], 1)
	assert.Equal(t, "d2", m.visible[domain.StageLead][0].ID)
	assert.Len(t, m.visible[domain.StageQualified], 0)
	assert.Len(t, m.visible[domain.StageClosedWon], 1)

	// Columns still count every deal
	assert.Equal(t, 2, m.columns[0].Count)
}

func TestBoardModel_FilterByTitle(t *testing.T) {
	m, _ := createTestBoardModel(t)
	m.filterText = "initech"
	(&m).rebuildColumns()

	assert.Len(t, m.visible[domain.StageLead], 0)
	assert.Len(t, m.visible[domain.StageQualified], 1)
}

func TestBoardModel_Delete(t *testing.T) {
	m, fake := createTestBoardModel(t)

	m, _ = press(t, m, "d")
	assert.True(t, m.confirmDelete)
	assert.Contains(t, m.View(), `Delete "Acme renewal"?`)

	m, cmd := press(t, m, "y")
	deleted := findMsg[dealDeletedMsg](t, cmd)
	model, _ := m.Update(deleted)
	m = model.(BoardModel)

	assert.Equal(t, 3, m.board.Store().Len())
	assert.Len(t, m.visible[domain.StageLead], 1)
	assert.Len(t, fake.Calls(gatewaytest.OpDelete), 1)
}

func TestBoardModel_DeleteDeclined(t *testing.T) {
	m, fake := createTestBoardModel(t)

	m, cmd := press(t, m, "d", "n")
	assert.Nil(t, cmd)
	assert.False(t, m.confirmDelete)
	assert.Equal(t, 4, m.board.Store().Len())
	assert.Empty(t, fake.Calls(gatewaytest.OpDelete))
}

func TestBoardModel_LoadError(t *testing.T) {
	deals := gatewaytest.New(gateway.DealTable)
	deals.Fail(gatewaytest.OpList, errors.New("connection refused"))
	st := store.New(deals, gatewaytest.New(gateway.ContactTable))
	b := pipeline.New(st, deals, pipeline.WithClock(testClock))
	m := NewBoardModel(b, deals, context.Background(), 7)

	loaded := findMsg[dealsLoadedMsg](t, m.loadDeals())
	require.Error(t, loaded.err)
	model, _ := m.Update(loaded)
	m = model.(BoardModel)

	require.Error(t, m.loadErr)
	assert.Contains(t, m.View(), "Failed to load deals")
	assert.Contains(t, m.View(), "Press r to retry")

	deals.Fail(gatewaytest.OpList, nil)
	m, cmd := press(t, m, "r")
	assert.Nil(t, m.loadErr)
	model, _ = m.Update(findMsg[dealsLoadedMsg](t, cmd))
	m = model.(BoardModel)
	assert.Nil(t, m.loadErr)
}

func TestBoardModel_RefreshWaitsForPendingMoves(t *testing.T) {
	m, fake := createTestBoardModel(t)

	m, commit := press(t, m, "m", "l", "enter")
	require.Equal(t, 1, m.board.Pending())

	m, _ = press(t, m, "r")
	assert.False(t, m.loading)
	assert.True(t, m.toastIsErr)
	assert.Contains(t, m.toast, "pending moves")
	lists := len(fake.Calls(gatewaytest.OpList))

	model, _ := m.Update(findMsg[stageCommittedMsg](t, commit))
	m = model.(BoardModel)
	assert.Equal(t, domain.StageQualified, stageOf(t, m, "d1"))
	assert.Len(t, fake.Calls(gatewaytest.OpList), lists, "no reload was started")

	m, cmd := press(t, m, "r")
	require.True(t, m.loading)
	model, _ = m.Update(findMsg[dealsLoadedMsg](t, cmd))
	m = model.(BoardModel)
	assert.Equal(t, domain.StageQualified, stageOf(t, m, "d1"))
}

func TestBoardModel_NoPickDuringRefresh(t *testing.T) {
	m, _ := createTestBoardModel(t)

	m, cmd := press(t, m, "r")
	require.True(t, m.loading)

	m, _ = press(t, m, "m")
	_, _, held := m.board.Held()
	assert.False(t, held)
	assert.Contains(t, m.toast, "refresh")

	model, _ := m.Update(findMsg[dealsLoadedMsg](t, cmd))
	m = model.(BoardModel)
	m, _ = press(t, m, "m")
	_, _, held = m.board.Held()
	assert.True(t, held)
}

func TestBoardModel_OpenAndEditRequests(t *testing.T) {
	m, _ := createTestBoardModel(t)

	_, cmd := press(t, m, "enter")
	assert.Equal(t, "d1", findMsg[openDealMsg](t, cmd).deal.ID)

	_, cmd = press(t, m, "e")
	assert.Equal(t, "d1", findMsg[editDealMsg](t, cmd).deal.ID)

	_, cmd = press(t, m, "n")
	findMsg[newDealMsg](t, cmd)
}

func TestBoardModel_WindowResize(t *testing.T) {
	m, _ := createTestBoardModel(t)

	model, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = model.(BoardModel)

	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
}

func TestBoardModel_View_NotPanic(t *testing.T) {
	deals := gatewaytest.New(gateway.DealTable)
	st := store.New(deals, gatewaytest.New(gateway.ContactTable))
	m := NewBoardModel(pipeline.New(st, deals), deals, context.Background(), 1)

	require.NotPanics(t, func() {
		assert.Contains(t, m.View(), "Loading deals")
	})

	loaded, _ := createTestBoardModel(t)
	require.NotPanics(t, func() {
		assert.NotEmpty(t, loaded.View())
	})
}

func TestBoardModel_AllColumnsRendered(t *testing.T) {
	m, _ := createTestBoardModel(t)
	m.width = 200

	view := m.renderAllColumns()
	for _, st := range domain.Stages() {
		assert.Contains(t, view, st.Label())
	}
	assert.Contains(t, view, "Acme renewal")
	assert.Contains(t, view, "Ada Lovelace")
	assert.Greater(t, len(strings.Split(view, "\n")), 1)
}

func TestBoardModel_HeaderTotals(t *testing.T) {
	m, _ := createTestBoardModel(t)

	// Closed deals are excluded from the active totals
	assert.Contains(t, m.View(), "3 active deals worth $7,500")
}

func TestDaysInStage(t *testing.T) {
	assert.Equal(t, "1 day in stage", daysInStage(1))
	assert.Equal(t, "14 days in stage", daysInStage(14))
}
