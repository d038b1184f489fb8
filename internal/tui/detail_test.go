package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/gateway/gatewaytest"
)

func createTestDetail(t *testing.T, dealID string) (DetailModel, *gatewaytest.Collection[domain.Activity]) {
	t.Helper()
	board, _ := createTestBoardModel(t)
	d, err := board.board.Store().Get(dealID)
	require.NoError(t, err)

	activities := gatewaytest.New(gateway.ActivityTable)
	m := NewDetailModel(d, board.board, activities, context.Background())
	model, _ := m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return model.(DetailModel), activities
}

func pressDetail(t *testing.T, m DetailModel, keys ...string) (DetailModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var model tea.Model
		model, cmd = m.Update(keyPress(k))
		m = model.(DetailModel)
	}
	return m, cmd
}

func TestDetail_LogsTypedActivity(t *testing.T) {
	m, activities := createTestDetail(t, "d1")

	m, _ = pressDetail(t, m, "c")
	require.True(t, m.Capturing())
	assert.Equal(t, domain.ActivityCall, m.activityType)

	m, _ = pressDetail(t, m, "tab")
	assert.Equal(t, domain.ActivityEmail, m.activityType)
	m, _ = pressDetail(t, m, "Sent the revised proposal")
	m, cmd := pressDetail(t, m, "ctrl+s")
	assert.True(t, m.loading)

	logged := findMsg[activityLoggedMsg](t, cmd)
	require.NoError(t, logged.err)
	model, cmd := m.Update(logged)
	m = model.(DetailModel)
	assert.False(t, m.Capturing())
	assert.Equal(t, "Email logged", m.successMsg)

	creates := activities.Calls(gatewaytest.OpCreate)
	require.Len(t, creates, 1)
	assert.Equal(t, domain.ActivityEmail, creates[0].Fields[domain.FieldActivityType])
	assert.Equal(t, "d1", creates[0].Fields[domain.FieldActivityDealID])
	assert.Equal(t, "c1", creates[0].Fields[domain.FieldContactID])

	model, _ = m.Update(findMsg[timelineLoadedMsg](t, cmd))
	m = model.(DetailModel)
	require.Len(t, m.timeline, 1)
	assert.Equal(t, domain.ActivityEmail, m.timeline[0].Type)
}

func TestDetail_EscWithDraftAsksFirst(t *testing.T) {
	m, activities := createTestDetail(t, "d1")

	m, _ = pressDetail(t, m, "n", "Follow up Tuesday", "esc")
	assert.True(t, m.confirmExit)

	m, _ = pressDetail(t, m, "n")
	assert.False(t, m.confirmExit)
	assert.True(t, m.noteMode, "draft kept")
	assert.Empty(t, activities.Calls(gatewaytest.OpCreate))
}

func TestDetail_NeedsContactToLog(t *testing.T) {
	board, _ := createTestBoardModel(t)
	d := domain.Deal{ID: "d9", Title: "Orphan", Stage: domain.StageLead}
	m := NewDetailModel(d, board.board, gatewaytest.New(gateway.ActivityTable), context.Background())

	m, _ = pressDetail(t, m, "a")
	assert.False(t, m.Capturing())
	assert.Equal(t, "Link a contact before logging activity", m.errorMsg)
}

func TestFormatTimeAgo(t *testing.T) {
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{time.Minute, "1m ago"},
		{5 * time.Hour, "5h ago"},
		{3 * 24 * time.Hour, "3d ago"},
		{14 * 24 * time.Hour, "2w ago"},
		{90 * 24 * time.Hour, "Dec 15, 2025"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatTimeAgo(testNow.Add(-tt.ago), testNow))
	}
	assert.Equal(t, "unknown time", formatTimeAgo(time.Time{}, testNow))
}
