package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/gateway/gatewaytest"
	"github.com/robby/pflow/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testMoved = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	testNow   = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
)

func createTestDeals() []domain.Deal {
	return []domain.Deal{
		{ID: "1", Title: "One", Value: decimal.NewFromInt(1000), Stage: domain.StageLead, MovedToStageAt: testMoved},
		{ID: "2", Title: "Two", Value: decimal.NewFromInt(2000), Stage: domain.StageQualified, MovedToStageAt: testMoved},
	}
}

func createTestBoard(t *testing.T, deals ...domain.Deal) (*Board, *gatewaytest.Collection[domain.Deal]) {
	t.Helper()
	if deals == nil {
		deals = createTestDeals()
	}
	fake := gatewaytest.New(gateway.DealTable, deals...)
	st := store.New(fake, gatewaytest.New(gateway.ContactTable))
	require.NoError(t, st.Load(context.Background()))
	return New(st, fake, WithClock(func() time.Time { return testNow })), fake
}

func column(cols []Column, st domain.Stage) Column {
	return cols[st.Index()]
}

func stagesByID(b *Board) map[string]domain.Stage {
	out := map[string]domain.Stage{}
	for _, d := range b.Store().All() {
		out[d.ID] = d.Stage
	}
	return out
}

func TestScenario_DragToOtherStageSucceeds(t *testing.T) {
	b, fake := createTestBoard(t)

	before := b.Columns()
	assert.Equal(t, 1, column(before, domain.StageLead).Count)
	assert.Equal(t, 0, column(before, domain.StageProposal).Count)

	require.NoError(t, b.Pick("1"))
	assert.Equal(t, Dragging, b.Phase("1"))

	c, ok, err := b.Drop(domain.StageProposal)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Committing, b.Phase("1"))

	require.NoError(t, b.Resolve(b.Run(context.Background(), c)))
	assert.Equal(t, Idle, b.Phase("1"))

	assert.Equal(t, map[string]domain.Stage{"1": domain.StageProposal, "2": domain.StageQualified}, stagesByID(b))
	after := b.Columns()
	assert.Equal(t, 0, column(after, domain.StageLead).Count)
	assert.Equal(t, 1, column(after, domain.StageProposal).Count)
	assert.True(t, column(after, domain.StageProposal).Value.Equal(decimal.NewFromInt(1000)))

	updates := fake.Calls(gatewaytest.OpUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, "1", updates[0].ID)
	assert.Equal(t, "proposal", updates[0].Fields[domain.FieldStage])

	d, err := b.Store().Get("1")
	require.NoError(t, err)
	assert.True(t, d.MovedToStageAt.After(testMoved), "stamp strictly increases")
	assert.True(t, d.Value.Equal(decimal.NewFromInt(1000)))
}

func TestScenario_DropOnSameColumnIsNoop(t *testing.T) {
	b, fake := createTestBoard(t)
	before := b.Store().All()

	require.NoError(t, b.Pick("2"))
	_, ok, err := b.Drop(domain.StageQualified)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Idle, b.Phase("2"))

	assert.Equal(t, before, b.Store().All())
	assert.Empty(t, fake.Calls(gatewaytest.OpUpdate))
}

func TestScenario_CommitFailureLeavesStoreUnchanged(t *testing.T) {
	b, fake := createTestBoard(t)
	before := b.Store().All()
	boom := errors.New("server said no")
	fake.Fail(gatewaytest.OpUpdate, boom)

	require.NoError(t, b.Pick("1"))
	c, ok, err := b.Drop(domain.StageClosedWon)
	require.NoError(t, err)
	require.True(t, ok)

	err = b.Resolve(b.Run(context.Background(), c))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommitFailed)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, before, b.Store().All())
	d, _ := b.Store().Get("1")
	assert.Equal(t, domain.StageLead, d.Stage)
	assert.True(t, d.MovedToStageAt.Equal(testMoved))
	assert.Equal(t, Idle, b.Phase("1"), "failed commit returns to idle")
}

func TestDrop_OutsideColumnsAbandons(t *testing.T) {
	b, fake := createTestBoard(t)

	require.NoError(t, b.Pick("1"))
	require.NoError(t, b.Hover(domain.Stage("")))
	_, ok, err := b.DropHere()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Idle, b.Phase("1"))
	assert.Empty(t, fake.Calls(gatewaytest.OpUpdate))
}

func TestPick_BusyWhileCommitting(t *testing.T) {
	b, _ := createTestBoard(t)

	require.NoError(t, b.Pick("1"))
	c, ok, err := b.Drop(domain.StageProposal)
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, b.Pick("1"), ErrBusy)

	// other deals stay interactive while 1 is in flight
	require.NoError(t, b.Pick("2"))
	require.NoError(t, b.Cancel())

	require.NoError(t, b.Resolve(b.Run(context.Background(), c)))
	require.NoError(t, b.Pick("1"))
}

func TestPick_Errors(t *testing.T) {
	b, _ := createTestBoard(t)

	assert.ErrorIs(t, b.Pick("404"), store.ErrDealNotFound)

	require.NoError(t, b.Pick("1"))
	assert.ErrorIs(t, b.Pick("2"), ErrAlreadyDragging)
	require.NoError(t, b.Cancel())
	assert.ErrorIs(t, b.Cancel(), ErrNotDragging)

	_, _, err := b.Drop(domain.StageLead)
	assert.ErrorIs(t, err, ErrNotDragging)
}

func TestShift_ClampsToBoard(t *testing.T) {
	b, _ := createTestBoard(t)
	require.NoError(t, b.Pick("1"))

	st, err := b.Shift(-1)
	require.NoError(t, err)
	assert.Equal(t, domain.StageLead, st)

	st, err = b.Shift(2)
	require.NoError(t, err)
	assert.Equal(t, domain.StageProposal, st)

	st, err = b.Shift(10)
	require.NoError(t, err)
	assert.Equal(t, domain.StageClosedLost, st)

	_, target, ok := b.Held()
	require.True(t, ok)
	assert.Equal(t, domain.StageClosedLost, target)
}

func TestConcurrentCommits_DifferentDeals(t *testing.T) {
	b, _ := createTestBoard(t)

	require.NoError(t, b.Pick("1"))
	c1, _, err := b.Drop(domain.StageProposal)
	require.NoError(t, err)
	require.NoError(t, b.Pick("2"))
	c2, _, err := b.Drop(domain.StageClosedWon)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Pending())

	results := make(chan Result, 2)
	for _, c := range []Commit{c1, c2} {
		go func(c Commit) { results <- b.Run(context.Background(), c) }(c)
	}
	r1, r2 := <-results, <-results
	// resolved in whichever order they finished
	require.NoError(t, b.Resolve(r2))
	require.NoError(t, b.Resolve(r1))

	assert.Equal(t, 0, b.Pending())
	assert.Equal(t, map[string]domain.Stage{"1": domain.StageProposal, "2": domain.StageClosedWon}, stagesByID(b))
}

func TestResolve_DealRemovedMeanwhile(t *testing.T) {
	b, _ := createTestBoard(t)

	require.NoError(t, b.Pick("1"))
	c, _, err := b.Drop(domain.StageProposal)
	require.NoError(t, err)
	res := b.Run(context.Background(), c)

	b.Store().Remove("1")
	require.NoError(t, b.Resolve(res))
	_, err = b.Store().Get("1")
	assert.ErrorIs(t, err, store.ErrDealNotFound, "replace never inserts")
}

func TestMove(t *testing.T) {
	b, fake := createTestBoard(t)

	changed, err := b.Move(context.Background(), "2", domain.StageQualified)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = b.Move(context.Background(), "2", domain.StageClosedLost)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Len(t, fake.Calls(gatewaytest.OpUpdate), 1)

	_, err = b.Move(context.Background(), "2", domain.Stage("archived"))
	assert.ErrorIs(t, err, domain.ErrInvalidStage)
}

func TestStagnant(t *testing.T) {
	old := domain.Deal{ID: "old", Stage: domain.StageLead, MovedToStageAt: testNow.Add(-31 * 24 * time.Hour)}
	fresh := domain.Deal{ID: "fresh", Stage: domain.StageLead, MovedToStageAt: testNow.Add(-2 * 24 * time.Hour)}
	b, _ := createTestBoard(t, old, fresh)

	assert.True(t, b.Stagnant(old))
	assert.False(t, b.Stagnant(fresh))

	strict := New(b.Store(), nil, WithClock(b.now), WithStagnantAfter(24*time.Hour))
	assert.True(t, strict.Stagnant(fresh))
}
