package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStage(t *testing.T) {
	tests := []struct {
		raw  string
		want Stage
	}{
		{"lead", StageLead},
		{"Qualified", StageQualified},
		{" proposal ", StageProposal},
		{"closed-won", StageClosedWon},
		{"Closed Lost", StageClosedLost},
	}
	for _, tt := range tests {
		got, err := ParseStage(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseStage("negotiation")
	assert.ErrorIs(t, err, ErrInvalidStage)
	_, err = ParseStage("")
	assert.ErrorIs(t, err, ErrInvalidStage)
}

func TestStageOrdering(t *testing.T) {
	for i, st := range Stages() {
		assert.Equal(t, i, st.Index())
		assert.True(t, st.Valid())
	}
	assert.Equal(t, -1, Stage("bogus").Index())
	assert.True(t, StageClosedWon.Closed())
	assert.False(t, StageProposal.Closed())
}

func TestAggregateValue_NegativeIsZero(t *testing.T) {
	d := Deal{Value: decimal.NewFromInt(-500)}
	assert.True(t, d.AggregateValue().IsZero())

	d.Value = decimal.NewFromInt(1500)
	assert.True(t, d.AggregateValue().Equal(decimal.NewFromInt(1500)))
}

func TestDaysInStageAndStagnant(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	d := Deal{Stage: StageLead, MovedToStageAt: now.Add(-31 * 24 * time.Hour)}

	assert.Equal(t, 31, d.DaysInStage(now))
	assert.True(t, d.Stagnant(now, DefaultStagnantAfter))

	d.MovedToStageAt = now.Add(-DefaultStagnantAfter)
	assert.False(t, d.Stagnant(now, DefaultStagnantAfter), "exactly 30 days is not stagnant")

	d.MovedToStageAt = now.Add(time.Hour)
	assert.Equal(t, 0, d.DaysInStage(now))

	assert.False(t, Deal{}.Stagnant(now, DefaultStagnantAfter))
}

func TestStampStageChange(t *testing.T) {
	moved := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prev := Deal{ID: "1", Stage: StageLead, MovedToStageAt: moved}
	now := moved.Add(48 * time.Hour)

	t.Run("stage change stamps now", func(t *testing.T) {
		out := StampStageChange(prev, Fields{FieldStage: StageProposal}, now)
		assert.Equal(t, "proposal", out[FieldStage])
		assert.Equal(t, now.Format(time.RFC3339Nano), out[FieldMovedToStageAt])
	})

	t.Run("same stage does not stamp", func(t *testing.T) {
		out := StampStageChange(prev, Fields{FieldStage: "lead", FieldTitle: "x"}, now)
		assert.NotContains(t, out, FieldMovedToStageAt)
		assert.Equal(t, "x", out[FieldTitle])
	})

	t.Run("other fields strip caller stamp", func(t *testing.T) {
		out := StampStageChange(prev, Fields{FieldTitle: "x", FieldMovedToStageAt: "2020-01-01"}, now)
		assert.NotContains(t, out, FieldMovedToStageAt)
	})

	t.Run("clock behind prior stamp still increases", func(t *testing.T) {
		out := StampStageChange(prev, Fields{FieldStage: "qualified"}, moved.Add(-time.Hour))
		stamp, err := time.Parse(time.RFC3339Nano, out[FieldMovedToStageAt].(string))
		require.NoError(t, err)
		assert.True(t, stamp.After(moved))
	})

	t.Run("input fields are not mutated", func(t *testing.T) {
		in := Fields{FieldStage: "qualified"}
		StampStageChange(prev, in, now)
		assert.Len(t, in, 1)
	})
}

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "$0"},
		{"999", "$999"},
		{"1000", "$1,000"},
		{"1234567", "$1,234,567"},
		{"1234.5", "$1,234.50"},
		{"10.05", "$10.05"},
		{"-2500", "-$2,500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMoney(decimal.RequireFromString(tt.in)), tt.in)
	}
}
