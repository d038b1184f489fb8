package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultStagnantAfter is how long a deal may sit in one stage before it is
// flagged as stagnant.
const DefaultStagnantAfter = 30 * 24 * time.Hour

// Deal field names as they appear in gateway records.
const (
	FieldTitle             = "title"
	FieldValue             = "value"
	FieldStage             = "stage"
	FieldContactID         = "contactId"
	FieldExpectedCloseDate = "expectedCloseDate"
	FieldMovedToStageAt    = "movedToStageAt"
	FieldCreatedAt         = "createdAt"
)

// Fields is a partial record sent to the gateway on create or update.
type Fields map[string]any

// Deal is a sales opportunity tracked on the pipeline board.
type Deal struct {
	ID                string          // Server-assigned, immutable
	Title             string          // Display title
	Value             decimal.Decimal // Monetary amount as stored; see AggregateValue
	Stage             Stage           // Column membership; empty if the record carried an unknown stage
	ContactID         string          // Linked contact, empty if none
	ExpectedCloseDate time.Time       // Display only; zero if unset
	MovedToStageAt    time.Time       // Last stage transition
	CreatedAt         time.Time
	Extra             map[string]any // Audit fields passed through unmodified
}

// AggregateValue is the value used in sums: negative amounts count as zero.
func (d Deal) AggregateValue() decimal.Decimal {
	if d.Value.IsNegative() {
		return decimal.Zero
	}
	return d.Value
}

// Active reports whether the deal is still open.
func (d Deal) Active() bool {
	return d.Stage.Valid() && !d.Stage.Closed()
}

// DaysInStage is the number of whole days since the last stage transition.
func (d Deal) DaysInStage(now time.Time) int {
	if d.MovedToStageAt.IsZero() || now.Before(d.MovedToStageAt) {
		return 0
	}
	return int(now.Sub(d.MovedToStageAt).Hours() / 24)
}

// Stagnant reports whether the deal has stayed in its stage longer than after.
func (d Deal) Stagnant(now time.Time, after time.Duration) bool {
	if d.MovedToStageAt.IsZero() {
		return false
	}
	return now.Sub(d.MovedToStageAt) > after
}

// StampStageChange returns a copy of fields prepared for a write to prev.
// movedToStageAt is set when the write moves the deal to a different stage
// and dropped otherwise. The stamp is always later than prev.MovedToStageAt.
func StampStageChange(prev Deal, fields Fields, now time.Time) Fields {
	out := make(Fields, len(fields)+1)
	for k, v := range fields {
		if k != FieldMovedToStageAt {
			out[k] = v
		}
	}

	raw, ok := fields[FieldStage]
	if !ok {
		return out
	}
	next, err := ParseStage(stageString(raw))
	if err != nil || next == prev.Stage {
		return out
	}

	// clock skew must not move the stamp backwards
	if !now.After(prev.MovedToStageAt) {
		now = prev.MovedToStageAt.Add(time.Millisecond)
	}
	out[FieldStage] = string(next)
	out[FieldMovedToStageAt] = now.UTC().Format(time.RFC3339Nano)
	return out
}

func stageString(v any) string {
	switch s := v.(type) {
	case Stage:
		return string(s)
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}
