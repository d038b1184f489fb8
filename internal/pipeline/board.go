// Package pipeline implements the stage-transition workflow behind the
// pipeline board. A Board tracks at most one drag gesture at a time and any
// number of in-flight commits, one per deal:
//
//	Idle --Pick--> Dragging --Drop(other stage)--> Committing --Resolve--> Idle
//	                  |--Drop(same stage)---------------------------> Idle
//	                  |--Drop(no column) / Cancel ------------------> Idle
//
// The Store is written only by Resolve after the gateway confirmed the
// update, so a failed commit leaves the deal exactly as last confirmed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
	"github.com/robby/pflow/internal/store"
)

var (
	// ErrBusy indicates the deal has a commit in flight and cannot be picked up.
	ErrBusy = errors.New("deal is being saved")
	// ErrNotDragging indicates Drop or Cancel without a picked-up deal.
	ErrNotDragging = errors.New("no deal picked up")
	// ErrAlreadyDragging indicates Pick while another deal is held.
	ErrAlreadyDragging = errors.New("another deal is already picked up")
	// ErrCommitFailed wraps the gateway error of a failed stage change.
	ErrCommitFailed = errors.New("failed to move deal")
)

// Phase is the per-deal position in the drag state machine.
type Phase int

const (
	Idle Phase = iota
	Dragging
	Committing
)

func (p Phase) String() string {
	switch p {
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	default:
		return "idle"
	}
}

// Commit is a stage change waiting to be sent to the gateway.
type Commit struct {
	Prev domain.Deal  // Deal as last confirmed
	To   domain.Stage // Target stage
}

// DealID returns the id of the deal being moved.
func (c Commit) DealID() string { return c.Prev.ID }

// Result is the outcome of Run, fed back into Resolve.
type Result struct {
	Commit Commit
	Deal   domain.Deal // Updated deal as returned by the gateway
	Err    error
}

type drag struct {
	deal   domain.Deal
	target domain.Stage
}

// Option configures a Board.
type Option func(*Board)

// WithClock overrides the time source used for stage stamps.
func WithClock(now func() time.Time) Option {
	return func(b *Board) { b.now = now }
}

// WithStagnantAfter overrides how long a deal may idle in one stage.
func WithStagnantAfter(d time.Duration) Option {
	return func(b *Board) {
		if d > 0 {
			b.stagnantAfter = d
		}
	}
}

// Board is the drag state machine for one pipeline session.
type Board struct {
	store         *store.Store
	deals         gateway.Collection[domain.Deal]
	now           func() time.Time
	stagnantAfter time.Duration

	mu         sync.Mutex
	drag       *drag
	committing map[string]Commit
}

// New creates a Board over st that writes through deals.
func New(st *store.Store, deals gateway.Collection[domain.Deal], opts ...Option) *Board {
	b := &Board{
		store:         st,
		deals:         deals,
		now:           time.Now,
		stagnantAfter: domain.DefaultStagnantAfter,
		committing:    make(map[string]Commit),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Store returns the deal store the board renders.
func (b *Board) Store() *store.Store { return b.store }

// Columns projects the store into board columns.
func (b *Board) Columns() []Column { return Columns(b.store.All()) }

// Stagnant reports whether d has idled in its stage past the threshold.
func (b *Board) Stagnant(d domain.Deal) bool {
	return d.Stagnant(b.now(), b.stagnantAfter)
}

// Now returns the board's clock reading.
func (b *Board) Now() time.Time { return b.now() }

// Phase returns where dealID is in the state machine.
func (b *Board) Phase(dealID string) Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.committing[dealID]; ok {
		return Committing
	}
	if b.drag != nil && b.drag.deal.ID == dealID {
		return Dragging
	}
	return Idle
}

// Held returns the picked-up deal and the currently targeted stage.
func (b *Board) Held() (domain.Deal, domain.Stage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drag == nil {
		return domain.Deal{}, "", false
	}
	return b.drag.deal, b.drag.target, true
}

// Pending returns the number of commits in flight.
func (b *Board) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.committing)
}

// Pick starts a drag of dealID from its current stage.
func (b *Board) Pick(dealID string) error {
	d, err := b.store.Get(dealID)
	if err != nil {
		return err
	}
	if !d.Stage.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidStage, d.Stage)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.committing[dealID]; ok {
		return fmt.Errorf("%w: %s", ErrBusy, d.Title)
	}
	if b.drag != nil {
		return ErrAlreadyDragging
	}
	b.drag = &drag{deal: d, target: d.Stage}
	return nil
}

// Hover moves the drag target to stage. Any value is accepted; an invalid
// stage means the pointer is outside every column.
func (b *Board) Hover(stage domain.Stage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drag == nil {
		return ErrNotDragging
	}
	b.drag.target = stage
	return nil
}

// Shift moves the drag target by delta columns, clamped to the board.
func (b *Board) Shift(delta int) (domain.Stage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drag == nil {
		return "", ErrNotDragging
	}
	stages := domain.Stages()
	i := b.drag.target.Index()
	if i < 0 {
		i = b.drag.deal.Stage.Index()
	}
	i += delta
	if i < 0 {
		i = 0
	}
	if i >= len(stages) {
		i = len(stages) - 1
	}
	b.drag.target = stages[i]
	return b.drag.target, nil
}

// Cancel abandons the current drag without side effects.
func (b *Board) Cancel() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drag == nil {
		return ErrNotDragging
	}
	b.drag = nil
	return nil
}

// Drop releases the held deal over target. It returns ok=true with the
// commit to run only when the stage actually changes; dropping on the
// current column or outside every column returns to Idle with nothing to
// send.
func (b *Board) Drop(target domain.Stage) (Commit, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drag == nil {
		return Commit{}, false, ErrNotDragging
	}
	held := b.drag.deal
	b.drag = nil

	if !target.Valid() || target == held.Stage {
		return Commit{}, false, nil
	}

	c := Commit{Prev: held, To: target}
	b.committing[held.ID] = c
	return c, true, nil
}

// DropHere drops on the currently targeted stage.
func (b *Board) DropHere() (Commit, bool, error) {
	_, target, ok := b.Held()
	if !ok {
		return Commit{}, false, ErrNotDragging
	}
	return b.Drop(target)
}

// Run sends the stage change to the gateway. It touches no board state and
// is meant to run off the UI loop.
func (b *Board) Run(ctx context.Context, c Commit) Result {
	fields := domain.StampStageChange(c.Prev, domain.Fields{domain.FieldStage: string(c.To)}, b.now())
	updated, err := b.deals.Update(ctx, c.Prev.ID, fields)
	return Result{Commit: c, Deal: updated, Err: err}
}

// Resolve finishes a commit. On success the store's deal is replaced by the
// gateway's copy; on failure the store is left as it was and the wrapped
// error is returned.
func (b *Board) Resolve(res Result) error {
	id := res.Commit.DealID()

	b.mu.Lock()
	delete(b.committing, id)
	b.mu.Unlock()

	if res.Err != nil {
		log.Warn().Err(res.Err).Str("deal", id).Str("to", string(res.Commit.To)).Msg("stage change failed")
		return fmt.Errorf("%w: %w", ErrCommitFailed, res.Err)
	}

	updated := res.Deal
	if !updated.Stage.Valid() {
		// a gateway that echoes nothing useful still confirmed the move
		updated = res.Commit.Prev
		updated.Stage = res.Commit.To
		updated.MovedToStageAt = b.now()
		if !updated.MovedToStageAt.After(res.Commit.Prev.MovedToStageAt) {
			updated.MovedToStageAt = res.Commit.Prev.MovedToStageAt.Add(time.Millisecond)
		}
	}
	if !b.store.Replace(id, updated) {
		log.Debug().Str("deal", id).Msg("moved deal no longer in store")
	}
	log.Info().Str("deal", id).Str("from", string(res.Commit.Prev.Stage)).Str("to", string(updated.Stage)).Msg("deal moved")
	return nil
}

// Move runs a whole gesture synchronously: pick, drop on to, commit and
// resolve. It reports changed=false when the deal already is in stage to.
func (b *Board) Move(ctx context.Context, dealID string, to domain.Stage) (changed bool, err error) {
	if !to.Valid() {
		return false, fmt.Errorf("%w: %q", domain.ErrInvalidStage, to)
	}
	if err := b.Pick(dealID); err != nil {
		return false, err
	}
	c, ok, err := b.Drop(to)
	if err != nil || !ok {
		return false, err
	}
	if err := b.Resolve(b.Run(ctx, c)); err != nil {
		return false, err
	}
	return true, nil
}
