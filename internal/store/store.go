// Package store provides the Deal Store: the session's in-memory mirror of
// last known-good server state for deals, plus the contact directory used to
// label them. It is mutated only after a gateway call has succeeded.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robby/pflow/internal/domain"
	"github.com/robby/pflow/internal/gateway"
)

var (
	// ErrDealNotFound indicates the requested deal is not in the store.
	ErrDealNotFound = errors.New("deal not found")
	// ErrDuplicateDeal indicates Append was given an id already present.
	ErrDuplicateDeal = errors.New("deal already in store")
)

// Store is an owned, concurrency-safe deal collection. A Store is created
// when a pipeline session starts and dropped with it; nothing here is
// package-level.
type Store struct {
	deals    gateway.Collection[domain.Deal]
	contacts gateway.Collection[domain.Contact]

	mu          sync.RWMutex
	order       []string               // deal ids in load order, appended last
	byID        map[string]domain.Deal // id -> last confirmed deal
	contactList []domain.Contact
	contactName map[string]string
	loadedAt    time.Time
}

// New creates an empty Store reading from the given collections.
func New(deals gateway.Collection[domain.Deal], contacts gateway.Collection[domain.Contact]) *Store {
	return &Store{
		deals:       deals,
		contacts:    contacts,
		byID:        make(map[string]domain.Deal),
		contactName: make(map[string]string),
	}
}

// Load fetches every deal and contact concurrently and replaces the whole
// collection. On failure the previous contents are kept and the error is
// returned.
func (s *Store) Load(ctx context.Context) error {
	var (
		deals    []domain.Deal
		contacts []domain.Contact
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		deals, err = gateway.ListAll(gctx, s.deals, gateway.Filter{})
		if err != nil {
			return fmt.Errorf("failed to load deals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		contacts, err = gateway.ListAll(gctx, s.contacts, gateway.Filter{})
		if err != nil {
			return fmt.Errorf("failed to load contacts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("store load failed")
		return err
	}

	s.Set(deals, contacts)
	log.Info().Int("deals", len(deals)).Int("contacts", len(contacts)).Msg("store loaded")
	return nil
}

// Set replaces the whole collection with already-fetched records.
func (s *Store) Set(deals []domain.Deal, contacts []domain.Contact) {
	order := make([]string, 0, len(deals))
	byID := make(map[string]domain.Deal, len(deals))
	for _, d := range deals {
		if _, dup := byID[d.ID]; !dup {
			order = append(order, d.ID)
		}
		byID[d.ID] = d
	}

	names := make(map[string]string, len(contacts))
	for _, c := range contacts {
		names[c.ID] = c.Name
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = order
	s.byID = byID
	s.contactList = append([]domain.Contact(nil), contacts...)
	s.contactName = names
	s.loadedAt = time.Now()
}

// Replace substitutes the deal with updated.ID. An unknown id is a no-op;
// the return value reports whether anything was replaced.
func (s *Store) Replace(id string, updated domain.Deal) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false
	}
	updated.ID = id
	s.byID[id] = updated
	return true
}

// Append adds a newly created deal after every existing one.
func (s *Store) Append(d domain.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[d.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateDeal, d.ID)
	}
	s.order = append(s.order, d.ID)
	s.byID[d.ID] = d
	return nil
}

// Remove drops a deal; removing an unknown id is a no-op.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the deal with id, or ErrDealNotFound.
func (s *Store) Get(id string) (domain.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[id]
	if !ok {
		return domain.Deal{}, fmt.Errorf("%w: %s", ErrDealNotFound, id)
	}
	return d, nil
}

// All returns a snapshot of every deal in stable order.
func (s *Store) All() []domain.Deal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Deal, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of deals.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Contacts returns the contact directory captured by the last load.
func (s *Store) Contacts() []domain.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Contact(nil), s.contactList...)
}

// ContactName resolves a contact id for display.
func (s *Store) ContactName(contactID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name, ok := s.contactName[contactID]; ok && name != "" {
		return name
	}
	return domain.UnknownContact
}

// LoadedAt reports when the collection was last replaced; zero before the
// first successful load.
func (s *Store) LoadedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadedAt
}
