// Package store holds the single process-wide retro behind an atomically
// swapped immutable snapshot. Mutations build a new retro value and commit it
// with compare-and-swap, so readers never observe torn state and concurrent
// mutations serialize without locks.
package store

import (
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/spuklo/retromat/internal/domain"
)

type Store struct {
	clock   clockwork.Clock
	current atomic.Pointer[domain.Retro]
}

// New creates a store seeded with the given retro.
func New(initial domain.Retro, clock clockwork.Clock) *Store {
	s := &Store{clock: clock}
	s.current.Store(&initial)
	return s
}

// Current returns the latest committed retro. Non-blocking.
func (s *Store) Current() domain.Retro {
	return *s.current.Load()
}

// AddCard appends the card to the retro and commits, returning the new retro.
func (s *Store) AddCard(card domain.Card) domain.Retro {
	for {
		old := s.current.Load()
		updated := old.WithCard(card)
		if s.current.CompareAndSwap(old, &updated) {
			return updated
		}
	}
}

// ApplyVote looks up the card, applies the vote delta and commits the new
// retro. Returns ErrCardNotFound if the id is absent from the current retro;
// the retro is left unchanged in that case.
func (s *Store) ApplyVote(cardID int64, delta int32) (domain.Retro, domain.Card, error) {
	for {
		old := s.current.Load()
		card, ok := old.Card(cardID)
		if !ok {
			return *old, domain.Card{}, domain.ErrCardNotFound
		}
		voted := card.WithVote(delta)
		updated := old.WithVotedCard(voted)
		if s.current.CompareAndSwap(old, &updated) {
			return updated, voted, nil
		}
	}
}

// Reset replaces the retro wholesale with a freshly generated empty one and
// returns both the retired and the new value.
func (s *Store) Reset() (old, current domain.Retro) {
	for {
		prev := s.current.Load()
		fresh := domain.NewRetro(s.clock)
		if s.current.CompareAndSwap(prev, &fresh) {
			return *prev, fresh
		}
	}
}
