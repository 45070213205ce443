package domain

import (
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
)

// Retro is the full state of one retrospective: a 6-digit identifier used to
// name snapshot files, the creation time and the ordered card list.
type Retro struct {
	ID      int       `json:"id"`
	Created time.Time `json:"created"`
	Cards   []Card    `json:"cards"`
}

// NewRetro builds a fresh empty retro with a random 6-digit id.
func NewRetro(clock clockwork.Clock) Retro {
	return Retro{
		ID:      Random6Digits(),
		Created: clock.Now(),
		Cards:   []Card{},
	}
}

// Random6Digits returns a random number in [100000, 999999].
func Random6Digits() int {
	return rand.IntN(900000) + 100000
}

// WithCard returns a new retro with the card appended.
func (r Retro) WithCard(card Card) Retro {
	cards := make([]Card, 0, len(r.Cards)+1)
	cards = append(cards, r.Cards...)
	cards = append(cards, card)
	return Retro{ID: r.ID, Created: r.Created, Cards: cards}
}

// WithVotedCard returns a new retro where the card with the same id is
// replaced by the given one. The updated card moves to the end of the list;
// clients do not rely on card order.
func (r Retro) WithVotedCard(card Card) Retro {
	cards := make([]Card, 0, len(r.Cards))
	for _, c := range r.Cards {
		if c.ID != card.ID {
			cards = append(cards, c)
		}
	}
	cards = append(cards, card)
	return Retro{ID: r.ID, Created: r.Created, Cards: cards}
}

// Card returns the card with the given id, if present.
func (r Retro) Card(id int64) (Card, bool) {
	for _, c := range r.Cards {
		if c.ID == id {
			return c, true
		}
	}
	return Card{}, false
}

// Body returns the retro as a message body mapping.
func (r Retro) Body() map[string]any {
	cards := make([]map[string]any, 0, len(r.Cards))
	for _, c := range r.Cards {
		cards = append(cards, c.Body())
	}
	return map[string]any{
		"id":      r.ID,
		"created": r.Created,
		"cards":   cards,
	}
}

// Message wraps the full retro state in a RETRO envelope.
func (r Retro) Message() Message {
	return Message{Type: MessageRetro, Body: r.Body()}
}
