package domain

// CardType categorizes a retrospective card.
type CardType string

const (
	CardTypePositive     CardType = "POSITIVE"
	CardTypeNegative     CardType = "NEGATIVE"
	CardTypeOther        CardType = "OTHER"
	CardTypeAction       CardType = "ACTION"
	CardTypeIdea         CardType = "IDEA"
	CardTypeAppreciation CardType = "APPRECIATION"
)

var cardTypes = map[CardType]struct{}{
	CardTypePositive:     {},
	CardTypeNegative:     {},
	CardTypeOther:        {},
	CardTypeAction:       {},
	CardTypeIdea:         {},
	CardTypeAppreciation: {},
}

// ValidCardType reports whether t is one of the known card types.
func ValidCardType(t CardType) bool {
	_, ok := cardTypes[t]
	return ok
}

// submissionRules remaps certain submitted card types into a different stored
// type with a tag prepended to the text. Types without a rule are stored as sent.
var submissionRules = map[CardType]struct {
	stored CardType
	prefix string
}{
	CardTypeIdea:         {CardTypeOther, "[IDEA] "},
	CardTypeAppreciation: {CardTypeOther, "[APPRECIATION] "},
}

// NormalizeSubmission applies the submission remap rules to a validated
// card submission and returns the type and text to store.
func NormalizeSubmission(t CardType, text string) (CardType, string) {
	if rule, ok := submissionRules[t]; ok {
		return rule.stored, rule.prefix + text
	}
	return t, text
}

// Card is a single retrospective note. Cards are immutable values; WithVote
// returns a new card rather than mutating in place.
type Card struct {
	ID    int64    `json:"id"`
	Type  CardType `json:"type"`
	Text  string   `json:"text"`
	Votes int32    `json:"votes"`
}

// WithVote returns a copy of the card with the vote delta applied.
func (c Card) WithVote(delta int32) Card {
	return Card{ID: c.ID, Type: c.Type, Text: c.Text, Votes: c.Votes + delta}
}

// Body returns the card as a message body mapping.
func (c Card) Body() map[string]any {
	return map[string]any{
		"id":    c.ID,
		"type":  string(c.Type),
		"text":  c.Text,
		"votes": c.Votes,
	}
}

// Message wraps the card in a CARD envelope for broadcasting.
func (c Card) Message() Message {
	return Message{Type: MessageCard, Body: c.Body()}
}
