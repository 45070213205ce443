package protocol

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/spuklo/retromat/internal/domain"
)

// CardSubmission is the validated payload of a client CARD message.
type CardSubmission struct {
	Type domain.CardType
	Text string
}

// CardSubmissionFromBody validates a CARD body: the type must be a known card
// type and the text must not be blank.
func CardSubmissionFromBody(body map[string]any) (CardSubmission, bool) {
	rawType, okType := body["type"]
	rawText, okText := body["text"]
	if !okType || !okText {
		return CardSubmission{}, false
	}

	typeStr, ok := rawType.(string)
	if !ok || !domain.ValidCardType(domain.CardType(typeStr)) {
		return CardSubmission{}, false
	}

	text, ok := rawText.(string)
	if !ok || strings.TrimSpace(text) == "" {
		return CardSubmission{}, false
	}

	return CardSubmission{Type: domain.CardType(typeStr), Text: text}, true
}

// Vote is the validated payload of a client VOTE message. Delta may be negative.
type Vote struct {
	CardID int64
	Delta  int32
}

// VoteFromBody validates a VOTE body: the card id must be a non-negative
// integer and the vote delta must fit in an int32.
func VoteFromBody(body map[string]any) (Vote, bool) {
	id, ok := intFromBody(body, "id")
	if !ok || id < 0 {
		return Vote{}, false
	}
	delta, ok := intFromBody(body, "vote")
	if !ok || delta < math.MinInt32 || delta > math.MaxInt32 {
		return Vote{}, false
	}
	return Vote{CardID: id, Delta: int32(delta)}, true
}

// SafetyLevelFromBody validates a SAFETY_LEVEL body: the level must parse as
// an integer in [1,5]. Clients send it either as a number or a string.
func SafetyLevelFromBody(body map[string]any) (int, bool) {
	level, ok := intFromBody(body, "level")
	if !ok || level < 1 || level > 5 {
		return 0, false
	}
	return int(level), true
}

// intFromBody coerces a schemaless body value into an int64. JSON numbers
// decode as float64; numeric strings are accepted for client compatibility.
func intFromBody(body map[string]any, key string) (int64, bool) {
	raw, ok := body[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	case int:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}
}
