package domain

// MessageType tags the wire message envelope.
type MessageType string

const (
	MessageRetro       MessageType = "RETRO"
	MessageCard        MessageType = "CARD"
	MessageVote        MessageType = "VOTE"
	MessageError       MessageType = "ERROR"
	MessageSafetyLevel MessageType = "SAFETY_LEVEL"
	MessageStats       MessageType = "STATS"
	MessagePing        MessageType = "PING"
	MessageVersion     MessageType = "VERSION"
)

var messageTypes = map[MessageType]struct{}{
	MessageRetro:       {},
	MessageCard:        {},
	MessageVote:        {},
	MessageError:       {},
	MessageSafetyLevel: {},
	MessageStats:       {},
	MessagePing:        {},
	MessageVersion:     {},
}

// ValidMessageType reports whether t is one of the known message types.
func ValidMessageType(t MessageType) bool {
	_, ok := messageTypes[t]
	return ok
}

// Message is the wire envelope: a type tag plus a schemaless body. Validity of
// the body is enforced by the per-kind handlers, not by the envelope.
type Message struct {
	Type MessageType    `json:"type"`
	Body map[string]any `json:"body"`
}

// ErrorMessage builds a synthetic ERROR envelope.
func ErrorMessage(text string) Message {
	return Message{Type: MessageError, Body: map[string]any{"message": text}}
}

// PingMessage is the heartbeat envelope with an empty body.
func PingMessage() Message {
	return Message{Type: MessagePing, Body: map[string]any{}}
}

// VersionMessage announces the server build version to a newly connected session.
func VersionMessage(v string) Message {
	return Message{Type: MessageVersion, Body: map[string]any{"v": v}}
}

// Stats aggregates the session registry and safety level map.
type Stats struct {
	Sessions  int     `json:"sessions"`
	MinSafety int     `json:"min_safety"`
	MaxSafety int     `json:"max_safety"`
	AvgSafety float64 `json:"avg_safety"`
}

// Message wraps the stats in a STATS envelope.
func (s Stats) Message() Message {
	return Message{Type: MessageStats, Body: map[string]any{
		"sessions":   s.Sessions,
		"min_safety": s.MinSafety,
		"max_safety": s.MaxSafety,
		"avg_safety": s.AvgSafety,
	}}
}
