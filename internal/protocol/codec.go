// Package protocol encodes and decodes the wire message envelope.
//
// Decoding never fails: malformed input is folded into a synthetic ERROR
// message carrying the raw text, so the dispatch layer branches on the
// message type without a separate error path.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/spuklo/retromat/internal/domain"
)

// Decode parses an inbound text frame into a message envelope. Invalid JSON,
// a missing type field or an unknown type all produce an ERROR message.
func Decode(raw []byte) domain.Message {
	var msg domain.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return malformed(raw)
	}
	if !domain.ValidMessageType(msg.Type) {
		return malformed(raw)
	}
	if msg.Body == nil {
		msg.Body = map[string]any{}
	}
	return msg
}

func malformed(raw []byte) domain.Message {
	return domain.ErrorMessage(fmt.Sprintf("Malformed JSON message: %q", string(raw)))
}

// Encode serializes a message envelope to its JSON wire form.
func Encode(msg domain.Message) ([]byte, error) {
	return json.Marshal(msg)
}
