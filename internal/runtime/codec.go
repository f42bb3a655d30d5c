package runtime

import (
	"encoding/json"

	"distributed-protocols/internal/wire"
)

// envelope is the on-the-wire JSON shape of a Message. Sender is never
// serialized: the receiving transport already knows the peer address a
// datagram arrived from, and that is what populates Message.Sender on
// decode.
type envelope struct {
	Type    string            `json:"type"`
	Body    json.RawMessage   `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

func encode(msg wire.Message) ([]byte, error) {
	var bodyBytes json.RawMessage
	if msg.Body != nil {
		b, err := json.Marshal(msg.Body)
		if err != nil {
			return nil, err
		}
		bodyBytes = b
	}
	return json.Marshal(envelope{Type: msg.Type, Body: bodyBytes, Headers: msg.Headers})
}

func decode(data []byte, from wire.Address) (wire.Message, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return wire.Message{}, err
	}
	var body any
	if len(e.Body) > 0 {
		if err := json.Unmarshal(e.Body, &body); err != nil {
			return wire.Message{}, err
		}
	}
	return wire.Message{Type: e.Type, Body: body, Headers: e.Headers, Sender: from}, nil
}
