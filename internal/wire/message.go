// Package wire defines the message and address types shared by every
// protocol process in this module.
package wire

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Address identifies a process's network endpoint, e.g. "127.0.0.1:9701".
type Address string

func (a Address) String() string { return string(a) }

// Message is the unit exchanged between processes, either over the network
// or through a process's local mailbox.
//
// Equality between two messages is defined on (Type, Body) only — Headers
// and Sender are transport metadata, not part of the message's identity.
// This matters for broadcast forwarding: a message relayed through an
// intermediate peer gets its Sender header rewritten in transit but must
// still compare equal to the original for seen-set deduplication.
type Message struct {
	Type    string
	Body    any
	Headers map[string]string
	Sender  Address
	Local   bool
}

// New constructs a network-bound message with no body.
func New(msgType string) Message {
	return Message{Type: msgType}
}

// NewBody constructs a network-bound message carrying body.
func NewBody(msgType string, body any) Message {
	return Message{Type: msgType, Body: body}
}

// NewLocal constructs a message destined for a process's own local mailbox.
func NewLocal(msgType string, body any) Message {
	return Message{Type: msgType, Body: body, Local: true}
}

// Equal reports whether m and other carry the same (Type, Body) pair,
// ignoring Headers and Sender.
func (m Message) Equal(other Message) bool {
	return m.Type == other.Type && reflect.DeepEqual(m.Body, other.Body)
}

// WithSender returns a copy of m with Sender set to addr, used when
// forwarding a message without changing its identity.
func (m Message) WithSender(addr Address) Message {
	m.Sender = addr
	return m
}

// Key returns a string that uniquely identifies m's (Type, Body) pair,
// suitable for use in a map-based seen-set or dedup cache — the same
// contract as Equal, but hashable.
func (m Message) Key() string {
	b, err := json.Marshal(m.Body)
	if err != nil {
		// Body is whatever a Process chose to put there; if it somehow
		// isn't serializable, fall back to a representation that is at
		// least internally consistent for this process's own lifetime.
		b = []byte(fmt.Sprintf("%v", m.Body))
	}
	return m.Type + "\x00" + string(b)
}

// WithHeader returns a copy of m with header key set to value.
func (m Message) WithHeader(key, value string) Message {
	h := make(map[string]string, len(m.Headers)+1)
	for k, v := range m.Headers {
		h[k] = v
	}
	h[key] = value
	m.Headers = h
	return m
}

func (m Message) String() string {
	return fmt.Sprintf("Message{type=%s body=%v local=%v sender=%s}", m.Type, m.Body, m.Local, m.Sender)
}

