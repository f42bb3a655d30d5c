// Package transport provides the network boundary every process sends and
// receives datagrams through. Production code talks to a UDP transport;
// tests talk to the scriptable fake in internal/testutil.
package transport

import "distributed-protocols/internal/wire"

// Packet is a raw datagram received off the wire, still addressed to a
// specific local process.
type Packet struct {
	From wire.Address
	Data []byte
}

// Transport is the minimal network boundary a process depends on. It
// mirrors the Broadcast/Unicast/Listen/Close shape used by peer-to-peer
// transport abstractions in the wild, narrowed to unicast since broadcast
// in this module is achieved by application-level flooding, not a network
// primitive.
type Transport interface {
	// LocalAddr is the address this transport is bound to.
	LocalAddr() wire.Address

	// Send delivers data to the process listening at addr. Send does not
	// block on delivery confirmation; UDP is fire-and-forget.
	Send(addr wire.Address, data []byte) error

	// Inbox returns the channel of packets arriving at this transport's
	// local address. The channel is closed when Close is called.
	Inbox() <-chan Packet

	// Close releases the underlying socket and closes Inbox.
	Close() error
}
