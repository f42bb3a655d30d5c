package runtime

import "distributed-protocols/internal/wire"

// LocalMailbox is the bidirectional local channel pair connecting a
// process to its driver (a test harness or CLI). The driver injects local
// commands the process consumes, and the process emits results the driver
// reads back — two independent channels so neither side races on a single
// shared queue.
type LocalMailbox struct {
	toProcess   chan wire.Message
	fromProcess chan wire.Message
}

// NewLocalMailbox creates an empty local mailbox with a modest buffer so a
// burst of commands or results doesn't block the sender.
func NewLocalMailbox() *LocalMailbox {
	return &LocalMailbox{
		toProcess:   make(chan wire.Message, 64),
		fromProcess: make(chan wire.Message, 64),
	}
}

// Driver is the harness/CLI-facing view of a LocalMailbox: it sends
// commands in and reads results back.
type Driver struct{ mb *LocalMailbox }

// Driver returns the driver-facing view of m.
func (m *LocalMailbox) Driver() Driver { return Driver{m} }

// Send injects a local command for the process to consume.
func (d Driver) Send(msg wire.Message) {
	msg.Local = true
	d.mb.toProcess <- msg
}

// Recv blocks until the process emits a result.
func (d Driver) Recv() wire.Message { return <-d.mb.fromProcess }

// RecvChan exposes the result channel directly, for select loops.
func (d Driver) RecvChan() <-chan wire.Message { return d.mb.fromProcess }
