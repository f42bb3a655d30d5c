package kv

import "distributed-protocols/internal/runtime"

// Snapshot is a read-only view of a Node's state, published after each
// event the actor loop processes. It exists purely for observability: the
// debug HTTP surface reads it from a different goroutine than the one
// running the actor loop, so it is guarded by its own mutex rather than
// by the single-threaded discipline that protects the rest of Node's
// fields. Nothing ever derives new node behavior from a Snapshot.
type Snapshot struct {
	Name        string
	Addr        string
	AliveCount  int
	FailedCount int
	KeyCount    int
	Alive       []string
	Failed      []string
	Keys        []string

	// Cumulative counters since process start, for the debug surface's
	// Prometheus counters to derive Add() deltas from.
	GossipSent int
	GossipRecv int
	OpsServed  int
}

func (n *Node) publish(ctx *runtime.Context) {
	alive := aliveAddrs(n.alive)
	failed := addrsOf(n.failed)

	aliveStrs := make([]string, len(alive))
	for i, a := range alive {
		aliveStrs[i] = string(a)
	}
	failedStrs := make([]string, len(failed))
	for i, a := range failed {
		failedStrs[i] = string(a)
	}

	snap := Snapshot{
		Name:        n.name,
		Addr:        string(ctx.Addr()),
		AliveCount:  len(n.alive),
		FailedCount: len(n.failed),
		KeyCount:    len(n.data),
		Alive:       aliveStrs,
		Failed:      failedStrs,
		Keys:        keysOf(n.data),
		GossipSent:  n.gossipSent,
		GossipRecv:  n.gossipRecv,
		OpsServed:   n.opsServed,
	}

	n.snapMu.Lock()
	n.snap = snap
	n.snapMu.Unlock()
}

// Snapshot returns the most recently published view of this node's state.
// Safe to call concurrently with the actor loop.
func (n *Node) Snapshot() Snapshot {
	n.snapMu.RLock()
	defer n.snapMu.RUnlock()
	return n.snap
}
