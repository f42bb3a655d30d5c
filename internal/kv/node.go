package kv

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/wire"
)

// fanout is the number of peers gossiped to on each membership update.
const fanout = 5

// Timer intervals, matching the three periodic detectors and the two
// fixed client-response delays named in the requirements.
const (
	checkLiveInterval = 2 * time.Second
	timeoutInterval   = 2 * time.Second
	checkDeadInterval = 10 * time.Second
	clientReplyDelay  = 200 * time.Millisecond
)

// Node is the sharded KV actor: it serves a local client API (§4.4.2 of
// the requirements) over its local mailbox and a node-to-node gossip and
// relocation protocol over the network, all single-threaded via Runtime's
// actor dispatch.
type Node struct {
	name string
	log  *logrus.Entry

	group  map[wire.Address]string // addr -> name, membership directory
	alive  map[wire.Address]struct{}
	failed map[wire.Address]struct{}

	checking   wire.Address
	isChecking bool

	data map[string]string

	gossipSent int
	gossipRecv int
	opsServed  int

	snapMu sync.RWMutex
	snap   Snapshot
}

// NewNode builds a Node named name. It starts with no membership; a JOIN
// local command is required before it does anything useful.
func NewNode(name string, log *logrus.Entry) *Node {
	return &Node{
		name:   name,
		log:    log,
		group:  make(map[wire.Address]string),
		alive:  make(map[wire.Address]struct{}),
		failed: make(map[wire.Address]struct{}),
		data:   make(map[string]string),
	}
}

// Receive dispatches one inbound message — local client command or
// node-to-node protocol message — to completion before returning.
func (n *Node) Receive(ctx *runtime.Context, msg wire.Message) {
	defer n.publish(ctx)

	if msg.Local {
		n.receiveLocal(ctx, msg)
		return
	}
	n.receiveNetwork(ctx, msg)
}

// ─── client API (local) ─────────────────────────────────────────────────

func (n *Node) receiveLocal(ctx *runtime.Context, msg wire.Message) {
	n.opsServed++
	switch msg.Type {
	case "JOIN":
		n.handleJoinLocal(ctx, msg)
	case "LEAVE":
		n.handleLeaveLocal(ctx)
	case "GET_MEMBERS":
		members := make([]string, 0, len(n.group))
		for _, name := range n.group {
			members = append(members, name)
		}
		ctx.SendLocal(wire.NewLocal("MEMBERS", members))
	case "GET":
		n.handleGetLocal(ctx, msg)
	case "PUT":
		n.handlePutLocal(ctx, msg)
	case "DELETE":
		n.handleDeleteLocal(ctx, msg)
	case "LOOKUP":
		n.handleLookupLocal(ctx, msg)
	case "COUNT_RECORDS":
		ctx.SendLocal(wire.NewLocal("COUNT_RECORDS_RESP", len(n.data)))
	case "DUMP_KEYS":
		ctx.SendLocal(wire.NewLocal("DUMP_KEYS_RESP", keysOf(n.data)))
	default:
		ctx.SendLocal(wire.NewLocal("ERROR", fmt.Sprintf("unknown command: %s", msg.Type)))
	}
}

func (n *Node) handleJoinLocal(ctx *runtime.Context, msg wire.Message) {
	ctx.SetTimer("checkLive", checkLiveInterval)
	ctx.SetTimer("checkDead", checkDeadInterval)

	seed, _ := msg.Body.(string)
	self := ctx.Addr()

	if wire.Address(seed) == self {
		n.alive = map[wire.Address]struct{}{self: {}}
		n.failed = map[wire.Address]struct{}{}
		n.group = map[wire.Address]string{self: n.name}
		return
	}

	n.group[self] = n.name
	n.alive[self] = struct{}{}
	ctx.Send(wire.NewBody("JOIN", copyGroup(n.group)), wire.Address(seed))
}

func (n *Node) handleLeaveLocal(ctx *runtime.Context) {
	self := ctx.Addr()
	delete(n.alive, self)

	for key, value := range n.data {
		target, ok := TargetNode(key, aliveAddrs(n.alive))
		if !ok {
			continue
		}
		ctx.Send(wire.NewBody("PUT_IN_YOUR_DATA", []string{key, value}), target)
	}

	for member := range n.alive {
		ctx.Send(wire.NewBody("LEAVE", string(self)), member)
	}

	n.data = make(map[string]string)
	n.group = make(map[wire.Address]string)
	n.alive = make(map[wire.Address]struct{})
	n.failed = make(map[wire.Address]struct{})
}

func (n *Node) handleGetLocal(ctx *runtime.Context, msg wire.Message) {
	key, _ := msg.Body.(string)
	if value, ok := n.data[key]; ok {
		ctx.SendLocal(wire.NewLocal("GET_RESP", value))
		return
	}
	target, ok := TargetNode(key, aliveAddrs(n.alive))
	if !ok {
		ctx.SendLocal(wire.NewLocal("GET_RESP", ""))
		return
	}
	ctx.Send(wire.NewBody("GET", key), target)
}

func (n *Node) handlePutLocal(ctx *runtime.Context, msg wire.Message) {
	line, _ := msg.Body.(string)
	key, value, ok := splitKV(line)
	if !ok {
		ctx.SendLocal(wire.NewLocal("ERROR", fmt.Sprintf("malformed PUT body: %q", line)))
		return
	}

	target, hasTarget := TargetNode(key, aliveAddrs(n.alive))
	switch {
	case hasTarget && target == ctx.Addr():
		n.data[key] = value
	case hasTarget:
		ctx.Send(wire.NewBody("PUT_IN_YOUR_DATA", []string{key, value}), target)
	default:
		n.data[key] = value
	}
	ctx.SetTimer("PUT_RESP", clientReplyDelay)
}

func (n *Node) handleDeleteLocal(ctx *runtime.Context, msg wire.Message) {
	key, _ := msg.Body.(string)
	if _, ok := n.data[key]; ok {
		delete(n.data, key)
	} else if target, ok := TargetNode(key, aliveAddrs(n.alive)); ok {
		ctx.Send(wire.NewBody("DELETE", key), target)
	}
	ctx.SetTimer("DELETE_RESP", clientReplyDelay)
}

func (n *Node) handleLookupLocal(ctx *runtime.Context, msg wire.Message) {
	key, _ := msg.Body.(string)
	if _, ok := n.data[key]; ok {
		ctx.SendLocal(wire.NewLocal("LOOKUP_RESP", n.name))
		return
	}
	target, ok := TargetNode(key, aliveAddrs(n.alive))
	if !ok {
		ctx.SendLocal(wire.NewLocal("LOOKUP_RESP", ""))
		return
	}
	ctx.SendLocal(wire.NewLocal("LOOKUP_RESP", n.group[target]))
}

// ─── node-to-node protocol (network) ────────────────────────────────────

func (n *Node) receiveNetwork(ctx *runtime.Context, msg wire.Message) {
	n.gossipRecv++
	switch msg.Type {
	case "PUT_IN_YOUR_DATA":
		if kv, ok := asPair(msg.Body); ok {
			n.data[kv[0]] = kv[1]
		}
	case "GET":
		key, _ := msg.Body.(string)
		value := n.data[key] // zero value "" if absent, matching the give-empty-string-on-miss contract
		ctx.Send(wire.NewBody("GIVE_YOU_DATA", value), msg.Sender)
	case "GIVE_YOU_DATA":
		ctx.SendLocal(wire.NewLocal("GET_RESP", msg.Body))
	case "DELETE":
		key, _ := msg.Body.(string)
		delete(n.data, key)
	case "JOIN":
		n.handleJoinGossip(ctx, msg)
	case "LEAVE":
		n.handleLeaveGossip(ctx, msg)
	case "ARE YOU OKAY?":
		n.handleAreYouOkay(ctx, msg)
	case "I AM OKAY":
		n.handleIAmOkay(ctx, msg)
	case "ARE YOU LIVE?":
		asker, _ := msg.Body.(string)
		ctx.Send(wire.NewBody("I LIVE", copyGroup(n.group)), wire.Address(asker))
	case "I LIVE":
		n.mergeGroup(ctx, msg.Body, false)
	case "HE IS DEAD":
		n.handleHeIsDead(ctx, msg)
	case "KILL HIM":
		n.handleKillHim(ctx, msg)
	default:
		ctx.Send(wire.NewBody("ERROR", fmt.Sprintf("unknown message: %s", msg.Type)), msg.Sender)
	}
}

func (n *Node) handleJoinGossip(ctx *runtime.Context, msg wire.Message) {
	incoming := asGroup(msg.Body)
	if groupsEqual(n.group, incoming) {
		return
	}
	n.mergeGroup(ctx, msg.Body, true)
}

// mergeGroup folds incoming membership info into this node's view, then
// gossips the merged group onward. When relocate is true (a real JOIN, not
// a recovery I LIVE), locally held keys whose newly-computed owner is no
// longer this node are handed off.
func (n *Node) mergeGroup(ctx *runtime.Context, body any, relocate bool) {
	incoming := asGroup(body)
	if len(incoming) == 0 {
		return
	}

	for addr, name := range incoming {
		n.group[addr] = name
		n.alive[addr] = struct{}{}
		delete(n.failed, addr)
	}

	if relocate {
		self := ctx.Addr()
		for key, value := range n.data {
			target, ok := TargetNode(key, aliveAddrs(n.alive))
			if ok && target != self {
				ctx.Send(wire.NewBody("PUT_IN_YOUR_DATA", []string{key, value}), target)
				delete(n.data, key)
			}
		}
	}

	n.gossip(ctx, wire.NewBody("JOIN", copyGroup(n.group)))
}

func (n *Node) handleLeaveGossip(ctx *runtime.Context, msg wire.Message) {
	addr, _ := msg.Body.(string)
	a := wire.Address(addr)
	_, wasAlive := n.alive[a]
	_, wasFailed := n.failed[a]
	if !wasAlive && !wasFailed {
		return
	}
	delete(n.group, a)
	delete(n.alive, a)
	delete(n.failed, a)
	n.gossip(ctx, msg)
}

func (n *Node) handleAreYouOkay(ctx *runtime.Context, msg wire.Message) {
	asker, _ := msg.Body.(string)
	ctx.Send(wire.NewBody("I AM OKAY", []string{string(ctx.Addr()), n.name}), wire.Address(asker))
	n.gossip(ctx, wire.NewBody("JOIN", copyGroup(n.group)))
}

func (n *Node) handleIAmOkay(ctx *runtime.Context, msg wire.Message) {
	pair, ok := asStringPair(msg.Body)
	if !ok {
		return
	}
	respondent := wire.Address(pair[0])
	if n.isChecking && n.checking == respondent {
		n.isChecking = false
		n.checking = ""
		ctx.CancelTimer("timeout")
		ctx.SetTimer("checkLive", checkLiveInterval)
	}
}

func (n *Node) handleHeIsDead(ctx *runtime.Context, msg wire.Message) {
	addr, _ := msg.Body.(string)
	a := wire.Address(addr)
	delete(n.group, a)
	delete(n.alive, a)
	n.failed[a] = struct{}{}
	n.gossip(ctx, wire.NewBody("KILL HIM", addrsOf(n.failed)))
}

func (n *Node) handleKillHim(ctx *runtime.Context, msg wire.Message) {
	incoming := asAddrList(msg.Body)
	incomingSet := make(map[wire.Address]struct{}, len(incoming))
	for _, a := range incoming {
		incomingSet[a] = struct{}{}
	}
	if setsEqual(n.failed, incomingSet) {
		return
	}

	var fresh []wire.Address
	for a := range incomingSet {
		if _, ok := n.failed[a]; !ok {
			fresh = append(fresh, a)
		}
	}
	if len(fresh) > 0 {
		for _, a := range fresh {
			delete(n.group, a)
			delete(n.alive, a)
			n.failed[a] = struct{}{}
		}
	}
	n.gossip(ctx, wire.NewBody("KILL HIM", addrsOf(n.failed)))
}

// ─── timers ──────────────────────────────────────────────────────────────

// OnTimer handles the three periodic failure-detection timers plus the two
// fixed-delay client-response timers.
func (n *Node) OnTimer(ctx *runtime.Context, timer string) {
	defer n.publish(ctx)

	switch timer {
	case "checkLive":
		n.onCheckLive(ctx)
	case "timeout":
		n.onTimeout(ctx)
	case "checkDead":
		n.onCheckDead(ctx)
	case "PUT_RESP":
		ctx.SendLocal(wire.NewLocal("PUT_RESP", nil))
	case "DELETE_RESP":
		ctx.SendLocal(wire.NewLocal("DELETE_RESP", nil))
	}
}

func (n *Node) onCheckLive(ctx *runtime.Context) {
	alive := aliveAddrs(n.alive)
	if len(alive) == 0 {
		// No one to check; checkLive is re-armed from the 'timeout'
		// handler, so if alive stays empty this detector simply goes
		// quiet until the next JOIN re-arms it.
		return
	}
	n.checking = alive[rand.Intn(len(alive))]
	n.isChecking = true
	ctx.Send(wire.NewBody("ARE YOU OKAY?", string(ctx.Addr())), n.checking)
	ctx.SetTimer("timeout", timeoutInterval)
}

func (n *Node) onTimeout(ctx *runtime.Context) {
	if n.isChecking {
		dead := n.checking
		n.isChecking = false
		n.checking = ""
		n.failed[dead] = struct{}{}
		delete(n.alive, dead)
		delete(n.group, dead)
		n.gossip(ctx, wire.NewBody("HE IS DEAD", string(dead)))
	}
	ctx.SetTimer("checkLive", checkLiveInterval)
}

func (n *Node) onCheckDead(ctx *runtime.Context) {
	if len(n.failed) > 0 {
		addrs := addrsOf(n.failed)
		seed := addrs[rand.Intn(len(addrs))]
		ctx.Send(wire.NewBody("ARE YOU LIVE?", string(ctx.Addr())), seed)
	}
	ctx.SetTimer("checkDead", checkDeadInterval)
}

// gossip sends msg to a random sample of up to fanout members of the alive
// set, capped at the group size — mirroring random.sample(..., min(k,
// len(group))) tolerating a population smaller than the requested sample.
func (n *Node) gossip(ctx *runtime.Context, msg wire.Message) {
	targets := sampleAddrs(aliveAddrs(n.alive), minInt(fanout, len(n.group)))
	for _, t := range targets {
		ctx.Send(msg, t)
		n.gossipSent++
	}
}
