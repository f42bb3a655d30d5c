package rpcstore

import (
	"fmt"
	"time"

	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/wire"
)

// callTimeout bounds how long a single RPC attempt waits for a reply
// before the idempotent retry loop tries again.
const callTimeout = time.Second

// RpcClient is the client-side RPC transport: encode a call, send it, wait
// for a RESULT or ERROR reply.
type RpcClient struct {
	comm       *runtime.Communicator
	serverAddr wire.Address

	// pending holds locally originated commands that arrive while a call
	// is still waiting on its reply. Buffering them here (instead of
	// treating whatever comm.Recv returns next as the RPC result) is what
	// lets the caller see a synchronous call/return contract — a second
	// typed-in command never gets mistaken for the first call's answer.
	// RecvLocal drains this queue before asking comm for anything new.
	pending []wire.Message
}

// NewRpcClient builds a client that talks to serverAddr over comm.
func NewRpcClient(comm *runtime.Communicator, serverAddr wire.Address) *RpcClient {
	return &RpcClient{comm: comm, serverAddr: serverAddr}
}

// Call invokes fn(args...) on the server. append is sent exactly once and
// surfaced as a failure on timeout or ERROR, since it is not idempotent
// and must never be silently retried. Every other function is retried
// until a non-timeout reply arrives, since get/put/remove are safe to
// repeat.
func (c *RpcClient) Call(fn string, args ...any) (any, error) {
	body, err := encodeRequest(fn, args)
	if err != nil {
		return nil, err
	}
	msg := wire.NewBody("REQUEST", body)

	if fn == "append" {
		if err := c.comm.Send(msg, c.serverAddr); err != nil {
			return nil, err
		}
		resp, ok := c.recvReply(callTimeout)
		if !ok {
			return nil, fmt.Errorf("response timeout")
		}
		return resultOrError(resp)
	}

	for {
		if err := c.comm.Send(msg, c.serverAddr); err != nil {
			return nil, err
		}
		resp, ok := c.recvReply(callTimeout)
		if !ok {
			continue
		}
		return resultOrError(resp)
	}
}

// recvReply waits up to timeout for the server's reply, buffering any
// locally originated command that arrives in the meantime instead of
// returning it as if it were the reply.
func (c *RpcClient) recvReply(timeout time.Duration) (wire.Message, bool) {
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return wire.Message{}, false
		}
		resp, ok := c.comm.Recv(remaining)
		if !ok {
			return wire.Message{}, false
		}
		if resp.Local {
			c.pending = append(c.pending, resp)
			continue
		}
		return resp, true
	}
}

// RecvLocal returns the next locally originated command, draining commands
// buffered by recvReply during an in-flight Call before waiting on comm.
func (c *RpcClient) RecvLocal(timeout time.Duration) (wire.Message, bool) {
	if len(c.pending) > 0 {
		msg := c.pending[0]
		c.pending = c.pending[1:]
		return msg, true
	}
	return c.comm.RecvLocal(timeout)
}

// SendLocal forwards a local reply through the underlying Communicator.
func (c *RpcClient) SendLocal(msg wire.Message) {
	c.comm.SendLocal(msg)
}

func resultOrError(resp wire.Message) (any, error) {
	if resp.Type == "ERROR" {
		return nil, fmt.Errorf("%v", resp.Body)
	}
	return resp.Body, nil
}

// StoreProxy is the client-side Store implementation: every call is an RPC
// to the server instead of a local operation.
type StoreProxy struct {
	client *RpcClient
}

// NewStoreProxy wraps client as a Store.
func NewStoreProxy(client *RpcClient) *StoreProxy { return &StoreProxy{client: client} }

func (p *StoreProxy) Put(key, value string, overwrite bool) (any, error) {
	return p.client.Call("put", key, value, overwrite)
}

func (p *StoreProxy) Get(key string) (any, error) {
	return p.client.Call("get", key)
}

func (p *StoreProxy) Append(key, value string) (any, error) {
	return p.client.Call("append", key, value)
}

func (p *StoreProxy) Remove(key string) (any, error) {
	return p.client.Call("remove", key)
}
