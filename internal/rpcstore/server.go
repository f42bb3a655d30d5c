package rpcstore

import (
	"encoding/json"

	"github.com/sirupsen/logrus"

	"distributed-protocols/internal/runtime"
	"distributed-protocols/internal/wire"
)

// cacheKey identifies one idempotent request for dedup purposes: the same
// client resending the exact same request body gets the cached reply
// instead of re-executing the operation.
type cacheKey struct {
	sender wire.Address
	body   string
}

// Server executes REQUEST calls against a Store, deduplicating idempotent
// operations (get/put/remove) by (client address, request body) so a
// client's retransmit loop never double-applies a call. append is never
// deduplicated — it is applied on every arrival, which is exactly what
// makes it unsafe for the client to retry.
type Server struct {
	comm  *runtime.Communicator
	store Store
	log   *logrus.Entry
	cache map[cacheKey]wire.Message
}

// NewServer builds a Server executing calls against store.
func NewServer(comm *runtime.Communicator, store Store, log *logrus.Entry) *Server {
	return &Server{comm: comm, store: store, log: log, cache: make(map[cacheKey]wire.Message)}
}

// Run processes inbound REQUEST traffic forever.
func (s *Server) Run() {
	for {
		msg, ok := s.comm.Recv(0)
		if !ok {
			continue
		}
		if msg.Type != "REQUEST" {
			s.comm.Send(wire.NewBody("ERROR", "unknown message type: "+msg.Type), msg.Sender)
			continue
		}
		s.handleRequest(msg)
	}
}

func (s *Server) handleRequest(msg wire.Message) {
	bodyStr, ok := msg.Body.(string)
	if !ok {
		s.comm.Send(wire.NewBody("ERROR", errMalformed.Error()), msg.Sender)
		return
	}

	fn, args, err := decodeRequest(bodyStr)
	if err != nil {
		s.comm.Send(wire.NewBody("ERROR", err.Error()), msg.Sender)
		return
	}

	key := cacheKey{sender: msg.Sender, body: bodyStr}
	if fn != "append" {
		if cached, hit := s.cache[key]; hit {
			s.comm.Send(cached, msg.Sender)
			return
		}
	}

	result, callErr := s.apply(fn, args)
	var reply wire.Message
	if callErr != nil {
		reply = wire.NewBody("ERROR", callErr.Error())
	} else {
		reply = wire.NewBody("RESULT", result)
	}

	if fn != "append" {
		s.cache[key] = reply
	}
	s.comm.Send(reply, msg.Sender)
}

func (s *Server) apply(fn string, args []json.RawMessage) (any, error) {
	switch fn {
	case "get":
		var key string
		if err := decodeArgs(args, &key); err != nil {
			return nil, err
		}
		return s.store.Get(key)
	case "put":
		var key, value string
		var overwrite bool
		if err := decodeArgs(args, &key, &value, &overwrite); err != nil {
			return nil, err
		}
		return s.store.Put(key, value, overwrite)
	case "append":
		var key, value string
		if err := decodeArgs(args, &key, &value); err != nil {
			return nil, err
		}
		return s.store.Append(key, value)
	case "remove":
		var key string
		if err := decodeArgs(args, &key); err != nil {
			return nil, err
		}
		return s.store.Remove(key)
	default:
		return nil, unknownFunctionError(fn)
	}
}


