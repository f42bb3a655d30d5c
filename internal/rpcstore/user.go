package rpcstore

import (
	"fmt"
	"strings"

	"distributed-protocols/internal/wire"
)

// User drives a StoreProxy from local commands of the form
// "<func> <arg1> <arg2> ...", mirroring how a test harness or CLI submits
// calls without knowing anything about the RPC wire format. It reads and
// writes local messages through client rather than the shared
// Communicator directly, so a command typed in while proxy has a call in
// flight is buffered by the client and handled here afterward instead of
// being mistaken for that call's reply.
type User struct {
	client *RpcClient
	proxy  *StoreProxy
}

// NewUser builds a User that executes local commands against proxy.
func NewUser(client *RpcClient, proxy *StoreProxy) *User {
	return &User{client: client, proxy: proxy}
}

// Run processes local commands forever.
func (u *User) Run() {
	for {
		msg, ok := u.client.RecvLocal(0)
		if !ok {
			continue
		}
		u.handle(msg)
	}
}

func (u *User) handle(msg wire.Message) {
	line, _ := msg.Body.(string)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		u.client.SendLocal(wire.NewLocal("ERROR", "empty command"))
		return
	}

	fn, args := fields[0], parseArgs(fields[1:])
	result, err := u.dispatch(fn, args)
	if err != nil {
		u.client.SendLocal(wire.NewLocal("ERROR", err.Error()))
		return
	}
	u.client.SendLocal(wire.NewLocal("RESULT", result))
}

func (u *User) dispatch(fn string, args []any) (any, error) {
	switch fn {
	case "get":
		key, err := stringArg(args, 0, 1)
		if err != nil {
			return nil, err
		}
		return u.proxy.Get(key)
	case "put":
		if len(args) != 3 {
			return nil, fmt.Errorf("put requires 3 arguments: key value overwrite")
		}
		key, ok1 := args[0].(string)
		value, ok2 := args[1].(string)
		overwrite, ok3 := args[2].(bool)
		if !ok1 || !ok2 || !ok3 {
			return nil, fmt.Errorf("put arguments must be key(string) value(string) overwrite(bool)")
		}
		return u.proxy.Put(key, value, overwrite)
	case "append":
		if len(args) != 2 {
			return nil, fmt.Errorf("append requires 2 arguments: key value")
		}
		key, ok1 := args[0].(string)
		value, ok2 := args[1].(string)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("append arguments must be key(string) value(string)")
		}
		return u.proxy.Append(key, value)
	case "remove":
		key, err := stringArg(args, 0, 1)
		if err != nil {
			return nil, err
		}
		return u.proxy.Remove(key)
	default:
		return nil, fmt.Errorf("unknown function: %s", fn)
	}
}

func stringArg(args []any, index, want int) (string, error) {
	if len(args) != want {
		return "", fmt.Errorf("expected %d arguments, got %d", want, len(args))
	}
	s, ok := args[index].(string)
	if !ok {
		return "", fmt.Errorf("argument %d must be a string", index)
	}
	return s, nil
}

// parseArgs interprets "True"/"False" as booleans, matching the original
// command-line arg parser's convention, and leaves everything else as a
// string.
func parseArgs(fields []string) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		switch f {
		case "True", "true":
			out[i] = true
		case "False", "false":
			out[i] = false
		default:
			out[i] = f
		}
	}
	return out
}
