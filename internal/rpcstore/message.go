// Package rpcstore implements an idempotent RPC client proxy plus its
// server-side counterpart. Requests are JSON-array-encoded
// [func, arg1, arg2, ...] bodies carried in a REQUEST message; responses
// are either a RESULT or an ERROR message.
package rpcstore

import "encoding/json"

// encodeRequest builds the JSON-array request body for an RPC call.
func encodeRequest(fn string, args []any) (string, error) {
	packet := make([]any, 0, len(args)+1)
	packet = append(packet, fn)
	packet = append(packet, args...)
	body, err := json.Marshal(packet)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// decodeRequest splits a request body into its function name and raw
// argument list.
func decodeRequest(body string) (string, []json.RawMessage, error) {
	var packet []json.RawMessage
	if err := json.Unmarshal([]byte(body), &packet); err != nil || len(packet) == 0 {
		return "", nil, errMalformed
	}
	var fn string
	if err := json.Unmarshal(packet[0], &fn); err != nil {
		return "", nil, errMalformed
	}
	return fn, packet[1:], nil
}

func decodeArgs(args []json.RawMessage, dest ...any) error {
	if len(args) != len(dest) {
		return argCountError(len(dest), len(args))
	}
	for i, d := range dest {
		if err := json.Unmarshal(args[i], d); err != nil {
			return argTypeError(i, err)
		}
	}
	return nil
}
