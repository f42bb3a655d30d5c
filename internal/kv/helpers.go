package kv

import (
	"math/rand"
	"strings"

	"distributed-protocols/internal/wire"
)

func aliveAddrs(alive map[wire.Address]struct{}) []wire.Address {
	out := make([]wire.Address, 0, len(alive))
	for a := range alive {
		out = append(out, a)
	}
	return out
}

func addrsOf(set map[wire.Address]struct{}) []wire.Address {
	return aliveAddrs(set)
}

func keysOf(data map[string]string) []string {
	out := make([]string, 0, len(data))
	for k := range data {
		out = append(out, k)
	}
	return out
}

func copyGroup(group map[wire.Address]string) map[wire.Address]string {
	out := make(map[wire.Address]string, len(group))
	for k, v := range group {
		out[k] = v
	}
	return out
}

func groupsEqual(a, b map[wire.Address]string) bool {
	incoming := asGroup(b)
	if len(a) != len(incoming) {
		return false
	}
	for k, v := range a {
		if incoming[k] != v {
			return false
		}
	}
	return true
}

func setsEqual(a, b map[wire.Address]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

// splitKV splits a "key=value" PUT body on the first '='.
func splitKV(line string) (key, value string, ok bool) {
	idx := strings.Index(line, "=")
	if idx < 0 {
		return "", "", false
	}
	return line[:idx], line[idx+1:], true
}

// asPair reads a two-element [key, value] body, however it happened to
// arrive: constructed directly in-process as []string, or decoded off the
// wire as []any of strings.
func asPair(body any) ([2]string, bool) {
	switch v := body.(type) {
	case []string:
		if len(v) == 2 {
			return [2]string{v[0], v[1]}, true
		}
	case []any:
		if len(v) == 2 {
			s0, ok0 := v[0].(string)
			s1, ok1 := v[1].(string)
			if ok0 && ok1 {
				return [2]string{s0, s1}, true
			}
		}
	}
	return [2]string{}, false
}

func asStringPair(body any) ([2]string, bool) {
	return asPair(body)
}

// asGroup normalizes a membership-directory body (addr -> name) regardless
// of whether it is a freshly constructed Go map or a generically decoded
// JSON object.
func asGroup(body any) map[wire.Address]string {
	switch v := body.(type) {
	case map[wire.Address]string:
		return v
	case map[string]string:
		out := make(map[wire.Address]string, len(v))
		for k, val := range v {
			out[wire.Address(k)] = val
		}
		return out
	case map[string]any:
		out := make(map[wire.Address]string, len(v))
		for k, val := range v {
			if s, ok := val.(string); ok {
				out[wire.Address(k)] = s
			}
		}
		return out
	default:
		return nil
	}
}

// asAddrList normalizes an address-list body.
func asAddrList(body any) []wire.Address {
	switch v := body.(type) {
	case []wire.Address:
		return v
	case []string:
		out := make([]wire.Address, len(v))
		for i, s := range v {
			out[i] = wire.Address(s)
		}
		return out
	case []any:
		out := make([]wire.Address, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, wire.Address(s))
			}
		}
		return out
	default:
		return nil
	}
}

// sampleAddrs picks up to k distinct addresses from population without
// replacement, capping k at len(population) — mirroring
// random.sample(population, min(k, len(population))).
func sampleAddrs(population []wire.Address, k int) []wire.Address {
	if k > len(population) {
		k = len(population)
	}
	if k <= 0 {
		return nil
	}
	shuffled := make([]wire.Address, len(population))
	copy(shuffled, population)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:k]
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
