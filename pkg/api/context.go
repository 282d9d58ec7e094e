package api

import "maps"

// Context is the accumulating key-value map threaded through every node of
// a run. Executors receive the current context and return a new one;
// previous keys are preserved unless the executor overwrites them
type Context map[string]any

// BranchKey is the reserved context key a condition executor uses to carry
// its routing decision. It is stripped before the result is folded back
// into the persisted context
const BranchKey = "__branch"

// Merge returns a new context containing the receiver's keys overlaid with
// the other context's keys. The BranchKey is never carried over
func (c Context) Merge(other Context) Context {
	res := make(Context, len(c)+len(other))
	maps.Copy(res, c)
	for k, v := range other {
		if k == BranchKey {
			continue
		}
		res[k] = v
	}
	return res
}

// Branch extracts the routing decision from an executor result, returning
// an empty string when no decision was made
func (c Context) Branch() string {
	if b, ok := c[BranchKey].(string); ok {
		return b
	}
	return ""
}

// With returns a new context with a single key set
func (c Context) With(key string, value any) Context {
	res := make(Context, len(c)+1)
	maps.Copy(res, c)
	res[key] = value
	return res
}
