// Package wire models the two shapes an invocation's arguments take on the
// host boundary. A Boundary call comes from outside the host: every value is
// coerced to its textual form, because that is all the wire protocol carries.
// A Frame call is one script calling another inside the host: values keep
// their types and travel as a {keys, argv} pair appended to the outer value
// array. Only Boundary coerces — this asymmetry is part of the calling
// convention, not an accident.
package wire

import (
	"fmt"
	"strconv"
)

// Boundary is a top-level invocation's argument pair.
type Boundary struct {
	Keys []any
	Argv []any
}

// Wire returns the textual keys and values the host receives.
func (b Boundary) Wire() (keys, args []string) {
	return CoerceAll(b.Keys), CoerceAll(b.Argv)
}

// Frame is one pending internal call: the (keys, argv) pair a caller pushes
// for its callee. Values are carried as-is.
type Frame struct {
	Keys []any
	Argv []any
}

// Push appends the frame as the trailing element of an outer value array,
// which is how a frame travels between caller and callee. The result aliases
// the frame's slices; the callee's entry logic removes the element again.
func (f Frame) Push(argv []any) []any {
	return append(argv, []any{f.Keys, f.Argv})
}

// IsFrame reports whether the trailing element of a value array is a pushed
// call frame rather than a plain boundary value. The wire convention marks
// frames by structure: a trailing two-element sequence.
func IsFrame(argv []any) bool {
	if len(argv) == 0 {
		return false
	}
	pair, ok := argv[len(argv)-1].([]any)
	return ok && len(pair) == 2
}

// Coerce returns the textual form a value takes when it crosses the outer
// host boundary, matching how Redis clients serialize command arguments.
func Coerce(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "1"
		}
		return "0"
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// CoerceAll coerces a value list. A nil input yields an empty, non-nil slice
// so callers can hand the result straight to the host.
func CoerceAll(vs []any) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = Coerce(v)
	}
	return out
}
