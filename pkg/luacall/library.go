// Package luacall lets Redis Lua scripts call one another by name. Scripts
// are rewritten at definition time: KEYS/ARGV references become internal
// aliases, a header sorts out whether an invocation came from outside or
// from another script, and CALL.<name>(keys, argv) expressions become a
// frame push plus a registry lookup plus an invocation of the resolved
// script. The registry itself is a Redis hash mapping qualified script
// names to content-hash handles.
//
// Define scripts in a Library, load them, then call them:
//
//	lib := luacall.NewLibrary("example")
//	lib.Define("return_args", `return ARGV`)
//	lib.Define("call_return", `return CALL.return_args({}, {1, 2, 3, ARGV})`)
//
//	host := luacall.NewRedisHost(client)
//	if _, err := lib.Load(ctx, host); err != nil { ... }
//	res, err := lib.Call(ctx, host, "call_return", nil, []any{4, 5, 6})
//
// Every script a given script calls must be registered before the caller
// first runs; nothing validates that order. An unregistered target surfaces
// at invocation time as the host's attempt to call a non-function, and the
// failure aborts the whole top-level invocation.
package luacall

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Library is a namespace-scoped collection of defined scripts: the local
// side of the registry. Defining needs no connection; Load pushes every
// script into a host afterwards. All methods are safe for concurrent use.
type Library struct {
	namespace string
	mode      Mode

	mu      sync.Mutex
	scripts map[string]*Script // keyed by qualified name
	order   []string           // definition order, for deterministic loads
}

func NewLibrary(namespace string) *Library {
	return &Library{
		namespace: namespace,
		scripts:   make(map[string]*Script),
	}
}

// SetMode changes the mangling mode for subsequent Define calls.
func (l *Library) SetMode(mode Mode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mode = mode
}

// Namespace returns the qualification prefix applied to bare names.
func (l *Library) Namespace() string {
	return l.namespace
}

// Define transforms a script and remembers it locally. Redefining a name
// replaces the previous entry. The name must not contain a period.
func (l *Library) Define(name, source string) (*Script, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := Transform(l.namespace, name, source, l.mode)
	if err != nil {
		return nil, err
	}
	q := s.Qualified()
	if _, exists := l.scripts[q]; !exists {
		l.order = append(l.order, q)
	}
	l.scripts[q] = s
	return s, nil
}

// DefineAndLoad defines a script and immediately loads and registers it,
// for callers that have a host connection at definition time.
func (l *Library) DefineAndLoad(ctx context.Context, host Host, name, source string) (*Script, error) {
	s, err := l.Define(name, source)
	if err != nil {
		return nil, err
	}
	if err := s.Load(ctx, host); err != nil {
		return nil, err
	}
	return s, nil
}

// Load pushes every defined script into the host and registers it, in
// definition order, returning how many were loaded. Loading is idempotent;
// re-running it after redefinitions re-points the registry, last writer
// wins.
func (l *Library) Load(ctx context.Context, host Host) (int, error) {
	return l.LoadPrefix(ctx, host, "")
}

// LoadPrefix loads only the scripts whose qualified name starts with the
// given prefix. An empty prefix loads everything.
func (l *Library) LoadPrefix(ctx context.Context, host Host, prefix string) (int, error) {
	l.mu.Lock()
	qualified := make([]*Script, 0, len(l.order))
	for _, q := range l.order {
		if strings.HasPrefix(q, prefix) {
			qualified = append(qualified, l.scripts[q])
		}
	}
	l.mu.Unlock()

	loaded := 0
	for _, s := range qualified {
		if err := s.Load(ctx, host); err != nil {
			return loaded, fmt.Errorf("loading %s: %w", s.Qualified(), err)
		}
		loaded++
	}
	return loaded, nil
}

// Script looks a defined script up by bare or qualified name.
func (l *Library) Script(name string) (*Script, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.scripts[name]; ok {
		return s, true
	}
	if l.namespace != "" {
		s, ok := l.scripts[l.namespace+"."+name]
		return s, ok
	}
	return nil, false
}

// Scripts returns the defined scripts in definition order.
func (l *Library) Scripts() []*Script {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Script, 0, len(l.order))
	for _, q := range l.order {
		out = append(out, l.scripts[q])
	}
	return out
}

// Call invokes a defined script from outside the host, coercing keys and
// values to their textual form on the way in.
func (l *Library) Call(ctx context.Context, host Host, name string, keys, argv []any) (any, error) {
	s, ok := l.Script(name)
	if !ok {
		return nil, fmt.Errorf("script %q is not defined", name)
	}
	return s.Call(ctx, host, keys, argv)
}
