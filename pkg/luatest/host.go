// Package luatest is an in-process stand-in for the Redis scripting host.
// It runs transformed scripts on a real Lua interpreter with the same
// conventions Redis uses: loaded scripts become global functions named
// f_<sha1>, KEYS/ARGV are globals shared by a whole invocation chain, string
// replies stay strings, numbers truncate to integers, and tables come back
// as arrays. A redis.call stub backed by plain maps covers the handful of
// commands the calling convention needs.
//
// Use it in tests, or during development when no server is around and
// scripts should still actually run.
package luatest

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/luacall/luacall/internal/config"
	"github.com/luacall/luacall/internal/wire"
)

// Host implements the same primitives a live Redis server provides. One
// invocation chain runs at a time: a mutex serializes calls, which also
// matches the host's execute-to-completion guarantee.
type Host struct {
	mu      sync.Mutex
	state   *lua.LState
	scripts map[string]*lua.LFunction
	hashes  map[string]map[string]string
	strings map[string]string
}

func NewHost() *Host {
	h := &Host{
		state:   lua.NewState(),
		scripts: make(map[string]*lua.LFunction),
		hashes:  make(map[string]map[string]string),
		strings: make(map[string]string),
	}
	h.installRedis()
	return h
}

// Close releases the interpreter. The host is unusable afterwards.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.Close()
}

// ScriptLoad compiles the source and binds it to the global f_<sha1>, the
// way Redis exposes loaded scripts to each other. The returned hash is the
// SHA-1 of the source text.
func (h *Host) ScriptLoad(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	sum := sha1.Sum([]byte(source))
	sha := hex.EncodeToString(sum[:])

	fn, err := h.state.LoadString(source)
	if err != nil {
		return "", fmt.Errorf("compiling script: %w", err)
	}
	h.scripts[sha] = fn
	h.state.SetGlobal(config.HandlePrefix+sha, fn)
	return sha, nil
}

// EvalSha invokes a loaded script from the outer boundary. Keys and args are
// already textual, exactly as the wire protocol would deliver them.
func (h *Host) EvalSha(ctx context.Context, sha string, keys, args []string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	fn, ok := h.scripts[sha]
	if !ok {
		return nil, fmt.Errorf("NOSCRIPT no script with hash %s", sha)
	}
	h.setGlobals(h.stringsToTable(keys), h.stringsToTable(args))
	return h.call(fn)
}

// InvokeFrame invokes a loaded script the way an internal caller would: the
// outer keys and values keep their types, and the callee's (frameKeys,
// frameArgv) pair rides as the trailing element of the value array. Nothing
// is coerced; that is the point of internal calls.
func (h *Host) InvokeFrame(ctx context.Context, sha string, keys, argv, frameKeys, frameArgv []any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	fn, ok := h.scripts[sha]
	if !ok {
		return nil, fmt.Errorf("NOSCRIPT no script with hash %s", sha)
	}
	wired := wire.Frame{Keys: frameKeys, Argv: frameArgv}.Push(argv)
	h.setGlobals(h.valuesToTable(keys), h.valuesToTable(wired))
	return h.call(fn)
}

// HSet stores a registry field. It is the same storage the Lua-side
// redis.call('HSET', ...) sees.
func (h *Host) HSet(ctx context.Context, key, field, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hset(key, field, value)
	return nil
}

func (h *Host) HGet(ctx context.Context, key, field string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.hget(key, field)
	return v, ok, nil
}

func (h *Host) hset(key, field, value string) int {
	m, ok := h.hashes[key]
	if !ok {
		m = make(map[string]string)
		h.hashes[key] = m
	}
	_, existed := m[field]
	m[field] = value
	if existed {
		return 0
	}
	return 1
}

func (h *Host) hget(key, field string) (string, bool) {
	v, ok := h.hashes[key][field]
	return v, ok
}

func (h *Host) setGlobals(keys, argv *lua.LTable) {
	h.state.SetGlobal(config.KeysName, keys)
	h.state.SetGlobal(config.ArgvName, argv)
}

func (h *Host) call(fn *lua.LFunction) (any, error) {
	L := h.state
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, fmt.Errorf("script failed: %w", err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return replyOf(ret), nil
}

func (h *Host) stringsToTable(vs []string) *lua.LTable {
	tbl := h.state.NewTable()
	for _, v := range vs {
		tbl.Append(lua.LString(v))
	}
	return tbl
}

func (h *Host) valuesToTable(vs []any) *lua.LTable {
	tbl := h.state.NewTable()
	for _, v := range vs {
		tbl.Append(h.toLua(v))
	}
	return tbl
}

func (h *Host) toLua(v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(x)
	case []byte:
		return lua.LString(x)
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case []any:
		return h.valuesToTable(x)
	case []string:
		return h.stringsToTable(x)
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

// replyOf converts a script's return value by Redis's rules: strings stay
// strings, numbers truncate to integers, true becomes 1, false and nil
// become nil, and tables become arrays cut off at the first hole. A table
// with an ok field is a status reply.
func replyOf(v lua.LValue) any {
	switch x := v.(type) {
	case lua.LString:
		return string(x)
	case lua.LNumber:
		return int64(x)
	case lua.LBool:
		if bool(x) {
			return int64(1)
		}
		return nil
	case *lua.LTable:
		if s, ok := x.RawGetString("ok").(lua.LString); ok {
			return string(s)
		}
		var out []any
		for i := 1; ; i++ {
			e := x.RawGetInt(i)
			if e == lua.LNil {
				break
			}
			out = append(out, replyOf(e))
		}
		return out
	default:
		return nil
	}
}

func (h *Host) installRedis() {
	L := h.state
	tbl := L.NewTable()
	callFn := L.NewFunction(h.redisCall)
	L.SetField(tbl, "call", callFn)
	L.SetField(tbl, "pcall", callFn)
	L.SetField(tbl, "status_reply", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		t.RawSetString("ok", lua.LString(L.CheckString(1)))
		L.Push(t)
		return 1
	}))
	L.SetField(tbl, "error_reply", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		t.RawSetString("err", lua.LString(L.CheckString(1)))
		L.Push(t)
		return 1
	}))
	L.SetGlobal("redis", tbl)
}

// redisCall covers the commands the calling convention and its tests rely
// on. Anything else raises, which in Redis terms fails the invocation.
func (h *Host) redisCall(L *lua.LState) int {
	cmd := strings.ToUpper(L.CheckString(1))
	switch cmd {
	case "HSET":
		added := h.hset(L.CheckString(2), L.CheckString(3), L.CheckString(4))
		L.Push(lua.LNumber(added))
	case "HGET":
		v, ok := h.hget(L.CheckString(2), L.CheckString(3))
		if !ok {
			L.Push(lua.LFalse)
		} else {
			L.Push(lua.LString(v))
		}
	case "SET":
		h.strings[L.CheckString(2)] = L.CheckString(3)
		t := L.NewTable()
		t.RawSetString("ok", lua.LString("OK"))
		L.Push(t)
	case "GET":
		v, ok := h.strings[L.CheckString(2)]
		if !ok {
			L.Push(lua.LFalse)
		} else {
			L.Push(lua.LString(v))
		}
	default:
		L.RaiseError("unsupported command in test host: %s", cmd)
	}
	return 1
}
