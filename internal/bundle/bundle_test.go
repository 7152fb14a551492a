package bundle

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/luacall/luacall/pkg/luacall"
	"github.com/luacall/luacall/pkg/luatest"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "scripts.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func define(t *testing.T, lib *luacall.Library, name, src string) *luacall.Script {
	t.Helper()
	sc, err := lib.Define(name, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sc
}

func TestStore_PutGet(t *testing.T) {
	s := openTemp(t)
	lib := luacall.NewLibrary("app")
	sc := define(t, lib, "f", "return ARGV")

	if err := s.Put(sc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, ok, err := s.Get("app.f")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("entry not found")
	}
	if e.Sha != sc.Sha || e.Source != sc.Source || e.Raw != "return ARGV" {
		t.Errorf("entry = %+v", e)
	}
	if e.Handle() != sc.Handle() {
		t.Errorf("handle = %q, want %q", e.Handle(), sc.Handle())
	}
}

func TestStore_GetMissing(t *testing.T) {
	s := openTemp(t)
	_, ok, err := s.Get("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("missing entry reported found")
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	s := openTemp(t)
	lib := luacall.NewLibrary("app")

	if err := s.Put(define(t, lib, "f", "return 1")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sc2 := define(t, lib, "f", "return 2")
	if err := s.Put(sc2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e, ok, err := s.Get("app.f")
	if err != nil || !ok {
		t.Fatalf("entry missing after overwrite: %v", err)
	}
	if e.Sha != sc2.Sha {
		t.Errorf("sha = %s, want %s", e.Sha, sc2.Sha)
	}
	entries, err := s.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

// A bundle written offline must be pushable into a host later and behave
// like scripts loaded directly: registered, resolvable, callable.
func TestStore_PushRoundTrip(t *testing.T) {
	s := openTemp(t)
	lib := luacall.NewLibrary("example")
	define(t, lib, "return_args", "return ARGV")
	callScript := define(t, lib, "call_return", "return CALL.return_args({}, {1, ARGV})")
	if _, err := s.PutAll(lib); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	h := luatest.NewHost()
	defer h.Close()
	ctx := context.Background()

	n, err := s.Push(ctx, h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("pushed %d, want 2", n)
	}

	got, err := callScript.Call(ctx, h, nil, []any{"x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	arr, ok := got.([]any)
	if !ok || len(arr) != 2 {
		t.Fatalf("result = %#v", got)
	}
}
