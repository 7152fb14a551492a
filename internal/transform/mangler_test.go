package transform

import (
	"strings"
	"testing"
)

func TestMangle_FreeStandingReferences(t *testing.T) {
	src := "local passed_keys = KEYS\nlocal source = KEYS[1]\nlocal arg = ARGV[1]"
	want := "local passed_keys = _KEYS\nlocal source = _KEYS[1]\nlocal arg = _ARGV[1]"

	for _, mode := range []Mode{ModeLexical, ModeCompat} {
		if got := Mangle(src, mode); got != want {
			t.Errorf("mode %d:\ngot  %q\nwant %q", mode, got, want)
		}
	}
}

// The literal name-string argument to the fetch-by-name call must survive,
// while a free-standing reference in the same source is still rewritten.
func TestMangle_LiteralExclusion(t *testing.T) {
	src := "local z = redis.call('KEYS', pat)\nreturn ARGV"
	want := "local z = redis.call('KEYS', pat)\nreturn _ARGV"

	for _, mode := range []Mode{ModeLexical, ModeCompat} {
		if got := Mangle(src, mode); got != want {
			t.Errorf("mode %d:\ngot  %q\nwant %q", mode, got, want)
		}
	}
}

func TestMangle_WordBoundaries(t *testing.T) {
	src := "local MYKEYS = KEYSX + KEYS"
	want := "local MYKEYS = KEYSX + _KEYS"

	for _, mode := range []Mode{ModeLexical, ModeCompat} {
		if got := Mangle(src, mode); got != want {
			t.Errorf("mode %d:\ngot  %q\nwant %q", mode, got, want)
		}
	}
}

// The two modes diverge only on reserved names inside unrelated string
// literals: compat mangles them, lexical leaves them alone.
func TestMangle_StringLiteralDivergence(t *testing.T) {
	src := "local s = 'a string with KEYS and ARGV, oops!'"

	if got := Mangle(src, ModeLexical); got != src {
		t.Errorf("lexical touched a string literal:\ngot  %q\nwant %q", got, src)
	}

	wantCompat := "local s = 'a string with _KEYS and _ARGV, oops!'"
	if got := Mangle(src, ModeCompat); got != wantCompat {
		t.Errorf("compat:\ngot  %q\nwant %q", got, wantCompat)
	}
}

func TestMangle_CommentsLexical(t *testing.T) {
	src := "-- uses KEYS\nreturn KEYS"
	want := "-- uses KEYS\nreturn _KEYS"
	if got := Mangle(src, ModeLexical); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMangle_Idempotent(t *testing.T) {
	srcs := []string{
		"return {KEYS, ARGV}",
		"local z = redis.call('KEYS', p)\nreturn ARGV[#ARGV]",
		"local s = 'with KEYS inside'",
	}
	for _, mode := range []Mode{ModeLexical, ModeCompat} {
		for _, src := range srcs {
			once := Mangle(src, mode)
			twice := Mangle(once, mode)
			if once != twice {
				t.Errorf("mode %d not idempotent on %q:\nonce  %q\ntwice %q",
					mode, src, once, twice)
			}
		}
	}
}

func TestMangle_NoReservedNames(t *testing.T) {
	src := "return redis.call('GET', 'k')"
	for _, mode := range []Mode{ModeLexical, ModeCompat} {
		if got := Mangle(src, mode); got != src {
			t.Errorf("mode %d rewrote unrelated source: %q", mode, got)
		}
	}
}

func TestMangle_PreservesLayout(t *testing.T) {
	src := "  return   KEYS  --trail\n"
	got := Mangle(src, ModeLexical)
	if !strings.HasPrefix(got, "  return   _KEYS  ") {
		t.Errorf("whitespace not preserved: %q", got)
	}
}
