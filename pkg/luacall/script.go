package luacall

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/luacall/luacall/internal/config"
	"github.com/luacall/luacall/internal/transform"
	"github.com/luacall/luacall/internal/wire"
)

// Mode selects how the mangler treats reserved names inside string literals.
type Mode int

const (
	// ModeLexical (the default) is string-safe: only identifier tokens
	// are rewritten.
	ModeLexical Mode = iota

	// ModeCompat reproduces the historical regex behavior, including its
	// documented false positives inside unrelated string literals. Use it
	// when transformed output must match older deployments byte for byte.
	ModeCompat
)

func (m Mode) transformMode() transform.Mode {
	if m == ModeCompat {
		return transform.ModeCompat
	}
	return transform.ModeLexical
}

// Script is one defined script: the source as authored, the transformed
// source actually loaded into the host, and its content hash. The hash is
// the SHA-1 of the transformed source, which is exactly the identity the
// host assigns at load time, so it is known before any connection exists.
type Script struct {
	Name      string
	Namespace string
	Raw       string
	Source    string
	Sha       string
}

// Transform rewrites one script without touching any registry. Most callers
// want Library.Define instead; this is the bare pipeline for code that
// manages loading itself.
func Transform(namespace, name, source string, mode Mode) (*Script, error) {
	res, err := transform.Transform(name, source, transform.Options{
		Namespace: namespace,
		Mode:      mode.transformMode(),
	})
	if err != nil {
		return nil, err
	}
	sum := sha1.Sum([]byte(res.Source))
	return &Script{
		Name:      name,
		Namespace: namespace,
		Raw:       source,
		Source:    res.Source,
		Sha:       hex.EncodeToString(sum[:]),
	}, nil
}

// Qualified returns the script's registry name.
func (s *Script) Qualified() string {
	if s.Namespace == "" {
		return s.Name
	}
	return s.Namespace + "." + s.Name
}

// Handle returns the name the host binds the loaded script to, which is what
// the registry stores and call sites resolve.
func (s *Script) Handle() string {
	return config.HandlePrefix + s.Sha
}

// Load pushes the script into the host and registers its handle under the
// qualified name. Registration is an upsert: redefining a name points it at
// the new body, and callers still holding the old hash keep resolving to the
// old body until they re-resolve by name.
func (s *Script) Load(ctx context.Context, host Host) error {
	if _, err := host.ScriptLoad(ctx, s.Source); err != nil {
		return err
	}
	return host.HSet(ctx, config.RegistryKey, s.Qualified(), s.Handle())
}

// Call invokes the script from outside the host. Keys and values are coerced
// to their textual form, as the outer boundary requires; values passed
// between scripts inside the host are never re-coerced.
func (s *Script) Call(ctx context.Context, host Host, keys, argv []any) (any, error) {
	k, a := wire.Boundary{Keys: keys, Argv: argv}.Wire()
	return host.EvalSha(ctx, s.Sha, k, a)
}
