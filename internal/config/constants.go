package config

const SourceFileExt = ".lua"

// SourceFileExtensions are all recognized script file extensions
var SourceFileExtensions = []string{".lua"}

// Version is reported by the CLI and has no wire significance.
const Version = "0.1.0"

// Reserved array names the host provides to every top-level invocation,
// and the internal aliases transformed scripts use in their place.
const (
	KeysName  = "KEYS"
	ArgvName  = "ARGV"
	KeysAlias = "_KEYS"
	ArgvAlias = "_ARGV"
)

// Registry layout inside Redis.
const (
	// RegistryKey is the hash holding qualifiedName -> handle entries.
	RegistryKey = ":registry"

	// HandlePrefix prepended to a script's SHA-1 yields the name of the
	// global function the host binds a loaded script to.
	HandlePrefix = "f_"
)
