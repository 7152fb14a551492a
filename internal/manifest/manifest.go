// Package manifest parses the luacall.yaml file the CLI works from: a
// namespace, the scripts to define, and optionally where to load them.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/luacall/luacall/pkg/luacall"
)

// Manifest is the top-level luacall.yaml configuration.
type Manifest struct {
	// Namespace qualifies every script name; empty means unqualified.
	Namespace string `yaml:"namespace,omitempty"`

	// Mode is "lexical" (default) or "compat". Compat reproduces the
	// historical mangling behavior, string-literal false positives
	// included.
	Mode string `yaml:"mode,omitempty"`

	// Redis holds connection details for the load/push/watch commands.
	Redis Redis `yaml:"redis,omitempty"`

	// Scripts lists the scripts to define, in registration order.
	// Order matters: a script must be registered before its callers run.
	Scripts []Script `yaml:"scripts"`

	// dir is where the manifest was read from; script paths resolve
	// relative to it.
	dir string
}

// Redis is the connection block.
type Redis struct {
	Addr     string `yaml:"addr,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// Script is one script entry.
type Script struct {
	// Name is the bare script name; the manifest namespace qualifies it.
	Name string `yaml:"name"`

	// File is the Lua source path, relative to the manifest.
	File string `yaml:"file"`
}

// Parse decodes and validates manifest data. The path is used in error
// messages and as the base for relative script paths.
func Parse(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data, path)
}

// Validate checks the manifest for the mistakes that would otherwise only
// surface as confusing failures at load time.
func (m *Manifest) Validate() error {
	if m.Mode != "" && m.Mode != "lexical" && m.Mode != "compat" {
		return fmt.Errorf("mode %q: must be \"lexical\" or \"compat\"", m.Mode)
	}
	if strings.HasSuffix(m.Namespace, ".") || strings.HasPrefix(m.Namespace, ".") {
		return fmt.Errorf("namespace %q must not start or end with a period", m.Namespace)
	}
	if len(m.Scripts) == 0 {
		return fmt.Errorf("no scripts defined")
	}
	seen := make(map[string]bool)
	for i, s := range m.Scripts {
		if s.Name == "" {
			return fmt.Errorf("scripts[%d]: missing name", i)
		}
		if strings.Contains(s.Name, ".") {
			return fmt.Errorf("scripts[%d]: name %q must not contain a period", i, s.Name)
		}
		if s.File == "" {
			return fmt.Errorf("scripts[%d] (%s): missing file", i, s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("scripts[%d]: duplicate name %q", i, s.Name)
		}
		seen[s.Name] = true
	}
	return nil
}

// TransformMode maps the manifest's mode string to the library's Mode.
func (m *Manifest) TransformMode() luacall.Mode {
	if m.Mode == "compat" {
		return luacall.ModeCompat
	}
	return luacall.ModeLexical
}

// ScriptPath resolves a script entry's path relative to the manifest.
func (m *Manifest) ScriptPath(s Script) string {
	if filepath.IsAbs(s.File) || m.dir == "" {
		return s.File
	}
	return filepath.Join(m.dir, s.File)
}

// Library reads every script file and defines it in a fresh Library.
func (m *Manifest) Library() (*luacall.Library, error) {
	lib := luacall.NewLibrary(m.Namespace)
	lib.SetMode(m.TransformMode())
	for _, s := range m.Scripts {
		src, err := os.ReadFile(m.ScriptPath(s))
		if err != nil {
			return nil, fmt.Errorf("reading script %s: %w", s.Name, err)
		}
		if _, err := lib.Define(s.Name, string(src)); err != nil {
			return nil, fmt.Errorf("defining script %s: %w", s.Name, err)
		}
	}
	return lib, nil
}
