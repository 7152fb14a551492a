// Package transform rewrites Lua script source so independently loaded
// scripts can call one another inside the host. Three stages run over the
// text: reserved-name mangling, call-site rewriting, and header injection.
// The pipeline never fails on script content; the only rejected input is an
// invalid script name.
package transform

import (
	"fmt"
	"strings"
)

// Options control one transformation.
type Options struct {
	// Namespace qualifies bare call targets and the script's own
	// registered name. Empty means no qualification.
	Namespace string
	Mode      Mode
}

// Result is the transformed script.
type Result struct {
	Name      string
	Qualified string // namespace-qualified registry name
	Source    string
}

// Transform runs the full pipeline over one script. The name must not
// contain a dot: dots separate namespaces from script names, and a dotted
// definition would alias another namespace's entries.
func Transform(name, source string, opts Options) (*Result, error) {
	if strings.Contains(name, ".") {
		return nil, fmt.Errorf("script name %q must not contain a period", name)
	}

	ctx := &Context{
		Name:      name,
		Namespace: opts.Namespace,
		Mode:      opts.Mode,
		Source:    source,
	}
	ctx = NewPipeline(mangleStage{}, callStage{}, headerStage{}).Run(ctx)

	qualified := name
	if opts.Namespace != "" {
		qualified = opts.Namespace + "." + name
	}
	return &Result{Name: name, Qualified: qualified, Source: ctx.Source}, nil
}
