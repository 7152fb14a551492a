package transform

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/luacall/luacall/internal/config"
)

// callRE matches one internal call per line: an optional prefix (anything up
// to the CALL keyword, e.g. `return ` or `local x = `), a possibly dotted
// target name, and the argument text. The arguments may not contain nested
// parentheses; keep call expressions simple and build values beforehand.
var callRE = regexp.MustCompile(
	`(?m)^(.*?)CALL[.]([a-zA-Z_][a-zA-Z0-9_]*(?:[.][a-zA-Z_][a-zA-Z0-9_]*)*)[(]([^()]+)[)][ \t\r]*$`)

// rewriteCalls turns every `CALL.<name>(K, V)` expression into the push /
// resolve / invoke sequence: append {K, V} to ARGV as the callee's frame,
// look the target's handle up in the registry hash, and call it. The callee
// finds its arguments in the frame, so the invocation itself takes none, and
// its return value is the value of the whole expression.
func rewriteCalls(src, namespace string) string {
	return callRE.ReplaceAllStringFunc(src, func(m string) string {
		g := callRE.FindStringSubmatch(m)
		left, name, args := g[1], g[2], g[3]
		if !strings.Contains(name, ".") && namespace != "" {
			name = namespace + "." + name
		}
		return fmt.Sprintf("table.insert(ARGV, {%s});%s_G[redis.call('HGET', '%s', '%s')]();",
			args, left, config.RegistryKey, name)
	})
}
