// Package template resolves {placeholder} references in authored strings
// against a state store and the invoking player's context.
package template

import (
	"strings"

	"github.com/nathoo/holoroom/engine/state"
)

// Context carries the call-site values for {arg}, {id} and {name}.
type Context struct {
	Args       string
	PlayerID   string
	PlayerName string
}

// Output substitutes text bound for a player. Every {key} for a store key is
// replaced by its value, then {arg}, {id} and {name}, then the two-character
// escape \n becomes a newline. Unknown placeholders are left as they are.
func Output(s *state.Store, text string, ctx Context) string {
	if !strings.Contains(text, "{") {
		return unescape(text)
	}
	out := text
	if s != nil {
		s.Each(func(key string, v state.Value) {
			out = strings.ReplaceAll(out, "{"+key+"}", v.String())
		})
	}
	out = replaceContext(out, ctx)
	return unescape(out)
}

// Operand substitutes one side of a condition comparison. Matching outer
// quotes are stripped, then every raw store key found anywhere in the operand
// is replaced by its value in store order. Keys are not delimited, so a key
// that is a substring of another key or of literal text is replaced too.
func Operand(s *state.Store, text string, ctx Context) string {
	out := strings.TrimSpace(text)
	if len(out) >= 2 {
		first, last := out[0], out[len(out)-1]
		if first == last && (first == '"' || first == '\'') {
			out = out[1 : len(out)-1]
		}
	}
	if s != nil {
		s.Each(func(key string, v state.Value) {
			out = strings.ReplaceAll(out, key, v.String())
		})
	}
	return replaceContext(out, ctx)
}

func replaceContext(text string, ctx Context) string {
	text = strings.ReplaceAll(text, "{arg}", ctx.Args)
	text = strings.ReplaceAll(text, "{id}", ctx.PlayerID)
	return strings.ReplaceAll(text, "{name}", ctx.PlayerName)
}

func unescape(text string) string {
	return strings.ReplaceAll(text, `\n`, "\n")
}
