// Package registry builds the lookup table from command keys to the actions
// that may answer them. Keys are either a bare command name ("look") or a
// command qualified by an item token ("take:brass-lamp").
package registry

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/nathoo/holoroom/types"
)

// Handler aggregates every action reachable through one key. Aliases share
// the same *Handler as the name they alias.
type Handler struct {
	Command string
	Actions []*types.Action
}

// Registry maps lowercase command keys to handlers. It is read-only once
// Build returns.
type Registry struct {
	handlers map[string]*Handler
}

// Resolver expands template placeholders in an item name or alias. It is
// called with empty args, id and name.
type Resolver func(text string) string

// Build registers commands in scope order: global, then room, then item.
// The first scope to claim an alias keeps it; a name that already exists
// gains the later scope's actions.
func Build(global, room []*types.Command, items []*types.Item, resolve Resolver, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{handlers: map[string]*Handler{}}

	for _, scope := range [][]*types.Command{global, room} {
		for _, c := range scope {
			if c == nil {
				continue
			}
			name := normalize(c.Name)
			h := r.claim(name, c.Name)
			for _, alias := range c.Aliases {
				r.alias(normalize(alias), h)
			}
			if len(c.Actions) == 0 {
				logger.Error("command has no actions", "command", c.Name)
				continue
			}
			h.Actions = append(h.Actions, c.Actions...)
		}
	}

	for _, it := range items {
		if it == nil {
			continue
		}
		nameToken := ItemToken(it.Name, resolve)
		tokens := []string{nameToken}
		for _, a := range it.Aliases {
			if tok := ItemToken(a, resolve); tok != nameToken {
				tokens = append(tokens, tok)
			}
		}
		for i, tok := range tokens {
			for _, c := range it.Commands {
				if c == nil {
					continue
				}
				h := r.claim(normalize(c.Name)+":"+tok, c.Name)
				for _, alias := range c.Aliases {
					r.alias(ItemToken(alias, resolve)+":"+tok, h)
				}
				if len(c.Actions) == 0 {
					if i == 0 {
						logger.Error("item command has no actions", "item", it.Name, "command", c.Name)
					}
					continue
				}
				h.Actions = append(h.Actions, c.Actions...)
			}
		}
	}
	return r
}

// claim returns the handler for key, creating it if absent.
func (r *Registry) claim(key, command string) *Handler {
	h, ok := r.handlers[key]
	if !ok {
		h = &Handler{Command: command}
		r.handlers[key] = h
	}
	return h
}

// alias points key at h unless key is already taken.
func (r *Registry) alias(key string, h *Handler) {
	if _, taken := r.handlers[key]; !taken {
		r.handlers[key] = h
	}
}

// Lookup returns the handler registered under key.
func (r *Registry) Lookup(key string) (*Handler, bool) {
	h, ok := r.handlers[key]
	return h, ok
}

// Keys returns every registered key, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of registered keys.
func (r *Registry) Len() int { return len(r.handlers) }

// ItemToken converts an item name or alias to its lookup form: trimmed,
// spaces replaced by hyphens, placeholders resolved, lowercased.
func ItemToken(name string, resolve Resolver) string {
	tok := strings.ReplaceAll(strings.TrimSpace(name), " ", "-")
	if strings.Contains(tok, "{") && resolve != nil {
		tok = resolve(tok)
	}
	return strings.ToLower(tok)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
