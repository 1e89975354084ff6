// Package effects executes the do: instructions of a chosen action. Every
// instruction is one atomic operation; failures are logged and skipped.
package effects

import (
	"log/slog"
	"strings"

	"github.com/nathoo/holoroom/engine/events"
	"github.com/nathoo/holoroom/engine/parser"
	"github.com/nathoo/holoroom/engine/state"
	"github.com/nathoo/holoroom/engine/template"
)

// Instruction verbs.
const (
	VerbSet      = "set"
	VerbTeleport = "teleportAll"
)

// Context carries what instructions need beyond the store.
type Context struct {
	Template  template.Context
	ItemNames []string            // authored names, hyphenated before splitting
	Switcher  events.RoomSwitcher // may be nil
}

// Change records one instruction that took effect.
type Change struct {
	Verb  string
	Key   string // set
	Value string // set
	Room  string // teleportAll
}

// Apply runs instructions in order against s and returns what changed.
// A set on an undeclared key, an unknown verb and a line without an
// argument are logged and skipped; later instructions still run.
func Apply(s *state.Store, instructions []string, ctx Context, logger *slog.Logger) []Change {
	if logger == nil {
		logger = slog.Default()
	}
	var changes []Change
	for _, raw := range instructions {
		line := strings.TrimSpace(raw)
		if !strings.Contains(line, " ") {
			logger.Warn("instruction must be of the form \"verb arg\"", "instruction", line)
			continue
		}
		words := strings.Fields(parser.Hyphenate(line, ctx.ItemNames))

		switch words[0] {
		case VerbSet:
			c, ok := set(s, strings.TrimPrefix(line, VerbSet), ctx, logger)
			if ok {
				changes = append(changes, c)
			}

		case VerbTeleport:
			room := words[1]
			if ctx.Switcher == nil {
				logger.Warn("teleport with no room switcher", "room", room)
				continue
			}
			logger.Debug("teleport", "room", room, "player", ctx.Template.PlayerID)
			ctx.Switcher.SwitchRoom(ctx.Template.PlayerID, room)
			changes = append(changes, Change{Verb: VerbTeleport, Room: room})

		default:
			logger.Warn("unknown instruction", "verb", words[0], "instruction", line)
		}
	}
	return changes
}

// set handles "<key> = <value>". The value is everything after the first
// '=', trimmed and templated.
func set(s *state.Store, rest string, ctx Context, logger *slog.Logger) (Change, bool) {
	key, value, found := strings.Cut(rest, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		logger.Warn("set must be of the form \"set key = value\"", "instruction", "set"+rest)
		return Change{}, false
	}
	value = template.Output(s, strings.TrimSpace(value), ctx.Template)
	if !s.Set(key, state.String(value)) {
		logger.Warn("set must refer to an existing key", "key", key)
		return Change{}, false
	}
	return Change{Verb: VerbSet, Key: key, Value: value}, true
}
