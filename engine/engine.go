// Package engine provides the room interpreter that wires together input
// parsing, command lookup, condition filtering, rotation, templating and
// instruction execution into a single command invocation.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nathoo/holoroom/engine/effects"
	"github.com/nathoo/holoroom/engine/events"
	"github.com/nathoo/holoroom/engine/expr"
	"github.com/nathoo/holoroom/engine/parser"
	"github.com/nathoo/holoroom/engine/registry"
	"github.com/nathoo/holoroom/engine/rules"
	"github.com/nathoo/holoroom/engine/state"
	"github.com/nathoo/holoroom/engine/template"
	"github.com/nathoo/holoroom/types"
)

var (
	// ErrUnknownCommand means no handler matched the input.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNoMatchingAction means a handler matched but none of its actions
	// qualified and it had no unmatched fallback.
	ErrNoMatchingAction = errors.New("no matching action")
)

// Command outcomes reported to an Observer.
const (
	OutcomeDispatched = "dispatched"
	OutcomeUnknown    = "unknown"
	OutcomeNoAction   = "no_action"
	OutcomeError      = "error"
)

// Observer is told how each command invocation ended.
type Observer interface {
	ObserveCommand(room, outcome string)
}

// Options configures an Engine. Zero values are usable.
type Options struct {
	Logger   *slog.Logger
	Sink     events.Sink
	Switcher events.RoomSwitcher
	Names    events.NameLookup
	Observer Observer
}

// Engine interprets commands for one room on behalf of one group. It does no
// locking: callers must not invoke it from two goroutines at once.
type Engine struct {
	story     *types.Story
	room      *types.Room
	store     *state.Store
	registry  *registry.Registry
	rotation  *rules.Rotation
	itemNames []string
	compiled  map[string]compiled

	logger   *slog.Logger
	sink     events.Sink
	switcher events.RoomSwitcher
	names    events.NameLookup
	observer Observer
}

type compiled struct {
	expr expr.Expr
	err  error
}

// Result describes one dispatched command.
type Result struct {
	Key        string
	Args       string
	Candidates int
	Action     *types.Action
	Self       string
	Others     string
	Changes    []effects.Change
}

// New builds an engine for room. Actions without an ordinal are numbered,
// the state store is seeded and the command registry built before New
// returns.
func New(story *types.Story, room *types.Room, opts Options) *Engine {
	if story == nil {
		story = &types.Story{}
	}
	rules.AssignOrdinals(story)
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("room", room.ID)

	e := &Engine{
		story:    story,
		room:     room,
		store:    state.Seed(story, room),
		rotation: rules.NewRotation(),
		compiled: map[string]compiled{},
		logger:   logger,
		sink:     opts.Sink,
		switcher: opts.Switcher,
		names:    opts.Names,
		observer: opts.Observer,
	}
	if e.sink == nil {
		e.sink = events.Discard
	}

	for _, it := range room.Items {
		if it == nil {
			continue
		}
		e.itemNames = append(e.itemNames, it.Name)
		e.itemNames = append(e.itemNames, it.Aliases...)
	}

	resolve := func(s string) string {
		return template.Output(e.store, s, template.Context{})
	}
	e.registry = registry.Build(story.Commands, room.Commands, room.Items, resolve, logger)
	return e
}

// Command runs text typed by playerID without the leading slash, resolving
// the player's display name through the configured NameLookup.
func (e *Engine) Command(playerID, text string) {
	name := ""
	if e.names != nil {
		name = e.names.UserName(playerID)
	}
	e.ProcessRoomInput("/"+text, playerID, name)
}

// ProcessRoomInput handles one line of room input. Lines that do not start
// with '/' are speech and are only logged. Errors are logged, never returned;
// use Dispatch to observe them.
func (e *Engine) ProcessRoomInput(raw, playerID, playerName string) {
	if !strings.HasPrefix(raw, "/") {
		e.logger.Debug("say", "player", playerID, "text", raw)
		return
	}
	_, err := e.Dispatch(raw, playerID, playerName)
	switch {
	case err == nil, errors.Is(err, ErrUnknownCommand):
	case errors.Is(err, ErrNoMatchingAction):
		e.logger.Error("no matching actions", "player", playerID, "input", raw, "err", err)
	default:
		e.logger.Error("command aborted", "player", playerID, "input", raw, "err", err)
	}
}

// Dispatch runs one slash command and reports what happened. An unknown
// command still emits the "don't understand" reply. A condition that fails
// to compile or resolve aborts the command before anything is emitted.
func (e *Engine) Dispatch(raw, playerID, playerName string) (Result, error) {
	in := parser.Parse(raw, e.itemNames)

	var (
		h   *registry.Handler
		res Result
	)
	for _, l := range in.Lookups() {
		if found, ok := e.registry.Lookup(l.Key); ok {
			h, res.Key, res.Args = found, l.Key, l.Args
			break
		}
	}
	if h == nil {
		e.sink.PlayerEvent(events.Player{
			SenderID: playerID,
			Self:     fmt.Sprintf("I'm sorry, I don't understand '%s'", raw),
		})
		e.observe(OutcomeUnknown)
		return res, fmt.Errorf("%w: %q", ErrUnknownCommand, in.Text)
	}

	ctx := template.Context{Args: res.Args, PlayerID: playerID, PlayerName: playerName}
	candidates, err := rules.Candidates(h.Actions, func(cond string) (bool, error) {
		return e.evaluate(cond, ctx)
	})
	if err != nil {
		e.observe(OutcomeError)
		return res, fmt.Errorf("command %s: %w", res.Key, err)
	}
	res.Candidates = len(candidates)
	if len(candidates) == 0 {
		e.logger.Debug("no candidates", "command", h.Command, "actions", len(h.Actions), "args", res.Args)
		e.observe(OutcomeNoAction)
		return res, fmt.Errorf("%w for %s", ErrNoMatchingAction, res.Key)
	}

	chosen := e.rotation.Pick(candidates)
	res.Action = chosen
	if chosen.User != "" {
		res.Self = template.Output(e.store, chosen.User, ctx)
	}
	if chosen.Room != "" {
		res.Others = template.Output(e.store, chosen.Room, ctx)
	}
	e.sink.PlayerEvent(events.Player{SenderID: playerID, Self: res.Self, Others: res.Others})

	// Instructions run after emission so a teleport never overtakes the
	// text describing the room being left.
	res.Changes = effects.Apply(e.store, chosen.Do, effects.Context{
		Template:  ctx,
		ItemNames: e.itemNames,
		Switcher:  e.switcher,
	}, e.logger)
	e.observe(OutcomeDispatched)
	return res, nil
}

// evaluate compiles cond once and evaluates it against the live store.
func (e *Engine) evaluate(cond string, ctx template.Context) (bool, error) {
	c, ok := e.compiled[cond]
	if !ok {
		x, err := expr.Compile(cond)
		c = compiled{expr: x, err: err}
		e.compiled[cond] = c
	}
	if c.err != nil {
		return false, c.err
	}
	return expr.Eval(c.expr, e.store, ctx)
}

func (e *Engine) observe(outcome string) {
	if e.observer != nil {
		e.observer.ObserveCommand(e.room.ID, outcome)
	}
}

// Room returns the room this engine serves.
func (e *Engine) Room() *types.Room { return e.room }

// Story returns the story the room belongs to.
func (e *Engine) Story() *types.Story { return e.story }

// Store returns the live state store.
func (e *Engine) Store() *state.Store { return e.store }

// Registry returns the command registry.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Rotation returns the rotation table.
func (e *Engine) Rotation() *rules.Rotation { return e.rotation }
