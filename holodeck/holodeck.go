// Package holodeck routes players to per-group room engines. Every group
// gets its own engine for each story room, so groups never share state, and
// exactly one of those engines is active at a time.
package holodeck

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/nathoo/holoroom/engine"
	"github.com/nathoo/holoroom/engine/events"
	"github.com/nathoo/holoroom/engine/rules"
	"github.com/nathoo/holoroom/types"
)

// Group names assigned by GroupFor.
const (
	DefaultGroup   = "default"
	FBTwitterGroup = "fbtwitter"
)

const (
	debugPrefix   = "ydebug "
	teleportDebug = "ydebug teleport "
)

// defaultExits are shown for directions the room does not describe.
var defaultExits = map[string]string{
	"N": "No sign of an exit here...",
	"S": "Nothing over here either...",
	"E": "Still no sign of an exit...",
	"W": "Yet another direction with no exit..",
}

// SwitchObserver is told when a group changes room.
type SwitchObserver interface {
	ObserveRoomSwitch(group, room string)
}

// Options configures a Holodeck. Zero values are usable.
type Options struct {
	Logger *slog.Logger
	Sink   events.Sink
	// StartRoom is the room every group begins in. Defaults to the first
	// room of the story.
	StartRoom string
	Commands  engine.Observer
	Switches  SwitchObserver
}

// Holodeck owns the groups and their engines. It is safe for concurrent
// use: all work for one group is serialized by that group's mutex.
type Holodeck struct {
	story  *types.Story
	start  string
	logger *slog.Logger
	sink   events.Sink
	opts   Options

	mu     sync.Mutex
	groups map[string]*group
}

type group struct {
	name    string
	mu      sync.Mutex
	engines map[string]*engine.Engine
	active  *engine.Engine
	members []string
	names   map[string]string
	logger  *slog.Logger
}

// New builds a holodeck for story with the named groups created up front.
// Groups that GroupFor produces later are created on first use.
func New(story *types.Story, groups []string, opts Options) (*Holodeck, error) {
	if story == nil || len(story.Rooms) == 0 {
		return nil, fmt.Errorf("holodeck: story has no rooms")
	}
	// Numbered once here so engines created later for new groups only read.
	rules.AssignOrdinals(story)
	h := &Holodeck{
		story:  story,
		start:  opts.StartRoom,
		logger: opts.Logger,
		sink:   opts.Sink,
		opts:   opts,
		groups: map[string]*group{},
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.sink == nil {
		h.sink = events.Discard
	}
	if h.start == "" {
		h.start = story.Rooms[0].ID
	}
	if h.room(h.start) == nil {
		return nil, fmt.Errorf("holodeck: start room %q not found", h.start)
	}
	for _, name := range groups {
		if name = strings.TrimSpace(name); name != "" {
			h.groupNamed(name)
		}
	}
	return h, nil
}

// GroupFor maps a player id to its group: facebook: and twitter: ids share
// one group, story:colab:<x>:<n> ids are grouped by everything before the
// last colon, and everyone else is in the default group.
func GroupFor(playerID string) string {
	switch {
	case strings.HasPrefix(playerID, "facebook:"), strings.HasPrefix(playerID, "twitter:"):
		return FBTwitterGroup
	case strings.HasPrefix(playerID, "story:colab:"):
		return playerID[:strings.LastIndex(playerID, ":")]
	}
	return DefaultGroup
}

// AddPlayer puts playerID in its group, sends it the active room's location
// and runs look on its behalf.
func (h *Holodeck) AddPlayer(playerID, name string) {
	g := h.groupFor(playerID)
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.names[playerID]; !ok {
		g.members = append(g.members, playerID)
	}
	g.names[playerID] = name
	g.logger.Info("player joined", "player", playerID, "name", name, "room", g.active.Room().ID)

	h.sendLocation(playerID, g.active)
	g.active.Command(playerID, "look")
}

// RemovePlayer takes playerID out of its group.
func (h *Holodeck) RemovePlayer(playerID string) {
	g := h.groupFor(playerID)
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, id := range g.members {
		if id == playerID {
			g.members = append(g.members[:i], g.members[i+1:]...)
			break
		}
	}
	delete(g.names, playerID)
	g.logger.Info("player left", "player", playerID)
}

// Members returns the ids of the players in playerID's group, in join order.
func (h *Holodeck) Members(playerID string) []string {
	g := h.groupFor(playerID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.members...)
}

// UserName returns the display name playerID joined with.
func (h *Holodeck) UserName(playerID string) string {
	g := h.groupFor(playerID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.names[playerID]
}

// ActiveRoom returns the room playerID's group is in.
func (h *Holodeck) ActiveRoom(playerID string) *types.Room {
	g := h.groupFor(playerID)
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active.Room()
}

// Command runs text (without a leading slash) for playerID in its group's
// active room. Lines starting with "ydebug " are debug commands handled
// here.
func (h *Holodeck) Command(playerID, text string) {
	g := h.groupFor(playerID)
	g.mu.Lock()
	defer g.mu.Unlock()
	h.command(g, playerID, text)
}

// SwitchRoom moves playerID's whole group to roomID. Unknown rooms are
// ignored.
func (h *Holodeck) SwitchRoom(playerID, roomID string) {
	g := h.groupFor(playerID)
	g.mu.Lock()
	defer g.mu.Unlock()
	h.switchRoom(g, roomID)
}

func (h *Holodeck) command(g *group, playerID, text string) {
	lower := strings.ToLower(text)
	if !strings.HasPrefix(lower, debugPrefix) {
		g.active.Command(playerID, text)
		return
	}

	active := g.active
	var b strings.Builder
	switch {
	case lower == "ydebug commands":
		b.WriteString("DEBUG: I know the following commands\n")
		for _, k := range active.Registry().Keys() {
			fmt.Fprintf(&b, "* **%s**\n", k)
		}
	case lower == "ydebug items":
		b.WriteString("DEBUG: I know the following items in this room\n")
		for _, it := range active.Room().Items {
			if it != nil {
				fmt.Fprintf(&b, "* **%s**\n", it.Name)
			}
		}
	case lower == "ydebug state":
		b.WriteString("DEBUG: I know the following state vars\n")
		for _, e := range active.Store().Sorted() {
			fmt.Fprintf(&b, "* **%s** -> %s\n", e.Key, e.Value)
		}
	case lower == "ydebug actionmap":
		fmt.Fprintf(&b, "DEBUG: actionmap currently has %d entries.", active.Rotation().Len())
	case strings.HasPrefix(lower, teleportDebug) && len(lower) > len(teleportDebug):
		roomID := lower[len(teleportDebug):]
		if _, ok := g.engines[roomID]; !ok {
			fmt.Fprintf(&b, "DEBUG: teleport requested for roomid %s known rooms [%s]",
				roomID, strings.Join(h.roomIDs(), ", "))
			break
		}
		h.sink.PlayerEvent(events.Player{SenderID: playerID, Self: "DEBUG: loading holodeck program with id " + roomID})
		h.switchRoom(g, roomID)
		return
	default:
		active.Command(playerID, text)
		return
	}
	h.sink.PlayerEvent(events.Player{SenderID: playerID, Self: b.String()})
}

func (h *Holodeck) switchRoom(g *group, roomID string) {
	next, ok := g.engines[roomID]
	if !ok {
		g.logger.Warn("switch to unknown room", "room", roomID)
		return
	}
	g.logger.Info("switching room", "from", g.active.Room().ID, "to", roomID)
	g.active = next
	if h.opts.Switches != nil {
		h.opts.Switches.ObserveRoomSwitch(g.name, roomID)
	}
	for _, id := range append([]string(nil), g.members...) {
		h.sendLocation(id, next)
		next.Command(id, "look")
	}
}

// Location builds the location event for room as seen by playerID.
func (h *Holodeck) Location(playerID string, room *types.Room) events.Location {
	exits := make(map[string]string, len(defaultExits)+len(room.Exits))
	for k, v := range defaultExits {
		exits[k] = v
	}
	for k, v := range room.Exits {
		exits[k] = v
	}
	commands := make(map[string]string, len(h.story.CommandDescriptions))
	for k, v := range h.story.CommandDescriptions {
		commands["/"+k] = v
	}
	return events.Location{
		PlayerID:  playerID,
		RoomID:    room.ID,
		Name:      room.Name,
		Exits:     exits,
		Objects:   []string{},
		Inventory: []string{},
		Commands:  commands,
	}
}

func (h *Holodeck) sendLocation(playerID string, e *engine.Engine) {
	h.sink.LocationEvent(h.Location(playerID, e.Room()))
}

func (h *Holodeck) groupFor(playerID string) *group {
	return h.groupNamed(GroupFor(playerID))
}

func (h *Holodeck) groupNamed(name string) *group {
	h.mu.Lock()
	defer h.mu.Unlock()
	if g, ok := h.groups[name]; ok {
		return g
	}

	g := &group{
		name:    name,
		engines: make(map[string]*engine.Engine, len(h.story.Rooms)),
		names:   map[string]string{},
		logger:  h.logger.With("group", name),
	}
	opts := engine.Options{
		Logger:   g.logger,
		Sink:     h.sink,
		Switcher: groupSwitcher{h: h, g: g},
		Names:    groupNames{g: g},
		Observer: h.opts.Commands,
	}
	for _, r := range h.story.Rooms {
		if r != nil {
			g.engines[r.ID] = engine.New(h.story, r, opts)
		}
	}
	g.active = g.engines[h.start]
	h.groups[name] = g
	g.logger.Debug("group created", "rooms", len(g.engines))
	return g
}

// Groups returns the names of the groups created so far, sorted.
func (h *Holodeck) Groups() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.groups))
	for n := range h.groups {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (h *Holodeck) room(id string) *types.Room {
	for _, r := range h.story.Rooms {
		if r != nil && r.ID == id {
			return r
		}
	}
	return nil
}

func (h *Holodeck) roomIDs() []string {
	ids := make([]string, 0, len(h.story.Rooms))
	for _, r := range h.story.Rooms {
		if r != nil {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// groupSwitcher and groupNames are handed to a group's engines. Engines only
// run while the group mutex is held, so they skip the locking done by the
// exported methods.
type groupSwitcher struct {
	h *Holodeck
	g *group
}

func (s groupSwitcher) SwitchRoom(_, roomID string) { s.h.switchRoom(s.g, roomID) }

type groupNames struct{ g *group }

func (n groupNames) UserName(playerID string) string { return n.g.names[playerID] }
