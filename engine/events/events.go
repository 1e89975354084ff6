// Package events defines what a room engine emits and what it needs from the
// layer that hosts it: a Sink for outgoing events, a RoomSwitcher for
// teleports, and a NameLookup for player display names.
package events

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Player is text produced by one command. Self goes only to the sender,
// Others to everyone else in the group. Either may be empty.
type Player struct {
	SenderID string
	Self     string
	Others   string
}

// Location describes a room for "look" and room-entry rendering.
type Location struct {
	PlayerID    string
	RoomID      string
	Name        string
	Description string
	Exits       map[string]string
	Objects     []string
	Inventory   []string
	Commands    map[string]string
}

// Exit tells a player they have left through an exit.
type Exit struct {
	PlayerID string
	Message  string
	ExitID   string
	Payload  string
}

// Sink receives engine output.
type Sink interface {
	PlayerEvent(e Player)
	LocationEvent(e Location)
	ExitEvent(e Exit)
}

// RoomSwitcher moves a player's whole group to another room.
type RoomSwitcher interface {
	SwitchRoom(playerID, roomID string)
}

// NameLookup resolves a player id to a display name.
type NameLookup interface {
	UserName(playerID string) string
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) PlayerEvent(Player)     {}
func (discard) LocationEvent(Location) {}
func (discard) ExitEvent(Exit)         {}

// Recorder is a Sink that keeps every event in order. It is safe for
// concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []any
}

func (r *Recorder) PlayerEvent(e Player)     { r.add(e) }
func (r *Recorder) LocationEvent(e Location) { r.add(e) }
func (r *Recorder) ExitEvent(e Exit)         { r.add(e) }

func (r *Recorder) add(e any) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.events...)
}

// Players returns only the player events.
func (r *Recorder) Players() []Player {
	var out []Player
	for _, e := range r.Events() {
		if p, ok := e.(Player); ok {
			out = append(out, p)
		}
	}
	return out
}

// Drain returns everything recorded and clears the recorder.
func (r *Recorder) Drain() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}

// Lines renders an event as console text for the player with id viewer.
// Text meant for others is shown to the sender only if Self is empty.
func Lines(e any, viewer string) []string {
	switch ev := e.(type) {
	case Player:
		if ev.SenderID == viewer {
			if ev.Self != "" {
				return splitLines(ev.Self)
			}
			if ev.Others != "" {
				return splitLines(ev.Others)
			}
			return nil
		}
		return splitLines(ev.Others)
	case Location:
		if ev.PlayerID != viewer {
			return nil
		}
		return locationLines(ev)
	case Exit:
		if ev.PlayerID != viewer {
			return nil
		}
		return splitLines(ev.Message)
	}
	return nil
}

func locationLines(l Location) []string {
	out := []string{fmt.Sprintf("== %s ==", l.Name)}
	if l.Description != "" {
		out = append(out, splitLines(l.Description)...)
	}
	if len(l.Exits) == 0 {
		out = append(out, "There are no exits.")
	} else {
		dirs := make([]string, 0, len(l.Exits))
		for d := range l.Exits {
			dirs = append(dirs, d)
		}
		sort.Strings(dirs)
		for _, d := range dirs {
			out = append(out, fmt.Sprintf(" - %s %s", d, l.Exits[d]))
		}
	}
	if len(l.Objects) > 0 {
		out = append(out, "You can see: "+strings.Join(l.Objects, ", "))
	}
	if len(l.Inventory) > 0 {
		out = append(out, "You are carrying: "+strings.Join(l.Inventory, ", "))
	}
	return out
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
