package loader

import (
	"fmt"
	"io"
	"strings"

	"github.com/nathoo/holoroom/engine/expr"
	"github.com/nathoo/holoroom/engine/state"
	"github.com/nathoo/holoroom/engine/template"
	"github.com/nathoo/holoroom/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// validate checks the story's structure: every room has a unique id, and
// every command and item has a name. Commands without actions are warnings.
func validate(story *types.Story) *ValidationError {
	ve := &ValidationError{}

	if len(story.Rooms) == 0 {
		ve.Errors = append(ve.Errors, "story has no rooms")
	}
	checkCommands(ve, "story", story.Commands)

	seen := map[string]bool{}
	for i, r := range story.Rooms {
		if r == nil {
			ve.Errors = append(ve.Errors, fmt.Sprintf("room #%d is empty", i+1))
			continue
		}
		if r.ID == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("room #%d has no id", i+1))
		} else if seen[r.ID] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate room id %q", r.ID))
		}
		seen[r.ID] = true

		where := fmt.Sprintf("room %q", r.ID)
		checkCommands(ve, where, r.Commands)
		for j, it := range r.Items {
			if it == nil || strings.TrimSpace(it.Name) == "" {
				ve.Errors = append(ve.Errors, fmt.Sprintf("%s item #%d has no name", where, j+1))
				continue
			}
			checkCommands(ve, fmt.Sprintf("%s item %q", where, it.Name), it.Commands)
		}
	}

	for name := range story.CommandDescriptions {
		if !declared(story, name) {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("description for undeclared command %q", name))
		}
	}

	return ve
}

func checkCommands(ve *ValidationError, where string, cmds []*types.Command) {
	for i, c := range cmds {
		if c == nil || strings.TrimSpace(c.Name) == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s command #%d has no name", where, i+1))
			continue
		}
		if len(c.Actions) == 0 {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("%s command %q has no actions", where, c.Name))
		}
	}
}

func declared(story *types.Story, name string) bool {
	match := func(cmds []*types.Command) bool {
		for _, c := range cmds {
			if c != nil && strings.EqualFold(c.Name, name) {
				return true
			}
		}
		return false
	}
	if match(story.Commands) {
		return true
	}
	for _, r := range story.Rooms {
		if r == nil {
			continue
		}
		if match(r.Commands) {
			return true
		}
		for _, it := range r.Items {
			if it != nil && match(it.Commands) {
				return true
			}
		}
	}
	return false
}

// Failure is one condition that did not compile or evaluate.
type Failure struct {
	Condition string
	Err       error
}

// RoomReport is the condition check result for one room.
type RoomReport struct {
	ID       string
	Name     string
	Failures []Failure
}

// OK reports whether every condition in the room passed.
func (r RoomReport) OK() bool { return len(r.Failures) == 0 }

// Report is the condition check result for a whole story.
type Report struct {
	Rooms []RoomReport
}

// OK reports whether every room passed.
func (r Report) OK() bool {
	for _, room := range r.Rooms {
		if !room.OK() {
			return false
		}
	}
	return true
}

// WriteTo writes the report in its text form:
//
//	Room: (<id>) <name> -- Validation pass. OK.
//	Room: (<id>) <name> -- Validation pass. FAIL.
//	* [<condition>] --> <error>
//
// Each room block is followed by a blank line.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	for _, room := range r.Rooms {
		if room.OK() {
			fmt.Fprintf(&b, "Room: (%s) %s -- Validation pass. OK.\n\n", room.ID, room.Name)
			continue
		}
		fmt.Fprintf(&b, "Room: (%s) %s -- Validation pass. FAIL.\n", room.ID, room.Name)
		for _, f := range room.Failures {
			fmt.Fprintf(&b, "* [%s] --> %v\n", f.Condition, f.Err)
		}
		b.WriteString("\n")
	}
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// VerifyStory checks the conditions of every room.
func VerifyStory(story *types.Story) Report {
	var rep Report
	for _, room := range story.Rooms {
		if room != nil {
			rep.Rooms = append(rep.Rooms, VerifyRoom(story, room))
		}
	}
	return rep
}

// VerifyRoom compiles and evaluates every non-empty condition reachable from
// room (global, room and item commands) against a freshly seeded store, with
// "x" for {arg}, {id} and {name}. Failures are collected, never returned as
// an error.
func VerifyRoom(story *types.Story, room *types.Room) RoomReport {
	rep := RoomReport{ID: room.ID, Name: room.Name}
	store := state.Seed(story, room)
	ctx := template.Context{Args: "x", PlayerID: "x", PlayerName: "x"}

	check := func(cmds []*types.Command) {
		for _, c := range cmds {
			if c == nil {
				continue
			}
			for _, a := range c.Actions {
				if a == nil || strings.TrimSpace(a.Condition) == "" {
					continue
				}
				if _, err := expr.Evaluate(a.Condition, store, ctx); err != nil {
					rep.Failures = append(rep.Failures, Failure{Condition: a.Condition, Err: err})
				}
			}
		}
	}
	check(story.Commands)
	check(room.Commands)
	for _, it := range room.Items {
		if it != nil {
			check(it.Commands)
		}
	}
	return rep
}
