package loader

import (
	"fmt"

	"github.com/nathoo/holoroom/types"
	lua "github.com/yuin/gopher-lua"
)

// rawRoom holds a room table before compilation.
type rawRoom struct {
	id    string
	table *lua.LTable
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	switch v := tbl.RawGetString(key).(type) {
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return v.String()
	}
	return ""
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	if t, ok := tbl.RawGetString(key).(*lua.LTable); ok {
		return t
	}
	return nil
}

// toGoValue converts a scalar Lua value to a Go value. Integral numbers become
// int so they render without a fractional part.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case lua.LString:
		return string(val)
	default:
		return nil
	}
}

// tableToStringMap converts a Lua table to a map[string]string.
func tableToStringMap(tbl *lua.LTable) map[string]string {
	if tbl == nil {
		return nil
	}
	m := map[string]string{}
	tbl.ForEach(func(k, v lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			m[string(ks)] = v.String()
		}
	})
	return m
}

// tableToAnyMap converts a Lua table of scalars to a map[string]any.
func tableToAnyMap(tbl *lua.LTable) (map[string]any, error) {
	if tbl == nil {
		return nil, nil
	}
	m := map[string]any{}
	var err error
	tbl.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok || err != nil {
			return
		}
		gv := toGoValue(v)
		if gv == nil {
			err = fmt.Errorf("state %q: unsupported value of type %s", string(ks), v.Type())
			return
		}
		m[string(ks)] = gv
	})
	return m, err
}

// stringList converts the array part of a Lua table to strings.
func stringList(tbl *lua.LTable) []string {
	if tbl == nil {
		return nil
	}
	var out []string
	for i := 1; i <= tbl.MaxN(); i++ {
		out = append(out, tbl.RawGetInt(i).String())
	}
	return out
}

// tables returns the array part of tbl, keeping only tables.
func tables(tbl *lua.LTable) []*lua.LTable {
	if tbl == nil {
		return nil
	}
	var out []*lua.LTable
	for i := 1; i <= tbl.MaxN(); i++ {
		if t, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			out = append(out, t)
		}
	}
	return out
}

// compile converts all collected Lua data into a Story.
func compile(coll *collector) (*types.Story, error) {
	story := &types.Story{}

	if coll.story != nil {
		story.ID = getString(coll.story, "id")
		vars, err := tableToAnyMap(getTable(coll.story, "vars"))
		if err != nil {
			return nil, fmt.Errorf("vars: %w", err)
		}
		story.Vars = vars
		story.CommandDescriptions = tableToStringMap(getTable(coll.story, "commanddescriptions"))
		cmds, err := compileCommands(getTable(coll.story, "commands"))
		if err != nil {
			return nil, err
		}
		story.Commands = cmds
	}

	for _, tbl := range coll.commands {
		cmd, err := compileCommand(tbl)
		if err != nil {
			return nil, err
		}
		story.Commands = append(story.Commands, cmd)
	}

	for _, raw := range coll.rooms {
		room, err := compileRoom(raw)
		if err != nil {
			return nil, fmt.Errorf("compiling room %s: %w", raw.id, err)
		}
		story.Rooms = append(story.Rooms, room)
	}
	if len(story.Rooms) == 0 {
		return nil, fmt.Errorf("no Room definitions found")
	}
	return story, nil
}

func compileRoom(raw rawRoom) (*types.Room, error) {
	room := &types.Room{
		ID:    raw.id,
		Name:  getString(raw.table, "name"),
		Exits: tableToStringMap(getTable(raw.table, "exits")),
	}
	state, err := tableToAnyMap(getTable(raw.table, "state"))
	if err != nil {
		return nil, err
	}
	room.State = state

	if room.Commands, err = compileCommands(getTable(raw.table, "commands")); err != nil {
		return nil, err
	}
	for _, t := range tables(getTable(raw.table, "items")) {
		it, err := compileItem(t)
		if err != nil {
			return nil, err
		}
		room.Items = append(room.Items, it)
	}
	return room, nil
}

func compileItem(tbl *lua.LTable) (*types.Item, error) {
	if getString(tbl, kindKey) != "item" {
		return nil, fmt.Errorf("items must be declared with Item \"name\" {...}")
	}
	it := &types.Item{
		Name:    getString(tbl, "name"),
		Aliases: stringList(getTable(tbl, "aliases")),
	}
	var err error
	if it.State, err = tableToAnyMap(getTable(tbl, "state")); err != nil {
		return nil, fmt.Errorf("item %s: %w", it.Name, err)
	}
	if it.Commands, err = compileCommands(getTable(tbl, "commands")); err != nil {
		return nil, fmt.Errorf("item %s: %w", it.Name, err)
	}
	return it, nil
}

func compileCommands(tbl *lua.LTable) ([]*types.Command, error) {
	var out []*types.Command
	for _, t := range tables(tbl) {
		c, err := compileCommand(t)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// compileCommand reads a Command table. Actions come from an explicit
// actions = {...} field or, if absent, the table's array part.
func compileCommand(tbl *lua.LTable) (*types.Command, error) {
	if getString(tbl, kindKey) != "command" {
		return nil, fmt.Errorf("commands must be declared with Command \"name\" {...}")
	}
	cmd := &types.Command{
		Name:    getString(tbl, "name"),
		Aliases: stringList(getTable(tbl, "aliases")),
	}
	src := getTable(tbl, "actions")
	if src == nil {
		src = tbl
	}
	for _, t := range tables(src) {
		cmd.Actions = append(cmd.Actions, compileAction(t))
	}
	return cmd, nil
}

func compileAction(tbl *lua.LTable) *types.Action {
	return &types.Action{
		Condition: getString(tbl, "condition"),
		User:      getString(tbl, "user"),
		Room:      getString(tbl, "room"),
		Do:        stringList(getTable(tbl, "do")),
	}
}
