package loader

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// kindKey tags tables produced by constructors so compile can tell a
// Command from an Item from a plain table.
const kindKey = "__kind"

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerConditionHelpers(L)
	registerInstructionHelpers(L)
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Story { id = "...", vars = {...}, commanddescriptions = {...}, commands = {...} }
	L.SetGlobal("Story", L.NewFunction(func(L *lua.LState) int {
		if coll.story != nil {
			L.RaiseError("Story declared twice")
		}
		coll.story = L.CheckTable(1)
		return 0
	}))

	// Global "name" { ... } declares a story-wide command outside the Story table.
	L.SetGlobal("Global", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			tbl := tagged(L, L.CheckTable(1), "command", name)
			coll.commands = append(coll.commands, tbl)
			return 0
		}))
		return 1
	}))

	// Room "id" { ... } — curried, registers the room.
	L.SetGlobal("Room", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(L.NewFunction(func(L *lua.LState) int {
			coll.rooms = append(coll.rooms, rawRoom{id: id, table: L.CheckTable(1)})
			return 0
		}))
		return 1
	}))

	// Command "name" { ... } and Item "name" { ... } return tagged tables for
	// use inside commands = {...} and items = {...}.
	for _, kind := range []string{"command", "item"} {
		global := strings.ToUpper(kind[:1]) + kind[1:]
		L.SetGlobal(global, L.NewFunction(func(L *lua.LState) int {
			name := L.CheckString(1)
			L.Push(L.NewFunction(func(L *lua.LState) int {
				L.Push(tagged(L, L.CheckTable(1), kind, name))
				return 1
			}))
			return 1
		}))
	}

	// Action { condition = "...", user = "...", room = "...", ["do"] = {...} }
	L.SetGlobal("Action", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		tbl.RawSetString(kindKey, lua.LString("action"))
		L.Push(tbl)
		return 1
	}))
}

func tagged(L *lua.LState, tbl *lua.LTable, kind, name string) *lua.LTable {
	if name == "" {
		L.RaiseError("%s name must not be empty", kind)
	}
	tbl.RawSetString(kindKey, lua.LString(kind))
	tbl.RawSetString("name", lua.LString(name))
	return tbl
}

// registerConditionHelpers exposes builders for condition strings. And/Or
// fold left to right, matching how conditions are evaluated, so only the
// first argument may itself be a compound condition.
func registerConditionHelpers(L *lua.LState) {
	L.SetGlobal("Unmatched", lua.LString("unmatched"))

	compare := func(op string) lua.LGFunction {
		return func(L *lua.LState) int {
			lhs := operand(L.CheckAny(1))
			rhs := operand(L.CheckAny(2))
			L.Push(lua.LString(lhs + op + rhs))
			return 1
		}
	}
	L.SetGlobal("Eq", L.NewFunction(compare("==")))
	L.SetGlobal("Ne", L.NewFunction(compare("!=")))

	join := func(op string) lua.LGFunction {
		return func(L *lua.LState) int {
			n := L.GetTop()
			if n < 2 {
				L.RaiseError("%s needs at least two conditions", strings.TrimSpace(op))
			}
			parts := make([]string, n)
			for i := 1; i <= n; i++ {
				s := L.CheckString(i)
				if i > 1 && (strings.Contains(s, "&&") || strings.Contains(s, "||")) {
					L.RaiseError("argument %d is compound; only the first argument may combine conditions", i)
				}
				parts[i-1] = s
			}
			L.Push(lua.LString(strings.Join(parts, op)))
			return 1
		}
	}
	L.SetGlobal("And", L.NewFunction(join(" && ")))
	L.SetGlobal("Or", L.NewFunction(join(" || ")))
}

// operand renders a Lua value as a condition operand, quoting it when it
// contains a space.
func operand(v lua.LValue) string {
	s := v.String()
	if !strings.ContainsAny(s, " \t") {
		return s
	}
	if strings.Contains(s, `"`) {
		return "'" + s + "'"
	}
	return `"` + s + `"`
}

func registerInstructionHelpers(L *lua.LState) {
	// Set("room.state.doorOpen", true) → "set room.state.doorOpen = true"
	L.SetGlobal("Set", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		val := L.CheckAny(2)
		L.Push(lua.LString("set " + key + " = " + val.String()))
		return 1
	}))

	// TeleportAll("cellar") → "teleportAll cellar"
	L.SetGlobal("TeleportAll", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString("teleportAll " + L.CheckString(1)))
		return 1
	}))
}
