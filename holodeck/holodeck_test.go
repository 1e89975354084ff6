package holodeck

import (
	"strings"
	"testing"

	"github.com/nathoo/holoroom/engine/events"
	"github.com/nathoo/holoroom/loader"
	"github.com/nathoo/holoroom/types"
)

func testStory(t *testing.T) *types.Story {
	t.Helper()
	story := &types.Story{
		ID:                  "test",
		Vars:                map[string]any{"weather": "rain"},
		CommandDescriptions: map[string]string{"look": "Look around", "go": "Walk somewhere"},
		Commands: []*types.Command{{
			Name: "look",
			Actions: []*types.Action{
				{User: "You see {name}'s {room.state.label}.", Room: "{name} looks around."},
			},
		}},
		Rooms: []*types.Room{
			{
				ID:    "foyer",
				Name:  "The Foyer",
				Exits: map[string]string{"N": "A heavy oak door."},
				State: map[string]any{"label": "foyer", "visits": 0},
				Commands: []*types.Command{
					{Name: "go", Actions: []*types.Action{{User: "Down you go.", Do: []string{"teleportAll cellar"}}}},
					{Name: "count", Actions: []*types.Action{{User: "Counted.", Do: []string{"set room.state.visits = 1"}}}},
				},
				Items: []*types.Item{{Name: "brass lamp"}},
			},
			{
				ID:    "cellar",
				Name:  "The Cellar",
				State: map[string]any{"label": "cellar"},
			},
		},
	}
	if _, err := loader.Finalize(story); err != nil {
		t.Fatal(err)
	}
	return story
}

func newTestHolodeck(t *testing.T, groups ...string) (*Holodeck, *events.Recorder) {
	t.Helper()
	rec := &events.Recorder{}
	h, err := New(testStory(t), groups, Options{Sink: rec})
	if err != nil {
		t.Fatal(err)
	}
	return h, rec
}

// selfTexts returns the Self text of every player event sent by id.
func selfTexts(evs []any, id string) []string {
	var out []string
	for _, e := range evs {
		if p, ok := e.(events.Player); ok && p.SenderID == id && p.Self != "" {
			out = append(out, p.Self)
		}
	}
	return out
}

func locations(evs []any) []events.Location {
	var out []events.Location
	for _, e := range evs {
		if l, ok := e.(events.Location); ok {
			out = append(out, l)
		}
	}
	return out
}

func TestGroupFor(t *testing.T) {
	tests := []struct {
		id, want string
	}{
		{"facebook:123", "fbtwitter"},
		{"twitter:abc", "fbtwitter"},
		{"story:colab:team1:7", "story:colab:team1"},
		{"story:colab:a:b:9", "story:colab:a:b"},
		{"github:99", "default"},
		{"", "default"},
	}
	for _, tt := range tests {
		if got := GroupFor(tt.id); got != tt.want {
			t.Errorf("GroupFor(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(&types.Story{}, nil, Options{}); err == nil {
		t.Error("expected error for story without rooms")
	}
	if _, err := New(testStory(t), nil, Options{StartRoom: "attic"}); err == nil {
		t.Error("expected error for unknown start room")
	}
}

func TestAddPlayer_SendsLocationThenLook(t *testing.T) {
	h, rec := newTestHolodeck(t, "default")
	h.AddPlayer("github:1", "Ann")

	evs := rec.Events()
	if len(evs) != 2 {
		t.Fatalf("events = %+v", evs)
	}
	loc, ok := evs[0].(events.Location)
	if !ok {
		t.Fatalf("first event = %T, want Location", evs[0])
	}
	if loc.RoomID != "foyer" || loc.Name != "The Foyer" || loc.PlayerID != "github:1" {
		t.Errorf("location = %+v", loc)
	}
	p := evs[1].(events.Player)
	if p.Self != "You see Ann's foyer." || p.Others != "Ann looks around." {
		t.Errorf("look = %+v", p)
	}
	if got := h.UserName("github:1"); got != "Ann" {
		t.Errorf("UserName = %q", got)
	}
}

func TestLocation(t *testing.T) {
	h, _ := newTestHolodeck(t)
	loc := h.Location("p", h.story.Rooms[0])

	want := map[string]string{
		"N": "A heavy oak door.",
		"S": "Nothing over here either...",
		"E": "Still no sign of an exit...",
		"W": "Yet another direction with no exit..",
	}
	for k, v := range want {
		if loc.Exits[k] != v {
			t.Errorf("exit %s = %q, want %q", k, loc.Exits[k], v)
		}
	}
	if loc.Commands["/look"] != "Look around" || loc.Commands["/go"] != "Walk somewhere" {
		t.Errorf("commands = %v", loc.Commands)
	}
	if loc.Description != "" || len(loc.Objects) != 0 || len(loc.Inventory) != 0 {
		t.Errorf("location = %+v", loc)
	}
	if loc.Objects == nil || loc.Inventory == nil {
		t.Error("objects and inventory should be empty, not nil")
	}
}

func TestRemovePlayer(t *testing.T) {
	h, _ := newTestHolodeck(t)
	h.AddPlayer("a", "A")
	h.AddPlayer("b", "B")
	h.RemovePlayer("a")

	if got := h.Members("b"); len(got) != 1 || got[0] != "b" {
		t.Errorf("members = %v", got)
	}
	if h.UserName("a") != "" {
		t.Error("removed player should have no name")
	}
}

func TestTeleport_MovesWholeGroup(t *testing.T) {
	h, rec := newTestHolodeck(t)
	h.AddPlayer("a", "Ann")
	h.AddPlayer("b", "Bob")
	h.AddPlayer("facebook:1", "Fay")
	rec.Drain()

	h.Command("a", "go")

	evs := rec.Drain()
	if got := selfTexts(evs, "a"); len(got) < 1 || got[0] != "Down you go." {
		t.Fatalf("a texts = %v", got)
	}
	locs := locations(evs)
	if len(locs) != 2 || locs[0].PlayerID != "a" || locs[1].PlayerID != "b" {
		t.Fatalf("locations = %+v", locs)
	}
	for _, l := range locs {
		if l.RoomID != "cellar" {
			t.Errorf("location room = %q", l.RoomID)
		}
	}
	if got := selfTexts(evs, "b"); len(got) != 1 || got[0] != "You see Bob's cellar." {
		t.Errorf("b texts = %v", got)
	}
	if h.ActiveRoom("a").ID != "cellar" {
		t.Errorf("default group room = %q", h.ActiveRoom("a").ID)
	}
	if h.ActiveRoom("facebook:1").ID != "foyer" {
		t.Errorf("fbtwitter group moved to %q", h.ActiveRoom("facebook:1").ID)
	}
}

func TestSwitchRoom_Unknown(t *testing.T) {
	h, rec := newTestHolodeck(t)
	h.AddPlayer("a", "Ann")
	rec.Drain()

	h.SwitchRoom("a", "attic")
	if evs := rec.Drain(); len(evs) != 0 {
		t.Errorf("events = %+v", evs)
	}
	if h.ActiveRoom("a").ID != "foyer" {
		t.Errorf("room = %q", h.ActiveRoom("a").ID)
	}
}

func TestGroupsHaveSeparateState(t *testing.T) {
	h, rec := newTestHolodeck(t, "default", "fbtwitter")
	h.Command("a", "count")
	rec.Drain()

	h.Command("a", "ydebug state")
	h.Command("twitter:1", "ydebug state")
	evs := rec.Drain()

	if got := selfTexts(evs, "a"); len(got) != 1 || !strings.Contains(got[0], "* **room.state.visits** -> 1\n") {
		t.Errorf("default state = %v", got)
	}
	if got := selfTexts(evs, "twitter:1"); len(got) != 1 || !strings.Contains(got[0], "* **room.state.visits** -> 0\n") {
		t.Errorf("fbtwitter state = %v", got)
	}
	if g := h.Groups(); len(g) != 2 {
		t.Errorf("groups = %v", g)
	}
}

func TestDebugCommands(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"commands", "ydebug commands",
			"DEBUG: I know the following commands\n* **count**\n* **go**\n* **look**\n"},
		{"items", "YDEBUG items", "DEBUG: I know the following items in this room\n* **brass lamp**\n"},
		{"state", "ydebug state",
			"DEBUG: I know the following state vars\n" +
				"* **room.state.label** -> foyer\n" +
				"* **room.state.visits** -> 0\n" +
				"* **weather** -> rain\n"},
		{"actionmap", "ydebug actionmap", "DEBUG: actionmap currently has 0 entries."},
		{"teleport unknown", "ydebug teleport attic",
			"DEBUG: teleport requested for roomid attic known rooms [foyer, cellar]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, rec := newTestHolodeck(t)
			h.Command("a", tt.in)
			got := selfTexts(rec.Events(), "a")
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDebugTeleport(t *testing.T) {
	h, rec := newTestHolodeck(t)
	h.AddPlayer("a", "Ann")
	rec.Drain()

	h.Command("a", "ydebug teleport cellar")
	evs := rec.Drain()
	got := selfTexts(evs, "a")
	if len(got) != 2 || got[0] != "DEBUG: loading holodeck program with id cellar" {
		t.Fatalf("texts = %v", got)
	}
	if locs := locations(evs); len(locs) != 1 || locs[0].RoomID != "cellar" {
		t.Errorf("locations = %+v", locs)
	}
}

func TestCommand_ActionMapGrowsAfterDispatch(t *testing.T) {
	h, rec := newTestHolodeck(t)
	h.Command("a", "count")
	rec.Drain()
	h.Command("a", "ydebug actionmap")
	if got := selfTexts(rec.Events(), "a"); len(got) != 1 || got[0] != "DEBUG: actionmap currently has 1 entries." {
		t.Errorf("texts = %v", got)
	}
}

func TestCommand_Unknown(t *testing.T) {
	h, rec := newTestHolodeck(t)
	h.Command("a", "dance wildly")
	got := selfTexts(rec.Events(), "a")
	if len(got) != 1 || got[0] != "I'm sorry, I don't understand '/dance wildly'" {
		t.Errorf("texts = %v", got)
	}
}

type switchCounter struct{ rooms []string }

func (s *switchCounter) ObserveRoomSwitch(_, room string) { s.rooms = append(s.rooms, room) }

func TestSwitchObserver(t *testing.T) {
	sc := &switchCounter{}
	h, err := New(testStory(t), nil, Options{Switches: sc})
	if err != nil {
		t.Fatal(err)
	}
	h.Command("a", "go")
	if len(sc.rooms) != 1 || sc.rooms[0] != "cellar" {
		t.Errorf("switches = %v", sc.rooms)
	}
}

func TestNew_NumbersUnloadedStory(t *testing.T) {
	a, b := &types.Action{User: "a"}, &types.Action{User: "b"}
	story := &types.Story{Rooms: []*types.Room{{ID: "r", Commands: []*types.Command{
		{Name: "one", Actions: []*types.Action{a}},
		{Name: "two", Actions: []*types.Action{b}},
	}}}}
	if _, err := New(story, nil, Options{}); err != nil {
		t.Fatal(err)
	}
	if a.Ordinal != 1 || b.Ordinal != 2 {
		t.Errorf("ordinals = %d, %d, want 1, 2", a.Ordinal, b.Ordinal)
	}
}
