package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/nathoo/holoroom/engine/events"
	"github.com/nathoo/holoroom/engine/expr"
	"github.com/nathoo/holoroom/types"
)

// testStory builds a small story: one room with a lamp, a door, and some
// global commands.
func testStory() (*types.Story, *types.Room) {
	room := &types.Room{
		ID:    "foyer",
		Name:  "Foyer",
		Exits: map[string]string{"N": "A heavy door."},
		State: map[string]any{"doorOpen": "false", "visits": 0},
		Commands: []*types.Command{
			{Name: "open", Actions: []*types.Action{
				{Condition: "room.state.doorOpen==false", User: "You open the door.", Room: "{name} opens the door.",
					Do: []string{"set room.state.doorOpen = true"}},
				{Condition: "room.state.doorOpen==true", User: "It is already open."},
			}},
			{Name: "go", Actions: []*types.Action{
				{Condition: "{arg}==north && room.state.doorOpen==true", User: "You step through.",
					Do: []string{"teleportAll cellar"}},
				{Condition: "unmatched", User: "You can't go that way."},
			}},
			{Name: "sing", Actions: []*types.Action{
				{User: "La."}, {User: "Lo."}, {User: "Li."},
			}},
			{Name: "broken", Actions: []*types.Action{
				{Condition: "room.state.doorOpen==", User: "never"},
			}},
			{Name: "ghost", Actions: []*types.Action{
				{Condition: "{missing}==x", User: "never"},
			}},
			{Name: "knock", Actions: []*types.Action{
				{Condition: "room.state.doorOpen==true", User: "Nobody answers."},
			}},
		},
		Items: []*types.Item{
			{
				Name:    "Brass Lamp",
				Aliases: []string{"lamp"},
				State:   map[string]any{"lit": "no"},
				Commands: []*types.Command{
					{Name: "take", Aliases: []string{"grab"}, Actions: []*types.Action{
						{User: "You take the lamp. {arg}"},
					}},
					{Name: "light", Actions: []*types.Action{
						{Condition: `"items.Brass Lamp.lit"==no`, User: "The lamp glows.",
							Do: []string{"set items.Brass Lamp.lit = yes"}},
						{Condition: "unmatched", User: "It's already lit."},
					}},
				},
			},
		},
	}
	story := &types.Story{
		Vars: map[string]any{"weather": "rain"},
		Commands: []*types.Command{
			{Name: "look", Aliases: []string{"examine", "l"}, Actions: []*types.Action{
				{User: "You are in the foyer. It is {weather}."},
			}},
			{Name: "take", Actions: []*types.Action{
				{User: "Take what? ({arg})"},
			}},
		},
		Rooms: []*types.Room{room},
	}
	return story, room
}

type fakeSwitcher struct{ rooms []string }

func (f *fakeSwitcher) SwitchRoom(_, room string) { f.rooms = append(f.rooms, room) }

type names map[string]string

func (n names) UserName(id string) string { return n[id] }

type countingObserver map[string]int

func (c countingObserver) ObserveCommand(_, outcome string) { c[outcome]++ }

func newTestEngine(t *testing.T) (*Engine, *events.Recorder, *fakeSwitcher) {
	t.Helper()
	story, room := testStory()
	rec := &events.Recorder{}
	sw := &fakeSwitcher{}
	eng := New(story, room, Options{
		Logger:   slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Sink:     rec,
		Switcher: sw,
		Names:    names{"p1": "Ada"},
	})
	return eng, rec, sw
}

func selfTexts(rec *events.Recorder) []string {
	var out []string
	for _, p := range rec.Players() {
		out = append(out, p.Self)
	}
	return out
}

func TestDispatch_Basic(t *testing.T) {
	eng, rec, _ := newTestEngine(t)

	res, err := eng.Dispatch("/look", "p1", "Ada")
	if err != nil {
		t.Fatal(err)
	}
	if res.Key != "look" || res.Args != "" {
		t.Errorf("Key/Args = %q/%q", res.Key, res.Args)
	}
	if got := selfTexts(rec); len(got) != 1 || got[0] != "You are in the foyer. It is rain." {
		t.Errorf("output = %q", got)
	}
}

func TestDispatch_Alias(t *testing.T) {
	eng, rec, _ := newTestEngine(t)

	for _, in := range []string{"/look", "/examine", "/L"} {
		if _, err := eng.Dispatch(in, "p1", "Ada"); err != nil {
			t.Errorf("%s: %v", in, err)
		}
	}
	got := selfTexts(rec)
	for i := 1; i < len(got); i++ {
		if got[i] != got[0] {
			t.Errorf("alias output %q differs from %q", got[i], got[0])
		}
	}
}

func TestDispatch_ItemQualified(t *testing.T) {
	tests := []struct {
		name  string
		input string
		key   string
		args  string
		self  string
	}{
		{"item alias", "/take lamp", "take:lamp", "", "You take the lamp. "},
		{"item name with space", "/take Brass Lamp now", "take:brass-lamp", "now", "You take the lamp. now"},
		{"lowercase item name with space", "/take brass lamp", "take:brass-lamp", "", "You take the lamp. "},
		{"upper case input", "/TAKE BRASS LAMP", "take:brass-lamp", "", "You take the lamp. "},
		{"command alias on item", "/grab lamp", "grab:lamp", "", "You take the lamp. "},
		{"fallback to bare command", "/take sword", "take", "sword", "Take what? (sword)"},
		{"bare command alone", "/take", "take", "", "Take what? ()"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, rec, _ := newTestEngine(t)
			res, err := eng.Dispatch(tt.input, "p1", "Ada")
			if err != nil {
				t.Fatal(err)
			}
			if res.Key != tt.key || res.Args != tt.args {
				t.Errorf("Key/Args = %q/%q, want %q/%q", res.Key, res.Args, tt.key, tt.args)
			}
			if got := selfTexts(rec); len(got) != 1 || got[0] != tt.self {
				t.Errorf("output = %q, want %q", got, tt.self)
			}
		})
	}
}

func TestDispatch_Unknown(t *testing.T) {
	eng, rec, _ := newTestEngine(t)

	_, err := eng.Dispatch("/dance wildly", "p1", "Ada")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("err = %v, want ErrUnknownCommand", err)
	}
	got := rec.Players()
	if len(got) != 1 || got[0].Self != "I'm sorry, I don't understand '/dance wildly'" || got[0].Others != "" {
		t.Errorf("reply = %+v", got)
	}
}

func TestDispatch_ConditionsAndSet(t *testing.T) {
	eng, rec, _ := newTestEngine(t)

	if _, err := eng.Dispatch("/open", "p1", "Ada"); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Dispatch("/open", "p1", "Ada"); err != nil {
		t.Fatal(err)
	}
	players := rec.Players()
	if len(players) != 2 {
		t.Fatalf("got %d events", len(players))
	}
	if players[0].Self != "You open the door." || players[0].Others != "Ada opens the door." {
		t.Errorf("first = %+v", players[0])
	}
	if players[1].Self != "It is already open." || players[1].Others != "" {
		t.Errorf("second = %+v", players[1])
	}
	if v, _ := eng.Store().Get("room.state.doorOpen"); v.String() != "true" {
		t.Errorf("doorOpen = %q", v.String())
	}
}

func TestDispatch_ItemStateWithSpaces(t *testing.T) {
	eng, rec, _ := newTestEngine(t)
	eng.Dispatch("/light lamp", "p1", "Ada")
	eng.Dispatch("/light lamp", "p1", "Ada")

	got := selfTexts(rec)
	want := []string{"The lamp glows.", "It's already lit."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestDispatch_UnmatchedFallback(t *testing.T) {
	eng, rec, sw := newTestEngine(t)

	eng.Dispatch("/go north", "p1", "Ada")
	if got := selfTexts(rec); got[0] != "You can't go that way." {
		t.Errorf("closed door = %q", got)
	}
	if len(sw.rooms) != 0 {
		t.Errorf("teleported through a closed door: %v", sw.rooms)
	}

	eng.Dispatch("/open", "p1", "Ada")
	eng.Dispatch("/go north", "p1", "Ada")
	if got := selfTexts(rec); got[2] != "You step through." {
		t.Errorf("open door = %q", got)
	}
	if len(sw.rooms) != 1 || sw.rooms[0] != "cellar" {
		t.Errorf("switch calls = %v", sw.rooms)
	}
}

type orderSink struct {
	events.Recorder
}

type orderSwitcher struct {
	sink  *orderSink
	seenN int
}

func (o *orderSwitcher) SwitchRoom(_, _ string) { o.seenN = len(o.sink.Events()) }

func TestDispatch_EmitsBeforeInstructions(t *testing.T) {
	story, room := testStory()
	sink := &orderSink{}
	sw := &orderSwitcher{sink: sink}
	eng := New(story, room, Options{Sink: sink, Switcher: sw})

	eng.Dispatch("/open", "p1", "Ada")
	eng.Dispatch("/go north", "p1", "Ada")

	if sw.seenN != 2 {
		t.Errorf("switcher saw %d events, want the step-through text already emitted (2)", sw.seenN)
	}
}

func TestDispatch_Rotation(t *testing.T) {
	eng, rec, _ := newTestEngine(t)
	for i := 0; i < 4; i++ {
		if _, err := eng.Dispatch("/sing", "p1", "Ada"); err != nil {
			t.Fatal(err)
		}
	}
	got := selfTexts(rec)
	want := []string{"La.", "Lo.", "Li.", "La."}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("rotation = %v, want %v", got, want)
	}
	if eng.Rotation().Len() != 1 {
		t.Errorf("rotation sets = %d, want 1", eng.Rotation().Len())
	}
}

func TestDispatch_RotationPerCommandWithoutLoader(t *testing.T) {
	room := &types.Room{ID: "stage", Commands: []*types.Command{
		{Name: "sing", Actions: []*types.Action{{User: "sing-A"}, {User: "sing-B"}}},
		{Name: "dance", Actions: []*types.Action{{User: "dance-A"}, {User: "dance-B"}}},
	}}
	story := &types.Story{Rooms: []*types.Room{room}}
	rec := &events.Recorder{}
	eng := New(story, room, Options{Sink: rec})

	for _, in := range []string{"/sing", "/dance", "/sing", "/dance"} {
		if _, err := eng.Dispatch(in, "p1", "Ada"); err != nil {
			t.Fatalf("%s: %v", in, err)
		}
	}
	want := []string{"sing-A", "dance-A", "sing-B", "dance-B"}
	if got := selfTexts(rec); strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("output = %v, want %v", got, want)
	}
	if eng.Rotation().Len() != 2 {
		t.Errorf("rotation sets = %d, want 2", eng.Rotation().Len())
	}
}

func TestDispatch_MalformedConditionAborts(t *testing.T) {
	eng, rec, _ := newTestEngine(t)

	_, err := eng.Dispatch("/broken", "p1", "Ada")
	if !errors.Is(err, expr.ErrMalformed) {
		t.Errorf("err = %v, want ErrMalformed", err)
	}
	if n := len(rec.Events()); n != 0 {
		t.Errorf("emitted %d events on parse failure", n)
	}

	_, err = eng.Dispatch("/ghost", "p1", "Ada")
	if !errors.Is(err, expr.ErrUnresolved) {
		t.Errorf("err = %v, want ErrUnresolved", err)
	}
	if n := len(rec.Events()); n != 0 {
		t.Errorf("emitted %d events on unresolved template", n)
	}
}

func TestDispatch_NoMatchingAction(t *testing.T) {
	eng, rec, _ := newTestEngine(t)

	_, err := eng.Dispatch("/knock", "p1", "Ada")
	if !errors.Is(err, ErrNoMatchingAction) {
		t.Fatalf("err = %v, want ErrNoMatchingAction", err)
	}
	if n := len(rec.Events()); n != 0 {
		t.Errorf("emitted %d events", n)
	}
}

func TestProcessRoomInput_SwallowsErrors(t *testing.T) {
	story, room := testStory()
	var logs bytes.Buffer
	rec := &events.Recorder{}
	eng := New(story, room, Options{Logger: slog.New(slog.NewTextHandler(&logs, nil)), Sink: rec})

	eng.ProcessRoomInput("/knock", "p1", "Ada")
	eng.ProcessRoomInput("/broken", "p1", "Ada")
	eng.ProcessRoomInput("hello everyone", "p1", "Ada")

	if n := len(rec.Events()); n != 0 {
		t.Errorf("emitted %d events", n)
	}
	out := logs.String()
	if !strings.Contains(out, "no matching actions") || !strings.Contains(out, "command aborted") {
		t.Errorf("logs = %s", out)
	}
}

func TestCommand_ResolvesName(t *testing.T) {
	eng, rec, _ := newTestEngine(t)
	eng.Command("p1", "open")

	got := rec.Players()
	if len(got) != 1 || got[0].Others != "Ada opens the door." {
		t.Errorf("events = %+v", got)
	}
}

func TestObserver(t *testing.T) {
	story, room := testStory()
	obs := countingObserver{}
	eng := New(story, room, Options{Observer: obs})

	eng.Dispatch("/look", "p1", "")
	eng.Dispatch("/nope", "p1", "")
	eng.Dispatch("/knock", "p1", "")
	eng.Dispatch("/broken", "p1", "")

	for _, o := range []string{OutcomeDispatched, OutcomeUnknown, OutcomeNoAction, OutcomeError} {
		if obs[o] != 1 {
			t.Errorf("outcome %s = %d, want 1", o, obs[o])
		}
	}
}

func TestNew_RegistryKeys(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	for _, key := range []string{"look", "examine", "l", "open", "take:brass-lamp", "take:lamp", "grab:lamp"} {
		if _, ok := eng.Registry().Lookup(key); !ok {
			t.Errorf("key %q not registered", key)
		}
	}
}
