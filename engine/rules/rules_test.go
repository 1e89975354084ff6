package rules

import (
	"errors"
	"testing"

	"github.com/nathoo/holoroom/types"
)

func actions(conds ...string) []*types.Action {
	out := make([]*types.Action, len(conds))
	for i, c := range conds {
		out[i] = &types.Action{Condition: c, Ordinal: i + 1}
	}
	return out
}

func ordinals(as []*types.Action) []int {
	var out []int
	for _, a := range as {
		out = append(out, a.Ordinal)
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// truthy treats "yes" as true and anything else as false.
func truthy(cond string) (bool, error) { return cond == "yes", nil }

func TestCandidates(t *testing.T) {
	tests := []struct {
		name  string
		conds []string
		want  []int
	}{
		{"empty condition always qualifies", []string{"", "  "}, []int{1, 2}},
		{"true condition qualifies", []string{"yes", "no"}, []int{1}},
		{"unmatched ignored when something matched", []string{"unmatched", "yes"}, []int{2}},
		{"unmatched used when nothing matched", []string{"no", "unmatched", " unmatched "}, []int{2, 3}},
		{"nothing at all", []string{"no", "no"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Candidates(actions(tt.conds...), truthy)
			if err != nil {
				t.Fatal(err)
			}
			if !equalInts(ordinals(got), tt.want) {
				t.Errorf("Candidates = %v, want %v", ordinals(got), tt.want)
			}
		})
	}
}

func TestCandidates_EvaluatorNotCalledForSpecialConditions(t *testing.T) {
	calls := 0
	eval := func(string) (bool, error) { calls++; return true, nil }
	if _, err := Candidates(actions("", "unmatched"), eval); err != nil {
		t.Fatal(err)
	}
	if calls != 0 {
		t.Errorf("evaluator called %d times, want 0", calls)
	}
}

func TestCandidates_ErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	eval := func(string) (bool, error) { return false, boom }
	got, err := Candidates(actions("", "bad==", ""), eval)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if got != nil {
		t.Errorf("candidates = %v, want nil on error", ordinals(got))
	}
}

func TestRotation_CyclesInOrder(t *testing.T) {
	r := NewRotation()
	cands := actions("", "", "")

	var got []int
	for i := 0; i < 4; i++ {
		got = append(got, r.Pick(cands).Ordinal)
	}
	if !equalInts(got, []int{1, 2, 3, 1}) {
		t.Errorf("picks = %v, want [1 2 3 1]", got)
	}
}

func TestRotation_SetsAreIndependent(t *testing.T) {
	r := NewRotation()
	ab := actions("", "")
	b := ab[1:]

	if got := r.Pick(ab).Ordinal; got != 1 {
		t.Errorf("first pick from {1,2} = %d", got)
	}
	if got := r.Pick(b).Ordinal; got != 2 {
		t.Errorf("first pick from {2} = %d", got)
	}
	if got := r.Pick(ab).Ordinal; got != 2 {
		t.Errorf("second pick from {1,2} = %d", got)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestRotation_ResetNotModulo(t *testing.T) {
	r := NewRotation()
	id := SetID{7, 8, 9}

	// Advance the counter to 3 with a set of size 3.
	for i := 0; i < 3; i++ {
		r.Next(id, 3)
	}
	if c, _ := r.Peek(id); c != 3 {
		t.Fatalf("counter = %d, want 3", c)
	}

	// Same identity seen with a smaller size: the stored counter (3) is out of
	// range, so selection resets to 0. Modulo would have picked 3%2 == 1.
	if got := r.Next(id, 2); got != 0 {
		t.Errorf("Next with shrunken size = %d, want 0", got)
	}
	if c, _ := r.Peek(id); c != 1 {
		t.Errorf("counter after reset = %d, want 1", c)
	}

	// A counter equal to the size also resets: 5 with size 5 after five calls.
	id2 := SetID{1}
	r.Next(id2, 1)
	if got := r.Next(id2, 1); got != 0 {
		t.Errorf("single-member set = %d, want 0", got)
	}
}

func TestRotation_EmptyPick(t *testing.T) {
	if got := NewRotation().Pick(nil); got != nil {
		t.Errorf("Pick(nil) = %v, want nil", got)
	}
}

func TestAssignOrdinals(t *testing.T) {
	global := &types.Action{}
	kept := &types.Action{Ordinal: 7}
	roomA := &types.Action{}
	itemA := &types.Action{}
	story := &types.Story{
		Commands: []*types.Command{{Name: "look", Actions: []*types.Action{global, kept}}},
		Rooms: []*types.Room{{
			ID:       "r",
			Commands: []*types.Command{nil, {Name: "go", Actions: []*types.Action{roomA, nil}}},
			Items: []*types.Item{{Name: "lamp", Commands: []*types.Command{
				{Name: "take", Actions: []*types.Action{itemA}},
			}}},
		}},
	}

	AssignOrdinals(story)
	got := ordinals([]*types.Action{global, kept, roomA, itemA})
	if want := []int{8, 7, 9, 10}; !equalInts(got, want) {
		t.Errorf("ordinals = %v, want %v", got, want)
	}

	// A numbered story is left alone.
	AssignOrdinals(story)
	if got2 := ordinals([]*types.Action{global, kept, roomA, itemA}); !equalInts(got2, got) {
		t.Errorf("renumbered to %v", got2)
	}
	AssignOrdinals(nil)
}
