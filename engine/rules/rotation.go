package rules

import "github.com/nathoo/holoroom/types"

// SetID identifies an ordered list of candidate actions by their load-time
// ordinals.
type SetID []int

// IdentityOf returns the SetID of actions.
func IdentityOf(actions []*types.Action) SetID {
	id := make(SetID, len(actions))
	for i, a := range actions {
		id[i] = a.Ordinal
	}
	return id
}

// Rotation remembers, per SetID, which member of a tie fires next. Sets are
// stored in a trie keyed by ordinal so identities need no hashing or string
// building.
//
// A Rotation is not safe for concurrent use.
type Rotation struct {
	root node
	sets int
}

type node struct {
	children map[int]*node
	seen     bool
	counter  int
}

// NewRotation returns an empty rotation table.
func NewRotation() *Rotation {
	return &Rotation{}
}

// Pick selects the next action from candidates and advances the counter for
// their SetID. It returns nil for an empty list.
func (r *Rotation) Pick(candidates []*types.Action) *types.Action {
	if len(candidates) == 0 {
		return nil
	}
	return candidates[r.Next(IdentityOf(candidates), len(candidates))]
}

// Next returns the index to use for id given size candidates, then stores
// index+1. A stored counter past the end resets to 0 rather than wrapping.
func (r *Rotation) Next(id SetID, size int) int {
	n := r.lookup(id)
	if !n.seen {
		n.seen = true
		n.counter = 0
		r.sets++
	}
	i := n.counter
	if i > size-1 {
		i = 0
	}
	n.counter = i + 1
	return i
}

// Peek returns the stored counter for id without advancing it.
func (r *Rotation) Peek(id SetID) (int, bool) {
	n := &r.root
	for _, ord := range id {
		next, ok := n.children[ord]
		if !ok {
			return 0, false
		}
		n = next
	}
	return n.counter, n.seen
}

// Len returns the number of distinct sets seen so far.
func (r *Rotation) Len() int { return r.sets }

func (r *Rotation) lookup(id SetID) *node {
	n := &r.root
	for _, ord := range id {
		if n.children == nil {
			n.children = map[int]*node{}
		}
		next, ok := n.children[ord]
		if !ok {
			next = &node{}
			n.children[ord] = next
		}
		n = next
	}
	return n
}
