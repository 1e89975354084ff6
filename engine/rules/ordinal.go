package rules

import "github.com/nathoo/holoroom/types"

// AssignOrdinals gives every action in story without an ordinal one greater
// than the highest ordinal already present, in document order: global
// commands, then each room's commands followed by its items' commands.
// Existing ordinals are kept. A fully numbered story is only read, so
// concurrent calls on it are safe.
func AssignOrdinals(story *types.Story) {
	if story == nil {
		return
	}
	max, missing := 0, false
	eachAction(story, func(a *types.Action) {
		if a.Ordinal == 0 {
			missing = true
		}
		if a.Ordinal > max {
			max = a.Ordinal
		}
	})
	if !missing {
		return
	}
	eachAction(story, func(a *types.Action) {
		if a.Ordinal == 0 {
			max++
			a.Ordinal = max
		}
	})
}

func eachAction(story *types.Story, fn func(*types.Action)) {
	visit := func(cmds []*types.Command) {
		for _, c := range cmds {
			if c == nil {
				continue
			}
			for _, a := range c.Actions {
				if a != nil {
					fn(a)
				}
			}
		}
	}
	visit(story.Commands)
	for _, r := range story.Rooms {
		if r == nil {
			continue
		}
		visit(r.Commands)
		for _, it := range r.Items {
			if it != nil {
				visit(it.Commands)
			}
		}
	}
}
