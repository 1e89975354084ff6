// Package tui provides a Bubble Tea terminal UI for a local holoroom session.
package tui

import "strings"

// History keeps the room commands typed this session for Up/Down recall.
// Front-end commands such as /quit and repeat requests (again, g) are never
// recorded, so recall only walks commands that reach the holodeck.
type History struct {
	entries []string
	max     int
	cursor  int // -1 = not navigating, 0..len-1 = position in entries
	skip    map[string]bool
}

// NewHistory creates a history holding at most max entries. Lines whose
// first word (case-insensitive) is in skip are not recorded.
func NewHistory(max int, skip ...string) *History {
	h := &History{
		entries: make([]string, 0, max),
		max:     max,
		cursor:  -1,
		skip:    map[string]bool{},
	}
	for _, s := range skip {
		h.skip[strings.ToLower(s)] = true
	}
	return h
}

// Push records cmd with its whitespace collapsed. Blank lines, skipped
// commands and consecutive duplicates are dropped.
func (h *History) Push(cmd string) {
	words := strings.Fields(cmd)
	if len(words) == 0 || h.skip[strings.ToLower(words[0])] {
		return
	}
	cmd = strings.Join(words, " ")
	if len(h.entries) > 0 && h.entries[len(h.entries)-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.max {
		h.entries = h.entries[1:]
	}
}

// Prev steps to the older entry, staying on the oldest.
func (h *History) Prev() (string, bool) {
	if len(h.entries) == 0 {
		return "", false
	}
	if h.cursor == -1 {
		h.cursor = len(h.entries) - 1
	} else if h.cursor > 0 {
		h.cursor--
	}
	return h.entries[h.cursor], true
}

// Next steps to the newer entry. It returns false once past the newest,
// meaning the input line should be cleared.
func (h *History) Next() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= len(h.entries) {
		h.cursor = -1
		return "", false
	}
	return h.entries[h.cursor], true
}

// ResetCursor stops navigation.
func (h *History) ResetCursor() {
	h.cursor = -1
}
