package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderStatusBar produces a full-width inverted status line showing the
// current room, its described exits, and the command count.
func (m Model) renderStatusBar() string {
	room := m.deck.ActiveRoom(m.playerID)
	loc := m.deck.Location(m.playerID, room)

	name := loc.Name
	if name == "" {
		name = loc.RoomID
	}

	// Only the room's own exits; the defaults all say there is no exit.
	dirs := make([]string, 0, len(room.Exits))
	for dir := range room.Exits {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	exitStr := strings.Join(dirs, ",")
	if exitStr == "" {
		exitStr = "none"
	}

	left := fmt.Sprintf(" %s | Exits: %s", name, exitStr)
	right := fmt.Sprintf("%s | T:%d ", m.name, m.turns)
	if m.name == "" || lipgloss.Width(left)+lipgloss.Width(right)+2 >= m.width {
		right = fmt.Sprintf("T:%d ", m.turns)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
