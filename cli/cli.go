// Package cli provides the plain line-oriented front end: terminal I/O,
// event rendering, and meta-command dispatch for a local holoroom session.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/nathoo/holoroom/engine/events"
	"github.com/nathoo/holoroom/types"
)

// LocalPlayer is the player id used by the local front ends.
const LocalPlayer = "local:1"

// Deck is the part of the holodeck a local front end drives.
type Deck interface {
	AddPlayer(playerID, name string)
	Command(playerID, text string)
	ActiveRoom(playerID string) *types.Room
	Location(playerID string, room *types.Room) events.Location
}

// CLI handles terminal interaction with the player.
type CLI struct {
	Deck      Deck
	Events    *events.Recorder
	PlayerID  string
	Name      string
	In        io.Reader
	Out       io.Writer
	Trace     bool
	EchoInput bool   // echo each input line after the prompt (for script playback)
	lastCmd   string // for "again"/"g" repeat
}

// New creates a CLI for deck. rec must be the sink the deck was built with.
func New(deck Deck, rec *events.Recorder, name string) *CLI {
	return &CLI{
		Deck:     deck,
		Events:   rec,
		PlayerID: LocalPlayer,
		Name:     name,
		In:       os.Stdin,
		Out:      os.Stdout,
	}
}

// Run joins the player to the holodeck, then loops: prompt → input →
// command → output.
func (c *CLI) Run() {
	c.Deck.AddPlayer(c.PlayerID, c.Name)
	c.flush()

	scanner := bufio.NewScanner(c.In)
	for {
		c.print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		// Skip comment lines (for script files).
		if strings.HasPrefix(input, "#") {
			continue
		}
		if c.EchoInput {
			c.printLine(input)
		}

		if strings.HasPrefix(input, "/") {
			quit, handled := c.handleMeta(input)
			if quit {
				return
			}
			if handled {
				continue
			}
			input = strings.TrimPrefix(input, "/")
		}

		// "again" / "g" repeats the last game command.
		lower := strings.ToLower(input)
		if lower == "again" || lower == "g" {
			if c.lastCmd == "" {
				c.printLine("Nothing to repeat.")
				continue
			}
			input = c.lastCmd
		} else {
			c.lastCmd = input
		}

		c.Deck.Command(c.PlayerID, input)
		c.flush()
	}
}

// handleMeta dispatches meta-commands. quit reports that the session should
// end; handled is false for slash commands meant for the room.
func (c *CLI) handleMeta(input string) (quit, handled bool) {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/quit", "/exit":
		c.printSystem("Goodbye.")
		return true, true

	case "/help":
		c.cmdHelp()

	case "/state":
		c.Deck.Command(c.PlayerID, "ydebug state")
		c.flush()

	case "/trace":
		c.Trace = !c.Trace
		if c.Trace {
			c.printSystem("Trace output enabled.")
		} else {
			c.printSystem("Trace output disabled.")
		}

	default:
		return false, false
	}
	return false, true
}

func (c *CLI) cmdHelp() {
	help := []string{
		"System:",
		"  /quit         — Exit",
		"  /help         — Show this help",
		"  /state        — Debug: dump the room's state vars",
		"  /trace        — Toggle event trace output",
		"",
		"Room commands:",
	}
	for _, line := range help {
		c.printLine(line)
	}
	for _, line := range CommandHelp(c.Deck, c.PlayerID) {
		c.printLine("  " + line)
	}
	c.printLine("  again (g)     — Repeat your last command")
}

// CommandHelp lists the described commands of the player's current room as
// "name — description" lines, sorted by name.
func CommandHelp(deck Deck, playerID string) []string {
	loc := deck.Location(playerID, deck.ActiveRoom(playerID))
	names := make([]string, 0, len(loc.Commands))
	for k := range loc.Commands {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, k := range names {
		out = append(out, fmt.Sprintf("%-13s — %s", strings.TrimPrefix(k, "/"), loc.Commands[k]))
	}
	return out
}

// flush prints everything the deck emitted since the last flush.
func (c *CLI) flush() {
	evs := c.Events.Drain()
	for _, e := range evs {
		for _, line := range events.Lines(e, c.PlayerID) {
			c.printLine(line)
		}
	}
	if c.Trace {
		c.printTrace(evs)
	}
}

func (c *CLI) printTrace(evs []any) {
	if len(evs) == 0 {
		return
	}
	c.printSystem(fmt.Sprintf("[trace] Events: %d", len(evs)))
	for _, e := range evs {
		c.printSystem("[trace]   " + Describe(e))
	}
}

// Describe summarizes an event for trace output.
func Describe(e any) string {
	switch ev := e.(type) {
	case events.Player:
		return fmt.Sprintf("player from=%s self=%q others=%q", ev.SenderID, ev.Self, ev.Others)
	case events.Location:
		return fmt.Sprintf("location to=%s room=%s", ev.PlayerID, ev.RoomID)
	case events.Exit:
		return fmt.Sprintf("exit to=%s exit=%s", ev.PlayerID, ev.ExitID)
	}
	return fmt.Sprintf("%T", e)
}

func (c *CLI) printLine(text string) {
	fmt.Fprintln(c.Out, text)
}

func (c *CLI) print(text string) {
	fmt.Fprint(c.Out, text)
}

func (c *CLI) printSystem(text string) {
	fmt.Fprintf(c.Out, "[%s]\n", text)
}
