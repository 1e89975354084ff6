// Package types defines the shared story data structures for the holoroom engine.
// This package contains only type definitions, no logic and no methods.
package types

// Action is one authored response to a command. A nil or empty Condition
// always applies; the literal condition "unmatched" marks a fallback.
type Action struct {
	Condition string   `yaml:"condition"`
	User      string   `yaml:"user"` // text sent only to the acting player
	Room      string   `yaml:"room"` // text broadcast to everyone else
	Do        []string `yaml:"do"`

	// Ordinal is assigned once at load time and never changes. It is the
	// action's identity for rotation bookkeeping.
	Ordinal int `yaml:"-"`
}

// Command is a named verb with optional aliases and its ordered actions.
type Command struct {
	Name    string    `yaml:"name"`
	Aliases []string  `yaml:"aliases"`
	Actions []*Action `yaml:"actions"`
}

// Item is an object in a room that can carry its own state and commands.
type Item struct {
	Name     string         `yaml:"name"`
	Aliases  []string       `yaml:"aliases"`
	State    map[string]any `yaml:"state"`
	Commands []*Command     `yaml:"commands"`
}

// Room is a single scripted location.
type Room struct {
	ID       string            `yaml:"id"`
	Name     string            `yaml:"name"`
	Exits    map[string]string `yaml:"exits"` // direction → description
	State    map[string]any    `yaml:"state"`
	Commands []*Command        `yaml:"commands"`
	Items    []*Item           `yaml:"items"`
}

// Story is a complete loaded story document.
type Story struct {
	ID                  string            `yaml:"id"`
	Vars                map[string]any    `yaml:"vars"`
	Commands            []*Command        `yaml:"commands"`
	CommandDescriptions map[string]string `yaml:"commanddescriptions"`
	Rooms               []*Room           `yaml:"rooms"`
}
