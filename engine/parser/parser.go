// Package parser normalizes raw room input into lookup keys.
// Intentionally dumb: no NLP, just token splitting.
package parser

import (
	"strings"
)

// Input is one normalized command line.
type Input struct {
	Raw   string   // as typed, including the leading slash
	Text  string   // normalized text without the slash
	Words []string // Text split on single spaces
}

// Lookup is one registry key to try along with the args that go with it.
type Lookup struct {
	Key  string
	Args string
}

// Parse normalizes raw: whitespace is trimmed and collapsed, the result
// lowercased and the leading slash removed, then authored item names and
// aliases that contain spaces are hyphenated. Names match regardless of the
// case they were authored in.
func Parse(raw string, itemNames []string) Input {
	text := strings.ToLower(collapse(raw))
	text = Hyphenate(strings.TrimPrefix(text, "/"), lower(itemNames))
	in := Input{Raw: raw, Text: text}
	if text != "" {
		in.Words = strings.Split(text, " ")
	}
	return in
}

// Lookups returns the keys to try in order. A single word looks up the bare
// command with empty args. Two or more words try "cmd:item" first, with the
// remaining words as args, then the bare command with everything after the
// first word as args.
func (in Input) Lookups() []Lookup {
	switch len(in.Words) {
	case 0:
		return nil
	case 1:
		// Args stay empty rather than repeating the command word.
		return []Lookup{{Key: in.Words[0]}}
	}
	cmd, item := in.Words[0], in.Words[1]
	return []Lookup{
		{Key: cmd + ":" + item, Args: strings.Join(in.Words[2:], " ")},
		{Key: cmd, Args: strings.Join(in.Words[1:], " ")},
	}
}

// Hyphenate replaces every occurrence of a multi-word name in text with its
// hyphenated form.
func Hyphenate(text string, names []string) string {
	for _, n := range names {
		if strings.Contains(n, " ") {
			text = strings.ReplaceAll(text, n, strings.ReplaceAll(n, " ", "-"))
		}
	}
	return text
}

func lower(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToLower(collapse(n))
	}
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
