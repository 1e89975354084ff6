package server

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nathoo/holoroom/engine/events"
)

// Inbound frame kinds.
const (
	kindHello   = "roomHello"
	kindGoodbye = "roomGoodbye"
	kindJoin    = "roomJoin"
	kindPart    = "roomPart"
	kindRoom    = "room"
)

// ackFrame is sent when a connection opens.
const ackFrame = `ack,{"version":[1,2]}`

// inbound is the JSON body of a client frame.
type inbound struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Content  string `json:"content"`
}

// parseFrame splits "<kind>,<target>,<json>" and decodes the body.
func parseFrame(msg string) (kind, target string, body inbound, err error) {
	parts := strings.SplitN(msg, ",", 3)
	if len(parts) != 3 {
		return "", "", inbound{}, fmt.Errorf("frame %q: want kind,target,json", truncate(msg, 40))
	}
	if err := json.Unmarshal([]byte(parts[2]), &body); err != nil {
		return "", "", inbound{}, fmt.Errorf("frame %s: %w", parts[0], err)
	}
	return parts[0], parts[1], body, nil
}

type eventBody struct {
	Type     string            `json:"type"`
	Content  map[string]string `json:"content"`
	Bookmark int64             `json:"bookmark"`
}

type locationBody struct {
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	FullName    string            `json:"fullName"`
	Description string            `json:"description"`
	Exits       map[string]string `json:"exits"`
	Commands    map[string]string `json:"commands"`
	Pockets     []string          `json:"pockets"`
	Objects     []string          `json:"objects"`
	Bookmark    int64             `json:"bookmark"`
}

type exitBody struct {
	Type     string `json:"type"`
	ExitID   string `json:"exitId"`
	Content  string `json:"content"`
	Bookmark int64  `json:"bookmark"`
}

type chatBody struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Content  string `json:"content"`
	Bookmark int64  `json:"bookmark"`
}

// eventFrame renders a player event. Others text is keyed "*" and self text
// by the sender's id; with no others text the frame targets the sender only.
func eventFrame(e events.Player, bookmark int64) string {
	content := map[string]string{}
	target := e.SenderID
	if e.Others != "" {
		content["*"] = e.Others
		target = "*"
	}
	if e.Self != "" {
		content[e.SenderID] = e.Self
	}
	return frame("player", target, eventBody{Type: "event", Content: content, Bookmark: bookmark})
}

func locationFrame(e events.Location, bookmark int64) string {
	exits := map[string]string{}
	for k, v := range e.Exits {
		if v != "" {
			exits[k] = v
		}
	}
	commands := e.Commands
	if commands == nil {
		commands = map[string]string{}
	}
	return frame("player", e.PlayerID, locationBody{
		Type:        "location",
		Name:        e.RoomID,
		FullName:    e.Name,
		Description: e.Description,
		Exits:       exits,
		Commands:    commands,
		Pockets:     nonNil(e.Inventory),
		Objects:     nonNil(e.Objects),
		Bookmark:    bookmark,
	})
}

func exitFrame(e events.Exit, bookmark int64) string {
	return frame("playerLocation", e.PlayerID, exitBody{
		Type:     "exit",
		ExitID:   e.ExitID,
		Content:  e.Message,
		Bookmark: bookmark,
	})
}

func chatFrame(username, content string, bookmark int64) string {
	return frame("player", "*", chatBody{Type: "chat", Username: username, Content: content, Bookmark: bookmark})
}

func frame(kind, target string, body any) string {
	var b strings.Builder
	b.WriteString(kind + "," + target + ",")
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	// Bodies hold only strings, maps and slices; Encode cannot fail.
	_ = enc.Encode(body)
	return strings.TrimSuffix(b.String(), "\n")
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
