// Package loader reads story documents (YAML or Lua, from disk or over HTTP)
// into the immutable types.Story the engine runs. Action ordinals are
// assigned here, once, so rotation identities are stable for the life of the
// story.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nathoo/holoroom/engine/rules"
	"github.com/nathoo/holoroom/types"
)

// Load reads a story from source. A source starting with http:// or https://
// is fetched and parsed as YAML. A .lua file, or a directory of .lua files,
// is run in a sandboxed Lua VM. Anything else is read as a YAML file.
func Load(ctx context.Context, source string) (*types.Story, error) {
	var (
		story *types.Story
		err   error
	)
	switch {
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		story, err = fetch(ctx, source)
	case isLuaSource(source):
		story, err = LoadLua(source)
	default:
		var data []byte
		data, err = os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("reading story %s: %w", source, err)
		}
		story, err = ParseYAML(data)
	}
	if err != nil {
		return nil, err
	}
	return Finalize(story)
}

// Finalize assigns action ordinals and checks the story's structure.
// Warnings are logged; errors fail the load.
func Finalize(story *types.Story) (*types.Story, error) {
	rules.AssignOrdinals(story)
	ve := validate(story)
	for _, w := range ve.Warnings {
		slog.Warn("story warning", "story", story.ID, "warning", w)
	}
	if len(ve.Errors) > 0 {
		return nil, ve
	}
	return story, nil
}

func isLuaSource(path string) bool {
	if strings.HasSuffix(path, ".lua") {
		return true
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}
	matches, _ := filepath.Glob(filepath.Join(path, "*.lua"))
	return len(matches) > 0
}
