package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/nathoo/holoroom/types"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a story document. Fields the engine does not use are
// ignored.
func ParseYAML(data []byte) (*types.Story, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))

	var story types.Story
	if err := dec.Decode(&story); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing story: empty document")
		}
		return nil, fmt.Errorf("parsing story: %w", err)
	}
	return &story, nil
}
