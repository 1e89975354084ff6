package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nathoo/holoroom/types"
)

// maxStorySize bounds a fetched story document.
var maxStorySize = 8 << 20

// ErrStoryTooLarge is returned when a fetched story exceeds the size limit.
var ErrStoryTooLarge = errors.New("story document too large")

var httpClient = &http.Client{Timeout: 30 * time.Second}

// fetch downloads a YAML story from url.
func fetch(ctx context.Context, url string) (*types.Story, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching story: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching story %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching story %s: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxStorySize)+1))
	if err != nil {
		return nil, fmt.Errorf("reading story %s: %w", url, err)
	}
	if len(data) > maxStorySize {
		return nil, fmt.Errorf("reading story %s: %w", url, ErrStoryTooLarge)
	}
	return ParseYAML(data)
}
