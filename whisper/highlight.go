package whisper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Highlights fetches per-line positional metadata for a processed job.
// The lines argument is a compact range expression such as "1-5,7,21-" and is
// forwarded verbatim; the service interprets it. The result maps line
// numbers (as strings) to their positions.
func (c *Client) Highlights(ctx context.Context, whisperHash, lines string) (map[string]Highlight, error) {
	query := url.Values{
		"whisper_hash": []string{whisperHash},
		"lines":        []string{lines},
	}

	status, _, raw, err := c.do(ctx, http.MethodGet, "/highlights", query, nil, 0, "")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, remoteError(status, raw)
	}

	var highlights map[string]Highlight
	if err := json.Unmarshal(raw, &highlights); err != nil {
		return nil, fmt.Errorf("failed to decode highlights response: %w", err)
	}

	return highlights, nil
}
