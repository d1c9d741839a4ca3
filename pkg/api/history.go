package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrPromptNotFound is returned when the server's history holds no record for
// the requested prompt id, e.g. before execution has fully completed.
var ErrPromptNotFound = errors.New("prompt not found in history")

// ImageRef identifies one image held by the server. The same triple addresses
// images in `executed` notifications, history outputs, and the view endpoint.
type ImageRef struct {
	Filename   string `json:"filename"`
	Subfolder  string `json:"subfolder"`
	FolderType string `json:"type"`
}

// NodeOutput is the set of images one node produced. Nodes with non-image
// outputs appear with an empty image list.
type NodeOutput struct {
	Images []ImageRef `json:"images"`
}

// Task is the authoritative post-hoc record of one completed submission. Its
// outputs include nodes that were satisfied from cache and therefore never
// received an `executed` notification.
type Task struct {
	Outputs map[string]NodeOutput `json:"outputs"`
	// Prompt echoes the submission plus queue metadata, kept raw.
	Prompt json.RawMessage `json:"prompt"`
}

// History fetches the history record for one prompt id.
func (c *Client) History(ctx context.Context, promptID uuid.UUID) (*Task, error) {
	var records map[string]Task
	if err := c.getJSON(ctx, c.endpoint("history", promptID.String()), &records); err != nil {
		return nil, fmt.Errorf("history %s: %w", promptID, err)
	}
	task, ok := records[promptID.String()]
	if !ok {
		return nil, fmt.Errorf("history %s: %w", promptID, ErrPromptNotFound)
	}
	return &task, nil
}
