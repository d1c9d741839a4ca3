package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/arliden/comfygraph/pkg/workflow"
)

// QueueResponse is the server's acknowledgement of a queued workflow. The
// prompt id is the correlation id shared by every push notification and the
// history record for this submission.
type QueueResponse struct {
	PromptID   uuid.UUID                  `json:"prompt_id"`
	Number     uint64                     `json:"number"`
	NodeErrors map[string]json.RawMessage `json:"node_errors"`
}

type queueRequest struct {
	Prompt   *workflow.Graph `json:"prompt"`
	ClientID uuid.UUID       `json:"client_id"`
}

// Queue submits a workflow for execution under this client's id.
func (c *Client) Queue(ctx context.Context, g *workflow.Graph) (*QueueResponse, error) {
	body, err := json.Marshal(queueRequest{Prompt: g, ClientID: c.clientID})
	if err != nil {
		return nil, fmt.Errorf("encode workflow: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("prompt").String(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var out QueueResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	c.log.Debug("workflow queued", "prompt_id", out.PromptID, "number", out.Number)
	return &out, nil
}
