package comfygraph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/arliden/comfygraph/internal/track"
	"github.com/arliden/comfygraph/pkg/api"
	"github.com/arliden/comfygraph/pkg/workflow"
)

// Client is the high-level entry point: it submits workflows and turns the
// server's asynchronous execution protocol into an ordered image sequence.
type Client struct {
	api *api.Client
	log *slog.Logger
}

// Option defines a functional option for configuring the Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	clientID   *uuid.UUID
	log        *slog.Logger
}

// WithHTTPClient replaces the default HTTP client used for all requests.
func WithHTTPClient(h *http.Client) Option {
	return func(o *options) { o.httpClient = h }
}

// WithClientID pins the client id scoping the push-notification connection.
// By default a fresh id is generated per Client.
func WithClientID(id uuid.UUID) Option {
	return func(o *options) { o.clientID = &id }
}

// WithLogger attaches a structured logger; the default discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

// New returns a Client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	apiOpts := []api.Option{api.WithLogger(o.log)}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(o.httpClient))
	}
	if o.clientID != nil {
		apiOpts = append(apiOpts, api.WithClientID(*o.clientID))
	}
	a, err := api.New(baseURL, apiOpts...)
	if err != nil {
		return nil, err
	}
	return &Client{api: a, log: o.log}, nil
}

// API exposes the underlying endpoint wrappers for callers that need the raw
// surface (history queries, manual image fetches).
func (c *Client) API() *api.Client {
	return c.api
}

// Output is one generated image tagged with the id of the node that produced
// it, or the failure that ended the sequence. At most one Output carries a
// non-nil Err and it is always the final one.
type Output struct {
	Node  string
	Image []byte
	Err   error
}

// Stream submits the workflow and returns a lazy, single-pass sequence of its
// output images. The channel closes when the run finishes or fails; cancel
// ctx to abandon the sequence early (this closes the underlying connection
// and abandons in-flight fetches). The sequence is tied to one submission and
// is not restartable. Callers impose their own deadline via ctx; none is
// applied internally.
func (c *Client) Stream(ctx context.Context, g *workflow.Graph) (<-chan Output, error) {
	// The stream must be open before the workflow is queued: a fast (or
	// fully cached) run can complete before a late connection would be
	// established, and its notifications are not replayed.
	stream, err := c.api.Updates(ctx)
	if err != nil {
		return nil, fmt.Errorf("open update stream: %w", err)
	}
	resp, err := c.api.Queue(ctx, g)
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("queue workflow: %w", err)
	}
	c.log.Info("workflow queued", "prompt_id", resp.PromptID, "queue_number", resp.Number)

	tracker := track.New(resp.PromptID, stream, c.api, c.api, c.log)
	results := tracker.Run(ctx)
	out := make(chan Output)
	go func() {
		defer close(out)
		for r := range results {
			select {
			case out <- Output(r):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Generate submits the workflow and collects the whole image sequence. It
// returns the images emitted before any failure alongside that failure.
func (c *Client) Generate(ctx context.Context, g *workflow.Graph) ([]Output, error) {
	stream, err := c.Stream(ctx, g)
	if err != nil {
		return nil, err
	}
	var outputs []Output
	for out := range stream {
		if out.Err != nil {
			return outputs, out.Err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// UploadImage registers an input image with the server so a graph can
// reference it by name from an image-loading node.
func (c *Client) UploadImage(ctx context.Context, filename string, data []byte) (*api.UploadedImage, error) {
	return c.api.UploadImage(ctx, filename, data)
}
