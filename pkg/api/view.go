package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// View fetches the raw bytes of one image. Images are retrieved whole; the
// server does not serve partial content through this endpoint.
func (c *Client) View(ctx context.Context, ref ImageRef) ([]byte, error) {
	u := c.endpoint("view")
	u.RawQuery = url.Values{
		"filename":  {ref.Filename},
		"subfolder": {ref.Subfolder},
		"type":      {ref.FolderType},
	}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read image bytes: %w", err)
	}
	return data, nil
}
