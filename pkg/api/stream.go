package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// UpdateStream is a live websocket connection delivering execution updates
// for every submission made under one client id.
type UpdateStream struct {
	conn *websocket.Conn
	log  *slog.Logger
}

// Updates opens a websocket connection scoped to this client's id. The
// returned stream delivers updates for all submissions sharing the id;
// consumers filter by prompt id.
func (c *Client) Updates(ctx context.Context) (*UpdateStream, error) {
	u := c.endpoint("ws")
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"clientId": {c.clientID.String()}}.Encode()
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	c.log.Debug("update stream connected", "client_id", c.clientID)
	return &UpdateStream{conn: conn, log: c.log}, nil
}

// Next blocks until the next update arrives. Binary frames (preview images)
// and text frames of unrecognized event types are skipped; a text frame of a
// recognized type that fails to parse is an error. Cancelling ctx or calling
// Close unblocks a pending Next.
func (s *UpdateStream) Next(ctx context.Context) (Update, error) {
	// Poking the read deadline is the only way to interrupt a blocked read.
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("websocket read: %w", err)
		}
		switch kind {
		case websocket.TextMessage:
			u, err := ParseUpdate(data)
			if errors.Is(err, ErrUnknownUpdate) {
				s.log.Debug("skipping unknown update", "err", err)
				continue
			}
			if err != nil {
				return nil, err
			}
			return u, nil
		case websocket.BinaryMessage:
			// Preview image frame; the tracker never wants these.
			continue
		default:
			s.log.Warn("unexpected websocket message kind", "kind", kind)
			continue
		}
	}
}

// Close tears down the connection. Safe to call while Next is blocked.
func (s *UpdateStream) Close() error {
	return s.conn.Close()
}
