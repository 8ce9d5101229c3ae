package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/existflow/dashcraft/internal/comments"
	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/realtime"
)

type ticketResponse struct {
	Ticket    string `json:"ticket"`
	ExpiresAt string `json:"expires_at"`
}

// RealtimeTicket fetches a short-lived ticket for opening a realtime socket
func (c *Client) RealtimeTicket(ctx context.Context) (string, error) {
	if err := c.requireLogin(); err != nil {
		return "", err
	}
	var resp ticketResponse
	if err := c.do(ctx, http.MethodGet, "/realtime/ticket", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Ticket, nil
}

func (c *Client) realtimeURL(ticket string, ch realtime.Channel) (string, error) {
	u, err := url.Parse(c.ServerURL() + "/api/v1/realtime")
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := url.Values{
		"ticket": {ticket},
		"table":  {ch.Table},
		"event":  {string(ch.Event)},
		"filter": {ch.Filter.String()},
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe opens a realtime socket for ch
func (c *Client) Subscribe(ctx context.Context, ch realtime.Channel, handler func(realtime.Event)) (*realtime.Conn, error) {
	ticket, err := c.RealtimeTicket(ctx)
	if err != nil {
		return nil, err
	}
	u, err := c.realtimeURL(ticket, ch)
	if err != nil {
		return nil, err
	}
	conn, err := realtime.Dial(ctx, u, handler, realtime.DefaultSettings())
	if err != nil {
		logger.Warn("Realtime subscribe failed", logger.F("channel", ch.Key()), logger.F("error", err))
		return nil, err
	}
	logger.Debug("Realtime subscribed", logger.F("channel", ch.Key()))
	return conn, nil
}

type commentSubscription struct {
	conn *realtime.Conn
}

func (s commentSubscription) Close() error { return s.conn.Close() }

// SubscribeComments streams inserts and deletes on the comments of one
// element
func (c *Client) SubscribeComments(ctx context.Context, projectID, elementID string, handler func(comments.Change)) (comments.Subscription, error) {
	if strings.ContainsAny(projectID+elementID, ",") {
		return nil, fmt.Errorf("invalid comment channel %q/%q", projectID, elementID)
	}
	ch := realtime.Channel{
		Table: "comments",
		Event: realtime.EventAll,
		Filter: realtime.Filter{
			{Column: "project_id", Op: realtime.OpEq, Value: projectID},
			{Column: "element_id", Op: realtime.OpEq, Value: elementID},
		},
	}
	conn, err := c.Subscribe(ctx, ch, func(e realtime.Event) {
		var row struct {
			ID string `json:"id"`
		}
		if err := e.Decode(&row); err != nil || row.ID == "" {
			return
		}
		switch e.Type {
		case realtime.EventInsert:
			handler(comments.Change{Kind: comments.ChangeInsert, ID: row.ID})
		case realtime.EventDelete:
			handler(comments.Change{Kind: comments.ChangeDelete, ID: row.ID})
		}
	})
	if err != nil {
		return nil, err
	}
	return commentSubscription{conn: conn}, nil
}
