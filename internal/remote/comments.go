package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/existflow/dashcraft/internal/model"
)

// ListComments returns the comments on one element, oldest first
func (c *Client) ListComments(ctx context.Context, projectID, elementID string) ([]model.Comment, error) {
	var out []model.Comment
	err := c.do(ctx, http.MethodGet, projectPath(projectID)+"/comments",
		url.Values{"element_id": {elementID}}, nil, &out)
	return out, err
}

// GetComment loads one comment with its author fields
func (c *Client) GetComment(ctx context.Context, id string) (model.Comment, error) {
	var out model.Comment
	err := c.do(ctx, http.MethodGet, "/comments/"+url.PathEscape(id), nil, nil, &out)
	return out, err
}

// CreateComment posts a comment as the signed-in user
func (c *Client) CreateComment(ctx context.Context, nc model.NewComment) (model.Comment, error) {
	if err := c.requireLogin(); err != nil {
		return model.Comment{}, err
	}
	if nc.Mentions == nil {
		nc.Mentions = []string{}
	}
	var out model.Comment
	err := c.do(ctx, http.MethodPost, "/comments", nil, nc, &out)
	return out, err
}

// DeleteComment deletes a comment
func (c *Client) DeleteComment(ctx context.Context, id string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, "/comments/"+url.PathEscape(id), nil, nil, nil)
}

// CreateNotification queues a notification for another user
func (c *Client) CreateNotification(ctx context.Context, n model.Notification) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/notifications", nil, n, nil)
}

// ListNotifications returns the signed-in user's notifications, newest
// first
func (c *Client) ListNotifications(ctx context.Context, unreadOnly bool) ([]model.Notification, error) {
	if err := c.requireLogin(); err != nil {
		return nil, err
	}
	var q url.Values
	if unreadOnly {
		q = url.Values{"unread": {"true"}}
	}
	var out []model.Notification
	err := c.do(ctx, http.MethodGet, "/notifications", q, nil, &out)
	return out, err
}

// MarkNotificationRead marks a notification as read
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/notifications/"+url.PathEscape(id)+"/read", nil, nil, nil)
}
