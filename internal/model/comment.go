package model

import "time"

// Comment is a message attached to one element of a project
type Comment struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	ProjectID string    `json:"project_id"`
	ElementID string    `json:"element_id"`
	Mentions  []string  `json:"mentions"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Author    *Author   `json:"author,omitempty"`
}

// Author holds the display fields joined onto a comment
type Author struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// AuthorName returns the best available display name for the comment author
func (c *Comment) AuthorName() string {
	if c.Author == nil {
		return c.UserID
	}
	if c.Author.DisplayName != "" {
		return c.Author.DisplayName
	}
	return c.Author.Username
}

// NewComment is the insert payload for a comment
type NewComment struct {
	ProjectID string   `json:"project_id"`
	ElementID string   `json:"element_id"`
	Content   string   `json:"content"`
	Mentions  []string `json:"mentions"`
}

// Notification kinds
const (
	NotificationMention = "mention"
)

// Notification is queued for a user when something needs their attention
type Notification struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	ActorID   string    `json:"actor_id,omitempty"`
	ProjectID string    `json:"project_id"`
	ElementID string    `json:"element_id,omitempty"`
	CommentID string    `json:"comment_id,omitempty"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}
