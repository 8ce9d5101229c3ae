package model

import (
	"fmt"
	"time"
)

// Role is an actor's effective permission level on a project
type Role string

// Roles. Owner is implicit (projects.owner_id) and never stored as a
// collaborator row.
const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleNone   Role = "none"
)

// ParseRole parses a collaborator role (viewer, editor or admin)
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleViewer, RoleEditor, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("invalid role %q: must be viewer, editor or admin", s)
	}
}

// Collaborator grants a non-owner a role on a project
type Collaborator struct {
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	InvitedBy string    `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"`
	Profile   *Profile  `json:"profile,omitempty"`
}
