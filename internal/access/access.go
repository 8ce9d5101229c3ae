// Package access derives an actor's role and permissions on a project from
// ownership, collaborator rows and the public flag.
//
// Resolve is pure and shared by the server, which enforces it, and the
// client, which only uses it to decide what to offer the user.
package access

import (
	"context"
	"fmt"
	"sync"

	"github.com/existflow/dashcraft/internal/logger"
	"github.com/existflow/dashcraft/internal/model"
)

type Role = model.Role

const (
	RoleOwner  = model.RoleOwner
	RoleAdmin  = model.RoleAdmin
	RoleEditor = model.RoleEditor
	RoleViewer = model.RoleViewer
	RoleNone   = model.RoleNone
)

// Facts are the stored inputs to role resolution. CollaboratorRole is empty
// when the actor has no collaborator row.
type Facts struct {
	OwnerID          string     `json:"owner_id"`
	IsPublic         bool       `json:"is_public"`
	CollaboratorRole model.Role `json:"collaborator_role,omitempty"`
}

// Resolve returns the effective role of actorID. An empty actorID is an
// anonymous visitor.
func Resolve(actorID string, f Facts) Role {
	if actorID != "" && actorID == f.OwnerID {
		return RoleOwner
	}
	if actorID != "" {
		switch f.CollaboratorRole {
		case RoleAdmin, RoleEditor, RoleViewer:
			return f.CollaboratorRole
		}
	}
	if f.IsPublic {
		return RoleViewer
	}
	return RoleNone
}

// Permissions are the capabilities derived from a role
type Permissions struct {
	Role       Role `json:"role"`
	CanView    bool `json:"can_view"`
	CanEdit    bool `json:"can_edit"`
	CanShare   bool `json:"can_share"`
	CanInvite  bool `json:"can_invite"`
	CanComment bool `json:"can_comment"`
	CanDelete  bool `json:"can_delete"`
}

// PermissionsFor expands a role into permissions. Commenting also requires
// a signed-in actor.
func PermissionsFor(role Role, authenticated bool) Permissions {
	p := Permissions{Role: role}
	switch role {
	case RoleOwner:
		p.CanEdit, p.CanShare, p.CanInvite, p.CanDelete = true, true, true, true
	case RoleAdmin:
		p.CanEdit, p.CanShare, p.CanInvite = true, true, true
	case RoleEditor:
		p.CanEdit = true
	}
	p.CanView = role != RoleNone && role != ""
	p.CanComment = authenticated && p.CanView
	return p
}

// Evaluate resolves actorID against f and expands the result
func Evaluate(actorID string, f Facts) Permissions {
	return PermissionsFor(Resolve(actorID, f), actorID != "")
}

// FactSource loads the access facts of a project for the current actor
type FactSource interface {
	AccessFacts(ctx context.Context, projectID string) (Facts, error)
}

// Resolver caches the permissions for one (project, actor) pair at a time
type Resolver struct {
	source FactSource

	mu        sync.Mutex
	projectID string
	actorID   string
	perms     Permissions
	valid     bool
}

// NewResolver creates a resolver backed by source
func NewResolver(source FactSource) *Resolver {
	return &Resolver{source: source}
}

// Permissions returns the actor's permissions on the project, loading facts
// only when the project or actor differ from the cached pair
func (r *Resolver) Permissions(ctx context.Context, projectID, actorID string) (Permissions, error) {
	r.mu.Lock()
	if r.valid && r.projectID == projectID && r.actorID == actorID {
		p := r.perms
		r.mu.Unlock()
		return p, nil
	}
	r.mu.Unlock()

	facts, err := r.source.AccessFacts(ctx, projectID)
	if err != nil {
		logger.Warn("Failed to load access facts", logger.F("project", projectID), logger.F("error", err))
		return PermissionsFor(RoleNone, actorID != ""), fmt.Errorf("failed to resolve access: %w", err)
	}

	p := Evaluate(actorID, facts)
	r.mu.Lock()
	r.projectID, r.actorID, r.perms, r.valid = projectID, actorID, p, true
	r.mu.Unlock()
	return p, nil
}

// Invalidate forces the next call to reload facts
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.valid = false
	r.mu.Unlock()
}
