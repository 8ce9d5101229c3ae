package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/existflow/dashcraft/internal/access"
	"github.com/existflow/dashcraft/internal/model"
)

// Querier is every query the server runs
type Querier interface {
	CreateUser(ctx context.Context, arg CreateUserParams) (model.Profile, error)
	GetUser(ctx context.Context, id string) (model.Profile, error)
	GetUserByUsername(ctx context.Context, username string) (model.Profile, error)
	GetUserByEmail(ctx context.Context, email string) (model.Profile, error)
	UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (model.Profile, error)

	CreateSession(ctx context.Context, userID, token string, expiresAt time.Time) error
	GetSession(ctx context.Context, token string) (model.Session, error)
	DeleteSession(ctx context.Context, token string) error
	CreateMagicLink(ctx context.Context, email, token string, expiresAt time.Time) error
	GetMagicLink(ctx context.Context, token string) (model.MagicLink, error)
	UseMagicLink(ctx context.Context, token string) (bool, error)

	CreateProject(ctx context.Context, arg CreateProjectParams) (model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]model.Project, error)
	UpdateProjectMeta(ctx context.Context, arg UpdateProjectMetaParams) (model.Project, error)
	UpdateProjectCanvas(ctx context.Context, id string, screens, elements json.RawMessage) (model.Project, error)
	DeleteProject(ctx context.Context, id string) (bool, error)
	GetAccessFacts(ctx context.Context, projectID, userID string) (access.Facts, error)

	ListCollaborators(ctx context.Context, projectID string) ([]model.Collaborator, error)
	GetCollaborator(ctx context.Context, projectID, userID string) (model.Collaborator, error)
	AddCollaborator(ctx context.Context, arg AddCollaboratorParams) (model.Collaborator, error)
	UpdateCollaboratorRole(ctx context.Context, projectID, userID string, role model.Role) (model.Collaborator, error)
	RemoveCollaborator(ctx context.Context, projectID, userID string) (bool, error)
	ListMembers(ctx context.Context, projectID string) ([]model.Profile, error)

	ListComments(ctx context.Context, projectID, elementID string) ([]model.Comment, error)
	GetComment(ctx context.Context, id string) (model.Comment, error)
	CreateComment(ctx context.Context, userID string, arg model.NewComment) (model.Comment, error)
	DeleteComment(ctx context.Context, id string) (bool, error)

	ListTemplates(ctx context.Context, userID string) ([]model.TemplateRecord, error)
	GetTemplate(ctx context.Context, id, userID string) (model.TemplateRecord, error)
	CreateTemplate(ctx context.Context, arg model.TemplateRecord) (model.TemplateRecord, error)
	UpdateTemplate(ctx context.Context, arg model.TemplateRecord) (model.TemplateRecord, error)
	DeleteTemplate(ctx context.Context, id, userID string) (bool, error)

	CreateNotification(ctx context.Context, arg model.Notification) (model.Notification, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID string) (bool, error)
}

var _ Querier = (*Queries)(nil)
