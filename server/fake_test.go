package server

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/existflow/dashcraft/internal/access"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/server/database"
	"github.com/google/uuid"
)

// memQueries is an in-memory database.Querier
type memQueries struct {
	mu            sync.Mutex
	users         map[string]model.Profile
	sessions      map[string]model.Session
	links         map[string]model.MagicLink
	projects      map[string]model.Project
	collaborators map[string]map[string]model.Collaborator
	comments      map[string]model.Comment
	templates     map[string]model.TemplateRecord
	notifications map[string]model.Notification
	clock         time.Time
}

var _ database.Querier = (*memQueries)(nil)

func newMemQueries() *memQueries {
	return &memQueries{
		users:         map[string]model.Profile{},
		sessions:      map[string]model.Session{},
		links:         map[string]model.MagicLink{},
		projects:      map[string]model.Project{},
		collaborators: map[string]map[string]model.Collaborator{},
		comments:      map[string]model.Comment{},
		templates:     map[string]model.TemplateRecord{},
		notifications: map[string]model.Notification{},
		clock:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// now returns strictly increasing timestamps so ordering is stable
func (m *memQueries) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memQueries) CreateUser(_ context.Context, arg database.CreateUserParams) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == arg.Username || strings.EqualFold(u.Email, arg.Email) {
			return model.Profile{}, database.ErrConflict
		}
	}
	p := model.Profile{
		ID:           uuid.NewString(),
		Username:     arg.Username,
		Email:        arg.Email,
		DisplayName:  arg.DisplayName,
		PasswordHash: arg.PasswordHash,
		CreatedAt:    m.now(),
	}
	m.users[p.ID] = p
	return p, nil
}

func (m *memQueries) GetUser(_ context.Context, id string) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.Profile{}, database.ErrNotFound
	}
	return u, nil
}

func (m *memQueries) GetUserByUsername(_ context.Context, username string) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.Profile{}, database.ErrNotFound
}

func (m *memQueries) GetUserByEmail(_ context.Context, email string) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return model.Profile{}, database.ErrNotFound
}

func (m *memQueries) UpdateUserProfile(_ context.Context, arg database.UpdateUserProfileParams) (model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[arg.ID]
	if !ok {
		return model.Profile{}, database.ErrNotFound
	}
	if arg.DisplayName != nil {
		u.DisplayName = *arg.DisplayName
	}
	if arg.AvatarURL != nil {
		u.AvatarURL = *arg.AvatarURL
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memQueries) CreateSession(_ context.Context, userID, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = model.Session{ID: uuid.NewString(), UserID: userID, Token: token, ExpiresAt: expiresAt}
	return nil
}

func (m *memQueries) GetSession(_ context.Context, token string) (model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return model.Session{}, database.ErrNotFound
	}
	return s, nil
}

func (m *memQueries) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *memQueries) CreateMagicLink(_ context.Context, email, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links[token] = model.MagicLink{ID: uuid.NewString(), Email: email, Token: token, ExpiresAt: expiresAt}
	return nil
}

func (m *memQueries) GetMagicLink(_ context.Context, token string) (model.MagicLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[token]
	if !ok {
		return model.MagicLink{}, database.ErrNotFound
	}
	return l, nil
}

func (m *memQueries) UseMagicLink(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[token]
	if !ok || l.Used {
		return false, nil
	}
	l.Used = true
	m.links[token] = l
	return true, nil
}

func (m *memQueries) CreateProject(_ context.Context, arg database.CreateProjectParams) (model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	p := model.Project{
		ID:          uuid.NewString(),
		Name:        arg.Name,
		Description: arg.Description,
		OwnerID:     arg.OwnerID,
		Screens:     model.DecodeScreens(arg.Screens),
		Elements:    model.DecodeElements(arg.Elements),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.projects[p.ID] = p
	return p, nil
}

func (m *memQueries) GetProject(_ context.Context, id string) (model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return model.Project{}, database.ErrNotFound
	}
	return p, nil
}

func (m *memQueries) ListProjectsForUser(_ context.Context, userID string) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Project
	for _, p := range m.projects {
		if _, collab := m.collaborators[p.ID][userID]; p.OwnerID == userID || collab {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *memQueries) UpdateProjectMeta(_ context.Context, arg database.UpdateProjectMetaParams) (model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[arg.ID]
	if !ok {
		return model.Project{}, database.ErrNotFound
	}
	if arg.Name != nil {
		p.Name = *arg.Name
	}
	if arg.Description != nil {
		p.Description = *arg.Description
	}
	if arg.IsPublic != nil {
		p.IsPublic = *arg.IsPublic
	}
	p.UpdatedAt = m.now()
	m.projects[p.ID] = p
	return p, nil
}

func (m *memQueries) UpdateProjectCanvas(_ context.Context, id string, screens, elements json.RawMessage) (model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return model.Project{}, database.ErrNotFound
	}
	p.Screens = model.DecodeScreens(screens)
	p.Elements = model.DecodeElements(elements)
	p.UpdatedAt = m.now()
	m.projects[id] = p
	return p, nil
}

func (m *memQueries) DeleteProject(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return false, nil
	}
	delete(m.projects, id)
	delete(m.collaborators, id)
	for cid, c := range m.comments {
		if c.ProjectID == id {
			delete(m.comments, cid)
		}
	}
	return true, nil
}

func (m *memQueries) GetAccessFacts(_ context.Context, projectID, userID string) (access.Facts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return access.Facts{}, database.ErrNotFound
	}
	f := access.Facts{OwnerID: p.OwnerID, IsPublic: p.IsPublic}
	if c, ok := m.collaborators[projectID][userID]; ok {
		f.CollaboratorRole = c.Role
	}
	return f, nil
}

func (m *memQueries) ListCollaborators(_ context.Context, projectID string) ([]model.Collaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Collaborator
	for _, c := range m.collaborators[projectID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memQueries) GetCollaborator(_ context.Context, projectID, userID string) (model.Collaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collaborators[projectID][userID]
	if !ok {
		return model.Collaborator{}, database.ErrNotFound
	}
	return c, nil
}

func (m *memQueries) AddCollaborator(_ context.Context, arg database.AddCollaboratorParams) (model.Collaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collaborators[arg.ProjectID][arg.UserID]; ok {
		return model.Collaborator{}, database.ErrConflict
	}
	if m.collaborators[arg.ProjectID] == nil {
		m.collaborators[arg.ProjectID] = map[string]model.Collaborator{}
	}
	u := m.users[arg.UserID]
	c := model.Collaborator{
		ProjectID: arg.ProjectID,
		UserID:    arg.UserID,
		Role:      arg.Role,
		InvitedBy: arg.InvitedBy,
		CreatedAt: m.now(),
		Profile:   &u,
	}
	m.collaborators[arg.ProjectID][arg.UserID] = c
	return c, nil
}

func (m *memQueries) UpdateCollaboratorRole(_ context.Context, projectID, userID string, role model.Role) (model.Collaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collaborators[projectID][userID]
	if !ok {
		return model.Collaborator{}, database.ErrNotFound
	}
	c.Role = role
	m.collaborators[projectID][userID] = c
	return c, nil
}

func (m *memQueries) RemoveCollaborator(_ context.Context, projectID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collaborators[projectID][userID]; !ok {
		return false, nil
	}
	delete(m.collaborators[projectID], userID)
	return true, nil
}

func (m *memQueries) ListMembers(_ context.Context, projectID string) ([]model.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok {
		return nil, nil
	}
	out := []model.Profile{m.users[p.OwnerID]}
	for uid := range m.collaborators[projectID] {
		out = append(out, m.users[uid])
	}
	return out, nil
}

func (m *memQueries) withAuthor(c model.Comment) model.Comment {
	u := m.users[c.UserID]
	c.Author = &model.Author{Username: u.Username, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL}
	return c
}

func (m *memQueries) ListComments(_ context.Context, projectID, elementID string) ([]model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Comment
	for _, c := range m.comments {
		if c.ProjectID == projectID && c.ElementID == elementID {
			out = append(out, m.withAuthor(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memQueries) GetComment(_ context.Context, id string) (model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return model.Comment{}, database.ErrNotFound
	}
	return m.withAuthor(c), nil
}

func (m *memQueries) CreateComment(_ context.Context, userID string, arg model.NewComment) (model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	c := model.Comment{
		ID:        uuid.NewString(),
		Content:   arg.Content,
		UserID:    userID,
		ProjectID: arg.ProjectID,
		ElementID: arg.ElementID,
		Mentions:  arg.Mentions,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.comments[c.ID] = c
	return m.withAuthor(c), nil
}

func (m *memQueries) DeleteComment(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return false, nil
	}
	delete(m.comments, id)
	return true, nil
}

func (m *memQueries) ListTemplates(_ context.Context, userID string) ([]model.TemplateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TemplateRecord
	for _, t := range m.templates {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memQueries) GetTemplate(_ context.Context, id, userID string) (model.TemplateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok || t.UserID != userID {
		return model.TemplateRecord{}, database.ErrNotFound
	}
	return t, nil
}

func (m *memQueries) CreateTemplate(_ context.Context, arg model.TemplateRecord) (model.TemplateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	arg.ID = uuid.NewString()
	arg.CreatedAt = now
	arg.UpdatedAt = now
	m.templates[arg.ID] = arg
	return arg, nil
}

func (m *memQueries) UpdateTemplate(_ context.Context, arg model.TemplateRecord) (model.TemplateRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[arg.ID]
	if !ok || t.UserID != arg.UserID {
		return model.TemplateRecord{}, database.ErrNotFound
	}
	t.Name = arg.Name
	t.Screens = arg.Screens
	t.Elements = arg.Elements
	t.UpdatedAt = m.now()
	m.templates[t.ID] = t
	return t, nil
}

func (m *memQueries) DeleteTemplate(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok || t.UserID != userID {
		return false, nil
	}
	delete(m.templates, id)
	return true, nil
}

func (m *memQueries) CreateNotification(_ context.Context, arg model.Notification) (model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	arg.ID = uuid.NewString()
	arg.CreatedAt = m.now()
	m.notifications[arg.ID] = arg
	return arg, nil
}

func (m *memQueries) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memQueries) MarkNotificationRead(_ context.Context, id, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.Read = true
	m.notifications[id] = n
	return true, nil
}
