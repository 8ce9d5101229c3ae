package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/existflow/dashcraft/internal/comments"
	"github.com/existflow/dashcraft/internal/model"
	"github.com/existflow/dashcraft/internal/realtime"
	"github.com/existflow/dashcraft/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testSecret = []byte("test-secret")

type testEnv struct {
	t   *testing.T
	srv *Server
	q   *memQueries
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	q := newMemQueries()
	srv := NewWithQuerier(q,
		WithJWTSecret(testSecret),
		WithBcryptCost(bcrypt.MinCost),
		WithMagicLinkTokens(true),
	)
	return &testEnv{t: t, srv: srv, q: q}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, rec)["error"]
}

func (e *testEnv) register(username string) authResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/register", "", registerRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[authResponse](e.t, rec)
}

func (e *testEnv) createProject(token, name string) model.Project {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/projects", token, createProjectRequest{Name: name})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Project](e.t, rec)
}

func (e *testEnv) invite(token, projectID, username string, role model.Role) {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/projects/"+projectID+"/collaborators", token,
		inviteRequest{Email: username + "@example.com", Role: string(role)})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	assert.NotEmpty(t, alice.Token)
	assert.Equal(t, "alice", alice.Username)

	t.Run("duplicate username", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/register", "", registerRequest{
			Username: "alice", Email: "other@example.com", Password: "password123",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("validation", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/register", "", registerRequest{
			Username: "x", Email: "not-an-email", Password: "password123",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(http.MethodPost, "/register", "", registerRequest{
			Username: "x", Email: "x@example.com", Password: "short",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("login", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/login", "", loginRequest{Username: "alice", Password: "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = env.do(http.MethodPost, "/login", "", loginRequest{Username: "nobody", Password: "password123"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = env.do(http.MethodPost, "/login", "", loginRequest{Username: "alice", Password: "password123"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, alice.UserID, decode[authResponse](t, rec).UserID)
	})

	t.Run("me", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/me", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "authorization required", errorMessage(t, rec))

		rec = env.do(http.MethodGet, "/me", "bogus", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = env.do(http.MethodGet, "/me", alice.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "password")
		me := decode[model.Profile](t, rec)
		assert.Equal(t, "alice", me.Username)
		assert.Equal(t, "alice", me.DisplayName)
	})

	t.Run("update profile", func(t *testing.T) {
		name := "  Alice A.  "
		rec := env.do(http.MethodPatch, "/me", alice.Token, profileRequest{DisplayName: &name})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Alice A.", decode[model.Profile](t, rec).DisplayName)

		empty := " "
		rec = env.do(http.MethodPatch, "/me", alice.Token, profileRequest{DisplayName: &empty})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("logout", func(t *testing.T) {
		session := env.do(http.MethodPost, "/login", "", loginRequest{Username: "alice", Password: "password123"})
		token := decode[authResponse](t, session).Token

		rec := env.do(http.MethodPost, "/logout", token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(http.MethodGet, "/me", token, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)

		// Other sessions stay valid
		rec = env.do(http.MethodGet, "/me", alice.Token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("expired session", func(t *testing.T) {
		require.NoError(t, env.q.CreateSession(context.Background(), alice.UserID, "old", time.Now().Add(-time.Minute)))
		rec := env.do(http.MethodGet, "/me", "old", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "token expired", errorMessage(t, rec))
	})
}

func TestMagicLink(t *testing.T) {
	env := newTestEnv(t)
	bob := env.register("bob")

	rec := env.do(http.MethodPost, "/magic-link", "", magicLinkRequest{Email: "nobody@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[magicLinkResponse](t, rec).Token)

	rec = env.do(http.MethodPost, "/magic-link", "", magicLinkRequest{Email: "BOB@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decode[magicLinkResponse](t, rec).Token
	require.NotEmpty(t, token)

	rec = env.do(http.MethodGet, "/magic-link/"+token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bob.UserID, decode[authResponse](t, rec).UserID)

	rec = env.do(http.MethodGet, "/magic-link/"+token, "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "token already used", errorMessage(t, rec))

	rec = env.do(http.MethodGet, "/magic-link/unknown", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMagicLinkTokenHiddenByDefault(t *testing.T) {
	q := newMemQueries()
	srv := NewWithQuerier(q, WithJWTSecret(testSecret), WithBcryptCost(bcrypt.MinCost))
	env := &testEnv{t: t, srv: srv, q: q}
	env.register("bob")

	rec := env.do(http.MethodPost, "/magic-link", "", magicLinkRequest{Email: "bob@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[magicLinkResponse](t, rec).Token)
	assert.Len(t, q.links, 1)
}

func TestProjectAccess(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	bob := env.register("bob")

	project := env.createProject(alice.Token, "  Sales  ")
	assert.Equal(t, "Sales", project.Name)
	require.Len(t, project.Screens, 1)
	assert.True(t, project.Screens[0].IsActive)
	assert.Empty(t, project.Elements)
	path := "/projects/" + project.ID

	t.Run("private project is hidden", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path, "", nil).Code)
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path, bob.Token, nil).Code)
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path+"/access", bob.Token, nil).Code)
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/projects/not-a-uuid", alice.Token, nil).Code)
		assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, alice.Token, nil).Code)
	})

	t.Run("validation", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/projects", alice.Token, createProjectRequest{Name: "   "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		rec = env.do(http.MethodPost, "/projects", alice.Token, createProjectRequest{Name: strings.Repeat("x", 101)})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("public project is readable", func(t *testing.T) {
		public := true
		rec := env.do(http.MethodPatch, path, alice.Token, updateProjectRequest{IsPublic: &public})
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, http.StatusOK, env.do(http.MethodGet, path, "", nil).Code)

		rec = env.do(http.MethodGet, path+"/access", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		info := decode[accessResponse](t, rec)
		assert.Equal(t, model.RoleViewer, info.Permissions.Role)
		assert.True(t, info.Permissions.CanView)
		assert.False(t, info.Permissions.CanComment)
		assert.Equal(t, alice.UserID, info.Facts.OwnerID)

		rec = env.do(http.MethodGet, path+"/access", bob.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[accessResponse](t, rec).Permissions.CanComment)
	})

	canvas := map[string]any{
		"screens": []model.Screen{{ID: "s1", Name: "Screen 1", IsActive: true}},
		"elements": []model.Element{{
			ID: "e1", Type: model.ElementKPI, ScreenID: "s1",
			Position: model.Position{X: 10, Y: 20}, Size: model.Size{Width: 200, Height: 100},
		}},
	}

	t.Run("public viewers cannot edit", func(t *testing.T) {
		rec := env.do(http.MethodPut, path+"/canvas", bob.Token, canvas)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("editors can save the canvas", func(t *testing.T) {
		env.invite(alice.Token, project.ID, "bob", model.RoleEditor)

		rec := env.do(http.MethodPut, path+"/canvas", bob.Token, canvas)
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		got := decode[model.Project](t, env.do(http.MethodGet, path, bob.Token, nil))
		require.Len(t, got.Elements, 1)
		assert.Equal(t, "e1", got.Elements[0].ID)
		assert.NotNil(t, got.Elements[0].Properties)

		rec = env.do(http.MethodPut, path+"/canvas", bob.Token, map[string]any{"screens": "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("editors cannot share or delete", func(t *testing.T) {
		private := false
		rec := env.do(http.MethodPatch, path, bob.Token, updateProjectRequest{IsPublic: &private})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		name := "Renamed"
		rec = env.do(http.MethodPatch, path, bob.Token, updateProjectRequest{Name: &name})
		assert.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, http.StatusForbidden, env.do(http.MethodDelete, path, bob.Token, nil).Code)
	})

	t.Run("list includes shared projects", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/projects", bob.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := decode[[]model.Project](t, rec)
		require.Len(t, list, 1)
		assert.Equal(t, project.ID, list[0].ID)
	})

	t.Run("owner deletes", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, alice.Token, nil).Code)
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, path, alice.Token, nil).Code)
	})
}

func TestCollaborators(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	bob := env.register("bob")
	carol := env.register("carol")
	project := env.createProject(alice.Token, "Ops")
	path := "/projects/" + project.ID + "/collaborators"

	env.invite(alice.Token, project.ID, "bob", model.RoleAdmin)

	t.Run("invite rules", func(t *testing.T) {
		rec := env.do(http.MethodPost, path, alice.Token, inviteRequest{Email: "alice@example.com", Role: "editor"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(http.MethodPost, path, alice.Token, inviteRequest{Email: "bob@example.com", Role: "viewer"})
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = env.do(http.MethodPost, path, alice.Token, inviteRequest{Email: "ghost@example.com", Role: "viewer"})
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(http.MethodPost, path, alice.Token, inviteRequest{Email: "carol@example.com", Role: "owner"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("admins invite", func(t *testing.T) {
		env.invite(bob.Token, project.ID, "carol", model.RoleViewer)

		rec := env.do(http.MethodPost, path, carol.Token, inviteRequest{Email: "bob@example.com", Role: "viewer"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(http.MethodGet, path, carol.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]model.Collaborator](t, rec), 2)

		rec = env.do(http.MethodGet, "/projects/"+project.ID+"/members", carol.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]model.Profile](t, rec), 3)
	})

	t.Run("change role", func(t *testing.T) {
		rec := env.do(http.MethodPatch, path+"/"+carol.UserID, carol.Token, roleRequest{Role: "admin"})
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(http.MethodPatch, path+"/"+carol.UserID, alice.Token, roleRequest{Role: "editor"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, model.RoleEditor, decode[model.Collaborator](t, rec).Role)

		rec = env.do(http.MethodPatch, path+"/"+alice.UserID, bob.Token, roleRequest{Role: "viewer"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("remove", func(t *testing.T) {
		rec := env.do(http.MethodDelete, path+"/"+bob.UserID, carol.Token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(http.MethodDelete, path+"/"+carol.UserID, carol.Token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/projects/"+project.ID, carol.Token, nil).Code)
	})
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	bob := env.register("bob")
	carol := env.register("carol")
	dave := env.register("dave")
	project := env.createProject(alice.Token, "Board")
	env.invite(alice.Token, project.ID, "carol", model.RoleViewer)
	env.invite(alice.Token, project.ID, "dave", model.RoleEditor)

	post := func(token, content string) *httptest.ResponseRecorder {
		return env.do(http.MethodPost, "/comments", token, model.NewComment{
			ProjectID: project.ID, ElementID: "el-1", Content: content,
			Mentions: []string{alice.UserID, alice.UserID},
		})
	}

	rec := post(carol.Token, "  looks good @alice  ")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[model.Comment](t, rec)
	assert.Equal(t, "looks good @alice", first.Content)
	assert.Equal(t, []string{alice.UserID}, first.Mentions)
	require.NotNil(t, first.Author)
	assert.Equal(t, "carol", first.Author.Username)

	t.Run("rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, post("", "hi").Code)
		assert.Equal(t, http.StatusBadRequest, post(carol.Token, "   ").Code)
		assert.Equal(t, http.StatusBadRequest, post(carol.Token, strings.Repeat("x", model.MaxCommentLength+1)).Code)
		assert.Equal(t, http.StatusNotFound, post(bob.Token, "hi").Code)
	})

	t.Run("list", func(t *testing.T) {
		rec := env.do(http.MethodGet, "/projects/"+project.ID+"/comments?element_id=el-1", carol.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]model.Comment](t, rec), 1)

		rec = env.do(http.MethodGet, "/projects/"+project.ID+"/comments?element_id=el-2", carol.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[[]model.Comment](t, rec))

		rec = env.do(http.MethodGet, "/projects/"+project.ID+"/comments", carol.Token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(http.MethodGet, "/projects/"+project.ID+"/comments?element_id=el-1", bob.Token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = env.do(http.MethodGet, "/comments/"+first.ID, bob.Token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		rec = env.do(http.MethodGet, "/comments/"+first.ID, dave.Token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := env.do(http.MethodDelete, "/comments/"+first.ID, dave.Token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(http.MethodDelete, "/comments/"+first.ID, alice.Token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		own := decode[model.Comment](t, post(dave.Token, "mine"))
		rec = env.do(http.MethodDelete, "/comments/"+own.ID, dave.Token, nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(http.MethodDelete, "/comments/"+own.ID, dave.Token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	bob := env.register("bob")
	carol := env.register("carol")
	project := env.createProject(alice.Token, "Board")
	env.invite(alice.Token, project.ID, "carol", model.RoleViewer)

	notify := func(token, to string) *httptest.ResponseRecorder {
		return env.do(http.MethodPost, "/notifications", token, model.Notification{
			UserID: to, ProjectID: project.ID, ElementID: "el-1",
			Kind: model.NotificationMention, Message: "alice mentioned you in a comment",
		})
	}

	rec := notify(alice.Token, carol.UserID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.Notification](t, rec)
	assert.Equal(t, alice.UserID, created.ActorID)

	assert.Equal(t, http.StatusForbidden, notify(alice.Token, bob.UserID).Code)
	assert.Equal(t, http.StatusNotFound, notify(bob.Token, carol.UserID).Code)

	rec = env.do(http.MethodGet, "/notifications?unread=true", carol.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]model.Notification](t, rec)
	require.Len(t, list, 1)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/notifications/"+list[0].ID+"/read", alice.Token, nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/notifications/"+list[0].ID+"/read", carol.Token, nil).Code)

	rec = env.do(http.MethodGet, "/notifications?unread=true", carol.Token, nil)
	assert.Empty(t, decode[[]model.Notification](t, rec))
	rec = env.do(http.MethodGet, "/notifications", carol.Token, nil)
	assert.Len(t, decode[[]model.Notification](t, rec), 1)
}

func TestTemplates(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	bob := env.register("bob")

	rec := env.do(http.MethodPost, "/templates", alice.Token, model.TemplateRecord{
		Name:     " Starter ",
		Screens:  `[{"id":"s1","name":"Screen 1","isActive":true}]`,
		Elements: `[]`,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	tmpl := decode[model.TemplateRecord](t, rec)
	assert.Equal(t, "Starter", tmpl.Name)
	assert.Equal(t, alice.UserID, tmpl.UserID)

	rec = env.do(http.MethodPost, "/templates", alice.Token, model.TemplateRecord{Name: "Bad", Screens: "{nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = env.do(http.MethodPost, "/templates", alice.Token, model.TemplateRecord{Name: "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Len(t, decode[[]model.TemplateRecord](t, env.do(http.MethodGet, "/templates", alice.Token, nil)), 1)
	assert.Empty(t, decode[[]model.TemplateRecord](t, env.do(http.MethodGet, "/templates", bob.Token, nil)))
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/templates/"+tmpl.ID, bob.Token, nil).Code)

	rec = env.do(http.MethodPut, "/templates/"+tmpl.ID, alice.Token, model.TemplateRecord{
		Name: "Starter v2", Screens: tmpl.Screens, Elements: tmpl.Elements,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Starter v2", decode[model.TemplateRecord](t, rec).Name)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/templates/"+tmpl.ID, bob.Token, nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/templates/"+tmpl.ID, alice.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/templates/"+tmpl.ID, alice.Token, nil).Code)
}

func TestRealtimeHandshake(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register("alice")
	bob := env.register("bob")
	project := env.createProject(alice.Token, "Live")

	rec := env.do(http.MethodGet, "/realtime/ticket", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ticket := decode[ticketResponse](t, rec).Ticket
	require.NotEmpty(t, ticket)

	bobTicket := decode[ticketResponse](t, env.do(http.MethodGet, "/realtime/ticket", bob.Token, nil)).Ticket

	query := func(ticket, table, filter string) string {
		return "/realtime?" + url.Values{
			"ticket": {ticket}, "table": {table}, "filter": {filter},
		}.Encode()
	}

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"bad ticket", query("nope", "comments", "project_id=eq."+project.ID), http.StatusUnauthorized},
		{"unknown table", query(ticket, "users", "id=eq.1"), http.StatusBadRequest},
		{"unpinned filter", query(ticket, "comments", "element_id=eq.e1"), http.StatusBadRequest},
		{"malformed filter", query(ticket, "comments", "project_id"), http.StatusBadRequest},
		{"hidden project", query(bobTicket, "comments", "project_id=eq."+project.ID), http.StatusNotFound},
		{"projects table pins id", query(ticket, "projects", "project_id=eq."+project.ID), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, env.do(http.MethodGet, tt.path, "", nil).Code)
		})
	}
}

func TestRealtimeCommentFeed(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv.Router())
	defer ts.Close()

	alice := env.register("alice")
	carol := env.register("carol")
	project := env.createProject(alice.Token, "Live")
	env.invite(alice.Token, project.ID, "carol", model.RoleViewer)

	ctx := context.Background()
	client := remote.NewClientWithConfig(&remote.Session{ServerURL: ts.URL, Token: carol.Token, UserID: carol.UserID}, "")

	var (
		mu     sync.Mutex
		events []realtime.Event
	)
	conn, err := client.Subscribe(ctx, realtime.Channel{
		Table:  tableComments,
		Event:  realtime.EventInsert,
		Filter: realtime.Filter{{Column: "project_id", Op: realtime.OpEq, Value: project.ID}},
	}, func(e realtime.Event) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return env.srv.Hub().Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	// Another project's comments stay off the channel
	other := env.createProject(alice.Token, "Other")
	rec := env.do(http.MethodPost, "/comments", alice.Token, model.NewComment{ProjectID: other.ID, ElementID: "e", Content: "elsewhere"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/comments", alice.Token, model.NewComment{ProjectID: project.ID, ElementID: "e", Content: "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	posted := decode[model.Comment](t, rec)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	got := events[0]
	mu.Unlock()
	assert.Equal(t, realtime.EventInsert, got.Type)
	var row model.Comment
	require.NoError(t, got.Decode(&row))
	assert.Equal(t, posted.ID, row.ID)
}

func TestThreadOverServer(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.srv.Router())
	defer ts.Close()

	alice := env.register("alice")
	carol := env.register("carol")
	project := env.createProject(alice.Token, "Live")
	env.invite(alice.Token, project.ID, "carol", model.RoleViewer)

	ctx := context.Background()
	aliceClient := remote.NewClientWithConfig(&remote.Session{ServerURL: ts.URL, Token: alice.Token, UserID: alice.UserID}, "")
	carolClient := remote.NewClientWithConfig(&remote.Session{ServerURL: ts.URL, Token: carol.Token, UserID: carol.UserID}, "")

	carolProfile, err := carolClient.Me(ctx)
	require.NoError(t, err)
	thread := comments.NewThread(carolClient, project.ID, "el-1", carolProfile)
	defer thread.Close()

	require.NoError(t, thread.Fetch(ctx))
	require.NoError(t, thread.Subscribe(ctx, carolClient))
	require.Eventually(t, func() bool { return env.srv.Hub().Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err = aliceClient.CreateComment(ctx, model.NewComment{ProjectID: project.ID, ElementID: "el-1", Content: "from alice"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(thread.Comments()) == 1 }, 2*time.Second, 10*time.Millisecond)

	done, err := thread.Add(ctx, "reply @alice", []string{alice.UserID})
	require.NoError(t, err)
	require.NoError(t, <-done)

	require.Eventually(t, func() bool {
		list := thread.Comments()
		return len(list) == 2 && !comments.IsTemporaryID(list[1].ID)
	}, 2*time.Second, 10*time.Millisecond)

	list := thread.Comments()
	assert.Equal(t, "from alice", list[0].Content)
	assert.Equal(t, "reply @alice", list[1].Content)

	notes, err := aliceClient.ListNotifications(ctx, true)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "carol mentioned you in a comment", notes[0].Message)
}
