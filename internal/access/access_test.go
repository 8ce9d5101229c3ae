package access

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		actor string
		facts Facts
		want  Role
	}{
		{"owner", "u1", Facts{OwnerID: "u1"}, RoleOwner},
		{"owner of public project", "u1", Facts{OwnerID: "u1", IsPublic: true}, RoleOwner},
		{"admin collaborator", "u2", Facts{OwnerID: "u1", CollaboratorRole: RoleAdmin}, RoleAdmin},
		{"editor collaborator", "u2", Facts{OwnerID: "u1", CollaboratorRole: RoleEditor}, RoleEditor},
		{"viewer on public project", "u2", Facts{OwnerID: "u1", CollaboratorRole: RoleViewer, IsPublic: true}, RoleViewer},
		{"stranger on public project", "u3", Facts{OwnerID: "u1", IsPublic: true}, RoleViewer},
		{"anonymous on public project", "", Facts{OwnerID: "u1", IsPublic: true}, RoleViewer},
		{"stranger on private project", "u3", Facts{OwnerID: "u1"}, RoleNone},
		{"anonymous on private project", "", Facts{OwnerID: "u1"}, RoleNone},
		{"anonymous ignores collaborator role", "", Facts{OwnerID: "u1", CollaboratorRole: RoleEditor}, RoleNone},
		{"unknown stored role", "u2", Facts{OwnerID: "u1", CollaboratorRole: "superuser"}, RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.actor, tt.facts))
		})
	}
}

func TestPermissionsFor(t *testing.T) {
	tests := []struct {
		role Role
		want Permissions
	}{
		{RoleOwner, Permissions{Role: RoleOwner, CanView: true, CanEdit: true, CanShare: true, CanInvite: true, CanComment: true, CanDelete: true}},
		{RoleAdmin, Permissions{Role: RoleAdmin, CanView: true, CanEdit: true, CanShare: true, CanInvite: true, CanComment: true}},
		{RoleEditor, Permissions{Role: RoleEditor, CanView: true, CanEdit: true, CanComment: true}},
		{RoleViewer, Permissions{Role: RoleViewer, CanView: true, CanComment: true}},
		{RoleNone, Permissions{Role: RoleNone}},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, PermissionsFor(tt.role, true))
		})
	}

	anon := PermissionsFor(RoleViewer, false)
	assert.True(t, anon.CanView)
	assert.False(t, anon.CanComment)
}

func TestEvaluate_PrivateStranger(t *testing.T) {
	p := Evaluate("u9", Facts{OwnerID: "u1"})
	assert.Equal(t, RoleNone, p.Role)
	assert.False(t, p.CanView)
	assert.False(t, p.CanComment)
}

type countingSource struct {
	calls int
	facts Facts
	err   error
}

func (c *countingSource) AccessFacts(ctx context.Context, projectID string) (Facts, error) {
	c.calls++
	return c.facts, c.err
}

func TestResolver_Caches(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{facts: Facts{OwnerID: "u1", CollaboratorRole: RoleEditor}}
	r := NewResolver(src)

	p, err := r.Permissions(ctx, "p1", "u2")
	require.NoError(t, err)
	assert.True(t, p.CanEdit)

	_, err = r.Permissions(ctx, "p1", "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls)

	p, err = r.Permissions(ctx, "p1", "u1")
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, p.Role)
	assert.Equal(t, 2, src.calls)

	_, err = r.Permissions(ctx, "p2", "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)

	r.Invalidate()
	_, err = r.Permissions(ctx, "p2", "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, src.calls)
}

func TestResolver_ErrorDeniesAndDoesNotCache(t *testing.T) {
	ctx := context.Background()
	src := &countingSource{err: errors.New("network down")}
	r := NewResolver(src)

	p, err := r.Permissions(ctx, "p1", "u2")
	require.Error(t, err)
	assert.False(t, p.CanView)

	src.err = nil
	src.facts = Facts{OwnerID: "u2"}
	p, err = r.Permissions(ctx, "p1", "u2")
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, p.Role)
}
