package identity

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersonalWorkspace(t *testing.T) {
	tests := []struct {
		name     string
		username string
		expected string
	}{
		{
			name:     "simple user login",
			username: "alice",
			expected: "alice",
		},
		{
			name:     "organizational login",
			username: "acme/alice",
			expected: "acme",
		},
		{
			name:     "nested organizational login",
			username: "acme/teams/ml",
			expected: "acme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PersonalWorkspace(tt.username))
		})
	}
}

func TestDefaultWorkspace(t *testing.T) {
	id := &Identity{UserID: "u1", Username: "alice"}
	assert.Equal(t, "alice", id.DefaultWorkspace())

	id.Workspace = "acme"
	assert.Equal(t, "acme", id.DefaultWorkspace())

	var anon *Identity
	assert.Equal(t, "", anon.DefaultWorkspace())
}

func TestAnonymous(t *testing.T) {
	var anon *Identity
	assert.True(t, anon.Anonymous())
	assert.True(t, (&Identity{}).Anonymous())
	assert.False(t, (&Identity{UserID: "u1"}).Anonymous())
}

func TestContextGetSet(t *testing.T) {
	ctx := context.Background()

	id, ok := Get(ctx)
	assert.False(t, ok)
	assert.Nil(t, id)

	expected := (&Identity{UserID: "u1", Username: "alice"}).
		WithRemoteIP(net.ParseIP("192.168.1.100"))
	ctx = Set(ctx, expected)

	id, ok = Get(ctx)
	assert.True(t, ok)
	require.NotNil(t, id)
	assert.Equal(t, "u1", id.UserID)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, net.ParseIP("192.168.1.100"), id.RemoteIP)
}
