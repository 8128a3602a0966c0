package authcontext_test

import (
	"context"
	"testing"

	authcontext "github.com/gupshupx/gupshupx/auth/context"
	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	assert.Equal(t, authcontext.Anonymous, authcontext.GetSubject(ctx))
	assert.False(t, authcontext.IsAuthenticated(ctx))

	ctx = authcontext.WithSubject(ctx, "user-1")

	assert.Equal(t, "user-1", authcontext.GetSubject(ctx))
	assert.True(t, authcontext.IsAuthenticated(ctx))
}

func TestSessionID(t *testing.T) {
	t.Parallel()

	_, ok := authcontext.SessionIDFromContext(context.Background())
	assert.False(t, ok)

	sessionID, ok := authcontext.SessionIDFromContext(authcontext.WithSessionID(context.Background(), "s-1"))
	assert.True(t, ok)
	assert.Equal(t, "s-1", sessionID)
}
