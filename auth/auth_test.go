package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gupshupx/gupshupx/auth"
	authcontext "github.com/gupshupx/gupshupx/auth/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]*auth.User)}
}

func (repo *memoryUserRepo) Insert(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	stored := *user
	repo.users[user.ID] = &stored

	return nil
}

func (repo *memoryUserRepo) Update(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	if _, ok := repo.users[user.ID]; !ok {
		return &auth.UserNotFoundError{ID: user.ID}
	}

	stored := *user
	repo.users[user.ID] = &stored

	return nil
}

func (repo *memoryUserRepo) Find(_ context.Context, userID string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.users[userID]
	if !ok {
		return nil, &auth.UserNotFoundError{ID: userID}
	}

	found := *user

	return &found, nil
}

func (repo *memoryUserRepo) FindByProvider(_ context.Context, provider, providerUserID string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	for _, user := range repo.users {
		if user.Provider == provider && user.ProviderUserID == providerUserID {
			found := *user

			return &found, nil
		}
	}

	return nil, &auth.UserByProviderNotFoundError{Provider: provider, ProviderUserID: providerUserID}
}

type memorySessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*auth.Session
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]*auth.Session)}
}

func (repo *memorySessionRepo) Insert(_ context.Context, session *auth.Session) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	repo.sessions[session.ID] = session

	return nil
}

func (repo *memorySessionRepo) Find(_ context.Context, id string) (*auth.Session, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	session, ok := repo.sessions[id]
	if !ok {
		return nil, &auth.SessionNotFoundError{ID: id}
	}

	return session, nil
}

func (repo *memorySessionRepo) Delete(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	delete(repo.sessions, id)

	return nil
}

func (repo *memorySessionRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var count int64

	for id, session := range repo.sessions {
		if session.ExpiresAt.Before(before) {
			delete(repo.sessions, id)

			count++
		}
	}

	return count, nil
}

func githubIdentity(username string) auth.Identity {
	return auth.Identity{
		Provider:       "github",
		ProviderUserID: "42",
		Username:       username,
		AvatarURL:      "https://avatars.example.com/" + username + ".png",
	}
}

func TestService_SignIn(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	userRepo := newMemoryUserRepo()
	svc := auth.NewService(userRepo, newMemorySessionRepo())

	first, err := svc.SignIn(ctx, githubIdentity("alice"))
	require.NoError(t, err)
	assert.WithinDuration(t, first.CreatedAt.Add(auth.SessionLifetime), first.ExpiresAt, time.Second)

	second, err := svc.SignIn(ctx, githubIdentity("alice-renamed"))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.UserID, second.UserID)
	require.Len(t, userRepo.users, 1)

	user, err := svc.GetUser(ctx, second.UserID)
	require.NoError(t, err)
	assert.Equal(t, "alice-renamed", user.Username)
	assert.Equal(t, "https://avatars.example.com/alice-renamed.png", user.AvatarURL)

	other := githubIdentity("bob")
	other.Provider = "google"

	third, err := svc.SignIn(ctx, other)
	require.NoError(t, err)
	assert.NotEqual(t, first.UserID, third.UserID)
}

func TestService_SignInInvalidIdentity(t *testing.T) {
	t.Parallel()

	svc := auth.NewService(newMemoryUserRepo(), newMemorySessionRepo())

	identity := githubIdentity("  ")

	_, err := svc.SignIn(context.Background(), identity)
	require.ErrorIs(t, err, auth.ErrInvalidIdentity)

	identity = githubIdentity("alice")
	identity.ProviderUserID = ""

	_, err = svc.SignIn(context.Background(), identity)
	require.ErrorIs(t, err, auth.ErrInvalidIdentity)
}

func TestService_GetSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sessionRepo := newMemorySessionRepo()
	svc := auth.NewService(newMemoryUserRepo(), sessionRepo)

	session, err := svc.SignIn(ctx, githubIdentity("alice"))
	require.NoError(t, err)

	found, err := svc.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, found.UserID)

	svc.SetNow(func() time.Time { return time.Now().Add(31 * 24 * time.Hour) })

	_, err = svc.GetSession(ctx, session.ID)

	var expiredErr *auth.SessionExpiredError
	require.ErrorAs(t, err, &expiredErr)
	assert.Empty(t, sessionRepo.sessions)

	_, err = svc.GetSession(ctx, session.ID)

	var notFoundErr *auth.SessionNotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestService_LogoutAndCurrentUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := auth.NewService(newMemoryUserRepo(), newMemorySessionRepo())

	_, err := svc.GetCurrentUser(ctx)
	require.ErrorIs(t, err, auth.ErrCurrentUserNotFound)

	session, err := svc.SignIn(ctx, githubIdentity("alice"))
	require.NoError(t, err)

	user, err := svc.GetCurrentUser(authcontext.WithSubject(ctx, session.UserID))
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	require.NoError(t, svc.Logout(ctx, session.ID))

	_, err = svc.GetSession(ctx, session.ID)

	var notFoundErr *auth.SessionNotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

func TestService_PurgeExpiredSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	sessionRepo := newMemorySessionRepo()
	svc := auth.NewService(newMemoryUserRepo(), sessionRepo)

	_, err := svc.SignIn(ctx, githubIdentity("alice"))
	require.NoError(t, err)

	count, err := svc.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	svc.SetNow(func() time.Time { return time.Now().Add(31 * 24 * time.Hour) })

	count, err = svc.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Empty(t, sessionRepo.sessions)
}

func TestSession_IsExpired(t *testing.T) {
	t.Parallel()

	expiresAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	session := &auth.Session{ID: "s1", ExpiresAt: expiresAt}

	assert.False(t, session.IsExpired(expiresAt.Add(-time.Second)))
	assert.True(t, session.IsExpired(expiresAt))
	assert.True(t, session.IsExpired(expiresAt.Add(time.Hour)))
}
