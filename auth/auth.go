package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	authcontext "github.com/gupshupx/gupshupx/auth/context"
)

type Service struct {
	userRepo    UserRepository
	sessionRepo SessionRepository
	now         func() time.Time
}

func NewService(userRepo UserRepository, sessionRepo SessionRepository) *Service {
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		now:         time.Now,
	}
}

// SignIn finds or registers the user behind identity and opens a new session for them.
// Display name and avatar are refreshed from the identity on every sign in.
func (svc *Service) SignIn(ctx context.Context, identity Identity) (*Session, error) {
	identity.Username = strings.TrimSpace(identity.Username)

	if identity.Provider == "" || identity.ProviderUserID == "" || identity.Username == "" {
		return nil, ErrInvalidIdentity
	}

	user, err := svc.upsertUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	session := newSession(user.ID, svc.now())

	err = svc.sessionRepo.Insert(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

func (svc *Service) upsertUser(ctx context.Context, identity Identity) (*User, error) {
	user, err := svc.userRepo.FindByProvider(ctx, identity.Provider, identity.ProviderUserID)
	if err != nil {
		var notFoundErr *UserByProviderNotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to find user by provider: %w", err)
		}

		user = &User{
			ID:             uuid.NewString(),
			Provider:       identity.Provider,
			ProviderUserID: identity.ProviderUserID,
			Username:       identity.Username,
			AvatarURL:      identity.AvatarURL,
			RegisteredAt:   svc.now(),
		}

		err = svc.userRepo.Insert(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("failed to register user: %w", err)
		}

		return user, nil
	}

	if user.Username == identity.Username && user.AvatarURL == identity.AvatarURL {
		return user, nil
	}

	user.Username = identity.Username
	user.AvatarURL = identity.AvatarURL

	err = svc.userRepo.Update(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to update user profile: %w", err)
	}

	return user, nil
}

func (svc *Service) Logout(ctx context.Context, sessionID string) error {
	err := svc.sessionRepo.Delete(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

func (svc *Service) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	session, err := svc.sessionRepo.Find(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if session.IsExpired(svc.now()) {
		err = svc.sessionRepo.Delete(ctx, sessionID)
		if err != nil {
			slog.ErrorContext(ctx, "failed to delete expired session", "sessionId", sessionID, "error", err)
		}

		return nil, &SessionExpiredError{ID: sessionID, ExpiredAt: session.ExpiresAt}
	}

	return session, nil
}

// PurgeExpiredSessions removes sessions that expired without being used again.
func (svc *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	count, err := svc.sessionRepo.DeleteExpired(ctx, svc.now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return count, nil
}

func (svc *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := svc.userRepo.Find(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}

	return user, nil
}

func (svc *Service) GetCurrentUser(ctx context.Context) (*User, error) {
	sub := authcontext.GetSubject(ctx)
	if sub == authcontext.Anonymous {
		return nil, ErrCurrentUserNotFound
	}

	user, err := svc.GetUser(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	return user, nil
}
