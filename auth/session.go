package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionLifetime is how long a sign in lasts before the user has to go through OAuth again.
const SessionLifetime = 30 * 24 * time.Hour

// Session ties a browser cookie to a signed in user.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func newSession(userID string, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(SessionLifetime),
	}
}

func (session *Session) IsExpired(now time.Time) bool {
	return !now.Before(session.ExpiresAt)
}

type SessionRepository interface {
	Insert(ctx context.Context, session *Session) (err error)
	Find(ctx context.Context, id string) (session *Session, err error)
	Delete(ctx context.Context, id string) (err error)
	// DeleteExpired removes sessions whose expiry is not after the given time.
	DeleteExpired(ctx context.Context, before time.Time) (count int64, err error)
}

type SessionNotFoundError struct {
	ID string
}

func (err SessionNotFoundError) Error() string {
	return fmt.Sprintf("session '%s' does not exist", err.ID)
}

type SessionExpiredError struct {
	ID        string
	ExpiredAt time.Time
}

func (err SessionExpiredError) Error() string {
	return fmt.Sprintf("session '%s' expired at %s", err.ID, err.ExpiredAt.Format(time.RFC3339))
}
