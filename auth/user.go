package auth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type User struct {
	ID             string
	Provider       string
	ProviderUserID string
	Username       string
	AvatarURL      string
	RegisteredAt   time.Time
}

// Identity is what an identity provider tells about a signed in person.
type Identity struct {
	Provider       string
	ProviderUserID string
	Username       string
	AvatarURL      string
}

type UserRepository interface {
	Insert(ctx context.Context, user *User) (err error)
	Update(ctx context.Context, user *User) (err error)
	Find(ctx context.Context, userID string) (user *User, err error)
	FindByProvider(ctx context.Context, provider, providerUserID string) (user *User, err error)
}

type UserNotFoundError struct {
	ID string
}

func (err UserNotFoundError) Error() string {
	return fmt.Sprintf("user with id %q not found", err.ID)
}

type UserByProviderNotFoundError struct {
	Provider       string
	ProviderUserID string
}

func (err UserByProviderNotFoundError) Error() string {
	return fmt.Sprintf("user %q of provider %q not found", err.ProviderUserID, err.Provider)
}

var (
	ErrCurrentUserNotFound = errors.New("current user not found")
	ErrInvalidIdentity     = errors.New("identity provider returned an incomplete identity")
)
