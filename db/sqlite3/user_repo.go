package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/gupshupx/gupshupx/auth"
)

const tableUsers = "users"

type UserRepository struct {
	db *sql.DB
}

var _ auth.UserRepository = (*UserRepository)(nil)

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const (
	userFieldID             = "id"
	userFieldProvider       = "provider"
	userFieldProviderUserID = "provider_user_id"
	userFieldUsername       = "username"
	userFieldAvatarURL      = "avatar_url"
	userFieldRegisteredAt   = "registered_at"
)

func userColumns() []string {
	return []string{
		userFieldID,
		userFieldProvider,
		userFieldProviderUserID,
		userFieldUsername,
		userFieldAvatarURL,
		userFieldRegisteredAt,
	}
}

func scanUser(row sq.RowScanner) (*auth.User, error) {
	var user auth.User

	err := row.Scan(
		&user.ID,
		&user.Provider,
		&user.ProviderUserID,
		&user.Username,
		&user.AvatarURL,
		&user.RegisteredAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &user, nil
}

func (repo *UserRepository) Insert(ctx context.Context, user *auth.User) error {
	q := sq.Insert(tableUsers).
		Columns(userColumns()...).
		Values(user.ID, user.Provider, user.ProviderUserID, user.Username, user.AvatarURL, user.RegisteredAt)

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to exec insert: %w", err)
	}

	return nil
}

func (repo *UserRepository) Update(ctx context.Context, user *auth.User) error {
	q := sq.Update(tableUsers).
		Set(userFieldUsername, user.Username).
		Set(userFieldAvatarURL, user.AvatarURL).
		Where(sq.Eq{userFieldID: user.ID})

	rowsAffected, err := execRowsAffected(ctx, q.RunWith(repo.db))
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if rowsAffected == 0 {
		return &auth.UserNotFoundError{ID: user.ID}
	}

	return nil
}

func (repo *UserRepository) Find(ctx context.Context, userID string) (*auth.User, error) {
	q := sq.Select(userColumns()...).
		From(tableUsers).
		Where(sq.Eq{userFieldID: userID})

	q = q.RunWith(repo.db)

	user, err := scanUser(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &auth.UserNotFoundError{ID: userID}
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}

func (repo *UserRepository) FindByProvider(ctx context.Context, provider, providerUserID string) (*auth.User, error) {
	q := sq.Select(userColumns()...).
		From(tableUsers).
		Where(sq.Eq{
			userFieldProvider:       provider,
			userFieldProviderUserID: providerUserID,
		})

	q = q.RunWith(repo.db)

	user, err := scanUser(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &auth.UserByProviderNotFoundError{Provider: provider, ProviderUserID: providerUserID}
		}

		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return user, nil
}
