package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gupshupx/gupshupx/auth"
)

const tableSessions = "sessions"

type SessionRepository struct {
	db *sql.DB
}

var _ auth.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const (
	sessionFieldID        = "id"
	sessionFieldUserID    = "user_id"
	sessionFieldCreatedAt = "created_at"
	sessionFieldExpiresAt = "expires_at"
)

func sessionColumns() []string {
	return []string{
		sessionFieldID,
		sessionFieldUserID,
		sessionFieldCreatedAt,
		sessionFieldExpiresAt,
	}
}

func scanSession(row sq.RowScanner) (*auth.Session, error) {
	var session auth.Session

	err := row.Scan(&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &session, nil
}

// Insert stores timestamps in UTC so expiry comparisons in SQL stay lexical.
func (repo *SessionRepository) Insert(ctx context.Context, session *auth.Session) error {
	_, err := sq.Insert(tableSessions).
		Columns(sessionColumns()...).
		Values(session.ID, session.UserID, session.CreatedAt.UTC(), session.ExpiresAt.UTC()).
		RunWith(repo.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

func (repo *SessionRepository) Find(ctx context.Context, id string) (*auth.Session, error) {
	row := sq.Select(sessionColumns()...).
		From(tableSessions).
		Where(sq.Eq{sessionFieldID: id}).
		RunWith(repo.db).
		QueryRowContext(ctx)

	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &auth.SessionNotFoundError{ID: id}
		}

		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

func (repo *SessionRepository) deleteWhere(ctx context.Context, pred any) (int64, error) {
	return execRowsAffected(ctx, sq.Delete(tableSessions).Where(pred).RunWith(repo.db))
}

func (repo *SessionRepository) Delete(ctx context.Context, id string) error {
	deleted, err := repo.deleteWhere(ctx, sq.Eq{sessionFieldID: id})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	if deleted == 0 {
		return &auth.SessionNotFoundError{ID: id}
	}

	return nil
}

// DeleteExpired removes every session that expired at or before t and reports how many were removed.
func (repo *SessionRepository) DeleteExpired(ctx context.Context, t time.Time) (int64, error) {
	deleted, err := repo.deleteWhere(ctx, sq.LtOrEq{sessionFieldExpiresAt: t.UTC()})
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return deleted, nil
}
