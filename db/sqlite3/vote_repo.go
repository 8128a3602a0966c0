package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/gupshupx/gupshupx/votes"
)

const tableVotes = "votes"

type VoteRepository struct {
	db *sql.DB
}

var _ votes.VoteRepository = (*VoteRepository)(nil)

func NewVoteRepository(db *sql.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

const (
	voteFieldTargetType = "target_type"
	voteFieldTargetID   = "target_id"
	voteFieldUserID     = "user_id"
	voteFieldValue      = "value"
	voteFieldCreatedAt  = "created_at"
)

func voteColumns() []string {
	return []string{
		voteFieldTargetType,
		voteFieldTargetID,
		voteFieldUserID,
		voteFieldValue,
		voteFieldCreatedAt,
	}
}

func scanVote(row sq.RowScanner) (*votes.Vote, error) {
	var (
		vote       votes.Vote
		targetType string
		value      string
	)

	err := row.Scan(
		&targetType,
		&vote.TargetID,
		&vote.UserID,
		&value,
		&vote.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan vote row: %w", err)
	}

	vote.TargetType = votes.TargetType(targetType)
	vote.Value = votes.Value(value)

	return &vote, nil
}

func userTargetEq(targetType votes.TargetType, targetID int64, userID string) sq.Eq {
	return sq.Eq{
		voteFieldTargetType: string(targetType),
		voteFieldTargetID:   targetID,
		voteFieldUserID:     userID,
	}
}

func (repo *VoteRepository) FindByUserTarget(
	ctx context.Context,
	targetType votes.TargetType,
	targetID int64,
	userID string,
) (*votes.Vote, error) {
	q := sq.Select(voteColumns()...).
		From(tableVotes).
		Where(userTargetEq(targetType, targetID, userID))

	q = q.RunWith(repo.db)

	vote, err := scanVote(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &votes.VoteNotFoundError{
				TargetType: targetType,
				TargetID:   targetID,
				UserID:     userID,
			}
		}

		return nil, fmt.Errorf("failed to find vote by user target: %w", err)
	}

	return vote, nil
}

func (repo *VoteRepository) Upsert(ctx context.Context, vote *votes.Vote) error {
	q := sq.Insert(tableVotes).
		Columns(voteColumns()...).
		Values(string(vote.TargetType), vote.TargetID, vote.UserID, string(vote.Value), vote.CreatedAt.UTC()).
		Suffix("ON CONFLICT(target_type, target_id, user_id) DO UPDATE SET value = excluded.value, created_at = excluded.created_at")

	q = q.RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert vote: %w", err)
	}

	return nil
}

func (repo *VoteRepository) DeleteByUserTarget(
	ctx context.Context,
	targetType votes.TargetType,
	targetID int64,
	userID string,
) error {
	q := sq.Delete(tableVotes).
		Where(userTargetEq(targetType, targetID, userID)).
		RunWith(repo.db)

	_, err := q.ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}

	return nil
}

func (repo *VoteRepository) CountByTarget(
	ctx context.Context,
	targetType votes.TargetType,
	targetID int64,
) (map[votes.Value]int, error) {
	q := sq.Select(voteFieldValue, "COUNT(*)").
		From(tableVotes).
		Where(sq.Eq{
			voteFieldTargetType: string(targetType),
			voteFieldTargetID:   targetID,
		}).
		GroupBy(voteFieldValue).
		RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query vote counts: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close vote rows", "error", err)
		}
	}()

	counts := make(map[votes.Value]int)

	for rows.Next() {
		var value string

		var count int

		err := rows.Scan(&value, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote count row: %w", err)
		}

		counts[votes.Value(value)] = count
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate vote count rows: %w", err)
	}

	return counts, nil
}
