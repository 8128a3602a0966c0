package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/gupshupx/gupshupx/communities"
)

const tableCommunities = "communities"

type CommunityRepository struct {
	db *sql.DB
}

var _ communities.CommunityRepository = (*CommunityRepository)(nil)

func NewCommunityRepository(db *sql.DB) *CommunityRepository {
	return &CommunityRepository{db: db}
}

const (
	communityFieldID          = "id"
	communityFieldName        = "name"
	communityFieldDescription = "description"
	communityFieldCreatedAt   = "created_at"
)

func communityColumns() []string {
	return []string{
		communityFieldID,
		communityFieldName,
		communityFieldDescription,
		communityFieldCreatedAt,
	}
}

func scanCommunity(row sq.RowScanner) (*communities.Community, error) {
	var community communities.Community

	err := row.Scan(
		&community.ID,
		&community.Name,
		&community.Description,
		&community.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &community, nil
}

func (repo *CommunityRepository) Insert(ctx context.Context, community *communities.Community) error {
	q := sq.Insert(tableCommunities).
		Columns(communityFieldName, communityFieldDescription, communityFieldCreatedAt).
		Values(community.Name, community.Description, community.CreatedAt.UTC())

	q = q.RunWith(repo.db)

	result, err := q.ExecContext(ctx)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &communities.CommunityAlreadyExistsError{Name: community.Name}
		}

		return fmt.Errorf("failed to exec insert: %w", err)
	}

	community.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	return nil
}

func (repo *CommunityRepository) Find(ctx context.Context, id int64) (*communities.Community, error) {
	q := sq.Select(communityColumns()...).
		From(tableCommunities).
		Where(sq.Eq{communityFieldID: id})

	q = q.RunWith(repo.db)

	community, err := scanCommunity(q.QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &communities.CommunityNotFoundError{ID: id}
		}

		return nil, fmt.Errorf("failed to scan community: %w", err)
	}

	return community, nil
}

func (repo *CommunityRepository) List(ctx context.Context) ([]*communities.Community, error) {
	q := sq.Select(communityColumns()...).
		From(tableCommunities).
		OrderBy(communityFieldID + " DESC")

	q = q.RunWith(repo.db)

	rows, err := q.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			slog.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	result := make([]*communities.Community, 0)

	for rows.Next() {
		community, err := scanCommunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan community: %w", err)
		}

		result = append(result, community)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return result, nil
}
