package communities

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Community struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

type CommunityRepository interface {
	Insert(ctx context.Context, community *Community) (err error)
	Find(ctx context.Context, id int64) (community *Community, err error)
	List(ctx context.Context) (communities []*Community, err error)
}

type CommunityNotFoundError struct {
	ID int64
}

func (err CommunityNotFoundError) Error() string {
	return fmt.Sprintf("community with id %d not found", err.ID)
}

type CommunityAlreadyExistsError struct {
	Name string
}

func (err CommunityAlreadyExistsError) Error() string {
	return fmt.Sprintf("community with name %q already exists", err.Name)
}

var (
	ErrEmptyName        = errors.New("community name is required")
	ErrEmptyDescription = errors.New("community description is required")
)
