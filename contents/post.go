package contents

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Post struct {
	ID          int64
	Title       string
	Content     string
	ImageURL    string
	AuthorID    string
	Author      string
	AvatarURL   string
	CommunityID *int64
	CreatedAt   time.Time
}

type PostRepository interface {
	Insert(ctx context.Context, post *Post) (err error)
	Find(ctx context.Context, id int64) (post *Post, err error)
	List(ctx context.Context, params *ListPostsParams) (posts []*Post, err error)
}

// ListPostsParams filters the post list. A nil CommunityID lists posts of every community.
type ListPostsParams struct {
	CommunityID *int64
}

type PostNotFoundError struct {
	ID int64
}

func (err PostNotFoundError) Error() string {
	return fmt.Sprintf("post with id %d not found", err.ID)
}

var (
	ErrEmptyTitle   = errors.New("post title is required")
	ErrEmptyContent = errors.New("post content is required")
	ErrMissingImage = errors.New("post image is required")
	ErrNotSignedIn  = errors.New("you must be logged in to post")
)
