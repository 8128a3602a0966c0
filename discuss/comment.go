package discuss

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Comment struct {
	ID              int64
	PostID          int64
	ParentCommentID *int64
	Content         string
	AuthorID        string
	// Author and AvatarURL are copied from the commenting user when the comment is created.
	Author    string
	AvatarURL string
	CreatedAt time.Time
}

type CommentRepository interface {
	Insert(ctx context.Context, comment *Comment) (err error)
	Find(ctx context.Context, id int64) (comment *Comment, err error)
	List(ctx context.Context, params *ListCommentsParams) (comments []*Comment, err error)
	Count(ctx context.Context, postID int64) (count int, err error)
}

type ListCommentsParams struct {
	PostID int64
}

type CommentNotFoundError struct {
	ID int64
}

func (err CommentNotFoundError) Error() string {
	return fmt.Sprintf("comment with id %d not found", err.ID)
}

type ParentCommentNotFoundError struct {
	PostID          int64
	ParentCommentID int64
}

func (err ParentCommentNotFoundError) Error() string {
	return fmt.Sprintf("parent comment %d not found on post %d", err.ParentCommentID, err.PostID)
}

var (
	ErrEmptyContent  = errors.New("comment content is empty")
	ErrNotSignedIn   = errors.New("you must be logged in to comment")
	ErrInvalidPostID = errors.New("invalid post id")
)
