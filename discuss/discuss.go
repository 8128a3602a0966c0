package discuss

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Service struct {
	commentRepo CommentRepository
	now         func() time.Time
}

func NewService(commentRepo CommentRepository) *Service {
	return &Service{
		commentRepo: commentRepo,
		now:         time.Now,
	}
}

type CreateCommentRequest struct {
	PostID          int64
	ParentCommentID *int64
	AuthorID        string
	Author          string
	AvatarURL       string
	Content         string
}

func (svc *Service) CreateComment(ctx context.Context, req CreateCommentRequest) (*Comment, error) {
	if req.AuthorID == "" || req.Author == "" {
		return nil, ErrNotSignedIn
	}

	if req.PostID <= 0 {
		return nil, ErrInvalidPostID
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	if req.ParentCommentID != nil {
		err := svc.checkParent(ctx, req.PostID, *req.ParentCommentID)
		if err != nil {
			return nil, err
		}
	}

	comment := &Comment{
		PostID:          req.PostID,
		ParentCommentID: req.ParentCommentID,
		Content:         content,
		AuthorID:        req.AuthorID,
		Author:          req.Author,
		AvatarURL:       req.AvatarURL,
		CreatedAt:       svc.now(),
	}

	err := svc.commentRepo.Insert(ctx, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}

	return comment, nil
}

func (svc *Service) checkParent(ctx context.Context, postID, parentID int64) error {
	parent, err := svc.commentRepo.Find(ctx, parentID)
	if err != nil {
		var notFoundErr *CommentNotFoundError
		if errors.As(err, &notFoundErr) {
			return &ParentCommentNotFoundError{PostID: postID, ParentCommentID: parentID}
		}

		return fmt.Errorf("failed to find parent comment: %w", err)
	}

	if parent.PostID != postID {
		return &ParentCommentNotFoundError{PostID: postID, ParentCommentID: parentID}
	}

	return nil
}

func (svc *Service) GetComment(ctx context.Context, id int64) (*Comment, error) {
	comment, err := svc.commentRepo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find comment: %w", err)
	}

	return comment, nil
}

func (svc *Service) ListComments(ctx context.Context, postID int64) ([]*Comment, error) {
	comments, err := svc.commentRepo.List(ctx, &ListCommentsParams{PostID: postID})
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	return comments, nil
}

func (svc *Service) CountComments(ctx context.Context, postID int64) (int, error) {
	count, err := svc.commentRepo.Count(ctx, postID)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}

	return count, nil
}

// Thread fetches every comment of the post and rebuilds the reply tree from scratch.
func (svc *Service) Thread(ctx context.Context, postID int64) ([]*CommentNode, error) {
	comments, err := svc.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}

	return BuildTree(comments), nil
}
