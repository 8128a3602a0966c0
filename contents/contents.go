package contents

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/gupshupx/gupshupx/media"
)

const (
	// PostImageBucket is the media bucket post images are uploaded to.
	PostImageBucket = "post-img"

	maxSlugLength = 64
)

type Service struct {
	postRepo   PostRepository
	mediaStore media.Store
	now        func() time.Time
}

func NewService(postRepo PostRepository, mediaStore media.Store) *Service {
	return &Service{
		postRepo:   postRepo,
		mediaStore: mediaStore,
		now:        time.Now,
	}
}

type CreatePostRequest struct {
	Title       string
	Content     string
	AuthorID    string
	Author      string
	AvatarURL   string
	CommunityID *int64
	ImageName   string
	Image       io.Reader
}

func (svc *Service) CreatePost(ctx context.Context, req CreatePostRequest) (*Post, error) {
	if req.AuthorID == "" {
		return nil, ErrNotSignedIn
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	if req.Image == nil || req.ImageName == "" {
		return nil, ErrMissingImage
	}

	now := svc.now()

	imageURL, err := svc.mediaStore.Upload(ctx, PostImageBucket, ImageObjectName(title, now, req.ImageName), req.Image)
	if err != nil {
		return nil, fmt.Errorf("failed to upload post image: %w", err)
	}

	post := &Post{
		Title:       title,
		Content:     content,
		ImageURL:    imageURL,
		AuthorID:    req.AuthorID,
		Author:      req.Author,
		AvatarURL:   req.AvatarURL,
		CommunityID: req.CommunityID,
		CreatedAt:   now,
	}

	// The uploaded image is not removed when the insert fails.
	err = svc.postRepo.Insert(ctx, post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

func (svc *Service) GetPost(ctx context.Context, id int64) (*Post, error) {
	post, err := svc.postRepo.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}

	return post, nil
}

func (svc *Service) ListPosts(ctx context.Context) ([]*Post, error) {
	posts, err := svc.postRepo.List(ctx, &ListPostsParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

func (svc *Service) ListPostsByCommunity(ctx context.Context, communityID int64) ([]*Post, error) {
	posts, err := svc.postRepo.List(ctx, &ListPostsParams{CommunityID: &communityID})
	if err != nil {
		return nil, fmt.Errorf("failed to list community posts: %w", err)
	}

	return posts, nil
}

// ImageObjectName builds the object name of a post image as <slug(title)>-<unix millis>-<file name>.
func ImageObjectName(title string, at time.Time, fileName string) string {
	return Slugify(title) + "-" + strconv.FormatInt(at.UnixMilli(), 10) + "-" + fileName
}

// Slugify transliterates s into a lowercase ASCII slug of at most maxSlugLength bytes.
func Slugify(s string) string {
	result := slug.Make(s)

	if len(result) > maxSlugLength {
		result = strings.TrimRight(result[:maxSlugLength], "-")
	}

	if result == "" {
		return "post"
	}

	return result
}
