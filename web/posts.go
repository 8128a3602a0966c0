package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/gupshupx/gupshupx/communities"
	"github.com/gupshupx/gupshupx/contents"
	"github.com/gupshupx/gupshupx/media"
	"github.com/gupshupx/gupshupx/votes"
	"golang.org/x/sync/errgroup"
)

// preloadLimit bounds the concurrent lookups made while decorating a list of posts or comments.
const preloadLimit = 8

type FullPost struct {
	*contents.Post

	Community     *communities.Community
	CommentsCount int
	Votes         *VoteWidgetData
}

func postPath(postID int64) string {
	return "/post/" + strconv.FormatInt(postID, 10)
}

// preloadPosts attaches comment counts and votes to every post.
func (h *Handler) preloadPosts(
	ctx context.Context,
	posts []*contents.Post,
	currentUserID *string,
	returnTo string,
	csrfField template.HTML,
) ([]*FullPost, error) {
	result := make([]*FullPost, len(posts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadLimit)

	for i, post := range posts {
		g.Go(func() error {
			commentsCount, err := h.discussSvc.CountComments(ctx, post.ID)
			if err != nil {
				return fmt.Errorf("failed to count comments: %w", err)
			}

			voteData, err := h.buildVoteWidgetData(ctx, votes.TargetTypePost, post.ID, currentUserID, returnTo, csrfField)
			if err != nil {
				return fmt.Errorf("failed to load post votes: %w", err)
			}

			result[i] = &FullPost{
				Post:          post,
				CommentsCount: commentsCount,
				Votes:         voteData,
			}

			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (h *Handler) HandleHomePage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts, err := h.contentsSvc.ListPosts(r.Context())
		if err != nil {
			h.internalError(w, r, "failed to list posts", err)

			return
		}

		fullPosts, err := h.preloadPosts(r.Context(), posts, h.currentUserIDFromRequest(r), "/", csrf.TemplateField(r))
		if err != nil {
			h.internalError(w, r, "failed to preload posts", err)

			return
		}

		h.renderTemplate(w, r, "home-page.gohtml", map[string]any{
			"Posts": fullPosts,
		})
	})

	return h.AuthenticatedOnly(hf)
}

type createPostForm struct {
	Title       string
	Content     string
	CommunityID string
}

func (h *Handler) renderCreatePostPage(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	form createPostForm,
	errorMessage string,
) {
	communityList, err := h.communitiesSvc.ListCommunities(r.Context())
	if err != nil {
		h.internalError(w, r, "failed to list communities", err)

		return
	}

	name := "create-post-page.gohtml"
	if isHTMX(r) {
		name = "create-post-form"
	}

	h.renderTemplateStatus(w, r, status, name, map[string]any{
		"SiteTitle":   "Create Post",
		"Form":        form,
		"Communities": communityList,
		"Error":       errorMessage,
	})
}

func (h *Handler) HandleCreatePostPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		form := createPostForm{CommunityID: r.URL.Query().Get("community")}

		h.renderCreatePostPage(w, r, http.StatusOK, form, "")
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleCreatePost() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseMultipartForm(h.maxUploadSize)
		if err != nil {
			var maxBytesErr *http.MaxBytesError
			if errors.As(err, &maxBytesErr) {
				h.renderCreatePostPage(w, r, http.StatusRequestEntityTooLarge, createPostForm{}, "The image is too large.")

				return
			}

			h.renderCreatePostPage(w, r, http.StatusBadRequest, createPostForm{}, "The form could not be read.")

			return
		}

		form := createPostForm{
			Title:       r.FormValue("title"),
			Content:     r.FormValue("content"),
			CommunityID: r.FormValue("community_id"),
		}

		communityID, ok := parseOptionalID(form.CommunityID)
		if !ok {
			h.renderCreatePostPage(w, r, http.StatusUnprocessableEntity, form, "Choose a valid community.")

			return
		}

		if communityID != nil {
			_, err = h.communitiesSvc.GetCommunity(r.Context(), *communityID)
			if err != nil {
				var notFoundErr *communities.CommunityNotFoundError
				if errors.As(err, &notFoundErr) {
					h.renderCreatePostPage(w, r, http.StatusUnprocessableEntity, form, "Choose a valid community.")

					return
				}

				h.internalError(w, r, "failed to get community", err)

				return
			}
		}

		currentUser, err := h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			h.internalError(w, r, "failed to get current user", err)

			return
		}

		req := contents.CreatePostRequest{
			Title:       form.Title,
			Content:     form.Content,
			AuthorID:    currentUser.ID,
			Author:      currentUser.Username,
			AvatarURL:   currentUser.AvatarURL,
			CommunityID: communityID,
		}

		file, header, err := formImage(r)
		if err != nil {
			h.internalError(w, r, "failed to read uploaded image", err)

			return
		}

		if file != nil {
			defer func() {
				_ = file.Close()
			}()

			req.Image = file
			req.ImageName = header.Filename
		}

		post, err := h.contentsSvc.CreatePost(r.Context(), req)
		if err != nil {
			message, status := createPostErrorMessage(err)
			if status == http.StatusInternalServerError {
				h.internalError(w, r, "failed to create post", err)

				return
			}

			h.renderCreatePostPage(w, r, status, form, message)

			return
		}

		redirect(w, r, postPath(post.ID))
	})

	return h.AuthenticatedOnly(hf)
}

// formImage returns the uploaded post image, or a nil file when the form carries none.
func formImage(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}

		return nil, nil, fmt.Errorf("failed to open image form file: %w", err)
	}

	return file, header, nil
}

func createPostErrorMessage(err error) (string, int) {
	var (
		typeErr   *media.UnsupportedMediaTypeError
		nameErr   *media.InvalidObjectNameError
		existsErr *media.ObjectAlreadyExistsError
	)

	switch {
	case errors.Is(err, contents.ErrEmptyTitle):
		return "Title is required.", http.StatusUnprocessableEntity
	case errors.Is(err, contents.ErrEmptyContent):
		return "Content is required.", http.StatusUnprocessableEntity
	case errors.Is(err, contents.ErrMissingImage), errors.Is(err, media.ErrEmptyObject):
		return "An image is required.", http.StatusUnprocessableEntity
	case errors.As(err, &typeErr):
		return "Only PNG, JPEG, GIF, WebP and AVIF images are supported.", http.StatusUnsupportedMediaType
	case errors.As(err, &nameErr):
		return "The image file name is not valid.", http.StatusUnprocessableEntity
	case errors.As(err, &existsErr):
		return "An image with this name was just uploaded. Please try again.", http.StatusConflict
	default:
		return "", http.StatusInternalServerError
	}
}

func (h *Handler) HandleViewPostPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		postID, ok := parseID(r.PathValue("postId"))
		if !ok {
			h.renderError(w, r, http.StatusNotFound, "Post not found.")

			return
		}

		post, err := h.contentsSvc.GetPost(r.Context(), postID)
		if err != nil {
			var notFoundErr *contents.PostNotFoundError
			if errors.As(err, &notFoundErr) {
				h.renderError(w, r, http.StatusNotFound, "Post not found.")

				return
			}

			h.internalError(w, r, "failed to get post", err, "postId", postID)

			return
		}

		currentUserID := h.currentUserIDFromRequest(r)
		returnTo := postPath(post.ID)
		csrfField := csrf.TemplateField(r)

		fullPost := &FullPost{Post: post}

		var section *CommentsSection

		g, ctx := errgroup.WithContext(r.Context())

		g.Go(func() error {
			voteData, err := h.buildVoteWidgetData(ctx, votes.TargetTypePost, post.ID, currentUserID, returnTo, csrfField)
			if err != nil {
				return fmt.Errorf("failed to load post votes: %w", err)
			}

			fullPost.Votes = voteData

			return nil
		})

		g.Go(func() error {
			var err error

			section, err = h.buildCommentsSection(ctx, post.ID, currentUserID, csrfField)
			if err != nil {
				return fmt.Errorf("failed to load comments: %w", err)
			}

			fullPost.CommentsCount = section.Count

			return nil
		})

		if post.CommunityID != nil {
			g.Go(func() error {
				community, err := h.communitiesSvc.GetCommunity(ctx, *post.CommunityID)
				if err != nil {
					var notFoundErr *communities.CommunityNotFoundError
					if errors.As(err, &notFoundErr) {
						return nil
					}

					return fmt.Errorf("failed to get community: %w", err)
				}

				fullPost.Community = community

				return nil
			})
		}

		err = g.Wait()
		if err != nil {
			h.internalError(w, r, "failed to load post page", err, "postId", post.ID)

			return
		}

		h.renderTemplate(w, r, "view-post-page.gohtml", map[string]any{
			"SiteTitle": post.Title,
			"Post":      fullPost,
			"Comments":  section,
		})
	})

	return h.AuthenticatedOnly(hf)
}
