package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/gorilla/csrf"
	"github.com/gupshupx/gupshupx/contents"
	"github.com/gupshupx/gupshupx/discuss"
	"github.com/gupshupx/gupshupx/votes"
	"golang.org/x/sync/errgroup"
)

type CommentView struct {
	*discuss.Comment

	Replies    []*CommentView
	ReplyCount int
	Votes      *VoteWidgetData
}

// CommentsSection is everything the comment thread fragment renders.
type CommentsSection struct {
	PostID          int64
	Comments        []*CommentView
	Count           int
	PollInterval    int
	IsAuthenticated bool
	CSRFField       template.HTML
	Error           string
	// Draft and DraftParentID refill the form that failed.
	Draft         string
	DraftParentID int64
}

// buildCommentsSection fetches the flat comment list and rebuilds the whole reply tree.
func (h *Handler) buildCommentsSection(
	ctx context.Context,
	postID int64,
	currentUserID *string,
	csrfField template.HTML,
) (*CommentsSection, error) {
	comments, err := h.discussSvc.ListComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	returnTo := postPath(postID) + "#comments"

	var mu sync.Mutex

	voteData := make(map[int64]*VoteWidgetData, len(comments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadLimit)

	for _, comment := range comments {
		g.Go(func() error {
			data, err := h.buildVoteWidgetData(gctx, votes.TargetTypeComment, comment.ID, currentUserID, returnTo, csrfField)
			if err != nil {
				return fmt.Errorf("failed to load comment votes: %w", err)
			}

			mu.Lock()
			voteData[comment.ID] = data
			mu.Unlock()

			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		return nil, err
	}

	views, _ := commentViews(discuss.BuildTree(comments), voteData)

	return &CommentsSection{
		PostID:          postID,
		Comments:        views,
		Count:           len(comments),
		PollInterval:    int(h.pollInterval.Seconds()),
		IsAuthenticated: currentUserID != nil,
		CSRFField:       csrfField,
	}, nil
}

// commentViews decorates the tree and returns the number of comments it holds, so reply counts
// come out of the same walk.
func commentViews(nodes []*discuss.CommentNode, voteData map[int64]*VoteWidgetData) ([]*CommentView, int) {
	result := make([]*CommentView, 0, len(nodes))
	total := 0

	for _, node := range nodes {
		replies, replyCount := commentViews(node.Children, voteData)

		result = append(result, &CommentView{
			Comment:    node.Comment,
			Replies:    replies,
			ReplyCount: replyCount,
			Votes:      voteData[node.ID],
		})

		total += 1 + replyCount
	}

	return result, total
}

// loadPostForComments resolves the post of a comment route and answers 404 itself when it is missing.
func (h *Handler) loadPostForComments(w http.ResponseWriter, r *http.Request) (*contents.Post, bool) {
	postID, ok := parseID(r.PathValue("postId"))
	if !ok {
		h.renderError(w, r, http.StatusNotFound, "Post not found.")

		return nil, false
	}

	post, err := h.contentsSvc.GetPost(r.Context(), postID)
	if err != nil {
		var notFoundErr *contents.PostNotFoundError
		if errors.As(err, &notFoundErr) {
			h.renderError(w, r, http.StatusNotFound, "Post not found.")

			return nil, false
		}

		h.internalError(w, r, "failed to get post", err, "postId", postID)

		return nil, false
	}

	return post, true
}

// HandleCommentsFragment renders the comment thread alone. The post page polls it to pick up new comments.
func (h *Handler) HandleCommentsFragment() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		post, ok := h.loadPostForComments(w, r)
		if !ok {
			return
		}

		section, err := h.buildCommentsSection(r.Context(), post.ID, h.currentUserIDFromRequest(r), csrf.TemplateField(r))
		if err != nil {
			h.internalError(w, r, "failed to load comments", err, "postId", post.ID)

			return
		}

		h.renderTemplate(w, r, "comments-section", map[string]any{"Comments": section})
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandlePostComment() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		post, ok := h.loadPostForComments(w, r)
		if !ok {
			return
		}

		err := r.ParseForm()
		if err != nil {
			h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")

			return
		}

		content := r.FormValue("content")

		parentCommentID, ok := parseOptionalID(r.FormValue("parent_comment_id"))
		if !ok {
			h.renderCommentError(w, r, post, http.StatusUnprocessableEntity, "The comment you replied to does not exist.", content, nil)

			return
		}

		currentUser, err := h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			h.internalError(w, r, "failed to get current user", err)

			return
		}

		_, err = h.discussSvc.CreateComment(r.Context(), discuss.CreateCommentRequest{
			PostID:          post.ID,
			ParentCommentID: parentCommentID,
			AuthorID:        currentUser.ID,
			Author:          currentUser.Username,
			AvatarURL:       currentUser.AvatarURL,
			Content:         content,
		})
		if err != nil {
			var parentErr *discuss.ParentCommentNotFoundError

			switch {
			case errors.Is(err, discuss.ErrEmptyContent):
				h.renderCommentError(w, r, post, http.StatusUnprocessableEntity, "Comment cannot be empty.", content, parentCommentID)
			case errors.As(err, &parentErr):
				h.renderCommentError(w, r, post, http.StatusUnprocessableEntity, "The comment you replied to does not exist.", content, nil)
			default:
				h.internalError(w, r, "failed to create comment", err, "postId", post.ID)
			}

			return
		}

		if !isHTMX(r) {
			http.Redirect(w, r, postPath(post.ID)+"#comments", http.StatusSeeOther)

			return
		}

		section, err := h.buildCommentsSection(r.Context(), post.ID, &currentUser.ID, csrf.TemplateField(r))
		if err != nil {
			h.internalError(w, r, "failed to load comments", err, "postId", post.ID)

			return
		}

		h.renderTemplate(w, r, "comments-section", map[string]any{"Comments": section})
	})

	return h.AuthenticatedOnly(hf)
}

// renderCommentError shows the thread again with the message next to the form that failed.
func (h *Handler) renderCommentError(
	w http.ResponseWriter,
	r *http.Request,
	post *contents.Post,
	status int,
	message string,
	draft string,
	parentCommentID *int64,
) {
	currentUserID := h.currentUserIDFromRequest(r)

	section, err := h.buildCommentsSection(r.Context(), post.ID, currentUserID, csrf.TemplateField(r))
	if err != nil {
		h.internalError(w, r, "failed to load comments", err, "postId", post.ID)

		return
	}

	section.Error = message
	section.Draft = draft

	if parentCommentID != nil {
		section.DraftParentID = *parentCommentID
	}

	if isHTMX(r) {
		h.renderTemplateStatus(w, r, status, "comments-section", map[string]any{"Comments": section})

		return
	}

	voteData, err := h.buildVoteWidgetData(r.Context(), votes.TargetTypePost, post.ID, currentUserID, postPath(post.ID), csrf.TemplateField(r))
	if err != nil {
		h.internalError(w, r, "failed to load post votes", err, "postId", post.ID)

		return
	}

	h.renderTemplateStatus(w, r, status, "view-post-page.gohtml", map[string]any{
		"SiteTitle": post.Title,
		"Post":      &FullPost{Post: post, CommentsCount: section.Count, Votes: voteData},
		"Comments":  section,
	})
}
