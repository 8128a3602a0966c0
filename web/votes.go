package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/gupshupx/gupshupx/contents"
	"github.com/gupshupx/gupshupx/discuss"
	"github.com/gupshupx/gupshupx/votes"
)

type VoteWidgetData struct {
	TargetType      votes.TargetType
	TargetID        int64
	Likes           int
	Dislikes        int
	Score           int
	Selected        votes.Value
	ReturnTo        string
	IsAuthenticated bool
	CSRFField       template.HTML
}

func (h *Handler) buildVoteWidgetData(
	ctx context.Context,
	targetType votes.TargetType,
	targetID int64,
	currentUserID *string,
	returnTo string,
	csrfField template.HTML,
) (*VoteWidgetData, error) {
	targetVotes, err := h.votesSvc.GetTargetVotes(ctx, targetType, targetID, currentUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get target votes: %w", err)
	}

	return &VoteWidgetData{
		TargetType:      targetVotes.TargetType,
		TargetID:        targetVotes.TargetID,
		Likes:           targetVotes.Likes,
		Dislikes:        targetVotes.Dislikes,
		Score:           targetVotes.Score,
		Selected:        targetVotes.Selected,
		ReturnTo:        returnTo,
		IsAuthenticated: currentUserID != nil,
		CSRFField:       csrfField,
	}, nil
}

func (h *Handler) HandleToggleVote() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		targetType := votes.TargetType(r.PathValue("targetType"))

		targetID, ok := parseID(r.PathValue("targetId"))
		if !ok {
			h.renderError(w, r, http.StatusBadRequest, "Invalid vote target.")

			return
		}

		err := r.ParseForm()
		if err != nil {
			h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")

			return
		}

		returnTo := sanitizeReturnToPath(r.FormValue("return_to"))
		value := votes.Value(r.FormValue("value"))

		exists, err := h.voteTargetExists(r.Context(), targetType, targetID)
		if err != nil {
			h.internalError(w, r, "failed to resolve vote target", err, "targetType", targetType, "targetId", targetID)

			return
		}

		if !exists {
			h.renderError(w, r, http.StatusNotFound, "There is nothing to vote on here.")

			return
		}

		currentUser, err := h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			h.internalError(w, r, "failed to get current user for vote", err)

			return
		}

		err = h.votesSvc.ToggleVote(r.Context(), targetType, targetID, currentUser.ID, value)
		if err != nil {
			var invalidTargetTypeErr *votes.InvalidTargetTypeError

			var invalidValueErr *votes.InvalidValueError

			switch {
			case errors.As(err, &invalidTargetTypeErr):
				h.renderError(w, r, http.StatusBadRequest, "Invalid vote target.")
			case errors.As(err, &invalidValueErr):
				h.renderError(w, r, http.StatusBadRequest, "Invalid vote.")
			default:
				h.internalError(w, r, "failed to toggle vote", err)
			}

			return
		}

		if !isHTMX(r) {
			http.Redirect(w, r, returnTo, http.StatusSeeOther)

			return
		}

		widgetData, err := h.buildVoteWidgetData(
			r.Context(),
			targetType,
			targetID,
			&currentUser.ID,
			returnTo,
			csrf.TemplateField(r),
		)
		if err != nil {
			h.internalError(w, r, "failed to load updated vote widget", err)

			return
		}

		h.renderTemplate(w, r, "vote-widget", map[string]any{"Votes": widgetData})
	})

	return h.AuthenticatedOnly(hf)
}

// voteTargetExists reports whether the post or comment being voted on is stored.
// Unknown target types pass through so ToggleVote can reject them.
func (h *Handler) voteTargetExists(ctx context.Context, targetType votes.TargetType, targetID int64) (bool, error) {
	var err error

	switch targetType {
	case votes.TargetTypePost:
		_, err = h.contentsSvc.GetPost(ctx, targetID)
	case votes.TargetTypeComment:
		_, err = h.discussSvc.GetComment(ctx, targetID)
	default:
		return true, nil
	}

	var (
		postNotFoundErr    *contents.PostNotFoundError
		commentNotFoundErr *discuss.CommentNotFoundError
	)

	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &postNotFoundErr), errors.As(err, &commentNotFoundErr):
		return false, nil
	default:
		return false, err
	}
}

// sanitizeReturnToPath only lets local paths through so a form cannot redirect to another site.
func sanitizeReturnToPath(returnTo string) string {
	if returnTo == "" || !strings.HasPrefix(returnTo, "/") {
		return "/"
	}

	if strings.HasPrefix(returnTo, "//") || strings.HasPrefix(returnTo, "/\\") {
		return "/"
	}

	parsed, err := url.Parse(returnTo)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return "/"
	}

	return returnTo
}
