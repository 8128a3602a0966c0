package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/csrf"
	"github.com/gupshupx/gupshupx/communities"
)

func (h *Handler) HandleCommunitiesPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		communityList, err := h.communitiesSvc.ListCommunities(r.Context())
		if err != nil {
			h.internalError(w, r, "failed to list communities", err)

			return
		}

		h.renderTemplate(w, r, "communities-page.gohtml", map[string]any{
			"SiteTitle":   "Communities",
			"Communities": communityList,
		})
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) renderCreateCommunityPage(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	form communities.CreateCommunityRequest,
	errorMessage string,
) {
	h.renderTemplateStatus(w, r, status, "create-community-page.gohtml", map[string]any{
		"SiteTitle": "Create Community",
		"Form":      form,
		"Error":     errorMessage,
	})
}

func (h *Handler) HandleCreateCommunityPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.renderCreateCommunityPage(w, r, http.StatusOK, communities.CreateCommunityRequest{}, "")
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleCreateCommunity() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := r.ParseForm()
		if err != nil {
			h.renderError(w, r, http.StatusBadRequest, "The form could not be read.")

			return
		}

		form := communities.CreateCommunityRequest{
			Name:        r.FormValue("name"),
			Description: r.FormValue("description"),
		}

		community, err := h.communitiesSvc.CreateCommunity(r.Context(), form)
		if err != nil {
			var existsErr *communities.CommunityAlreadyExistsError

			switch {
			case errors.Is(err, communities.ErrEmptyName):
				h.renderCreateCommunityPage(w, r, http.StatusUnprocessableEntity, form, "Name is required.")
			case errors.Is(err, communities.ErrEmptyDescription):
				h.renderCreateCommunityPage(w, r, http.StatusUnprocessableEntity, form, "Description is required.")
			case errors.As(err, &existsErr):
				h.renderCreateCommunityPage(w, r, http.StatusConflict, form, "A community with this name already exists.")
			default:
				h.internalError(w, r, "failed to create community", err)
			}

			return
		}

		redirect(w, r, "/community/"+strconv.FormatInt(community.ID, 10))
	})

	return h.AuthenticatedOnly(hf)
}

func (h *Handler) HandleCommunityPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		communityID, ok := parseID(r.PathValue("communityId"))
		if !ok {
			h.renderError(w, r, http.StatusNotFound, "Community not found.")

			return
		}

		community, err := h.communitiesSvc.GetCommunity(r.Context(), communityID)
		if err != nil {
			var notFoundErr *communities.CommunityNotFoundError
			if errors.As(err, &notFoundErr) {
				h.renderError(w, r, http.StatusNotFound, "Community not found.")

				return
			}

			h.internalError(w, r, "failed to get community", err, "communityId", communityID)

			return
		}

		posts, err := h.contentsSvc.ListPostsByCommunity(r.Context(), community.ID)
		if err != nil {
			h.internalError(w, r, "failed to list community posts", err, "communityId", community.ID)

			return
		}

		returnTo := "/community/" + strconv.FormatInt(community.ID, 10)

		fullPosts, err := h.preloadPosts(r.Context(), posts, h.currentUserIDFromRequest(r), returnTo, csrf.TemplateField(r))
		if err != nil {
			h.internalError(w, r, "failed to preload posts", err)

			return
		}

		h.renderTemplate(w, r, "community-page.gohtml", map[string]any{
			"SiteTitle": community.Name,
			"Community": community,
			"Posts":     fullPosts,
		})
	})

	return h.AuthenticatedOnly(hf)
}
