package web

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gupshupx/gupshupx/auth"
	authcontext "github.com/gupshupx/gupshupx/auth/context"
	"github.com/gupshupx/gupshupx/random"
)

func (h *Handler) renderLoginPage(w http.ResponseWriter, r *http.Request, status int, errorMessage string) {
	h.renderTemplateStatus(w, r, status, "login-page.gohtml", map[string]any{
		"SiteTitle": "Login",
		"Providers": h.oauthProviders.Names(),
		"Error":     errorMessage,
	})
}

func (h *Handler) HandleLoginPage() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.renderLoginPage(w, r, http.StatusOK, "")
	})

	return h.GuestOnly(hf)
}

// HandleOAuthStart sends the browser to the identity provider with a fresh state value.
func (h *Handler) HandleOAuthStart() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provider, ok := h.oauthProviders.Get(r.PathValue("provider"))
		if !ok {
			h.renderLoginPage(w, r, http.StatusNotFound, "This sign in method is not available.")

			return
		}

		state := random.String(16)

		err := h.setSessionValue(w, r, oauthStateKey, state)
		if err != nil {
			h.internalError(w, r, "failed to store oauth state", err)

			return
		}

		http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusSeeOther)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleOAuthCallback() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provider, ok := h.oauthProviders.Get(r.PathValue("provider"))
		if !ok {
			h.renderLoginPage(w, r, http.StatusNotFound, "This sign in method is not available.")

			return
		}

		expectedState, err := h.getSessionString(r, oauthStateKey)
		if err != nil {
			var notFoundErr *SessionValueNotFoundError
			if !errors.As(err, &notFoundErr) {
				h.internalError(w, r, "failed to read oauth state", err)

				return
			}
		}

		err = h.deleteSessionValue(w, r, oauthStateKey)
		if err != nil {
			h.internalError(w, r, "failed to clear oauth state", err)

			return
		}

		query := r.URL.Query()

		if providerErr := query.Get("error"); providerErr != "" {
			slog.InfoContext(r.Context(), "identity provider refused sign in", "provider", provider.Name(), "reason", providerErr)
			h.renderLoginPage(w, r, http.StatusUnauthorized, "Sign in was cancelled or refused.")

			return
		}

		state := query.Get("state")
		if expectedState == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expectedState)) != 1 {
			h.renderLoginPage(w, r, http.StatusBadRequest, "Sign in expired. Please try again.")

			return
		}

		identity, err := provider.Identify(r.Context(), query.Get("code"))
		if err != nil {
			slog.ErrorContext(r.Context(), "failed to identify user", "provider", provider.Name(), "error", err)
			h.renderLoginPage(w, r, http.StatusBadGateway, "Could not sign you in. Please try again.")

			return
		}

		session, err := h.authSvc.SignIn(r.Context(), *identity)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidIdentity) {
				h.renderLoginPage(w, r, http.StatusBadGateway, "Your account did not share a name we can use.")

				return
			}

			h.internalError(w, r, "failed to sign in", err, "provider", provider.Name())

			return
		}

		err = h.setSessionValue(w, r, sessionIDKey, session.ID)
		if err != nil {
			h.internalError(w, r, "failed to set session ID", err)

			return
		}

		http.Redirect(w, r, "/", http.StatusSeeOther)
	})

	return h.GuestOnly(hf)
}

func (h *Handler) HandleLogout() http.Handler {
	hf := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := authcontext.SessionIDFromContext(r.Context())
		if ok {
			err := h.authSvc.Logout(r.Context(), sessionID)
			if err != nil {
				var notFoundErr *auth.SessionNotFoundError
				if !errors.As(err, &notFoundErr) {
					h.internalError(w, r, "error on logout", err, "sessionId", sessionID)

					return
				}
			}
		}

		err := h.deleteSessionValue(w, r, sessionIDKey)
		if err != nil {
			h.internalError(w, r, "error on deleting session value", err, "key", sessionIDKey)

			return
		}

		redirect(w, r, "/login")
	})

	return h.AuthenticatedOnly(hf)
}
