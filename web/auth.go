package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gupshupx/gupshupx/auth"
	authcontext "github.com/gupshupx/gupshupx/auth/context"
)

// authMiddleware resolves the signed in user from the session cookie on every request.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionValueNotFoundError *SessionValueNotFoundError

		sessionID, err := h.getSessionString(r, sessionIDKey)
		if err != nil {
			if errors.As(err, &sessionValueNotFoundError) {
				next.ServeHTTP(w, r)

				return
			}

			slog.ErrorContext(r.Context(), "error on getting session value", "key", sessionIDKey, "error", err)
			http.Error(w, "error on getting session value", http.StatusInternalServerError)

			return
		}

		session, err := h.authSvc.GetSession(r.Context(), sessionID)
		if err != nil {
			var sessionNotFoundError *auth.SessionNotFoundError

			var sessionExpiredError *auth.SessionExpiredError

			if errors.As(err, &sessionNotFoundError) || errors.As(err, &sessionExpiredError) {
				h.clearSessionAndContinue(w, r, next)

				return
			}

			slog.ErrorContext(r.Context(), "error on getting session", "sessionId", sessionID, "error", err)
			http.Error(w, "error on getting session", http.StatusInternalServerError)

			return
		}

		r = r.WithContext(authcontext.WithSessionID(r.Context(), session.ID))

		user, err := h.authSvc.GetUser(r.Context(), session.UserID)
		if err != nil {
			var userNotFoundError *auth.UserNotFoundError
			if errors.As(err, &userNotFoundError) {
				err = h.authSvc.Logout(r.Context(), session.ID)
				if err != nil {
					slog.ErrorContext(r.Context(), "error on logging out session", "sessionId", session.ID, "error", err)
					http.Error(w, "error on logging out session", http.StatusInternalServerError)

					return
				}

				h.clearSessionAndContinue(w, r, next)

				return
			}

			slog.ErrorContext(r.Context(), "error retrieving user", "error", err)
			http.Error(w, "error on retrieving user", http.StatusInternalServerError)

			return
		}

		r = r.WithContext(authcontext.WithSubject(r.Context(), user.ID))

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) clearSessionAndContinue(w http.ResponseWriter, r *http.Request, next http.Handler) {
	err := h.deleteSessionValue(w, r, sessionIDKey)
	if err != nil {
		slog.ErrorContext(r.Context(), "error on deleting session value", "key", sessionIDKey, "error", err)
		http.Error(w, "error on deleting session value", http.StatusInternalServerError)

		return
	}

	next.ServeHTTP(w, r)
}

func isAuthenticated(r *http.Request) bool {
	return authcontext.IsAuthenticated(r.Context())
}

// AuthenticatedOnly sends guests to the login page. Being redirected is not an error.
func (h *Handler) AuthenticatedOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAuthenticated(r) {
			redirect(w, r, "/login")

			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) GuestOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isAuthenticated(r) {
			redirect(w, r, "/")

			return
		}

		next.ServeHTTP(w, r)
	})
}
