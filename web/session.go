package web

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	sessionIDKey  = "sessionId"
	oauthStateKey = "oauthState"
)

type SessionValueNotFoundError struct {
	Key string
}

func (err SessionValueNotFoundError) Error() string {
	return fmt.Sprintf("session value for key '%s' not found", err.Key)
}

// session returns the cookie session. A cookie that cannot be decoded, for example after the
// session key was rotated, is replaced by a fresh session.
func (h *Handler) session(r *http.Request) (*sessions.Session, error) {
	session, err := h.cookieStore.Get(r, h.sessionName)
	if err != nil {
		if session == nil {
			return nil, fmt.Errorf("error getting session: %w", err)
		}

		slog.DebugContext(r.Context(), "discarding undecodable session cookie", "error", err)
	}

	return session, nil
}

func (h *Handler) getSessionString(r *http.Request, key string) (string, error) {
	session, err := h.session(r)
	if err != nil {
		return "", err
	}

	value, ok := session.Values[key].(string)
	if !ok || value == "" {
		return "", &SessionValueNotFoundError{Key: key}
	}

	return value, nil
}

func (h *Handler) setSessionValue(
	w http.ResponseWriter,
	r *http.Request,
	key string,
	value any,
) error {
	session, err := h.session(r)
	if err != nil {
		return err
	}

	session.Values[key] = value

	err = session.Save(r, w)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}

	return nil
}

func (h *Handler) deleteSessionValue(w http.ResponseWriter, r *http.Request, key string) error {
	session, err := h.session(r)
	if err != nil {
		return err
	}

	delete(session.Values, key)

	err = session.Save(r, w)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}

	return nil
}
