package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"maps"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"
	"github.com/gupshupx/gupshupx/auth"
	authcontext "github.com/gupshupx/gupshupx/auth/context"
	"github.com/gupshupx/gupshupx/auth/oauth"
	"github.com/gupshupx/gupshupx/communities"
	"github.com/gupshupx/gupshupx/contents"
	"github.com/gupshupx/gupshupx/discuss"
	"github.com/gupshupx/gupshupx/votes"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	//go:embed templates/*
	templatesFS embed.FS

	//go:embed static/*
	staticFS embed.FS
)

const (
	defaultSiteTitle = "GupShupX"
	hxRequestTrue    = "true"

	DefaultMaxUploadSize        = 10 << 20
	DefaultCommentsPollInterval = 5 * time.Second
)

type Config struct {
	SessionName        string
	CSRFAuthKey        []byte
	CSRFTrustedOrigins []string
	// SecureCookies marks the CSRF cookie as HTTPS only.
	SecureCookies        bool
	MaxUploadSize        int64
	CommentsPollInterval time.Duration
}

type Handler struct {
	mux            *http.ServeMux
	handler        http.Handler
	tpl            *template.Template
	static         fs.FS
	media          http.Handler
	authSvc        *auth.Service
	oauthProviders *oauth.Registry
	contentsSvc    *contents.Service
	discussSvc     *discuss.Service
	communitiesSvc *communities.Service
	votesSvc       *votes.Service
	cookieStore    *sessions.CookieStore
	sessionName    string
	maxUploadSize  int64
	pollInterval   time.Duration
	markdown       goldmark.Markdown
}

var _ http.Handler = (*Handler)(nil)

func NewHandler(
	authSvc *auth.Service,
	oauthProviders *oauth.Registry,
	contentsSvc *contents.Service,
	discussSvc *discuss.Service,
	communitiesSvc *communities.Service,
	votesSvc *votes.Service,
	media http.Handler,
	cookieStore *sessions.CookieStore,
	cfg Config,
) (*Handler, error) {
	h := &Handler{
		media:          media,
		authSvc:        authSvc,
		oauthProviders: oauthProviders,
		contentsSvc:    contentsSvc,
		discussSvc:     discussSvc,
		communitiesSvc: communitiesSvc,
		votesSvc:       votesSvc,
		cookieStore:    cookieStore,
		sessionName:    cfg.SessionName,
		maxUploadSize:  cfg.MaxUploadSize,
		pollInterval:   cfg.CommentsPollInterval,
	}

	if h.maxUploadSize <= 0 {
		h.maxUploadSize = DefaultMaxUploadSize
	}

	if h.pollInterval <= 0 {
		h.pollInterval = DefaultCommentsPollInterval
	}

	// raw HTML in posts is omitted from the output
	h.markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

	{
		tpl, err := template.New("").Funcs(h.funcs()).ParseFS(templatesFS, "templates/*.gohtml")
		if err != nil {
			return nil, fmt.Errorf("failed to parse templates: %w", err)
		}

		h.tpl = tpl
	}

	{
		static, err := fs.Sub(staticFS, "static")
		if err != nil {
			return nil, fmt.Errorf("failed to sub static fs: %w", err)
		}

		h.static = static
	}

	{
		h.mux = &http.ServeMux{}
		h.handler = h.mux

		h.registerRoutes()
	}

	{
		h.handler = h.authMiddleware(h.handler)

		{
			csrfMiddleware := csrf.Protect(
				cfg.CSRFAuthKey,
				csrf.TrustedOrigins(cfg.CSRFTrustedOrigins),
				csrf.Secure(cfg.SecureCookies),
				csrf.Path("/"),
				csrf.SameSite(csrf.SameSiteLaxMode),
				csrf.ErrorHandler(http.HandlerFunc(h.handleCSRFError)),
			)

			h.handler = csrfMiddleware(h.handler)
		}

		h.handler = plaintextMiddleware(h.handler)
		h.handler = maxBytesMiddleware(h.maxUploadSize, h.handler)
		h.handler = loggingMiddleware(h.handler)
		h.handler = recoverMiddleware(h.handler)
	}

	return h, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("/", h.HandleIndex)

	h.mux.Handle("GET /static/", http.StripPrefix("/static/", h.HandleStatic()))
	h.mux.Handle("GET /media/", http.StripPrefix("/media", h.media))

	h.mux.Handle("GET /login", h.HandleLoginPage())
	h.mux.Handle("GET /auth/{provider}", h.HandleOAuthStart())
	h.mux.Handle("GET /auth/{provider}/callback", h.HandleOAuthCallback())
	h.mux.Handle("POST /logout", h.HandleLogout())

	h.mux.Handle("GET /create", h.HandleCreatePostPage())
	h.mux.Handle("POST /create", h.HandleCreatePost())
	h.mux.Handle("GET /post/{postId}", h.HandleViewPostPage())
	h.mux.Handle("GET /post/{postId}/comments", h.HandleCommentsFragment())
	h.mux.Handle("POST /post/{postId}/comments", h.HandlePostComment())

	h.mux.Handle("GET /communities", h.HandleCommunitiesPage())
	h.mux.Handle("GET /communities/create", h.HandleCreateCommunityPage())
	h.mux.Handle("POST /communities/create", h.HandleCreateCommunity())
	h.mux.Handle("GET /community/{communityId}", h.HandleCommunityPage())

	h.mux.Handle("POST /vote/{targetType}/{targetId}", h.HandleToggleVote())
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if err := recover(); err != nil {
				slog.ErrorContext(
					ctx,
					"recovered from panic",
					"error",
					err,
					"stack",
					string(debug.Stack()),
				)

				http.Error(w, "internal error occurred", http.StatusInternalServerError)
			}
		}(r.Context())

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter

	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.DebugContext(
			r.Context(),
			"http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// plaintextMiddleware tells the CSRF middleware which requests did not arrive over TLS.
func plaintextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && r.Header.Get("X-Forwarded-Proto") != "https" {
			r = csrf.PlaintextHTTPRequest(r)
		}

		next.ServeHTTP(w, r)
	})
}

func maxBytesMiddleware(limit int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, limit)
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) handleCSRFError(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))

	h.renderError(w, r, http.StatusForbidden, "This form has expired. Reload the page and try again.")
}

func (h *Handler) funcs() template.FuncMap {
	return template.FuncMap{
		"markdown": h.renderMarkdown,
		"timeAgo":  timeAgo,
		"dict":     dict,
	}
}

func (h *Handler) renderMarkdown(source string) template.HTML {
	var buf bytes.Buffer

	err := h.markdown.Convert([]byte(source), &buf)
	if err != nil {
		slog.Error("failed to render markdown", "error", err)

		return template.HTML(template.HTMLEscapeString(source)) // nolint:gosec
	}

	return template.HTML(buf.String()) // nolint:gosec
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict expects key value pairs")
	}

	result := make(map[string]any, len(pairs)/2)

	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}

		result[key] = pairs[i+1]
	}

	return result, nil
}

func timeAgo(t time.Time) string {
	d := time.Since(t)

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "h ago"
	case d < 30*24*time.Hour:
		return strconv.Itoa(int(d.Hours()/24)) + "d ago"
	default:
		return t.Format("Jan 2, 2006")
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == hxRequestTrue
}

// redirect sends a browser redirect, or asks htmx to navigate when the request came from htmx.
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", location)
		w.WriteHeader(http.StatusOK)

		return
	}

	http.Redirect(w, r, location, http.StatusSeeOther)
}

func (h *Handler) baseData(r *http.Request) (map[string]any, error) {
	var currentUser *auth.User

	if isAuthenticated(r) {
		var err error

		currentUser, err = h.authSvc.GetCurrentUser(r.Context())
		if err != nil {
			return nil, fmt.Errorf("failed to get current user: %w", err)
		}
	}

	return map[string]any{
		"CurrentPath":     r.URL.Path,
		"Lang":            "en",
		"Dir":             "ltr",
		"IsAuthenticated": isAuthenticated(r),
		"CurrentUser":     currentUser,
		"CSRFToken":       csrf.Token(r),
		csrf.TemplateTag:  csrf.TemplateField(r),
	}, nil
}

func (h *Handler) renderTemplate(w http.ResponseWriter, r *http.Request, name string, extraData map[string]any) {
	h.renderTemplateStatus(w, r, http.StatusOK, name, extraData)
}

func (h *Handler) renderTemplateStatus(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	name string,
	extraData map[string]any,
) {
	data, err := h.baseData(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to build template data", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	maps.Copy(data, extraData)

	data["SiteTitle"] = defaultSiteTitle

	if extraData["SiteTitle"] != nil {
		data["SiteTitle"] = fmt.Sprintf("%s | %s", extraData["SiteTitle"], defaultSiteTitle)
	}

	var buf bytes.Buffer

	err = h.tpl.ExecuteTemplate(&buf, name, data)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to render template", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	_, err = buf.WriteTo(w)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", "name", name, "error", err)
	}
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.renderTemplateStatus(w, r, status, "error-page.gohtml", map[string]any{
		"SiteTitle": http.StatusText(status),
		"Status":    status,
		"Message":   message,
	})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error, args ...any) {
	slog.ErrorContext(r.Context(), msg, append(args, "error", err)...)
	h.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
}

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		h.HandleHomePage().ServeHTTP(w, r)

		return
	}

	h.renderError(w, r, http.StatusNotFound, "Page not found.")
}

// HandleStatic serves embedded static files.
func (h *Handler) HandleStatic() http.Handler {
	fileServer := http.FileServer(http.FS(h.static))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}

func (h *Handler) currentUserIDFromRequest(r *http.Request) *string {
	if !isAuthenticated(r) {
		return nil
	}

	currentUserID := authcontext.GetSubject(r.Context())

	return &currentUserID
}

func parseID(value string) (int64, bool) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}

// parseOptionalID treats an empty value as absent.
func parseOptionalID(value string) (*int64, bool) {
	if value == "" {
		return nil, true
	}

	id, ok := parseID(value)
	if !ok {
		return nil, false
	}

	return &id, true
}
