package gupshupx

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/gupshupx/gupshupx/auth"
	"github.com/gupshupx/gupshupx/auth/oauth"
	"github.com/gupshupx/gupshupx/communities"
	"github.com/gupshupx/gupshupx/contents"
	"github.com/gupshupx/gupshupx/db/sqlite3"
	"github.com/gupshupx/gupshupx/discuss"
	"github.com/gupshupx/gupshupx/media"
	"github.com/gupshupx/gupshupx/random"
	"github.com/gupshupx/gupshupx/server"
	"github.com/gupshupx/gupshupx/votes"
	"github.com/gupshupx/gupshupx/web"
	"github.com/nasermirzaei89/env"
)

const sessionPurgeInterval = time.Hour

type App struct {
	server  *server.Server
	handler *web.Handler
	authSvc *auth.Service
	db      *sql.DB
}

func NewApp(ctx context.Context) (*App, error) {
	db, err := sqlite3.NewDB(ctx, env.GetString("DB_DSN", "file:gupshupx.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"))
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	err = sqlite3.MigrateUp(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	userRepo := sqlite3.NewUserRepository(db)
	sessionRepo := sqlite3.NewSessionRepository(db)
	communityRepo := sqlite3.NewCommunityRepository(db)
	postRepo := sqlite3.NewPostRepository(db)
	commentRepo := sqlite3.NewCommentRepository(db)
	voteRepo := sqlite3.NewVoteRepository(db)

	mediaStore, err := media.NewDiskStore(
		env.GetString("MEDIA_DIR", "./media-data"),
		env.GetString("MEDIA_PUBLIC_URL", "/media"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create media store: %w", err)
	}

	authSvc := auth.NewService(userRepo, sessionRepo)
	contentsSvc := contents.NewService(postRepo, mediaStore)
	discussSvc := discuss.NewService(commentRepo)
	communitiesSvc := communities.NewService(communityRepo)
	votesSvc := votes.NewService(voteRepo)

	srv := newServer()

	baseURL := strings.TrimSuffix(env.GetString("BASE_URL", "http://localhost:"+srv.Port), "/")
	secureCookies := srv.TLS.Enabled || strings.HasPrefix(baseURL, "https://")

	sessionName := env.GetString("SESSION_NAME", "gupshupx-"+random.String(4))
	sessionKey := env.GetString("SESSION_KEY", random.String(32))
	cookieStore := sessions.NewCookieStore([]byte(sessionKey))
	cookieStore.Options.HttpOnly = true
	cookieStore.Options.SameSite = http.SameSiteLaxMode
	cookieStore.Options.Secure = secureCookies

	maxUploadSize, err := getInt64FromEnv("MAX_UPLOAD_SIZE", web.DefaultMaxUploadSize)
	if err != nil {
		return nil, err
	}

	pollInterval, err := getDurationFromEnv("COMMENTS_POLL_INTERVAL", web.DefaultCommentsPollInterval)
	if err != nil {
		return nil, err
	}

	httpHandler, err := web.NewHandler(
		authSvc,
		newOAuthProviders(baseURL),
		contentsSvc,
		discussSvc,
		communitiesSvc,
		votesSvc,
		mediaStore.Handler(),
		cookieStore,
		web.Config{
			SessionName:          sessionName,
			CSRFAuthKey:          []byte(env.GetString("CSRF_AUTH_KEY", random.String(16))),
			CSRFTrustedOrigins:   env.GetStringSlice("CSRF_TRUSTED_ORIGINS", []string{}),
			SecureCookies:        secureCookies,
			MaxUploadSize:        maxUploadSize,
			CommentsPollInterval: pollInterval,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP handler: %w", err)
	}

	app := &App{
		server:  srv,
		handler: httpHandler,
		authSvc: authSvc,
		db:      db,
	}

	return app, nil
}

func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	defer func() {
		if app.db != nil {
			err := app.db.Close()
			if err != nil {
				slog.ErrorContext(ctx, "failed to close database", "error", err)
			}
		}
	}()

	go app.purgeExpiredSessions(ctx)

	err := app.server.Run(ctx, app.handler)
	if err != nil {
		return fmt.Errorf("failed to run server: %w", err)
	}

	return nil
}

func (app *App) purgeExpiredSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := app.authSvc.PurgeExpiredSessions(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "failed to purge expired sessions", "error", err)

				continue
			}

			if count > 0 {
				slog.InfoContext(ctx, "purged expired sessions", "count", count)
			}
		}
	}
}

func newServer() *server.Server {
	server := &server.Server{
		Port: env.GetString("PORT", server.DefaultPort),
		Host: env.GetString("HOST", ""),
		TLS: server.ServerTLS{
			Enabled: env.GetBool("TLS_ENABLED", false),
			Mode:    env.GetString("TLS_MODE", server.DefaultTLSMode),
			AutoCert: &server.ServerTLSAutoCert{
				CacheDir: env.GetString("TLS_AUTOCERT_CACHE_DIR", "./cert-cache"),
				Domains:  env.GetStringSlice("TLS_AUTOCERT_DOMAINS", []string{}),
				Email:    env.GetString("TLS_AUTOCERT_EMAIL", ""),
			},
			CertFile: env.GetString("TLS_CERT_FILE", ""),
			KeyFile:  env.GetString("TLS_KEY_FILE", ""),
		},
	}

	return server
}

// newOAuthProviders enables every provider that has a client id configured.
func newOAuthProviders(baseURL string) *oauth.Registry {
	github := oauth.NewGitHub(oauth.Config{
		ClientID:     env.GetString("GITHUB_CLIENT_ID", ""),
		ClientSecret: env.GetString("GITHUB_CLIENT_SECRET", ""),
		RedirectURL:  baseURL + "/auth/" + oauth.ProviderGitHub + "/callback",
	})

	google := oauth.NewGoogle(oauth.Config{
		ClientID:     env.GetString("GOOGLE_CLIENT_ID", ""),
		ClientSecret: env.GetString("GOOGLE_CLIENT_SECRET", ""),
		RedirectURL:  baseURL + "/auth/" + oauth.ProviderGoogle + "/callback",
	})

	registry := oauth.NewRegistry(github, google)
	if len(registry.Names()) == 0 {
		slog.Warn("no oauth provider configured, nobody will be able to sign in")
	}

	return registry
}

func getInt64FromEnv(key string, def int64) (int64, error) {
	value := env.GetString(key, "")
	if value == "" {
		return def, nil
	}

	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}

	return result, nil
}

func getDurationFromEnv(key string, def time.Duration) (time.Duration, error) {
	value := env.GetString(key, "")
	if value == "" {
		return def, nil
	}

	result, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}

	return result, nil
}

func GetLogLevelFromEnv() slog.Level {
	levelStr := env.GetString("LOG_LEVEL", "info")
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("unknown log level, defaulting to info", "level", levelStr)

		return slog.LevelInfo
	}
}

// NewLogHandler picks the slog output format from LOG_FORMAT.
func NewLogHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: GetLogLevelFromEnv()}

	switch format := env.GetString("LOG_FORMAT", "text"); format {
	case "json":
		return slog.NewJSONHandler(w, opts)
	case "text":
		return slog.NewTextHandler(w, opts)
	default:
		slog.Warn("unknown log format, defaulting to text", "format", format)

		return slog.NewTextHandler(w, opts)
	}
}
