package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/acme/autocert"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPort    = "8080"
	DefaultTLSMode = TLSModeAutoCert

	TLSModeAutoCert = "autocert"
	TLSModeFile     = "file"

	shutdownTimeout = 10 * time.Second
)

type Server struct {
	Port string
	Host string
	TLS  ServerTLS
}

type ServerTLS struct {
	Enabled  bool
	Mode     string
	AutoCert *ServerTLSAutoCert
	CertFile string
	KeyFile  string
}

type ServerTLSAutoCert struct {
	CacheDir string
	Domains  []string
	Email    string
}

type InvalidTLSModeError struct {
	Mode string
}

func (err InvalidTLSModeError) Error() string {
	return fmt.Sprintf("invalid tls mode '%s'", err.Mode)
}

var (
	ErrNoAutoCertDomains = errors.New("autocert requires at least one domain")
	ErrNoCertificate     = errors.New("tls file mode requires both a certificate and a key file")
)

// Run serves handler until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		BaseContext: func(net.Listener) context.Context {
			return context.WithoutCancel(ctx)
		},
	}

	servers := []*http.Server{httpServer}

	var listen func() error

	switch {
	case !s.TLS.Enabled:
		listen = httpServer.ListenAndServe

		slog.InfoContext(ctx, "server listening", "address", "http://"+httpServer.Addr)
	case s.TLS.Mode == TLSModeAutoCert:
		if s.TLS.AutoCert == nil || len(s.TLS.AutoCert.Domains) == 0 {
			return ErrNoAutoCertDomains
		}

		manager := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(s.TLS.AutoCert.CacheDir),
			HostPolicy: autocert.HostWhitelist(s.TLS.AutoCert.Domains...),
			Email:      s.TLS.AutoCert.Email,
		}

		httpServer.TLSConfig = manager.TLSConfig()

		// ACME http-01 challenges and redirects to https
		challengeServer := &http.Server{
			Addr:              net.JoinHostPort(s.Host, "80"),
			Handler:           manager.HTTPHandler(nil),
			ReadHeaderTimeout: 10 * time.Second,
		}

		servers = append(servers, challengeServer)

		listen = func() error {
			return httpServer.ListenAndServeTLS("", "")
		}

		slog.InfoContext(ctx, "server listening", "address", domainsToHTTPSAddress(s.TLS.AutoCert.Domains))
	case s.TLS.Mode == TLSModeFile:
		if s.TLS.CertFile == "" || s.TLS.KeyFile == "" {
			return ErrNoCertificate
		}

		httpServer.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}

		listen = func() error {
			return httpServer.ListenAndServeTLS(s.TLS.CertFile, s.TLS.KeyFile)
		}

		slog.InfoContext(ctx, "server listening", "address", "https://"+httpServer.Addr)
	default:
		return &InvalidTLSModeError{Mode: s.TLS.Mode}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return serve(listen)
	})

	for _, extra := range servers[1:] {
		g.Go(func() error {
			return serve(extra.ListenAndServe)
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		var errs []error

		for _, srv := range servers {
			err := srv.Shutdown(shutdownCtx)
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to shutdown server %s: %w", srv.Addr, err))
			}
		}

		slog.InfoContext(shutdownCtx, "server stopped")

		return errors.Join(errs...)
	})

	err := g.Wait()
	if err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func serve(listen func() error) error {
	err := listen()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to listen: %w", err)
	}

	return nil
}

func domainsToHTTPSAddress(domains []string) string {
	addresses := make([]string, 0, len(domains))

	for _, domain := range domains {
		addresses = append(addresses, "https://"+domain)
	}

	return strings.Join(addresses, ", ")
}
