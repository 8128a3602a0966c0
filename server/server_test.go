package server_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gupshupx/gupshupx/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServer_RunStopsWithContext(t *testing.T) {
	t.Parallel()

	srv := &server.Server{Host: "127.0.0.1", Port: "0"}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- srv.Run(ctx, http.NotFoundHandler())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func freePort(t *testing.T) string {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	_, port, err := net.SplitHostPort(lis.Addr().String())
	require.NoError(t, err)
	require.NoError(t, lis.Close())

	return port
}

func TestServer_RunDrainsInFlightRequests(t *testing.T) {
	t.Parallel()

	port := freePort(t)
	srv := &server.Server{Host: "127.0.0.1", Port: port}

	started := make(chan struct{})

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)

		time.Sleep(200 * time.Millisecond)

		if r.Context().Err() != nil {
			http.Error(w, "canceled", http.StatusServiceUnavailable)

			return
		}

		_, _ = io.WriteString(w, "ok")
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- srv.Run(ctx, handler)
	}()

	type result struct {
		status int
		body   string
		err    error
	}

	responses := make(chan result, 1)

	go func() {
		url := "http://127.0.0.1:" + port + "/slow"

		var (
			resp *http.Response
			err  error
		)

		for range 100 {
			resp, err = http.Get(url) //nolint:noctx
			if err == nil {
				break
			}

			time.Sleep(20 * time.Millisecond)
		}

		if err != nil {
			responses <- result{err: err}

			return
		}

		defer func() {
			_ = resp.Body.Close()
		}()

		body, err := io.ReadAll(resp.Body)
		responses <- result{status: resp.StatusCode, body: string(body), err: err}
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the handler")
	}

	cancel()

	select {
	case res := <-responses:
		require.NoError(t, res.err)
		assert.Equal(t, http.StatusOK, res.status)
		assert.Equal(t, "ok", res.body)
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request did not finish")
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunRejectsBadTLSConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		tls      server.ServerTLS
		checkErr func(t *testing.T, err error)
	}{
		{
			name: "unknown mode",
			tls:  server.ServerTLS{Enabled: true, Mode: "magic"},
			checkErr: func(t *testing.T, err error) {
				t.Helper()

				var modeErr *server.InvalidTLSModeError
				require.ErrorAs(t, err, &modeErr)
				assert.Equal(t, "magic", modeErr.Mode)
			},
		},
		{
			name: "autocert without domains",
			tls: server.ServerTLS{
				Enabled:  true,
				Mode:     server.TLSModeAutoCert,
				AutoCert: &server.ServerTLSAutoCert{CacheDir: t.TempDir()},
			},
			checkErr: func(t *testing.T, err error) {
				t.Helper()

				require.ErrorIs(t, err, server.ErrNoAutoCertDomains)
			},
		},
		{
			name: "file mode without key",
			tls:  server.ServerTLS{Enabled: true, Mode: server.TLSModeFile, CertFile: "cert.pem"},
			checkErr: func(t *testing.T, err error) {
				t.Helper()

				require.ErrorIs(t, err, server.ErrNoCertificate)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := &server.Server{Host: "127.0.0.1", Port: "0", TLS: tt.tls}

			err := srv.Run(context.Background(), http.NotFoundHandler())
			tt.checkErr(t, err)
		})
	}
}
