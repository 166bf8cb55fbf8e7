package server_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyrelay/core/server"
)

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing address", func(t *testing.T) {
		t.Parallel()

		_, err := server.NewFromConfig(server.Config{})
		assert.ErrorIs(t, err, server.ErrMissingAddress)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		cfg := server.DefaultConfig()
		assert.Equal(t, server.DefaultAddr, cfg.Addr)
		assert.Zero(t, cfg.WriteTimeout)

		srv, err := server.NewFromConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, server.DefaultAddr, srv.Addr())
	})
}

func TestServer_RunAndShutdown(t *testing.T) {
	t.Parallel()

	srv := server.New("127.0.0.1:0", server.WithShutdownTimeout(time.Second))
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, handler)() }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr())
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return string(body) == "pong"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServer_StartTwice(t *testing.T) {
	t.Parallel()

	srv := server.New("127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = srv.Start(ctx, http.NotFoundHandler()) }()
	require.Eventually(t, func() bool { return srv.Addr() != "127.0.0.1:0" }, time.Second, 5*time.Millisecond)

	assert.ErrorIs(t, srv.Start(ctx, http.NotFoundHandler()), server.ErrServerAlreadyRunning)
	assert.NoError(t, srv.Stop())
}
