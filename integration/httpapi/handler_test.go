package httpapi_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/keyrelay/core/relay"
	"github.com/dmitrymomot/keyrelay/integration/httpapi"
)

type sseEvent struct {
	Event string
	ID    string
	Data  string
}

func readEvents(t *testing.T, body io.Reader) []sseEvent {
	t.Helper()

	var (
		events []sseEvent
		cur    sseEvent
		data   []string
	)
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if data != nil {
				cur.Data = strings.Join(data, "\n")
				events = append(events, cur)
			}
			cur, data = sseEvent{}, nil
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event: "):
			cur.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "id: "):
			cur.ID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "data: "):
			data = append(data, strings.TrimPrefix(line, "data: "))
		}
	}
	require.NoError(t, sc.Err())
	return events
}

func newServer(t *testing.T, opts ...httpapi.Option) (*relay.Registry, *httptest.Server) {
	t.Helper()

	reg := relay.NewRegistry()
	srv := httptest.NewServer(httpapi.New(reg, append([]httpapi.Option{httpapi.WithKeepAlive(0)}, opts...)...))
	t.Cleanup(func() {
		srv.Close()
		_ = reg.Close()
	})
	return reg, srv
}

func post(t *testing.T, srv *httptest.Server, key, body string) int {
	t.Helper()

	resp, err := http.Post(srv.URL+"/relays/"+key, "text/plain", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestListenSSE_Completes(t *testing.T) {
	t.Parallel()

	reg, srv := newServer(t)

	resp, err := http.Get(srv.URL + "/relays/order-1?expected=3")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	assert.Equal(t, http.StatusAccepted, post(t, srv, "order-1", "created"))
	assert.Equal(t, http.StatusAccepted, post(t, srv, "order-1", "line one\nline two"))
	assert.Equal(t, http.StatusAccepted, post(t, srv, "order-1", "shipped"))

	events := readEvents(t, resp.Body)
	assert.Equal(t, []sseEvent{
		{Event: "message", ID: "1", Data: "created"},
		{Event: "message", ID: "2", Data: "line one\nline two"},
		{Event: "message", ID: "3", Data: "shipped"},
		{Event: "complete", Data: `{"delivered":3}`},
	}, events)

	assert.Equal(t, http.StatusNotFound, post(t, srv, "order-1", "late"))
	assert.Equal(t, 0, reg.Len())
}

func TestListenSSE_Timeout(t *testing.T) {
	t.Parallel()

	reg, srv := newServer(t)

	resp, err := http.Get(srv.URL + "/relays/slow?expected=2&timeout=300ms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, http.StatusAccepted, post(t, srv, "slow", "first"))

	events := readEvents(t, resp.Body)
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Data)
	assert.Equal(t, sseEvent{Event: "timeout", Data: `{"delivered":1}`}, events[1])

	assert.Equal(t, http.StatusNotFound, post(t, srv, "slow", "second"))
	assert.Equal(t, 0, reg.Len())
}

func TestListenSSE_ClientDisconnectRemovesRelay(t *testing.T) {
	t.Parallel()

	reg, srv := newServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/relays/gone?expected=5", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 1, reg.Len())

	cancel()

	require.Eventually(t, func() bool { return reg.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestListen_RejectsBadParameters(t *testing.T) {
	t.Parallel()

	_, srv := newServer(t)

	tests := []struct {
		name  string
		query string
	}{
		{"missing expected", ""},
		{"zero expected", "?expected=0"},
		{"negative expected", "?expected=-2"},
		{"non numeric expected", "?expected=many"},
		{"bad timeout", "?expected=1&timeout=soon"},
		{"negative timeout", "?expected=1&timeout=-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, http.MethodGet, srv.URL+"/relays/k"+tt.query)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestListen_SecondListenerConflicts(t *testing.T) {
	t.Parallel()

	reg, srv := newServer(t)

	_, err := reg.Listen(context.Background(), "busy", 1)
	require.NoError(t, err)

	resp := do(t, http.MethodGet, srv.URL+"/relays/busy?expected=1")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPublish(t *testing.T) {
	t.Parallel()

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()

		_, srv := newServer(t)
		assert.Equal(t, http.StatusNotFound, post(t, srv, "nobody", "hello"))
	})

	t.Run("body too large", func(t *testing.T) {
		t.Parallel()

		reg, srv := newServer(t, httpapi.WithMaxMessageBytes(4))
		_, err := reg.Listen(context.Background(), "small", 1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusRequestEntityTooLarge, post(t, srv, "small", "too long"))
		assert.Equal(t, http.StatusAccepted, post(t, srv, "small", "ok"))
	})
}

func TestRemove(t *testing.T) {
	t.Parallel()

	reg, srv := newServer(t)

	ch, err := reg.Listen(context.Background(), "job", 3)
	require.NoError(t, err)
	require.NoError(t, reg.Publish("job", "step"))

	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, srv.URL+"/relays/job").StatusCode)
	assert.Equal(t, http.StatusNotFound, do(t, http.MethodDelete, srv.URL+"/relays/job").StatusCode)

	var got []string
	for msg := range ch {
		got = append(got, msg)
	}
	assert.Equal(t, []string{"step"}, got)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("healthy", func(t *testing.T) {
		t.Parallel()

		_, srv := newServer(t, httpapi.WithHealthcheck("redis", func(context.Context) error { return nil }))
		assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/health").StatusCode)
	})

	t.Run("failing dependency", func(t *testing.T) {
		t.Parallel()

		_, srv := newServer(t, httpapi.WithHealthcheck("redis", func(context.Context) error {
			return errors.New("connection refused")
		}))

		resp := do(t, http.MethodGet, srv.URL+"/health")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "redis: connection refused", body["error"])
	})

	t.Run("closed registry", func(t *testing.T) {
		t.Parallel()

		reg, srv := newServer(t)
		require.NoError(t, reg.Close())
		assert.Equal(t, http.StatusServiceUnavailable, do(t, http.MethodGet, srv.URL+"/health").StatusCode)
	})
}

func TestStats(t *testing.T) {
	t.Parallel()

	reg, srv := newServer(t)

	_, err := reg.Listen(context.Background(), "s", 2)
	require.NoError(t, err)
	require.NoError(t, reg.Publish("s", "one"))
	require.Error(t, reg.Publish("missing", "x"))

	resp := do(t, http.MethodGet, srv.URL+"/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body["relays_created"])
	assert.Equal(t, 1, body["messages_published"])
	assert.Equal(t, 1, body["messages_rejected"])
	assert.Equal(t, 1, body["active_relays"])
}
