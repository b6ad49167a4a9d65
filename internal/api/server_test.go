package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/cauldron/internal/craft"
	"github.com/mesh-intelligence/cauldron/internal/memory"
	"github.com/mesh-intelligence/cauldron/pkg/types"
)

var discard = slog.New(slog.DiscardHandler)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := memory.NewStore()
	require.NoError(t, s.Attach(types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { s.Detach() })
	_, err := craft.Seed(context.Background(), s)
	require.NoError(t, err)
	return NewServer(craft.NewResolver(s, craft.WithLogger(discard)), discard)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t).Handler(), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestElements(t *testing.T) {
	rec := do(t, newTestServer(t).Handler(), http.MethodGet, "/api/elements", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body elementsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 4, body.Count)
	require.Len(t, body.Elements, 4)
	assert.Equal(t, "Water", body.Elements[0].Name)
	assert.Equal(t, "💧", body.Elements[0].Emoji)
	assert.NotEmpty(t, body.Elements[0].ID)
}

func TestCombine(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodPost, "/api/combine", `{"a":"Fire","b":"Water","userId":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"isNew":true,"result":{"name":"Steam","emoji":"💨","firstDiscoverer":"alice"}}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/combine", `{"a":"water","b":"fire","userId":"bob"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"isNew":false,"result":{"name":"Steam","emoji":"💨","firstDiscoverer":"alice"}}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/recipes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var recipes recipesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recipes))
	assert.Equal(t, 1, recipes.Count)
	require.Len(t, recipes.Recipes, 1)
	assert.Equal(t, "Steam", recipes.Recipes[0].ResultName)
	assert.Equal(t, "alice", recipes.Recipes[0].FirstDiscoverer)
	assert.ElementsMatch(t, []string{"Fire", "Water"},
		[]string{recipes.Recipes[0].ElementAName, recipes.Recipes[0].ElementBName})
}

func TestCombineAnonymous(t *testing.T) {
	rec := do(t, newTestServer(t).Handler(), http.MethodPost, "/api/combine", `{"a":"Earth","b":"Wind"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode(t, rec)["result"].(map[string]any)
	assert.Equal(t, "Dust", result["name"])
	assert.True(t, strings.HasPrefix(result["firstDiscoverer"].(string), craft.AnonymousPrefix))
}

func TestCombineErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"missing b", `{"a":"Fire"}`, http.StatusBadRequest, "Missing elements"},
		{"blank a", `{"a":"  ","b":"Fire"}`, http.StatusBadRequest, "Missing elements"},
		{"malformed body", `{"a":`, http.StatusBadRequest, "Invalid request body"},
		{"unknown element", `{"a":"Plasma","b":"Fire"}`, http.StatusNotFound, "Element not found"},
	}
	h := newTestServer(t).Handler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/combine", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decode(t, rec)["error"])
		})
	}
}

// stubCombiner returns fixed errors.
type stubCombiner struct {
	err error
}

func (s stubCombiner) ResolveCombination(context.Context, string, string, string) (*craft.Combination, error) {
	return nil, s.err
}

func (s stubCombiner) Elements(context.Context) ([]*types.Element, error) { return nil, s.err }

func (s stubCombiner) Recipes(context.Context) ([]*types.Recipe, error) { return nil, s.err }

func TestStoreErrorsMapToStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unavailable", types.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"wrapped unavailable", errors.Join(errors.New("dial tcp"), types.ErrStoreUnavailable), http.StatusServiceUnavailable},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewServer(stubCombiner{err: tt.err}, discard).Handler()

			rec := do(t, h, http.MethodPost, "/api/combine", `{"a":"Fire","b":"Water"}`)
			assert.Equal(t, tt.status, rec.Code)

			rec = do(t, h, http.MethodGet, "/api/elements", "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMethodAndPreflight(t *testing.T) {
	h := newTestServer(t).Handler()

	rec := do(t, h, http.MethodGet, "/api/combine", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = do(t, h, http.MethodOptions, "/api/combine", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestRequestIDIsEchoed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	newTestServer(t).Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestRecoverPanic(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}), RecoverPanic(discard))

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t).Handler()
	do(t, h, http.MethodPost, "/api/combine", `{"a":"Fire","b":"Water","userId":"alice"}`)
	do(t, h, http.MethodPost, "/api/combine", `{"a":"Fire","b":"Water","userId":"bob"}`)
	do(t, h, http.MethodPost, "/api/combine", `{"a":"Plasma","b":"Water"}`)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `cauldron_combine_total{outcome="new"} 1`)
	assert.Contains(t, body, `cauldron_combine_total{outcome="known"} 1`)
	assert.Contains(t, body, `cauldron_combine_total{outcome="unknown_element"} 1`)
	assert.Contains(t, body, `cauldron_http_requests_total{code="200",method="POST",route="/api/combine"} 2`)
}

func TestParseConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("CAULDRON_ADDR", "")
		cfg, err := ParseConfig()
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
		assert.Equal(t, 5*time.Second, cfg.ReadHeaderTimeout)
	})

	t.Run("port", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		t.Setenv("CAULDRON_ADDR", "")
		cfg, err := ParseConfig()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.ListenAddr())
	})

	t.Run("addr wins over port", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		t.Setenv("CAULDRON_ADDR", "127.0.0.1:9999")
		cfg, err := ParseConfig()
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1:9999", cfg.ListenAddr())
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("CAULDRON_SHUTDOWN_TIMEOUT", "soon")
		_, err := ParseConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env:")
	})
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, ln, Config{ReadHeaderTimeout: time.Second, ShutdownTimeout: time.Second})
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
