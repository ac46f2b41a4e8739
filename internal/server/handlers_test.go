package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZhanXPX/glance-multisearch/internal/history"
	"github.com/ZhanXPX/glance-multisearch/internal/store"
	"github.com/ZhanXPX/glance-multisearch/internal/suggest"
)

// stubProvider answers every engine lookup with fixed suggestions.
type stubProvider struct {
	name    string
	results []string
	calls   int
}

func (p *stubProvider) Suggest(ctx context.Context, q string) ([]string, error) {
	p.calls++
	return p.results, nil
}

func (p *stubProvider) Name() string { return p.name }

func newTestServer(t *testing.T) (*Server, *stubProvider) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "history.json"), time.Millisecond, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	hist := history.NewService(st, zerolog.Nop())

	stub := &stubProvider{name: suggest.EngineGoogle, results: []string{"remote one", "remote two"}}
	registry := suggest.NewRegistry(0)
	registry.Register(stub)
	registry.SetFallback(stub)

	agg := suggest.NewAggregator(registry, hist, zerolog.Nop())
	return New(DefaultConfig(), hist, agg, zerolog.Nop()), stub
}

func doRequest(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.Routes().ServeHTTP(w, req)
	return w
}

func TestGetHistoryEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/history?u=alice", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User)
	assert.Empty(t, resp.Items)
}

func TestPostThenGetHistory(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/history", `{"u":"alice","q":"golang","engine":"google"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = doRequest(t, s, http.MethodGet, "/api/history?u=alice", "")
	var resp historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "golang", resp.Items[0].Query)
	assert.Equal(t, "google", resp.Items[0].Engine)
	assert.Positive(t, resp.Items[0].Timestamp)
}

func TestPostHistoryEmptyQueryIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/history", `{"u":"alice","q":"   "}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Empty query"}`, w.Body.String())
}

func TestPostHistoryInvalidBodyIsBadRequest(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/history", `{broken`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteHistory(t *testing.T) {
	s, _ := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/api/history", `{"u":"alice","q":"golang"}`)
	w := doRequest(t, s, http.MethodDelete, "/api/history?u=alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = doRequest(t, s, http.MethodGet, "/api/history?u=alice", "")
	var resp historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Items)
}

func TestUserNormalizationSharedAcrossEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/api/history", `{"u":" Alice ","q":"golang"}`)

	w := doRequest(t, s, http.MethodGet, "/api/history?u=Alice", "")
	var resp historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 1, "trimmed and raw identifiers share one partition")
}

func TestSuggestMergesHistoryAndProvider(t *testing.T) {
	s, stub := newTestServer(t)

	doRequest(t, s, http.MethodPost, "/api/history", `{"u":"alice","q":"remote archive"}`)

	w := doRequest(t, s, http.MethodGet, "/api/suggest?u=alice&engine=google&q=remote", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp suggest.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"remote one", "remote two", "remote archive"}, resp.Suggestions)
	assert.Equal(t, "google", resp.From)
	assert.Equal(t, 1, stub.calls)
}

func TestSuggestEmptyQueryNoProviderCall(t *testing.T) {
	s, stub := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/suggest?u=alice&engine=bing&q=++", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp suggest.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Suggestions)
	assert.Equal(t, "bing", resp.From)
	assert.Zero(t, stub.calls)
}

func TestSuggestDefaultsEngineToGoogle(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/suggest?q=go", "")
	var resp suggest.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "google", resp.From)
}

func TestSuggestUnknownEngineEchoesName(t *testing.T) {
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/suggest?engine=altavista&q=go", "")
	var resp suggest.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "altavista", resp.From)
	assert.Equal(t, []string{"remote one", "remote two"}, resp.Suggestions)
}
