package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Desarso/ideassist/assist"
	"github.com/Desarso/ideassist/models"
	"github.com/Desarso/ideassist/sessions"
	"github.com/Desarso/ideassist/stores"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *gin.Engine) {
	t.Helper()
	store, err := stores.NewSQLiteStoreSimple(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	model := models.ModelFunc(func(ctx context.Context, req models.Model_Request) (models.Model_Response, error) {
		if strings.Contains(req.Messages[len(req.Messages)-1].Content, "fail") {
			return models.Model_Response{}, errors.New("endpoint down")
		}
		return models.ChunkResponse("Hello", "world"), nil
	})
	registry := sessions.NewRegistry(sessions.PanelConfig{
		Model:       model,
		Transcripts: store,
		Traces:      store,
		Chat:        assist.DefaultConfig(),
		Suggest:     assist.SuggestionConfig{MaxTokens: models.Int(150)},
	})
	t.Cleanup(registry.Close)

	s := New(registry, append([]Option{WithStore(store)}, opts...)...)
	return s, s.Router()
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	_, router := newTestServer(t)
	w := do(t, router, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestPostMessage(t *testing.T) {
	_, router := newTestServer(t)

	w := do(t, router, http.MethodPost, "/api/v1/panels/p1/messages", map[string]any{"text": "hi", "content": "int x;"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct{ Messages []assist.Message }](t, w)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Hello\nworld", got.Messages[1].Content)
	assert.False(t, got.Messages[1].Loading)

	w = do(t, router, http.MethodPost, "/api/v1/panels/p1/messages", map[string]any{"text": "please fail"})
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[struct{ Messages []assist.Message }](t, w)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, assist.RoleError, got.Messages[1].Role)
	assert.NotContains(t, w.Body.String(), "endpoint down")

	w = do(t, router, http.MethodGet, "/api/v1/panels/p1/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		Messages []assist.Message
		State    string
	}](t, w)
	assert.Len(t, history.Messages, 4)
	assert.Equal(t, "idle", history.State)

	w = do(t, router, http.MethodGet, "/api/v1/panels/p1/transcript?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	transcript := decode[struct{ Transcript []stores.TranscriptMessage }](t, w)
	require.Len(t, transcript.Transcript, 2)
	assert.Equal(t, assist.FailureText, transcript.Transcript[1].Content)

	w = do(t, router, http.MethodGet, "/api/v1/panels/p1/traces", nil)
	require.Equal(t, http.StatusOK, w.Code)
	traces := decode[struct{ Traces []stores.RequestTrace }](t, w)
	require.Len(t, traces.Traces, 2)
	assert.Equal(t, stores.TraceFailed, traces.Traces[0].Status)
}

func TestPostMessageWhitespace(t *testing.T) {
	_, router := newTestServer(t)
	w := do(t, router, http.MethodPost, "/api/v1/panels/p1/messages", map[string]any{"text": "   "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"messages":[]}`, w.Body.String())
}

func TestPostMessageDisabled(t *testing.T) {
	_, router := newTestServer(t)
	w := do(t, router, http.MethodPut, "/api/v1/panels/p1/settings", map[string]any{"flags": map[string]bool{"assistant.enabled": false}})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/panels/p1/messages", map[string]any{"text": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(t, router, http.MethodPut, "/api/v1/panels/p1/settings", map[string]any{"flags": map[string]bool{"nope": true}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExplain(t *testing.T) {
	_, router := newTestServer(t)

	w := do(t, router, http.MethodPost, "/api/v1/panels/p1/explain", map[string]any{"content": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/panels/p1/explain", map[string]any{
		"selection": map[string]any{
			"start": map[string]int{"line": 1, "column": 1},
			"end":   map[string]int{"line": 1, "column": 3},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct{ Explanation assist.Explanation }](t, w)
	assert.Equal(t, "Hello\nworld", got.Explanation.Text)
}

func TestCompletions(t *testing.T) {
	s, router := newTestServer(t, WithCompletionRate(rate.Limit(1), 1))
	body := map[string]any{"panel_id": "p1", "content": "x = ", "cursor": map[string]int{"line": 1, "column": 5}}

	for _, id := range []string{"p1", "nope", "also-nope"} {
		body["panel_id"] = id
		w := do(t, router, http.MethodPost, "/api/v1/completions", body)
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
	assert.Empty(t, s.completions.limiters, "unknown panels must not allocate limiters")
	body["panel_id"] = "p1"

	w := do(t, router, http.MethodPut, "/api/v1/panels/p1/user", map[string]string{"username": "ada"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/completions", body)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct{ Suggestion assist.InlineSuggestion }](t, w)
	assert.Equal(t, "Hello\nworld", got.Suggestion.InsertText)

	w = do(t, router, http.MethodPost, "/api/v1/completions", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestCompletionsSignedOut(t *testing.T) {
	_, router := newTestServer(t)
	do(t, router, http.MethodPut, "/api/v1/panels/p1/user", map[string]string{"username": "ada"})
	w := do(t, router, http.MethodDelete, "/api/v1/panels/p1/user", nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodPost, "/api/v1/completions", map[string]any{"panel_id": "p1", "content": "x", "cursor": map[string]int{"line": 1, "column": 2}})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRender(t *testing.T) {
	_, router := newTestServer(t)
	w := do(t, router, http.MethodPost, "/api/v1/render", map[string]string{"markdown": "**hi** <script>alert(1)</script>"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct{ HTML string }](t, w)
	assert.Contains(t, got.HTML, "<strong>hi</strong>")
	assert.NotContains(t, got.HTML, "<script>")
}

func TestListAndDeletePanels(t *testing.T) {
	s, router := newTestServer(t)
	do(t, router, http.MethodPut, "/api/v1/panels/p1/user", map[string]string{"username": "ada"})
	do(t, router, http.MethodPost, "/api/v1/panels/p2/messages", map[string]any{"text": "hi"})

	w := do(t, router, http.MethodGet, "/api/v1/panels?owner=ada", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct{ Panels []stores.PanelInfo }](t, w)
	require.Len(t, got.Panels, 1)
	assert.Equal(t, "p1", got.Panels[0].PanelID)

	w = do(t, router, http.MethodDelete, "/api/v1/panels/p1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"p2"}, s.Registry.IDs())
}
