package sessions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Desarso/ideassist/assist"
	"github.com/Desarso/ideassist/editor"
	"github.com/Desarso/ideassist/models"
	"github.com/Desarso/ideassist/settings"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu     sync.Mutex
	events []ServerEvent
}

func (w *recordingWriter) WriteEvent(ev ServerEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, ev)
	return nil
}

func (w *recordingWriter) types() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.events))
	for i, ev := range w.events {
		out[i] = ev.Type
	}
	return out
}

func echoModel(calls *[]models.Model_Request, mu *sync.Mutex) models.Model {
	return models.ModelFunc(func(ctx context.Context, req models.Model_Request) (models.Model_Response, error) {
		mu.Lock()
		*calls = append(*calls, req)
		mu.Unlock()
		if strings.Contains(req.Messages[len(req.Messages)-1].Content, "fail") {
			return models.Model_Response{}, errors.New("endpoint down")
		}
		return models.TextResponse("**ok**"), nil
	})
}

func newTestPanel(t *testing.T, model models.Model) *Panel {
	t.Helper()
	suggest := assist.DefaultSuggestionConfig()
	suggest.Debounce = 5 * time.Millisecond
	p, err := NewPanel("panel-1", PanelConfig{
		Model:   model,
		Chat:    assist.DefaultConfig(),
		Suggest: suggest,
	})
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestPanelBroadcastsToAttachedWriters(t *testing.T) {
	var calls []models.Model_Request
	var mu sync.Mutex
	p := newTestPanel(t, echoModel(&calls, &mu))

	a, b := &recordingWriter{}, &recordingWriter{}
	p.Attach(a)
	detachB := p.Attach(b)
	detachB()

	require.NoError(t, p.Chat.Submit(context.Background(), "hello"))

	assert.Equal(t, []string{
		EventInputState, EventMessageAppended, EventMessageAppended,
		EventMessageUpdated, EventInputState, EventScroll, EventFocus,
	}, a.types())
	assert.Empty(t, b.types())

	last := a.events[3].Message
	require.NotNil(t, last)
	assert.Contains(t, last.Markup, "<strong>ok</strong>")
}

func TestPanelSetFlag(t *testing.T) {
	var calls []models.Model_Request
	var mu sync.Mutex
	p := newTestPanel(t, echoModel(&calls, &mu))

	require.NoError(t, p.SetFlag(settings.KeyAssistantEnabled, false))
	assert.ErrorIs(t, p.Chat.Submit(context.Background(), "hi"), assist.ErrAssistantDisabled)
	assert.Error(t, p.SetFlag("editor.theme", true))
}

func TestPanelSetModel(t *testing.T) {
	var calls []models.Model_Request
	var mu sync.Mutex
	p := newTestPanel(t, echoModel(&calls, &mu))

	p.SetModel("groq/llama")
	require.NoError(t, p.Chat.Submit(context.Background(), "hi"))
	require.Len(t, calls, 1)
	assert.Equal(t, "groq/llama", calls[0].Model)
}

func TestRegistryReusesPanels(t *testing.T) {
	var calls []models.Model_Request
	var mu sync.Mutex
	r := NewRegistry(PanelConfig{Model: echoModel(&calls, &mu), Chat: assist.DefaultConfig()})
	defer r.Close()

	a, err := r.GetOrCreate("b")
	require.NoError(t, err)
	again, err := r.GetOrCreate("b")
	require.NoError(t, err)
	assert.Same(t, a, again)

	_, err = r.GetOrCreate("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.IDs())

	r.Remove("b")
	_, ok := r.Get("b")
	assert.False(t, ok)
}

func TestHTTPSessionRunSingleInteraction(t *testing.T) {
	var calls []models.Model_Request
	var mu sync.Mutex
	s := NewHTTPSession(newTestPanel(t, echoModel(&calls, &mu)))

	content := "int main() {}"
	msgs, err := s.RunSingleInteraction(context.Background(), ChatRequest{Text: "why?", Content: &content})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, assist.RoleUser, msgs[0].Role)
	assert.Equal(t, assist.RoleAssistant, msgs[1].Role)
	assert.Contains(t, calls[0].Messages[0].Content, content)

	msgs, err = s.RunSingleInteraction(context.Background(), ChatRequest{Text: "please fail", Kind: assist.KindFix})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, assist.RoleError, msgs[0].Role)
	assert.Equal(t, assist.FailureText, msgs[0].Content)

	_, err = s.RunSingleInteraction(context.Background(), ChatRequest{Text: "x", Kind: "poem"})
	assert.Error(t, err)
	assert.Len(t, s.GetChatHistory(), 3)
}

func TestHTTPSessionExplain(t *testing.T) {
	var calls []models.Model_Request
	var mu sync.Mutex
	s := NewHTTPSession(newTestPanel(t, echoModel(&calls, &mu)))

	content := "a = 1\nb = 2"
	_, err := s.Explain(context.Background(), &content, nil)
	assert.ErrorIs(t, err, assist.ErrNoSelection)

	sel := editor.Range{Start: editor.Position{Line: 2, Column: 1}, End: editor.Position{Line: 2, Column: 6}}
	exp, err := s.Explain(context.Background(), nil, &sel)
	require.NoError(t, err)
	assert.Equal(t, sel, exp.Range)
	assert.Equal(t, "Explain this code:\nb = 2", calls[0].Messages[0].Content)
	assert.Empty(t, s.GetChatHistory())
}

func TestHTTPSessionCompleteRequiresSignIn(t *testing.T) {
	var calls []models.Model_Request
	var mu sync.Mutex
	p := newTestPanel(t, echoModel(&calls, &mu))
	s := NewHTTPSession(p)

	req := CompletionRequest{Content: "x = ", Cursor: editor.Position{Line: 1, Column: 5}}
	_, ok := s.Complete(context.Background(), req)
	assert.False(t, ok)
	assert.Empty(t, calls)

	p.Auth.SignIn("ada")
	sug, ok := s.Complete(context.Background(), req)
	require.True(t, ok)
	assert.Equal(t, "**ok**", sug.InsertText)
}

func dialPanel(t *testing.T, p *Panel) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		NewPanelSession("test", conn, p).Run(r.Context())
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *websocket.Conn, eventType string) ServerEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var ev ServerEvent
		require.NoError(t, conn.ReadJSON(&ev))
		if ev.Type == eventType {
			return ev
		}
	}
}

func TestPanelSessionChatOverWebSocket(t *testing.T) {
	var calls []models.Model_Request
	var mu sync.Mutex
	p := newTestPanel(t, echoModel(&calls, &mu))
	conn := dialPanel(t, p)

	ev := readUntil(t, conn, EventInputState)
	require.NotNil(t, ev.Enabled)
	assert.True(t, *ev.Enabled)

	require.NoError(t, conn.WriteJSON(ClientEvent{Type: EventSubmit, Text: "hi"}))
	updated := readUntil(t, conn, EventMessageUpdated)
	require.NotNil(t, updated.Message)
	assert.Equal(t, "**ok**", updated.Message.Content)
	readUntil(t, conn, EventFocus)

	require.NoError(t, conn.WriteJSON(ClientEvent{Type: "bogus"}))
	errEv := readUntil(t, conn, EventError)
	assert.Contains(t, errEv.Error, "bogus")
}

func TestPanelSessionReplaysMessages(t *testing.T) {
	var calls []models.Model_Request
	var mu sync.Mutex
	p := newTestPanel(t, echoModel(&calls, &mu))
	require.NoError(t, p.Chat.Submit(context.Background(), "earlier"))

	conn := dialPanel(t, p)
	first := readUntil(t, conn, EventMessageAppended)
	require.NotNil(t, first.Message)
	assert.Equal(t, "earlier", first.Message.Content)
	second := readUntil(t, conn, EventMessageAppended)
	assert.Equal(t, assist.RoleAssistant, second.Message.Role)
}

func TestPanelSessionSuggestionFlow(t *testing.T) {
	var calls []models.Model_Request
	var mu sync.Mutex
	p := newTestPanel(t, echoModel(&calls, &mu))
	conn := dialPanel(t, p)

	value := "x = "
	require.NoError(t, conn.WriteJSON(ClientEvent{Type: EventContent, Value: &value}))
	require.NoError(t, conn.WriteJSON(ClientEvent{Type: EventSignIn, Username: "ada"}))
	user := readUntil(t, conn, EventUser)
	require.NotNil(t, user.User)
	assert.Equal(t, "ada", user.User.Username)

	cursor := editor.Position{Line: 1, Column: 5}
	require.NoError(t, conn.WriteJSON(ClientEvent{Type: EventCursor, Cursor: &cursor}))
	sug := readUntil(t, conn, EventSuggestion)
	require.NotNil(t, sug.Suggestion)
	assert.Equal(t, cursor, sug.Suggestion.Range.Start)
}

func TestPanelSessionSubmitUsesEditorAtSubmitTime(t *testing.T) {
	var calls []models.Model_Request
	var mu sync.Mutex
	p := newTestPanel(t, echoModel(&calls, &mu))
	p.Buffer.SetValue("OLD")
	conn := dialPanel(t, p)
	readUntil(t, conn, EventInputState)

	newer := "NEW"
	require.NoError(t, conn.WriteJSON(ClientEvent{Type: EventSubmit, Text: "q"}))
	require.NoError(t, conn.WriteJSON(ClientEvent{Type: EventContent, Value: &newer}))
	readUntil(t, conn, EventMessageUpdated)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, calls, 1)
	sent := calls[0].Messages[len(calls[0].Messages)-1].Content
	assert.Contains(t, sent, "OLD")
	assert.NotContains(t, sent, "NEW")
	assert.Equal(t, "NEW", p.Buffer.GetValue())
}

func TestPanelSessionBusyAnsweredInOrder(t *testing.T) {
	release := make(chan struct{})
	model := models.ModelFunc(func(ctx context.Context, req models.Model_Request) (models.Model_Response, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return models.Model_Response{}, ctx.Err()
		}
		return models.TextResponse("done"), nil
	})
	p := newTestPanel(t, model)
	conn := dialPanel(t, p)
	defer close(release)
	readUntil(t, conn, EventInputState)

	require.NoError(t, conn.WriteJSON(ClientEvent{Type: EventSubmit, Text: "first"}))
	readUntil(t, conn, EventMessageAppended)
	placeholder := readUntil(t, conn, EventMessageAppended)
	require.NotNil(t, placeholder.Message)
	assert.True(t, placeholder.Message.Loading)

	require.NoError(t, conn.WriteJSON(ClientEvent{Type: EventSubmit, Text: "second"}))
	errEv := readUntil(t, conn, EventError)
	assert.Equal(t, "A request is already in progress", errEv.Error)
}
