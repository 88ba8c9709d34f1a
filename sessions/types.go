package sessions

import (
	"log"
	"sync"
	"time"

	"github.com/Desarso/ideassist/assist"
	"github.com/Desarso/ideassist/auth"
	"github.com/Desarso/ideassist/editor"
	"github.com/gorilla/websocket"
)

// Client -> server event types
const (
	EventSubmit   = "submit"
	EventContent  = "content"
	EventCursor   = "cursor"
	EventSettings = "settings"
	EventSignIn   = "sign_in"
	EventSignOut  = "sign_out"
	EventExplain  = "explain"
	EventFix      = "fix"
	EventModel    = "model"
)

// Server -> client event types
const (
	EventMessageAppended = "message_appended"
	EventMessageUpdated  = "message_updated"
	EventInputState      = "input_state"
	EventScroll          = "scroll"
	EventFocus           = "focus"
	EventSuggestion      = "suggestion"
	EventAnalysis        = "analysis"
	EventExplanation     = "explanation"
	EventUser            = "user"
	EventError           = "error"
)

// ClientEvent is one message read from a panel's WebSocket.
type ClientEvent struct {
	Type      string           `json:"type"`
	Text      string           `json:"text,omitempty"`      // submit
	Value     *string          `json:"value,omitempty"`     // content
	Selection *editor.Range    `json:"selection,omitempty"` // content, cursor
	Cursor    *editor.Position `json:"cursor,omitempty"`    // cursor
	Key       string           `json:"key,omitempty"`       // settings
	Enabled   *bool            `json:"enabled,omitempty"`   // settings
	Username  string           `json:"username,omitempty"`  // sign_in
	Error     string           `json:"error,omitempty"`     // fix
	Model     string           `json:"model,omitempty"`     // model
}

// ServerEvent is one message written to a panel's clients.
type ServerEvent struct {
	Type        string                   `json:"type"`
	Message     *assist.Message          `json:"message,omitempty"`
	Enabled     *bool                    `json:"enabled,omitempty"`
	Suggestion  *assist.InlineSuggestion `json:"suggestion,omitempty"`
	Analysis    *assist.Analysis         `json:"analysis,omitempty"`
	Explanation *assist.Explanation      `json:"explanation,omitempty"`
	User        *auth.User               `json:"user,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// SessionError represents errors that can occur while serving a panel
type SessionError struct {
	Message string
	Fatal   bool
}

func (e *SessionError) Error() string {
	return e.Message
}

// EventWriter delivers server events to one client.
type EventWriter interface {
	WriteEvent(ev ServerEvent) error
}

// WebSocketWriter handles all WebSocket communication
type WebSocketWriter struct {
	Conn   *websocket.Conn
	Logger *log.Logger
	// WriteTimeout bounds each write; zero means no deadline.
	WriteTimeout time.Duration
	mu           sync.Mutex
}

func (w *WebSocketWriter) WriteEvent(ev ServerEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.WriteTimeout > 0 {
		w.Conn.SetWriteDeadline(time.Now().Add(w.WriteTimeout))
	}
	return w.Conn.WriteJSON(ev)
}

func (w *WebSocketWriter) WriteError(message string) error {
	return w.WriteEvent(ServerEvent{Type: EventError, Error: message})
}
