package ideassist

import (
	"github.com/Desarso/ideassist/sessions"
	"github.com/gorilla/websocket"
)

// Re-export session types so callers only need the root package
type Panel = sessions.Panel
type PanelSession = sessions.PanelSession
type HTTPSession = sessions.HTTPSession
type Registry = sessions.Registry
type WebSocketWriter = sessions.WebSocketWriter
type SessionError = sessions.SessionError
type ClientEvent = sessions.ClientEvent
type ServerEvent = sessions.ServerEvent
type ChatRequest = sessions.ChatRequest

// Re-export constructor functions
func NewPanelSession(sessionID string, conn *websocket.Conn, panel *Panel) *PanelSession {
	return sessions.NewPanelSession(sessionID, conn, panel)
}

func NewHTTPSession(panel *Panel) *HTTPSession {
	return sessions.NewHTTPSession(panel)
}
