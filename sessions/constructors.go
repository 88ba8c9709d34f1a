package sessions

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

// PanelSession serves one WebSocket connection to a panel.
type PanelSession struct {
	SessionID string
	Panel     *Panel
	Conn      *websocket.Conn
	Writer    *WebSocketWriter
	Logger    *log.Logger
}

// NewPanelSession creates a new WebSocket panel session
func NewPanelSession(sessionID string, conn *websocket.Conn, panel *Panel) *PanelSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[WS %s] ", sessionID), log.LstdFlags)
	writer := &WebSocketWriter{
		Conn:         conn,
		Logger:       logger,
		WriteTimeout: 10 * time.Second,
	}

	return &PanelSession{
		SessionID: sessionID,
		Panel:     panel,
		Conn:      conn,
		Writer:    writer,
		Logger:    logger,
	}
}

// NewHTTPSession creates a new HTTP session
func NewHTTPSession(panel *Panel) *HTTPSession {
	logger := log.New(os.Stdout, fmt.Sprintf("[HTTP %s] ", panel.ID), log.LstdFlags)

	return &HTTPSession{
		Panel:  panel,
		Logger: logger,
	}
}
