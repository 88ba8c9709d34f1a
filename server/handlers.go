package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Desarso/ideassist/assist"
	"github.com/Desarso/ideassist/editor"
	"github.com/Desarso/ideassist/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func (s *Server) health(c *gin.Context) {
	if s.Store != nil {
		if err := s.Store.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "panels": len(s.Registry.IDs())})
}

func (s *Server) serveWebSocket(c *gin.Context) {
	panel, err := s.Registry.GetOrCreate(c.Param("panelID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := sessions.NewPanelSession(uuid.NewString(), conn, panel)
	if err := session.Run(c.Request.Context()); err != nil {
		s.Logger.Printf("WebSocket session %s ended: %v", session.SessionID, err)
		return
	}
	s.Logger.Printf("WebSocket session %s ended", session.SessionID)
}

// httpSession returns a session for the panel named in the path.
func (s *Server) httpSession(c *gin.Context) (*sessions.HTTPSession, bool) {
	panel, err := s.Registry.GetOrCreate(c.Param("panelID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return sessions.NewHTTPSession(panel), true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, assist.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, assist.ErrAssistantDisabled):
		return http.StatusForbidden
	case errors.Is(err, assist.ErrNoSelection):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) postMessage(c *gin.Context) {
	var req sessions.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session, ok := s.httpSession(c)
	if !ok {
		return
	}

	msgs, err := session.RunSingleInteraction(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if msgs == nil {
		msgs = []assist.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

func (s *Server) getMessages(c *gin.Context) {
	panel, ok := s.Registry.Get(c.Param("panelID"))
	if !ok {
		c.JSON(http.StatusOK, gin.H{"messages": []assist.Message{}})
		return
	}
	msgs := sessions.NewHTTPSession(panel).GetChatHistory()
	if msgs == nil {
		msgs = []assist.Message{}
	}
	c.JSON(http.StatusOK, gin.H{
		"messages": msgs,
		"state":    panel.Chat.State().String(),
	})
}

type explainRequest struct {
	Content   *string       `json:"content"`
	Selection *editor.Range `json:"selection"`
}

func (s *Server) explain(c *gin.Context) {
	var req explainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	session, ok := s.httpSession(c)
	if !ok {
		return
	}
	exp, err := session.Explain(c.Request.Context(), req.Content, req.Selection)
	if err != nil {
		status := statusFor(err)
		msg := assist.FailureText
		if status != http.StatusInternalServerError {
			msg = err.Error()
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{"explanation": exp})
}

type signInRequest struct {
	Username string `json:"username" binding:"required"`
}

func (s *Server) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	panel, err := s.Registry.GetOrCreate(c.Param("panelID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !panel.SignIn(req.Username) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username required"})
		return
	}
	user, _ := panel.Auth.GetUser()
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) signOut(c *gin.Context) {
	if panel, ok := s.Registry.Get(c.Param("panelID")); ok {
		panel.SignOut()
	}
	c.Status(http.StatusNoContent)
}

type settingsRequest struct {
	Flags map[string]bool `json:"flags" binding:"required"`
}

func (s *Server) putSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	panel, err := s.Registry.GetOrCreate(c.Param("panelID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for key, enabled := range req.Flags {
		if err := panel.SetFlag(key, enabled); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"flags": panel.Overrides.Snapshot()})
}

type completionRequest struct {
	PanelID string `json:"panel_id" binding:"required"`
	sessions.CompletionRequest
}

func (s *Server) complete(c *gin.Context) {
	var req completionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// unknown panels never get a limiter
	panel, ok := s.Registry.Get(req.PanelID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown panel"})
		return
	}
	if !s.completions.Allow(req.PanelID) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	suggestion, ok := sessions.NewHTTPSession(panel).Complete(c.Request.Context(), req.CompletionRequest)
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})
}

type renderRequest struct {
	Markdown string `json:"markdown"`
}

func (s *Server) render(c *gin.Context) {
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"html": s.Renderer.Render(req.Markdown)})
}

func queryLimit(c *gin.Context, def int) int {
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func (s *Server) getTranscript(c *gin.Context) {
	if s.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no transcript store configured"})
		return
	}
	msgs, err := s.Store.FetchTranscript(c.Request.Context(), c.Param("panelID"), queryLimit(c, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transcript": msgs})
}

func (s *Server) getTraces(c *gin.Context) {
	if s.Store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no trace store configured"})
		return
	}
	traces, err := s.Store.ListTraces(c.Request.Context(), c.Param("panelID"), queryLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"traces": traces})
}

func (s *Server) listPanels(c *gin.Context) {
	if s.Store == nil {
		c.JSON(http.StatusOK, gin.H{"panels": s.Registry.IDs()})
		return
	}
	panels, err := s.Store.ListPanels(c.Request.Context(), c.Query("owner"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"panels": panels})
}

func (s *Server) deletePanel(c *gin.Context) {
	id := c.Param("panelID")
	s.Registry.Remove(id)
	s.completions.Forget(id)
	c.Status(http.StatusNoContent)
}
