// Package server exposes assistant panels over HTTP and WebSocket.
package server

import (
	"log"
	"net/http"
	"os"

	"github.com/Desarso/ideassist/render"
	"github.com/Desarso/ideassist/sessions"
	"github.com/Desarso/ideassist/stores"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Server holds the panel registry and the optional diagnostics store behind
// the router.
type Server struct {
	Registry *sessions.Registry
	Store    stores.Store
	Renderer *render.Renderer
	Logger   *log.Logger

	upgrader    websocket.Upgrader
	completions *panelLimiter
}

type Option func(*Server)

// WithStore serves transcripts and traces from store and reports its health.
func WithStore(store stores.Store) Option {
	return func(s *Server) { s.Store = store }
}

// WithCompletionRate limits completion requests per panel.
func WithCompletionRate(limit rate.Limit, burst int) Option {
	return func(s *Server) { s.completions = newPanelLimiter(limit, burst) }
}

// WithCheckOrigin replaces the WebSocket origin check, which accepts all
// origins by default.
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(s *Server) { s.upgrader.CheckOrigin = check }
}

func WithRenderer(r *render.Renderer) Option {
	return func(s *Server) { s.Renderer = r }
}

func New(registry *sessions.Registry, opts ...Option) *Server {
	s := &Server{
		Registry: registry,
		Logger:   log.New(os.Stdout, "[HTTP] ", log.LstdFlags),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		completions: newPanelLimiter(rate.Limit(5), 10),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Renderer == nil {
		s.Renderer = render.New()
	}
	return s
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()

	router.GET("/healthz", s.health)
	router.GET("/ws/:panelID", s.serveWebSocket)

	r := router.Group("/api/v1")
	{
		r.GET("/panels", s.listPanels)
		r.POST("/panels/:panelID/messages", s.postMessage)
		r.GET("/panels/:panelID/messages", s.getMessages)
		r.POST("/panels/:panelID/explain", s.explain)
		r.PUT("/panels/:panelID/user", s.signIn)
		r.DELETE("/panels/:panelID/user", s.signOut)
		r.PUT("/panels/:panelID/settings", s.putSettings)
		r.GET("/panels/:panelID/transcript", s.getTranscript)
		r.GET("/panels/:panelID/traces", s.getTraces)
		r.DELETE("/panels/:panelID", s.deletePanel)
		r.POST("/completions", s.complete)
		r.POST("/render", s.render)
	}
	return router
}
