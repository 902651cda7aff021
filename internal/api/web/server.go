// Package web provides the HTML and JSON HTTP interface.
package web

import (
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osa030/tunetaste/internal/app/session/registry"
	"github.com/osa030/tunetaste/internal/domain/recommendation"
	"github.com/osa030/tunetaste/internal/infra/config"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Analyzer produces a recommendation for a playlist URL.
type Analyzer interface {
	Analyze(ctx context.Context, playlistURL string) recommendation.Result
}

// Server serves the web UI and the JSON API.
type Server struct {
	analyzer Analyzer
	sessions *registry.SessionRegistry
	config   *config.Config
	started  time.Time
}

// NewServer creates a new Server.
func NewServer(analyzer Analyzer, sessions *registry.SessionRegistry, cfg *config.Config) *Server {
	return &Server{
		analyzer: analyzer,
		sessions: sessions,
		config:   cfg,
		started:  time.Now(),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), s.sessionMiddleware())
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	r.GET("/", s.home)
	r.POST("/submit_playlist", s.submitPlaylist)
	r.POST("/get_recommendation", s.getRecommendation)

	api := r.Group("/api")
	api.POST("/playlist", s.apiSubmitPlaylist)
	api.POST("/recommendation", s.apiRecommendation)

	r.GET("/health", s.health)

	return r
}
