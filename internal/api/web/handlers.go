package web

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tunetaste/internal/domain/playlist"
	"github.com/osa030/tunetaste/internal/domain/recommendation"
)

// currentPlaylist returns the playlist URL stored on the visitor's session.
func (s *Server) currentPlaylist(c *gin.Context) string {
	id := sessionID(c)
	if id == "" {
		return ""
	}
	sess, err := s.sessions.Get(id)
	if err != nil || !sess.HasPlaylist() {
		return ""
	}
	return sess.PlaylistURL
}

// storePlaylist saves url on the visitor's session and returns what was
// stored. Recognized playlist links are stored in their canonical form;
// anything else is kept as given and rejected later by the analysis.
func (s *Server) storePlaylist(c *gin.Context, url string) string {
	if ref, err := playlist.ParseReference(url); err == nil {
		url = ref.URL()
	}
	if err := s.sessions.SetPlaylist(s.ensureSession(c), url); err != nil {
		zlog.Warn().Msgf("failed to store playlist on session: %v", err)
	}
	return url
}

func (s *Server) recordRequest(c *gin.Context) {
	id := sessionID(c)
	if id == "" {
		return
	}
	if err := s.sessions.RecordRequest(id); err != nil {
		zlog.Warn().Msgf("failed to record request on session: %v", err)
	}
}

func (s *Server) home(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"playlist_link": s.currentPlaylist(c),
	})
}

func (s *Server) submitPlaylist(c *gin.Context) {
	url := strings.TrimSpace(c.PostForm("playlist_url"))
	if url == "" {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"error":         s.config.GetMessage("invalid_playlist_url"),
			"playlist_link": s.currentPlaylist(c),
		})
		return
	}

	c.HTML(http.StatusOK, "index.html", gin.H{
		"success":       s.config.GetMessage("playlist_saved"),
		"playlist_link": s.storePlaylist(c, url),
	})
}

func (s *Server) getRecommendation(c *gin.Context) {
	url := s.currentPlaylist(c)
	if url == "" {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"error": s.config.GetMessage("playlist_required"),
		})
		return
	}

	s.recordRequest(c)
	result := s.analyzer.Analyze(c.Request.Context(), url)

	if !renderable(result) {
		c.HTML(http.StatusOK, "index.html", gin.H{
			"error":         result.Message,
			"playlist_link": url,
		})
		return
	}

	data := gin.H{
		"message":       result.Message,
		"playlist_link": url,
	}
	if result.Recommendation != nil {
		data["recommendation"] = *result.Recommendation
	}
	c.HTML(http.StatusOK, "results.html", data)
}

type playlistRequest struct {
	PlaylistURL string `json:"playlist_url"`
}

func (s *Server) apiSubmitPlaylist(c *gin.Context) {
	var req playlistRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PlaylistURL) == "" {
		errorJSON(c, http.StatusBadRequest, s.config.GetMessage("invalid_playlist_url"), recommendation.KindInvalidInput.Code())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":        "success",
		"message":       s.config.GetMessage("playlist_saved"),
		"playlist_link": s.storePlaylist(c, strings.TrimSpace(req.PlaylistURL)),
	})
}

// apiRecommendation accepts an optional playlist_url, falling back to the
// playlist stored on the session. An empty body counts as no playlist_url.
func (s *Server) apiRecommendation(c *gin.Context) {
	var req playlistRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		errorJSON(c, http.StatusBadRequest, s.config.GetMessage("invalid_playlist_url"), recommendation.KindInvalidInput.Code())
		return
	}

	url := strings.TrimSpace(req.PlaylistURL)
	if url != "" {
		url = s.storePlaylist(c, url)
	} else {
		url = s.currentPlaylist(c)
	}
	if url == "" {
		errorJSON(c, http.StatusBadRequest, s.config.GetMessage("playlist_required"), recommendation.KindInvalidInput.Code())
		return
	}

	s.recordRequest(c)
	result := s.analyzer.Analyze(c.Request.Context(), url)

	if !renderable(result) {
		errorJSON(c, statusFor(result.Kind), result.Message, result.Kind.Code())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "success",
		"message":        result.Message,
		"recommendation": result.Recommendation,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"sessions":  s.sessions.Count(),
		"timestamp": time.Now().Unix(),
	})
}

func errorJSON(c *gin.Context, status int, message, code string) {
	c.JSON(status, gin.H{
		"status":  "error",
		"message": message,
		"code":    code,
	})
}

// renderable reports whether the result is shown as a result rather than an
// error. An empty playlist or empty generation still yields a message.
func renderable(r recommendation.Result) bool {
	return r.Kind == recommendation.KindNone || r.Kind == recommendation.KindEmptyResult
}

// statusFor maps a failure kind to an HTTP status.
func statusFor(kind recommendation.Kind) int {
	switch kind {
	case recommendation.KindNone, recommendation.KindEmptyResult:
		return http.StatusOK
	case recommendation.KindInvalidInput:
		return http.StatusBadRequest
	case recommendation.KindRateLimited:
		return http.StatusTooManyRequests
	case recommendation.KindRemoteFailure:
		return http.StatusBadGateway
	case recommendation.KindTimeoutExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
