package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

const sessionKey = "session_id"

// requestLogger logs one line per request through the global zerolog logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		var evt *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			evt = zlog.Error()
		case status >= http.StatusBadRequest:
			evt = zlog.Warn()
		default:
			evt = zlog.Debug()
		}
		evt.Msgf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, status, time.Since(start).Round(time.Millisecond))
	}
}

// sessionMiddleware attaches the visitor's session when the request carries
// a cookie for a known one. It never creates sessions; handlers that store
// state call ensureSession.
func (s *Server) sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := c.Cookie(s.config.Session.CookieName); err == nil && id != "" {
			if sess, err := s.sessions.Touch(id); err == nil {
				c.Set(sessionKey, sess.ID)
			}
		}
		c.Next()
	}
}

// ensureSession returns the visitor's session ID, creating a session and
// issuing its cookie when the request has none.
func (s *Server) ensureSession(c *gin.Context) string {
	if id := sessionID(c); id != "" {
		return id
	}

	sess := s.sessions.Resolve("")
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.config.Session.CookieName, sess.ID, int(s.config.Session.TTL.Seconds()), "/", "", s.config.Session.Secure, true)
	c.Set(sessionKey, sess.ID)
	return sess.ID
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}
