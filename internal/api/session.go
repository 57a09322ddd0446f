package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/radreport-mcp-server/internal/domain"
	"github.com/radreport-mcp-server/internal/middleware"
)

const sessionKey = "session"

// sessionFrom builds the caller's session from request headers. Nothing is
// kept between requests.
func sessionFrom(c *gin.Context) domain.Session {
	token := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(token, "Bearer "); ok {
		token = after
	}
	return domain.Session{
		UserID:    strings.TrimSpace(c.GetHeader("X-User-ID")),
		Token:     strings.TrimSpace(token),
		RequestID: c.GetString(middleware.CorrelationIDKey),
	}
}

// requireSession rejects requests without an X-User-ID header.
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessionFrom(c)
		if session.UserID == "" {
			abortWith(c, http.StatusUnauthorized, domain.NewReportError(
				domain.ErrInvalidInput, "X-User-ID header is required", "", session.RequestID))
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

// requireOwner restricts /users/:user routes to that user.
func (s *Server) requireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := currentSession(c)
		if c.Param("user") != session.UserID {
			abortWith(c, http.StatusForbidden, domain.NewReportError(
				domain.ErrInvalidInput, "session user does not match the requested user", "", session.RequestID))
			return
		}
		c.Next()
	}
}

func currentSession(c *gin.Context) domain.Session {
	if v, ok := c.Get(sessionKey); ok {
		if s, ok := v.(domain.Session); ok {
			return s
		}
	}
	return sessionFrom(c)
}
