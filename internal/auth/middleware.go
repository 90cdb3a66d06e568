package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/circulate/internal/config"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
)

// DefaultUserID is used when authentication is disabled.
const DefaultUserID = uint(0)

// Middleware authenticates HTTP requests against the session store.
type Middleware struct {
	sessionManager *SessionManager
	config         config.Auth
	publicPaths    map[string]bool
}

// NewMiddleware creates the authentication middleware.
func NewMiddleware(sessionManager *SessionManager, cfg config.Auth) *Middleware {
	// Register stays public so the first librarian account can be
	// created; the handler itself forbids registration once an account
	// exists and the caller is not logged in.
	publicPaths := map[string]bool{
		"/health":            true,
		"/api/auth/login":    true,
		"/api/auth/register": true,
		"/api/auth/session":  true,
	}

	return &Middleware{
		sessionManager: sessionManager,
		config:         cfg,
		publicPaths:    publicPaths,
	}
}

// Handler returns a Gin middleware that authenticates requests. When
// auth is disabled it only injects the default user.
func (m *Middleware) Handler() gin.HandlerFunc {
	if m.config.Mode == config.AuthModeNone {
		return func(c *gin.Context) {
			c.Set(ContextKeyUserID, DefaultUserID)
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if m.isPublicPath(c.Request.URL.Path) {
			c.Set(ContextKeyUserID, DefaultUserID)
			c.Next()
			return
		}

		userID := m.sessionManager.GetUserID(c.Request)
		if userID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		c.Set(ContextKeyUserID, userID)
		c.Set(ContextKeyUsername, m.sessionManager.GetUsername(c.Request))
		c.Next()
	}
}

func (m *Middleware) isPublicPath(path string) bool {
	if m.publicPaths[path] {
		return true
	}
	return strings.HasPrefix(path, "/static/")
}

