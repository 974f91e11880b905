package server

import (
	"net/http"

	"playx/internal/db"

	"github.com/gin-gonic/gin"
)

const contextUserKey = "currentUser"

// resolveSession attaches the authenticated user to the request context
// when a valid session cookie is present. It never rejects a request.
func (s *Server) resolveSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, user := s.sessions.Resolve(c); user != nil {
			c.Set(contextUserKey, user)
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *db.User {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, ok := value.(*db.User)
	if !ok {
		return nil
	}
	return user
}

// requireAuth rejects requests without a resolved principal.
func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c) == nil {
			respondStatusText(c, http.StatusUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireAction gates a route on the permission table: no principal is a
// 401, a principal whose role cannot perform the action is a 403.
func requireAction(action Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentUser(c)
		if user == nil {
			respondStatusText(c, http.StatusUnauthorized)
			c.Abort()
			return
		}
		role, ok := ParseRole(user.Role)
		if !ok || !Can(role, action) {
			respondStatusText(c, http.StatusForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
