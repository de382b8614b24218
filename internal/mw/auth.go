package mw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"smart-factory-backend/internal/auth"
	"smart-factory-backend/internal/model"
	"smart-factory-backend/internal/store"
)

const userKey = "mw.current_user"

// Authenticate resolves the current user from the Authorization bearer token.
// The token proves identity; the role is read fresh from the user row, so a
// role change takes effect on the next request and a deleted user is rejected
// even while their token is unexpired. Any failure aborts with 401 — there is
// no anonymous fallback on protected routes.
func Authenticate(s store.Store, secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := auth.ParseToken(secret, strings.TrimSpace(header[len(prefix):]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		user, err := s.GetUser(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// RequireRole rejects with 403 when the authenticated user's current role is
// not in the allow-list. Must run after Authenticate.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			return
		}
		for _, r := range roles {
			if user.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// CurrentUser returns the user resolved by Authenticate.
func CurrentUser(c *gin.Context) (model.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return model.User{}, false
	}
	user, ok := v.(model.User)
	return user, ok
}
