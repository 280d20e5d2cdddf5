package auth

import (
	"errors"
	"net/http"
	"strings"

	"planpass/internal/api"

	"github.com/gin-gonic/gin"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
	ctxUserRole  = "user_role"
)

// ErrNotAuthorized is returned when a caller acts on another user's
// resources without the admin role.
var ErrNotAuthorized = api.Unauthorized("not authorized to access this subscription")

// Identity is the authenticated caller as seen by handlers.
type Identity struct {
	ID    int
	Email string
	Role  string
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			api.Fail(c, http.StatusUnauthorized, "not authorized: no token provided")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) != "Bearer" {
			api.Fail(c, http.StatusUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			api.Fail(c, http.StatusUnauthorized, "not authorized: no token provided")
			c.Abort()
			return
		}

		claims, err := ValidateToken(tokenString, secret)
		if err != nil {
			if errors.Is(err, ErrTokenExpired) {
				api.Fail(c, http.StatusUnauthorized, "token expired")
			} else {
				api.Fail(c, http.StatusUnauthorized, "not authorized: invalid token")
			}
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Set(ctxUserRole, claims.Role)

		c.Next()
	}
}

func RequireRole(requiredRole string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ctxUserRole)
		if !exists {
			api.Fail(c, http.StatusUnauthorized, "user role not found")
			c.Abort()
			return
		}

		roleStr, ok := role.(string)
		if !ok {
			api.Fail(c, http.StatusUnauthorized, "invalid role type")
			c.Abort()
			return
		}

		if roleStr != requiredRole {
			api.Fail(c, http.StatusForbidden, "access denied: role '"+roleStr+"' is not allowed")
			c.Abort()
			return
		}

		c.Next()
	}
}

func GetUserID(c *gin.Context) (int, bool) {
	userID, exists := c.Get(ctxUserID)
	if !exists {
		return 0, false
	}

	id, ok := userID.(int)
	if !ok {
		return 0, false
	}

	return id, true
}

// CurrentUser returns the identity set by AuthMiddleware.
func CurrentUser(c *gin.Context) (Identity, bool) {
	id, ok := GetUserID(c)
	if !ok {
		return Identity{}, false
	}

	email, _ := c.Get(ctxUserEmail)
	role, _ := c.Get(ctxUserRole)
	emailStr, _ := email.(string)
	roleStr, _ := role.(string)

	return Identity{ID: id, Email: emailStr, Role: roleStr}, true
}

// AuthorizeUser allows the caller to act on targetUserID when it is the
// caller's own id or the caller is an admin.
func AuthorizeUser(c *gin.Context, targetUserID int) (Identity, error) {
	who, ok := CurrentUser(c)
	if !ok {
		return Identity{}, api.Unauthorized("not authorized")
	}
	if who.ID != targetUserID && !who.IsAdmin() {
		return who, ErrNotAuthorized
	}
	return who, nil
}
