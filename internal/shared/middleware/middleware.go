package middleware

import (
	"net/http"
	"strings"

	"taquilla/internal/shared/utils/response"
	"taquilla/internal/users"
	"taquilla/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	ContextUserID   = "user_id"
	ContextUserRole = "user_role"
	ContextIdentity = "identity"
	ContextRequest  = "request_id"

	RequestIDHeader = "X-Request-ID"
)

// JWTAuth verifies the bearer token issued by the auth provider and stores the caller's
// identity in the context. It rejects the request before any handler runs.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, reason := parseBearer(c.GetHeader("Authorization"), secret)
		if reason != "" {
			logger.GetDefault().LogAuthFailure(c.Request.Context(), reason, c.ClientIP())
			response.RespondJSON(c, "error", http.StatusUnauthorized, reason, nil, nil)
			c.Abort()
			return
		}

		setIdentity(c, identity)
		c.Next()
	}
}

func parseBearer(header, secret string) (users.Identity, string) {
	if header == "" {
		return users.Identity{}, "Authorization header is required"
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return users.Identity{}, "authorization header format must be Bearer {token}"
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return users.Identity{}, "invalid or expired token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return users.Identity{}, "invalid token claims"
	}

	rawID, _ := claims["user_id"].(string)
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return users.Identity{}, "token has no valid user_id"
	}

	role, _ := claims["role"].(string)
	if !users.IsValidRole(role) {
		role = string(users.RoleUser)
	}
	email, _ := claims["email"].(string)

	return users.Identity{UserID: userID, Email: email, Role: users.Role(role)}, ""
}

func setIdentity(c *gin.Context, identity users.Identity) {
	c.Set(ContextIdentity, identity)
	c.Set(ContextUserID, identity.UserID.String())
	c.Set(ContextUserRole, string(identity.Role))
	c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), identity.UserID.String()))
}

// CurrentIdentity returns the identity stored by JWTAuth
func CurrentIdentity(c *gin.Context) (users.Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return users.Identity{}, false
	}
	identity, ok := v.(users.Identity)
	return identity, ok
}

// RequireRoles middleware checks if user has any of the required roles
func RequireRoles(requiredRoles ...users.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, exists := CurrentIdentity(c)
		if !exists {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "user role not found in context", nil, nil)
			c.Abort()
			return
		}

		for _, role := range requiredRoles {
			if identity.Role == role {
				c.Next()
				return
			}
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}

// RequireAdmin middleware that requires admin role
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(users.RoleAdmin)
}

// RequestID propagates or creates the X-Request-ID header
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequest, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}
