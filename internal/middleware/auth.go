// internal/middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/eco-backend/internal/i18n"
	"github.com/javajoker/eco-backend/internal/models"
	"github.com/javajoker/eco-backend/internal/services"
	"github.com/javajoker/eco-backend/internal/utils"
)

// AuthRequired verifies the bearer access token in the Authorization header
// and stores the caller's identity in the request context.
func AuthRequired(jwt *utils.JWTManager) gin.HandlerFunc {
	return authenticate(jwt, bearerToken)
}

// WebsocketAuthRequired is AuthRequired for the upgrade route, where browsers
// cannot set headers and the token may come as a "token" query parameter.
func WebsocketAuthRequired(jwt *utils.JWTManager) gin.HandlerFunc {
	return authenticate(jwt, func(c *gin.Context) (string, bool) {
		if c.GetHeader("Authorization") == "" {
			token := c.Query("token")
			return token, token != ""
		}
		return bearerToken(c)
	})
}

func authenticate(jwt *utils.JWTManager, extract func(*gin.Context) (string, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := utils.GetLangFromContext(c)

		token, ok := extract(c)
		if !ok {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthRequired))
			c.Abort()
			return
		}

		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidToken))
			c.Abort()
			return
		}

		// Set user info in context
		c.Set(utils.ContextUserID, claims.UserID)
		c.Set(utils.ContextUserName, claims.Name)
		c.Set(utils.ContextUserEmail, claims.Email)
		c.Set(utils.ContextUserRole, claims.Role)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", false
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// RequirePermission rejects callers whose role is not granted the action in
// the permission matrix.
func RequirePermission(authz *services.AuthorizationService, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := utils.GetUserRoleFromContext(c)
		if !authz.Can(models.Role(role), action) {
			utils.ForbiddenResponse(c, "")
			c.Abort()
			return
		}
		c.Next()
	}
}
