package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/internal/services"
	"github.com/huangang/projecthub/internal/utils"
	"github.com/huangang/projecthub/pkg/response"
)

const (
	ContextUserID = "user_id"
	ContextActor  = "actor"
)

// AuthRequired validates the bearer token and stores the caller in the
// context. EventSource cannot send headers, so GET requests may pass the
// token as ?access_token= instead.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		roles := make([]models.SystemRole, 0, len(claims.Roles))
		for _, r := range claims.Roles {
			roles = append(roles, models.SystemRole(r))
		}
		actor := services.Actor{
			UserID: claims.UserID(),
			Email:  claims.Email,
			Name:   claims.Name,
			Roles:  roles,
		}

		c.Set(ContextUserID, actor.UserID)
		c.Set(ContextActor, actor)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", false
		}
		return strings.TrimSpace(parts[1]), true
	}
	if c.Request.Method == "GET" {
		if token := c.Query("access_token"); token != "" {
			return token, true
		}
	}
	return "", false
}

// RequireRoles lets the request through when the caller holds any of roles.
func RequireRoles(roles ...models.SystemRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		for _, role := range roles {
			if actor.HasRole(role) {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "insufficient permissions")
		c.Abort()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRoles(models.SystemRoleAdmin)
}

func ProjectManagerOrAdmin() gin.HandlerFunc {
	return RequireRoles(models.SystemRoleAdmin, models.SystemRoleProjectManager)
}

func TeamMemberOrAbove() gin.HandlerFunc {
	return RequireRoles(models.SystemRoleAdmin, models.SystemRoleProjectManager, models.SystemRoleTeamMember)
}

// GetActor returns the authenticated caller.
func GetActor(c *gin.Context) (services.Actor, bool) {
	v, exists := c.Get(ContextActor)
	if !exists {
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}

func GetUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
