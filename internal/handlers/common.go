package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/huangang/projecthub/internal/middleware"
	"github.com/huangang/projecthub/internal/services"
	"github.com/huangang/projecthub/pkg/response"
)

// idParam reads a uuid path parameter, answering 400 when malformed.
func idParam(c *gin.Context, name string) (string, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(c, response.NewValidation("invalid id", map[string][]string{name: {"must be a valid UUID"}}))
		return "", false
	}
	return id.String(), true
}

// currentActor answers 401 when the route is missing AuthRequired.
func currentActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return services.Actor{}, false
	}
	return actor, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(name)); err == nil {
		return v
	}
	return fallback
}

func setPageHeaders(c *gin.Context, total int64, page, pageSize int) {
	c.Header("X-Total-Count", strconv.FormatInt(total, 10))
	c.Header("X-Page", strconv.Itoa(page))
	c.Header("X-Page-Size", strconv.Itoa(pageSize))
}
