package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/projecthub/internal/services"
	"github.com/huangang/projecthub/pkg/response"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{userService: users}
}

// List searches users. Paging is reported in X-Total-Count, X-Page and
// X-Page-Size.
// GET /api/users?search=&organizationId=&workspaceId=&page=&pageSize=
func (h *UserHandler) List(c *gin.Context) {
	page, err := h.userService.List(c.Request.Context(), services.UserFilter{
		Search:         c.Query("search"),
		OrganizationID: c.Query("organizationId"),
		WorkspaceID:    c.Query("workspaceId"),
		Page:           queryInt(c, "page", 1),
		PageSize:       queryInt(c, "pageSize", 50),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	users := make([]UserInfo, 0, len(page.Items))
	for i := range page.Items {
		users = append(users, toUserInfo(&page.Items[i]))
	}
	setPageHeaders(c, page.Total, page.Page, page.PageSize)
	response.Success(c, users)
}

// GetByID GET /api/users/:id
func (h *UserHandler) GetByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toUserInfo(user))
}
