package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huangang/projecthub/internal/middleware"
	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/internal/services"
	"github.com/huangang/projecthub/pkg/response"
)

type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
	ldapEnabled bool
}

func NewAuthHandler(auth *services.AuthService, users *services.UserService, ldapEnabled bool) *AuthHandler {
	return &AuthHandler{authService: auth, userService: users, ldapEnabled: ldapEnabled}
}

type registerRequest struct {
	Email          string  `json:"email" binding:"required,email,max=255"`
	Password       string  `json:"password" binding:"required"`
	FirstName      string  `json:"firstName" binding:"required,max=100"`
	LastName       string  `json:"lastName" binding:"required,max=100"`
	OrganizationID *string `json:"organizationId" binding:"omitempty,uuid"`
	WorkspaceID    *string `json:"workspaceId" binding:"omitempty,uuid"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	AuthType string `json:"authType" binding:"omitempty,oneof=local ldap"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// UserInfo is the public view of an account.
type UserInfo struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	OrganizationID *string   `json:"organizationId"`
	WorkspaceID    *string   `json:"workspaceId"`
	AuthType       string    `json:"authType"`
	Roles          []string  `json:"roles"`
	CreatedAt      time.Time `json:"createdAt"`
}

type loginResponse struct {
	Token            string    `json:"token"`
	ExpiresAt        time.Time `json:"expiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
	User             UserInfo  `json:"user"`
}

func toUserInfo(u *models.User) UserInfo {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.SystemRoles() {
		roles = append(roles, string(r))
	}
	return UserInfo{
		ID:             u.ID,
		Email:          u.Email,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		OrganizationID: u.OrganizationID,
		WorkspaceID:    u.WorkspaceID,
		AuthType:       u.AuthType,
		Roles:          roles,
		CreatedAt:      u.CreatedAt,
	}
}

func toLoginResponse(s *services.Session) loginResponse {
	return loginResponse{
		Token:            s.Token,
		ExpiresAt:        s.ExpiresAt,
		RefreshToken:     s.RefreshToken,
		RefreshExpiresAt: s.RefreshExpiresAt,
		User:             toUserInfo(s.User),
	}
}

// Register creates a local account
// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	user, err := h.authService.Register(c.Request.Context(), services.RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		OrganizationID: req.OrganizationID,
		WorkspaceID:    req.WorkspaceID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toUserInfo(user))
}

// Login handles user login
// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	session, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		AuthType: req.AuthType,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toLoginResponse(session))
}

// Refresh exchanges a refresh token for a new token pair
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	session, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toLoginResponse(session))
}

// Logout revokes the refresh token; the access token simply expires
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.authService.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "logged out successfully"})
}

// Me returns the current logged-in user
// GET /api/auth/me, GET /api/users/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.userService.GetByID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		if response.IsKind(err, response.KindNotFound) {
			response.Unauthorized(c, "user no longer exists")
			return
		}
		response.Error(c, err)
		return
	}
	response.Success(c, toUserInfo(user))
}

// GetAuthConfig returns authentication configuration
// GET /api/auth/config
func (h *AuthHandler) GetAuthConfig(c *gin.Context) {
	response.Success(c, gin.H{"ldapEnabled": h.ldapEnabled})
}
