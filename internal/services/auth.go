package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/config"
	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/internal/utils"
	"github.com/huangang/projecthub/pkg/logger"
	"github.com/huangang/projecthub/pkg/response"
)

var errInvalidCredentials = response.NewUnauthorized("Invalid credentials")

type AuthService struct {
	uow       *UnitOfWork
	directory DirectoryAuthenticator
	jwtConfig config.JWTConfig
}

// NewAuthService wires local login; directory may be nil to disable LDAP.
func NewAuthService(uow *UnitOfWork, directory DirectoryAuthenticator, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{uow: uow, directory: directory, jwtConfig: jwtCfg}
}

type RegisterInput struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	OrganizationID *string
	WorkspaceID    *string
}

type LoginInput struct {
	Email    string
	Password string
	AuthType string // local, ldap
}

// Session is what a successful login or refresh hands back.
type Session struct {
	Token            string
	ExpiresAt        time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             *models.User
}

// Register creates a local account with the TeamMember system role.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if problems := utils.PasswordProblems(in.Password); len(problems) > 0 {
		return nil, response.NewValidation("one or more validation errors occurred", map[string][]string{
			"password": problems,
		})
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:          normalizeEmail(in.Email),
		PasswordHash:   hash,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		OrganizationID: normalizeOptionalID(in.OrganizationID),
		WorkspaceID:    normalizeOptionalID(in.WorkspaceID),
		AuthType:       models.AuthTypeLocal,
		CreatedAt:      time.Now().UTC(),
	}

	err = s.uow.Do(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return response.NewConflict("a user with this email already exists")
		}
		if user.OrganizationID != nil {
			if err := requireExists(tx, &models.Organization{}, *user.OrganizationID, "organization not found"); err != nil {
				return err
			}
		}
		if user.WorkspaceID != nil {
			if err := requireExists(tx, &models.Workspace{}, *user.WorkspaceID, "workspace not found"); err != nil {
				return err
			}
		}

		if err := tx.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return response.NewConflict("a user with this email already exists")
			}
			return err
		}

		role := models.UserRole{UserID: user.ID, Role: models.SystemRoleTeamMember}
		return s.uow.Secondary(tx.Create(&role).Error, "default role assignment")
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("user registered")
	return &user, nil
}

// Login verifies credentials and issues an access and a refresh token.
// Every credential failure yields the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	var user *models.User
	var err error

	switch in.AuthType {
	case "", models.AuthTypeLocal:
		user, err = s.localAuth(ctx, in.Email, in.Password)
	case models.AuthTypeLDAP:
		user, err = s.ldapAuth(ctx, in.Email, in.Password)
	default:
		return nil, response.NewValidation("invalid auth type", map[string][]string{
			"authType": {"must be one of [local ldap]"},
		})
	}
	if err != nil {
		return nil, err
	}

	session, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	logger.Info().Str("user_id", user.ID).Str("auth_type", user.AuthType).Msg("user logged in")
	return session, nil
}

// Refresh rotates a refresh token. Roles are re-read from the database so
// the new access token reflects current assignments.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, response.NewUnauthorized("refresh token required")
	}

	var stored models.RefreshToken
	err := s.uow.DB(ctx).Where("token_hash = ?", hashRefreshToken(refreshToken)).Take(&stored).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, response.NewUnauthorized("invalid refresh token")
	}
	if err != nil {
		return nil, err
	}
	if stored.RevokedAt != nil {
		return nil, response.NewUnauthorized("refresh token revoked")
	}
	if time.Now().After(stored.ExpiresAt) {
		return nil, response.NewUnauthorized("refresh token expired")
	}

	user, err := s.loadUser(ctx, stored.UserID)
	if err != nil {
		if response.IsKind(err, response.KindNotFound) {
			return nil, response.NewUnauthorized("invalid refresh token")
		}
		return nil, err
	}

	// The new token and the revocation of the old one commit together. The
	// conditional update lets only one of two concurrent refreshes win.
	var session *Session
	err = s.uow.Atomic(ctx, func(tx *gorm.DB) error {
		issued, replacementID, err := s.issueWith(ctx, tx, user)
		if err != nil {
			return err
		}
		session = issued
		res := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", stored.ID).
			Updates(map[string]interface{}{
				"revoked_at":           time.Now().UTC(),
				"replaced_by_token_id": replacementID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return response.NewUnauthorized("refresh token revoked")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Logout revokes the refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.uow.DB(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ? AND revoked_at IS NULL", hashRefreshToken(refreshToken)).
		Update("revoked_at", time.Now().UTC()).Error
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*Session, error) {
	session, _, err := s.issueWith(ctx, s.uow.DB(ctx), user)
	return session, err
}

// issueWith signs an access token and stores a new refresh token through
// tx. It returns the stored token's id.
func (s *AuthService) issueWith(ctx context.Context, tx *gorm.DB, user *models.User) (*Session, string, error) {
	roles := make([]string, 0, len(user.Roles))
	for _, r := range user.SystemRoles() {
		roles = append(roles, string(r))
	}

	token, expiresAt, err := utils.GenerateToken(utils.TokenSubject{
		UserID:         user.ID,
		Email:          user.Email,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		OrganizationID: deref(user.OrganizationID),
		WorkspaceID:    deref(user.WorkspaceID),
		Roles:          roles,
	})
	if err != nil {
		return nil, "", err
	}

	refresh, refreshHash, err := generateRefreshToken()
	if err != nil {
		return nil, "", err
	}
	hours := s.jwtConfig.RefreshExpireHours
	if hours <= 0 {
		hours = 720
	}
	client := ClientInfoFrom(ctx)
	record := models.RefreshToken{
		UserID:      user.ID,
		TokenHash:   refreshHash,
		ExpiresAt:   time.Now().Add(time.Duration(hours) * time.Hour),
		CreatedByIP: client.IP,
		UserAgent:   truncate(client.UserAgent, 255),
	}
	if err := tx.Create(&record).Error; err != nil {
		return nil, "", err
	}

	return &Session{
		Token:            token,
		ExpiresAt:        expiresAt,
		RefreshToken:     refresh,
		RefreshExpiresAt: record.ExpiresAt,
		User:             user,
	}, record.ID, nil
}

func (s *AuthService) localAuth(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.uow.DB(ctx).Preload("Roles").
		Where("email = ? AND auth_type = ?", normalizeEmail(email), models.AuthTypeLocal).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, errInvalidCredentials
	}
	return &user, nil
}

// ldapAuth verifies against the directory and provisions unknown users
// as TeamMembers.
func (s *AuthService) ldapAuth(ctx context.Context, login, password string) (*models.User, error) {
	if s.directory == nil {
		return nil, errInvalidCredentials
	}
	entry, err := s.directory.Authenticate(login, password)
	if err != nil {
		logger.Warn().Err(err).Str("login", login).Msg("LDAP authentication failed")
		return nil, errInvalidCredentials
	}

	email := normalizeEmail(entry.Email)
	var user models.User
	err = s.uow.DB(ctx).Where("email = ?", email).Take(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:     email,
			FirstName: entry.FirstName,
			LastName:  entry.LastName,
			AuthType:  models.AuthTypeLDAP,
			CreatedAt: time.Now().UTC(),
		}
		err = s.uow.Do(ctx, func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			return tx.Create(&models.UserRole{UserID: user.ID, Role: models.SystemRoleTeamMember}).Error
		})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("user_id", user.ID).Str("email", email).Msg("provisioned LDAP user")
	case err != nil:
		return nil, err
	case user.AuthType != models.AuthTypeLDAP:
		// a local account with the same email is not taken over
		return nil, errInvalidCredentials
	}

	return s.loadUser(ctx, user.ID)
}

func (s *AuthService) loadUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.uow.DB(ctx).Preload("Roles").Take(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return &user, nil
}

func generateRefreshToken() (token string, tokenHash string, err error) {
	randomBytes := make([]byte, 32)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(randomBytes)
	return token, hashRefreshToken(token), nil
}

func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
