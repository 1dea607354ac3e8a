package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/config"
	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/internal/utils"
	"github.com/huangang/projecthub/pkg/response"
)

func newAuthService(env *testEnv, dir DirectoryAuthenticator) *AuthService {
	utils.ConfigureJWT("test-secret", "projecthub", "projecthub-clients", time.Hour)
	return NewAuthService(env.uow, dir, config.DefaultConfig().JWT)
}

func registerUser(t *testing.T, svc *AuthService, email string) *models.User {
	t.Helper()
	user, err := svc.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  "Str0ng!pass",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	return user
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t, false)
	svc := newAuthService(env, nil)

	user := registerUser(t, svc, "  Ada@Example.com ")
	if user.Email != "ada@example.com" {
		t.Errorf("Email = %q, expected normalized %q", user.Email, "ada@example.com")
	}
	if user.PasswordHash == "" || user.PasswordHash == "Str0ng!pass" {
		t.Error("password should be stored hashed")
	}

	var roles []models.UserRole
	env.db.Where("user_id = ?", user.ID).Find(&roles)
	if len(roles) != 1 || roles[0].Role != models.SystemRoleTeamMember {
		t.Errorf("roles = %+v, expected TeamMember", roles)
	}

	_, err := svc.Register(context.Background(), RegisterInput{Email: "ada@example.com", Password: "Str0ng!pass", FirstName: "A", LastName: "B"})
	if !response.IsKind(err, response.KindConflict) {
		t.Errorf("duplicate Register() error = %v, expected conflict", err)
	}
}

func TestRegister_WeakPassword(t *testing.T) {
	env := newTestEnv(t, false)
	svc := newAuthService(env, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "weak@example.com", Password: "short", FirstName: "W", LastName: "P"})
	var appErr *response.AppError
	if !errors.As(err, &appErr) || appErr.Kind != response.KindValidation {
		t.Fatalf("Register() error = %v, expected validation", err)
	}
	if len(appErr.Errors["password"]) == 0 {
		t.Errorf("expected password field errors, got %v", appErr.Errors)
	}
}

func TestRegister_MissingOrganization(t *testing.T) {
	env := newTestEnv(t, false)
	svc := newAuthService(env, nil)
	org := "missing"

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "x@example.com", Password: "Str0ng!pass", FirstName: "X", LastName: "Y", OrganizationID: &org,
	})
	if !response.IsKind(err, response.KindNotFound) {
		t.Errorf("Register() error = %v, expected not found", err)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, false)
	svc := newAuthService(env, nil)
	user := registerUser(t, svc, "ada@example.com")
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "ada@example.com", "nope"},
		{"unknown user", "nobody@example.com", "Str0ng!pass"},
		{"empty password", "ada@example.com", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Login(ctx, LoginInput{Email: tt.email, Password: tt.password})
			if session != nil {
				t.Error("failed login must not return a session")
			}
			if !response.IsKind(err, response.KindUnauthorized) {
				t.Errorf("Login() error = %v, expected unauthorized", err)
			}
		})
	}

	session, err := svc.Login(ctx, LoginInput{Email: "ADA@example.com", Password: "Str0ng!pass"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.Token == "" || session.RefreshToken == "" {
		t.Fatal("expected access and refresh tokens")
	}
	claims, err := utils.ParseToken(session.Token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID() != user.ID || claims.Email != user.Email {
		t.Errorf("claims = %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != string(models.SystemRoleTeamMember) {
		t.Errorf("claims roles = %v", claims.Roles)
	}
}

func TestLogin_InvalidAuthType(t *testing.T) {
	env := newTestEnv(t, false)
	svc := newAuthService(env, nil)

	_, err := svc.Login(context.Background(), LoginInput{Email: "a@example.com", Password: "x", AuthType: "kerberos"})
	if !response.IsKind(err, response.KindValidation) {
		t.Errorf("Login() error = %v, expected validation", err)
	}
}

func TestRefreshRotatesAndPicksUpRoles(t *testing.T) {
	env := newTestEnv(t, false)
	svc := newAuthService(env, nil)
	ctx := context.Background()
	user := registerUser(t, svc, "ada@example.com")

	first, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "Str0ng!pass"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	env.db.Create(&models.UserRole{UserID: user.ID, Role: models.SystemRoleAdmin})

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Error("refresh token was not rotated")
	}
	claims, err := utils.ParseToken(second.Token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if len(claims.Roles) != 2 {
		t.Errorf("refreshed roles = %v, expected 2", claims.Roles)
	}

	if _, err := svc.Refresh(ctx, first.RefreshToken); !response.IsKind(err, response.KindUnauthorized) {
		t.Errorf("reused refresh token error = %v, expected unauthorized", err)
	}

	if err := svc.Logout(ctx, second.RefreshToken); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.Refresh(ctx, second.RefreshToken); !response.IsKind(err, response.KindUnauthorized) {
		t.Errorf("Refresh() after logout error = %v, expected unauthorized", err)
	}
}

func TestRefreshLosesToConcurrentRotation(t *testing.T) {
	env := newTestEnv(t, false)
	svc := newAuthService(env, nil)
	ctx := context.Background()
	registerUser(t, svc, "ada@example.com")

	first, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "Str0ng!pass"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	var before int64
	env.db.Model(&models.RefreshToken{}).Count(&before)

	// Another refresh of the same token commits between our read and our revoke.
	armed := true
	err = env.db.Callback().Create().Before("gorm:create").Register("test:rival_refresh", func(tx *gorm.DB) {
		if !armed || tx.Statement.Table != "refresh_tokens" {
			return
		}
		armed = false
		tx.Session(&gorm.Session{NewDB: true}).Model(&models.RefreshToken{}).
			Where("token_hash = ?", hashRefreshToken(first.RefreshToken)).
			Update("revoked_at", time.Now().UTC())
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	if _, err := svc.Refresh(ctx, first.RefreshToken); !response.IsKind(err, response.KindUnauthorized) {
		t.Fatalf("Refresh() error = %v, expected unauthorized", err)
	}
	var after int64
	env.db.Model(&models.RefreshToken{}).Count(&after)
	if after != before {
		t.Errorf("refresh tokens = %d, expected %d (replacement must roll back)", after, before)
	}
}

type fakeDirectory struct {
	users map[string]string
}

func (d *fakeDirectory) Authenticate(login, password string) (*LDAPUser, error) {
	if pw, ok := d.users[login]; ok && pw == password {
		return &LDAPUser{DN: "uid=" + login, Email: login, FirstName: "Dir", LastName: "User"}, nil
	}
	return nil, errors.New("invalid credentials")
}

func TestLogin_LDAPProvisionsUser(t *testing.T) {
	env := newTestEnv(t, false)
	svc := newAuthService(env, &fakeDirectory{users: map[string]string{"dir@example.com": "secret"}})
	ctx := context.Background()

	if _, err := svc.Login(ctx, LoginInput{Email: "dir@example.com", Password: "bad", AuthType: models.AuthTypeLDAP}); !response.IsKind(err, response.KindUnauthorized) {
		t.Errorf("Login(bad) error = %v, expected unauthorized", err)
	}

	session, err := svc.Login(ctx, LoginInput{Email: "dir@example.com", Password: "secret", AuthType: models.AuthTypeLDAP})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if session.User.AuthType != models.AuthTypeLDAP || session.User.FirstName != "Dir" {
		t.Errorf("provisioned user = %+v", session.User)
	}
	if len(session.User.Roles) != 1 {
		t.Errorf("provisioned roles = %v, expected TeamMember", session.User.Roles)
	}

	// second login reuses the row
	if _, err := svc.Login(ctx, LoginInput{Email: "dir@example.com", Password: "secret", AuthType: models.AuthTypeLDAP}); err != nil {
		t.Fatalf("second Login() error = %v", err)
	}
	var n int64
	env.db.Model(&models.User{}).Where("email = ?", "dir@example.com").Count(&n)
	if n != 1 {
		t.Errorf("users = %d, expected 1", n)
	}
}

func TestLogin_LDAPDoesNotTakeOverLocalAccount(t *testing.T) {
	env := newTestEnv(t, false)
	svc := newAuthService(env, &fakeDirectory{users: map[string]string{"ada@example.com": "secret"}})
	registerUser(t, svc, "ada@example.com")

	_, err := svc.Login(context.Background(), LoginInput{Email: "ada@example.com", Password: "secret", AuthType: models.AuthTypeLDAP})
	if !response.IsKind(err, response.KindUnauthorized) {
		t.Errorf("Login() error = %v, expected unauthorized", err)
	}
}

func TestLDAPService_Disabled(t *testing.T) {
	svc := NewLDAPService(config.LDAPConfig{Enabled: false})
	if _, err := svc.Authenticate("user", "pass"); err == nil {
		t.Error("expected error when LDAP is disabled")
	}
}
