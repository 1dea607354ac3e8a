package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/huangang/projecthub/internal/models"
)

func TestLoginScenario(t *testing.T) {
	s := newTestServer(t)
	user := s.createUser(t, "ada@example.com", models.SystemRoleTeamMember)

	w := s.do(t, "GET", "/api/users/me", "", nil)
	expectStatus(t, w, http.StatusUnauthorized)

	w = s.do(t, "POST", "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong"})
	expectStatus(t, w, http.StatusUnauthorized)
	env := decodeEnvelope(t, w)
	if env.Message != "Invalid credentials" {
		t.Errorf("message = %q, expected %q", env.Message, "Invalid credentials")
	}
	if len(env.Data) != 0 {
		t.Errorf("failed login should carry no data, got %s", env.Data)
	}

	token := s.login(t, "ada@example.com")
	if token == "" {
		t.Fatal("login returned an empty token")
	}

	w = s.do(t, "GET", "/api/users/me", token, nil)
	expectStatus(t, w, http.StatusOK)
	var me UserInfo
	decodeData(t, w, &me)
	if me.ID != user.ID {
		t.Errorf("id = %q, expected %q", me.ID, user.ID)
	}
	if me.Email != "ada@example.com" || me.FirstName != "Test" || me.LastName != "User" {
		t.Errorf("me = %+v, unexpected identity", me)
	}
	if len(me.Roles) != 1 || me.Roles[0] != string(models.SystemRoleTeamMember) {
		t.Errorf("roles = %v, expected [TeamMember]", me.Roles)
	}
}

func TestRegisterHandler(t *testing.T) {
	s := newTestServer(t)

	body := gin.H{"email": "new@example.com", "password": testPassword, "firstName": "New", "lastName": "User"}
	w := s.do(t, "POST", "/api/auth/register", "", body)
	expectStatus(t, w, http.StatusCreated)

	w = s.do(t, "POST", "/api/auth/register", "", body)
	expectStatus(t, w, http.StatusConflict)

	w = s.do(t, "POST", "/api/auth/register", "", gin.H{"email": "not-an-email", "password": "x"})
	expectStatus(t, w, http.StatusBadRequest)
	env := decodeEnvelope(t, w)
	for _, field := range []string{"email", "firstName", "lastName"} {
		if len(env.Errors[field]) == 0 {
			t.Errorf("expected validation errors for %q, got %v", field, env.Errors)
		}
	}

	// registered users can log in right away
	if token := s.login(t, "new@example.com"); token == "" {
		t.Error("expected a token for the registered user")
	}
}

func TestRefreshAndLogoutHandlers(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "ada@example.com", models.SystemRoleTeamMember)

	w := s.do(t, "POST", "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": testPassword})
	expectStatus(t, w, http.StatusOK)
	var session struct {
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}
	decodeData(t, w, &session)
	if session.RefreshToken == "" {
		t.Fatal("login should return a refresh token")
	}

	w = s.do(t, "POST", "/api/auth/refresh", "", gin.H{"refreshToken": session.RefreshToken})
	expectStatus(t, w, http.StatusOK)
	var rotated struct {
		RefreshToken string `json:"refreshToken"`
	}
	decodeData(t, w, &rotated)
	if rotated.RefreshToken == "" || rotated.RefreshToken == session.RefreshToken {
		t.Error("refresh should rotate the refresh token")
	}

	// the old token was consumed by the rotation
	w = s.do(t, "POST", "/api/auth/refresh", "", gin.H{"refreshToken": session.RefreshToken})
	expectStatus(t, w, http.StatusUnauthorized)

	w = s.do(t, "POST", "/api/auth/logout", "", gin.H{"refreshToken": rotated.RefreshToken})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, "POST", "/api/auth/refresh", "", gin.H{"refreshToken": rotated.RefreshToken})
	expectStatus(t, w, http.StatusUnauthorized)
}

func TestUserList_PageHeaders(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "a@example.com", models.SystemRoleTeamMember)
	s.createUser(t, "b@example.com", models.SystemRoleTeamMember)
	s.createUser(t, "c@example.com", models.SystemRoleTeamMember)
	token := s.login(t, "a@example.com")

	w := s.do(t, "GET", "/api/users?page=1&pageSize=2", token, nil)
	expectStatus(t, w, http.StatusOK)
	if got := w.Header().Get("X-Total-Count"); got != "3" {
		t.Errorf("X-Total-Count = %q, expected %q", got, "3")
	}
	if got := w.Header().Get("X-Page-Size"); got != "2" {
		t.Errorf("X-Page-Size = %q, expected %q", got, "2")
	}
	var users []UserInfo
	decodeData(t, w, &users)
	if len(users) != 2 {
		t.Errorf("len(users) = %d, expected 2", len(users))
	}

	w = s.do(t, "GET", "/api/users/not-a-uuid", token, nil)
	expectStatus(t, w, http.StatusBadRequest)
}
