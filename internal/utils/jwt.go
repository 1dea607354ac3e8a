package utils

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtMu       sync.RWMutex
	jwtSecret   []byte
	jwtIssuer   = "projecthub"
	jwtAudience = "projecthub-clients"
	jwtTTL      = time.Hour
)

// Claims is the session capability snapshot. Roles are read from here on
// every request; project roles are never stored in the token.
type Claims struct {
	Email          string   `json:"email"`
	Name           string   `json:"name"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	OrganizationID string   `json:"organizationId,omitempty"`
	WorkspaceID    string   `json:"workspaceId,omitempty"`
	Roles          []string `json:"roles"`
	jwt.RegisteredClaims
}

// UserID is the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// TokenSubject describes whom a token is issued for.
type TokenSubject struct {
	UserID         string
	Email          string
	FirstName      string
	LastName       string
	OrganizationID string
	WorkspaceID    string
	Roles          []string
}

// ConfigureJWT sets signing parameters. Zero values keep the current setting.
func ConfigureJWT(secret, issuer, audience string, ttl time.Duration) {
	jwtMu.Lock()
	defer jwtMu.Unlock()
	if secret != "" {
		jwtSecret = []byte(secret)
	}
	if issuer != "" {
		jwtIssuer = issuer
	}
	if audience != "" {
		jwtAudience = audience
	}
	if ttl > 0 {
		jwtTTL = ttl
	}
}

func GenerateToken(s TokenSubject) (string, time.Time, error) {
	jwtMu.RLock()
	secret, issuer, audience, ttl := jwtSecret, jwtIssuer, jwtAudience, jwtTTL
	jwtMu.RUnlock()

	if len(secret) == 0 {
		return "", time.Time{}, errors.New("jwt secret is not configured")
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	name := s.FirstName
	if s.LastName != "" {
		name += " " + s.LastName
	}

	claims := Claims{
		Email:          s.Email,
		Name:           name,
		FirstName:      s.FirstName,
		LastName:       s.LastName,
		OrganizationID: s.OrganizationID,
		WorkspaceID:    s.WorkspaceID,
		Roles:          s.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID,
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func ParseToken(tokenString string) (*Claims, error) {
	jwtMu.RLock()
	secret, issuer, audience := jwtSecret, jwtIssuer, jwtAudience
	jwtMu.RUnlock()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithAudience(audience), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
