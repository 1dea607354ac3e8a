package services

import (
	"context"

	"github.com/huangang/projecthub/internal/models"
)

// Actor is the authenticated caller as seen by the services.
type Actor struct {
	UserID string
	Email  string
	Name   string
	Roles  []models.SystemRole
}

// IsAdmin reports whether the actor holds the Admin system role.
func (a Actor) IsAdmin() bool {
	return a.HasRole(models.SystemRoleAdmin)
}

func (a Actor) HasRole(role models.SystemRole) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

type clientInfoKey struct{}

// ClientInfo is request metadata recorded with audit rows.
type ClientInfo struct {
	IP        string
	UserAgent string
}

func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

func ClientInfoFrom(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}
