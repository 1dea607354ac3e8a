package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	AuthTypeLocal = "local"
	AuthTypeLDAP  = "ldap"
)

type User struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	Email          string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash   string     `gorm:"size:255" json:"-"` // empty for LDAP users
	FirstName      string     `gorm:"size:100;not null" json:"firstName"`
	LastName       string     `gorm:"size:100;not null" json:"lastName"`
	OrganizationID *string    `gorm:"size:36;index" json:"organizationId"`
	WorkspaceID    *string    `gorm:"size:36;index" json:"workspaceId"`
	AuthType       string     `gorm:"size:20;default:local" json:"authType"`
	Roles          []UserRole `gorm:"foreignKey:UserID" json:"roles,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.ID = ensureID(u.ID)
	return nil
}

// FullName is the display name used in audit rows and tokens.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// SystemRoles flattens the loaded role rows.
func (u *User) SystemRoles() []SystemRole {
	roles := make([]SystemRole, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, r.Role)
	}
	return roles
}

// UserRole assigns a system role to a user, optionally scoped to an
// organization or workspace.
type UserRole struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	UserID         string     `gorm:"size:36;uniqueIndex:idx_user_role;not null" json:"userId"`
	Role           SystemRole `gorm:"size:50;uniqueIndex:idx_user_role;not null" json:"role"`
	OrganizationID *string    `gorm:"size:36" json:"organizationId,omitempty"`
	WorkspaceID    *string    `gorm:"size:36" json:"workspaceId,omitempty"`
	AssignedAt     time.Time  `json:"assignedAt"`
}

func (UserRole) TableName() string { return "user_roles" }

func (r *UserRole) BeforeCreate(tx *gorm.DB) error {
	r.ID = ensureID(r.ID)
	if r.AssignedAt.IsZero() {
		r.AssignedAt = time.Now().UTC()
	}
	return nil
}
