package models

import (
	"time"

	"gorm.io/gorm"
)

// RefreshToken stores only the SHA-256 of the opaque token handed to the client.
type RefreshToken struct {
	ID                string     `gorm:"primaryKey;size:36" json:"id"`
	UserID            string     `gorm:"size:36;index;not null" json:"userId"`
	TokenHash         string     `gorm:"uniqueIndex;size:64;not null" json:"-"`
	ExpiresAt         time.Time  `gorm:"index;not null" json:"expiresAt"`
	RevokedAt         *time.Time `gorm:"index" json:"revokedAt,omitempty"`
	ReplacedByTokenID *string    `gorm:"size:36;index" json:"replacedByTokenId,omitempty"`
	CreatedByIP       string     `gorm:"size:64" json:"createdByIp,omitempty"`
	UserAgent         string     `gorm:"size:255" json:"userAgent,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

func (RefreshToken) TableName() string { return "refresh_tokens" }

func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	t.ID = ensureID(t.ID)
	return nil
}
