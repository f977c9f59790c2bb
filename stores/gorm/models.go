package gorm

import (
	"time"

	ac "github.com/saasapp/authcore"
)

// IdentityModel is the GORM model for identities.  The unique indexes on
// username and email are the serialization point for concurrent creates.
type IdentityModel struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Username     string    `gorm:"uniqueIndex;size:64"`
	Email        string    `gorm:"uniqueIndex;size:255"`
	HashedSecret string    `gorm:"size:255"`
	Role         string    `gorm:"size:16;default:basic"`
	TOTPSecret   string    `gorm:"size:64"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (IdentityModel) TableName() string {
	return "identities"
}

func (m *IdentityModel) ToIdentity() *ac.Identity {
	return &ac.Identity{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		HashedSecret: m.HashedSecret,
		Role:         ac.Role(m.Role),
		TOTPSecret:   m.TOTPSecret,
	}
}
