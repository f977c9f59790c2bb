// Package gorm provides a relational CredentialStore backend.  Uniqueness of
// username and email is enforced by database unique indexes; a violated
// constraint is translated to authcore.ErrConflict at this boundary and never
// propagates as a raw driver error.
package gorm

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"gorm.io/gorm"

	ac "github.com/saasapp/authcore"
)

// AutoMigrate runs database migrations for the authcore tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&IdentityModel{})
}

// CredentialStore implements authcore.CredentialStore using GORM.
type CredentialStore struct {
	db *gorm.DB
}

func NewCredentialStore(db *gorm.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

// CreateIdentity inserts a new identity.  There is no pre-check-then-insert:
// the insert itself races to the unique indexes, and a constraint violation
// is the sole conflict signal.
func (s *CredentialStore) CreateIdentity(ctx context.Context, username, email, hashedSecret string, role ac.Role) (*ac.Identity, error) {
	if role == "" {
		role = ac.RoleBasic
	}
	model := &IdentityModel{
		ID:           generateIdentityID(),
		Username:     username,
		Email:        email,
		HashedSecret: hashedSecret,
		Role:         string(role),
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ac.ErrConflict
		}
		return nil, err
	}
	return model.ToIdentity(), nil
}

// FindIdentity looks up an identity by login key on the unique index matching
// its classification.
func (s *CredentialStore) FindIdentity(ctx context.Context, loginKey string) (*ac.Identity, error) {
	column := "username"
	if ac.ClassifyLoginKey(loginKey) == ac.LoginKeyEmail {
		column = "email"
	}

	var model IdentityModel
	err := s.db.WithContext(ctx).First(&model, column+" = ?", loginKey).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ac.ErrIdentityNotFound
		}
		return nil, err
	}
	return model.ToIdentity(), nil
}

// UpdateTOTPSecret overwrites the identity's TOTP secret.
func (s *CredentialStore) UpdateTOTPSecret(ctx context.Context, identityID, secret string) error {
	res := s.db.WithContext(ctx).Model(&IdentityModel{}).
		Where("id = ?", identityID).
		Update("totp_secret", secret)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ac.ErrIdentityNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a unique-constraint violation.
// GORM translates these for drivers with an error translator; the string
// checks cover drivers that don't.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation") ||
		strings.Contains(msg, "duplicate")
}

func generateIdentityID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
