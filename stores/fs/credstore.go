// Package fs provides a filesystem-backed CredentialStore that keeps each
// identity as a JSON file plus index files for the username and email unique
// keys.  Intended for development and tests; production deployments should
// use the gorm backend.
package fs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	ac "github.com/saasapp/authcore"
)

// identityRecord is the on-disk shape of an identity.
type identityRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	HashedSecret string    `json:"hashed_secret"`
	Role         ac.Role   `json:"role"`
	TOTPSecret   string    `json:"totp_secret,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CredentialStore stores identities as JSON files under StoragePath.  A
// process-wide mutex makes create-and-index atomic, standing in for the
// unique constraint a database would enforce.  Files are written via
// temp-and-rename, so lookups run without the lock and still see a complete
// record.
type CredentialStore struct {
	StoragePath string

	mu sync.Mutex
}

func NewCredentialStore(storagePath string) *CredentialStore {
	return &CredentialStore{StoragePath: storagePath}
}

func (s *CredentialStore) identityPath(id string) string {
	return filepath.Join(s.StoragePath, "identities", id+".json")
}

func (s *CredentialStore) usernamePath(username string) string {
	return filepath.Join(s.StoragePath, "usernames", indexKey(username)+".json")
}

func (s *CredentialStore) emailPath(email string) string {
	return filepath.Join(s.StoragePath, "emails", indexKey(email)+".json")
}

// indexKey escapes a login key for use as a file name, so keys containing
// path separators cannot point outside the index directory.
func indexKey(key string) string {
	return url.PathEscape(key)
}

// CreateIdentity creates a new identity.  Returns authcore.ErrConflict if the
// username or email already has an index entry.  The record and both index
// entries are written under the lock, so a losing concurrent writer always
// observes the conflict.
func (s *CredentialStore) CreateIdentity(ctx context.Context, username, email, hashedSecret string, role ac.Role) (*ac.Identity, error) {
	if role == "" {
		role = ac.RoleBasic
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if fileExists(s.usernamePath(username)) || fileExists(s.emailPath(email)) {
		return nil, ac.ErrConflict
	}

	rec := &identityRecord{
		ID:           generateIdentityID(),
		Username:     username,
		Email:        email,
		HashedSecret: hashedSecret,
		Role:         role,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := s.writeRecord(rec); err != nil {
		return nil, err
	}
	if err := writeJSONFile(s.usernamePath(username), rec.ID); err != nil {
		// Unwind the record so a partial create is not observable.
		os.Remove(s.identityPath(rec.ID))
		return nil, err
	}
	if err := writeJSONFile(s.emailPath(email), rec.ID); err != nil {
		os.Remove(s.usernamePath(username))
		os.Remove(s.identityPath(rec.ID))
		return nil, err
	}
	return rec.toIdentity(), nil
}

// FindIdentity looks up an identity by login key, using the email index when
// the key parses as an email address and the username index otherwise.
func (s *CredentialStore) FindIdentity(ctx context.Context, loginKey string) (*ac.Identity, error) {
	var indexPath string
	switch ac.ClassifyLoginKey(loginKey) {
	case ac.LoginKeyEmail:
		indexPath = s.emailPath(loginKey)
	default:
		indexPath = s.usernamePath(loginKey)
	}

	var id string
	if err := readJSONFile(indexPath, &id); err != nil {
		if os.IsNotExist(err) {
			return nil, ac.ErrIdentityNotFound
		}
		return nil, err
	}

	rec, err := s.loadRecord(id)
	if err != nil {
		return nil, err
	}
	return rec.toIdentity(), nil
}

// UpdateTOTPSecret overwrites the identity's TOTP secret.
func (s *CredentialStore) UpdateTOTPSecret(ctx context.Context, identityID, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.loadRecord(identityID)
	if err != nil {
		return err
	}
	rec.TOTPSecret = secret
	rec.UpdatedAt = time.Now()
	return s.writeRecord(rec)
}

func (s *CredentialStore) loadRecord(id string) (*identityRecord, error) {
	var rec identityRecord
	if err := readJSONFile(s.identityPath(id), &rec); err != nil {
		if os.IsNotExist(err) {
			return nil, ac.ErrIdentityNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func (s *CredentialStore) writeRecord(rec *identityRecord) error {
	return writeJSONFile(s.identityPath(rec.ID), rec)
}

func (r *identityRecord) toIdentity() *ac.Identity {
	return &ac.Identity{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		HashedSecret: r.HashedSecret,
		Role:         r.Role,
		TOTPSecret:   r.TOTPSecret,
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func writeJSONFile(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

// writeAtomicFile writes data to a file atomically by writing to a temp file
// first, so unlocked readers never observe a partially-written record.
func writeAtomicFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func readJSONFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("corrupt record %s: %w", path, err)
	}
	return nil
}

func generateIdentityID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
