package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/oauth2"
)

// CredentialVersion is the storage format written by this release.
const CredentialVersion = 1

var (
	// ErrNoCredential is returned when no credential has been stored yet.
	ErrNoCredential = errors.New("no stored credential")

	// ErrUnsupportedVersion is returned for credential files written by a newer release.
	ErrUnsupportedVersion = errors.New("unsupported credential version")
)

// Credential is the persisted form of an OAuth token.
type Credential struct {
	Version      int       `json:"version"`
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	SavedAt      time.Time `json:"saved_at,omitempty"`
}

// NewCredential converts an oauth2 token into a Credential of the current version.
func NewCredential(tok *oauth2.Token, scopes []string) *Credential {
	return &Credential{
		Version:      CredentialVersion,
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
		Scopes:       append([]string(nil), scopes...),
	}
}

// Token returns the oauth2 token held by the credential.
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		TokenType:    c.TokenType,
		RefreshToken: c.RefreshToken,
		Expiry:       c.Expiry,
	}
}

// Covers reports whether the credential was granted every scope in want.
// Credentials that do not record their scopes are taken to cover them.
func (c *Credential) Covers(want []string) bool {
	if len(c.Scopes) == 0 || slices.Contains(c.Scopes, fullAccessScope) {
		return true
	}
	for _, s := range want {
		if !slices.Contains(c.Scopes, s) {
			return false
		}
	}
	return true
}

// CredentialStore loads and saves a single credential.
type CredentialStore interface {
	Load() (*Credential, error)
	Save(*Credential) error
}

// FileStore keeps the credential in a JSON file readable only by the owner.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore returns a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Load reads the credential. It returns ErrNoCredential if the file does not exist.
func (s *FileStore) Load() (*Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoCredential
		}
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse credential file %s: %w", s.path, err)
	}

	switch {
	case cred.Version > CredentialVersion:
		return nil, fmt.Errorf("%w: %d (this release reads up to %d)", ErrUnsupportedVersion, cred.Version, CredentialVersion)
	case cred.Version < 0:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, cred.Version)
	}

	// Version 0 files are plain oauth2.Token JSON; the fields line up.
	if cred.AccessToken == "" && cred.RefreshToken == "" {
		return nil, fmt.Errorf("credential file %s holds no token", s.path)
	}

	return &cred, nil
}

// Save writes the credential atomically with mode 0600.
func (s *FileStore) Save(cred *Credential) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	out := *cred
	out.Version = CredentialVersion
	out.SavedAt = s.now().UTC()

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("failed to create temp credential file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set credential file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credential file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to move credential file into place: %w", err)
	}
	return nil
}
