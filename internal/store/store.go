// Package store persists account credentials, captured token records,
// and per-account browser profiles under a single state directory.
//
// Reads are tolerant: a missing or corrupt file yields an empty
// structure, never an error. Writes are last-write-wins with no
// cross-process coordination; callers that share a state directory must
// serialize themselves.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	accountsFile = "accounts.json"
	tokensFile   = "tokens.json"
	profilesDir  = "profiles"
)

// Account is one entry of the ordered account list.
type Account struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

// TokenRecord is a captured session token for one account.
type TokenRecord struct {
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updated_at"`
	Credits   *float64  `json:"credits,omitempty"`
	Tier      string    `json:"tier,omitempty"`
}

// Store is rooted at one state directory.
type Store struct {
	dir string
}

// DefaultDir returns ~/.sunograb, or a relative fallback when the home
// directory cannot be resolved.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sunograb"
	}
	return filepath.Join(home, ".sunograb")
}

// New opens a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir()
	}
	if err := os.MkdirAll(filepath.Join(dir, profilesDir), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the state directory the store is rooted at.
func (s *Store) Dir() string { return s.dir }

// SanitizeEmail normalizes an email into the identity key used for both
// profile directories and token-map entries.
func SanitizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LoadAccounts returns the ordered account list. Missing or malformed
// files yield an empty list.
func (s *Store) LoadAccounts() []Account {
	var accounts []Account
	data, err := os.ReadFile(filepath.Join(s.dir, accountsFile))
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil
	}
	return accounts
}

// SaveAccounts replaces the account list.
func (s *Store) SaveAccounts(accounts []Account) error {
	return s.writeJSON(accountsFile, accounts)
}

// PasswordFor looks up the stored password for email, matching on the
// sanitized identity.
func (s *Store) PasswordFor(email string) (string, bool) {
	key := SanitizeEmail(email)
	for _, a := range s.LoadAccounts() {
		if SanitizeEmail(a.Email) == key {
			return a.Password, a.Password != ""
		}
	}
	return "", false
}

// LoadTokens returns the token map. Missing or malformed files yield an
// empty map.
func (s *Store) LoadTokens() map[string]TokenRecord {
	tokens := make(map[string]TokenRecord)
	data, err := os.ReadFile(filepath.Join(s.dir, tokensFile))
	if err != nil {
		return tokens
	}
	if err := json.Unmarshal(data, &tokens); err != nil {
		return make(map[string]TokenRecord)
	}
	return tokens
}

// SaveTokens replaces the whole token map.
func (s *Store) SaveTokens(tokens map[string]TokenRecord) error {
	return s.writeJSON(tokensFile, tokens)
}

// SaveToken upserts one token record, overwriting any prior record for
// the same sanitized email and stamping UpdatedAt.
func (s *Store) SaveToken(email string, rec TokenRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	tokens := s.LoadTokens()
	tokens[SanitizeEmail(email)] = rec
	return s.SaveTokens(tokens)
}

// ListTokens returns all token records keyed by sanitized email, with
// keys in sorted order for stable listings.
func (s *Store) ListTokens() ([]string, map[string]TokenRecord) {
	tokens := s.LoadTokens()
	keys := make([]string, 0, len(tokens))
	for k := range tokens {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, tokens
}

// ProfileDir returns the browser profile directory for email. The
// directory is not created here; the session controller owns that.
func (s *Store) ProfileDir(email string) string {
	return filepath.Join(s.dir, profilesDir, SanitizeEmail(email))
}

// ProfileExists reports whether a profile directory exists for email.
func (s *Store) ProfileExists(email string) bool {
	info, err := os.Stat(s.ProfileDir(email))
	return err == nil && info.IsDir()
}

// RemoveProfile deletes the profile directory for email.
func (s *Store) RemoveProfile(email string) error {
	return os.RemoveAll(s.ProfileDir(email))
}

// RemoveAccount deletes email's profile directory and its token-map
// entry together.
func (s *Store) RemoveAccount(email string) error {
	if err := s.RemoveProfile(email); err != nil {
		return fmt.Errorf("remove profile: %w", err)
	}
	tokens := s.LoadTokens()
	delete(tokens, SanitizeEmail(email))
	return s.SaveTokens(tokens)
}

// Clear deletes every profile and the entire token map.
func (s *Store) Clear() error {
	if err := os.RemoveAll(filepath.Join(s.dir, profilesDir)); err != nil {
		return fmt.Errorf("clear profiles: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(s.dir, profilesDir), 0o755); err != nil {
		return fmt.Errorf("recreate profiles dir: %w", err)
	}
	return s.SaveTokens(map[string]TokenRecord{})
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
