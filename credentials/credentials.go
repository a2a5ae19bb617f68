// Package credentials provides secure storage of the Hugging Face access
// token the diarization models require. The token is kept in the system
// keyring:
//   - macOS: Keychain
//   - Windows: Credential Manager
//   - Linux: Secret Service (libsecret)
//
// For CI and headless environments, set VERBATIM_HF_TOKEN (or HF_TOKEN) to
// bypass the keyring entirely.
package credentials

import (
	"errors"
	"fmt"
	"strings"
)

// Keyring identity for the stored token.
const (
	ServiceName = "verbatim"
	TokenName   = "hf_token"
)

// Common errors.
var (
	// ErrNoToken is returned when no token is stored.
	ErrNoToken = errors.New("no access token stored")
	// ErrInvalidToken is returned when a token fails basic shape checks.
	ErrInvalidToken = errors.New("invalid access token")
)

// Store manages access token storage. The zero value is not usable; build
// one with NewStore or NewStoreWithProvider.
type Store struct {
	provider Provider
}

// NewStore creates a token store backed by the default provider chain:
// environment variables first, then the system keyring.
func NewStore() (*Store, error) {
	provider, err := DefaultProvider()
	if err != nil {
		return nil, fmt.Errorf("initializing token provider: %w", err)
	}
	return &Store{provider: provider}, nil
}

// NewStoreWithProvider creates a token store with a custom provider.
// This is primarily used for testing.
func NewStoreWithProvider(provider Provider) *Store {
	return &Store{provider: provider}
}

// Set validates and stores the token.
func (s *Store) Set(token string) error {
	token = strings.TrimSpace(token)
	if err := ValidateToken(token); err != nil {
		return err
	}
	if err := s.provider.SetToken(token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	return nil
}

// Get returns the stored token, or ErrNoToken.
func (s *Store) Get() (string, error) {
	token, err := s.provider.GetToken()
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Delete removes the stored token. Deleting an absent token is not an
// error.
func (s *Store) Delete() error {
	if err := s.provider.DeleteToken(); err != nil && !errors.Is(err, ErrNoToken) {
		return fmt.Errorf("deleting token: %w", err)
	}
	return nil
}

// Exists reports whether a token is stored.
func (s *Store) Exists() bool {
	token, err := s.provider.GetToken()
	return err == nil && token != ""
}

// Source describes where the active token comes from, for status output.
func (s *Store) Source() string {
	return s.provider.Description()
}

// ValidateToken performs basic shape checks on a Hugging Face token.
func ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("%w: token is empty", ErrInvalidToken)
	}
	if strings.ContainsAny(token, " \t\n") {
		return fmt.Errorf("%w: token contains whitespace", ErrInvalidToken)
	}
	if len(token) < 8 {
		return fmt.Errorf("%w: token is too short", ErrInvalidToken)
	}
	return nil
}

// MaskToken returns a masked form of the token safe to print.
func MaskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
