package credentials

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"
)

// Environment variables checked before the keyring, in order.
var envVars = []string{"VERBATIM_HF_TOKEN", "HF_TOKEN"}

// ErrKeyringUnavailable is returned when no system keyring backend can be
// reached.
var ErrKeyringUnavailable = errors.New("system keyring unavailable")

// Provider abstracts where the access token lives.
type Provider interface {
	// GetToken returns the stored token, or ErrNoToken if absent.
	GetToken() (string, error)

	// SetToken stores the token.
	SetToken(token string) error

	// DeleteToken removes the stored token.
	DeleteToken() error

	// Description is a human-readable name of the storage location.
	Description() string
}

// KeyringProvider stores the token in the system keyring.
type KeyringProvider struct {
	service string
}

// NewKeyringProvider creates a keyring-backed provider.
func NewKeyringProvider() *KeyringProvider {
	return &KeyringProvider{service: ServiceName}
}

// GetToken retrieves the token from the keyring.
func (p *KeyringProvider) GetToken() (string, error) {
	token, err := keyring.Get(p.service, TokenName)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return token, nil
}

// SetToken stores the token in the keyring.
func (p *KeyringProvider) SetToken(token string) error {
	if err := keyring.Set(p.service, TokenName, token); err != nil {
		return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// DeleteToken removes the token from the keyring.
func (p *KeyringProvider) DeleteToken() error {
	err := keyring.Delete(p.service, TokenName)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNoToken
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return nil
}

// Description identifies the keyring as the token source.
func (p *KeyringProvider) Description() string {
	return "system keyring"
}

// EnvProvider reads the token from an environment variable. It is
// read-only: tokens supplied through the environment are managed by
// whatever set them.
type EnvProvider struct {
	envVar string
}

// NewEnvProvider creates a provider reading the given environment variable.
func NewEnvProvider(envVar string) *EnvProvider {
	return &EnvProvider{envVar: envVar}
}

// GetToken reads the token from the environment.
func (p *EnvProvider) GetToken() (string, error) {
	token := os.Getenv(p.envVar)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// SetToken is unsupported for environment-sourced tokens.
func (p *EnvProvider) SetToken(string) error {
	return fmt.Errorf("token is supplied via %s; unset it to manage the token here", p.envVar)
}

// DeleteToken is unsupported for environment-sourced tokens.
func (p *EnvProvider) DeleteToken() error {
	return fmt.Errorf("token is supplied via %s; unset it to manage the token here", p.envVar)
}

// Description identifies the environment variable as the token source.
func (p *EnvProvider) Description() string {
	return "environment variable " + p.envVar
}

// DefaultProvider returns the provider to use: an environment variable if
// one is set, otherwise the system keyring.
func DefaultProvider() (Provider, error) {
	for _, v := range envVars {
		if os.Getenv(v) != "" {
			return NewEnvProvider(v), nil
		}
	}
	if !IsKeyringAvailable() {
		return nil, fmt.Errorf("%w: set %s instead", ErrKeyringUnavailable, envVars[0])
	}
	return NewKeyringProvider(), nil
}

// IsKeyringAvailable probes whether a keyring backend responds.
func IsKeyringAvailable() bool {
	_, err := keyring.Get(ServiceName, TokenName)
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
