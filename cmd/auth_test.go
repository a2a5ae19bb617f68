package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verbatim-cli/verbatim/credentials"
)

// fakeProvider is an in-memory token provider for command tests.
type fakeProvider struct {
	token string
}

func (f *fakeProvider) GetToken() (string, error) {
	if f.token == "" {
		return "", credentials.ErrNoToken
	}
	return f.token, nil
}

func (f *fakeProvider) SetToken(token string) error {
	f.token = token
	return nil
}

func (f *fakeProvider) DeleteToken() error {
	f.token = ""
	return nil
}

func (f *fakeProvider) Description() string { return "test keyring" }

func testAuthDeps(provider *fakeProvider, input string) *AuthCommandDeps {
	return &AuthCommandDeps{
		Store: func() (*credentials.Store, error) {
			return credentials.NewStoreWithProvider(provider), nil
		},
		ReadLine: func() (string, error) { return input, nil },
	}
}

// TestNewAuthCommand verifies the auth command structure.
func TestNewAuthCommand(t *testing.T) {
	cmd := NewAuthCommand(DefaultAuthDeps())

	assert.Equal(t, "auth", cmd.Use, "command name should be auth")
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Long)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["set-token"], "auth should have a set-token subcommand")
	assert.True(t, names["status"], "auth should have a status subcommand")
	assert.True(t, names["clear"], "auth should have a clear subcommand")
}

// TestAuthSetToken verifies token storage and masking.
func TestAuthSetToken(t *testing.T) {
	provider := &fakeProvider{}
	cmd := NewAuthCommand(testAuthDeps(provider, "hf_abcdefghijklmnop"))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"set-token"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "hf_abcdefghijklmnop", provider.token)
	assert.Contains(t, out.String(), "hf_a...mnop", "output should mask the token")
	assert.NotContains(t, out.String(), "hf_abcdefghijklmnop", "output must not echo the full token")
}

// TestAuthSetToken_Invalid verifies validation failures surface.
func TestAuthSetToken_Invalid(t *testing.T) {
	provider := &fakeProvider{}
	cmd := NewAuthCommand(testAuthDeps(provider, "short"))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"set-token"})

	err := cmd.Execute()
	assert.Error(t, err, "invalid token should be rejected")
	assert.Empty(t, provider.token, "invalid token must not be stored")
}

// TestAuthStatus verifies status output with and without a token.
func TestAuthStatus(t *testing.T) {
	provider := &fakeProvider{}
	cmd := NewAuthCommand(testAuthDeps(provider, ""))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"status"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "No access token stored")

	provider.token = "hf_abcdefghijklmnop"
	out.Reset()
	cmd = NewAuthCommand(testAuthDeps(provider, ""))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"status"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "hf_a...mnop")
	assert.Contains(t, out.String(), "test keyring")
}

// TestAuthClear verifies token removal.
func TestAuthClear(t *testing.T) {
	provider := &fakeProvider{token: "hf_abcdefghijklmnop"}
	cmd := NewAuthCommand(testAuthDeps(provider, ""))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"clear"})
	require.NoError(t, cmd.Execute())

	assert.Empty(t, provider.token)
	assert.Contains(t, out.String(), "Access token removed.")
}
