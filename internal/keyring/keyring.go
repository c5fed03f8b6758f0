package keyring

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/trendlit/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under the requested entry
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring is not available
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

func get(user string) (string, error) {
	secret, err := keyring.Get(constants.AppName, user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return secret, nil
}

func set(user, secret, what string) error {
	if secret == "" {
		return fmt.Errorf("%s cannot be empty", what)
	}
	if err := keyring.Set(constants.AppName, user, secret); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", what, err)
	}
	return nil
}

func del(user, what string) error {
	if err := keyring.Delete(constants.AppName, user); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", what, err)
	}
	return nil
}

// apiKeyUser scopes API keys per provider so switching providers does not
// silently reuse the wrong credential.
func apiKeyUser(provider string) string {
	return constants.KeyringUserAPIKey + ":" + provider
}

// GetConnectionString retrieves the PostgreSQL connection string.
func GetConnectionString() (string, error) {
	return get(constants.KeyringUserConnection)
}

// SetConnectionString stores the PostgreSQL connection string.
func SetConnectionString(connStr string) error {
	return set(constants.KeyringUserConnection, connStr, "connection string")
}

// DeleteConnectionString removes the PostgreSQL connection string.
func DeleteConnectionString() error {
	return del(constants.KeyringUserConnection, "connection string")
}

// GetAPIKey retrieves the LLM API key for provider.
func GetAPIKey(provider string) (string, error) {
	return get(apiKeyUser(provider))
}

// SetAPIKey stores the LLM API key for provider.
func SetAPIKey(provider, apiKey string) error {
	if provider == "" {
		return errors.New("provider cannot be empty")
	}
	return set(apiKeyUser(provider), apiKey, "API key")
}

// DeleteAPIKey removes the LLM API key for provider.
func DeleteAPIKey(provider string) error {
	return del(apiKeyUser(provider), "API key")
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
