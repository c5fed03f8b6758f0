package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/julianstephens/trendlit/internal/cli"
	"github.com/julianstephens/trendlit/internal/constants"
	"github.com/julianstephens/trendlit/internal/keyring"
	"github.com/julianstephens/trendlit/internal/storage/postgres"
)

const secretAPIKey = "api-key"

// KeyringSetCmd stores a secret in the OS keyring
type KeyringSetCmd struct {
	Kind     string `arg:"" enum:"connection,api-key" help:"Secret to store: 'connection' (PostgreSQL connection string) or 'api-key' (LLM API key)."`
	Value    string `arg:"" help:"Secret value."`
	Provider string `help:"LLM provider the API key belongs to." enum:"anthropic,openai" default:"anthropic"`
}

func (cmd *KeyringSetCmd) Run(ctx *cli.Context) error {
	if cmd.Kind == secretAPIKey {
		if strings.TrimSpace(cmd.Value) == "" {
			return errors.New("API key cannot be empty")
		}
		if err := keyring.SetAPIKey(cmd.Provider, cmd.Value); err != nil {
			return err
		}
		ctx.Printf("✓ %s API key stored successfully in OS keyring\n", cmd.Provider)
		return nil
	}

	if !strings.HasPrefix(cmd.Value, "postgres://") &&
		!strings.HasPrefix(cmd.Value, "postgresql://") &&
		!strings.Contains(cmd.Value, "host=") {
		return errors.New("connection string must be a valid PostgreSQL connection string")
	}

	if _, err := postgres.ValidateConnString(cmd.Value); err != nil {
		if !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
		// The keyring is encrypted, so embedded credentials are tolerated here
		ctx.Println("⚠️  Warning: Connection string contains embedded credentials.")
		ctx.Println("   It will be stored as-is in the encrypted OS keyring.")
	}

	if err := keyring.SetConnectionString(cmd.Value); err != nil {
		return fmt.Errorf("failed to store connection string in keyring: %w", err)
	}
	ctx.Println("✓ Connection string stored successfully in OS keyring")
	ctx.Println("  You can now use trendlit without the --db flag")
	return nil
}

// KeyringGetCmd shows a stored secret with its sensitive part masked
type KeyringGetCmd struct {
	Kind     string `arg:"" enum:"connection,api-key" help:"Secret to show."`
	Provider string `help:"LLM provider the API key belongs to." enum:"anthropic,openai" default:"anthropic"`
}

func (cmd *KeyringGetCmd) Run(ctx *cli.Context) error {
	if cmd.Kind == secretAPIKey {
		key, err := keyring.GetAPIKey(cmd.Provider)
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s API key found in keyring. Use 'trendlit keyring set api-key' to store one", cmd.Provider)
		}
		if err != nil {
			return fmt.Errorf("failed to retrieve API key from keyring: %w", err)
		}
		ctx.Printf("%s API key: %s\n", cmd.Provider, maskSecret(key))
		return nil
	}

	connStr, err := keyring.GetConnectionString()
	if errors.Is(err, keyring.ErrNotFound) {
		return errors.New("no connection string found in keyring. Use 'trendlit keyring set connection' to store one")
	}
	if err != nil {
		return fmt.Errorf("failed to retrieve connection string from keyring: %w", err)
	}
	ctx.Println("Connection string retrieved from keyring:")
	ctx.Println(maskPassword(connStr))
	return nil
}

// KeyringDeleteCmd removes a secret from the OS keyring
type KeyringDeleteCmd struct {
	Kind     string `arg:"" enum:"connection,api-key" help:"Secret to delete."`
	Provider string `help:"LLM provider the API key belongs to." enum:"anthropic,openai" default:"anthropic"`
}

func (cmd *KeyringDeleteCmd) Run(ctx *cli.Context) error {
	what := "connection string"
	del := keyring.DeleteConnectionString
	if cmd.Kind == secretAPIKey {
		what = cmd.Provider + " API key"
		del = func() error { return keyring.DeleteAPIKey(cmd.Provider) }
	}

	if err := del(); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring", what)
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", what, err)
	}
	ctx.Printf("✓ %s deleted from OS keyring\n", what)
	return nil
}

// KeyringStatusCmd checks the availability of the OS keyring
type KeyringStatusCmd struct{}

func (cmd *KeyringStatusCmd) Run(ctx *cli.Context) error {
	if !keyring.IsAvailable() {
		ctx.Println("❌ OS keyring is not available on this system")
		return errors.New("keyring unavailable")
	}
	ctx.Println("✓ OS keyring is available")

	if _, err := keyring.GetConnectionString(); err == nil {
		ctx.Println("✓ Connection string is stored in keyring")
	} else if errors.Is(err, keyring.ErrNotFound) {
		ctx.Println("ℹ No connection string stored in keyring")
	}
	for _, provider := range []string{constants.ProviderAnthropic, constants.ProviderOpenAI} {
		if _, err := keyring.GetAPIKey(provider); err == nil {
			ctx.Printf("✓ %s API key is stored in keyring\n", provider)
		} else if errors.Is(err, keyring.ErrNotFound) {
			ctx.Printf("ℹ No %s API key stored in keyring\n", provider)
		}
	}
	return nil
}

// maskPassword masks passwords in connection strings for display
func maskPassword(connStr string) string {
	if strings.HasPrefix(connStr, "postgres://") || strings.HasPrefix(connStr, "postgresql://") {
		if idx := strings.Index(connStr, "://"); idx != -1 {
			remaining := connStr[idx+3:]
			// The last @ separates user info from host
			if atIdx := strings.LastIndex(remaining, "@"); atIdx != -1 {
				userInfo := remaining[:atIdx]
				if colonIdx := strings.Index(userInfo, ":"); colonIdx != -1 {
					return connStr[:idx+3] + userInfo[:colonIdx] + ":****" + connStr[idx+3+atIdx:]
				}
			}
		}
	}

	if strings.Contains(connStr, "password=") {
		parts := strings.Fields(connStr)
		masked := make([]string, 0, len(parts))
		for _, part := range parts {
			if strings.HasPrefix(part, "password=") {
				part = "password=****"
			}
			masked = append(masked, part)
		}
		return strings.Join(masked, " ")
	}

	return connStr
}

// maskSecret hides all but the last four characters.
func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
