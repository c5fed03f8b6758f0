// Package llm adapts hosted language models to the goal generator contract.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/julianstephens/trendlit/internal/constants"
	"github.com/julianstephens/trendlit/internal/logger"
)

// ErrAPIKeyRequired is returned when a provider is configured without a key.
var ErrAPIKeyRequired = errors.New("API key required")

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int

	// Retry bounds for transient failures. Zero values use the defaults.
	InitialInterval time.Duration
	MaxElapsed      time.Duration
}

const defaultMaxElapsed = 30 * time.Second

// New returns the generator for cfg.Provider. An empty provider means
// Anthropic.
func New(cfg Config) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", constants.ProviderAnthropic:
		return NewAnthropic(cfg)
	case constants.ProviderOpenAI:
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q (expected %s or %s)",
			cfg.Provider, constants.ProviderAnthropic, constants.ProviderOpenAI)
	}
}

// Func adapts a function to Generator.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Static returns a generator that always answers with response.
func Static(response string) Generator {
	return Func(func(context.Context, string) (string, error) {
		return response, nil
	})
}

func (c Config) maxTokens() int64 {
	if c.MaxTokens > 0 {
		return int64(c.MaxTokens)
	}
	return constants.DefaultMaxTokens
}

func (c Config) newBackoff() backoff.BackOff {
	// BackOff implementations are stateful; build a fresh one per call.
	bo := backoff.NewExponentialBackOff()
	if c.InitialInterval > 0 {
		bo.InitialInterval = c.InitialInterval
	}
	bo.MaxElapsedTime = defaultMaxElapsed
	if c.MaxElapsed > 0 {
		bo.MaxElapsedTime = c.MaxElapsed
	}
	return bo
}

// withRetry runs call until it succeeds, fails permanently, the backoff
// gives up or ctx is done.
func withRetry(ctx context.Context, cfg Config, provider string, retryable func(error) bool, call func() (string, error)) (string, error) {
	var (
		out      string
		attempts int
	)
	err := backoff.Retry(func() error {
		attempts++
		text, err := call()
		if err == nil {
			out = text
			return nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		logger.Warn("LLM request failed, retrying", "provider", provider, "attempt", attempts, "err", err)
		return err
	}, backoff.WithContext(cfg.newBackoff(), ctx))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%s request failed after %d attempt(s): %w", provider, attempts, err)
	}
	return out, nil
}

// statusRetryable reports whether an HTTP status is worth retrying.
func statusRetryable(code int) bool {
	return code == 429 || code >= 500
}

func isNetworkTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
