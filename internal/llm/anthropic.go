package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/julianstephens/trendlit/internal/constants"
	"github.com/julianstephens/trendlit/internal/logger"
)

// Anthropic generates text with the Messages API.
type Anthropic struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	cfg       Config
}

func NewAnthropic(cfg Config, opts ...option.RequestOption) (*Anthropic, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: set ANTHROPIC_API_KEY or store one with 'trendlit keyring set'", ErrAPIKeyRequired)
	}

	// Retries are handled by withRetry.
	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	model := cfg.Model
	if model == "" {
		model = constants.DefaultAnthropicModel
	}

	return &Anthropic{
		client:    anthropic.NewClient(reqOpts...),
		model:     anthropic.Model(model),
		maxTokens: cfg.maxTokens(),
		cfg:       cfg,
	}, nil
}

func (a *Anthropic) Model() string {
	return string(a.model)
}

func (a *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	return withRetry(ctx, a.cfg, constants.ProviderAnthropic, anthropicRetryable, func() (string, error) {
		start := time.Now()
		message, err := a.client.Messages.New(ctx, params)
		if err != nil {
			return "", err
		}
		logger.Debug("Anthropic message completed",
			"model", a.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"input_tokens", message.Usage.InputTokens,
			"output_tokens", message.Usage.OutputTokens)

		if len(message.Content) == 0 {
			return "", fmt.Errorf("unexpected response format: no content blocks")
		}
		content := message.Content[0]
		if content.Type != "text" {
			return "", fmt.Errorf("unexpected response format: not a text block (type=%s)", content.Type)
		}
		return content.Text, nil
	})
}

func anthropicRetryable(err error) bool {
	if err == nil || isContextError(err) {
		return false
	}
	if isNetworkTimeout(err) {
		return true
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return statusRetryable(apiErr.StatusCode)
	}
	return false
}
