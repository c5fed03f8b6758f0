package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/julianstephens/trendlit/internal/constants"
	"github.com/julianstephens/trendlit/internal/logger"
	"github.com/julianstephens/trendlit/internal/models"
)

const goalSchemaName = "goal_proposal"

// OpenAI generates text with chat completions, constraining the reply to the
// goal draft JSON schema.
type OpenAI struct {
	client    openai.Client
	model     string
	maxTokens int64
	schema    any
	cfg       Config
}

func NewOpenAI(cfg Config, opts ...option.RequestOption) (*OpenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: set OPENAI_API_KEY or store one with 'trendlit keyring set'", ErrAPIKeyRequired)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	model := cfg.Model
	if model == "" {
		model = constants.DefaultOpenAIModel
	}

	return &OpenAI{
		client:    openai.NewClient(reqOpts...),
		model:     model,
		maxTokens: cfg.maxTokens(),
		schema:    GenerateSchema[models.GoalDraft](),
		cfg:       cfg,
	}, nil
}

func (o *OpenAI) Model() string {
	return o.model
}

func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(o.maxTokens),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        goalSchemaName,
					Description: openai.String("Goal proposal synthesized from a feedback trend"),
					Schema:      o.schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}

	return withRetry(ctx, o.cfg, constants.ProviderOpenAI, openAIRetryable, func() (string, error) {
		start := time.Now()
		resp, err := o.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", err
		}
		logger.Debug("OpenAI chat completed",
			"model", o.model,
			"duration_ms", time.Since(start).Milliseconds(),
			"prompt_tokens", resp.Usage.PromptTokens,
			"completion_tokens", resp.Usage.CompletionTokens)

		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("no choices in response")
		}
		return resp.Choices[0].Message.Content, nil
	})
}

// GenerateSchema reflects T into a closed JSON schema suitable for strict
// structured output.
func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func openAIRetryable(err error) bool {
	if err == nil || isContextError(err) {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return statusRetryable(apiErr.StatusCode)
	}
	// No API response at all: network trouble.
	return true
}
