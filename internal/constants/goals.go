package constants

const (
	// CreatedBy is stamped on every proposal the pipeline generates.
	CreatedBy = "trendlit"

	// Proposal content bounds, measured in characters.
	GoalTitleMinLen       = 10
	GoalTitleMaxLen       = 200
	GoalDescriptionMinLen = 50

	// Evidence limits for goal generation.
	MaxEvidenceItems      = 10
	MaxPromptSamples      = 5
	MaxSampleContentLen   = 200
	SummaryDescriptionLen = 100

	// Priority range
	MinPriority = 1
	MaxPriority = 5

	// DefaultWindowDays is the analysis window used when none is given.
	DefaultWindowDays = 7
)

// LLM providers
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"

	DefaultAnthropicModel = "claude-3-haiku-20240307"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultMaxTokens      = 1024
)
