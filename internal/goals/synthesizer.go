// Package goals turns significant trends into validated goal proposals.
package goals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/trendlit/internal/llm"
	"github.com/julianstephens/trendlit/internal/logger"
	"github.com/julianstephens/trendlit/internal/models"
)

// SkipReason explains why a trend produced no proposal.
type SkipReason string

const (
	SkipNoEvidence       SkipReason = "no_relevant_feedback"
	SkipGenerationFailed SkipReason = "generation_failed"
	SkipMalformed        SkipReason = "malformed_response"
	SkipInvalidContent   SkipReason = "invalid_content"
)

// Outcome is the result of synthesizing one trend. Exactly one of Proposal
// and Skipped is set.
type Outcome struct {
	Trend    models.TrendAnalysis
	Proposal *models.GoalProposal
	Skipped  SkipReason
	Err      error
	// Evidence is the relevant feedback handed to the generator.
	Evidence []models.ClassifiedFeedback
}

func (o Outcome) OK() bool {
	return o.Proposal != nil
}

// Batch is the result of synthesizing a list of trends.
type Batch struct {
	Proposals []models.GoalProposal
	Outcomes  []Outcome
}

// Skipped returns the outcomes that produced no proposal.
func (b Batch) Skipped() []Outcome {
	var out []Outcome
	for _, o := range b.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// Synthesizer builds goal proposals with a text generator. It keeps no state
// between calls.
type Synthesizer struct {
	gen llm.Generator
	now func() time.Time
}

func NewSynthesizer(gen llm.Generator) *Synthesizer {
	return &Synthesizer{gen: gen, now: time.Now}
}

// WithClock overrides the creation timestamp source.
func (s *Synthesizer) WithClock(now func() time.Time) *Synthesizer {
	s.now = now
	return s
}

// Synthesize produces a proposal for one trend, or a skipped outcome. It
// never returns an error to the caller; failures are described in the
// outcome.
func (s *Synthesizer) Synthesize(ctx context.Context, trend models.TrendAnalysis, pool []models.ClassifiedFeedback) Outcome {
	out := Outcome{Trend: trend}

	out.Evidence = RelevantFeedback(trend, pool)
	if len(out.Evidence) == 0 {
		out.Skipped = SkipNoEvidence
		out.Err = fmt.Errorf("no relevant feedback for %s trend", trend.TrendType)
		return out
	}

	prompt, err := RenderPrompt(trend, out.Evidence)
	if err != nil {
		out.Skipped, out.Err = SkipGenerationFailed, err
		return out
	}

	if err := ctx.Err(); err != nil {
		out.Skipped, out.Err = SkipGenerationFailed, err
		return out
	}
	text, err := s.generate(ctx, prompt)
	if err != nil {
		out.Skipped, out.Err = SkipGenerationFailed, err
		return out
	}

	draft, err := ParseDraft(text)
	if err != nil {
		out.Skipped, out.Err = SkipMalformed, err
		return out
	}

	proposal, err := models.NewGoalProposal(draft, CalculatePriority(trend), trend, FeedbackIDs(out.Evidence), s.now())
	if err != nil {
		out.Skipped, out.Err = SkipInvalidContent, err
		return out
	}
	out.Proposal = proposal
	return out
}

// generate calls the generator, turning a panic into an error.
func (s *Synthesizer) generate(ctx context.Context, prompt string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("generator panicked: %v", r)
		}
	}()
	return s.gen.Generate(ctx, prompt)
}

// GenerateGoals synthesizes every trend in order. A failure on one trend is
// logged and recorded but never stops the others.
func (s *Synthesizer) GenerateGoals(ctx context.Context, trends []models.TrendAnalysis, pool []models.ClassifiedFeedback) Batch {
	logger.Info("Generating goals", "trends", len(trends), "feedback", len(pool))

	var batch Batch
	for i, trend := range trends {
		outcome := s.Synthesize(ctx, trend, pool)
		batch.Outcomes = append(batch.Outcomes, outcome)
		if outcome.OK() {
			batch.Proposals = append(batch.Proposals, *outcome.Proposal)
			continue
		}
		logger.Warn("Skipped goal for trend",
			"index", i,
			"trend_type", trend.TrendType,
			"reason", outcome.Skipped,
			"err", outcome.Err)
	}

	logger.Info("Generated goal proposals", "count", len(batch.Proposals), "skipped", len(trends)-len(batch.Proposals))
	return batch
}

var errMissingField = errors.New("missing required field")

// draftWire is the generator's JSON with tags left undecoded.
type draftWire struct {
	models.GoalDraft
	Tags json.RawMessage `json:"tags"`
}

// ParseDraft decodes generator output into a draft. A surrounding markdown
// code fence is ignored. Title and description are kept as returned; their
// length bounds are checked later, when the proposal is built.
func ParseDraft(text string) (models.GoalDraft, error) {
	var wire draftWire
	body := StripCodeFence(text)
	if body == "" {
		return models.GoalDraft{}, fmt.Errorf("empty response")
	}
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return models.GoalDraft{}, fmt.Errorf("failed to parse response as JSON: %w", err)
	}
	draft := wire.GoalDraft
	draft.Tags = decodeTags(wire.Tags)
	if strings.TrimSpace(draft.Title) == "" {
		return draft, fmt.Errorf("%w: title", errMissingField)
	}
	if strings.TrimSpace(draft.Description) == "" {
		return draft, fmt.Errorf("%w: description", errMissingField)
	}
	return draft, nil
}

// decodeTags accepts a list or a single string. Anything else, and any
// non-string or blank entry, is dropped.
func decodeTags(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		if strings.TrimSpace(one) == "" {
			return nil
		}
		return []string{one}
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		logger.Debug("Ignoring tags in goal response", "tags", string(raw))
		return nil
	}
	var tags []string
	for _, v := range list {
		if tag, ok := v.(string); ok && strings.TrimSpace(tag) != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// StripCodeFence removes a leading ```lang line and trailing ``` from s.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
