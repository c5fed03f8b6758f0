package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/julianstephens/trendlit/internal/constants"
)

// ErrInvalidProposal is returned when proposal content violates its bounds.
var ErrInvalidProposal = errors.New("invalid goal proposal")

type GoalStatus string

const (
	GoalPending    GoalStatus = "pending"
	GoalApproved   GoalStatus = "approved"
	GoalRejected   GoalStatus = "rejected"
	GoalInProgress GoalStatus = "in_progress"
	GoalCompleted  GoalStatus = "completed"
)

var GoalStatuses = []GoalStatus{GoalPending, GoalApproved, GoalRejected, GoalInProgress, GoalCompleted}

func (s GoalStatus) Valid() bool {
	for _, v := range GoalStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func ParseGoalStatus(s string) (GoalStatus, error) {
	v := GoalStatus(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("invalid goal status: %q", s)
	}
	return v, nil
}

var goalTransitions = map[GoalStatus][]GoalStatus{
	GoalPending:    {GoalApproved, GoalRejected},
	GoalApproved:   {GoalInProgress, GoalRejected},
	GoalRejected:   {GoalPending},
	GoalInProgress: {GoalCompleted},
}

// CanTransitionTo reports whether a proposal in status s may move to next.
func (s GoalStatus) CanTransitionTo(next GoalStatus) bool {
	for _, allowed := range goalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// GoalProposal is an actionable goal synthesized from a trend. Only the
// repository changes its status after creation.
type GoalProposal struct {
	ID                    string        `json:"id"`
	Title                 string        `json:"title"`
	Description           string        `json:"description"`
	Status                GoalStatus    `json:"status"`
	Priority              int           `json:"priority"`
	SourceTrend           TrendAnalysis `json:"source_trend"`
	SupportingFeedbackIDs []string      `json:"supporting_feedback_ids"`
	Tags                  []string      `json:"tags"`
	EstimatedEffort       string        `json:"estimated_effort,omitempty"`
	PotentialImpact       string        `json:"potential_impact,omitempty"`
	SummaryText           string        `json:"summary_text"`
	CreatedAt             time.Time     `json:"created_at"`
	CreatedBy             string        `json:"created_by"`
	UpdatedAt             *time.Time    `json:"updated_at,omitempty"`
}

// GoalDraft carries the generated content a proposal is built from. It is
// also the JSON object the goal generator is asked to return.
type GoalDraft struct {
	Title           string   `json:"title" jsonschema:"description=Clear and concise goal title (10-200 characters)"`
	Description     string   `json:"description" jsonschema:"description=What the goal is and why it is needed and what success looks like (50+ characters)"`
	Tags            []string `json:"tags" jsonschema:"description=Short labels for the goal"`
	EstimatedEffort string   `json:"estimated_effort" jsonschema:"description=Brief effort estimate such as Small or 1-2 weeks"`
	PotentialImpact string   `json:"potential_impact" jsonschema:"description=Expected impact on users and metrics"`
}

// ValidateGoalContent enforces the title and description length bounds.
// Lengths are counted in characters.
func ValidateGoalContent(title, description string) error {
	titleLen := utf8.RuneCountInString(title)
	if titleLen < constants.GoalTitleMinLen || titleLen > constants.GoalTitleMaxLen {
		return fmt.Errorf("%w: title length %d not in [%d,%d]", ErrInvalidProposal,
			titleLen, constants.GoalTitleMinLen, constants.GoalTitleMaxLen)
	}
	descLen := utf8.RuneCountInString(description)
	if descLen < constants.GoalDescriptionMinLen {
		return fmt.Errorf("%w: description length %d below %d", ErrInvalidProposal,
			descLen, constants.GoalDescriptionMinLen)
	}
	return nil
}

// NewGoalProposal validates draft and assembles a pending proposal. No
// proposal is returned when validation fails.
func NewGoalProposal(draft GoalDraft, priority int, trend TrendAnalysis, supportingIDs []string, createdAt time.Time) (*GoalProposal, error) {
	if err := ValidateGoalContent(draft.Title, draft.Description); err != nil {
		return nil, err
	}
	if priority < constants.MinPriority || priority > constants.MaxPriority {
		return nil, fmt.Errorf("%w: priority %d not in [%d,%d]", ErrInvalidProposal,
			priority, constants.MinPriority, constants.MaxPriority)
	}

	tags := draft.Tags
	if tags == nil {
		tags = []string{}
	}
	ids := make([]string, len(supportingIDs))
	copy(ids, supportingIDs)

	return &GoalProposal{
		ID:                    uuid.NewString(),
		Title:                 draft.Title,
		Description:           draft.Description,
		Status:                GoalPending,
		Priority:              priority,
		SourceTrend:           trend,
		SupportingFeedbackIDs: ids,
		Tags:                  tags,
		EstimatedEffort:       draft.EstimatedEffort,
		PotentialImpact:       draft.PotentialImpact,
		SummaryText:           SummaryText(draft.Title, draft.Description),
		CreatedAt:             createdAt.UTC(),
		CreatedBy:             constants.CreatedBy,
	}, nil
}

// SummaryText is the one-line digest shown in listings: the title followed by
// the start of the description.
func SummaryText(title, description string) string {
	runes := []rune(description)
	if len(runes) > constants.SummaryDescriptionLen {
		runes = runes[:constants.SummaryDescriptionLen]
	}
	return fmt.Sprintf("%s - %s...", title, string(runes))
}
