package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/trendlit/internal/models"
)

var (
	// ErrNotFound is returned when a feedback record or proposal does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned for a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotInitialized is returned by Load when the store has never been initialized.
	ErrNotInitialized = errors.New("storage not initialized, run 'trendlit init' first")
)

type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Close() error

	// Feedback
	AddFeedback(ctx context.Context, records []models.ClassifiedFeedback) (int, error)
	GetFeedback(ctx context.Context, id string) (models.ClassifiedFeedback, error)
	GetFeedbackInRange(ctx context.Context, start, end time.Time) ([]models.ClassifiedFeedback, error)
	GetWindow(ctx context.Context, start, end time.Time) ([]models.ClassifiedFeedback, []models.DailyAggregate, error)

	// Goal proposals
	SaveProposals(ctx context.Context, proposals []models.GoalProposal) error
	GetProposal(ctx context.Context, id string) (models.GoalProposal, error)
	ListProposals(ctx context.Context, status models.GoalStatus, limit int) ([]models.GoalProposal, error)
	UpdateProposalStatus(ctx context.Context, id string, status models.GoalStatus) (models.GoalProposal, error)
	GetRecentProposals(ctx context.Context, days int) ([]models.GoalProposal, error)

	// Utils
	Stats(ctx context.Context) (Stats, error)
	GetConfigPath() string
}

// Stats is a point-in-time count of stored records.
type Stats struct {
	Feedback       int
	OldestFeedback *time.Time
	NewestFeedback *time.Time
	Proposals      map[models.GoalStatus]int
}

// TotalProposals sums proposals across statuses.
func (s Stats) TotalProposals() int {
	n := 0
	for _, c := range s.Proposals {
		n += c
	}
	return n
}

// CheckTransition validates a proposal status change.
func CheckTransition(from, to models.GoalStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// ValidateFeedback checks every record before a batch insert so that a bad
// record rejects the whole batch.
func ValidateFeedback(records []models.ClassifiedFeedback) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("duplicate feedback id %s in batch", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// ValidateProposals checks the invariants a stored proposal must satisfy.
func ValidateProposals(proposals []models.GoalProposal) error {
	for _, p := range proposals {
		if p.ID == "" {
			return fmt.Errorf("proposal id is required")
		}
		if err := models.ValidateGoalContent(p.Title, p.Description); err != nil {
			return fmt.Errorf("proposal %s: %w", p.ID, err)
		}
		if !p.Status.Valid() {
			return fmt.Errorf("proposal %s: invalid status %q", p.ID, p.Status)
		}
	}
	return nil
}

// RecentCutoff is the creation time after which a proposal counts as recent.
func RecentCutoff(now time.Time, days int) time.Time {
	return now.UTC().AddDate(0, 0, -days)
}

// TopicStrings converts topics for array and JSON columns.
func TopicStrings(topics []models.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = string(t)
	}
	return out
}

// ParseTopics converts stored topic strings back, rejecting unknown values.
func ParseTopics(raw []string) ([]models.Topic, error) {
	out := make([]models.Topic, 0, len(raw))
	for _, s := range raw {
		t, err := models.ParseTopic(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
