// Package pipeline runs trend detection and goal synthesis over a window of
// classified feedback.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/trendlit/internal/goals"
	"github.com/julianstephens/trendlit/internal/logger"
	"github.com/julianstephens/trendlit/internal/models"
	"github.com/julianstephens/trendlit/internal/trends"
)

// ErrInvalidWindow is returned for a window shorter than one day.
var ErrInvalidWindow = errors.New("window must be at least one day")

// Source provides classified feedback and daily aggregates for [start, end).
type Source interface {
	GetWindow(ctx context.Context, start, end time.Time) ([]models.ClassifiedFeedback, []models.DailyAggregate, error)
}

// Repository stores generated proposals. A nil error means success.
type Repository interface {
	SaveProposals(ctx context.Context, proposals []models.GoalProposal) error
}

// Result describes one pipeline run.
type Result struct {
	Start     time.Time
	End       time.Time
	Records   int
	Detection trends.Report
	// Trends are the significant trends, most severe first.
	Trends    []models.TrendAnalysis
	Outcomes  []goals.Outcome
	Proposals []models.GoalProposal
	// Persisted is true when the proposals were handed to the repository
	// and it reported success.
	Persisted  bool
	PersistErr error
}

type Pipeline struct {
	source   Source
	detector *trends.Detector
	synth    *goals.Synthesizer
	repo     Repository
	now      func() time.Time
}

// New wires a pipeline. repo may be nil, in which case proposals are never
// saved.
func New(source Source, detector *trends.Detector, synth *goals.Synthesizer, repo Repository) *Pipeline {
	return &Pipeline{
		source:   source,
		detector: detector,
		synth:    synth,
		repo:     repo,
		now:      time.Now,
	}
}

// WithClock overrides the time source used to place the window.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

// Window returns the bounds for a run covering the windowDays completed
// calendar days (UTC) before today. Today's partial day is excluded; end is
// today's midnight.
func (p *Pipeline) Window(windowDays int) (time.Time, time.Time, error) {
	if windowDays < 1 {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: got %d", ErrInvalidWindow, windowDays)
	}
	end := models.StartOfDay(p.now())
	start := end.AddDate(0, 0, -windowDays)
	return start, end, nil
}

// Detect loads the window and runs trend detection only.
func (p *Pipeline) Detect(ctx context.Context, windowDays int) (Result, error) {
	res, _, err := p.detect(ctx, windowDays)
	return res, err
}

// DetectAndPropose runs detection, synthesizes a proposal per significant
// trend and saves them. Only an invalid window or an unreadable source
// returns an error; generation and persistence failures are reported in the
// result.
func (p *Pipeline) DetectAndPropose(ctx context.Context, windowDays int) (Result, error) {
	res, records, err := p.detect(ctx, windowDays)
	if err != nil || len(res.Trends) == 0 {
		return res, err
	}

	batch := p.synth.GenerateGoals(ctx, res.Trends, records)
	res.Outcomes = batch.Outcomes
	res.Proposals = batch.Proposals

	if len(res.Proposals) == 0 || p.repo == nil {
		return res, nil
	}
	if err := p.repo.SaveProposals(ctx, res.Proposals); err != nil {
		logger.Error("Failed to save goal proposals", "count", len(res.Proposals), "err", err)
		res.PersistErr = err
		return res, nil
	}
	res.Persisted = true
	logger.Info("Saved goal proposals", "count", len(res.Proposals))
	return res, nil
}

func (p *Pipeline) detect(ctx context.Context, windowDays int) (Result, []models.ClassifiedFeedback, error) {
	start, end, err := p.Window(windowDays)
	if err != nil {
		return Result{}, nil, err
	}
	res := Result{Start: start, End: end}

	records, aggs, err := p.source.GetWindow(ctx, start, end)
	if err != nil {
		return res, nil, fmt.Errorf("failed to load feedback window: %w", err)
	}
	res.Records = len(records)
	if len(records) == 0 {
		logger.Warn("No feedback in window", "start", start.Format(time.DateOnly), "end", end.Format(time.DateOnly))
		return res, nil, nil
	}
	if len(aggs) == 0 {
		aggs = models.BuildDailyAggregates(records, start, end)
	}
	models.SortAggregates(aggs)

	res.Detection = p.detector.Run(trends.Window{Aggregates: aggs, Records: records})
	res.Trends = res.Detection.Significant
	logger.Info("Trend detection complete",
		"records", len(records),
		"days", len(aggs),
		"candidates", len(res.Detection.Candidates),
		"significant", len(res.Trends))
	return res, records, nil
}
