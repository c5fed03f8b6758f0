package trends

import (
	"fmt"
	"sort"

	"github.com/julianstephens/trendlit/internal/logger"
	"github.com/julianstephens/trendlit/internal/models"
)

// Window is the input shared by every strategy: day-ordered aggregates and
// the classified records they were built from.
type Window struct {
	Aggregates []models.DailyAggregate
	Records    []models.ClassifiedFeedback
	// Period is copied into each candidate's TimePeriod. When empty it is
	// derived from the aggregate dates.
	Period string
}

// Strategy is one independent trend heuristic.
type Strategy interface {
	Name() string
	Detect(w Window) Outcome
}

// Report collects what happened during one detection run.
type Report struct {
	Outcomes []Outcome
	// Candidates is every candidate in strategy order, before the
	// significance cut.
	Candidates []models.TrendAnalysis
	// Significant holds candidates at or above the significance threshold,
	// most severe first.
	Significant []models.TrendAnalysis
}

// Detector runs all strategies over a window and keeps the significant
// candidates.
type Detector struct {
	cfg        Config
	strategies []Strategy
}

// NewDetector returns a detector running the four built-in strategies in
// their canonical order.
func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid trend config: %w", err)
	}
	return &Detector{
		cfg: cfg,
		strategies: []Strategy{
			&SentimentShift{cfg: cfg.SentimentShift},
			&TopicCluster{cfg: cfg.TopicCluster},
			&VolumeSpike{cfg: cfg.VolumeSpike},
			&RecurringIssue{cfg: cfg.RecurringIssue},
		},
	}, nil
}

// WithStrategies replaces the strategy list. Order matters for tie-breaking.
func (d *Detector) WithStrategies(strategies ...Strategy) *Detector {
	d.strategies = strategies
	return d
}

// Config returns the thresholds the detector was built with.
func (d *Detector) Config() Config {
	return d.cfg
}

// Detect returns the significant trends for w.
func (d *Detector) Detect(w Window) []models.TrendAnalysis {
	return d.Run(w).Significant
}

// Run evaluates every strategy and applies the significance filter. A
// failing strategy never suppresses the others.
func (d *Detector) Run(w Window) Report {
	if w.Period == "" {
		w.Period = DescribePeriod(w.Aggregates)
	}

	var report Report
	for _, s := range d.strategies {
		outcome := runStrategy(s, w)
		switch outcome.Kind {
		case OutcomeFailed:
			logger.Warn("Trend detector failed", "detector", outcome.Detector, "err", outcome.Err)
		case OutcomeNoSignal:
			logger.Debug("No signal", "detector", outcome.Detector, "reason", outcome.Reason)
		case OutcomeSignal:
			logger.Debug("Trend candidates", "detector", outcome.Detector, "count", len(outcome.Candidates))
		}
		report.Outcomes = append(report.Outcomes, outcome)
		report.Candidates = append(report.Candidates, outcome.Candidates...)
	}

	report.Significant = FilterSignificant(report.Candidates, d.cfg.SignificanceThreshold)
	return report
}

// FilterSignificant keeps candidates with severity >= threshold, sorted by
// severity descending. Equal severities keep their input order.
func FilterSignificant(candidates []models.TrendAnalysis, threshold float64) []models.TrendAnalysis {
	out := make([]models.TrendAnalysis, 0, len(candidates))
	for _, c := range candidates {
		if c.SeverityScore >= threshold {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SeverityScore > out[j].SeverityScore
	})
	return out
}

func runStrategy(s Strategy, w Window) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = failed(s.Name(), fmt.Errorf("detector panicked: %v", r))
		}
	}()
	return s.Detect(w)
}

// DescribePeriod renders the date span covered by aggs.
func DescribePeriod(aggs []models.DailyAggregate) string {
	if len(aggs) == 0 {
		return "empty window"
	}
	first := aggs[0].Date.Format("2006-01-02")
	last := aggs[len(aggs)-1].Date.Format("2006-01-02")
	if len(aggs) == 1 {
		return fmt.Sprintf("%s (1 day)", first)
	}
	return fmt.Sprintf("%s to %s (%d days)", first, last, len(aggs))
}

func validateAggregates(aggs []models.DailyAggregate) error {
	for i, a := range aggs {
		if err := a.Validate(); err != nil {
			return err
		}
		if i > 0 && !a.Date.After(aggs[i-1].Date) {
			return fmt.Errorf("aggregates out of order at %s", a.Date.Format("2006-01-02"))
		}
	}
	return nil
}

func validateRecords(records []models.ClassifiedFeedback) error {
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func ratio(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

func sentimentCounts(pos, neg, neu int) map[models.Sentiment]int {
	return map[models.Sentiment]int{
		models.SentimentPositive: pos,
		models.SentimentNegative: neg,
		models.SentimentNeutral:  neu,
	}
}

// rankTopics returns up to limit topics with a positive count, by count
// descending. Ties follow vocabulary order.
func rankTopics(counts map[models.Topic]int, limit int) []models.Topic {
	var ranked []models.Topic
	for _, t := range models.Topics {
		if counts[t] > 0 {
			ranked = append(ranked, t)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func topicLabels(topics []models.Topic) []string {
	labels := make([]string, len(topics))
	for i, t := range topics {
		labels[i] = t.Label()
	}
	return labels
}
