package trends

import (
	"fmt"
	"math"
	"strings"

	"github.com/julianstephens/trendlit/internal/models"
)

const maxPrimaryTopics = 3

// SentimentShift compares the negative ratio of the trailing days with the
// rest of the window.
type SentimentShift struct {
	cfg SentimentShiftConfig
}

func NewSentimentShift(cfg SentimentShiftConfig) *SentimentShift {
	return &SentimentShift{cfg: cfg}
}

func (s *SentimentShift) Name() string { return string(models.TrendSentimentShift) }

func (s *SentimentShift) Detect(w Window) Outcome {
	aggs := w.Aggregates
	if len(aggs) < s.cfg.MinDays {
		return insufficientData(s.Name(), s.cfg.MinDays, len(aggs))
	}
	if err := validateAggregates(aggs); err != nil {
		return failed(s.Name(), err)
	}
	if err := validateRecords(w.Records); err != nil {
		return failed(s.Name(), err)
	}

	split := len(aggs) - s.cfg.RecentDays
	var histNeg, histTotal int
	for _, a := range aggs[:split] {
		histNeg += a.Negative()
		histTotal += a.Total
	}
	var recentPos, recentNeg, recentNeu, recentTotal int
	for _, a := range aggs[split:] {
		recentPos += a.Sentiments[models.SentimentPositive]
		recentNeg += a.Negative()
		recentNeu += a.Sentiments[models.SentimentNeutral]
		recentTotal += a.Total
	}

	histRatio := ratio(histNeg, histTotal)
	recentRatio := ratio(recentNeg, recentTotal)
	if recentRatio <= histRatio+s.cfg.MinDelta {
		return noSignal(s.Name(), "negative ratio %.2f vs %.2f does not exceed delta %.2f",
			recentRatio, histRatio, s.cfg.MinDelta)
	}
	if recentNeg < s.cfg.MinRecentNegative {
		return noSignal(s.Name(), "only %d recent negative items, need %d", recentNeg, s.cfg.MinRecentNegative)
	}

	delta := recentRatio - histRatio
	negTopics := make(map[models.Topic]int)
	for _, r := range w.Records {
		if r.Sentiment != models.SentimentNegative {
			continue
		}
		for _, t := range r.Topics {
			negTopics[t]++
		}
	}
	primary := rankTopics(negTopics, maxPrimaryTopics)

	indicators := []string{
		fmt.Sprintf("Negative sentiment rose from %.1f%% to %.1f%%", histRatio*100, recentRatio*100),
		fmt.Sprintf("%d negative feedback items in the last %d days", recentNeg, s.cfg.RecentDays),
	}
	if len(primary) > 0 {
		top := primary
		if len(top) > 2 {
			top = top[:2]
		}
		indicators = append(indicators, "Top concerns: "+strings.Join(topicLabels(top), ", "))
	}

	return signal(s.Name(), []models.TrendAnalysis{{
		TrendType:             models.TrendSentimentShift,
		Confidence:            math.Min(s.cfg.MaxConfidence, delta*3),
		AffectedFeedbackCount: recentNeg,
		PrimaryTopics:         primary,
		SentimentDistribution: sentimentCounts(recentPos, recentNeg, recentNeu),
		KeyIndicators:         indicators,
		TimePeriod:            w.Period,
		SeverityScore:         math.Min(1, delta*2+float64(recentNeg)/s.cfg.CountSaturation),
	}})
}
