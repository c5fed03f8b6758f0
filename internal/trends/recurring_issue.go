package trends

import (
	"fmt"
	"math"

	"github.com/julianstephens/trendlit/internal/models"
)

// RecurringIssue finds topics that attract negative feedback on many days of
// the window. Aggregates do not keep topic x sentiment joins, so the per-topic
// negative count for a day is estimated proportionally:
//
//	topic_count * day_negative / day_topic_mentions
type RecurringIssue struct {
	cfg RecurringIssueConfig
}

func NewRecurringIssue(cfg RecurringIssueConfig) *RecurringIssue {
	return &RecurringIssue{cfg: cfg}
}

func (r *RecurringIssue) Name() string { return string(models.TrendRecurringIssue) }

func (r *RecurringIssue) Detect(w Window) Outcome {
	aggs := w.Aggregates
	if len(aggs) < r.cfg.MinDays {
		return insufficientData(r.Name(), r.cfg.MinDays, len(aggs))
	}
	if err := validateAggregates(aggs); err != nil {
		return failed(r.Name(), err)
	}

	daysPresent := make(map[models.Topic]int)
	estimated := make(map[models.Topic]float64)
	for _, a := range aggs {
		mentions := a.TopicMentions()
		neg := a.Negative()
		if mentions == 0 || neg == 0 {
			continue
		}
		for _, topic := range models.Topics {
			est := float64(a.Topics[topic]) * float64(neg) / float64(mentions)
			if est > 0 {
				daysPresent[topic]++
				estimated[topic] += est
			}
		}
	}

	n := len(aggs)
	var candidates []models.TrendAnalysis
	for _, topic := range models.Topics {
		dayShare := ratio(daysPresent[topic], n)
		if dayShare < r.cfg.MinDayShare || estimated[topic] < r.cfg.MinEstimatedNegatives {
			continue
		}
		affected := int(math.Round(estimated[topic]))
		candidates = append(candidates, models.TrendAnalysis{
			TrendType:             models.TrendRecurringIssue,
			Confidence:            r.cfg.Confidence,
			AffectedFeedbackCount: affected,
			PrimaryTopics:         []models.Topic{topic},
			SentimentDistribution: sentimentCounts(0, affected, 0),
			KeyIndicators: []string{
				fmt.Sprintf("%s drew negative feedback on %d of %d days", topic.Label(), daysPresent[topic], n),
				fmt.Sprintf("About %.1f estimated negative mentions", estimated[topic]),
			},
			TimePeriod:    w.Period,
			SeverityScore: 0.7*dayShare + 0.3*math.Min(1, estimated[topic]/r.cfg.NegativeSaturation),
		})
	}

	if len(candidates) == 0 {
		return noSignal(r.Name(), "no topic recurred on %.0f%% of days", r.cfg.MinDayShare*100)
	}
	return signal(r.Name(), candidates)
}
