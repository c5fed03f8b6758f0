package trends

import (
	"fmt"
	"math"

	"github.com/julianstephens/trendlit/internal/models"
)

// TopicCluster flags topics that make up a large share of the window's
// feedback, weighted by how negative that feedback is.
type TopicCluster struct {
	cfg TopicClusterConfig
}

func NewTopicCluster(cfg TopicClusterConfig) *TopicCluster {
	return &TopicCluster{cfg: cfg}
}

func (c *TopicCluster) Name() string { return string(models.TrendTopicCluster) }

func (c *TopicCluster) Detect(w Window) Outcome {
	total := len(w.Records)
	if total == 0 {
		return noSignal(c.Name(), "no feedback in window")
	}
	if err := validateRecords(w.Records); err != nil {
		return failed(c.Name(), err)
	}

	type tally struct{ count, pos, neg, neu int }
	tallies := make(map[models.Topic]*tally, len(models.Topics))
	for _, r := range w.Records {
		for _, t := range r.Topics {
			tl := tallies[t]
			if tl == nil {
				tl = &tally{}
				tallies[t] = tl
			}
			tl.count++
			switch r.Sentiment {
			case models.SentimentPositive:
				tl.pos++
			case models.SentimentNegative:
				tl.neg++
			default:
				tl.neu++
			}
		}
	}

	var candidates []models.TrendAnalysis
	for _, topic := range models.Topics {
		tl := tallies[topic]
		if tl == nil || tl.count < c.cfg.MinCount {
			continue
		}
		share := ratio(tl.count, total)
		if share < c.cfg.MinShare {
			continue
		}

		negRatio := ratio(tl.neg, tl.count)
		volumeScore := math.Min(1, float64(tl.count)/c.cfg.VolumeSaturation)
		sentimentScore := negRatio
		if topic == models.TopicGeneral {
			sentimentScore *= c.cfg.GeneralWeight
		}
		severity := 0.6*volumeScore + 0.4*sentimentScore
		if severity < c.cfg.MinSeverity {
			continue
		}

		candidates = append(candidates, models.TrendAnalysis{
			TrendType:             models.TrendTopicCluster,
			Confidence:            math.Min(c.cfg.MaxConfidence, volumeScore+0.3),
			AffectedFeedbackCount: tl.count,
			PrimaryTopics:         []models.Topic{topic},
			SentimentDistribution: sentimentCounts(tl.pos, tl.neg, tl.neu),
			KeyIndicators: []string{
				fmt.Sprintf("%d feedback items mention %s (%.1f%% of all feedback)", tl.count, topic.Label(), share*100),
				fmt.Sprintf("%.1f%% of %s feedback is negative", negRatio*100, topic.Label()),
			},
			TimePeriod:    w.Period,
			SeverityScore: severity,
		})
	}

	if len(candidates) == 0 {
		return noSignal(c.Name(), "no topic cluster reached severity %.2f", c.cfg.MinSeverity)
	}
	return signal(c.Name(), candidates)
}
