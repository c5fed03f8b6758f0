package goals

import (
	"sort"

	"github.com/julianstephens/trendlit/internal/constants"
	"github.com/julianstephens/trendlit/internal/models"
)

// IsRelevant reports whether record is evidence for trend.
func IsRelevant(trend models.TrendAnalysis, record models.ClassifiedFeedback) bool {
	switch trend.TrendType {
	case models.TrendVolumeSpike:
		// Volume spikes are not topic scoped.
		return true
	case models.TrendSentimentShift:
		if record.Sentiment == models.SentimentNegative {
			return true
		}
	}
	for _, t := range trend.PrimaryTopics {
		if record.HasTopic(t) {
			return true
		}
	}
	return false
}

// RelevantFeedback selects the evidence for trend from pool, most recent
// first, capped at constants.MaxEvidenceItems. The pool is not modified.
func RelevantFeedback(trend models.TrendAnalysis, pool []models.ClassifiedFeedback) []models.ClassifiedFeedback {
	var relevant []models.ClassifiedFeedback
	for _, r := range pool {
		if IsRelevant(trend, r) {
			relevant = append(relevant, r)
		}
	}
	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].Timestamp.After(relevant[j].Timestamp)
	})
	if len(relevant) > constants.MaxEvidenceItems {
		relevant = relevant[:constants.MaxEvidenceItems]
	}
	return relevant
}

// FeedbackIDs returns the ids of records in order.
func FeedbackIDs(records []models.ClassifiedFeedback) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	return ids
}
