package goals

import (
	"github.com/julianstephens/trendlit/internal/constants"
	"github.com/julianstephens/trendlit/internal/models"
)

// highPriorityTopics bump a goal's priority when they are a trend's primary topic.
var highPriorityTopics = []models.Topic{models.TopicBug, models.TopicPerformance}

const (
	largeTrendCount = 20
	smallTrendCount = 3
)

// CalculatePriority maps a trend to a priority in [1,5]: a base band from the
// severity score, then adjustments for trend type, affected count and
// primary topics. The value is clamped after every adjustment.
func CalculatePriority(trend models.TrendAnalysis) int {
	p := severityBand(trend.SeverityScore)

	if trend.TrendType == models.TrendSentimentShift || trend.TrendType == models.TrendRecurringIssue {
		p = clampPriority(p + 1)
	}

	switch {
	case trend.AffectedFeedbackCount >= largeTrendCount:
		p = clampPriority(p + 1)
	case trend.AffectedFeedbackCount <= smallTrendCount:
		p = clampPriority(p - 1)
	}

	for _, t := range highPriorityTopics {
		if trend.HasPrimaryTopic(t) {
			p = clampPriority(p + 1)
			break
		}
	}

	return clampPriority(p)
}

func severityBand(severity float64) int {
	switch {
	case severity >= 0.9:
		return 5
	case severity >= 0.8:
		return 4
	case severity >= 0.6:
		return 3
	case severity >= 0.4:
		return 2
	default:
		return 1
	}
}

func clampPriority(p int) int {
	if p < constants.MinPriority {
		return constants.MinPriority
	}
	if p > constants.MaxPriority {
		return constants.MaxPriority
	}
	return p
}
