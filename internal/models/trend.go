package models

import "strings"

type TrendType string

const (
	TrendSentimentShift TrendType = "sentiment_shift"
	TrendTopicCluster   TrendType = "topic_cluster"
	TrendVolumeSpike    TrendType = "volume_spike"
	TrendRecurringIssue TrendType = "recurring_issue"
)

func (t TrendType) Valid() bool {
	switch t {
	case TrendSentimentShift, TrendTopicCluster, TrendVolumeSpike, TrendRecurringIssue:
		return true
	}
	return false
}

// Label renders a trend type for humans, e.g. "sentiment_shift" -> "Sentiment Shift".
func (t TrendType) Label() string {
	return titleWords(strings.ReplaceAll(string(t), "_", " "))
}

// TrendAnalysis describes one detected trend. It is produced by a detector
// and never modified afterwards.
type TrendAnalysis struct {
	TrendType             TrendType         `json:"trend_type"`
	Confidence            float64           `json:"confidence"`
	AffectedFeedbackCount int               `json:"affected_feedback_count"`
	PrimaryTopics         []Topic           `json:"primary_topics"`
	SentimentDistribution map[Sentiment]int `json:"sentiment_distribution"`
	KeyIndicators         []string          `json:"key_indicators"`
	TimePeriod            string            `json:"time_period"`
	SeverityScore         float64           `json:"severity_score"`
}

// HasPrimaryTopic reports whether topic is one of the trend's primary topics.
func (t TrendAnalysis) HasPrimaryTopic(topic Topic) bool {
	for _, p := range t.PrimaryTopics {
		if p == topic {
			return true
		}
	}
	return false
}
