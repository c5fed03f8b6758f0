// Package report summarizes feedback activity over a window of days.
package report

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/trendlit/internal/models"
)

// ErrNoData is returned when there is nothing to summarize.
var ErrNoData = errors.New("no summary data available")

const (
	maxInsights         = 5
	dominantSentiment   = 60.0 // percent
	highVolumeThreshold = 50
	lowVolumeThreshold  = 5
)

// Summary is a multi-day view of the daily aggregates.
type Summary struct {
	Start time.Time
	End   time.Time
	Days  []time.Time
	// Totals is the per-day feedback count, aligned with Days.
	Totals     []int
	Sentiments map[models.Sentiment][]int
	Topics     map[models.Topic][]int

	Total         int
	AverageDaily  float64
	MostActiveDay time.Time
	Overall       map[models.Sentiment]int
}

// Summarize builds a Summary from aggregates in any order.
func Summarize(aggs []models.DailyAggregate) (Summary, error) {
	if len(aggs) == 0 {
		return Summary{}, ErrNoData
	}
	sorted := make([]models.DailyAggregate, len(aggs))
	copy(sorted, aggs)
	models.SortAggregates(sorted)

	s := Summary{
		Start:      sorted[0].Date,
		End:        sorted[len(sorted)-1].Date,
		Sentiments: make(map[models.Sentiment][]int, len(models.Sentiments)),
		Topics:     make(map[models.Topic][]int, len(models.Topics)),
		Overall:    make(map[models.Sentiment]int, len(models.Sentiments)),
	}

	busiest := -1
	for _, a := range sorted {
		s.Days = append(s.Days, a.Date)
		s.Totals = append(s.Totals, a.Total)
		s.Total += a.Total
		for _, sent := range models.Sentiments {
			s.Sentiments[sent] = append(s.Sentiments[sent], a.Sentiments[sent])
			s.Overall[sent] += a.Sentiments[sent]
		}
		for _, t := range models.Topics {
			s.Topics[t] = append(s.Topics[t], a.Topics[t])
		}
		if a.Total > busiest {
			busiest = a.Total
			s.MostActiveDay = a.Date
		}
	}
	s.AverageDaily = float64(s.Total) / float64(len(sorted))
	return s, nil
}

// TopicTotal is the number of mentions of t across the summary.
func (s Summary) TopicTotal(t models.Topic) int {
	sum := 0
	for _, c := range s.Topics[t] {
		sum += c
	}
	return sum
}

// TopTopic returns the most mentioned topic. Ties go to the earlier topic
// in vocabulary order.
func (s Summary) TopTopic() (models.Topic, int) {
	var (
		top   models.Topic
		count = -1
	)
	for _, t := range models.Topics {
		if c := s.TopicTotal(t); c > count {
			top, count = t, c
		}
	}
	return top, count
}

// KeyInsights derives up to five short observations from records.
func KeyInsights(records []models.ClassifiedFeedback) []string {
	if len(records) == 0 {
		return []string{"No feedback data available for analysis."}
	}

	var insights []string
	total := len(records)
	sentiments := make(map[models.Sentiment]int)
	topics := make(map[models.Topic]int)
	sources := make(map[string]struct{})
	for _, r := range records {
		sentiments[r.Sentiment]++
		for _, t := range r.Topics {
			topics[t]++
		}
		if r.Source != "" {
			sources[r.Source] = struct{}{}
		}
	}

	positive := pct(sentiments[models.SentimentPositive], total)
	negative := pct(sentiments[models.SentimentNegative], total)
	switch {
	case positive > dominantSentiment:
		insights = append(insights, fmt.Sprintf("Predominantly positive feedback (%.1f%% positive)", positive))
	case negative > dominantSentiment:
		insights = append(insights, fmt.Sprintf("High volume of negative feedback (%.1f%% negative)", negative))
	default:
		insights = append(insights, "Mixed sentiment in user feedback")
	}

	var top models.Topic
	best := 0
	for _, t := range models.Topics {
		if topics[t] > best {
			top, best = t, topics[t]
		}
	}
	if best > 0 {
		insights = append(insights, fmt.Sprintf("Primary discussion topic: %s (%d mentions)", top.Label(), best))
	}

	switch {
	case total > highVolumeThreshold:
		insights = append(insights, fmt.Sprintf("High feedback volume with %d items", total))
	case total < lowVolumeThreshold:
		insights = append(insights, "Low feedback volume - limited user engagement")
	}

	if len(sources) > 1 {
		names := make([]string, 0, len(sources))
		for s := range sources {
			names = append(names, s)
		}
		sort.Strings(names)
		insights = append(insights, fmt.Sprintf("Feedback collected from %d sources: %s", len(names), strings.Join(names, ", ")))
	}

	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}
	return insights
}

// Narrative renders a short plain-text summary of s.
func Narrative(s Summary, insights []string) string {
	if s.Total == 0 {
		return "No user feedback was collected during this period."
	}

	topic, mentions := s.TopTopic()
	var b strings.Builder
	fmt.Fprintf(&b, "We analyzed %d pieces of user feedback between %s and %s. ",
		s.Total, s.Start.Format(time.DateOnly), s.End.Format(time.DateOnly))
	fmt.Fprintf(&b, "The overall sentiment was %.1f%% positive, %.1f%% negative, with the remainder being neutral.\n\n",
		pct(s.Overall[models.SentimentPositive], s.Total), pct(s.Overall[models.SentimentNegative], s.Total))
	fmt.Fprintf(&b, "The primary topic of discussion was %s, mentioned in %d feedback items.", topic.Label(), mentions)
	if len(insights) > 0 {
		if len(insights) > 3 {
			insights = insights[:3]
		}
		fmt.Fprintf(&b, " Key insights include: %s.", strings.Join(insights, "; "))
	}
	return b.String()
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
