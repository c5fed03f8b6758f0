package models

import (
	"fmt"
	"sort"
	"time"
)

// DailyAggregate holds the per-day classification counts for one calendar
// date (UTC). Every sentiment and every vocabulary topic has an entry.
type DailyAggregate struct {
	Date       time.Time         `json:"date"`
	Total      int               `json:"total"`
	Sentiments map[Sentiment]int `json:"sentiments"`
	Topics     map[Topic]int     `json:"topics"`
}

// NewDailyAggregate returns a zero-filled aggregate for the day containing t.
func NewDailyAggregate(t time.Time) DailyAggregate {
	agg := DailyAggregate{
		Date:       StartOfDay(t),
		Sentiments: make(map[Sentiment]int, len(Sentiments)),
		Topics:     make(map[Topic]int, len(Topics)),
	}
	for _, s := range Sentiments {
		agg.Sentiments[s] = 0
	}
	for _, topic := range Topics {
		agg.Topics[topic] = 0
	}
	return agg
}

// Add counts one record into the aggregate.
func (a *DailyAggregate) Add(f ClassifiedFeedback) {
	a.Total++
	a.Sentiments[f.Sentiment]++
	for _, t := range f.Topics {
		a.Topics[t]++
	}
}

func (a DailyAggregate) Negative() int {
	return a.Sentiments[SentimentNegative]
}

// TopicMentions is the sum of all topic counts; it can exceed Total because a
// record may carry several topics.
func (a DailyAggregate) TopicMentions() int {
	sum := 0
	for _, c := range a.Topics {
		sum += c
	}
	return sum
}

// Validate checks the aggregate invariants.
func (a DailyAggregate) Validate() error {
	day := a.Date.Format("2006-01-02")
	sum := 0
	for _, s := range Sentiments {
		c, ok := a.Sentiments[s]
		if !ok {
			return fmt.Errorf("aggregate %s: missing sentiment %s", day, s)
		}
		if c < 0 {
			return fmt.Errorf("aggregate %s: negative count for %s", day, s)
		}
		sum += c
	}
	if sum != a.Total {
		return fmt.Errorf("aggregate %s: sentiment counts sum to %d, total is %d", day, sum, a.Total)
	}
	for _, t := range Topics {
		c, ok := a.Topics[t]
		if !ok {
			return fmt.Errorf("aggregate %s: missing topic %s", day, t)
		}
		if c < 0 {
			return fmt.Errorf("aggregate %s: negative count for %s", day, t)
		}
	}
	return nil
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// BuildDailyAggregates buckets records by UTC calendar day over [start, end).
// Days without records are included with zero counts so the result always
// covers the whole window in chronological order.
func BuildDailyAggregates(records []ClassifiedFeedback, start, end time.Time) []DailyAggregate {
	first := StartOfDay(start)
	if !end.After(first) {
		return nil
	}

	var days []DailyAggregate
	index := make(map[time.Time]int)
	for d := first; d.Before(end); d = d.AddDate(0, 0, 1) {
		index[d] = len(days)
		days = append(days, NewDailyAggregate(d))
	}

	for _, r := range records {
		if r.Timestamp.Before(start) || !r.Timestamp.Before(end) {
			continue
		}
		if i, ok := index[StartOfDay(r.Timestamp)]; ok {
			days[i].Add(r)
		}
	}
	return days
}

// SortAggregates orders aggregates by date, oldest first.
func SortAggregates(aggs []DailyAggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		return aggs[i].Date.Before(aggs[j].Date)
	})
}
