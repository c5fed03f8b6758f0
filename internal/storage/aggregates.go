package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/julianstephens/trendlit/internal/constants"
	"github.com/julianstephens/trendlit/internal/models"
)

// DayCounts fills zero-initialized daily aggregates from grouped query rows
// keyed by YYYY-MM-DD (UTC).
type DayCounts struct {
	days  []models.DailyAggregate
	index map[string]int
}

// NewDayCounts covers every calendar day of [start, end).
func NewDayCounts(start, end time.Time) *DayCounts {
	days := models.BuildDailyAggregates(nil, start, end)
	index := make(map[string]int, len(days))
	for i, d := range days {
		index[d.Date.Format(constants.DateFormat)] = i
	}
	return &DayCounts{days: days, index: index}
}

func (d *DayCounts) day(key string) (*models.DailyAggregate, error) {
	i, ok := d.index[key]
	if !ok {
		return nil, fmt.Errorf("day %s is outside the requested window", key)
	}
	return &d.days[i], nil
}

// AddSentiment records n feedback items of sentiment s on day.
func (d *DayCounts) AddSentiment(day, sentiment string, n int) error {
	agg, err := d.day(day)
	if err != nil {
		return err
	}
	s, err := models.ParseSentiment(sentiment)
	if err != nil {
		return err
	}
	agg.Sentiments[s] += n
	agg.Total += n
	return nil
}

// AddTopic records n mentions of topic on day.
func (d *DayCounts) AddTopic(day, topic string, n int) error {
	agg, err := d.day(day)
	if err != nil {
		return err
	}
	t, err := models.ParseTopic(topic)
	if err != nil {
		return err
	}
	agg.Topics[t] += n
	return nil
}

// Aggregates returns the filled days, oldest first.
func (d *DayCounts) Aggregates() []models.DailyAggregate {
	return d.days
}

// ScanCounts feeds (day, key, count) rows into add and closes rows.
func ScanCounts(rows *sql.Rows, add func(day, key string, n int) error) error {
	defer rows.Close()
	for rows.Next() {
		var day, key string
		var n int
		if err := rows.Scan(&day, &key, &n); err != nil {
			return err
		}
		if err := add(day, key, n); err != nil {
			return err
		}
	}
	return rows.Err()
}
