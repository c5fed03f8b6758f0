package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pq "github.com/lib/pq"

	"github.com/julianstephens/trendlit/internal/models"
	"github.com/julianstephens/trendlit/internal/storage"
)

const feedbackColumns = `id, source, source_url, author, title, content, timestamp, sentiment, topics, confidence`

type rowScanner interface {
	Scan(dest ...any) error
}

// AddFeedback inserts records in one transaction, skipping ids that are
// already stored, and returns the number of new rows.
func (s *Store) AddFeedback(ctx context.Context, records []models.ClassifiedFeedback) (int, error) {
	if err := storage.ValidateFeedback(records); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	importedAt := s.now().UTC()
	inserted := 0
	for _, r := range records {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO feedback (`+feedbackColumns+`, imported_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO NOTHING`,
			r.ID, r.Source, r.SourceURL, r.Author, r.Title, r.Content,
			r.Timestamp.UTC(), string(r.Sentiment), pq.Array(storage.TopicStrings(r.Topics)), r.Confidence,
			importedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert feedback %s: %w", r.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit feedback: %w", err)
	}
	return inserted, nil
}

func (s *Store) GetFeedback(ctx context.Context, id string) (models.ClassifiedFeedback, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id)
	f, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ClassifiedFeedback{}, fmt.Errorf("feedback %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.ClassifiedFeedback{}, fmt.Errorf("failed to get feedback: %w", err)
	}
	return f, nil
}

// GetFeedbackInRange returns records with start <= timestamp < end, oldest first.
func (s *Store) GetFeedbackInRange(ctx context.Context, start, end time.Time) ([]models.ClassifiedFeedback, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+feedbackColumns+`
		FROM feedback
		WHERE timestamp >= $1 AND timestamp < $2
		ORDER BY timestamp, id`,
		start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var records []models.ClassifiedFeedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, f)
	}
	return records, rows.Err()
}

// GetWindow loads the records of [start, end) and their per-day counts.
func (s *Store) GetWindow(ctx context.Context, start, end time.Time) ([]models.ClassifiedFeedback, []models.DailyAggregate, error) {
	records, err := s.GetFeedbackInRange(ctx, start, end)
	if err != nil {
		return nil, nil, err
	}
	aggs, err := s.dailyAggregates(ctx, start, end)
	if err != nil {
		return nil, nil, err
	}
	return records, aggs, nil
}

func (s *Store) dailyAggregates(ctx context.Context, start, end time.Time) ([]models.DailyAggregate, error) {
	counts := storage.NewDayCounts(start, end)

	rows, err := s.db.QueryContext(ctx, `
		SELECT to_char(timestamp AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, sentiment, COUNT(*)
		FROM feedback
		WHERE timestamp >= $1 AND timestamp < $2
		GROUP BY day, sentiment`, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sentiments: %w", err)
	}
	if err := storage.ScanCounts(rows, counts.AddSentiment); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT to_char(f.timestamp AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, t.topic, COUNT(*)
		FROM feedback f CROSS JOIN LATERAL unnest(f.topics) AS t(topic)
		WHERE f.timestamp >= $1 AND f.timestamp < $2
		GROUP BY day, t.topic`, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate topics: %w", err)
	}
	if err := storage.ScanCounts(rows, counts.AddTopic); err != nil {
		return nil, err
	}
	return counts.Aggregates(), nil
}

func scanFeedback(row rowScanner) (models.ClassifiedFeedback, error) {
	var f models.ClassifiedFeedback
	var sentiment string
	var topics []string
	if err := row.Scan(&f.ID, &f.Source, &f.SourceURL, &f.Author, &f.Title, &f.Content,
		&f.Timestamp, &sentiment, pq.Array(&topics), &f.Confidence); err != nil {
		return models.ClassifiedFeedback{}, err
	}
	f.Timestamp = f.Timestamp.UTC()
	f.Sentiment = models.Sentiment(sentiment)

	var err error
	if f.Topics, err = storage.ParseTopics(topics); err != nil {
		return models.ClassifiedFeedback{}, fmt.Errorf("feedback %s: %w", f.ID, err)
	}
	return f, nil
}
