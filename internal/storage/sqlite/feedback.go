package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/trendlit/internal/models"
	"github.com/julianstephens/trendlit/internal/storage"
)

const feedbackColumns = `id, source, source_url, author, title, content, timestamp, sentiment, topics, confidence`

type rowScanner interface {
	Scan(dest ...any) error
}

// AddFeedback inserts records in one transaction. Records whose id is
// already stored are left untouched; the number of new rows is returned.
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

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO feedback (`+feedbackColumns+`, imported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare feedback insert: %w", err)
	}
	defer stmt.Close()

	importedAt := formatTime(s.now())
	inserted := 0
	for _, r := range records {
		topics, err := json.Marshal(storage.TopicStrings(r.Topics))
		if err != nil {
			return 0, fmt.Errorf("failed to marshal topics for %s: %w", r.ID, err)
		}
		res, err := stmt.ExecContext(ctx,
			r.ID, r.Source, r.SourceURL, r.Author, r.Title, r.Content,
			formatTime(r.Timestamp), string(r.Sentiment), string(topics), r.Confidence,
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
	row := s.db.QueryRowContext(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE id = ?`, id)
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
		WHERE timestamp >= ? AND timestamp < ?
		ORDER BY timestamp, id`,
		formatTime(start), formatTime(end))
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
	from, to := formatTime(start), formatTime(end)

	rows, err := s.db.QueryContext(ctx, `
		SELECT substr(timestamp, 1, 10) AS day, sentiment, COUNT(*)
		FROM feedback
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY day, sentiment`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sentiments: %w", err)
	}
	if err := storage.ScanCounts(rows, counts.AddSentiment); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT substr(f.timestamp, 1, 10) AS day, t.value, COUNT(*)
		FROM feedback f, json_each(f.topics) t
		WHERE f.timestamp >= ? AND f.timestamp < ?
		GROUP BY day, t.value`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate topics: %w", err)
	}
	if err := storage.ScanCounts(rows, counts.AddTopic); err != nil {
		return nil, err
	}
	return counts.Aggregates(), nil
}

func scanFeedback(row rowScanner) (models.ClassifiedFeedback, error) {
	var (
		f         models.ClassifiedFeedback
		timestamp string
		sentiment string
		topicsRaw string
	)
	if err := row.Scan(&f.ID, &f.Source, &f.SourceURL, &f.Author, &f.Title, &f.Content,
		&timestamp, &sentiment, &topicsRaw, &f.Confidence); err != nil {
		return models.ClassifiedFeedback{}, err
	}

	var err error
	f.Timestamp, err = parseTime(timestamp)
	if err != nil {
		return models.ClassifiedFeedback{}, fmt.Errorf("failed to parse timestamp for feedback %s: %w", f.ID, err)
	}
	f.Sentiment = models.Sentiment(sentiment)

	var topics []string
	if err := json.Unmarshal([]byte(topicsRaw), &topics); err != nil {
		return models.ClassifiedFeedback{}, fmt.Errorf("failed to unmarshal topics for feedback %s: %w", f.ID, err)
	}
	if f.Topics, err = storage.ParseTopics(topics); err != nil {
		return models.ClassifiedFeedback{}, fmt.Errorf("feedback %s: %w", f.ID, err)
	}
	return f, nil
}
