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

const proposalColumns = `id, title, description, status, priority, source_trend,
	supporting_feedback_ids, tags, estimated_effort, potential_impact, summary_text,
	created_at, created_by, updated_at`

// SaveProposals stores all proposals or none of them.
func (s *Store) SaveProposals(ctx context.Context, proposals []models.GoalProposal) error {
	if err := storage.ValidateProposals(proposals); err != nil {
		return err
	}
	if len(proposals) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range proposals {
		trend, err := json.Marshal(p.SourceTrend)
		if err != nil {
			return fmt.Errorf("failed to marshal source trend for %s: %w", p.ID, err)
		}
		ids, err := json.Marshal(nonNil(p.SupportingFeedbackIDs))
		if err != nil {
			return fmt.Errorf("failed to marshal supporting ids for %s: %w", p.ID, err)
		}
		tags, err := json.Marshal(nonNil(p.Tags))
		if err != nil {
			return fmt.Errorf("failed to marshal tags for %s: %w", p.ID, err)
		}

		var updatedAt *string
		if p.UpdatedAt != nil {
			str := formatTime(*p.UpdatedAt)
			updatedAt = &str
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO goal_proposals (`+proposalColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Title, p.Description, string(p.Status), p.Priority, string(trend),
			string(ids), string(tags), p.EstimatedEffort, p.PotentialImpact, p.SummaryText,
			formatTime(p.CreatedAt), p.CreatedBy, updatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert proposal %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit proposals: %w", err)
	}
	return nil
}

func (s *Store) GetProposal(ctx context.Context, id string) (models.GoalProposal, error) {
	return getProposal(ctx, s.db, id)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getProposal(ctx context.Context, q querier, id string) (models.GoalProposal, error) {
	row := q.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM goal_proposals WHERE id = ?`, id)
	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.GoalProposal{}, fmt.Errorf("proposal %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return models.GoalProposal{}, fmt.Errorf("failed to get proposal: %w", err)
	}
	return p, nil
}

// ListProposals returns proposals by priority, newest first within a
// priority. An empty status lists every status; limit <= 0 means no limit.
func (s *Store) ListProposals(ctx context.Context, status models.GoalStatus, limit int) ([]models.GoalProposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM goal_proposals`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY priority DESC, created_at DESC, id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryProposals(ctx, query, args...)
}

// GetRecentProposals returns proposals created in the last days days, newest first.
func (s *Store) GetRecentProposals(ctx context.Context, days int) ([]models.GoalProposal, error) {
	cutoff := storage.RecentCutoff(s.now(), days)
	return s.queryProposals(ctx, `
		SELECT `+proposalColumns+`
		FROM goal_proposals
		WHERE created_at >= ?
		ORDER BY created_at DESC, id`, formatTime(cutoff))
}

// UpdateProposalStatus moves a proposal along its lifecycle.
func (s *Store) UpdateProposalStatus(ctx context.Context, id string, status models.GoalStatus) (models.GoalProposal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.GoalProposal{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getProposal(ctx, tx, id)
	if err != nil {
		return models.GoalProposal{}, err
	}
	if err := storage.CheckTransition(current.Status, status); err != nil {
		return models.GoalProposal{}, err
	}

	now := s.now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE goal_proposals SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(now), id); err != nil {
		return models.GoalProposal{}, fmt.Errorf("failed to update proposal status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.GoalProposal{}, fmt.Errorf("failed to commit status change: %w", err)
	}

	current.Status = status
	current.UpdatedAt = &now
	return current, nil
}

func (s *Store) Stats(ctx context.Context) (storage.Stats, error) {
	stats := storage.Stats{Proposals: make(map[models.GoalStatus]int)}

	var oldest, newest sql.NullString
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(timestamp), MAX(timestamp) FROM feedback`,
	).Scan(&stats.Feedback, &oldest, &newest); err != nil {
		return stats, fmt.Errorf("failed to count feedback: %w", err)
	}
	var err error
	if stats.OldestFeedback, err = parseNullTime(oldest); err != nil {
		return stats, err
	}
	if stats.NewestFeedback, err = parseNullTime(newest); err != nil {
		return stats, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM goal_proposals GROUP BY status`)
	if err != nil {
		return stats, fmt.Errorf("failed to count proposals: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return stats, err
		}
		stats.Proposals[models.GoalStatus(status)] = n
	}
	return stats, rows.Err()
}

func (s *Store) queryProposals(ctx context.Context, query string, args ...any) ([]models.GoalProposal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	defer rows.Close()

	var proposals []models.GoalProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

func scanProposal(row rowScanner) (models.GoalProposal, error) {
	var p models.GoalProposal
	var status, trend, ids, tags, createdAt string
	var updatedAt sql.NullString
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &status, &p.Priority, &trend,
		&ids, &tags, &p.EstimatedEffort, &p.PotentialImpact, &p.SummaryText,
		&createdAt, &p.CreatedBy, &updatedAt); err != nil {
		return models.GoalProposal{}, err
	}
	p.Status = models.GoalStatus(status)

	if err := json.Unmarshal([]byte(trend), &p.SourceTrend); err != nil {
		return models.GoalProposal{}, fmt.Errorf("failed to unmarshal source trend for proposal %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(ids), &p.SupportingFeedbackIDs); err != nil {
		return models.GoalProposal{}, fmt.Errorf("failed to unmarshal supporting ids for proposal %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return models.GoalProposal{}, fmt.Errorf("failed to unmarshal tags for proposal %s: %w", p.ID, err)
	}

	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.GoalProposal{}, fmt.Errorf("failed to parse created_at for proposal %s: %w", p.ID, err)
	}
	if updatedAt.Valid {
		t, err := parseTime(updatedAt.String)
		if err != nil {
			return models.GoalProposal{}, fmt.Errorf("failed to parse updated_at for proposal %s: %w", p.ID, err)
		}
		p.UpdatedAt = &t
	}
	return p, nil
}

func parseNullTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid {
		return nil, nil
	}
	t, err := parseTime(v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
