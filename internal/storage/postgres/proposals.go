package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	pq "github.com/lib/pq"

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
		_, err = tx.ExecContext(ctx, `
			INSERT INTO goal_proposals (`+proposalColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			p.ID, p.Title, p.Description, string(p.Status), p.Priority, string(trend),
			pq.Array(nonNil(p.SupportingFeedbackIDs)), pq.Array(nonNil(p.Tags)),
			p.EstimatedEffort, p.PotentialImpact, p.SummaryText,
			p.CreatedAt.UTC(), p.CreatedBy, p.UpdatedAt,
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
	row := s.db.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM goal_proposals WHERE id = $1`, id)
	return proposalFromRow(row, id)
}

func proposalFromRow(row *sql.Row, id string) (models.GoalProposal, error) {
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
		args = append(args, string(status))
		query += fmt.Sprintf(` WHERE status = $%d`, len(args))
	}
	query += ` ORDER BY priority DESC, created_at DESC, id`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	return s.queryProposals(ctx, query, args...)
}

// GetRecentProposals returns proposals created in the last days days, newest first.
func (s *Store) GetRecentProposals(ctx context.Context, days int) ([]models.GoalProposal, error) {
	return s.queryProposals(ctx, `
		SELECT `+proposalColumns+`
		FROM goal_proposals
		WHERE created_at >= $1
		ORDER BY created_at DESC, id`, storage.RecentCutoff(s.now(), days))
}

// UpdateProposalStatus moves a proposal along its lifecycle. The row is
// locked while the transition is checked.
func (s *Store) UpdateProposalStatus(ctx context.Context, id string, status models.GoalStatus) (models.GoalProposal, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.GoalProposal{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+proposalColumns+` FROM goal_proposals WHERE id = $1 FOR UPDATE`, id)
	current, err := proposalFromRow(row, id)
	if err != nil {
		return models.GoalProposal{}, err
	}
	if err := storage.CheckTransition(current.Status, status); err != nil {
		return models.GoalProposal{}, err
	}

	now := s.now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE goal_proposals SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), now, id); err != nil {
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

	var oldest, newest sql.NullTime
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), MIN(timestamp), MAX(timestamp) FROM feedback`,
	).Scan(&stats.Feedback, &oldest, &newest); err != nil {
		return stats, fmt.Errorf("failed to count feedback: %w", err)
	}
	if oldest.Valid {
		t := oldest.Time.UTC()
		stats.OldestFeedback = &t
	}
	if newest.Valid {
		t := newest.Time.UTC()
		stats.NewestFeedback = &t
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
	var status string
	var trend []byte
	var ids, tags []string
	var updatedAt sql.NullTime
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &status, &p.Priority, &trend,
		pq.Array(&ids), pq.Array(&tags), &p.EstimatedEffort, &p.PotentialImpact, &p.SummaryText,
		&p.CreatedAt, &p.CreatedBy, &updatedAt); err != nil {
		return models.GoalProposal{}, err
	}
	p.Status = models.GoalStatus(status)
	p.SupportingFeedbackIDs = nonNil(ids)
	p.Tags = nonNil(tags)
	p.CreatedAt = p.CreatedAt.UTC()
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		p.UpdatedAt = &t
	}

	if err := json.Unmarshal(trend, &p.SourceTrend); err != nil {
		return models.GoalProposal{}, fmt.Errorf("failed to unmarshal source trend for proposal %s: %w", p.ID, err)
	}
	return p, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
