package goals

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/trendlit/internal/cli"
	"github.com/julianstephens/trendlit/internal/constants"
	"github.com/julianstephens/trendlit/internal/models"
	"github.com/julianstephens/trendlit/internal/storage"
)

type ListCmd struct {
	Status string `help:"Only show proposals with this status (pending, approved, rejected, in_progress, completed)."`
	Limit  int    `help:"Maximum number of proposals to show (0 for all)." default:"20"`
	Recent int    `help:"Only show proposals created in the last N days." default:"0"`
	JSON   bool   `help:"Print proposals as JSON."`
}

func (c *ListCmd) Run(ctx *cli.Context) error {
	var status models.GoalStatus
	if c.Status != "" {
		parsed, err := models.ParseGoalStatus(c.Status)
		if err != nil {
			return err
		}
		status = parsed
	}

	bg := ctx.Background()
	var (
		proposals []models.GoalProposal
		err       error
	)
	if c.Recent > 0 {
		proposals, err = ctx.Store.GetRecentProposals(bg, c.Recent)
		proposals = filterStatus(proposals, status)
		if c.Limit > 0 && len(proposals) > c.Limit {
			proposals = proposals[:c.Limit]
		}
	} else {
		proposals, err = ctx.Store.ListProposals(bg, status, c.Limit)
	}
	if err != nil {
		return fmt.Errorf("failed to list proposals: %w", err)
	}

	if c.JSON {
		if proposals == nil {
			proposals = []models.GoalProposal{}
		}
		enc := json.NewEncoder(ctx.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(proposals)
	}

	if len(proposals) == 0 {
		ctx.Println("No goal proposals found.")
		return nil
	}
	ctx.Println(proposalTable(proposals))

	stats, err := ctx.Store.Stats(bg)
	if err != nil {
		return err
	}
	ctx.Println(cli.MutedStyle.Render(fmt.Sprintf("%d proposal(s): %d pending, %d approved, %d in progress, %d completed, %d rejected",
		stats.TotalProposals(),
		stats.Proposals[models.GoalPending],
		stats.Proposals[models.GoalApproved],
		stats.Proposals[models.GoalInProgress],
		stats.Proposals[models.GoalCompleted],
		stats.Proposals[models.GoalRejected])))
	return nil
}

func filterStatus(proposals []models.GoalProposal, status models.GoalStatus) []models.GoalProposal {
	if status == "" {
		return proposals
	}
	var out []models.GoalProposal
	for _, p := range proposals {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

func proposalTable(proposals []models.GoalProposal) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(cli.MutedStyle).
		Headers("ID", "P", "Status", "Title", "Trend", "Created").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cli.HeaderStyle
			}
			style := cli.CellStyle
			switch col {
			case 1:
				return style.Inherit(cli.PriorityStyle(proposals[row].Priority))
			case 2:
				return style.Inherit(cli.StatusStyle(proposals[row].Status))
			}
			return style
		})
	for _, p := range proposals {
		t.Row(
			shortID(p.ID),
			strconv.Itoa(p.Priority),
			string(p.Status),
			truncate(p.Title, 50),
			p.SourceTrend.TrendType.Label(),
			p.CreatedAt.Format(constants.DateFormat),
		)
	}
	return t.Render()
}

// shortID keeps the first UUID group, which is enough to pick a proposal.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// resolve finds a proposal by full id or by a unique id prefix.
func resolve(ctx *cli.Context, id string) (models.GoalProposal, error) {
	bg := ctx.Background()
	p, err := ctx.Store.GetProposal(bg, id)
	if err == nil || !errors.Is(err, storage.ErrNotFound) {
		return p, err
	}

	all, err := ctx.Store.ListProposals(bg, "", 0)
	if err != nil {
		return models.GoalProposal{}, err
	}
	var matches []models.GoalProposal
	for _, candidate := range all {
		if len(id) >= 4 && strings.HasPrefix(candidate.ID, id) {
			matches = append(matches, candidate)
		}
	}
	switch len(matches) {
	case 0:
		return models.GoalProposal{}, fmt.Errorf("proposal %s: %w", id, storage.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return models.GoalProposal{}, fmt.Errorf("id prefix %q matches %d proposals", id, len(matches))
	}
}

type ShowCmd struct {
	ID   string `arg:"" help:"Proposal id or a unique prefix of it."`
	JSON bool   `help:"Print the proposal as JSON."`
}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	p, err := resolve(ctx, c.ID)
	if err != nil {
		return err
	}
	if c.JSON {
		enc := json.NewEncoder(ctx.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	ctx.DisplayProposal(0, p)
	ctx.Println(cli.TitleStyle.Render("Source trend"))
	for _, ind := range p.SourceTrend.KeyIndicators {
		ctx.Printf("  • %s\n", ind)
	}
	if p.SourceTrend.TimePeriod != "" {
		ctx.Printf("  Period: %s\n", p.SourceTrend.TimePeriod)
	}
	ctx.Printf("  Created %s by %s", p.CreatedAt.Format("2006-01-02 15:04"), p.CreatedBy)
	if p.UpdatedAt != nil {
		ctx.Printf(", updated %s", p.UpdatedAt.Format("2006-01-02 15:04"))
	}
	ctx.Println()
	return nil
}

type SetStatusCmd struct {
	ID     string `arg:"" help:"Proposal id or a unique prefix of it."`
	Status string `arg:"" help:"New status." enum:"pending,approved,rejected,in_progress,completed"`
}

func (c *SetStatusCmd) Run(ctx *cli.Context) error {
	status, err := models.ParseGoalStatus(c.Status)
	if err != nil {
		return err
	}
	p, err := resolve(ctx, c.ID)
	if err != nil {
		return err
	}
	updated, err := ctx.Store.UpdateProposalStatus(ctx.Background(), p.ID, status)
	if err != nil {
		return err
	}
	ctx.Printf("✓ %s: %s → %s\n", shortID(updated.ID), p.Status, updated.Status)
	return nil
}
