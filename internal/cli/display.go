package cli

import (
	"fmt"
	"strings"

	"github.com/julianstephens/trendlit/internal/models"
)

// DisplayProposal prints a proposal as a numbered block; num 0 omits the number.
func (ctx *Context) DisplayProposal(num int, p models.GoalProposal) {
	prefix := ""
	if num > 0 {
		prefix = fmt.Sprintf("%d. ", num)
	}
	ctx.Printf("%s%s %s\n", prefix,
		PriorityStyle(p.Priority).Render(fmt.Sprintf("[P%d]", p.Priority)),
		TitleStyle.Render(p.Title))
	ctx.Printf("   %s  %s\n", MutedStyle.Render(p.ID), StatusStyle(p.Status).Render(string(p.Status)))
	ctx.Printf("   %s\n", p.Description)
	ctx.Printf("   Trend: %s (severity %.2f, %d record(s))\n",
		p.SourceTrend.TrendType.Label(), p.SourceTrend.SeverityScore, p.SourceTrend.AffectedFeedbackCount)
	if len(p.Tags) > 0 {
		ctx.Printf("   Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	if p.EstimatedEffort != "" {
		ctx.Printf("   Effort: %s\n", p.EstimatedEffort)
	}
	if p.PotentialImpact != "" {
		ctx.Printf("   Impact: %s\n", p.PotentialImpact)
	}
	ctx.Printf("   Evidence: %d feedback record(s)\n\n", len(p.SupportingFeedbackIDs))
}
