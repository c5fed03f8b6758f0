package analysis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/trendlit/internal/cli"
	"github.com/julianstephens/trendlit/internal/constants"
	"github.com/julianstephens/trendlit/internal/models"
	"github.com/julianstephens/trendlit/internal/pipeline"
	"github.com/julianstephens/trendlit/internal/trends"
)

type DetectCmd struct {
	Days    int  `help:"Number of completed days before today to analyze." default:"7"`
	Verbose bool `short:"v" help:"Show every detector's outcome and the candidates below the threshold."`
	JSON    bool `help:"Print significant trends as JSON."`
}

func (c *DetectCmd) Run(ctx *cli.Context) error {
	p, err := ctx.Pipeline(nil, false)
	if err != nil {
		return err
	}
	res, err := p.Detect(ctx.Background(), c.Days)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(ctx.Writer())
		enc.SetIndent("", "  ")
		significant := res.Trends
		if significant == nil {
			significant = []models.TrendAnalysis{}
		}
		return enc.Encode(significant)
	}

	printWindow(ctx, res)
	if res.Records == 0 {
		ctx.Println("No feedback in the selected window.")
		return nil
	}
	if c.Verbose {
		printOutcomes(ctx, res.Detection.Outcomes)
	}
	if len(res.Trends) == 0 {
		ctx.Printf("✅ No significant trends (threshold %.2f).\n", ctx.Thresholds.SignificanceThreshold)
		if c.Verbose && len(res.Detection.Candidates) > 0 {
			ctx.Println()
			ctx.Println(cli.MutedStyle.Render("Candidates below the threshold:"))
			ctx.Println(trendTable(res.Detection.Candidates))
		}
		return nil
	}

	ctx.Printf("📊 Found %d significant trend(s):\n\n", len(res.Trends))
	ctx.Println(trendTable(res.Trends))
	for i, t := range res.Trends {
		ctx.Printf("\n%d. %s\n", i+1, cli.TitleStyle.Render(t.TrendType.Label()))
		for _, ind := range t.KeyIndicators {
			ctx.Printf("   • %s\n", ind)
		}
	}
	return nil
}

// printWindow shows the last included day; res.End is exclusive.
func printWindow(ctx *cli.Context, res pipeline.Result) {
	ctx.Printf("Window: %s to %s (%d record(s))\n\n",
		res.Start.Format(constants.DateFormat), res.End.AddDate(0, 0, -1).Format(constants.DateFormat), res.Records)
}

func printOutcomes(ctx *cli.Context, outcomes []trends.Outcome) {
	ctx.Println(cli.TitleStyle.Render("Detectors"))
	for _, o := range outcomes {
		switch o.Kind {
		case trends.OutcomeSignal:
			ctx.Printf("  ✓ %s: %d candidate(s)\n", o.Detector, len(o.Candidates))
		case trends.OutcomeFailed:
			ctx.Printf("  %s %s: %s\n", cli.DangerStyle.Render("❌"), o.Detector, o.Reason)
		default:
			ctx.Printf("  %s\n", cli.MutedStyle.Render(fmt.Sprintf("⊘ %s: %s", o.Detector, o.Reason)))
		}
	}
	ctx.Println()
}

func trendTable(ts []models.TrendAnalysis) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(cli.MutedStyle).
		Headers("Type", "Severity", "Confidence", "Affected", "Topics", "Period").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cli.HeaderStyle
			}
			return cli.CellStyle
		})
	for _, tr := range ts {
		topics := make([]string, len(tr.PrimaryTopics))
		for i, topic := range tr.PrimaryTopics {
			topics[i] = string(topic)
		}
		t.Row(
			string(tr.TrendType),
			strconv.FormatFloat(tr.SeverityScore, 'f', 2, 64),
			strconv.FormatFloat(tr.Confidence, 'f', 2, 64),
			strconv.Itoa(tr.AffectedFeedbackCount),
			strings.Join(topics, ", "),
			tr.TimePeriod,
		)
	}
	return t.Render()
}
