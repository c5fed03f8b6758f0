package feedback

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/julianstephens/trendlit/internal/cli"
	"github.com/julianstephens/trendlit/internal/constants"
	"github.com/julianstephens/trendlit/internal/logger"
	"github.com/julianstephens/trendlit/internal/models"
	"github.com/julianstephens/trendlit/internal/report"
)

type SummaryCmd struct {
	Days    int  `help:"Number of completed days before today to summarize." default:"7"`
	JSON    bool `help:"Print the summary as JSON."`
	Narrate bool `help:"Ask the configured model to write the narrative. Falls back to the built-in template."`
}

type summaryJSON struct {
	Start        string                   `json:"start"`
	End          string                   `json:"end"`
	Total        int                      `json:"total"`
	AverageDaily float64                  `json:"average_daily"`
	MostActive   string                   `json:"most_active_day"`
	Overall      map[models.Sentiment]int `json:"overall_sentiment"`
	Topics       map[models.Topic]int     `json:"topics"`
	Days         []models.DailyAggregate  `json:"days"`
	Insights     []string                 `json:"insights"`
	Narrative    string                   `json:"narrative"`
}

func (c *SummaryCmd) Run(ctx *cli.Context) error {
	p, err := ctx.Pipeline(nil, false)
	if err != nil {
		return err
	}
	start, end, err := p.Window(c.Days)
	if err != nil {
		return err
	}

	records, aggs, err := ctx.Store.GetWindow(ctx.Background(), start, end)
	if err != nil {
		return fmt.Errorf("failed to load feedback: %w", err)
	}
	summary, err := report.Summarize(aggs)
	if errors.Is(err, report.ErrNoData) {
		ctx.Println("No feedback in the selected window.")
		return nil
	}
	if err != nil {
		return err
	}
	insights := report.KeyInsights(records)
	narrative := c.narrative(ctx, summary, insights, records)

	if c.JSON {
		topics := make(map[models.Topic]int, len(models.Topics))
		for _, t := range models.Topics {
			topics[t] = summary.TopicTotal(t)
		}
		enc := json.NewEncoder(ctx.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(summaryJSON{
			Start:        summary.Start.Format(constants.DateFormat),
			End:          summary.End.Format(constants.DateFormat),
			Total:        summary.Total,
			AverageDaily: summary.AverageDaily,
			MostActive:   summary.MostActiveDay.Format(constants.DateFormat),
			Overall:      summary.Overall,
			Topics:       topics,
			Days:         aggs,
			Insights:     insights,
			Narrative:    narrative,
		})
	}

	ctx.Println(cli.TitleStyle.Render(fmt.Sprintf("Feedback summary %s to %s",
		summary.Start.Format(constants.DateFormat), summary.End.Format(constants.DateFormat))))
	ctx.Println()
	ctx.Println(dailyTable(summary))
	ctx.Println()
	ctx.Printf("Total: %d  Average/day: %.1f  Most active: %s\n",
		summary.Total, summary.AverageDaily, summary.MostActiveDay.Format(constants.DateFormat))
	ctx.Println()
	ctx.Println(topicTable(summary))
	ctx.Println()
	ctx.Println(cli.TitleStyle.Render("Key insights"))
	for _, insight := range insights {
		ctx.Printf("  • %s\n", insight)
	}
	ctx.Println()
	ctx.Println(lipgloss.NewStyle().Width(80).Render(narrative))
	return nil
}

func (c *SummaryCmd) narrative(ctx *cli.Context, s report.Summary, insights []string, records []models.ClassifiedFeedback) string {
	if !c.Narrate {
		return report.Narrative(s, insights)
	}
	gen, err := ctx.Generator()
	if err != nil {
		logger.Warn("Model unavailable, using template narrative", "err", err)
		return report.Narrative(s, insights)
	}
	return report.GenerateNarrative(ctx.Background(), gen, s, insights, records)
}

func dailyTable(s report.Summary) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(cli.MutedStyle).
		Headers("Day", "Total", "Positive", "Negative", "Neutral").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cli.HeaderStyle
			}
			return cli.CellStyle
		})
	for i, day := range s.Days {
		t.Row(
			day.Format(time.DateOnly),
			strconv.Itoa(s.Totals[i]),
			strconv.Itoa(s.Sentiments[models.SentimentPositive][i]),
			strconv.Itoa(s.Sentiments[models.SentimentNegative][i]),
			strconv.Itoa(s.Sentiments[models.SentimentNeutral][i]),
		)
	}
	return t.Render()
}

func topicTable(s report.Summary) string {
	type row struct {
		topic models.Topic
		count int
	}
	var rows []row
	for _, t := range models.Topics {
		if n := s.TopicTotal(t); n > 0 {
			rows = append(rows, row{t, n})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].count > rows[j].count })

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(cli.MutedStyle).
		Headers("Topic", "Mentions").
		StyleFunc(func(r, col int) lipgloss.Style {
			if r == table.HeaderRow {
				return cli.HeaderStyle
			}
			return cli.CellStyle
		})
	for _, r := range rows {
		t.Row(r.topic.Label(), strconv.Itoa(r.count))
	}
	return t.Render()
}
