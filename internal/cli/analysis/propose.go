package analysis

import (
	"fmt"

	"github.com/julianstephens/trendlit/internal/cli"
	"github.com/julianstephens/trendlit/internal/goals"
)

type ProposeCmd struct {
	Days   int  `help:"Number of completed days before today to analyze." default:"7"`
	DryRun bool `help:"Generate proposals without saving them."`
}

func (c *ProposeCmd) Run(ctx *cli.Context) error {
	gen, err := ctx.Generator()
	if err != nil {
		return fmt.Errorf("goal generator unavailable: %w", err)
	}
	p, err := ctx.Pipeline(gen, !c.DryRun)
	if err != nil {
		return err
	}

	ctx.Println("Analyzing feedback trends...")
	res, err := p.DetectAndPropose(ctx.Background(), c.Days)
	if err != nil {
		return err
	}
	printWindow(ctx, res)

	switch {
	case res.Records == 0:
		ctx.Println("No feedback in the selected window.")
		return nil
	case len(res.Trends) == 0:
		ctx.Println("✅ No significant trends, nothing to propose.")
		return nil
	}

	ctx.Printf("📊 %d significant trend(s), %d proposal(s):\n\n", len(res.Trends), len(res.Proposals))
	for i, prop := range res.Proposals {
		ctx.DisplayProposal(i+1, prop)
	}

	skipped := goals.Batch{Outcomes: res.Outcomes}.Skipped()
	if len(skipped) > 0 {
		ctx.Printf("%s\n", cli.WarningStyle.Render(fmt.Sprintf("⚠ %d trend(s) skipped:", len(skipped))))
		for _, o := range skipped {
			ctx.Printf("  - %s: %s (%v)\n", o.Trend.TrendType.Label(), o.Skipped, o.Err)
		}
		ctx.Println()
	}

	switch {
	case c.DryRun:
		ctx.Println("💡 This was a dry run. Proposals were not saved.")
	case res.PersistErr != nil:
		return fmt.Errorf("proposals were generated but could not be saved: %w", res.PersistErr)
	case res.Persisted:
		ctx.Printf("✓ Saved %d proposal(s). Review them with 'trendlit goals review'.\n", len(res.Proposals))
	}
	return nil
}
