package goals

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/trendlit/internal/cli"
	"github.com/julianstephens/trendlit/internal/models"
)

const (
	choiceApprove = "approve"
	choiceReject  = "reject"
	choiceSkip    = "skip"
	choiceQuit    = "quit"
)

// askDecision prompts for what to do with one proposal.
var askDecision = func(p models.GoalProposal) (string, error) {
	var choice string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("What should happen to this proposal?").
				Options(
					huh.NewOption("Approve", choiceApprove),
					huh.NewOption("Reject", choiceReject),
					huh.NewOption("Skip", choiceSkip),
					huh.NewOption("Skip remaining", choiceQuit),
				).
				Value(&choice),
		),
	)
	if err := form.Run(); err != nil {
		return "", err
	}
	return choice, nil
}

type ReviewCmd struct {
	Limit int `help:"Maximum number of pending proposals to review." default:"0"`
}

func (c *ReviewCmd) Run(ctx *cli.Context) error {
	pending, err := ctx.Store.ListProposals(ctx.Background(), models.GoalPending, c.Limit)
	if err != nil {
		return fmt.Errorf("failed to load pending proposals: %w", err)
	}
	if len(pending) == 0 {
		ctx.Println("✅ No pending proposals to review.")
		return nil
	}

	ctx.Println("🎯 Reviewing pending goal proposals")
	approved, rejected, skipped := 0, 0, 0
loop:
	for i, p := range pending {
		ctx.Printf("\n[%d/%d] ", i+1, len(pending))
		ctx.DisplayProposal(0, p)

		choice, err := askDecision(p)
		if err != nil {
			return fmt.Errorf("interactive form error: %w", err)
		}

		var next models.GoalStatus
		switch choice {
		case choiceApprove:
			next = models.GoalApproved
		case choiceReject:
			next = models.GoalRejected
		case choiceQuit:
			skipped += len(pending) - i
			ctx.Println("  ⏭️  Skipping all remaining proposals")
			break loop
		default:
			skipped++
			ctx.Println("  ⏭️  Skipped")
			continue
		}

		if _, err := ctx.Store.UpdateProposalStatus(ctx.Background(), p.ID, next); err != nil {
			ctx.Printf("  ❌ Failed to update: %v\n", err)
			skipped++
			continue
		}
		if next == models.GoalApproved {
			approved++
		} else {
			rejected++
		}
		ctx.Printf("  ✅ Marked %s\n", next)
	}

	ctx.Printf("\n✨ Completed: %d approved, %d rejected, %d skipped\n", approved, rejected, skipped)
	return nil
}
