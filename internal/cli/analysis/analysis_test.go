package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/trendlit/internal/cli"
	"github.com/julianstephens/trendlit/internal/llm"
	"github.com/julianstephens/trendlit/internal/models"
	"github.com/julianstephens/trendlit/internal/storage/sqlite"
	"github.com/julianstephens/trendlit/internal/trends"
)

const draftJSON = `{
  "title": "Fix crash when saving documents",
  "description": "Users consistently report the editor crashing on save. Find the root cause and ship a fix with regression tests.",
  "tags": ["stability", "bug"],
  "estimated_effort": "1-2 weeks",
  "potential_impact": "Fewer lost edits and support tickets"
}`

var now = time.Date(2026, 3, 3, 12, 0, 0, 0, time.UTC)

// setup stores twenty negative bug reports on the first day of a three-day
// window, which only the topic cluster detector flags.
func setup(t *testing.T) (*cli.Context, *sqlite.Store, *bytes.Buffer) {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "trendlit.db")).WithClock(func() time.Time { return now })
	bg := context.Background()
	if err := store.Init(bg); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	var records []models.ClassifiedFeedback
	for i := 0; i < 20; i++ {
		records = append(records, models.ClassifiedFeedback{
			ID:        fmt.Sprintf("bug-%02d", i),
			Author:    "user",
			Content:   "The editor crashes when I save",
			Timestamp: time.Date(2026, 2, 28, 9, i, 0, 0, time.UTC),
			Sentiment: models.SentimentNegative,
			Topics:    []models.Topic{models.TopicBug},
		})
	}
	if _, err := store.AddFeedback(bg, records); err != nil {
		t.Fatal(err)
	}

	out := &bytes.Buffer{}
	ctx := &cli.Context{
		Store:      store,
		Thresholds: trends.DefaultConfig(),
		Out:        out,
		Now:        func() time.Time { return now },
		NewGenerator: func(llm.Config) (llm.Generator, error) {
			return llm.Static(draftJSON), nil
		},
	}
	return ctx, store, out
}

func TestDetectCmd(t *testing.T) {
	ctx, _, out := setup(t)

	if err := (&DetectCmd{Days: 3, Verbose: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Found 1 significant trend(s)", "topic_cluster", "20 record(s)", "Window: 2026-02-28 to 2026-03-02"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	out.Reset()
	if err := (&DetectCmd{Days: 3, JSON: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	var got []models.TrendAnalysis
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 1 || got[0].TrendType != models.TrendTopicCluster || !got[0].HasPrimaryTopic(models.TopicBug) {
		t.Errorf("trends = %+v", got)
	}
}

func TestDetectCmdEmptyWindow(t *testing.T) {
	ctx, _, out := setup(t)
	ctx.Now = func() time.Time { return now.AddDate(0, 1, 0) }

	if err := (&DetectCmd{Days: 3}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "No feedback in the selected window.") {
		t.Errorf("output:\n%s", out)
	}
}

func TestProposeCmd(t *testing.T) {
	ctx, store, out := setup(t)
	bg := context.Background()

	if err := (&ProposeCmd{Days: 3, DryRun: true}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Fix crash when saving documents") || !strings.Contains(out.String(), "dry run") {
		t.Errorf("dry-run output:\n%s", out)
	}
	if stored, err := store.ListProposals(bg, "", 0); err != nil || len(stored) != 0 {
		t.Fatalf("dry run saved proposals: %v, %v", stored, err)
	}

	out.Reset()
	if err := (&ProposeCmd{Days: 3}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	stored, err := store.ListProposals(bg, models.GoalPending, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 {
		t.Fatalf("stored %d proposals, want 1", len(stored))
	}
	p := stored[0]
	if p.SourceTrend.TrendType != models.TrendTopicCluster || len(p.SupportingFeedbackIDs) != 10 || p.CreatedBy != "trendlit" {
		t.Errorf("stored proposal = %+v", p)
	}
	if !strings.Contains(out.String(), "Saved 1 proposal(s)") {
		t.Errorf("output:\n%s", out)
	}
}

func TestProposeCmdSkipsMalformedResponse(t *testing.T) {
	ctx, store, out := setup(t)
	ctx.NewGenerator = func(llm.Config) (llm.Generator, error) {
		return llm.Static("I cannot help with that."), nil
	}

	if err := (&ProposeCmd{Days: 3}).Run(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "1 trend(s) skipped") {
		t.Errorf("output:\n%s", out)
	}
	if stored, _ := store.ListProposals(context.Background(), "", 0); len(stored) != 0 {
		t.Errorf("nothing should be saved, got %d", len(stored))
	}
}

func TestProposeCmdRequiresGenerator(t *testing.T) {
	ctx, _, _ := setup(t)
	ctx.NewGenerator = nil
	ctx.LLM = llm.Config{Provider: "anthropic"}

	if err := (&ProposeCmd{Days: 3}).Run(ctx); err == nil {
		t.Error("propose without an API key should fail")
	}
}
