package goals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/trendlit/internal/llm"
	"github.com/julianstephens/trendlit/internal/models"
)

var base = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fb(id string, hoursAgo int, s models.Sentiment, topics ...models.Topic) models.ClassifiedFeedback {
	return models.ClassifiedFeedback{
		ID:        id,
		Title:     "Title " + id,
		Content:   "The app does something odd for " + id,
		Author:    "author-" + id,
		Timestamp: base.Add(-time.Duration(hoursAgo) * time.Hour),
		Sentiment: s,
		Topics:    topics,
	}
}

func draftJSON(title, desc string) string {
	b, _ := json.Marshal(map[string]interface{}{
		"title":            title,
		"description":      desc,
		"tags":             []string{"stability"},
		"estimated_effort": "Medium",
		"potential_impact": "Fewer crash reports",
	})
	return string(b)
}

func TestCalculatePriority(t *testing.T) {
	tests := []struct {
		name  string
		trend models.TrendAnalysis
		want  int
	}{
		{
			name: "everything clamps at five",
			trend: models.TrendAnalysis{
				TrendType: models.TrendSentimentShift, SeverityScore: 0.95,
				AffectedFeedbackCount: 25, PrimaryTopics: []models.Topic{models.TopicBug},
			},
			want: 5,
		},
		{
			name: "small low severity cluster clamps at one",
			trend: models.TrendAnalysis{
				TrendType: models.TrendTopicCluster, SeverityScore: 0.3,
				AffectedFeedbackCount: 2, PrimaryTopics: []models.Topic{models.TopicGeneral},
			},
			want: 1,
		},
		{
			name: "medium volume spike",
			trend: models.TrendAnalysis{
				TrendType: models.TrendVolumeSpike, SeverityScore: 0.65,
				AffectedFeedbackCount: 12, PrimaryTopics: []models.Topic{models.TopicGeneral},
			},
			want: 3,
		},
		{
			name: "recurring performance issue",
			trend: models.TrendAnalysis{
				TrendType: models.TrendRecurringIssue, SeverityScore: 0.8,
				AffectedFeedbackCount: 8, PrimaryTopics: []models.Topic{models.TopicPerformance},
			},
			want: 5,
		},
		{
			// base 2, -1 for small count, +1 for bug; clamping happens per step
			name: "clamp is applied after each adjustment",
			trend: models.TrendAnalysis{
				TrendType: models.TrendTopicCluster, SeverityScore: 0.1,
				AffectedFeedbackCount: 1, PrimaryTopics: []models.Topic{models.TopicBug},
			},
			want: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculatePriority(tt.trend); got != tt.want {
				t.Errorf("CalculatePriority() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSeverityBands(t *testing.T) {
	bands := map[float64]int{1.0: 5, 0.9: 5, 0.85: 4, 0.8: 4, 0.6: 3, 0.59: 2, 0.4: 2, 0.39: 1, 0: 1}
	for severity, want := range bands {
		if got := severityBand(severity); got != want {
			t.Errorf("severityBand(%v) = %d, want %d", severity, got, want)
		}
	}
}

func TestRelevantFeedback(t *testing.T) {
	pool := []models.ClassifiedFeedback{
		fb("old-bug", 50, models.SentimentNeutral, models.TopicBug),
		fb("new-bug", 1, models.SentimentPositive, models.TopicBug, models.TopicUIFeedback),
		fb("neg-docs", 5, models.SentimentNegative, models.TopicDocumentation),
		fb("pos-docs", 3, models.SentimentPositive, models.TopicDocumentation),
	}

	t.Run("topic intersection, most recent first", func(t *testing.T) {
		trend := models.TrendAnalysis{TrendType: models.TrendTopicCluster, PrimaryTopics: []models.Topic{models.TopicBug}}
		got := FeedbackIDs(RelevantFeedback(trend, pool))
		if want := []string{"new-bug", "old-bug"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("sentiment shift adds negative records", func(t *testing.T) {
		trend := models.TrendAnalysis{TrendType: models.TrendSentimentShift, PrimaryTopics: []models.Topic{models.TopicBug}}
		got := FeedbackIDs(RelevantFeedback(trend, pool))
		if want := []string{"new-bug", "neg-docs", "old-bug"}; !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("volume spike takes everything", func(t *testing.T) {
		trend := models.TrendAnalysis{TrendType: models.TrendVolumeSpike, PrimaryTopics: []models.Topic{models.TopicGeneral}}
		if got := RelevantFeedback(trend, pool); len(got) != len(pool) {
			t.Errorf("got %d records, want %d", len(got), len(pool))
		}
	})

	t.Run("no match", func(t *testing.T) {
		trend := models.TrendAnalysis{TrendType: models.TrendRecurringIssue, PrimaryTopics: []models.Topic{models.TopicSupport}}
		if got := RelevantFeedback(trend, pool); len(got) != 0 {
			t.Errorf("expected no records, got %v", FeedbackIDs(got))
		}
	})
}

func TestRelevantFeedbackCapAndIdempotence(t *testing.T) {
	var pool []models.ClassifiedFeedback
	for i := 0; i < 15; i++ {
		pool = append(pool, fb(fmt.Sprintf("r%02d", i), i, models.SentimentNegative, models.TopicBug))
	}
	// same timestamp as r00: ties keep pool order
	pool = append(pool, fb("tie", 0, models.SentimentNegative, models.TopicBug))
	trend := models.TrendAnalysis{TrendType: models.TrendTopicCluster, PrimaryTopics: []models.Topic{models.TopicBug}}

	first := RelevantFeedback(trend, pool)
	if len(first) != 10 {
		t.Fatalf("got %d records, want cap of 10", len(first))
	}
	if first[0].ID != "r00" || first[1].ID != "tie" {
		t.Errorf("ties should keep input order, got %v", FeedbackIDs(first[:2]))
	}

	second := RelevantFeedback(trend, pool)
	if !reflect.DeepEqual(FeedbackIDs(first), FeedbackIDs(second)) {
		t.Error("relevance filter is not idempotent")
	}
	if pool[0].ID != "r00" || pool[15].ID != "tie" {
		t.Error("pool must not be reordered")
	}
}

func TestRenderPrompt(t *testing.T) {
	trend := models.TrendAnalysis{
		TrendType:             models.TrendSentimentShift,
		Confidence:            0.9,
		AffectedFeedbackCount: 12,
		PrimaryTopics:         []models.Topic{models.TopicBug, models.TopicFeatureRequest},
		SentimentDistribution: map[models.Sentiment]int{models.SentimentNegative: 12, models.SentimentPositive: 3},
		KeyIndicators:         []string{"Negative sentiment rose from 10.0% to 50.0%"},
		TimePeriod:            "2026-03-04 to 2026-03-10 (7 days)",
		SeverityScore:         1,
	}
	var evidence []models.ClassifiedFeedback
	for i := 0; i < 7; i++ {
		evidence = append(evidence, fb(fmt.Sprintf("e%d", i), i, models.SentimentNegative, models.TopicBug))
	}
	evidence[0].Content = strings.Repeat("x", 250)
	evidence[1].Title = ""

	prompt, err := RenderPrompt(trend, evidence)
	if err != nil {
		t.Fatalf("RenderPrompt() error = %v", err)
	}

	for _, want := range []string{
		"- Type: Sentiment Shift",
		"- Confidence: 90.0%",
		"- Affected Feedback: 12 items",
		"- Primary Topics: Bug, Feature Request",
		"- Time Period: 2026-03-04 to 2026-03-10 (7 days)",
		"- Severity Score: 1.00",
		"  • Negative sentiment rose from 10.0% to 50.0%",
		"  • Positive: 3 items",
		"  • Negative: 12 items",
		"Sample 1:\n  Title: Title e0\n  Content: " + strings.Repeat("x", 200) + "...\n  Author: author-e0",
		"Sample 2:\n  Content: The app does something odd for e1",
		"Sample 5:",
		`"potential_impact"`,
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Sample 6:") {
		t.Error("prompt should include at most 5 samples")
	}
	if strings.Contains(prompt, "Neutral:") {
		t.Error("absent sentiments should not be listed")
	}
}

func TestParseDraft(t *testing.T) {
	fenced := "```json\n" + draftJSON("Reduce crash rate", strings.Repeat("d", 60)) + "\n```"
	draft, err := ParseDraft(fenced)
	if err != nil {
		t.Fatalf("ParseDraft(fenced) error = %v", err)
	}
	if draft.Title != "Reduce crash rate" || draft.EstimatedEffort != "Medium" {
		t.Errorf("unexpected draft %+v", draft)
	}

	for name, text := range map[string]string{
		"empty":               "  ",
		"not json":            "Here is your goal: improve things",
		"missing title":       `{"description":"long enough description for the goal to be considered"}`,
		"missing description": `{"title":"A perfectly fine title"}`,
		"blank title":         `{"title":"   ","description":"long enough description for the goal to be considered"}`,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseDraft(text); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseDraftKeepsUntrimmedContent(t *testing.T) {
	// Six visible characters, ten with padding.
	text := fmt.Sprintf(`{"title":%q,"description":%q}`, "  Fix it  ", strings.Repeat("d", 50))
	draft, err := ParseDraft(text)
	if err != nil {
		t.Fatal(err)
	}
	if draft.Title != "  Fix it  " {
		t.Errorf("title = %q, want it unchanged", draft.Title)
	}
	if err := models.ValidateGoalContent(draft.Title, draft.Description); err != nil {
		t.Errorf("padded title should meet the minimum length: %v", err)
	}
}

func TestParseDraftLenientTags(t *testing.T) {
	desc := strings.Repeat("d", 50)
	tests := []struct {
		name string
		tags string
		want []string
	}{
		{"list", `["stability","sync"]`, []string{"stability", "sync"}},
		{"single string", `"stability"`, []string{"stability"}},
		{"mixed list", `["stability",3,null,""]`, []string{"stability"}},
		{"number", `5`, nil},
		{"object", `{"name":"stability"}`, nil},
		{"null", `null`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := fmt.Sprintf(`{"title":"Stabilize the sync engine","description":%q,"tags":%s}`, desc, tt.tags)
			draft, err := ParseDraft(text)
			if err != nil {
				t.Fatalf("ParseDraft() error = %v", err)
			}
			if !reflect.DeepEqual(draft.Tags, tt.want) {
				t.Errorf("tags = %#v, want %#v", draft.Tags, tt.want)
			}
		})
	}
}

func TestSynthesizeIgnoresBadTags(t *testing.T) {
	pool := []models.ClassifiedFeedback{fb("a", 1, models.SentimentNegative, models.TopicBug)}
	text := fmt.Sprintf(`{"title":"Stabilize the sync engine","description":%q,"tags":{"a":1}}`, strings.Repeat("d", 55))

	out := NewSynthesizer(llm.Static(text)).Synthesize(context.Background(), sentimentTrend(), pool)
	if !out.OK() {
		t.Fatalf("expected proposal, got %s: %v", out.Skipped, out.Err)
	}
	if len(out.Proposal.Tags) != 0 {
		t.Errorf("tags = %v, want none", out.Proposal.Tags)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"```json\n{\"a\":1}\n```\n", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := StripCodeFence(tt.in); got != tt.want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func sentimentTrend() models.TrendAnalysis {
	return models.TrendAnalysis{
		TrendType:             models.TrendSentimentShift,
		Confidence:            0.9,
		AffectedFeedbackCount: 10,
		PrimaryTopics:         []models.Topic{models.TopicBug},
		SentimentDistribution: map[models.Sentiment]int{models.SentimentNegative: 10},
		TimePeriod:            "last week",
		SeverityScore:         0.95,
	}
}

func TestSynthesizeBounds(t *testing.T) {
	pool := []models.ClassifiedFeedback{fb("a", 1, models.SentimentNegative, models.TopicBug)}

	tests := []struct {
		name  string
		title string
		desc  string
		ok    bool
	}{
		{"title too short", "Fix", strings.Repeat("d", 60), false},
		{"five character title", "Fixes", strings.Repeat("d", 60), false},
		{"exact minimums", strings.Repeat("t", 10), strings.Repeat("d", 50), true},
		{"description too short", strings.Repeat("t", 12), strings.Repeat("d", 49), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSynthesizer(llm.Static(draftJSON(tt.title, tt.desc))).WithClock(func() time.Time { return base })
			out := s.Synthesize(context.Background(), sentimentTrend(), pool)
			if out.OK() != tt.ok {
				t.Fatalf("OK() = %v, want %v (skipped=%s err=%v)", out.OK(), tt.ok, out.Skipped, out.Err)
			}
			if !tt.ok {
				if out.Skipped != SkipInvalidContent {
					t.Errorf("skipped = %s, want %s", out.Skipped, SkipInvalidContent)
				}
				if !errors.Is(out.Err, models.ErrInvalidProposal) {
					t.Errorf("err = %v, want ErrInvalidProposal", out.Err)
				}
				return
			}

			p := out.Proposal
			if p.Status != models.GoalPending {
				t.Errorf("status = %s, want pending", p.Status)
			}
			if p.Priority != 5 {
				t.Errorf("priority = %d, want 5", p.Priority)
			}
			if !reflect.DeepEqual(p.SupportingFeedbackIDs, []string{"a"}) {
				t.Errorf("supporting ids = %v", p.SupportingFeedbackIDs)
			}
			if !p.CreatedAt.Equal(base) {
				t.Errorf("created at = %v, want %v", p.CreatedAt, base)
			}
			if p.SourceTrend.TrendType != models.TrendSentimentShift {
				t.Errorf("source trend = %s", p.SourceTrend.TrendType)
			}
		})
	}
}

func TestSynthesizeSkips(t *testing.T) {
	pool := []models.ClassifiedFeedback{fb("a", 1, models.SentimentNegative, models.TopicBug)}
	called := false

	noEvidence := models.TrendAnalysis{TrendType: models.TrendTopicCluster, PrimaryTopics: []models.Topic{models.TopicSupport}}
	out := NewSynthesizer(llm.Func(func(context.Context, string) (string, error) {
		called = true
		return "", nil
	})).Synthesize(context.Background(), noEvidence, pool)
	if out.Skipped != SkipNoEvidence {
		t.Errorf("skipped = %s, want %s", out.Skipped, SkipNoEvidence)
	}
	if called {
		t.Error("generator must not be called without evidence")
	}

	out = NewSynthesizer(llm.Func(func(context.Context, string) (string, error) {
		return "", errors.New("service unavailable")
	})).Synthesize(context.Background(), sentimentTrend(), pool)
	if out.Skipped != SkipGenerationFailed {
		t.Errorf("skipped = %s, want %s", out.Skipped, SkipGenerationFailed)
	}

	out = NewSynthesizer(llm.Static("not json at all")).Synthesize(context.Background(), sentimentTrend(), pool)
	if out.Skipped != SkipMalformed {
		t.Errorf("skipped = %s, want %s", out.Skipped, SkipMalformed)
	}

	out = NewSynthesizer(llm.Func(func(context.Context, string) (string, error) {
		panic("generator exploded")
	})).Synthesize(context.Background(), sentimentTrend(), pool)
	if out.Skipped != SkipGenerationFailed || out.Err == nil {
		t.Errorf("panic should be a generation failure, got %s / %v", out.Skipped, out.Err)
	}
}

func TestSynthesizeDefaultsTags(t *testing.T) {
	pool := []models.ClassifiedFeedback{fb("a", 1, models.SentimentNegative, models.TopicBug)}
	text := fmt.Sprintf(`{"title":%q,"description":%q}`, "Stabilize the sync engine", strings.Repeat("d", 55))

	out := NewSynthesizer(llm.Static(text)).Synthesize(context.Background(), sentimentTrend(), pool)
	if !out.OK() {
		t.Fatalf("expected proposal, got %s: %v", out.Skipped, out.Err)
	}
	if out.Proposal.Tags == nil || len(out.Proposal.Tags) != 0 {
		t.Errorf("tags = %#v, want empty list", out.Proposal.Tags)
	}
	if out.Proposal.EstimatedEffort != "" || out.Proposal.PotentialImpact != "" {
		t.Error("optional fields should stay empty when absent")
	}
}

func TestGenerateGoalsBatchIndependence(t *testing.T) {
	pool := []models.ClassifiedFeedback{
		fb("a", 1, models.SentimentNegative, models.TopicBug),
		fb("b", 2, models.SentimentNegative, models.TopicPerformance),
		fb("c", 3, models.SentimentNeutral, models.TopicFeatureRequest),
	}
	trends := []models.TrendAnalysis{
		{TrendType: models.TrendTopicCluster, PrimaryTopics: []models.Topic{models.TopicBug}, SeverityScore: 0.9, AffectedFeedbackCount: 6},
		{TrendType: models.TrendTopicCluster, PrimaryTopics: []models.Topic{models.TopicPerformance}, SeverityScore: 0.8, AffectedFeedbackCount: 6},
		{TrendType: models.TrendTopicCluster, PrimaryTopics: []models.Topic{models.TopicFeatureRequest}, SeverityScore: 0.7, AffectedFeedbackCount: 6},
	}

	call := 0
	gen := llm.Func(func(ctx context.Context, prompt string) (string, error) {
		call++
		if call == 2 {
			return "", errors.New("rate limited")
		}
		return draftJSON(fmt.Sprintf("Goal number %d title", call), strings.Repeat("d", 60)), nil
	})

	batch := NewSynthesizer(gen).GenerateGoals(context.Background(), trends, pool)
	if call != 3 {
		t.Fatalf("generator called %d times, want 3", call)
	}
	if len(batch.Proposals) != 2 {
		t.Fatalf("got %d proposals, want 2", len(batch.Proposals))
	}
	if batch.Proposals[0].Title != "Goal number 1 title" || batch.Proposals[1].Title != "Goal number 3 title" {
		t.Errorf("proposal order = %q, %q", batch.Proposals[0].Title, batch.Proposals[1].Title)
	}
	if !batch.Proposals[1].SourceTrend.HasPrimaryTopic(models.TopicFeatureRequest) {
		t.Error("third proposal should come from the third trend")
	}

	skipped := batch.Skipped()
	if len(skipped) != 1 || skipped[0].Skipped != SkipGenerationFailed {
		t.Errorf("skipped = %+v, want one generation failure", skipped)
	}
	if len(batch.Outcomes) != 3 {
		t.Errorf("expected an outcome per trend, got %d", len(batch.Outcomes))
	}
}
