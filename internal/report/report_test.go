package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/trendlit/internal/llm"
	"github.com/julianstephens/trendlit/internal/models"
)

func day(n int) time.Time {
	return time.Date(2026, 3, n, 0, 0, 0, 0, time.UTC)
}

func agg(d, pos, neg, neu int, topics map[models.Topic]int) models.DailyAggregate {
	a := models.NewDailyAggregate(day(d))
	a.Total = pos + neg + neu
	a.Sentiments[models.SentimentPositive] = pos
	a.Sentiments[models.SentimentNegative] = neg
	a.Sentiments[models.SentimentNeutral] = neu
	for t, c := range topics {
		a.Topics[t] = c
	}
	return a
}

func TestSummarize(t *testing.T) {
	aggs := []models.DailyAggregate{
		agg(3, 1, 1, 0, map[models.Topic]int{models.TopicBug: 2}),
		agg(1, 2, 0, 2, map[models.Topic]int{models.TopicFeatureRequest: 4}),
		agg(2, 0, 6, 0, map[models.Topic]int{models.TopicBug: 6}),
	}

	s, err := Summarize(aggs)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if !s.Start.Equal(day(1)) || !s.End.Equal(day(3)) {
		t.Errorf("range = %v..%v", s.Start, s.End)
	}
	if fmt.Sprint(s.Totals) != "[4 6 2]" {
		t.Errorf("totals = %v, want [4 6 2]", s.Totals)
	}
	if fmt.Sprint(s.Sentiments[models.SentimentNegative]) != "[0 6 1]" {
		t.Errorf("negative series = %v", s.Sentiments[models.SentimentNegative])
	}
	if s.Total != 12 || s.AverageDaily != 4 {
		t.Errorf("total = %d avg = %v, want 12 and 4", s.Total, s.AverageDaily)
	}
	if !s.MostActiveDay.Equal(day(2)) {
		t.Errorf("most active day = %v, want %v", s.MostActiveDay, day(2))
	}
	if s.Overall[models.SentimentPositive] != 3 || s.Overall[models.SentimentNegative] != 7 || s.Overall[models.SentimentNeutral] != 2 {
		t.Errorf("overall = %v", s.Overall)
	}
	if topic, n := s.TopTopic(); topic != models.TopicBug || n != 8 {
		t.Errorf("TopTopic() = %s, %d", topic, n)
	}
	if aggs[0].Date != day(3) {
		t.Error("Summarize must not reorder its input")
	}
}

func TestSummarizeMostActiveDayTie(t *testing.T) {
	s, err := Summarize([]models.DailyAggregate{agg(1, 5, 0, 0, nil), agg(2, 5, 0, 0, nil)})
	if err != nil {
		t.Fatal(err)
	}
	if !s.MostActiveDay.Equal(day(1)) {
		t.Errorf("ties should go to the earliest day, got %v", s.MostActiveDay)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	if _, err := Summarize(nil); !errors.Is(err, ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func feedback(n int, s models.Sentiment, source string, topics ...models.Topic) []models.ClassifiedFeedback {
	out := make([]models.ClassifiedFeedback, n)
	for i := range out {
		out[i] = models.ClassifiedFeedback{ID: fmt.Sprintf("%s-%d", s, i), Sentiment: s, Source: source, Topics: topics}
	}
	return out
}

func TestKeyInsights(t *testing.T) {
	tests := []struct {
		name    string
		records []models.ClassifiedFeedback
		want    []string
	}{
		{
			name:    "empty",
			records: nil,
			want:    []string{"No feedback data available for analysis."},
		},
		{
			name:    "positive and low volume",
			records: feedback(4, models.SentimentPositive, "reddit", models.TopicFeatureRequest),
			want: []string{
				"Predominantly positive feedback (100.0% positive)",
				"Primary discussion topic: Feature Request (4 mentions)",
				"Low feedback volume - limited user engagement",
			},
		},
		{
			name: "negative from several sources",
			records: append(feedback(8, models.SentimentNegative, "github", models.TopicBug),
				feedback(2, models.SentimentNeutral, "discord", models.TopicSupport)...),
			want: []string{
				"High volume of negative feedback (80.0% negative)",
				"Primary discussion topic: Bug (8 mentions)",
				"Feedback collected from 2 sources: discord, github",
			},
		},
		{
			name: "mixed and high volume",
			records: append(feedback(30, models.SentimentPositive, "", models.TopicGeneral),
				feedback(30, models.SentimentNegative, "", models.TopicPerformance)...),
			want: []string{
				"Mixed sentiment in user feedback",
				"Primary discussion topic: Performance (30 mentions)",
				"High feedback volume with 60 items",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := KeyInsights(tt.records)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("KeyInsights() =\n%q\nwant\n%q", got, tt.want)
			}
		})
	}
}

func TestNarrative(t *testing.T) {
	s, err := Summarize([]models.DailyAggregate{
		agg(1, 3, 1, 0, map[models.Topic]int{models.TopicBug: 4}),
	})
	if err != nil {
		t.Fatal(err)
	}
	got := Narrative(s, []string{"one", "two", "three", "four"})
	for _, want := range []string{
		"We analyzed 4 pieces of user feedback",
		"75.0% positive, 25.0% negative",
		"The primary topic of discussion was Bug, mentioned in 4 feedback items.",
		"Key insights include: one; two; three.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("narrative missing %q:\n%s", want, got)
		}
	}

	empty, _ := Summarize([]models.DailyAggregate{agg(1, 0, 0, 0, nil)})
	if got := Narrative(empty, nil); got != "No user feedback was collected during this period." {
		t.Errorf("Narrative(empty) = %q", got)
	}
}

func narrativeFixture(t *testing.T) (Summary, []string, []models.ClassifiedFeedback) {
	t.Helper()
	s, err := Summarize([]models.DailyAggregate{
		agg(1, 3, 1, 0, map[models.Topic]int{models.TopicBug: 1, models.TopicFeatureRequest: 3}),
	})
	if err != nil {
		t.Fatal(err)
	}
	records := []models.ClassifiedFeedback{
		{ID: "a", Title: "Crash", Content: strings.Repeat("x", 250), Sentiment: models.SentimentNegative},
		{ID: "b", Content: "Please add dark mode", Sentiment: models.SentimentPositive},
	}
	return s, []string{"Bug reports are rising"}, records
}

func TestRenderNarrativePrompt(t *testing.T) {
	s, insights, records := narrativeFixture(t)
	prompt, err := RenderNarrativePrompt(s, insights, records)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"Total Feedback Items: 4",
		"- Positive: 3 (75.0%)",
		"- Negative: 1 (25.0%)",
		"- Feature Request: 3\n- Bug: 1",
		"- Bug reports are rising",
		"1. Crash: " + strings.Repeat("x", 200) + "...",
		"2. No title: Please add dark mode",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
	if strings.Contains(prompt, "Neutral") {
		t.Error("absent sentiments should not be listed")
	}
}

func TestGenerateNarrative(t *testing.T) {
	s, insights, records := narrativeFixture(t)
	template := Narrative(s, insights)
	bg := context.Background()

	if got := GenerateNarrative(bg, llm.Static("  Feedback was mostly positive.\n"), s, insights, records); got != "Feedback was mostly positive." {
		t.Errorf("GenerateNarrative() = %q", got)
	}

	failing := llm.Func(func(context.Context, string) (string, error) {
		return "", errors.New("rate limited")
	})
	tests := []struct {
		name string
		gen  llm.Generator
	}{
		{"no generator", nil},
		{"generator error", failing},
		{"blank response", llm.Static("   ")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateNarrative(bg, tt.gen, s, insights, records); got != template {
				t.Errorf("expected template fallback, got %q", got)
			}
		})
	}

	called := false
	empty, _ := Summarize([]models.DailyAggregate{agg(1, 0, 0, 0, nil)})
	gen := llm.Func(func(context.Context, string) (string, error) {
		called = true
		return "text", nil
	})
	if got := GenerateNarrative(bg, gen, empty, nil, nil); got != Narrative(empty, nil) || called {
		t.Errorf("empty summary should not reach the generator, got %q", got)
	}
}
