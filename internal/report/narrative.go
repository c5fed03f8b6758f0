package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/julianstephens/trendlit/internal/llm"
	"github.com/julianstephens/trendlit/internal/logger"
	"github.com/julianstephens/trendlit/internal/models"
)

const (
	maxNarrativeSamples = 5
	maxSampleLen        = 200
)

type statLine struct {
	Label string
	Count int
	Pct   string
}

type narrativeData struct {
	Total      int
	Start      string
	End        string
	Sentiments []statLine
	Topics     []statLine
	Insights   []string
	Samples    []string
}

var narrativePrompt = template.Must(template.New("narrative").Parse(narrativePromptTemplate))

// RenderNarrativePrompt builds the prompt asking for an executive summary of
// s. The first few records are included as samples.
func RenderNarrativePrompt(s Summary, insights []string, records []models.ClassifiedFeedback) (string, error) {
	data := narrativeData{
		Total:    s.Total,
		Start:    s.Start.Format(time.DateOnly),
		End:      s.End.Format(time.DateOnly),
		Insights: insights,
	}
	for _, sent := range models.Sentiments {
		if c := s.Overall[sent]; c > 0 {
			data.Sentiments = append(data.Sentiments, statLine{
				Label: strings.ToUpper(string(sent[:1])) + string(sent[1:]),
				Count: c,
				Pct:   fmt.Sprintf("%.1f%%", pct(c, s.Total)),
			})
		}
	}
	for _, t := range rankedTopics(s) {
		data.Topics = append(data.Topics, statLine{Label: t.Label(), Count: s.TopicTotal(t)})
	}
	for i, r := range records {
		if i == maxNarrativeSamples {
			break
		}
		title := r.Title
		if title == "" {
			title = "No title"
		}
		data.Samples = append(data.Samples, fmt.Sprintf("%d. %s: %s", i+1, title, excerpt(r.Content, maxSampleLen)))
	}

	var b strings.Builder
	if err := narrativePrompt.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render narrative prompt: %w", err)
	}
	return b.String(), nil
}

// GenerateNarrative asks gen for the summary text. It falls back to
// Narrative when gen is nil, fails or returns nothing.
func GenerateNarrative(ctx context.Context, gen llm.Generator, s Summary, insights []string, records []models.ClassifiedFeedback) string {
	fallback := Narrative(s, insights)
	if gen == nil || s.Total == 0 {
		return fallback
	}

	prompt, err := RenderNarrativePrompt(s, insights, records)
	if err != nil {
		logger.Warn("Failed to build narrative prompt", "err", err)
		return fallback
	}
	text, err := gen.Generate(ctx, prompt)
	if err != nil {
		logger.Warn("Failed to generate narrative summary, using template", "err", err)
		return fallback
	}
	text = strings.TrimSpace(text)
	if text == "" {
		logger.Warn("Empty narrative summary, using template")
		return fallback
	}
	return text
}

// rankedTopics lists the topics that were mentioned, most mentions first.
func rankedTopics(s Summary) []models.Topic {
	var out []models.Topic
	for _, t := range models.Topics {
		if s.TopicTotal(t) > 0 {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return s.TopicTotal(out[i]) > s.TopicTotal(out[j])
	})
	return out
}

func excerpt(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

const narrativePromptTemplate = `Generate a concise, professional summary report based on the following user feedback analysis for {{.Start}} to {{.End}}:

STATISTICS:
Total Feedback Items: {{.Total}}

Sentiment Breakdown:
{{range .Sentiments}}- {{.Label}}: {{.Count}} ({{.Pct}})
{{end}}
Topic Breakdown:
{{range .Topics}}- {{.Label}}: {{.Count}}
{{end}}
Key Insights:
{{range .Insights}}- {{.}}
{{end}}
SAMPLE FEEDBACK:
{{range .Samples}}{{.}}
{{end}}
Please write a 2-3 paragraph executive summary that:
1. Highlights the overall sentiment and engagement level
2. Identifies the main topics and concerns raised by users
3. Provides actionable insights or recommendations
4. Maintains a professional, analytical tone

Focus on trends, patterns, and implications rather than just restating the numbers.
`
