package goals

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/julianstephens/trendlit/internal/constants"
	"github.com/julianstephens/trendlit/internal/models"
)

type sentimentLine struct {
	Label string
	Count int
}

type evidenceSample struct {
	Title   string
	Content string
	Author  string
}

type promptData struct {
	TrendType     string
	Confidence    string
	Affected      int
	PrimaryTopics string
	TimePeriod    string
	Severity      string
	Indicators    []string
	Sentiments    []sentimentLine
	Samples       []evidenceSample
}

var goalPrompt = template.Must(template.New("goal").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	Parse(goalPromptTemplate))

// RenderPrompt builds the generator prompt for trend and its evidence. At
// most constants.MaxPromptSamples records are included.
func RenderPrompt(trend models.TrendAnalysis, evidence []models.ClassifiedFeedback) (string, error) {
	topics := make([]string, len(trend.PrimaryTopics))
	for i, t := range trend.PrimaryTopics {
		topics[i] = t.Label()
	}

	data := promptData{
		TrendType:     trend.TrendType.Label(),
		Confidence:    fmt.Sprintf("%.1f%%", trend.Confidence*100),
		Affected:      trend.AffectedFeedbackCount,
		PrimaryTopics: strings.Join(topics, ", "),
		TimePeriod:    trend.TimePeriod,
		Severity:      fmt.Sprintf("%.2f", trend.SeverityScore),
		Indicators:    trend.KeyIndicators,
	}
	for _, s := range models.Sentiments {
		if c, ok := trend.SentimentDistribution[s]; ok {
			data.Sentiments = append(data.Sentiments, sentimentLine{Label: titleCase(string(s)), Count: c})
		}
	}
	for i, r := range evidence {
		if i == constants.MaxPromptSamples {
			break
		}
		data.Samples = append(data.Samples, evidenceSample{
			Title:   r.Title,
			Content: truncate(r.Content, constants.MaxSampleContentLen),
			Author:  r.Author,
		})
	}

	var b strings.Builder
	if err := goalPrompt.Execute(&b, data); err != nil {
		return "", fmt.Errorf("failed to render goal prompt: %w", err)
	}
	return b.String(), nil
}

// truncate cuts s to n characters, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

const goalPromptTemplate = `You are a product manager analyzing user feedback trends to create actionable goals.

Based on the following trend analysis and user feedback, generate a well-structured goal proposal.

TREND ANALYSIS:
- Type: {{.TrendType}}
- Confidence: {{.Confidence}}
- Affected Feedback: {{.Affected}} items
- Primary Topics: {{.PrimaryTopics}}
- Time Period: {{.TimePeriod}}
- Severity Score: {{.Severity}}
- Key Indicators:
{{range .Indicators}}  • {{.}}
{{end}}
SENTIMENT DISTRIBUTION:
{{range .Sentiments}}  • {{.Label}}: {{.Count}} items
{{end}}
RELEVANT USER FEEDBACK:
{{range $i, $s := .Samples}}
Sample {{inc $i}}:
{{- if $s.Title}}
  Title: {{$s.Title}}
{{- end}}
  Content: {{$s.Content}}
  Author: {{$s.Author}}
{{end}}
Create a goal proposal that addresses this trend. The goal should be:
- Specific and actionable
- Clearly address the underlying user needs
- Have measurable outcomes when possible
- Be feasible for a development team

Respond with a JSON object in this exact format:
{
    "title": "Clear, concise goal title (10-200 characters)",
    "description": "Detailed description of the goal, why it's needed, and what success looks like (50+ characters)",
    "tags": ["tag1", "tag2"],
    "estimated_effort": "Brief effort estimate (e.g., 'Small', 'Medium', 'Large', '1-2 weeks', '1 month')",
    "potential_impact": "Expected positive impact on users and metrics"
}
`
