package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	content := m.list.View()
	if m.details {
		content = m.viewDetails()
	}

	var status string
	switch {
	case m.err != nil:
		status = dangerStyle.Render("Error: " + m.err.Error())
	case m.message != "":
		status = successStyle.Render("✓ " + m.message)
	}

	return docStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		m.viewTabs(),
		content,
		status,
		m.help.View(m.keys),
	))
}

func (m Model) viewTabs() string {
	tabs := make([]string, len(filters))
	for i, f := range filters {
		label := string(f)
		if f == "" {
			label = "all"
		}
		if i == m.filter {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = inactiveTabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...) + "\n"
}

func (m Model) viewDetails() string {
	p, ok := m.Selected()
	if !ok {
		return mutedStyle.Render("No proposal selected.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", activeTabStyle.Render(p.Title))
	fmt.Fprintf(&b, "%s  priority %d  %s\n\n", mutedStyle.Render(p.ID), p.Priority, p.Status)
	fmt.Fprintf(&b, "%s\n\n", p.Description)
	fmt.Fprintf(&b, "Trend: %s (severity %.2f, confidence %.2f)\n",
		p.SourceTrend.TrendType.Label(), p.SourceTrend.SeverityScore, p.SourceTrend.Confidence)
	for _, ind := range p.SourceTrend.KeyIndicators {
		fmt.Fprintf(&b, "  • %s\n", ind)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(&b, "Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	if p.EstimatedEffort != "" {
		fmt.Fprintf(&b, "Effort: %s\n", p.EstimatedEffort)
	}
	if p.PotentialImpact != "" {
		fmt.Fprintf(&b, "Impact: %s\n", p.PotentialImpact)
	}
	fmt.Fprintf(&b, "Evidence: %d feedback record(s)", len(p.SupportingFeedbackIDs))

	style := detailStyle
	if m.width > 0 {
		h, _ := docStyle.GetFrameSize()
		style = style.Width(max(m.width-h-2, 20))
	}
	return style.Render(b.String())
}
