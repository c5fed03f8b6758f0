package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/trendlit/internal/models"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true).
			Padding(0, 1)

	CellStyle = lipgloss.NewStyle().Padding(0, 1)

	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	DangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))
)

// PriorityStyle colors a 1-5 priority from calm to urgent.
func PriorityStyle(priority int) lipgloss.Style {
	switch {
	case priority >= 5:
		return DangerStyle
	case priority == 4:
		return WarningStyle
	case priority <= 2:
		return MutedStyle
	default:
		return lipgloss.NewStyle()
	}
}

// StatusStyle colors a proposal status.
func StatusStyle(status models.GoalStatus) lipgloss.Style {
	switch status {
	case models.GoalApproved, models.GoalCompleted:
		return SuccessStyle
	case models.GoalRejected:
		return MutedStyle
	case models.GoalInProgress:
		return WarningStyle
	default:
		return lipgloss.NewStyle()
	}
}
