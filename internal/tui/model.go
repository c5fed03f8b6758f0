// Package tui is the interactive goal proposal browser.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/trendlit/internal/models"
)

// Store is the part of storage.Provider the browser needs.
type Store interface {
	ListProposals(ctx context.Context, status models.GoalStatus, limit int) ([]models.GoalProposal, error)
	UpdateProposalStatus(ctx context.Context, id string, status models.GoalStatus) (models.GoalProposal, error)
}

// filters are the status tabs, in tab order. The empty status shows all.
var filters = []models.GoalStatus{
	"",
	models.GoalPending,
	models.GoalApproved,
	models.GoalInProgress,
	models.GoalCompleted,
	models.GoalRejected,
}

type Item struct {
	Proposal models.GoalProposal
}

func (i Item) Title() string {
	return fmt.Sprintf("[P%d] %s", i.Proposal.Priority, i.Proposal.Title)
}

func (i Item) Description() string {
	return fmt.Sprintf("%s · %s · %s", i.Proposal.Status, i.Proposal.SourceTrend.TrendType.Label(),
		i.Proposal.CreatedAt.Format("2006-01-02"))
}

func (i Item) FilterValue() string {
	return i.Proposal.Title + " " + strings.Join(i.Proposal.Tags, " ")
}

type proposalsLoadedMsg struct {
	proposals []models.GoalProposal
	err       error
}

type statusUpdatedMsg struct {
	proposal models.GoalProposal
	from     models.GoalStatus
	err      error
}

type Model struct {
	ctx      context.Context
	store    Store
	keys     KeyMap
	help     help.Model
	list     list.Model
	filter   int
	details  bool
	message  string
	err      error
	quitting bool
	width    int
	height   int
}

func NewModel(ctx context.Context, store Store) Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Goal proposals"
	l.SetShowTitle(false)
	l.SetShowHelp(false)

	return Model{
		ctx:   ctx,
		store: store,
		keys:  DefaultKeyMap(),
		help:  help.New(),
		list:  l,
	}
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	status := filters[m.filter]
	return func() tea.Msg {
		proposals, err := m.store.ListProposals(m.ctx, status, 0)
		return proposalsLoadedMsg{proposals: proposals, err: err}
	}
}

func (m Model) setStatus(p models.GoalProposal, next models.GoalStatus) tea.Cmd {
	return func() tea.Msg {
		updated, err := m.store.UpdateProposalStatus(m.ctx, p.ID, next)
		return statusUpdatedMsg{proposal: updated, from: p.Status, err: err}
	}
}

// Selected returns the highlighted proposal.
func (m Model) Selected() (models.GoalProposal, bool) {
	item, ok := m.list.SelectedItem().(Item)
	if !ok {
		return models.GoalProposal{}, false
	}
	return item.Proposal, true
}

// Filter returns the status tab being shown; empty means all.
func (m Model) Filter() models.GoalStatus {
	return filters[m.filter]
}
