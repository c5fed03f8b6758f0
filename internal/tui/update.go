package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/trendlit/internal/models"
)

// chrome is the vertical space taken by tabs, messages and help.
const chrome = 6

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, max(msg.Height-v-chrome, 1))
		return m, nil

	case proposalsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		items := make([]list.Item, len(msg.proposals))
		for i, p := range msg.proposals {
			items[i] = Item{Proposal: p}
		}
		return m, m.list.SetItems(items)

	case statusUpdatedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.message = fmt.Sprintf("%s: %s → %s", msg.proposal.Title, msg.from, msg.proposal.Status)
		if f := filters[m.filter]; f != "" && msg.proposal.Status != f {
			// No longer belongs on this tab
			return m, m.load()
		}
		for i, it := range m.list.Items() {
			if item, ok := it.(Item); ok && item.Proposal.ID == msg.proposal.ID {
				return m, m.list.SetItem(i, Item{Proposal: msg.proposal})
			}
		}
		return m, nil

	case tea.KeyMsg:
		// While typing a filter every key belongs to the list
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Details):
			m.details = !m.details
			return m, nil
		case key.Matches(msg, m.keys.Filter):
			m.filter = (m.filter + 1) % len(filters)
			m.message = ""
			return m, m.load()
		case key.Matches(msg, m.keys.Reload):
			return m, m.load()
		case key.Matches(msg, m.keys.Approve):
			return m.transition(models.GoalApproved)
		case key.Matches(msg, m.keys.Reject):
			return m.transition(models.GoalRejected)
		case key.Matches(msg, m.keys.Start):
			return m.transition(models.GoalInProgress)
		case key.Matches(msg, m.keys.Complete):
			return m.transition(models.GoalCompleted)
		case key.Matches(msg, m.keys.Reopen):
			return m.transition(models.GoalPending)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// transition checks the lifecycle locally so invalid keys give immediate
// feedback; the store enforces it again.
func (m Model) transition(next models.GoalStatus) (tea.Model, tea.Cmd) {
	p, ok := m.Selected()
	if !ok {
		return m, nil
	}
	if !p.Status.CanTransitionTo(next) {
		m.err = fmt.Errorf("cannot move a %s proposal to %s", p.Status, next)
		return m, nil
	}
	m.err = nil
	return m, m.setStatus(p, next)
}
