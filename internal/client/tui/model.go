// Package tui is an interactive terminal front end for Packsync: pick a
// travel plan, make it active and tick off its packing list together with
// other collaborators.
package tui

import (
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/packsync/packsync/internal/domain"
)

// Plans is the travel plan list the UI shows.
type Plans interface {
	Plans() []domain.TravelPlan
	ToggleActive(id string) (bool, error)
}

// Active reports the active plan.
type Active interface {
	Active() (domain.TravelPlan, bool)
}

// PackingList is a live packing list for one plan.
type PackingList interface {
	Start() error
	Resume() error
	Pause() error
	Close()
	Items() []domain.PackingItem
	Toggle(itemID string) (domain.PackingItem, error)
}

// Deps are the components the UI drives.
type Deps struct {
	User   domain.User
	Plans  Plans
	Active Active
	// OpenList returns a packing list for plan whose refresh and error
	// callbacks go to n.
	OpenList func(plan domain.TravelPlan, n *Notifier) PackingList
}

type screen int

const (
	screenPlans screen = iota
	screenItems
)

// Model is the bubbletea model.
type Model struct {
	deps     Deps
	notifier *Notifier
	keys     keyMap
	help     help.Model

	screen     screen
	plans      []domain.TravelPlan
	active     *domain.TravelPlan
	planCursor int

	listPlan   domain.TravelPlan
	list       PackingList
	items      []domain.PackingItem
	itemCursor int

	status string
	err    error
	width  int
}

// New returns a model showing the plan list. n must be the Notifier that
// the Plans and Active sources report changes to.
func New(deps Deps, n *Notifier) Model {
	m := Model{
		deps:     deps,
		notifier: n,
		keys:     defaultKeyMap(),
		help:     help.New(),
	}
	m.reload()
	return m
}

type toggledMsg struct {
	item domain.PackingItem
	err  error
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.notifier.wait()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case changedMsg:
		m.reload()
		return m, m.notifier.wait()

	case errMsg:
		m.err = msg.err
		return m, m.notifier.wait()

	case toggledMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if msg.item.IsPacked {
			m.status = "packed " + msg.item.Name
		} else {
			m.status = "unpacked " + msg.item.Name
		}
		m.reload()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.closeList()
		return m, tea.Quit
	}
	switch m.screen {
	case screenPlans:
		return m.handlePlanKey(msg)
	default:
		return m.handleItemKey(msg)
	}
}

func (m Model) handlePlanKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.planCursor = clampCursor(m.planCursor-1, len(m.plans))
	case key.Matches(msg, m.keys.Down):
		m.planCursor = clampCursor(m.planCursor+1, len(m.plans))
	case key.Matches(msg, m.keys.Active):
		plan, ok := m.selectedPlan()
		if !ok {
			return m, nil
		}
		active, err := m.deps.Plans.ToggleActive(plan.ID)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		if active {
			m.status = plan.Title + " is now active"
		} else {
			m.status = plan.Title + " is no longer active"
		}
		m.reload()
	case key.Matches(msg, m.keys.Open):
		plan, ok := m.selectedPlan()
		if !ok {
			return m, nil
		}
		m.openList(plan)
	}
	return m, nil
}

func (m Model) handleItemKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.itemCursor = clampCursor(m.itemCursor-1, len(m.items))
	case key.Matches(msg, m.keys.Down):
		m.itemCursor = clampCursor(m.itemCursor+1, len(m.items))
	case key.Matches(msg, m.keys.Back):
		m.closeList()
		m.screen = screenPlans
		m.status = ""
		m.reload()
	case key.Matches(msg, m.keys.Reload):
		if err := m.list.Resume(); err != nil {
			m.err = err
		}
	case key.Matches(msg, m.keys.Toggle):
		if m.itemCursor >= len(m.items) {
			return m, nil
		}
		list, id := m.list, m.items[m.itemCursor].ID
		// Toggle waits for the list's loop, so it runs off the UI goroutine.
		return m, func() tea.Msg {
			item, err := list.Toggle(id)
			return toggledMsg{item: item, err: err}
		}
	}
	return m, nil
}

func (m *Model) openList(plan domain.TravelPlan) {
	m.closeList()
	m.list = m.deps.OpenList(plan, m.notifier)
	m.listPlan = plan
	m.itemCursor = 0
	m.screen = screenItems
	m.status = ""
	m.err = nil
	if err := m.list.Start(); err != nil {
		m.err = err
	}
	m.reload()
}

func (m *Model) closeList() {
	if m.list != nil {
		m.list.Close()
		m.list = nil
	}
	m.items = nil
}

// reload re-reads everything shown from the sources.
func (m *Model) reload() {
	m.plans = m.deps.Plans.Plans()
	m.planCursor = clampCursor(m.planCursor, len(m.plans))
	if p, ok := m.deps.Active.Active(); ok {
		m.active = &p
	} else {
		m.active = nil
	}
	if m.list != nil {
		m.items = m.list.Items()
		m.itemCursor = clampCursor(m.itemCursor, len(m.items))
	}
}

func (m Model) selectedPlan() (domain.TravelPlan, bool) {
	if m.planCursor >= len(m.plans) {
		return domain.TravelPlan{}, false
	}
	return m.plans[m.planCursor], true
}

func clampCursor(c, n int) int {
	if n == 0 || c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}

// errorText shortens well-known errors for the status line.
func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		return "not signed in"
	case errors.Is(err, domain.ErrNotFound):
		return "no longer exists"
	}
	var writeErr *domain.WriteError
	if errors.As(err, &writeErr) {
		return "could not save change: " + writeErr.Err.Error()
	}
	return err.Error()
}
