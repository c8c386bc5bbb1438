package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("255"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Bold(true)
	activeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	packedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	activeBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("42")).Padding(0, 1)
)

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	if m.screen == screenPlans {
		m.viewPlans(&b)
	} else {
		m.viewItems(&b)
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("! "+errorText(m.err)) + "\n")
	case m.status != "":
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	if m.screen == screenPlans {
		b.WriteString(m.help.ShortHelpView(m.keys.planKeys()))
	} else {
		b.WriteString(m.help.ShortHelpView(m.keys.itemKeys()))
	}
	return b.String()
}

func (m Model) viewPlans(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Packsync") + dimStyle.Render("  signed in as "+m.deps.User.DisplayName) + "\n\n")

	if m.active != nil {
		b.WriteString(activeBoxStyle.Render(fmt.Sprintf("Active: %s\n%s - %s\n%s",
			m.active.Title, m.active.StartDate, m.active.EndDate, m.active.CountryAndCity)) + "\n\n")
	} else {
		b.WriteString(dimStyle.Render("No active plan set. Press a on a plan to set it.") + "\n\n")
	}

	if len(m.plans) == 0 {
		b.WriteString(dimStyle.Render("No travel plans yet. Add one with `packsync plans add`.") + "\n")
		return
	}
	for i, p := range m.plans {
		cursor := "  "
		if i == m.planCursor {
			cursor = cursorStyle.Render("> ")
		}
		line := p.Title
		if p.CountryAndCity != "" {
			line += dimStyle.Render("  " + p.CountryAndCity)
		}
		if m.active != nil && m.active.ID == p.ID {
			line += activeStyle.Render("  (active)")
		}
		b.WriteString(cursor + line + "\n")
	}
}

func (m Model) viewItems(b *strings.Builder) {
	b.WriteString(titleStyle.Render("Packing list: "+m.listPlan.Title) + "\n\n")
	if len(m.items) == 0 {
		b.WriteString(dimStyle.Render("Nothing to pack yet. Add items with `packsync items add`.") + "\n")
		return
	}
	for i, it := range m.items {
		cursor := "  "
		if i == m.itemCursor {
			cursor = cursorStyle.Render("> ")
		}
		box := "[ ]"
		if it.IsPacked {
			box = packedStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s %s", box, it.Name)
		if it.ItemNumber != "" {
			line += dimStyle.Render(" x" + it.ItemNumber)
		}
		if it.IsPacked && it.IsPackedBy != "" {
			line += dimStyle.Render("  packed by " + it.IsPackedBy)
		}
		b.WriteString(cursor + line + "\n")
	}
}
