package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Jack-Tung/private-poker/pkg/poker"
)

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	boardStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
	actingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	foldedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	inputStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

// View implements tea.Model.
func (ui *PokerUI) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("private poker - %s", ui.pc.Username)))
	b.WriteString("\n\n")
	b.WriteString(ui.renderTable())
	b.WriteString("\n")
	b.WriteString(ui.renderScrollback())
	b.WriteString("\n")
	b.WriteString(inputStyle.Render("> " + ui.input + "█"))
	b.WriteString(helpStyle.Render("\ncommands: all-in call check clear fold play raise [amount] show spectate start"))
	return b.String()
}

func (ui *PokerUI) renderTable() string {
	view := ui.view
	if view == nil {
		return statusStyle.Render("waiting for server...")
	}

	var b strings.Builder

	if view.HandActive {
		board := cardLine(view.Board)
		if board == "" {
			board = "(no cards yet)"
		}
		var pot int64
		for _, p := range view.Pots {
			pot += p.Amount
		}
		b.WriteString(boardStyle.Render(fmt.Sprintf("[%s] board: %s  pot: $%d", view.Street, board, pot)))
		b.WriteString("\n")
	} else {
		b.WriteString(statusStyle.Render(fmt.Sprintf("no hand in progress - blinds $%d/$%d", view.SmallBlind, view.BigBlind)))
		b.WriteString("\n")
	}

	for _, p := range view.Players {
		line := fmt.Sprintf("seat %d  %-16s $%-6d bet $%-5d", p.Seat, p.Name, p.Money, p.Bet)
		if len(p.Cards) > 0 {
			line += "  " + cardLine(p.Cards)
		}
		switch {
		case p.Folded:
			line = foldedStyle.Render(line)
		case p.Name == view.ToAct:
			line = actingStyle.Render(line + fmt.Sprintf("  to act (%ds)", view.TimeLeft))
		case p.AllIn:
			line += "  all-in"
		}
		if p.Seat == view.Button {
			line += "  (button)"
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if len(view.Waitlisters) > 0 {
		b.WriteString(statusStyle.Render("waitlist: " + strings.Join(view.Waitlisters, ", ")))
		b.WriteString("\n")
	}
	if len(view.Spectators) > 0 {
		b.WriteString(statusStyle.Render("spectators: " + strings.Join(view.Spectators, ", ")))
		b.WriteString("\n")
	}
	return b.String()
}

func (ui *PokerUI) renderScrollback() string {
	lines := ui.scrollbak
	visible := 10
	if len(lines) > visible {
		lines = lines[len(lines)-visible:]
	}
	return statusStyle.Render(strings.Join(lines, "\n"))
}

func cardLine(cards []poker.Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}
