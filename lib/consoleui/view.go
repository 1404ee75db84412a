// Copyright 2026 The Bindery Authors
// SPDX-License-Identifier: Apache-2.0

package consoleui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// listWidth is the fixed width of the API/verb pane. The payload and
// log panes take the rest.
const listWidth = 34

// Fixed vertical chrome: header, status, and help lines.
const chromeHeight = 3

func okStyle(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.SuccessColor)
}

func failStyle(theme Theme) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(theme.FailureColor)
}

// layout recomputes pane dimensions after a terminal resize.
func (model *Model) layout() {
	logWidth := model.width - listWidth - 4 // borders on both panes
	if logWidth < 20 {
		logWidth = 20
	}
	logHeight := model.height - chromeHeight - 3 - 2 // payload box, log borders
	if logHeight < 3 {
		logHeight = 3
	}
	model.log.Width = logWidth
	model.log.Height = logHeight
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "starting console..."
	}

	theme := model.theme
	headerStyle := lipgloss.NewStyle().Foreground(theme.HeaderForeground).Bold(true)
	helpStyle := lipgloss.NewStyle().Foreground(theme.HelpText)
	statusStyle := lipgloss.NewStyle().Foreground(theme.FaintText)

	session := "anonymous"
	if model.session != "" {
		session = shortToken(model.session)
	}
	header := headerStyle.Render(fmt.Sprintf("bindery console · session %s", session))

	bodyHeight := model.height - chromeHeight
	list := model.renderList(bodyHeight - 2)
	right := lipgloss.JoinVertical(lipgloss.Left,
		model.renderPayload(),
		model.renderLog(),
	)
	body := lipgloss.JoinHorizontal(lipgloss.Top, list, right)

	help := helpStyle.Render("j/k move · enter call · p payload · P clear · s session · r refresh · pgup/pgdn log · q quit")
	status := statusStyle.Render(model.status)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, status, help)
}

// renderList draws the API/verb pane with a window of rows around the
// cursor.
func (model Model) renderList(height int) string {
	theme := model.theme
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.BorderColor).
		Width(listWidth).
		Height(height)
	if model.focus == FocusVerbs {
		border = border.BorderForeground(theme.FocusBorderColor)
	}

	headerStyle := lipgloss.NewStyle().Foreground(theme.HeaderForeground)
	normalStyle := lipgloss.NewStyle().Foreground(theme.NormalText)
	selectedStyle := lipgloss.NewStyle().
		Background(theme.SelectedBackground).
		Foreground(theme.SelectedForeground)
	badgeStyle := lipgloss.NewStyle().Foreground(theme.AssuranceColor)

	if len(model.rows) == 0 {
		return border.Render(lipgloss.NewStyle().Foreground(theme.FaintText).Render("no apis"))
	}

	// Window the rows so the cursor stays visible.
	start := 0
	if model.cursor >= height {
		start = model.cursor - height + 1
	}
	end := start + height
	if end > len(model.rows) {
		end = len(model.rows)
	}

	var lines []string
	for i := start; i < end; i++ {
		row := model.rows[i]
		if row.header {
			lines = append(lines, headerStyle.Render(row.api))
			continue
		}
		label := "  " + row.verb.Name
		if row.verb.Assurance > 0 {
			label += " " + badgeStyle.Render(fmt.Sprintf("[L%d]", row.verb.Assurance))
		}
		style := normalStyle
		if i == model.cursor {
			style = selectedStyle
		}
		lines = append(lines, style.MaxWidth(listWidth).Render(label))
	}
	return border.Render(strings.Join(lines, "\n"))
}

// renderPayload draws the single-line payload editor.
func (model Model) renderPayload() string {
	theme := model.theme
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.BorderColor).
		Width(model.log.Width)
	if model.focus == FocusPayload {
		border = border.BorderForeground(theme.FocusBorderColor)
	}

	content := model.payload
	if model.focus == FocusPayload {
		content += "█"
	}
	if content == "" {
		content = lipgloss.NewStyle().Foreground(theme.FaintText).Render(`payload: press p, then type a JSON object`)
	}
	return border.Render(lipgloss.NewStyle().MaxWidth(model.log.Width).Render(content))
}

// renderLog draws the outcome scrollback.
func (model Model) renderLog() string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(model.theme.BorderColor).
		Width(model.log.Width)
	return border.Render(model.log.View())
}

// shortToken abbreviates a session token for the header line.
func shortToken(token string) string {
	if len(token) <= 8 {
		return token
	}
	return token[:8] + "…"
}
