package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/chime/internal/lifecycle"
	"github.com/julianstephens/chime/internal/models"
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	DangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	CellStyle = lipgloss.NewStyle().PaddingRight(2)
)

var stateStyles = map[models.State]lipgloss.Style{
	models.StateScheduled:           SuccessStyle,
	models.StateAlerting:            DangerStyle,
	models.StateSnoozed:             WarningStyle,
	models.StatePendingConfirmation: WarningStyle,
	models.StateDisabled:            MutedStyle,
}

// StateLabel renders an alarm's lifecycle state in its color.
func StateLabel(a models.Alarm) string {
	state := lifecycle.State(a)
	return stateStyles[state].Render(string(state))
}

// Cell pads s to width columns, truncating with an ellipsis when it does not fit.
func Cell(s string, width int) string {
	if lipgloss.Width(s) > width && width > 3 {
		r := []rune(s)
		for len(r) > 0 && lipgloss.Width(string(r))+3 > width {
			r = r[:len(r)-1]
		}
		s = string(r) + "..."
	}
	return CellStyle.Width(width + CellStyle.GetPaddingRight()).Render(s)
}
