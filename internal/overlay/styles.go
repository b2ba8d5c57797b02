package overlay

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.Color("#4285f4")
	warning = lipgloss.Color("#ff9800")
	success = lipgloss.Color("#4caf50")
	muted   = lipgloss.Color("#888888")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle   = lipgloss.NewStyle().Bold(true)
	waitingStyle = lipgloss.NewStyle().Foreground(warning)
	noticeStyle  = lipgloss.NewStyle().Foreground(success)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	focusStyle   = lipgloss.NewStyle().Foreground(accent).Bold(true)

	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(accent).
			Padding(0, 1)
	disabledButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666")).
				Background(lipgloss.Color("#cccccc")).
				Padding(0, 1)

	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(warning).
			Padding(1, 2).
			Width(60)
)
