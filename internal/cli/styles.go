package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorPrimary = lipgloss.Color("12")
	colorSuccess = lipgloss.Color("10")
	colorWarning = lipgloss.Color("11")
	colorError   = lipgloss.Color("9")
	colorMuted   = lipgloss.Color("8")
	colorWhite   = lipgloss.Color("15")
)

// Badge styles for run outcomes.
var (
	badgeBase = lipgloss.NewStyle().Padding(0, 1).Bold(true)

	badgeApplied = badgeBase.Background(colorSuccess).Foreground(lipgloss.Color("0"))
	badgeSkipped = badgeBase.Background(colorMuted).Foreground(colorWhite)
	badgeNoop    = badgeBase.Background(colorPrimary).Foreground(colorWhite)
	badgeDrift   = badgeBase.Background(colorWarning).Foreground(lipgloss.Color("0"))
	badgeFailed  = badgeBase.Background(colorError).Foreground(colorWhite)
)

// Badge renders an outcome such as "applied" or "skipped" as a colored
// label. Plain output gets the upper-cased word in brackets.
func Badge(outcome string) string {
	text := strings.ToUpper(outcome)
	if !EnableColors() {
		return "[" + text + "]"
	}

	style := badgeNoop
	switch outcome {
	case "applied", "ok":
		style = badgeApplied
	case "skipped":
		style = badgeSkipped
	case "drift", "pending":
		style = badgeDrift
	case "failed":
		style = badgeFailed
	}
	return style.Render(text)
}
