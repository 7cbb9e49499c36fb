package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			MarginBottom(1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorText).
			Bold(true)

	StyleSuccess = lipgloss.NewStyle().
			Foreground(ColorSuccess)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)
)

const logoASCII = `
__   _____ (_) ___ _____      _(_)_ __
\ \ / / _ \| |/ __/ _ \ \ /\ / / | '_ \
 \ V / (_) | | (_|  __/\ V  V /| | | | |
  \_/ \___/|_|\___\___| \_/\_/ |_|_| |_|`

// Logo returns the voicewin ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
