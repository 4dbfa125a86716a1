package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Color palette for the configure form
var (
	ColorPrimary   = lipgloss.Color("#E11D48") // Rose - recording accent
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan

	ColorSuccess = lipgloss.Color("#22C55E")
	ColorError   = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")

	ColorText   = lipgloss.Color("#F8FAFC")
	ColorMuted  = lipgloss.Color("#94A3B8")
	ColorSubtle = lipgloss.Color("#64748B")
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

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleMuted = lipgloss.NewStyle().
			Foreground(ColorMuted)
)

const logoASCII = `
 _           _      _ _      _        _
| |__   ___ | |_ __| (_) ___| |_ __ _| |_ ___
| '_ \ / _ \| __/ _` + "`" + ` | |/ __| __/ _` + "`" + ` | __/ _ \
| | | | (_) | || (_| | | (__| || (_| | ||  __/
|_| |_|\___/ \__\__,_|_|\___|\__\__,_|\__\___|`

// Logo returns the hotdictate ASCII art
func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}

// Status renders a doctor line such as "✓ wtype  /usr/bin/wtype".
func Status(ok bool, name, detail string) string {
	mark := StyleSuccess.Render("✓")
	if !ok {
		mark = StyleError.Render("✗")
	}
	return mark + " " + StyleLabel.Render(name) + "  " + StyleMuted.Render(detail)
}
