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

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)

	StyleSelected = lipgloss.NewStyle().
			Foreground(ColorSecondary).
			Bold(true)

	StyleBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSubtle).
			Padding(0, 1)
)

const logoASCII = `
                      _        _                            
 ___ _ __   ___  __ _| | _____| |_ _ __ ___  __ _ _ __ ___  
/ __| '_ \ / _ \/ _' | |/ / __| __| '__/ _ \/ _' | '_ ' _ \ 
\__ \ |_) |  __/ (_| |   <\__ \ |_| | |  __/ (_| | | | | | |
|___/ .__/ \___|\__,_|_|\_\___/\__|_|  \___|\__,_|_| |_| |_|
    |_|                                                     `

func Logo() string {
	return StyleHeader.Render(strings.Trim(logoASCII, "\n"))
}
