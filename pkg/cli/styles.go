// Package cli provides terminal output styling shared by command-line
// tools.
package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for command output.
type Theme struct {
	Primary lipgloss.Color // main accent color
	Dim     lipgloss.Color // dimmed/help text color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Help  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Help:  lipgloss.NewStyle().Foreground(t.Dim),
	}
}

// Summary renders a title followed by aligned label/value rows. Commands
// use it for their result blocks:
//
//	Scene generated
//	  segments: 412
//	  duration: 2m20s
func (s Styles) Summary(title string, rows ...[2]string) string {
	width := 0
	for _, row := range rows {
		if len(row[0]) > width {
			width = len(row[0])
		}
	}
	var b strings.Builder
	b.WriteString(s.Title.Render(title))
	b.WriteByte('\n')
	for _, row := range rows {
		fmt.Fprintf(&b, "  %s %s\n",
			s.Label.Render(fmt.Sprintf("%-*s:", width, row[0])),
			row[1])
	}
	return b.String()
}
