package ui

import (
	"charm.land/lipgloss/v2"
)

// Styles are the lipgloss styles used by command output.
type Styles struct {
	Title     lipgloss.Style
	Label     lipgloss.Style
	Muted     lipgloss.Style
	Subtle    lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	User      lipgloss.Style
	Assistant lipgloss.Style
	ID        lipgloss.Style
}

// NewStyles builds styles from t.
func NewStyles(t *Theme) Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Label:     lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		Muted:     lipgloss.NewStyle().Foreground(t.FgMuted),
		Subtle:    lipgloss.NewStyle().Foreground(t.FgSubtle),
		Success:   lipgloss.NewStyle().Foreground(t.Success),
		Error:     lipgloss.NewStyle().Foreground(t.Error).Bold(true),
		Warning:   lipgloss.NewStyle().Foreground(t.Warning),
		User:      lipgloss.NewStyle().Foreground(t.Secondary).Bold(true),
		Assistant: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		ID:        lipgloss.NewStyle().Foreground(t.FgSubtle),
	}
}

// PlainStyles renders text unchanged, for output that is not a terminal.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Title:     plain,
		Label:     plain,
		Muted:     plain,
		Subtle:    plain,
		Success:   plain,
		Error:     plain,
		Warning:   plain,
		User:      plain,
		Assistant: plain,
		ID:        plain,
	}
}
