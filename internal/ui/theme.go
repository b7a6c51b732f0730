// Package ui renders stores' state for the terminal.
package ui

import (
	"image/color"
	"sync"

	"github.com/lucasb-eyer/go-colorful"
)

// Theme is the CLI palette.
type Theme struct {
	Name   string
	IsDark bool

	Primary   color.Color
	Secondary color.Color
	Accent    color.Color

	BgBase color.Color

	FgBase   color.Color
	FgMuted  color.Color
	FgSubtle color.Color

	Success color.Color
	Error   color.Color
	Warning color.Color
}

var (
	currentTheme *Theme
	themeMu      sync.RWMutex
)

// NewDefaultTheme creates the default dark theme.
func NewDefaultTheme() *Theme {
	t := &Theme{
		Name:   "default",
		IsDark: true,

		Primary:   ParseHex("#61afef"), // Soft blue
		Secondary: ParseHex("#56b6c2"), // Cyan
		Accent:    ParseHex("#c678dd"), // Purple

		BgBase: ParseHex("#1e1e1e"),

		FgBase:  ParseHex("#abb2bf"),
		FgMuted: ParseHex("#7f848e"),

		Success: ParseHex("#98c379"),
		Error:   ParseHex("#e06c75"),
		Warning: ParseHex("#e5c07b"),
	}
	t.FgSubtle = Blend(t.FgMuted, t.BgBase, 0.35)
	return t
}

// CurrentTheme returns the active theme.
func CurrentTheme() *Theme {
	themeMu.RLock()
	t := currentTheme
	themeMu.RUnlock()
	if t != nil {
		return t
	}

	themeMu.Lock()
	defer themeMu.Unlock()
	if currentTheme == nil {
		currentTheme = NewDefaultTheme()
	}
	return currentTheme
}

// SetTheme replaces the active theme.
func SetTheme(t *Theme) {
	themeMu.Lock()
	currentTheme = t
	themeMu.Unlock()
}

// ParseHex parses "#rrggbb". Invalid input yields black.
func ParseHex(hex string) color.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{}
	}
	return c
}

// Blend mixes a toward b by t in [0,1], in Lab space.
func Blend(a, b color.Color, t float64) color.Color {
	ca, ok := colorful.MakeColor(a)
	if !ok {
		return b
	}
	cb, ok := colorful.MakeColor(b)
	if !ok {
		return a
	}
	return ca.BlendLab(cb, t).Clamped()
}

// Hex formats c as "#rrggbb".
func Hex(c color.Color) string {
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return "#000000"
	}
	return cc.Hex()
}
