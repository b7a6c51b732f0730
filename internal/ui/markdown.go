package ui

import (
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/muesli/termenv"
)

// MarkdownRenderer renders assistant replies, caching the renderer per width.
type MarkdownRenderer struct {
	renderer    *glamour.TermRenderer
	profile     termenv.Profile
	cachedWidth int
	mu          sync.RWMutex
}

// NewMarkdownRenderer creates a renderer for the given color profile.
// termenv.Ascii produces uncolored output.
func NewMarkdownRenderer(profile termenv.Profile) *MarkdownRenderer {
	return &MarkdownRenderer{profile: profile}
}

// Render renders markdown content. On failure it returns content unchanged
// together with the error.
func (m *MarkdownRenderer) Render(content string, width int) (string, error) {
	if content == "" {
		return "", nil
	}

	renderer, err := m.getRenderer(width)
	if err != nil {
		return content, err
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content, err
	}
	return rendered, nil
}

func (m *MarkdownRenderer) getRenderer(width int) (*glamour.TermRenderer, error) {
	m.mu.RLock()
	if m.renderer != nil && m.cachedWidth == width {
		defer m.mu.RUnlock()
		return m.renderer, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.renderer != nil && m.cachedWidth == width {
		return m.renderer, nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(m.buildStyle()),
		glamour.WithWordWrap(width),
		glamour.WithEmoji(),
		glamour.WithColorProfile(m.profile),
	)
	if err != nil {
		return nil, err
	}

	m.renderer = renderer
	m.cachedWidth = width
	return renderer, nil
}

// buildStyle matches the glamour dark style to the CLI theme.
func (m *MarkdownRenderer) buildStyle() ansi.StyleConfig {
	if m.profile == termenv.Ascii {
		return glamourstyles.ASCIIStyleConfig
	}

	t := CurrentTheme()
	style := glamourstyles.DarkStyleConfig

	primary := Hex(t.Primary)
	secondary := Hex(t.Secondary)
	accent := Hex(t.Accent)
	muted := Hex(t.FgMuted)
	subtle := Hex(t.FgSubtle)
	base := Hex(t.FgBase)

	style.H1.Color = stringPtr(accent)
	style.H1.Bold = boolPtr(true)
	style.H1.Prefix = ""
	style.H1.Suffix = ""
	style.H2.Color = stringPtr(primary)
	style.H2.Bold = boolPtr(true)
	style.H2.Prefix = ""
	style.H3.Color = stringPtr(secondary)
	style.H3.Prefix = ""

	style.Code.Color = stringPtr(secondary)
	style.CodeBlock.Chroma.Text.Color = stringPtr(base)
	style.CodeBlock.Chroma.Keyword.Color = stringPtr(primary)
	style.CodeBlock.Chroma.Comment.Color = stringPtr(muted)

	style.Link.Color = stringPtr(primary)
	style.Link.Underline = boolPtr(true)
	style.LinkText.Color = stringPtr(primary)

	style.Item.BlockPrefix = "  "
	style.Enumeration.BlockPrefix = "  "

	style.BlockQuote.Color = stringPtr(muted)
	style.BlockQuote.Italic = boolPtr(true)
	style.HorizontalRule.Color = stringPtr(subtle)

	return style
}

func stringPtr(s string) *string { return &s }
func boolPtr(b bool) *bool       { return &b }
