package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/guilhermegouw/coach/internal/models"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

// Printer writes styled command output.
type Printer struct {
	w      io.Writer
	styles Styles
	md     *MarkdownRenderer
	width  int
}

// NewPrinter creates a printer for w. Colors and width follow the terminal
// behind w; anything else gets plain output at DefaultWidth.
func NewPrinter(w io.Writer) *Printer {
	profile := termenv.NewOutput(w).Profile
	width := DefaultWidth
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 { //nolint:gosec // fd fits in int
			width = cols
		}
	}
	return newPrinter(w, profile, width)
}

func newPrinter(w io.Writer, profile termenv.Profile, width int) *Printer {
	styles := PlainStyles()
	if profile != termenv.Ascii {
		styles = NewStyles(CurrentTheme())
	}
	return &Printer{
		w:      w,
		styles: styles,
		md:     NewMarkdownRenderer(profile),
		width:  width,
	}
}

// Styles returns the printer's styles.
func (p *Printer) Styles() Styles {
	return p.styles
}

// Println writes a line.
func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.w, a...)
}

// Success writes a confirmation line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.w, p.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// Field writes an aligned "label: value" line.
func (p *Printer) Field(label, value string) {
	fmt.Fprintf(p.w, "%s %s\n", p.styles.Label.Render(fmt.Sprintf("%-10s", label+":")), value)
}

// Conversations writes one row per conversation: id, title, message count
// and age. Titles are cut to fit the width.
func (p *Printer) Conversations(convs []models.Conversation, now time.Time) {
	if len(convs) == 0 {
		fmt.Fprintln(p.w, p.styles.Muted.Render("No conversations yet."))
		return
	}

	idWidth := 0
	for _, c := range convs {
		idWidth = max(idWidth, ansi.StringWidth(c.ID))
	}

	for _, c := range convs {
		meta := fmt.Sprintf("%3d msgs  %s", c.MessageCount, RelativeTime(c.UpdatedAt, now))
		titleWidth := max(10, p.width-idWidth-ansi.StringWidth(meta)-4)
		title := ansi.Truncate(c.DisplayTitle(), titleWidth, "…")

		fmt.Fprintf(p.w, "%s  %s  %s\n",
			p.styles.ID.Render(pad(c.ID, idWidth)),
			pad(title, titleWidth),
			p.styles.Muted.Render(meta))
	}
}

// Conversation writes the header of an open conversation.
func (p *Printer) Conversation(c *models.Conversation, now time.Time) {
	if c == nil {
		return
	}
	fmt.Fprintln(p.w, p.styles.Title.Render(c.DisplayTitle()))

	parts := []string{c.ID, fmt.Sprintf("%d messages", c.MessageCount)}
	if c.Duration > 0 {
		parts = append(parts, FormatDuration(time.Duration(c.Duration)*time.Second))
	}
	if !c.UpdatedAt.IsZero() {
		parts = append(parts, "updated "+RelativeTime(c.UpdatedAt, now))
	}
	fmt.Fprintln(p.w, p.styles.Subtle.Render(strings.Join(parts, " · ")))
	fmt.Fprintln(p.w)
}

// Messages writes the transcript. Assistant replies are rendered as markdown.
func (p *Printer) Messages(msgs []models.Message) {
	for i, m := range msgs {
		if i > 0 {
			fmt.Fprintln(p.w)
		}
		fmt.Fprintln(p.w, p.roleLabel(m.Role))

		if m.Role != models.RoleAssistant {
			fmt.Fprintln(p.w, m.Content)
			continue
		}
		rendered, err := p.md.Render(m.Content, p.width)
		if err != nil {
			rendered = m.Content
		}
		fmt.Fprint(p.w, strings.TrimRight(rendered, "\n")+"\n")
	}
}

func (p *Printer) roleLabel(r models.Role) string {
	if r == models.RoleUser {
		return p.styles.User.Render("You")
	}
	return p.styles.Assistant.Render("Coach")
}

// Error writes an error line.
func (p *Printer) Error(msg string) {
	fmt.Fprintln(p.w, p.styles.Error.Render(msg))
}

// RelativeTime describes t relative to now.
func RelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}

// FormatDuration renders a conversation length such as "1h20m" or "45s".
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		h := int(d.Hours())
		m := int(d.Minutes()) - h*60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}

// pad right-pads s with spaces to width display cells.
func pad(s string, width int) string {
	if n := ansi.StringWidth(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
