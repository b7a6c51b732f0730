package models

import (
	"slices"
	"strings"
	"time"

	"github.com/rivo/uniseg"
)

// TitlePreviewLength is how many characters of the first message make up a
// derived title.
const TitlePreviewLength = 50

// Conversation is the list-view summary of a coaching conversation.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	FirstMessage string    `json:"first_message"`
	LastMessage  string    `json:"last_message,omitempty"`
	MessageCount int       `json:"message_count"`
	Duration     int       `json:"duration"` // seconds
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	UserID       string    `json:"user_id,omitempty"`
}

// DisplayTitle returns Title, or a title derived from FirstMessage.
func (c *Conversation) DisplayTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return DerivedTitle(c.FirstMessage)
}

// DerivedTitle builds a title from the opening message: whitespace is
// collapsed and the result is cut to TitlePreviewLength grapheme clusters.
func DerivedTitle(firstMessage string) string {
	text := strings.Join(strings.Fields(firstMessage), " ")
	if text == "" {
		return "Untitled conversation"
	}
	return TruncateGraphemes(text, TitlePreviewLength)
}

// TruncateGraphemes cuts s to at most limit user-perceived characters,
// appending "..." when anything was removed.
func TruncateGraphemes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if uniseg.GraphemeClusterCount(s) <= limit {
		return s
	}

	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for n := 0; n < limit && g.Next(); n++ {
		b.WriteString(g.Str())
	}
	return strings.TrimRight(b.String(), " ") + "..."
}

// SortByRecency returns a copy of convs ordered by UpdatedAt, newest first.
// Ties keep their relative order. The input slice is not modified.
func SortByRecency(convs []Conversation) []Conversation {
	sorted := slices.Clone(convs)
	slices.SortStableFunc(sorted, func(a, b Conversation) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return sorted
}

// IndexConversation returns the position of id in convs, or -1.
func IndexConversation(convs []Conversation, id string) int {
	return slices.IndexFunc(convs, func(c Conversation) bool { return c.ID == id })
}
