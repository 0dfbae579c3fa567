package render

import (
	"strings"

	"github.com/sproutai/sprout/internal/models"
)

// Markdown renders markdown content for terminal display.
func Markdown(content string, opts Options) (string, error) {
	renderer, err := globalPool.get(opts)
	if err != nil {
		return "", err
	}
	defer globalPool.put(opts, renderer)

	return renderer.Render(content)
}

// MarkdownWithWidth renders with default options at the given width.
func MarkdownWithWidth(content string, width int) (string, error) {
	return Markdown(content, DefaultOptions().WithWidth(width))
}

// Reply renders an assistant reply, falling back to the raw text when
// rendering fails. Glamour's trailing newlines are trimmed.
func Reply(content string, opts Options) string {
	rendered, err := Markdown(content, opts)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

// StripCursor removes the streaming cursor marker from a partial reply.
func StripCursor(text string) string {
	return strings.TrimSuffix(text, models.CursorMarker)
}
