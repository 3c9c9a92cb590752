package render

import (
	"strings"

	"github.com/diogo/docchat/internal/models"
)

// Markdown renders markdown content for terminal display using a pooled renderer.
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

// Transcript formats a conversation as markdown, one section per message. User
// turns that carried a document are annotated with its label.
func Transcript(messages []models.Message) string {
	var sb strings.Builder
	for i, msg := range messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		switch msg.Role {
		case models.RoleUser:
			sb.WriteString("**You**")
			if msg.HasContext() {
				sb.WriteString(" _(")
				sb.WriteString(msg.ContextLabel)
				sb.WriteString(")_")
			}
		default:
			sb.WriteString("**Assistant**")
		}
		sb.WriteString("\n\n")
		sb.WriteString(strings.TrimSpace(msg.Text))
	}
	return sb.String()
}
