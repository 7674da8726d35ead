package history

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Renderer serializes log entries to bytes.
type Renderer interface {
	Render(entries []Entry) ([]byte, error)
}

// RendererFor returns the renderer for a format name: "json", "markdown"
// or "text" (the default).
func RendererFor(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &TextRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown history format %q", format)
}

// JSONRenderer renders entries as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.MarshalIndent(entries, "", "  ")
}

// TextRenderer renders one "[time] text" line per entry.
type TextRenderer struct{}

func (r *TextRenderer) Render(entries []Entry) ([]byte, error) {
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "[%s] %s\n", e.Time.Format("2006-01-02 15:04:05"), e.Text)
	}
	return []byte(sb.String()), nil
}

// MarkdownRenderer renders entries as a Markdown conversation transcript.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(entries []Entry) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString("# Histórico do assistente\n\n")
	if len(entries) == 0 {
		sb.WriteString("_Nenhuma ação registrada._\n")
		return []byte(sb.String()), nil
	}

	sb.WriteString("| Hora | Origem | Mensagem |\n")
	sb.WriteString("|------|--------|----------|\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "| %s | %s | %s |\n",
			e.Time.Format("2006-01-02 15:04:05"),
			e.Kind(),
			strings.ReplaceAll(e.Text, "|", `\|`),
		)
	}
	return []byte(sb.String()), nil
}
