package digest

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/nhle/daily-digest/internal/model"
)

//go:embed templates/digest.html.tmpl
var digestTemplates embed.FS

var htmlTemplate = template.Must(
	template.New("digest").ParseFS(digestTemplates, "templates/*.tmpl"),
)

// BuildBody composes the plain text and HTML renderings of one digest from
// the same input snapshot. It is pure and deterministic: no I/O, no clock, no
// mutable globals; identical inputs produce byte-identical output. The HTML
// form escapes every interpolated value.
func BuildBody(items []string, weather string, headlines []string) (model.DigestDocument, error) {
	data := struct {
		Weather   string
		Headlines []string
		Items     []string
	}{
		Weather:   weather,
		Headlines: headlines,
		Items:     items,
	}

	var buf bytes.Buffer
	if err := htmlTemplate.ExecuteTemplate(&buf, "digest.html.tmpl", data); err != nil {
		return model.DigestDocument{}, fmt.Errorf("rendering digest html: %w", err)
	}

	return model.DigestDocument{
		Text: buildText(items, weather, headlines),
		HTML: buf.String(),
	}, nil
}

// buildText writes the fixed section order — header, Weather, Headlines,
// Items — with one bullet per entry and a blank line between sections.
func buildText(items []string, weather string, headlines []string) string {
	var b strings.Builder

	b.WriteString("Daily Summary\n\n")

	b.WriteString("Weather:\n")
	b.WriteString(weather)
	b.WriteString("\n\n")

	b.WriteString("Headlines:\n")
	for _, h := range headlines {
		b.WriteString("- ")
		b.WriteString(h)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("Items:\n")
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}

	return b.String()
}
