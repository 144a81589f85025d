package catalog

import (
	"bytes"

	"github.com/yuin/goldmark"
)

var markdown = goldmark.New()

// RenderMarkdown converts readme markdown to HTML. Empty input renders
// to an empty document.
func RenderMarkdown(source string) (string, error) {
	if source == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
