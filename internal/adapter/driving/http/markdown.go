package httphandler

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	mdRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

	commentSanitizer = bluemonday.UGCPolicy()
)

// RenderMarkdown converts comment text to sanitized HTML. Empty input gives
// empty output.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return commentSanitizer.Sanitize(src)
	}
	return commentSanitizer.Sanitize(buf.String())
}
