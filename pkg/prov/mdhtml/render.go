// Package mdhtml renders Markdown source to sanitized HTML, the inverse of
// pkg/prov/htmlmd, for the ambient CLI surface's human-facing summary
// output rather than anything the core orchestration operations return.
package mdhtml

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var renderer = goldmark.New(
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithExtensions(extension.GFM),
)

var sanitizePolicy = bluemonday.UGCPolicy()

// Render converts Markdown source to sanitized HTML. Output is sanitized to
// strip anything beyond the structural/inline markup goldmark itself emits,
// since src may ultimately trace back to untrusted documentation content.
func Render(src []byte) ([]byte, error) {
	var buf bytes.Buffer

	if err := renderer.Convert(src, &buf); err != nil {
		return nil, fmt.Errorf("rendering markdown to HTML: %w", err)
	}

	return sanitizePolicy.SanitizeBytes(buf.Bytes()), nil
}

// FromSummaryLines formats a summarize-inventory-style plain-text summary
// (a header line followed by zero or more "key: value" count lines) as
// Markdown source: the header becomes an H1, subsequent lines become a
// bullet list.
func FromSummaryLines(summary string) []byte {
	lines := strings.Split(strings.TrimRight(summary, "\n"), "\n")
	if len(lines) == 0 {
		return nil
	}

	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n", lines[0])

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}

		fmt.Fprintf(&buf, "- %s\n", line)
	}

	return buf.Bytes()
}
