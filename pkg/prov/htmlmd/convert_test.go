package htmlmd

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selectionFrom(t *testing.T, html string) *goquery.Selection {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	return doc.Find("body")
}

func TestFromSelectionStripsScriptTags(t *testing.T) {
	sel := selectionFrom(t, `<p>hello</p><script>alert(1)</script>`)

	out := FromSelection(sel)
	assert.Contains(t, out, "hello")
	assert.NotContains(t, out, "alert")
	assert.NotContains(t, out, "<script>")
}

func TestFromSelectionStripsEventHandlerAttributes(t *testing.T) {
	sel := selectionFrom(t, `<p onclick="evil()">text</p>`)

	out := FromSelection(sel)
	assert.Contains(t, out, "text")
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "evil")
}

func TestFromSelectionRendersHeadingsAndParagraphs(t *testing.T) {
	sel := selectionFrom(t, `<h2>Title</h2><p>Body text.</p>`)

	out := FromSelection(sel)
	assert.Contains(t, out, "## Title")
	assert.Contains(t, out, "Body text.")
}

func TestFromSelectionRendersLinks(t *testing.T) {
	sel := selectionFrom(t, `<p>see <a href="https://example.com">here</a></p>`)

	out := FromSelection(sel)
	assert.Contains(t, out, "[here](https://example.com)")
}

func TestSnippetTruncatesWithEllipsis(t *testing.T) {
	assert.Equal(t, "hello", Snippet("hello", 10))
	assert.Equal(t, "hel...", Snippet("hello", 3))
}
