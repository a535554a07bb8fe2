package mdhtml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHeading(t *testing.T) {
	html, err := Render([]byte("# Hello World"))
	require.NoError(t, err)
	assert.Contains(t, string(html), `<h1 id="hello-world">Hello World</h1>`)
}

func TestRenderBulletList(t *testing.T) {
	html, err := Render([]byte("- function: 2\n- (missing role): 1\n"))
	require.NoError(t, err)
	assert.Contains(t, string(html), "<li>function: 2</li>")
}

func TestRenderStripsScriptTags(t *testing.T) {
	html, err := Render([]byte("<script>alert(1)</script>\n\nplain text"))
	require.NoError(t, err)
	assert.NotContains(t, string(html), "<script>")
	assert.Contains(t, string(html), "plain text")
}

func TestFromSummaryLines(t *testing.T) {
	summary := "Widgets 2.0: 3 objects\nfunction: 2\n(missing role): 1\n"

	src := FromSummaryLines(summary)
	assert.Contains(t, string(src), "# Widgets 2.0: 3 objects")
	assert.Contains(t, string(src), "- function: 2")
	assert.Contains(t, string(src), "- (missing role): 1")
}
