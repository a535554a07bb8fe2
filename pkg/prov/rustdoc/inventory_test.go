package rustdoc

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const allItemsFixture = `
<!DOCTYPE html>
<html>
<head><meta name="generator" content="rustdoc"></head>
<body>
<h1 class="fqn">List of all items in crate widget</h1>
<h2 id="structs">Structs</h2>
<ul class="all-items">
  <li><a href="struct.Widget.html">Widget</a></li>
  <li><a href="inner/struct.Gadget.html">inner::Gadget</a></li>
</ul>
<h2 id="functions">Functions</h2>
<ul class="all-items">
  <li><a href="fn.build.html">build</a></li>
</ul>
</body>
</html>`

func mustParse(t *testing.T, html string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	return doc
}

func TestRoleForKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "module", roleFor("mod"))
	assert.Equal(t, "type", roleFor("struct"))
	assert.Equal(t, "function", roleFor("fn"))
	assert.Equal(t, "method", roleFor("method"))
}

func TestParseAllItems(t *testing.T) {
	doc := mustParse(t, allItemsFixture)

	crate, items := parseAllItems(doc, "")
	assert.Equal(t, "widget", crate)
	require.Len(t, items, 3)

	assert.Equal(t, "struct", items[0].ItemType)
	assert.Equal(t, "Widget", items[0].Name)
	assert.Equal(t, "widget", items[0].Path)

	assert.Equal(t, "Gadget", items[1].Name)
	assert.Equal(t, "inner", items[1].Path)

	assert.Equal(t, "function", items[2].ItemType)
	assert.Equal(t, "build", items[2].Name)
}

func TestExtractCrateFromFQN(t *testing.T) {
	assert.Equal(t, "widget", extractCrateFromFQN("List of all items in crate widget"))
	assert.Equal(t, "fallback text", extractCrateFromFQN("fallback text"))
}

func TestSplitPath(t *testing.T) {
	path, name := splitPath("inner::deep::Thing", "crate")
	assert.Equal(t, "inner::deep", path)
	assert.Equal(t, "Thing", name)

	path, name = splitPath("Thing", "crate")
	assert.Equal(t, "crate", path)
	assert.Equal(t, "Thing", name)
}

func TestHasRustdocMarkerByGenerator(t *testing.T) {
	doc := mustParse(t, allItemsFixture)
	assert.True(t, hasRustdocMarker(doc))
}

func TestHasRustdocMarkerAbsent(t *testing.T) {
	doc := mustParse(t, `<html><head></head><body><p>nothing here</p></body></html>`)
	assert.False(t, hasRustdocMarker(doc))
}

func TestInventoryConfidenceTiers(t *testing.T) {
	assert.Equal(t, 0.0, inventoryConfidence(0, 0))
	assert.InDelta(t, 0.7, inventoryConfidence(5, 5), 0.0001)
	assert.InDelta(t, 0.8, inventoryConfidence(10, 10), 0.0001)
	assert.InDelta(t, 0.9, inventoryConfidence(50, 50), 0.0001)
}

func TestInventoryConfidenceScalesWithRatio(t *testing.T) {
	assert.InDelta(t, 0.4, inventoryConfidence(25, 50), 0.0001)
}

func TestAllItemsURLs(t *testing.T) {
	assert.Equal(t, "https://docs.rs/widget/all.html", AllItemsURL("https://docs.rs/widget"))
	assert.Equal(t, "https://docs.rs/widget/all.html", AllItemsURL("https://docs.rs/widget/"))
	assert.Equal(t, "https://docs.rs/widget/std/all.html", AllItemsStdFallbackURL("https://docs.rs/widget"))
}
