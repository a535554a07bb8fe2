package sphinx

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildObjectsInv(t *testing.T, project, version string, lines []string) []byte {
	t.Helper()

	var buf bytes.Buffer

	buf.WriteString("# Sphinx inventory version 2\n")
	buf.WriteString("# Project: " + project + "\n")
	buf.WriteString("# Version: " + version + "\n")
	buf.WriteString("# The remainder of this file is compressed using zlib.\n")

	var body bytes.Buffer

	zw := zlib.NewWriter(&body)
	for _, line := range lines {
		_, err := zw.Write([]byte(line + "\n"))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	buf.Write(body.Bytes())

	return buf.Bytes()
}

func TestParseObjectsInv(t *testing.T) {
	data := buildObjectsInv(t, "Widgets", "2.0", []string{
		"widget.Widget py:class 1 api/$.html -",
		"widget.build py:function 1 api/build.html Build a widget",
	})

	hdr, records, err := ParseObjectsInv(data)
	require.NoError(t, err)
	assert.Equal(t, "Widgets", hdr.Project)
	assert.Equal(t, "2.0", hdr.Version)
	require.Len(t, records, 2)

	assert.Equal(t, "widget.Widget", records[0].Name)
	assert.Equal(t, "py", records[0].Domain)
	assert.Equal(t, "class", records[0].Role)
	assert.Equal(t, "api/widget.Widget.html", records[0].URI)
	assert.Equal(t, "-", records[0].DispName)

	assert.Equal(t, "Build a widget", records[1].DispName)
}

func TestToInventoryObjectFallsBackDisplayName(t *testing.T) {
	rec := record{Name: "widget.Widget", Domain: "py", Role: "class", URI: "api/widget.html", DispName: "-"}

	obj := rec.toInventoryObject("https://example.com/objects.inv")
	assert.Equal(t, "widget.Widget", obj.DisplayName)
	assert.Equal(t, "py", obj.Specifics["domain"])
}

func TestMatchesFiltersDomainAndRole(t *testing.T) {
	rec := record{Name: "Widget", Domain: "py", Role: "class", Priority: 1}

	assert.True(t, matchesFilters(rec, map[string]any{"domain": "py"}))
	assert.False(t, matchesFilters(rec, map[string]any{"domain": "std"}))
	assert.True(t, matchesFilters(rec, map[string]any{"role": "class", "domain": "py"}))
}

func TestInventoryURL(t *testing.T) {
	assert.Equal(t, "https://example.com/objects.inv", InventoryURL("https://example.com"))
	assert.Equal(t, "https://example.com/objects.inv", InventoryURL("https://example.com/"))
}
