package pydoctor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveObjectType(t *testing.T) {
	assert.Equal(t, "module", deriveObjectType("widget"))
	assert.Equal(t, "class", deriveObjectType("widget.Widget"))
	assert.Equal(t, "function", deriveObjectType("widget.build"))
}

func TestLastSegment(t *testing.T) {
	assert.Equal(t, "Widget", lastSegment("widget.Widget"))
	assert.Equal(t, "widget", lastSegment("widget"))
}

func TestSearchIndexURL(t *testing.T) {
	assert.Equal(t, "https://example.com/searchindex.json", SearchIndexURL("https://example.com"))
	assert.Equal(t, "https://example.com/searchindex.json", SearchIndexURL("https://example.com/"))
}
