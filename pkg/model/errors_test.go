package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessorInavailabilityMessage(t *testing.T) {
	assert.Contains(t, (&ProcessorInavailability{Name: "ghost"}).Error(), `"ghost"`)
	assert.Contains(t, (&ProcessorInavailability{Source: "https://example.com"}).Error(), "example.com")
}

func TestInventoryInaccessibilityUnwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := &InventoryInaccessibility{Source: "https://example.com/objects.inv", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "objects.inv")
}

func TestDocumentationParseFailureUnwraps(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := &DocumentationParseFailure{URL: "https://example.com/page.html", Cause: cause}

	assert.ErrorIs(t, err, cause)
}

func TestContentExtractFailureMessage(t *testing.T) {
	err := &ContentExtractFailure{
		ProcessorName:     "sphinx",
		Source:            "https://example.com",
		MeaningfulResults: 1,
		RequestedObjects:  10,
	}

	assert.Contains(t, err.Error(), "1/10")
}

func TestInventoryObjectValidate(t *testing.T) {
	valid := InventoryObject{
		Name: "Foo", URI: "foo.html", InventoryType: InventorySphinxObjectsInv, LocationURL: "https://example.com",
	}
	assert.NoError(t, valid.Validate())

	missing := InventoryObject{URI: "foo.html", InventoryType: InventorySphinxObjectsInv, LocationURL: "https://example.com"}

	var invalidity *InventoryInvalidity
	assert.ErrorAs(t, missing.Validate(), &invalidity)
}

func TestContentDocumentMeaningful(t *testing.T) {
	assert.False(t, ContentDocument{}.Meaningful())
	assert.True(t, ContentDocument{Signature: "fn foo()"}.Meaningful())
	assert.True(t, ContentDocument{Description: "does a thing"}.Meaningful())
}
