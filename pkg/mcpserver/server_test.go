package mcpserver

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emcd/librovore/pkg/model"
)

func TestClassifyKnownErrorTypes(t *testing.T) {
	cases := []struct {
		err      error
		wantType string
	}{
		{&model.ProcessorInavailability{Name: "ghost"}, "processor_inavailability"},
		{&model.InventoryInaccessibility{Source: "x"}, "inventory_inaccessibility"},
		{&model.InventoryURLNoSupport{URL: "x"}, "inventory_url_invalidity"},
		{&model.StructureIncompatibility{}, "structure_incompatibility"},
		{&model.URLImpermissibility{}, "url_impermissibility"},
		{&model.InventoryFilterInvalidity{Message: "bad regex"}, "inventory_filter_invalidity"},
	}

	for _, c := range cases {
		errType, suggestion := classify(c.err)
		assert.Equal(t, c.wantType, errType)
		assert.NotEmpty(t, suggestion)
	}
}

func TestClassifyUnknownErrorDefaultsToInternal(t *testing.T) {
	errType, _ := classify(assertionError("boom"))
	assert.Equal(t, "internal_error", errType)
}

func TestClassifyWrappedErrorStillMatches(t *testing.T) {
	wrapped := fmt.Errorf("querying inventory: %w", &model.InventoryInaccessibility{Source: "x"})

	errType, suggestion := classify(wrapped)
	assert.Equal(t, "inventory_inaccessibility", errType)
	assert.NotEmpty(t, suggestion)
}

type assertionError string

func (e assertionError) Error() string { return string(e) }
