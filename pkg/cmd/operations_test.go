package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emcd/librovore/pkg/model"
)

func TestParseFiltersSplitsKeyValue(t *testing.T) {
	flags := sharedFlags{filters: []string{"role=function", "domain=py"}}

	filters, err := flags.parseFilters()
	require.NoError(t, err)
	assert.Equal(t, "function", filters["role"])
	assert.Equal(t, "py", filters["domain"])
}

func TestParseFiltersRejectsMissingEquals(t *testing.T) {
	flags := sharedFlags{filters: []string{"justastring"}}

	_, err := flags.parseFilters()
	assert.Error(t, err)
}

func TestParseFiltersEmpty(t *testing.T) {
	flags := sharedFlags{}

	filters, err := flags.parseFilters()
	require.NoError(t, err)
	assert.Nil(t, filters)
}

func TestSharedFlagsBehaviors(t *testing.T) {
	flags := sharedFlags{matchMode: "fuzzy", fuzzyThreshold: 42}

	behaviors := flags.behaviors()
	assert.Equal(t, model.MatchFuzzy, behaviors.MatchMode)
	assert.Equal(t, 42, behaviors.FuzzyThreshold)
}
