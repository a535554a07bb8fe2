package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emcd/librovore/pkg/model"
)

func objectNamed(name string) model.InventoryObject {
	return model.InventoryObject{
		Name:          name,
		URI:           name + ".html",
		InventoryType: model.InventorySphinxObjectsInv,
		LocationURL:   "https://example.com/objects.inv",
	}
}

func TestFilterByNameExact(t *testing.T) {
	objects := []model.InventoryObject{objectNamed("Foo"), objectNamed("Bar")}

	results, err := FilterByName(objects, "foo", model.SearchBehaviors{MatchMode: model.MatchExact})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Foo", results[0].Object.Name)
	assert.InDelta(t, 1.0, results[0].Score, 0.0001)
	assert.Equal(t, []string{"exact name"}, results[0].MatchReasons)
}

func TestFilterByNameExactEmptyQuery(t *testing.T) {
	objects := []model.InventoryObject{objectNamed("Foo")}

	results, err := FilterByName(objects, "", model.SearchBehaviors{MatchMode: model.MatchExact})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFilterByNameRegex(t *testing.T) {
	objects := []model.InventoryObject{objectNamed("DataObject"), objectNamed("OtherThing")}

	results, err := FilterByName(objects, "^Data", model.SearchBehaviors{MatchMode: model.MatchRegex})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "DataObject", results[0].Object.Name)
}

func TestFilterByNameRegexInvalid(t *testing.T) {
	objects := []model.InventoryObject{objectNamed("Foo")}

	_, err := FilterByName(objects, "(unclosed", model.SearchBehaviors{MatchMode: model.MatchRegex})
	require.Error(t, err)

	var invalidity *model.InventoryFilterInvalidity
	assert.ErrorAs(t, err, &invalidity)
}

func TestFilterByNameFuzzyEmptyQuery(t *testing.T) {
	objects := []model.InventoryObject{objectNamed("Foo"), objectNamed("Bar")}

	results, err := FilterByName(objects, "", model.SearchBehaviors{MatchMode: model.MatchFuzzy, FuzzyThreshold: 50})
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, r := range results {
		assert.InDelta(t, 1.0, r.Score, 0.0001)
	}
}

func TestFilterByNameFuzzyThresholdZeroReturnsAll(t *testing.T) {
	objects := []model.InventoryObject{objectNamed("DataObj"), objectNamed("Zzzzzz")}

	results, err := FilterByName(objects, "DataObj", model.SearchBehaviors{MatchMode: model.MatchFuzzy, FuzzyThreshold: 0})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestFilterByNameFuzzyThresholdHundredOnlyExact(t *testing.T) {
	objects := []model.InventoryObject{objectNamed("DataObj"), objectNamed("DataObjX")}

	results, err := FilterByName(objects, "DataObj", model.SearchBehaviors{MatchMode: model.MatchFuzzy, FuzzyThreshold: 100})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "DataObj", results[0].Object.Name)
}

func TestFilterByNameFuzzyOrdering(t *testing.T) {
	objects := []model.InventoryObject{objectNamed("DataObjX"), objectNamed("DataObj")}

	results, err := FilterByName(objects, "DataObj", model.SearchBehaviors{MatchMode: model.MatchFuzzy, FuzzyThreshold: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "DataObj", results[0].Object.Name)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestSimilarityRatioCaseInsensitive(t *testing.T) {
	assert.InDelta(t, 100.0, similarityRatio("DataObj", "dataobj"), 0.0001)
}

func TestLevenshteinDistance(t *testing.T) {
	assert.Equal(t, 0, levenshteinDistance("abc", "abc"))
	assert.Equal(t, 1, levenshteinDistance("abc", "abd"))
	assert.Equal(t, 3, levenshteinDistance("", "abc"))
}
