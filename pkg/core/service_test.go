package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emcd/librovore/pkg/model"
	"github.com/emcd/librovore/pkg/registry"
)

type fakeInventory struct {
	name       string
	confidence float64
	objects    []model.InventoryObject
	meta       registry.ProjectMetadata
}

func (f *fakeInventory) Name() string { return f.name }

func (f *fakeInventory) Capabilities() model.Capabilities {
	return model.Capabilities{ProcessorName: f.name}
}

func (f *fakeInventory) Detect(context.Context, string) (model.Detection, error) {
	return model.Detection{Processor: f.name, Kind: model.DetectionKindInventory, Confidence: f.confidence}, nil
}

func (f *fakeInventory) FilterInventory(
	context.Context, string, map[string]any, model.InventoryQueryDetails,
) ([]model.InventoryObject, registry.ProjectMetadata, error) {
	return f.objects, f.meta, nil
}

type fakeStructure struct {
	name       string
	confidence float64
	docs       []model.ContentDocument
}

func (f *fakeStructure) Name() string { return f.name }

func (f *fakeStructure) Capabilities() model.Capabilities {
	return model.Capabilities{ProcessorName: f.name}
}

func (f *fakeStructure) Detect(context.Context, string) (model.Detection, error) {
	return model.Detection{Processor: f.name, Kind: model.DetectionKindStructure, Confidence: f.confidence}, nil
}

func (f *fakeStructure) ExtractContents(
	context.Context, string, []model.InventoryObject, string, int,
) ([]model.ContentDocument, error) {
	return f.docs, nil
}

func newTestService(inv *fakeInventory, str *fakeStructure) *Service {
	reg := registry.New()

	if inv != nil {
		reg.RegisterInventory(inv)
	}

	if str != nil {
		reg.RegisterStructure(str)
	}

	return New(reg, registry.NewDetectionCache(0), nil)
}

func TestDetectPicksHighestConfidence(t *testing.T) {
	svc := newTestService(
		&fakeInventory{name: "sphinx", confidence: 0.9},
		&fakeStructure{name: "sphinx", confidence: 0.4},
	)

	resp, err := svc.Detect(context.Background(), "https://example.com", "")
	require.NoError(t, err)
	require.NotNil(t, resp.DetectionBest)
	assert.Equal(t, "inventory", resp.DetectionBest.Kind)
	assert.InDelta(t, 0.9, resp.DetectionBest.Confidence, 0.0001)
}

func TestDetectNamedUnknownProcessor(t *testing.T) {
	svc := newTestService(nil, nil)

	_, err := svc.Detect(context.Background(), "https://example.com", "ghost")
	require.Error(t, err)

	var inavailability *model.ProcessorInavailability
	assert.ErrorAs(t, err, &inavailability)
}

func TestQueryInventoryDefaultsProjectVersion(t *testing.T) {
	inv := &fakeInventory{
		name:       "sphinx",
		confidence: 0.9,
		objects:    []model.InventoryObject{{Name: "Foo", URI: "foo.html"}},
	}
	svc := newTestService(inv, nil)

	resp, err := svc.QueryInventory(context.Background(), "https://example.com", QueryInventoryParams{
		Query:      "foo",
		Behaviors:  model.SearchBehaviors{MatchMode: model.MatchFuzzy, FuzzyThreshold: 10},
		ResultsMax: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", resp.Project)
	assert.Equal(t, "Unknown", resp.Version)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "Foo", resp.Documents[0].Name)
}

func TestQueryInventoryHonorsProjectMetadata(t *testing.T) {
	inv := &fakeInventory{
		name:       "sphinx",
		confidence: 0.9,
		objects:    []model.InventoryObject{{Name: "Foo", URI: "foo.html"}},
		meta:       registry.ProjectMetadata{Project: "Widgets", Version: "2.0"},
	}
	svc := newTestService(inv, nil)

	resp, err := svc.QueryInventory(context.Background(), "https://example.com", QueryInventoryParams{
		Query:      "foo",
		Behaviors:  model.SearchBehaviors{MatchMode: model.MatchFuzzy, FuzzyThreshold: 10},
		ResultsMax: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, "Widgets", resp.Project)
	assert.Equal(t, "2.0", resp.Version)
}

func TestQueryContentEmptyCandidatesSkipsStructureDetection(t *testing.T) {
	inv := &fakeInventory{
		name:       "sphinx",
		confidence: 0.9,
		objects:    []model.InventoryObject{{Name: "Foo", URI: "foo.html"}},
	}
	svc := newTestService(inv, nil)

	resp, err := svc.QueryContent(context.Background(), "https://example.com", QueryContentParams{
		Query:      "nonexistent",
		Behaviors:  model.SearchBehaviors{MatchMode: model.MatchExact},
		ResultsMax: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Documents)
	assert.Equal(t, 0, resp.SearchMetadata.ResultsCount)
}

func TestQueryContentExtractsMatches(t *testing.T) {
	inv := &fakeInventory{
		name:       "sphinx",
		confidence: 0.9,
		objects:    []model.InventoryObject{{Name: "Foo", URI: "foo.html"}},
	}
	str := &fakeStructure{
		name:       "sphinx",
		confidence: 0.9,
		docs: []model.ContentDocument{{
			Object:         model.InventoryObject{Name: "Foo"},
			DocumentationURL: "https://example.com/foo.html",
			RelevanceScore: 10,
		}},
	}
	svc := newTestService(inv, str)

	resp, err := svc.QueryContent(context.Background(), "https://example.com", QueryContentParams{
		Query:      "Foo",
		Behaviors:  model.SearchBehaviors{MatchMode: model.MatchExact},
		ResultsMax: 5,
	})
	require.NoError(t, err)
	require.Len(t, resp.Documents, 1)
	assert.Equal(t, "Foo", resp.Documents[0].Name)
}

func TestSummarizeInventoryGroupsByRole(t *testing.T) {
	inv := &fakeInventory{
		name:       "sphinx",
		confidence: 0.9,
		objects: []model.InventoryObject{
			{Name: "Foo", URI: "foo.html", Specifics: map[string]any{"role": "function"}},
			{Name: "Bar", URI: "bar.html", Specifics: map[string]any{"role": "function"}},
			{Name: "Baz", URI: "baz.html"},
		},
	}
	svc := newTestService(inv, nil)

	summary, err := svc.SummarizeInventory(context.Background(), "https://example.com", SummarizeInventoryParams{
		GroupBy:   "role",
		Behaviors: model.SearchBehaviors{MatchMode: model.MatchFuzzy, FuzzyThreshold: 0},
	})
	require.NoError(t, err)
	assert.Contains(t, summary, "3 objects")
	assert.Contains(t, summary, "function: 2")
	assert.Contains(t, summary, "(missing role): 1")
}

func TestSummarizeInventoryGroupsByArbitrarySpecificsField(t *testing.T) {
	inv := &fakeInventory{
		name:       "rustdoc",
		confidence: 0.9,
		objects: []model.InventoryObject{
			{Name: "Foo", URI: "foo.html", Specifics: map[string]any{"item_type": "struct"}},
			{Name: "Bar", URI: "bar.html", Specifics: map[string]any{"item_type": "fn"}},
		},
	}
	svc := newTestService(inv, nil)

	summary, err := svc.SummarizeInventory(context.Background(), "https://example.com", SummarizeInventoryParams{
		GroupBy:   "item_type",
		Behaviors: model.SearchBehaviors{MatchMode: model.MatchFuzzy, FuzzyThreshold: 0},
	})
	require.NoError(t, err)
	assert.Contains(t, summary, "struct: 1")
	assert.Contains(t, summary, "fn: 1")
}

func TestSummarizeInventoryGroupedTotalsSumToObjectsCountBeyondOldCap(t *testing.T) {
	objects := make([]model.InventoryObject, 0, 1500)
	for i := 0; i < 1500; i++ {
		objects = append(objects, model.InventoryObject{
			Name: "Obj", URI: "obj.html", Specifics: map[string]any{"role": "function"},
		})
	}

	inv := &fakeInventory{name: "sphinx", confidence: 0.9, objects: objects}
	svc := newTestService(inv, nil)

	summary, err := svc.SummarizeInventory(context.Background(), "https://example.com", SummarizeInventoryParams{
		GroupBy:   "role",
		Behaviors: model.SearchBehaviors{MatchMode: model.MatchFuzzy, FuzzyThreshold: 0},
	})
	require.NoError(t, err)
	assert.Contains(t, summary, "1500 objects")
	assert.Contains(t, summary, "function: 1500")
}

func TestSurveyProcessorsUnknownName(t *testing.T) {
	svc := newTestService(&fakeInventory{name: "sphinx"}, nil)

	_, err := svc.SurveyProcessors(t.Context(), "ghost")
	require.Error(t, err)

	var inavailability *model.ProcessorInavailability
	assert.ErrorAs(t, err, &inavailability)
}

func TestSurveyProcessorsReportsBothKinds(t *testing.T) {
	svc := newTestService(&fakeInventory{name: "sphinx"}, &fakeStructure{name: "sphinx"})

	resp, err := svc.SurveyProcessors(t.Context(), "")
	require.NoError(t, err)
	assert.Contains(t, resp.Processors, "sphinx:inventory")
	assert.Contains(t, resp.Processors, "sphinx:structure")
}
