package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emcd/librovore/pkg/model"
)

type stubInventory struct {
	name       string
	confidence float64
}

func (s *stubInventory) Name() string                      { return s.name }
func (s *stubInventory) Capabilities() model.Capabilities   { return model.Capabilities{ProcessorName: s.name} }
func (s *stubInventory) Detect(context.Context, string) (model.Detection, error) {
	return model.Detection{Processor: s.name, Kind: model.DetectionKindInventory, Confidence: s.confidence}, nil
}
func (s *stubInventory) FilterInventory(
	context.Context, string, map[string]any, model.InventoryQueryDetails,
) ([]model.InventoryObject, ProjectMetadata, error) {
	return nil, ProjectMetadata{}, nil
}

func TestRegistryRegisterInventoryDuplicatePanics(t *testing.T) {
	reg := New()
	reg.RegisterInventory(&stubInventory{name: "sphinx"})

	assert.Panics(t, func() { reg.RegisterInventory(&stubInventory{name: "sphinx"}) })
}

func TestRegistryInventoryProcessorUnknown(t *testing.T) {
	reg := New()

	_, err := reg.InventoryProcessor("ghost")
	require.Error(t, err)

	var inavailability *model.ProcessorInavailability
	assert.ErrorAs(t, err, &inavailability)
}

func TestRegistryInventoryNamesPreservesOrder(t *testing.T) {
	reg := New()
	reg.RegisterInventory(&stubInventory{name: "b"})
	reg.RegisterInventory(&stubInventory{name: "a"})

	assert.Equal(t, []string{"b", "a"}, reg.InventoryNames())
}

func TestDetermineInventoryOptimalPicksHighestConfidence(t *testing.T) {
	reg := New()
	reg.RegisterInventory(&stubInventory{name: "low", confidence: 0.2})
	reg.RegisterInventory(&stubInventory{name: "high", confidence: 0.8})

	cache := NewDetectionCache(0)

	best, err := DetermineInventoryOptimal(context.Background(), cache, reg, "https://example.com")
	require.NoError(t, err)
	require.True(t, best.IsPresent())

	detection, _ := best.Get()
	assert.Equal(t, "high", detection.Processor)
}

func TestDetermineInventoryOptimalNoneConfident(t *testing.T) {
	reg := New()
	reg.RegisterInventory(&stubInventory{name: "zero", confidence: 0})

	cache := NewDetectionCache(0)

	best, err := DetermineInventoryOptimal(context.Background(), cache, reg, "https://example.com")
	require.NoError(t, err)
	assert.False(t, best.IsPresent())
}

func TestDetectNamedUnknownKind(t *testing.T) {
	reg := New()

	_, err := DetectNamed(context.Background(), reg, model.DetectionKind("bogus"), "sphinx", "https://example.com")
	require.Error(t, err)
}

func TestDetectNamedDispatchesToInventory(t *testing.T) {
	reg := New()
	reg.RegisterInventory(&stubInventory{name: "sphinx", confidence: 0.6})

	detection, err := DetectNamed(context.Background(), reg, model.DetectionKindInventory, "sphinx", "https://example.com")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, detection.Confidence, 0.0001)
}
