// Package registry implements the processor registry and detection cache
// described in the processor-dispatch component: insertion-ordered maps of
// named inventory/structure processors, and a confidence-ranked, per-source
// TTL cache of detection results.
package registry

import (
	"context"

	"github.com/emcd/librovore/pkg/model"
)

// InventoryProcessor understands a particular inventory format well enough
// to detect whether a source carries it and to filter its objects.
type InventoryProcessor interface {
	Name() string
	Capabilities() model.Capabilities
	Detect(ctx context.Context, source string) (model.Detection, error)
	FilterInventory(ctx context.Context, source string, filters map[string]any, details model.InventoryQueryDetails) ([]model.InventoryObject, ProjectMetadata, error)
}

// StructureProcessor understands a particular renderer's HTML well enough
// to extract signature/description/examples for individual objects.
type StructureProcessor interface {
	Name() string
	Capabilities() model.Capabilities
	Detect(ctx context.Context, source string) (model.Detection, error)
	ExtractContents(ctx context.Context, source string, objects []model.InventoryObject, query string, resultsMax int) ([]model.ContentDocument, error)
}

// ProjectMetadata carries the project/version attribution an inventory
// processor attaches to the objects it produces, when the format provides it.
type ProjectMetadata struct {
	Project string
	Version string
}

// Registry holds the process-wide, insertion-ordered sets of registered
// inventory and structure processors. It is frozen (read-only) after
// startup; no method removes an entry.
type Registry struct {
	inventory     map[string]InventoryProcessor
	structure     map[string]StructureProcessor
	inventoryNames []string
	structureNames []string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		inventory: make(map[string]InventoryProcessor),
		structure: make(map[string]StructureProcessor),
	}
}

// RegisterInventory adds an inventory processor under its own name. Panics on
// a duplicate name, since registration is a startup-time programmer error.
func (r *Registry) RegisterInventory(p InventoryProcessor) {
	name := p.Name()
	if _, exists := r.inventory[name]; exists {
		panic("registry: duplicate inventory processor name: " + name)
	}

	r.inventory[name] = p
	r.inventoryNames = append(r.inventoryNames, name)
}

// RegisterStructure adds a structure processor under its own name.
func (r *Registry) RegisterStructure(p StructureProcessor) {
	name := p.Name()
	if _, exists := r.structure[name]; exists {
		panic("registry: duplicate structure processor name: " + name)
	}

	r.structure[name] = p
	r.structureNames = append(r.structureNames, name)
}

// InventoryProcessor returns the named inventory processor, or
// model.ProcessorInavailability if unknown.
func (r *Registry) InventoryProcessor(name string) (InventoryProcessor, error) {
	p, ok := r.inventory[name]
	if !ok {
		return nil, &model.ProcessorInavailability{Name: name}
	}

	return p, nil
}

// StructureProcessorNamed returns the named structure processor, or
// model.ProcessorInavailability if unknown.
func (r *Registry) StructureProcessorNamed(name string) (StructureProcessor, error) {
	p, ok := r.structure[name]
	if !ok {
		return nil, &model.ProcessorInavailability{Name: name}
	}

	return p, nil
}

// InventoryNames returns registered inventory processor names in
// registration order.
func (r *Registry) InventoryNames() []string {
	return append([]string(nil), r.inventoryNames...)
}

// StructureNames returns registered structure processor names in
// registration order.
func (r *Registry) StructureNames() []string {
	return append([]string(nil), r.structureNames...)
}

// AllInventory returns the full inventory-processor map for enumeration
// (survey-processors); callers must not mutate it.
func (r *Registry) AllInventory() map[string]InventoryProcessor { return r.inventory }

// AllStructure returns the full structure-processor map for enumeration.
func (r *Registry) AllStructure() map[string]StructureProcessor { return r.structure }
