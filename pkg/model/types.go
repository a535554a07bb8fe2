// Package model defines the value types shared across the cache proxy,
// processor registry, search engine, and orchestration layers: inventory
// objects, search results, content documents, detections, and the filter/
// behavior structs that parameterize the five orchestration operations.
package model

import "time"

// InventoryType tags which format produced an InventoryObject.
type InventoryType string

const (
	InventorySphinxObjectsInv InventoryType = "sphinx_objects_inv"
	InventoryPydoctor         InventoryType = "pydoctor"
	InventoryRustdoc          InventoryType = "rustdoc"
	InventoryMkDocs           InventoryType = "mkdocs"
)

// InventoryObject is the universal, format-agnostic representation of a
// single documented entity (module, class, function, trait, ...).
//
// Invariants: Name, URI, InventoryType, and LocationURL must be non-empty.
// Specifics is immutable after construction.
type InventoryObject struct {
	Specifics     map[string]any
	Name          string
	URI           string
	InventoryType InventoryType
	LocationURL   string
	DisplayName   string
}

// Validate reports whether the object satisfies its invariants.
func (o InventoryObject) Validate() error {
	if o.Name == "" {
		return &InventoryInvalidity{Source: o.LocationURL, Cause: errEmptyField("name")}
	}

	if o.URI == "" {
		return &InventoryInvalidity{Source: o.LocationURL, Cause: errEmptyField("uri")}
	}

	if o.InventoryType == "" {
		return &InventoryInvalidity{Source: o.LocationURL, Cause: errEmptyField("inventory_type")}
	}

	if o.LocationURL == "" {
		return &InventoryInvalidity{Source: o.LocationURL, Cause: errEmptyField("location_url")}
	}

	return nil
}

// SearchResult wraps an InventoryObject with a relevance score and the
// human-readable reasons that contributed to it.
type SearchResult struct {
	Object       InventoryObject
	Score        float64
	MatchReasons []string
}

// ContentDocument is an InventoryObject plus extracted documentation content.
type ContentDocument struct {
	ExtractionMetadata map[string]any
	Object             InventoryObject
	Signature          string
	Description        string
	ContentSnippet     string
	DocumentationURL   string
	RelevanceScore     float64
	MatchReasons       []string
}

// Meaningful reports whether any of signature/description/snippet carries content.
func (d ContentDocument) Meaningful() bool {
	return d.Signature != "" || d.Description != "" || d.ContentSnippet != ""
}

// DetectionKind distinguishes an InventoryDetection from a StructureDetection.
type DetectionKind string

const (
	DetectionKindInventory DetectionKind = "inventory"
	DetectionKindStructure DetectionKind = "structure"
)

// Detection is a processor's self-reported judgment of whether, and how
// well, it can handle a source.
type Detection struct {
	Timestamp  time.Time
	Metadata   map[string]any
	Processor  string
	Kind       DetectionKind
	Confidence float64
}

// MatchMode selects the name-matching strategy used by the search engine.
type MatchMode string

const (
	MatchExact MatchMode = "exact"
	MatchRegex MatchMode = "regex"
	MatchFuzzy MatchMode = "fuzzy"
)

// SearchBehaviors parameterizes the search engine's name-matching pass.
type SearchBehaviors struct {
	MatchMode      MatchMode
	FuzzyThreshold int
}

// DefaultSearchBehaviors mirrors the fuzzy-by-default behavior used by the
// original query_documentation entry point.
func DefaultSearchBehaviors() SearchBehaviors {
	return SearchBehaviors{MatchMode: MatchFuzzy, FuzzyThreshold: 50}
}

// InventoryQueryDetails is an ordinal flag controlling how much per-object
// work an inventory processor performs while filtering.
type InventoryQueryDetails int

const (
	DetailsName InventoryQueryDetails = iota
	DetailsSignature
	DetailsSummary
	DetailsDocumentation
)

// Capabilities describes a registered processor's filter surface and rough
// performance characteristics, as returned by survey-processors.
type Capabilities struct {
	ProcessorName     string             `json:"processor_name"`
	Version           string             `json:"version"`
	ResponseTimeTypic string             `json:"response_time_typical"`
	Notes             string             `json:"notes"`
	SupportedFilters  []FilterCapability `json:"supported_filters"`
	ResultsLimitMax   int                `json:"results_limit_max"`
}

// FilterCapability documents a single filter key a processor accepts.
type FilterCapability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

func errEmptyField(name string) error { return &emptyFieldError{field: name} }

type emptyFieldError struct{ field string }

func (e *emptyFieldError) Error() string { return "field must not be empty: " + e.field }
