// Package pydoctor implements the Pydoctor searchindex.json inventory
// processor and the accompanying HTML structure processor.
package pydoctor

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/emcd/librovore/pkg/cacheproxy"
	"github.com/emcd/librovore/pkg/model"
	"github.com/emcd/librovore/pkg/registry"
)

// ProcessorName is the registration name of the Pydoctor processors.
const ProcessorName = "pydoctor"

// SearchIndexURL derives the searchindex.json URL for a base source URL.
func SearchIndexURL(source string) string {
	return strings.TrimSuffix(source, "/") + "/searchindex.json"
}

// InventoryProcessor detects and filters Pydoctor searchindex.json inventories.
type InventoryProcessor struct {
	proxy *cacheproxy.Proxy
}

// NewInventoryProcessor constructs an InventoryProcessor backed by proxy.
func NewInventoryProcessor(proxy *cacheproxy.Proxy) *InventoryProcessor {
	return &InventoryProcessor{proxy: proxy}
}

func (p *InventoryProcessor) Name() string { return ProcessorName }

func (p *InventoryProcessor) Capabilities() model.Capabilities {
	return model.Capabilities{
		ProcessorName:     ProcessorName,
		Version:           "1.0",
		ResponseTimeTypic: "fast",
		Notes:             "Pydoctor searchindex.json inventory format.",
		ResultsLimitMax:   10000,
		SupportedFilters: []model.FilterCapability{
			{Name: "type", Description: "object type: module, class, or function", Type: "string"},
		},
	}
}

func (p *InventoryProcessor) Detect(ctx context.Context, source string) (model.Detection, error) {
	exists, err := p.proxy.Probe(ctx, SearchIndexURL(source))
	if err != nil {
		return model.Detection{}, err
	}

	confidence := 0.0
	if exists {
		confidence = 1.0
	}

	return model.Detection{
		Processor:  ProcessorName,
		Kind:       model.DetectionKindInventory,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}, nil
}

func (p *InventoryProcessor) FilterInventory(
	ctx context.Context, source string, filters map[string]any, details model.InventoryQueryDetails,
) ([]model.InventoryObject, registry.ProjectMetadata, error) {
	indexURL := SearchIndexURL(source)

	body, err := p.proxy.Retrieve(ctx, indexURL)
	if err != nil {
		return nil, registry.ProjectMetadata{}, &model.InventoryInaccessibility{Source: indexURL, Cause: err}
	}

	var raw struct {
		Version      string          `json:"searchIndexVersion"`
		FieldVectors [][]json.RawMessage `json:"fieldVectors"`
	}

	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, registry.ProjectMetadata{}, &model.InventoryInvalidity{Source: indexURL, Cause: err}
	}

	wantType, _ := filters["type"]

	objects := make([]model.InventoryObject, 0, len(raw.FieldVectors))

	for _, vector := range raw.FieldVectors {
		if len(vector) == 0 {
			continue
		}

		var field string
		if err := json.Unmarshal(vector[0], &field); err != nil {
			continue
		}

		if !strings.HasPrefix(field, "qname/") {
			continue
		}

		qname := strings.TrimPrefix(field, "qname/")
		if qname == "" {
			continue
		}

		objType := deriveObjectType(qname)

		if wantType != nil && !strings.EqualFold(objType, toString(wantType)) {
			continue
		}

		uri := strings.ReplaceAll(qname, ".", "/") + ".html"

		objects = append(objects, model.InventoryObject{
			Name:          lastSegment(qname),
			URI:           uri,
			InventoryType: model.InventoryPydoctor,
			LocationURL:   indexURL,
			DisplayName:   qname,
			Specifics: map[string]any{
				"qualified_name":     qname,
				"type":               objType,
				"searchindex_version": raw.Version,
			},
		})
	}

	return objects, registry.ProjectMetadata{}, nil
}

// deriveObjectType classifies a qualified name: no dot -> module; dot
// present and the final segment begins with an uppercase letter -> class;
// dot present and the leaf does not -> function.
func deriveObjectType(qname string) string {
	idx := strings.LastIndex(qname, ".")
	if idx < 0 {
		return "module"
	}

	leaf := qname[idx+1:]
	if leaf != "" && leaf[0] >= 'A' && leaf[0] <= 'Z' {
		return "class"
	}

	return "function"
}

func lastSegment(qname string) string {
	idx := strings.LastIndex(qname, ".")
	if idx < 0 {
		return qname
	}

	return qname[idx+1:]
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return ""
}
