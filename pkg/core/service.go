// Package core implements the five orchestration operations that compose
// the cache proxy, processor registry, and search engine into the public
// surface shared by the CLI and the MCP tool server: detect, query-inventory,
// query-content, summarize-inventory, and survey-processors.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/emcd/librovore/pkg/model"
	"github.com/emcd/librovore/pkg/registry"
	"github.com/emcd/librovore/pkg/search"
)

// Service wires the registry, its detection cache, and the cache proxy into
// the five public operations. A Service is safe for concurrent use; all of
// its dependencies are themselves concurrency-safe.
type Service struct {
	Registry  *registry.Registry
	Detection *registry.DetectionCache
	Logger    *slog.Logger
}

// New constructs a Service. If logger is nil, slog.Default() is used.
func New(reg *registry.Registry, detection *registry.DetectionCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{Registry: reg, Detection: detection, Logger: logger}
}

// DetectionEntry is one processor's self-reported detection, as reported by
// the detect operation.
type DetectionEntry struct {
	Processor  string  `json:"processor"`
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
}

// DetectionResponse is the detect operation's return shape.
type DetectionResponse struct {
	DetectionBest  *DetectionEntry  `json:"detection_best"`
	Source         string           `json:"source"`
	Detections     []DetectionEntry `json:"detections"`
	TimeDetectionMs int64           `json:"time_detection_ms"`
}

// Detect attempts both inventory and structure detection against source,
// optionally restricted to a single named processor, and reports the
// highest-confidence result across both kinds (ties: inventory before
// structure, then registration order).
func (s *Service) Detect(ctx context.Context, source, processorName string) (DetectionResponse, error) {
	start := time.Now()
	logger := s.requestLogger(ctx, "detect", source)

	var entries []DetectionEntry

	if processorName != "" {
		invDet, invErr := s.detectNamedIfRegistered(ctx, model.DetectionKindInventory, processorName, source)
		structDet, structErr := s.detectNamedIfRegistered(ctx, model.DetectionKindStructure, processorName, source)

		if invErr != nil && structErr != nil {
			return DetectionResponse{}, &model.ProcessorInavailability{Name: processorName}
		}

		if invErr == nil {
			entries = append(entries, toEntry(invDet))
		}

		if structErr == nil {
			entries = append(entries, toEntry(structDet))
		}
	} else {
		for _, name := range s.Registry.InventoryNames() {
			p, _ := s.Registry.InventoryProcessor(name)

			d, err := p.Detect(ctx, source)
			if err != nil {
				logger.DebugContext(ctx, "inventory detection failed", "processor", name, "error", err)
				continue
			}

			entries = append(entries, toEntry(d))
		}

		for _, name := range s.Registry.StructureNames() {
			p, _ := s.Registry.StructureProcessorNamed(name)

			d, err := p.Detect(ctx, source)
			if err != nil {
				logger.DebugContext(ctx, "structure detection failed", "processor", name, "error", err)
				continue
			}

			entries = append(entries, toEntry(d))
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Confidence != entries[j].Confidence {
			return entries[i].Confidence > entries[j].Confidence
		}

		if entries[i].Kind != entries[j].Kind {
			return entries[i].Kind == "inventory"
		}

		return false
	})

	var best *DetectionEntry

	for i := range entries {
		if entries[i].Confidence > 0 {
			best = &entries[i]
			break
		}
	}

	elapsed := time.Since(start).Milliseconds()
	logger.DebugContext(ctx, "operation completed", "time_detection_ms", elapsed)

	return DetectionResponse{
		Source:          source,
		Detections:      entries,
		DetectionBest:   best,
		TimeDetectionMs: elapsed,
	}, nil
}

func (s *Service) detectNamedIfRegistered(
	ctx context.Context, kind model.DetectionKind, name, source string,
) (model.Detection, error) {
	return registry.DetectNamed(ctx, s.Registry, kind, name, source)
}

func toEntry(d model.Detection) DetectionEntry {
	return DetectionEntry{Processor: d.Processor, Kind: string(d.Kind), Confidence: d.Confidence}
}

// requestLogger tags logger with a fresh correlation id for one operation
// call, so every log line it emits (and every detection-failure line logged
// beneath it) can be grepped back to the single request that produced it.
func (s *Service) requestLogger(ctx context.Context, operation, source string) *slog.Logger {
	logger := s.Logger.With("request_id", uuid.NewString(), "operation", operation)
	logger.DebugContext(ctx, "operation started", "source", source)

	return logger
}

// resolveInventoryProcessor picks the named processor if given, otherwise
// runs confidence-ranked detection and returns the best inventory processor.
func (s *Service) resolveInventoryProcessor(
	ctx context.Context, source, processorName string,
) (registry.InventoryProcessor, error) {
	if processorName != "" {
		return s.Registry.InventoryProcessor(processorName)
	}

	best, err := registry.DetermineInventoryOptimal(ctx, s.Detection, s.Registry, source)
	if err != nil {
		return nil, err
	}

	if !best.IsPresent() {
		return nil, &model.ProcessorInavailability{Source: source}
	}

	detection, _ := best.Get()

	return s.Registry.InventoryProcessor(detection.Processor)
}

func (s *Service) resolveStructureProcessor(
	ctx context.Context, source, processorName string,
) (registry.StructureProcessor, error) {
	if processorName != "" {
		return s.Registry.StructureProcessorNamed(processorName)
	}

	best, err := registry.DetermineStructureOptimal(ctx, s.Detection, s.Registry, source)
	if err != nil {
		return nil, err
	}

	if !best.IsPresent() {
		return nil, &model.ProcessorInavailability{Source: source}
	}

	detection, _ := best.Get()

	return s.Registry.StructureProcessorNamed(detection.Processor)
}

// InventoryDocument is one row of a query-inventory response.
type InventoryDocument struct {
	Specifics map[string]any `json:"-"`
	Name      string         `json:"name"`
	Role      string         `json:"role"`
	Domain    string         `json:"domain"`
	URI       string         `json:"uri"`
	DispName  string         `json:"dispname"`
}

// SearchMetadata reports the size of the match set alongside the requested cap.
type SearchMetadata struct {
	ResultsCount int `json:"results_count"`
	ResultsMax   int `json:"results_max"`
	MatchesTotal int `json:"matches_total,omitempty"`
}

// QueryInventoryResponse is the query-inventory operation's return shape.
type QueryInventoryResponse struct {
	Project       string             `json:"project"`
	Version       string             `json:"version"`
	Query         string             `json:"query"`
	Source        string             `json:"source"`
	Documents     []InventoryDocument `json:"documents"`
	SearchMetadata SearchMetadata    `json:"search_metadata"`
	ObjectsCount  int                `json:"objects_count"`
}

// QueryInventoryParams bundles query-inventory's optional inputs.
type QueryInventoryParams struct {
	Filters       map[string]any
	ProcessorName string
	Query         string
	Behaviors     model.SearchBehaviors
	Details       model.InventoryQueryDetails
	ResultsMax    int
}

// QueryInventory runs inventory detection, filters by filters/details, feeds
// the result into the search engine, and returns the top results_max by score.
func (s *Service) QueryInventory(ctx context.Context, source string, params QueryInventoryParams) (QueryInventoryResponse, error) {
	logger := s.requestLogger(ctx, "query_inventory", source)

	processor, err := s.resolveInventoryProcessor(ctx, source, params.ProcessorName)
	if err != nil {
		return QueryInventoryResponse{}, err
	}

	objects, meta, err := processor.FilterInventory(ctx, source, params.Filters, params.Details)
	if err != nil {
		return QueryInventoryResponse{}, err
	}

	results, err := search.FilterByName(objects, params.Query, params.Behaviors)
	if err != nil {
		return QueryInventoryResponse{}, err
	}

	matchesTotal := len(results)

	resultsMax := params.ResultsMax
	if resultsMax > 0 && len(results) > resultsMax {
		results = results[:resultsMax]
	}

	documents := make([]InventoryDocument, 0, len(results))

	for _, r := range results {
		documents = append(documents, InventoryDocument{
			Specifics: r.Object.Specifics,
			Name:      r.Object.Name,
			Role:      toString(r.Object.Specifics["role"]),
			Domain:    toString(r.Object.Specifics["domain"]),
			URI:       r.Object.URI,
			DispName:  r.Object.DisplayName,
		})
	}

	project := meta.Project
	if project == "" {
		project = "Unknown"
	}

	version := meta.Version
	if version == "" {
		version = "Unknown"
	}

	logger.DebugContext(ctx, "operation completed", "objects_count", len(objects), "results_count", len(documents))

	return QueryInventoryResponse{
		Project:   project,
		Version:   version,
		Query:     params.Query,
		Source:    source,
		Documents: documents,
		SearchMetadata: SearchMetadata{
			ResultsCount: len(documents),
			ResultsMax:   resultsMax,
			MatchesTotal: matchesTotal,
		},
		ObjectsCount: len(objects),
	}, nil
}

// ContentDocumentView is one row of a query-content response.
type ContentDocumentView struct {
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	Domain         string   `json:"domain"`
	Priority       any      `json:"priority,omitempty"`
	URL            string   `json:"url"`
	Signature      string   `json:"signature"`
	Description    string   `json:"description"`
	ContentSnippet string   `json:"content_snippet,omitempty"`
	RelevanceScore float64  `json:"relevance_score"`
	MatchReasons   []string `json:"match_reasons"`
}

// QueryContentResponse is the query-content operation's return shape.
type QueryContentResponse struct {
	Source         string                 `json:"source"`
	Query          string                 `json:"query"`
	Documents      []ContentDocumentView  `json:"documents"`
	SearchMetadata SearchMetadata         `json:"search_metadata"`
}

// QueryContentParams bundles query-content's optional inputs.
type QueryContentParams struct {
	Filters         map[string]any
	ProcessorName   string
	Query           string
	Behaviors       model.SearchBehaviors
	IncludeSnippets bool
	ResultsMax      int
}

// QueryContent runs inventory detection, filters and searches by name (top
// 3*results_max candidates), then runs structure detection and extraction on
// the survivors. If the candidate set is empty after search, it returns
// immediately without performing structure detection or any further I/O.
func (s *Service) QueryContent(ctx context.Context, source string, params QueryContentParams) (QueryContentResponse, error) {
	logger := s.requestLogger(ctx, "query_content", source)

	resultsMax := params.ResultsMax
	if resultsMax <= 0 {
		resultsMax = 10
	}

	invProcessor, err := s.resolveInventoryProcessor(ctx, source, params.ProcessorName)
	if err != nil {
		return QueryContentResponse{}, err
	}

	objects, _, err := invProcessor.FilterInventory(ctx, source, params.Filters, model.DetailsName)
	if err != nil {
		return QueryContentResponse{}, err
	}

	results, err := search.FilterByName(objects, params.Query, params.Behaviors)
	if err != nil {
		return QueryContentResponse{}, err
	}

	candidateCount := 3 * resultsMax
	if candidateCount > len(results) {
		candidateCount = len(results)
	}

	candidates := make([]model.InventoryObject, candidateCount)
	for i := 0; i < candidateCount; i++ {
		candidates[i] = results[i].Object
	}

	if len(candidates) == 0 {
		logger.DebugContext(ctx, "operation completed", "candidates", 0)

		return QueryContentResponse{
			Source:         source,
			Query:          params.Query,
			Documents:      nil,
			SearchMetadata: SearchMetadata{ResultsCount: 0, ResultsMax: resultsMax},
		}, nil
	}

	structProcessor, err := s.resolveStructureProcessor(ctx, source, params.ProcessorName)
	if err != nil {
		return QueryContentResponse{}, err
	}

	docs, err := structProcessor.ExtractContents(ctx, source, candidates, params.Query, resultsMax)
	if err != nil {
		return QueryContentResponse{}, err
	}

	views := make([]ContentDocumentView, 0, len(docs))

	for _, d := range docs {
		snippet := ""
		if params.IncludeSnippets {
			snippet = d.ContentSnippet
		}

		views = append(views, ContentDocumentView{
			Name:           d.Object.Name,
			Type:           toString(d.Object.Specifics["type"]),
			Domain:         toString(d.Object.Specifics["domain"]),
			Priority:       d.Object.Specifics["priority"],
			URL:            d.DocumentationURL,
			Signature:      d.Signature,
			Description:    d.Description,
			ContentSnippet: snippet,
			RelevanceScore: d.RelevanceScore,
			MatchReasons:   d.MatchReasons,
		})
	}

	logger.DebugContext(ctx, "operation completed", "candidates", len(candidates), "results_count", len(views))

	return QueryContentResponse{
		Source: source,
		Query:  params.Query,
		Documents: views,
		SearchMetadata: SearchMetadata{
			ResultsCount: len(views),
			ResultsMax:   resultsMax,
		},
	}, nil
}

// SummarizeInventoryParams bundles summarize-inventory's optional inputs.
type SummarizeInventoryParams struct {
	Filters       map[string]any
	ProcessorName string
	Query         string
	GroupBy       string
	Behaviors     model.SearchBehaviors
}

// SummarizeInventory renders query-inventory's result as a plain-text
// summary, optionally grouped by a specifics field. The underlying
// query-inventory call is unbounded (results_max = 0) so that, unlike a
// capped call, grouped totals always sum to the reported objects_count.
func (s *Service) SummarizeInventory(ctx context.Context, source string, params SummarizeInventoryParams) (string, error) {
	logger := s.requestLogger(ctx, "summarize_inventory", source)

	resp, err := s.QueryInventory(ctx, source, QueryInventoryParams{
		Filters:       params.Filters,
		ProcessorName: params.ProcessorName,
		Query:         params.Query,
		Behaviors:     params.Behaviors,
		Details:       model.DetailsName,
		ResultsMax:    0,
	})
	if err != nil {
		return "", err
	}

	var out string

	out += fmt.Sprintf("%s %s: %d objects\n", resp.Project, resp.Version, resp.ObjectsCount)

	if params.Query != "" {
		out += fmt.Sprintf("query: %q\n", params.Query)
	}

	if params.GroupBy == "" {
		logger.DebugContext(ctx, "operation completed", "objects_count", resp.ObjectsCount)
		return out, nil
	}

	groups := make(map[string]int)

	for _, doc := range resp.Documents {
		value := groupValue(doc, params.GroupBy)
		groups[value]++
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		out += fmt.Sprintf("%s: %d\n", k, groups[k])
	}

	logger.DebugContext(ctx, "operation completed", "objects_count", resp.ObjectsCount, "groups", len(keys))

	return out, nil
}

// groupValue resolves field on doc: "role" and "domain" read the promoted
// fields directly, any other name is looked up in the object's specifics map
// (e.g. Rustdoc's "item_type", Pydoctor's "qualified_name"), stringified the
// same way the response documents are.
func groupValue(doc InventoryDocument, field string) string {
	var raw any

	switch field {
	case "role":
		raw = doc.Role
	case "domain":
		raw = doc.Domain
	default:
		raw = doc.Specifics[field]
	}

	value := toString(raw)
	if value == "" {
		return fmt.Sprintf("(missing %s)", field)
	}

	return value
}

// SurveyProcessorsResponse is the survey-processors operation's return shape.
type SurveyProcessorsResponse struct {
	Processors map[string]ProcessorEntry `json:"processors"`
}

// ProcessorEntry tags a processor's capabilities with which registry it
// came from, since the inventory and structure registries may share a name.
type ProcessorEntry struct {
	model.Capabilities
	Kind string `json:"kind"`
}

// SurveyProcessors enumerates the registered inventory and structure
// processors. If name is non-empty, it is unknown in both registries raises
// ProcessorInavailability; otherwise only the named processor(s) are reported.
func (s *Service) SurveyProcessors(ctx context.Context, name string) (SurveyProcessorsResponse, error) {
	logger := s.requestLogger(ctx, "survey_processors", name)

	processors := make(map[string]ProcessorEntry)

	if name != "" {
		foundAny := false

		if p, err := s.Registry.InventoryProcessor(name); err == nil {
			processors[name+":inventory"] = ProcessorEntry{Capabilities: p.Capabilities(), Kind: "inventory"}
			foundAny = true
		}

		if p, err := s.Registry.StructureProcessorNamed(name); err == nil {
			processors[name+":structure"] = ProcessorEntry{Capabilities: p.Capabilities(), Kind: "structure"}
			foundAny = true
		}

		if !foundAny {
			return SurveyProcessorsResponse{}, &model.ProcessorInavailability{Name: name}
		}

		logger.DebugContext(ctx, "operation completed", "processors", len(processors))

		return SurveyProcessorsResponse{Processors: processors}, nil
	}

	for pname, p := range s.Registry.AllInventory() {
		processors[pname+":inventory"] = ProcessorEntry{Capabilities: p.Capabilities(), Kind: "inventory"}
	}

	for pname, p := range s.Registry.AllStructure() {
		processors[pname+":structure"] = ProcessorEntry{Capabilities: p.Capabilities(), Kind: "structure"}
	}

	logger.DebugContext(ctx, "operation completed", "processors", len(processors))

	return SurveyProcessorsResponse{Processors: processors}, nil
}

func toString(v any) string {
	if v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprint(v)
}
