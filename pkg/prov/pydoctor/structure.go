package pydoctor

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/emcd/librovore/pkg/cacheproxy"
	"github.com/emcd/librovore/pkg/model"
	"github.com/emcd/librovore/pkg/prov/extract"
	"github.com/emcd/librovore/pkg/prov/htmlmd"
)

// signatureSelectors are tried in order to locate an object's signature.
var signatureSelectors = []string{
	"code.thisobject",
	"div.functionHeader code",
	".thingTitle code",
}

// StructureProcessor extracts signatures/descriptions from rendered Pydoctor
// documentation pages.
type StructureProcessor struct {
	proxy *cacheproxy.Proxy
}

// NewStructureProcessor constructs a StructureProcessor backed by proxy.
func NewStructureProcessor(proxy *cacheproxy.Proxy) *StructureProcessor {
	return &StructureProcessor{proxy: proxy}
}

func (p *StructureProcessor) Name() string { return ProcessorName }

func (p *StructureProcessor) Capabilities() model.Capabilities {
	return model.Capabilities{
		ProcessorName:     ProcessorName,
		Version:           "1.0",
		ResponseTimeTypic: "moderate",
		Notes:             "Pydoctor HTML content extraction: thisobject signature, docstring description.",
		ResultsLimitMax:   200,
	}
}

func (p *StructureProcessor) Detect(ctx context.Context, source string) (model.Detection, error) {
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
		Kind:       model.DetectionKindStructure,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}, nil
}

func (p *StructureProcessor) ExtractContents(
	ctx context.Context, source string, objects []model.InventoryObject, query string, resultsMax int,
) ([]model.ContentDocument, error) {
	if len(objects) == 0 {
		return nil, nil
	}

	candidates := objects
	if resultsMax > 0 && 3*resultsMax < len(candidates) {
		candidates = candidates[:3*resultsMax]
	}

	docs := extract.Gather(ctx, candidates, extract.DefaultConcurrency,
		func(ctx context.Context, obj model.InventoryObject) (model.ContentDocument, bool, error) {
			doc, err := p.extractOne(ctx, source, obj, query)
			if err != nil {
				return model.ContentDocument{}, false, err
			}

			return doc, true, nil
		},
		func(obj model.InventoryObject, err error) {
			slog.Debug("pydoctor structure: extraction failed", "object", obj.Name, "error", err)
		},
	)

	if err := extract.ValidateResults(ProcessorName, source, len(candidates), docs); err != nil {
		return nil, err
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].RelevanceScore > docs[j].RelevanceScore })

	if resultsMax > 0 && len(docs) > resultsMax {
		docs = docs[:resultsMax]
	}

	return docs, nil
}

func (p *StructureProcessor) extractOne(
	ctx context.Context, source string, obj model.InventoryObject, query string,
) (model.ContentDocument, error) {
	pageURL := strings.TrimSuffix(source, "/") + "/" + strings.TrimPrefix(obj.URI, "/")

	body, err := p.proxy.Retrieve(ctx, pageURL)
	if err != nil {
		return model.ContentDocument{}, &model.DocumentationInaccessibility{URL: pageURL, Cause: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return model.ContentDocument{}, &model.DocumentationParseFailure{URL: pageURL, Cause: err}
	}

	signature := locateSignature(doc, obj)
	description := extractDescription(doc)
	snippet := htmlmd.Snippet(description, 200)

	score, reasons := scoreRelevance(obj, query, signature, description)

	return model.ContentDocument{
		Object:           obj,
		Signature:        signature,
		Description:      description,
		ContentSnippet:   snippet,
		DocumentationURL: pageURL,
		RelevanceScore:   score,
		MatchReasons:     reasons,
	}, nil
}

func locateSignature(doc *goquery.Document, obj model.InventoryObject) string {
	for _, selector := range signatureSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 && strings.TrimSpace(sel.Text()) != "" {
			return strings.TrimSpace(sel.Text())
		}
	}

	if qname, ok := obj.Specifics["qualified_name"].(string); ok && qname != "" {
		return qname
	}

	return obj.Name
}

func extractDescription(doc *goquery.Document) string {
	docstring := doc.Find("div.docstring").First()
	if docstring.Length() == 0 {
		return ""
	}

	docstring.Find("nav").Remove()

	return htmlmd.FromSelection(docstring)
}

func scoreRelevance(obj model.InventoryObject, query, signature, description string) (float64, []string) {
	var (
		score   float64
		reasons []string
	)

	queryLower := strings.ToLower(query)
	nameLower := strings.ToLower(obj.Name)

	if queryLower == "" {
		return score, reasons
	}

	if nameLower == queryLower {
		score += 10
		reasons = append(reasons, "exact name match")
	}

	if strings.Contains(nameLower, queryLower) {
		score += 10
		reasons = append(reasons, "name substring match")
	}

	if strings.Contains(strings.ToLower(description), queryLower) {
		score += 3
		reasons = append(reasons, "description substring match")
	}

	if strings.Contains(strings.ToLower(signature), queryLower) {
		score += 2
		reasons = append(reasons, "signature substring match")
	}

	return score, reasons
}
