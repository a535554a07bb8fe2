package mkdocs

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

// DefaultSnippetLength is the default content-snippet length in characters.
const DefaultSnippetLength = 200

// containerChain extends the Sphinx theme chain with MkDocs's own themes
// (material, readthedocs) ahead of the generic fallback.
var containerChain = []string{
	"div.md-content__inner",
	"article.md-content__inner",
	"div[role=main]",
	"article[role=main]",
	"div.rst-content",
	"div.document",
	"div.body",
	"div.content",
	"main",
	"body",
}

// StructureProcessor extracts signatures/descriptions from rendered MkDocs
// documentation pages (mkdocstrings-generated API reference sections).
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
		Notes:             "MkDocs theme-aware HTML content extraction (material, readthedocs, and the Sphinx-shared themes mkdocstrings pages may inherit).",
		ResultsLimitMax:   200,
	}
}

func (p *StructureProcessor) Detect(ctx context.Context, source string) (model.Detection, error) {
	invExists, err := p.proxy.Probe(ctx, ConfigURL(source))
	if err != nil {
		invExists = false
	}

	confidence := 0.0
	if invExists {
		confidence = 0.95
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
			slog.Debug("mkdocs structure: extraction failed", "object", obj.Name, "error", err)
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
	pageURL, fragment := splitFragment(resolveURL(source, obj.URI))

	body, err := p.proxy.Retrieve(ctx, pageURL)
	if err != nil {
		return model.ContentDocument{}, &model.DocumentationInaccessibility{URL: pageURL, Cause: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return model.ContentDocument{}, &model.DocumentationParseFailure{URL: pageURL, Cause: err}
	}

	container := locateContainer(doc)
	if container == nil {
		return model.ContentDocument{}, &model.DocumentationContentAbsence{URL: pageURL}
	}

	anchorID := fragment
	if anchorID == "" {
		anchorID = obj.Name
	}

	target := locateTarget(container, anchorID)
	if target == nil {
		return model.ContentDocument{}, &model.DocumentationObjectAbsence{ObjectID: anchorID, URL: pageURL}
	}

	signature, description := extractSignatureDescription(target)
	snippet := htmlmd.Snippet(description, DefaultSnippetLength)

	score, reasons := scoreRelevance(obj, query, signature, description)

	return model.ContentDocument{
		Object:           obj,
		Signature:        signature,
		Description:      description,
		ContentSnippet:   snippet,
		DocumentationURL: pageURL,
		RelevanceScore:   score,
		MatchReasons:     reasons,
		ExtractionMetadata: map[string]any{
			"anchor": anchorID,
		},
	}, nil
}

func locateContainer(doc *goquery.Document) *goquery.Selection {
	for _, selector := range containerChain {
		sel := doc.Find(selector)
		if sel.Length() > 0 {
			return sel.First()
		}
	}

	return nil
}

func locateTarget(container *goquery.Selection, anchorID string) *goquery.Selection {
	var found *goquery.Selection

	container.Find("[id]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		id, _ := sel.Attr("id")
		if id == anchorID {
			found = sel
			return false
		}

		return true
	})

	return found
}

func extractSignatureDescription(target *goquery.Selection) (string, string) {
	switch goquery.NodeName(target) {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		signature := strings.TrimSpace(target.Text())

		body := target.NextUntil("h1,h2,h3,h4,h5,h6")

		return signature, htmlmd.FromSelection(body)
	case "div":
		sig := target.Find(".doc-signature, code").First()
		signature := strings.TrimSpace(sig.Text())

		desc := target.Find(".doc-contents, .doc-md-description").First()
		if desc.Length() == 0 {
			desc = target
		}

		return signature, htmlmd.FromSelection(desc)
	default:
		return "", strings.TrimSpace(target.Text())
	}
}

func scoreRelevance(obj model.InventoryObject, query, signature, description string) (float64, []string) {
	var (
		score   float64
		reasons []string
	)

	queryLower := strings.ToLower(query)
	if queryLower == "" {
		return score, reasons
	}

	nameLower := strings.ToLower(obj.Name)

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

func resolveURL(source, uri string) string {
	base := strings.TrimSuffix(source, "/")
	return base + "/" + strings.TrimPrefix(uri, "/")
}

func splitFragment(url string) (string, string) {
	if idx := strings.Index(url, "#"); idx >= 0 {
		return url[:idx], url[idx+1:]
	}

	return url, ""
}
