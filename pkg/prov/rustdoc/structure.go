package rustdoc

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

var strippedSelectors = []string{
	"nav", ".rustdoc-topbar", ".sidebar-resizer", ".src", ".out-of-band",
}

// StructureProcessor extracts declarations/docblocks/examples from rendered
// Rustdoc pages.
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
		Notes:             "Rustdoc HTML content extraction: item-decl, docblock, and example sections.",
		ResultsLimitMax:   200,
	}
}

func (p *StructureProcessor) Detect(ctx context.Context, source string) (model.Detection, error) {
	_, body, err := (&InventoryProcessor{proxy: p.proxy}).fetchAllItems(ctx, source)
	if err != nil {
		return model.Detection{Processor: ProcessorName, Kind: model.DetectionKindStructure, Confidence: 0, Timestamp: time.Now()}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil || !hasRustdocMarker(doc) {
		return model.Detection{Processor: ProcessorName, Kind: model.DetectionKindStructure, Confidence: 0, Timestamp: time.Now()}, nil
	}

	return model.Detection{
		Processor:  ProcessorName,
		Kind:       model.DetectionKindStructure,
		Confidence: 0.9,
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
			slog.Debug("rustdoc structure: extraction failed", "object", obj.Name, "error", err)
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

	main := locateMain(doc)
	if main == nil {
		return model.ContentDocument{}, &model.DocumentationContentAbsence{URL: pageURL}
	}

	for _, selector := range strippedSelectors {
		main.Find(selector).Remove()
	}

	declaration := extractDeclaration(main)
	docblock := extractDocblock(main)
	examples := extractExamples(main)

	description := assembleDescription(declaration, docblock, examples)
	snippet := htmlmd.Snippet(docblock, DefaultSnippetLength)

	score, reasons := scoreRelevance(obj, query, declaration, docblock)

	return model.ContentDocument{
		Object:           obj,
		Signature:        declaration,
		Description:      description,
		ContentSnippet:   snippet,
		DocumentationURL: pageURL,
		RelevanceScore:   score,
		MatchReasons:     reasons,
	}, nil
}

func locateMain(doc *goquery.Document) *goquery.Selection {
	for _, selector := range []string{"main", "#main-content"} {
		sel := doc.Find(selector).First()
		if sel.Length() > 0 {
			return sel
		}
	}

	return nil
}

func extractDeclaration(main *goquery.Selection) string {
	decl := main.Find("pre.rust.item-decl").First()
	if decl.Length() == 0 {
		return ""
	}

	return strings.TrimSpace(decl.Text())
}

func extractDocblock(main *goquery.Selection) string {
	block := main.Find("div.docblock").First()
	if block.Length() == 0 {
		return ""
	}

	clone := block.Clone()
	clone.Find(".example-wrap").Remove()

	return htmlmd.FromSelection(clone)
}

func extractExamples(main *goquery.Selection) []string {
	var examples []string

	main.Find("div.example-wrap > pre.rust").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			examples = append(examples, text)
		}
	})

	return examples
}

func assembleDescription(declaration, docblock string, examples []string) string {
	var b strings.Builder

	if declaration != "" {
		b.WriteString("## Declaration\n\n```rust\n")
		b.WriteString(declaration)
		b.WriteString("\n```\n\n")
	}

	if docblock != "" {
		b.WriteString("## Documentation\n\n")
		b.WriteString(docblock)
		b.WriteString("\n\n")
	}

	if len(examples) > 0 {
		b.WriteString("## Examples\n\n")

		for _, ex := range examples {
			b.WriteString("```rust\n")
			b.WriteString(ex)
			b.WriteString("\n```\n\n")
		}
	}

	return strings.TrimSpace(b.String())
}

func scoreRelevance(obj model.InventoryObject, query, declaration, docblock string) (float64, []string) {
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

	if strings.Contains(strings.ToLower(docblock), queryLower) {
		score += 3
		reasons = append(reasons, "description substring match")
	}

	if strings.Contains(strings.ToLower(declaration), queryLower) {
		score += 2
		reasons = append(reasons, "signature substring match")
	}

	return score, reasons
}
