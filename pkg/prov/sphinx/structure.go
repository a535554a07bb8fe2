package sphinx

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
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

// containerStrategies holds the theme-keyed sequence of selectors tried, in
// order, to locate a page's main content container.
var containerStrategies = map[string][]string{
	"furo":             {"article[role=main]"},
	"sphinx_rtd_theme": {"div[role=main]", "div.document"},
	"pydoctheme":       {"div.body"},
	"flask":            {"div.body", "div[role=main]"},
	"alabaster":        {"div.body", "div[role=main]"},
}

var genericContainerChain = []string{
	"article[role=main]", "div.body", "div.content", "main", "div[role=main]", "body",
}

// StructureProcessor extracts signatures/descriptions from rendered Sphinx
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
		Notes:             "Sphinx theme-aware HTML content extraction (furo, sphinx_rtd_theme, alabaster, pydoctheme, flask, and a generic fallback).",
		ResultsLimitMax:   200,
	}
}

func (p *StructureProcessor) Detect(ctx context.Context, source string) (model.Detection, error) {
	exists, err := p.proxy.Probe(ctx, InventoryURL(source))
	if err != nil {
		return model.Detection{}, err
	}

	confidence := 0.0
	if exists {
		confidence = 0.9
	}

	return model.Detection{
		Processor:  ProcessorName,
		Kind:       model.DetectionKindStructure,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}, nil
}

// ExtractContents fetches and parses each candidate's page, scoring by
// relevance against query, after a name-only pre-filter that caps upstream
// fetches to the top 3*resultsMax candidates.
func (p *StructureProcessor) ExtractContents(
	ctx context.Context, source string, objects []model.InventoryObject, query string, resultsMax int,
) ([]model.ContentDocument, error) {
	if len(objects) == 0 {
		return nil, nil
	}

	candidates := prefilterByName(objects, query, resultsMax)

	docs := extract.Gather(ctx, candidates, extract.DefaultConcurrency,
		func(ctx context.Context, obj model.InventoryObject) (model.ContentDocument, bool, error) {
			doc, err := p.extractOne(ctx, source, obj, query)
			if err != nil {
				return model.ContentDocument{}, false, err
			}

			return doc, true, nil
		},
		func(obj model.InventoryObject, err error) {
			slog.Debug("sphinx structure: extraction failed", "object", obj.Name, "error", err)
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

// prefilterByName scores candidates on name-only signals (substring + the
// priority part of the rubric) and keeps the top 3*resultsMax, avoiding
// upstream fetches for candidates that cannot realistically match.
func prefilterByName(objects []model.InventoryObject, query string, resultsMax int) []model.InventoryObject {
	type scored struct {
		obj   model.InventoryObject
		score int
	}

	queryLower := strings.ToLower(query)
	scoredObjs := make([]scored, 0, len(objects))

	for _, obj := range objects {
		score := 0

		if queryLower != "" && strings.Contains(strings.ToLower(obj.Name), queryLower) {
			score += 10
		}

		score += priorityScore(obj)

		scoredObjs = append(scoredObjs, scored{obj: obj, score: score})
	}

	sort.SliceStable(scoredObjs, func(i, j int) bool { return scoredObjs[i].score > scoredObjs[j].score })

	limit := len(scoredObjs)
	if resultsMax > 0 && 3*resultsMax < limit {
		limit = 3 * resultsMax
	}

	out := make([]model.InventoryObject, limit)
	for i := range limit {
		out[i] = scoredObjs[i].obj
	}

	return out
}

func priorityScore(obj model.InventoryObject) int {
	priority, _ := obj.Specifics["priority"].(int)

	switch priority {
	case 1:
		return 2
	case 0:
		return 1
	default:
		return 0
	}
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
	// Theme is not separately detected here; try every theme's selector
	// chain followed by the generic fallback, in a fixed deterministic order.
	var chain []string

	for _, theme := range []string{"furo", "sphinx_rtd_theme", "pydoctheme", "flask", "alabaster"} {
		chain = append(chain, containerStrategies[theme]...)
	}

	chain = append(chain, genericContainerChain...)

	seen := map[string]bool{}

	for _, selector := range chain {
		if seen[selector] {
			continue
		}

		seen[selector] = true

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
	case "dt":
		signature := strings.TrimSpace(target.Text())

		dd := target.Next()
		if goquery.NodeName(dd) == "dd" {
			dd.Find(".headerlink").Remove()
			return signature, htmlmd.FromSelection(dd)
		}

		return signature, ""
	case "section":
		heading := target.Find("h1,h2,h3,h4,h5,h6").First()
		signature := strings.TrimSpace(heading.Text())

		para := target.Find("p").First()

		return signature, htmlmd.FromSelection(para)
	default:
		return "", strings.TrimSpace(target.Text())
	}
}

// scoreRelevance scores a candidate by additively combining name, description,
// and signature matches against the query.
func scoreRelevance(obj model.InventoryObject, query, signature, description string) (float64, []string) {
	var (
		score   float64
		reasons []string
	)

	queryLower := strings.ToLower(query)
	nameLower := strings.ToLower(obj.Name)

	if queryLower != "" {
		if nameLower == queryLower {
			score += 10
			reasons = append(reasons, "exact name match")
		}

		if strings.Contains(nameLower, queryLower) {
			score += 10
			reasons = append(reasons, "name substring match")
		}
	}

	if p := priorityScore(obj); p > 0 {
		score += float64(p)
		reasons = append(reasons, "priority "+strconv.Itoa(p))
	}

	if queryLower != "" && strings.Contains(strings.ToLower(description), queryLower) {
		score += 3
		reasons = append(reasons, "description substring match")
	}

	if queryLower != "" && strings.Contains(strings.ToLower(signature), queryLower) {
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
