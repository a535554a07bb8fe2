// Package rustdoc implements the Rustdoc all.html inventory processor and
// the accompanying HTML structure processor.
package rustdoc

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/emcd/librovore/pkg/cacheproxy"
	"github.com/emcd/librovore/pkg/model"
	"github.com/emcd/librovore/pkg/registry"
)

// ProcessorName is the registration name of the Rustdoc processors.
const ProcessorName = "rustdoc"

var rustdocCSSPattern = regexp.MustCompile(`rustdoc.*\.css`)

// itemTypeToRole maps a Rustdoc "all-items" section heading to a role,
// following rustdoc's own naming: only "mod" becomes "module"; "method" and
// "macro" pass through unchanged.
var itemTypeToRole = map[string]string{
	"struct":    "type",
	"enum":      "type",
	"trait":     "type",
	"type":      "type",
	"union":     "type",
	"primitive": "type",
	"fn":        "function",
	"mod":       "module",
	"const":     "constant",
	"static":    "constant",
	"attr":      "attribute",
	"derive":    "attribute",
}

func roleFor(itemType string) string {
	if role, ok := itemTypeToRole[itemType]; ok {
		return role
	}

	return itemType
}

// AllItemsURL derives the all.html URL for a base source URL.
func AllItemsURL(source string) string {
	return strings.TrimSuffix(source, "/") + "/all.html"
}

// AllItemsStdFallbackURL derives the std-crate fallback URL.
func AllItemsStdFallbackURL(source string) string {
	return strings.TrimSuffix(source, "/") + "/std/all.html"
}

// InventoryProcessor detects and filters Rustdoc all.html inventories.
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
		ResponseTimeTypic: "moderate",
		Notes:             "Rustdoc all.html inventory, as emitted by cargo doc / rustdoc.",
		ResultsLimitMax:   10000,
		SupportedFilters: []model.FilterCapability{
			{Name: "item_type", Description: "Rustdoc item type (struct, function, trait, ...)", Type: "string"},
			{Name: "name", Description: "substring match against the item name", Type: "string"},
		},
	}
}

// fetchAllItems tries the primary all.html URL, falling back to the std
// crate's nested location.
func (p *InventoryProcessor) fetchAllItems(ctx context.Context, source string) (string, []byte, error) {
	primary := AllItemsURL(source)

	body, err := p.proxy.Retrieve(ctx, primary)
	if err == nil {
		return primary, body, nil
	}

	fallback := AllItemsStdFallbackURL(source)

	body, fallbackErr := p.proxy.Retrieve(ctx, fallback)
	if fallbackErr == nil {
		return fallback, body, nil
	}

	return primary, nil, err
}

func (p *InventoryProcessor) Detect(ctx context.Context, source string) (model.Detection, error) {
	_, body, err := p.fetchAllItems(ctx, source)
	if err != nil {
		return model.Detection{Processor: ProcessorName, Kind: model.DetectionKindInventory, Confidence: 0, Timestamp: time.Now()}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return model.Detection{Processor: ProcessorName, Kind: model.DetectionKindInventory, Confidence: 0, Timestamp: time.Now()}, nil
	}

	if !hasRustdocMarker(doc) {
		return model.Detection{Processor: ProcessorName, Kind: model.DetectionKindInventory, Confidence: 0, Timestamp: time.Now()}, nil
	}

	_, items := parseAllItems(doc, "")

	valid, total := 0, len(items)

	for _, it := range items {
		if it.Name != "" && it.ItemType != "" && it.Href != "" {
			valid++
		}
	}

	return model.Detection{
		Processor:  ProcessorName,
		Kind:       model.DetectionKindInventory,
		Confidence: inventoryConfidence(valid, total),
		Timestamp:  time.Now(),
	}, nil
}

func hasRustdocMarker(doc *goquery.Document) bool {
	if sel := doc.Find(`meta[name=generator]`); sel.Length() > 0 {
		if content, _ := sel.Attr("content"); strings.Contains(content, "rustdoc") {
			return true
		}
	}

	if doc.Find(".rustdoc-topbar").Length() > 0 {
		return true
	}

	if doc.Find("[data-rustdoc-version]").Length() > 0 {
		return true
	}

	found := false

	doc.Find("link[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if rustdocCSSPattern.MatchString(href) {
			found = true
			return false
		}

		return true
	})

	return found
}

func inventoryConfidence(valid, total int) float64 {
	if valid == 0 {
		return 0
	}

	var base float64

	switch {
	case valid >= 50:
		base = 0.9
	case valid >= 10:
		base = 0.8
	default:
		base = 0.7
	}

	ratio := float64(valid) / float64(total)
	confidence := base * ratio

	if confidence > 0.95 {
		confidence = 0.95
	}

	if confidence < base && valid >= 1 {
		// Only a full ratio restores the base tier; invalid entries that
		// dilute the ratio are not floored, so confidence stays base*ratio.
		if ratio >= 1.0 {
			confidence = base
		}
	}

	return confidence
}

// item is one parsed <li><a> entry from a Rustdoc all-items list.
type item struct {
	ItemType string
	Name     string
	Path     string
	Href     string
}

// parseAllItems extracts every <ul class="all-items"> > <li> > <a>,
// grouping under the preceding <h2> section heading (pluralization stripped
// by trimming a trailing "s") as item_type.
func parseAllItems(doc *goquery.Document, fallbackCrate string) (string, []item) {
	crateName := fallbackCrate
	if fqn := doc.Find("h1.fqn").First().Text(); fqn != "" {
		crateName = extractCrateFromFQN(fqn)
	}

	var items []item

	doc.Find("ul.all-items").Each(func(_ int, list *goquery.Selection) {
		itemType := sectionItemType(list)

		list.Find("li > a").Each(func(_ int, a *goquery.Selection) {
			href, _ := a.Attr("href")
			text := strings.TrimSpace(a.Text())

			path, name := splitPath(text, crateName)

			items = append(items, item{ItemType: itemType, Name: name, Path: path, Href: href})
		})
	})

	return crateName, items
}

func sectionItemType(list *goquery.Selection) string {
	heading := list.PrevAllFiltered("h2").First()
	if heading.Length() == 0 {
		heading = list.Prev()
	}

	text := strings.TrimSpace(strings.ToLower(heading.Text()))
	text = strings.TrimSuffix(text, "s")

	return text
}

func extractCrateFromFQN(fqn string) string {
	const marker = "List of all items in "

	idx := strings.Index(fqn, marker)
	if idx < 0 {
		return strings.TrimSpace(fqn)
	}

	rest := strings.TrimSpace(fqn[idx+len(marker):])

	return strings.TrimSpace(strings.TrimPrefix(rest, "crate "))
}

func splitPath(text, crateName string) (string, string) {
	if !strings.Contains(text, "::") {
		return crateName, text
	}

	parts := strings.Split(text, "::")
	name := parts[len(parts)-1]
	path := strings.Join(parts[:len(parts)-1], "::")

	return path, name
}

func (p *InventoryProcessor) FilterInventory(
	ctx context.Context, source string, filters map[string]any, details model.InventoryQueryDetails,
) ([]model.InventoryObject, registry.ProjectMetadata, error) {
	url, body, err := p.fetchAllItems(ctx, source)
	if err != nil {
		return nil, registry.ProjectMetadata{}, &model.InventoryInaccessibility{Source: url, Cause: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, registry.ProjectMetadata{}, &model.InventoryInvalidity{Source: url, Cause: err}
	}

	crate, items := parseAllItems(doc, "")

	wantType, hasType := filters["item_type"]
	wantNameSubstr, hasName := filters["name"]

	objects := make([]model.InventoryObject, 0, len(items))

	for _, it := range items {
		if it.Name == "" || it.Href == "" {
			continue
		}

		if hasType && !strings.EqualFold(it.ItemType, toString(wantType)) {
			continue
		}

		if hasName && !strings.Contains(strings.ToLower(it.Name), strings.ToLower(toString(wantNameSubstr))) {
			continue
		}

		objects = append(objects, model.InventoryObject{
			Name:          it.Name,
			URI:           it.Href,
			InventoryType: model.InventoryRustdoc,
			LocationURL:   url,
			DisplayName:   it.Path + "::" + it.Name,
			Specifics: map[string]any{
				"item_type": it.ItemType,
				"path":      it.Path,
				"role":      roleFor(it.ItemType),
			},
		})
	}

	return objects, registry.ProjectMetadata{Project: crate}, nil
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return ""
}
