// Package mkdocs implements the MkDocs inventory and structure processors.
// MkDocs sites that use mkdocstrings emit the same objects.inv format as
// Sphinx, so the inventory processor delegates to pkg/prov/sphinx and retags
// the result's InventoryType. The structure processor is stand-alone, with
// its own MkDocs theme-aware container selection.
package mkdocs

import (
	"context"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/emcd/librovore/pkg/cacheproxy"
	"github.com/emcd/librovore/pkg/model"
	"github.com/emcd/librovore/pkg/prov/sphinx"
	"github.com/emcd/librovore/pkg/registry"
)

// ProcessorName is the registration name of the MkDocs processors.
const ProcessorName = "mkdocs"

// ConfigURL derives the mkdocs.yml URL for a base source URL, used as a
// corroborating signal alongside objects.inv during detection.
func ConfigURL(source string) string {
	return strings.TrimSuffix(source, "/") + "/mkdocs.yml"
}

// InventoryProcessor detects and filters MkDocs/mkdocstrings objects.inv
// inventories, delegating the wire format to the Sphinx processor.
type InventoryProcessor struct {
	proxy  *cacheproxy.Proxy
	sphinx *sphinx.InventoryProcessor
}

// NewInventoryProcessor constructs an InventoryProcessor backed by proxy.
func NewInventoryProcessor(proxy *cacheproxy.Proxy) *InventoryProcessor {
	return &InventoryProcessor{proxy: proxy, sphinx: sphinx.NewInventoryProcessor(proxy)}
}

func (p *InventoryProcessor) Name() string { return ProcessorName }

func (p *InventoryProcessor) Capabilities() model.Capabilities {
	caps := p.sphinx.Capabilities()
	caps.ProcessorName = ProcessorName
	caps.Notes = "MkDocs (mkdocstrings) objects.inv inventory, sharing the Sphinx wire format."

	return caps
}

// Detect weighs the presence of objects.inv (+0.8) and mkdocs.yml (+0.4),
// capped at 1.0, then best-effort probes the site's rendered theme. Theme
// detection failure never fails detection itself; its result, when found,
// rides along in the detection's metadata.
func (p *InventoryProcessor) Detect(ctx context.Context, source string) (model.Detection, error) {
	invExists, err := p.proxy.Probe(ctx, sphinx.InventoryURL(source))
	if err != nil {
		return model.Detection{}, err
	}

	configExists, err := p.proxy.Probe(ctx, ConfigURL(source))
	if err != nil {
		configExists = false
	}

	var confidence float64
	if invExists {
		confidence += 0.8
	}

	if configExists {
		confidence += 0.4
	}

	if confidence > 1.0 {
		confidence = 1.0
	}

	if confidence == 0 {
		return model.Detection{
			Processor: ProcessorName, Kind: model.DetectionKindInventory, Confidence: 0, Timestamp: time.Now(),
		}, nil
	}

	var metadata map[string]any

	if theme := detectTheme(ctx, p.proxy, source, configExists); theme != "" {
		metadata = map[string]any{"theme": theme}
	}

	return model.Detection{
		Processor:  ProcessorName,
		Kind:       model.DetectionKindInventory,
		Confidence: confidence,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}, nil
}

// mkdocsYAML mirrors the one field of mkdocs.yml this processor cares
// about: the configured theme name.
type mkdocsYAML struct {
	Theme struct {
		Name string `yaml:"name"`
	} `yaml:"theme"`
}

// detectTheme identifies the site's theme, preferring the authoritative
// mkdocs.yml setting (when it exists and parses) over sniffing the rendered
// homepage for known theme markers.
func detectTheme(ctx context.Context, proxy *cacheproxy.Proxy, source string, configExists bool) string {
	if configExists {
		if body, err := proxy.RetrieveAsText(ctx, ConfigURL(source), "utf-8"); err == nil {
			var cfg mkdocsYAML
			if err := yaml.Unmarshal([]byte(body), &cfg); err == nil && cfg.Theme.Name != "" {
				return normalizeTheme(cfg.Theme.Name)
			}
		}
	}

	return sniffThemeFromHomepage(ctx, proxy, source)
}

func normalizeTheme(name string) string {
	switch strings.ToLower(name) {
	case "material":
		return "material"
	case "readthedocs":
		return "readthedocs"
	default:
		return "unrecognized"
	}
}

// sniffThemeFromHomepage is the documented fallback: a best-effort GET of
// the site root or its index.html, looking for known theme markers.
func sniffThemeFromHomepage(ctx context.Context, proxy *cacheproxy.Proxy, source string) string {
	base := strings.TrimSuffix(source, "/")

	for _, path := range []string{"/", "/index.html"} {
		body, err := proxy.RetrieveAsText(ctx, base+path, "utf-8")
		if err != nil {
			continue
		}

		lower := strings.ToLower(body)

		switch {
		case strings.Contains(lower, "mkdocs-material") || strings.Contains(lower, "md-container"):
			return "material"
		case strings.Contains(lower, "readthedocs") || strings.Contains(lower, "rst-content"):
			return "readthedocs"
		default:
			return "unrecognized"
		}
	}

	return ""
}

func (p *InventoryProcessor) FilterInventory(
	ctx context.Context, source string, filters map[string]any, details model.InventoryQueryDetails,
) ([]model.InventoryObject, registry.ProjectMetadata, error) {
	objects, meta, err := p.sphinx.FilterInventory(ctx, source, filters, details)
	if err != nil {
		return nil, registry.ProjectMetadata{}, err
	}

	for i := range objects {
		objects[i].InventoryType = model.InventoryMkDocs
	}

	return objects, meta, nil
}
