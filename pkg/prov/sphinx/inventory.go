// Package sphinx implements the Sphinx objects.inv inventory processor and
// the accompanying HTML structure processor.
package sphinx

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emcd/librovore/pkg/cacheproxy"
	"github.com/emcd/librovore/pkg/model"
	"github.com/emcd/librovore/pkg/registry"
)

// ProcessorName is the registration name of the Sphinx inventory and
// structure processors.
const ProcessorName = "sphinx"

// InventoryProcessor detects and filters Sphinx objects.inv inventories.
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
		Notes:             "Sphinx objects.inv inventory format, as emitted by sphinx-build and sphobjinv-compatible tooling.",
		ResultsLimitMax:   10000,
		SupportedFilters: []model.FilterCapability{
			{Name: "domain", Description: "Sphinx domain (e.g. py, std)", Type: "string"},
			{Name: "role", Description: "Sphinx role (e.g. class, function)", Type: "string"},
			{Name: "priority", Description: "Sphinx inventory priority", Type: "string"},
		},
	}
}

// InventoryURL derives the objects.inv URL for a base source URL.
func InventoryURL(source string) string {
	return strings.TrimSuffix(source, "/") + "/objects.inv"
}

func (p *InventoryProcessor) Detect(ctx context.Context, source string) (model.Detection, error) {
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
		Kind:       model.DetectionKindInventory,
		Confidence: confidence,
		Timestamp:  time.Now(),
	}, nil
}

// header fields parsed from the first four plaintext lines of objects.inv.
type header struct {
	Project string
	Version string
}

func (p *InventoryProcessor) FilterInventory(
	ctx context.Context, source string, filters map[string]any, details model.InventoryQueryDetails,
) ([]model.InventoryObject, registry.ProjectMetadata, error) {
	invURL := InventoryURL(source)

	body, err := p.proxy.Retrieve(ctx, invURL)
	if err != nil {
		return nil, registry.ProjectMetadata{}, &model.InventoryInaccessibility{Source: invURL, Cause: err}
	}

	hdr, records, err := ParseObjectsInv(body)
	if err != nil {
		return nil, registry.ProjectMetadata{}, &model.InventoryInvalidity{Source: invURL, Cause: err}
	}

	objects := make([]model.InventoryObject, 0, len(records))

	for _, rec := range records {
		if !matchesFilters(rec, filters) {
			continue
		}

		objects = append(objects, rec.toInventoryObject(invURL))
	}

	return objects, registry.ProjectMetadata{Project: hdr.Project, Version: hdr.Version}, nil
}

func matchesFilters(rec record, filters map[string]any) bool {
	for key, want := range filters {
		switch key {
		case "domain":
			if !strings.EqualFold(rec.Domain, fmt.Sprint(want)) {
				return false
			}
		case "role":
			if !strings.EqualFold(rec.Role, fmt.Sprint(want)) {
				return false
			}
		case "priority":
			if fmt.Sprint(rec.Priority) != fmt.Sprint(want) {
				return false
			}
		}
	}

	return true
}

// record is a single parsed line of an objects.inv body.
type record struct {
	Name     string
	Domain   string
	Role     string
	Priority int
	URI      string
	DispName string
}

func (r record) toInventoryObject(locationURL string) model.InventoryObject {
	displayName := r.DispName
	if displayName == "-" {
		displayName = r.Name
	}

	return model.InventoryObject{
		Name:          r.Name,
		URI:           r.URI,
		InventoryType: model.InventorySphinxObjectsInv,
		LocationURL:   locationURL,
		DisplayName:   displayName,
		Specifics: map[string]any{
			"domain":   r.Domain,
			"role":     r.Role,
			"priority": r.Priority,
		},
	}
}

// ParseObjectsInv parses the full objects.inv byte stream: a four-line
// plaintext header followed by a zlib-compressed body of one record per line.
func ParseObjectsInv(data []byte) (header, []record, error) {
	var hdr header

	reader := bufio.NewReader(bytes.NewReader(data))

	for range 4 {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return hdr, nil, fmt.Errorf("objects.inv: truncated header: %w", err)
		}

		line = strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(line, "# Project:"):
			hdr.Project = strings.TrimSpace(strings.TrimPrefix(line, "# Project:"))
		case strings.HasPrefix(line, "# Version:"):
			hdr.Version = strings.TrimSpace(strings.TrimPrefix(line, "# Version:"))
		}
	}

	zr, err := zlib.NewReader(reader)
	if err != nil {
		return hdr, nil, fmt.Errorf("objects.inv: zlib: %w", err)
	}

	defer zr.Close()

	body, err := io.ReadAll(zr)
	if err != nil {
		return hdr, nil, fmt.Errorf("objects.inv: decompress: %w", err)
	}

	records, err := parseBody(body)

	return hdr, records, err
}

func parseBody(body []byte) ([]record, error) {
	var records []record

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		rec, ok := parseLine(line)
		if !ok {
			continue
		}

		records = append(records, rec)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("objects.inv: scan: %w", err)
	}

	return records, nil
}

// parseLine parses a single record line:
// "name domain:role priority location dispname".
func parseLine(line string) (record, bool) {
	fields := strings.SplitN(line, " ", 5)
	if len(fields) < 5 {
		return record{}, false
	}

	name := fields[0]

	domainRole := strings.SplitN(fields[1], ":", 2)
	if len(domainRole) != 2 {
		return record{}, false
	}

	priority, err := strconv.Atoi(fields[2])
	if err != nil {
		priority = 0
	}

	uri := strings.Replace(fields[3], "$", name, 1)
	dispname := fields[4]

	return record{
		Name:     name,
		Domain:   domainRole[0],
		Role:     domainRole[1],
		Priority: priority,
		URI:      uri,
		DispName: dispname,
	}, true
}
