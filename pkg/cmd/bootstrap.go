package cmd

import (
	"time"

	"github.com/emcd/librovore/pkg/cacheproxy"
	"github.com/emcd/librovore/pkg/core"
	"github.com/emcd/librovore/pkg/prov/mkdocs"
	"github.com/emcd/librovore/pkg/prov/pydoctor"
	"github.com/emcd/librovore/pkg/prov/rustdoc"
	"github.com/emcd/librovore/pkg/prov/sphinx"
	"github.com/emcd/librovore/pkg/registry"
)

// extensionEnabled reports whether the named built-in processor is enabled,
// defaulting to true when the extensions list carries no entry for it.
func extensionEnabled(extensions []ExtensionConfig, name string) bool {
	for _, ext := range extensions {
		if ext.Name == name {
			return ext.Enabled
		}
	}

	return true
}

// bootstrap constructs the cache proxy, the processor registry with every
// built-in processor registered (subject to cfg.Extensions), the detection
// cache, and the orchestration service that every subcommand shares.
func bootstrap(cfg *appConfig) *core.Service {
	proxyCfg := cacheproxy.DefaultConfiguration()
	proxyCfg.UserAgent = cfg.Cache.UserAgent
	proxyCfg.SuccessTTL = time.Duration(cfg.Cache.SuccessTTLSeconds) * time.Second
	proxyCfg.ErrorTTL = time.Duration(cfg.Cache.ErrorTTLSeconds) * time.Second
	proxyCfg.ProbeEntriesMax = cfg.Cache.ProbeEntriesMax
	proxyCfg.ContentMemoryMax = int64(cfg.Cache.ContentMemoryMaxMB) * 1024 * 1024

	proxy := cacheproxy.New(proxyCfg, nil)

	reg := registry.New()

	if extensionEnabled(cfg.Extensions, sphinx.ProcessorName) {
		reg.RegisterInventory(sphinx.NewInventoryProcessor(proxy))
		reg.RegisterStructure(sphinx.NewStructureProcessor(proxy))
	}

	if extensionEnabled(cfg.Extensions, pydoctor.ProcessorName) {
		reg.RegisterInventory(pydoctor.NewInventoryProcessor(proxy))
		reg.RegisterStructure(pydoctor.NewStructureProcessor(proxy))
	}

	if extensionEnabled(cfg.Extensions, rustdoc.ProcessorName) {
		reg.RegisterInventory(rustdoc.NewInventoryProcessor(proxy))
		reg.RegisterStructure(rustdoc.NewStructureProcessor(proxy))
	}

	if extensionEnabled(cfg.Extensions, mkdocs.ProcessorName) {
		reg.RegisterInventory(mkdocs.NewInventoryProcessor(proxy))
		reg.RegisterStructure(mkdocs.NewStructureProcessor(proxy))
	}

	detectionTTL := time.Duration(cfg.Detection.TTLSeconds) * time.Second
	detection := registry.NewDetectionCache(detectionTTL)

	return core.New(reg, detection, nil)
}
