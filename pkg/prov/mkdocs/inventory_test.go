package mkdocs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emcd/librovore/pkg/cacheproxy"
)

func TestConfigURL(t *testing.T) {
	assert.Equal(t, "https://example.com/mkdocs.yml", ConfigURL("https://example.com"))
	assert.Equal(t, "https://example.com/mkdocs.yml", ConfigURL("https://example.com/"))
}

func TestCapabilitiesRetagsProcessorName(t *testing.T) {
	p := NewInventoryProcessor(nil)

	caps := p.Capabilities()
	assert.Equal(t, ProcessorName, caps.ProcessorName)
	assert.Contains(t, caps.Notes, "MkDocs")
}

func newTestProxy(t *testing.T, handler http.Handler) (*cacheproxy.Proxy, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	proxy := cacheproxy.New(cacheproxy.DefaultConfiguration(), func() *http.Client { return server.Client() })

	return proxy, server
}

func TestDetectAdditiveConfidenceObjectsOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/objects.inv", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/mkdocs.yml", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })

	proxy, server := newTestProxy(t, mux)
	p := NewInventoryProcessor(proxy)

	d, err := p.Detect(t.Context(), server.URL)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, d.Confidence, 0.0001)
	assert.Nil(t, d.Metadata)
}

func TestDetectAdditiveConfidenceCappedWithTheme(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/objects.inv", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/mkdocs.yml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("site_name: Widgets\ntheme:\n  name: material\n"))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })

	proxy, server := newTestProxy(t, mux)
	p := NewInventoryProcessor(proxy)

	d, err := p.Detect(t.Context(), server.URL)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, d.Confidence, 0.0001)
	assert.Equal(t, "material", d.Metadata["theme"])
}

func TestDetectMkDocsYmlOnlyFallsBackToHomepageSniff(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/objects.inv", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	mux.HandleFunc("/mkdocs.yml", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("site_name: Widgets\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body class=\"rst-content\">readthedocs theme</body></html>"))
	})
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })

	proxy, server := newTestProxy(t, mux)
	p := NewInventoryProcessor(proxy)

	d, err := p.Detect(t.Context(), server.URL)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, d.Confidence, 0.0001)
	assert.Equal(t, "readthedocs", d.Metadata["theme"])
}

func TestDetectNoSignalsZeroConfidence(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })

	proxy, server := newTestProxy(t, mux)
	p := NewInventoryProcessor(proxy)

	d, err := p.Detect(t.Context(), server.URL)
	require.NoError(t, err)
	assert.Zero(t, d.Confidence)
	assert.Nil(t, d.Metadata)
}

func TestNormalizeTheme(t *testing.T) {
	assert.Equal(t, "material", normalizeTheme("material"))
	assert.Equal(t, "readthedocs", normalizeTheme("readthedocs"))
	assert.Equal(t, "unrecognized", normalizeTheme("cinder"))
}
