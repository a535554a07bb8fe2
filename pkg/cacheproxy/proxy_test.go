package cacheproxy

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emcd/librovore/pkg/model"
)

func newTestProxy(t *testing.T, handler http.Handler) (*Proxy, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	proxy := New(DefaultConfiguration(), func() *http.Client { return server.Client() })

	return proxy, server
}

func TestProbeHTTPSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/objects.inv", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })

	proxy, server := newTestProxy(t, mux)

	exists, err := proxy.Probe(t.Context(), server.URL+"/objects.inv")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProbeHTTPNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })

	proxy, server := newTestProxy(t, mux)

	exists, err := proxy.Probe(t.Context(), server.URL+"/missing.inv")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRetrieveRespectsRobotsDisallow(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
	})
	mux.HandleFunc("/private/page.html", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("should not be reached"))
	})

	proxy, server := newTestProxy(t, mux)

	_, err := proxy.Retrieve(t.Context(), server.URL+"/private/page.html")
	require.Error(t, err)

	var impermissibility *model.URLImpermissibility
	assert.ErrorAs(t, err, &impermissibility)
}

func TestRetrieveAsTextRejectsBinaryMimetype(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	mux.HandleFunc("/archive.zip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte{0x50, 0x4b, 0x03, 0x04})
	})

	proxy, server := newTestProxy(t, mux)

	_, err := proxy.RetrieveAsText(t.Context(), server.URL+"/archive.zip", "utf-8")
	require.Error(t, err)

	var invalidity *model.HTTPContentTypeInvalidity
	assert.ErrorAs(t, err, &invalidity)
}

func TestRetrieveAsTextDecodesAdvertisedCharset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	mux.HandleFunc("/latin1.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte{'c', 'a', 'f', 0xE9})
	})

	proxy, server := newTestProxy(t, mux)

	text, err := proxy.RetrieveAsText(t.Context(), server.URL+"/latin1.html", "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "café", text)
}

func TestRetrieveAsTextPassesThroughUTF8(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	mux.HandleFunc("/utf8.html", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("café"))
	})

	proxy, server := newTestProxy(t, mux)

	text, err := proxy.RetrieveAsText(t.Context(), server.URL+"/utf8.html", "")
	require.NoError(t, err)
	assert.Equal(t, "café", text)
}

func TestRetrieveFileScheme(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/index.html"
	require.NoError(t, os.WriteFile(path, []byte("<html></html>"), 0o600))

	proxy := New(DefaultConfiguration(), nil)

	body, err := proxy.Retrieve(t.Context(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(body))
}

func TestParseSourceRejectsUnsupportedScheme(t *testing.T) {
	_, err := parseSource("ftp://example.com/file")
	require.Error(t, err)

	var noSupport *model.InventoryURLNoSupport
	assert.ErrorAs(t, err, &noSupport)
}
