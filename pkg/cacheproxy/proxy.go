package cacheproxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/emcd/librovore/pkg/model"
)

// ClientFactory produces an *http.Client on demand, injected so tests can
// substitute a deterministic http.RoundTripper. This is the cache proxy's
// main test seam.
type ClientFactory func() *http.Client

// Proxy is the polite, deduplicated, two-tier HTTP/file cache described in
// the cache-proxy component: a probe cache, a content cache, and a
// robots.txt-honoring gate, all keyed by URL.
type Proxy struct {
	clientFor ClientFactory
	probes    *probeCache
	content   *contentCache
	robots    *robotsCache
	inflight  *requestMutexes
	cfg       Configuration
}

// New constructs a Proxy. clientFor may be nil to use http.DefaultClient.
func New(cfg Configuration, clientFor ClientFactory) *Proxy {
	if clientFor == nil {
		clientFor = func() *http.Client { return http.DefaultClient }
	}

	return &Proxy{
		clientFor: clientFor,
		probes:    newProbeCache(cfg),
		content:   newContentCache(cfg),
		robots:    newRobotsCache(cfg, clientFor, nil),
		inflight:  newRequestMutexes(),
		cfg:       cfg,
	}
}

var textualMimetypes = map[string]bool{
	"application/ecmascript": true,
	"application/javascript": true,
	"application/json":       true,
	"application/ld+json":    true,
	"application/xml":        true,
	"application/yaml":       true,
	"application/x-yaml":     true,
	"image/svg+xml":          true,
}

func isTextualMimetype(mimetype string) bool {
	if strings.HasPrefix(mimetype, "text/") {
		return true
	}

	return textualMimetypes[mimetype]
}

// Probe reports whether url exists: a filesystem check for file/empty
// scheme, or an HTTP HEAD-equivalent for http/https. Fetch errors do not
// surface from Probe; they are cached and the method returns false. A URL
// that cannot be parsed or has an unsupported scheme is returned as an error.
func (p *Proxy) Probe(ctx context.Context, rawurl string) (bool, error) {
	u, err := parseSource(rawurl)
	if err != nil {
		return false, err
	}

	now := time.Now()

	if cached, ok := p.probes.access(rawurl, now); ok {
		return cached.Value, nil
	}

	release := p.inflight.acquire("probe:" + rawurl)
	defer release()

	if cached, ok := p.probes.access(rawurl, now); ok {
		return cached.Value, nil
	}

	result := p.probeUpstream(ctx, u)
	p.probes.store(rawurl, result, time.Now())

	return result.Value, nil
}

func (p *Proxy) probeUpstream(ctx context.Context, u *url.URL) Result[bool] {
	switch scheme(u) {
	case "file", "":
		_, err := os.Stat(u.Path)
		return Result[bool]{Value: err == nil}
	case "http", "https":
		if err := p.robots.check(ctx, u); err != nil {
			return Result[bool]{Err: err}
		}

		reqCtx, cancel := context.WithTimeout(ctx, p.cfg.ProbeDurationMax)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, u.String(), nil)
		if err != nil {
			return Result[bool]{Err: err}
		}

		req.Header.Set("User-Agent", p.cfg.UserAgent)

		resp, err := p.clientFor().Do(req)
		if err != nil {
			return Result[bool]{Err: err}
		}

		defer resp.Body.Close()

		return Result[bool]{Value: resp.StatusCode < http.StatusBadRequest}
	default:
		return Result[bool]{Value: false}
	}
}

// Retrieve fetches url's body, deduplicating concurrent callers and
// returning a cached error on subsequent calls within error_ttl.
func (p *Proxy) Retrieve(ctx context.Context, rawurl string) ([]byte, error) {
	value, err := p.retrieve(ctx, rawurl)
	if err != nil {
		return nil, err
	}

	return value.Body, nil
}

// RetrieveAsText fetches url's body, validates the mimetype is textual, and
// decodes it using the charset advertised in Content-Type (falling back to
// charsetDefault).
func (p *Proxy) RetrieveAsText(ctx context.Context, rawurl, charsetDefault string) (string, error) {
	value, err := p.retrieve(ctx, rawurl)
	if err != nil {
		return "", err
	}

	mimetype := value.Headers["content-type-mime"]
	if mimetype != "" && !isTextualMimetype(mimetype) {
		return "", &model.HTTPContentTypeInvalidity{URL: rawurl, Mimetype: mimetype, Context: "retrieve_as_text"}
	}

	label := value.Headers["content-type-charset"]
	if label == "" {
		label = charsetDefault
	}

	if label == "" || strings.EqualFold(label, "utf-8") || strings.EqualFold(label, "utf8") {
		return string(value.Body), nil
	}

	reader, err := charset.NewReaderLabel(label, bytes.NewReader(value.Body))
	if err != nil {
		return string(value.Body), nil
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(value.Body), nil
	}

	return string(decoded), nil
}

func (p *Proxy) retrieve(ctx context.Context, rawurl string) (contentValue, error) {
	u, err := parseSource(rawurl)
	if err != nil {
		return contentValue{}, err
	}

	now := time.Now()

	if cached, ok := p.content.access(rawurl, now); ok {
		return cached.Value, cached.Err
	}

	release := p.inflight.acquire("retrieve:" + rawurl)
	defer release()

	if cached, ok := p.content.access(rawurl, now); ok {
		return cached.Value, cached.Err
	}

	result := p.retrieveUpstream(ctx, u)
	p.content.store(rawurl, result, time.Now())

	return result.Value, result.Err
}

func (p *Proxy) retrieveUpstream(ctx context.Context, u *url.URL) Result[contentValue] {
	switch scheme(u) {
	case "file", "":
		body, err := os.ReadFile(u.Path)
		if err != nil {
			return Result[contentValue]{Err: &model.DocumentationInaccessibility{URL: u.String(), Cause: err}}
		}

		return Result[contentValue]{Value: contentValue{Body: body, Headers: map[string]string{}}}
	case "http", "https":
		if err := p.robots.check(ctx, u); err != nil {
			return Result[contentValue]{Err: err}
		}

		reqCtx, cancel := context.WithTimeout(ctx, p.cfg.RetrieveDuration)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
		if err != nil {
			return Result[contentValue]{Err: &model.DocumentationInaccessibility{URL: u.String(), Cause: err}}
		}

		req.Header.Set("User-Agent", p.cfg.UserAgent)

		resp, err := p.clientFor().Do(req)
		if err != nil {
			return Result[contentValue]{Err: &model.DocumentationInaccessibility{URL: u.String(), Cause: err}}
		}

		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			err := fmt.Errorf("status %d", resp.StatusCode)
			return Result[contentValue]{Err: &model.DocumentationInaccessibility{URL: u.String(), Cause: err}}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return Result[contentValue]{Err: &model.DocumentationInaccessibility{URL: u.String(), Cause: err}}
		}

		headers := map[string]string{}

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			if mimetype, params, err := mime.ParseMediaType(ct); err == nil {
				headers["content-type-mime"] = mimetype

				if cs := params["charset"]; cs != "" {
					headers["content-type-charset"] = cs
				}
			}
		}

		return Result[contentValue]{Value: contentValue{Body: body, Headers: headers}}
	default:
		err := fmt.Errorf("scheme %q not supported", scheme(u))
		return Result[contentValue]{Err: &model.DocumentationInaccessibility{URL: u.String(), Cause: err}}
	}
}

func scheme(u *url.URL) string {
	return strings.ToLower(u.Scheme)
}

// parseSource parses a source string, treating a bare filesystem path (no
// scheme) as a file URL per the URL data model: http, https, file, and
// empty are the only accepted forms.
func parseSource(rawurl string) (*url.URL, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, &model.InventoryURLInvalidity{URL: rawurl, Cause: err}
	}

	switch scheme(u) {
	case "", "file", "http", "https":
		return u, nil
	default:
		return nil, &model.InventoryURLNoSupport{URL: rawurl, Scheme: u.Scheme}
	}
}
