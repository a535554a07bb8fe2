package cacheproxy

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/emcd/librovore/pkg/model"
)

// robotsRecord is the cached per-domain robots.txt state: the parsed group
// for our user agent (nil means "allow everything", used both for genuine
// absence of restrictions and for the permissive sentinel installed after a
// fetch failure) plus the earliest time we may issue another request.
type robotsRecord struct {
	nextAllowed time.Time
	group       *robotstxt.Group
}

// robotsCache fetches, parses, and caches robots.txt per host, and
// sequences per-host request timing according to any Crawl-delay directive.
type robotsCache struct {
	entries   map[string]*robotsRecord
	clientFor func() *http.Client
	sleep     func(context.Context, time.Duration)
	cfg       Configuration
	mu        sync.Mutex
}

func newRobotsCache(cfg Configuration, clientFor func() *http.Client, sleep func(context.Context, time.Duration)) *robotsCache {
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()

			select {
			case <-t.C:
			case <-ctx.Done():
			}
		}
	}

	return &robotsCache{
		entries:   make(map[string]*robotsRecord),
		clientFor: clientFor,
		sleep:     sleep,
		cfg:       cfg,
	}
}

// check enforces the robots.txt gate for u, blocking for any outstanding
// crawl-delay and returning model.URLImpermissibility if the path is
// disallowed for the configured user agent.
func (c *robotsCache) check(ctx context.Context, u *url.URL) error {
	domain := u.Scheme + "://" + u.Host

	rec := c.recordFor(ctx, domain)

	if rec.group != nil && !rec.group.Test(u.Path) {
		return &model.URLImpermissibility{URL: u.String(), UserAgent: c.cfg.UserAgent}
	}

	c.mu.Lock()
	remainder := time.Until(rec.nextAllowed)
	c.mu.Unlock()

	if remainder > 0 {
		c.sleep(ctx, remainder)
	}

	return nil
}

func (c *robotsCache) recordFor(ctx context.Context, domain string) *robotsRecord {
	c.mu.Lock()

	if rec, ok := c.entries[domain]; ok {
		c.mu.Unlock()
		return rec
	}

	c.mu.Unlock()

	rec := c.fetch(ctx, domain)

	c.mu.Lock()
	if existing, ok := c.entries[domain]; ok {
		c.mu.Unlock()
		return existing
	}

	c.entries[domain] = rec
	c.mu.Unlock()

	return rec
}

// fetch retrieves and parses domain's robots.txt. Any network error, parse
// error, or 4xx response results in a permissive record (group == nil),
// matching the original's "any failure allows access" policy.
func (c *robotsCache) fetch(ctx context.Context, domain string) *robotsRecord {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RobotsDuration)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, domain+"/robots.txt", nil)
	if err != nil {
		return &robotsRecord{}
	}

	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.clientFor().Do(req)
	if err != nil {
		return &robotsRecord{}
	}

	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &robotsRecord{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &robotsRecord{}
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return &robotsRecord{}
	}

	group := data.FindGroup(c.cfg.UserAgent)

	rec := &robotsRecord{group: group}

	if group != nil && group.CrawlDelay > 0 {
		rec.nextAllowed = time.Now().Add(group.CrawlDelay)
	}

	return rec
}
