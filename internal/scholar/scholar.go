// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scholar queries Google Scholar result pages and parses them into
// records. It implements resolve.Index.
package scholar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/pdiddy/paper-downloader/pkg/types"
)

// scholarBase is the index root. Tests point it at an httptest server.
var scholarBase = "https://scholar.google.com"

const (
	searchPath = "/scholar"

	defaultMaxResults       = 20
	defaultClusterCacheSize = 256
	clusterCacheTTL         = 12 * time.Hour
)

// Client issues Scholar queries over a shared HTTP client.
type Client struct {
	http       *resty.Client
	maxResults int
	clusters   *expirable.LRU[string, []types.ScholarRecord]
	logger     *slog.Logger
}

// NewClient returns a Scholar client that sends its requests through hc,
// which carries the cookie jar, TLS settings and User-Agent.
func NewClient(hc *http.Client, cfg types.ScholarConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	cacheSize := cfg.ClusterCacheSize
	if cacheSize <= 0 {
		cacheSize = defaultClusterCacheSize
	}

	rc := resty.NewWithClient(hc)
	rc.SetBaseURL(scholarBase)
	rc.SetHeader("Accept", "text/html")
	rc.SetLogger(restyLogger{logger})
	if cfg.UserAgent != "" {
		rc.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &Client{
		http:       rc,
		maxResults: maxResults,
		clusters:   expirable.NewLRU[string, []types.ScholarRecord](cacheSize, nil, clusterCacheTTL),
		logger:     logger,
	}
}

// SearchPhrase returns the records whose text contains phrase exactly.
func (c *Client) SearchPhrase(ctx context.Context, phrase string) ([]types.ScholarRecord, error) {
	return c.query(ctx, map[string]string{
		"as_epq": phrase,
		"num":    strconv.Itoa(c.maxResults),
	})
}

// SearchWords returns the records matching all words of query.
func (c *Client) SearchWords(ctx context.Context, query string) ([]types.ScholarRecord, error) {
	return c.query(ctx, map[string]string{
		"as_q": query,
		"num":  strconv.Itoa(c.maxResults),
	})
}

// Cluster returns every version Scholar groups under clusterID. Results are
// cached for the lifetime of the client.
func (c *Client) Cluster(ctx context.Context, clusterID string) ([]types.ScholarRecord, error) {
	if recs, ok := c.clusters.Get(clusterID); ok {
		c.logger.Debug("cluster cache hit", "cluster", clusterID)
		return recs, nil
	}
	recs, err := c.query(ctx, map[string]string{
		"cluster": clusterID,
		"num":     strconv.Itoa(c.maxResults),
	})
	if err != nil {
		return nil, err
	}
	c.clusters.Add(clusterID, recs)
	return recs, nil
}

func (c *Client) query(ctx context.Context, params map[string]string) ([]types.ScholarRecord, error) {
	params["hl"] = "en"
	params["as_sdt"] = "0,5"

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(searchPath)
	if err != nil {
		return nil, fmt.Errorf("scholar request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("scholar returned HTTP %d", resp.StatusCode())
	}

	recs, err := ParseResults(bytes.NewReader(resp.Body()), resp.RawResponse.Request.URL.String())
	if err != nil {
		return nil, err
	}
	c.logger.Debug("scholar query", "params", params, "records", len(recs))
	return recs, nil
}

// ParseResults extracts records from a Scholar result page. Relative links
// are resolved against pageURL.
func ParseResults(r io.Reader, pageURL string) ([]types.ScholarRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing scholar page: %w", err)
	}
	base, _ := url.Parse(pageURL)

	var recs []types.ScholarRecord
	doc.Find("div.gs_r").Each(func(_ int, s *goquery.Selection) {
		if s.Find("div.gs_ri").Length() == 0 && s.Find("h3.gs_rt").Length() == 0 {
			return
		}
		recs = append(recs, parseRecord(s, base))
	})
	return recs, nil
}

func parseRecord(s *goquery.Selection, base *url.URL) types.ScholarRecord {
	var rec types.ScholarRecord

	if h3 := s.Find("h3.gs_rt").First(); h3.Length() > 0 {
		var title string
		if a := h3.Find("a").First(); a.Length() > 0 {
			title = a.Text()
		} else {
			// Unlinked titles carry [CITATION] or [BOOK] markers in spans.
			h3 = h3.Clone()
			h3.Find("span").Remove()
			title = h3.Text()
		}
		if title = normalizeSpace(title); title != "" {
			rec.Title = &title
		}
	}

	if href, ok := s.Find("div.gs_ggs a, div.gs_or_ggsm a").First().Attr("href"); ok && href != "" {
		link := absolute(base, href)
		rec.PDFURL = &link
	}

	// "All N versions" links carry the cluster id. Single-version papers only
	// have "Cited by N", whose cites id is the same cluster id.
	var cites string
	s.Find("div.gs_fl a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}
		u, err := url.Parse(href)
		if err != nil {
			return true
		}
		q := u.Query()
		if id := q.Get("cluster"); id != "" {
			rec.ClusterID = &id
			return false
		}
		if id := q.Get("cites"); id != "" && cites == "" {
			cites = id
		}
		return true
	})
	if rec.ClusterID == nil && cites != "" {
		rec.ClusterID = &cites
	}
	return rec
}

func absolute(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// restyLogger routes resty's own diagnostics through slog.
type restyLogger struct {
	l *slog.Logger
}

func (r restyLogger) Errorf(format string, v ...any) { r.l.Error(fmt.Sprintf(format, v...)) }
func (r restyLogger) Warnf(format string, v ...any)  { r.l.Warn(fmt.Sprintf(format, v...)) }
func (r restyLogger) Debugf(format string, v ...any) { r.l.Debug(fmt.Sprintf(format, v...)) }
