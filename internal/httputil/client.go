// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil builds the HTTP client shared by every stage that talks
// to the network.
package httputil

import (
	"crypto/tls"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/pdiddy/paper-downloader/pkg/types"
)

// DefaultUserAgent is sent when the configuration names none.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// DefaultTimeout bounds a single request when the configuration names none.
const DefaultTimeout = 60 * time.Second

// NewClient returns a client that replays the cookies in cfg.CookieFile,
// skips TLS certificate verification, and sets the configured User-Agent on
// every request. A missing or malformed cookie file leaves the jar empty.
func NewClient(cfg types.HTTPConfig, logger *slog.Logger) *http.Client {
	if logger == nil {
		logger = slog.Default()
	}

	jar, err := newJar()
	if err != nil {
		// cookiejar.New never returns an error.
		panic(err)
	}
	if cfg.CookieFile != "" {
		n, err := LoadCookieFile(jar, cfg.CookieFile)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			logger.Debug("no cookie file, using empty jar", "path", cfg.CookieFile)
		case err != nil:
			logger.Warn("cookie file not loaded, using empty jar", "path", cfg.CookieFile, "error", err)
		default:
			logger.Debug("loaded cookies", "path", cfg.CookieFile, "count", n)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec

	return &http.Client{
		Jar:       jar,
		Timeout:   timeout,
		Transport: &userAgentTransport{base: transport, userAgent: ua},
	}
}

func newJar() (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

// userAgentTransport sets the User-Agent header unless the request already
// carries one.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}
