// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bufio"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// httpOnlyPrefix marks HttpOnly cookies in files written by curl and browsers.
const httpOnlyPrefix = "#HttpOnly_"

// LoadCookieFile reads a Netscape/Mozilla cookies.txt file into jar and
// returns the number of cookies loaded. Expired cookies are skipped. Any line
// that is not a comment and does not have seven tab-separated fields makes
// the whole file invalid, in which case nothing is loaded.
func LoadCookieFile(jar http.CookieJar, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening cookie file: %w", err)
	}
	defer f.Close()

	cookies, err := parseCookies(bufio.NewScanner(f), time.Now())
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	// The jar is keyed by URL, so group cookies by the origin they belong to.
	n := 0
	for origin, list := range cookies {
		jar.SetCookies(origin.url(), list)
		n += len(list)
	}
	return n, nil
}

// cookieOrigin identifies the URL a group of cookies is set for.
type cookieOrigin struct {
	host   string
	secure bool
}

func (o cookieOrigin) url() *url.URL {
	u := &url.URL{Scheme: "http", Host: o.host, Path: "/"}
	if o.secure {
		u.Scheme = "https"
	}
	return u
}

// parseCookies decodes cookies.txt lines. Cookies that expired before now are
// dropped; an expiry of 0 denotes a session cookie.
func parseCookies(sc *bufio.Scanner, now time.Time) (map[cookieOrigin][]*http.Cookie, error) {
	out := make(map[cookieOrigin][]*http.Cookie)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			line = strings.TrimPrefix(line, httpOnlyPrefix)
			httpOnly = true
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("line %d: want 7 tab-separated fields, got %d", lineNo, len(fields))
		}
		domain, includeSub, path, secure, expires, name, value := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5], fields[6]

		exp, err := strconv.ParseInt(expires, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad expiry %q: %w", lineNo, expires, err)
		}
		c := &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     path,
			Secure:   strings.EqualFold(secure, "TRUE"),
			HttpOnly: httpOnly,
		}
		if exp > 0 {
			c.Expires = time.Unix(exp, 0)
			if !c.Expires.After(now) {
				continue
			}
		}

		host := strings.TrimPrefix(domain, ".")
		if strings.EqualFold(includeSub, "TRUE") {
			c.Domain = host
		}
		origin := cookieOrigin{host: host, secure: c.Secure}
		out[origin] = append(out[origin], c)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
