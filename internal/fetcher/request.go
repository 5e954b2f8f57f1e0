package fetcher

import (
	"context"
	"encoding/hex"
	"hash/fnv"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// RequestSpec describes a single HTTP request before normalization.
type RequestSpec struct {
	URL     string
	Method  string
	Query   map[string]string
	Headers http.Header
	Body    []byte
}

// Normalize resolves the path against base, merges query parameters in
// deterministic order and derives the cache key for the final request.
func (r *RequestSpec) Normalize(base *url.URL) (u *url.URL, key string, err error) {
	method := canonicalMethod(r.Method)

	u, err = resolveURL(base, r.URL)
	if err != nil {
		return nil, "", err
	}
	mergeQuery(u, r.Query)

	// the key covers everything that changes a response: method, URL
	// (including the merged query), headers and body
	key = buildCacheKey(method, u, r.Headers, r.Body)
	return u, key, nil
}

// contextKey is a private type for context values in this package.
type contextKey string

const noCacheKey contextKey = "nocache"

// WithNoCache marks ctx so page lookups bypass the cache.
func WithNoCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, noCacheKey, true)
}

// IsNoCache reports whether cache should be bypassed.
func IsNoCache(ctx context.Context) bool {
	v, _ := ctx.Value(noCacheKey).(bool)
	return v
}

// canonicalMethod upper-cases m, defaulting to GET when unset.
func canonicalMethod(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return http.MethodGet
	}
	return strings.ToUpper(m)
}

// resolveURL parses raw and resolves it against base unless it is
// already absolute.
func resolveURL(base *url.URL, raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() && base != nil {
		u = base.ResolveReference(u)
	}
	return u, nil
}

// mergeQuery folds kv into u's query and re-encodes RawQuery. Empty
// keys are ignored; empty values are skipped so "?k=" never appears.
func mergeQuery(u *url.URL, kv map[string]string) {
	if u == nil || len(kv) == 0 {
		return
	}
	q := u.Query()
	for _, k := range slices.Sorted(maps.Keys(kv)) {
		if k == "" || kv[k] == "" {
			continue
		}
		q.Set(k, kv[k])
	}
	u.RawQuery = q.Encode()
}

// buildCacheKey fingerprints method, absolute URL, headers and body
// with FNV-1a 64. Header lines are written in sorted key order with
// the key lowercased and values comma-joined.
func buildCacheKey(method string, u *url.URL, hdr http.Header, body []byte) string {
	h := fnv.New64a()
	h.Write([]byte(method + "\n" + u.String() + "\n")) // nolint:errcheck

	for _, k := range slices.Sorted(maps.Keys(hdr)) {
		line := strings.ToLower(k) + ":" + strings.Join(hdr.Values(k), ",") + "\n"
		h.Write([]byte(line)) // nolint:errcheck
	}

	if len(body) > 0 {
		h.Write(body) // nolint:errcheck
	}
	return hex.EncodeToString(h.Sum(nil))
}
