package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"maps"
	"net/http"
	"net/url"
	"strings"

	"github.com/gi8lino/issuetab/internal/cache"
	"github.com/gi8lino/issuetab/internal/config"
	"github.com/gi8lino/issuetab/internal/fetcher"
	"github.com/gi8lino/issuetab/internal/source"
)

// HTTPProvider represents a single configured upstream (baseURL + auth + client).
type HTTPProvider struct {
	Name   string
	Base   *url.URL
	Auth   *config.AuthConfig
	Client *http.Client
	Cache  *cache.MemCache
}

// NewHTTPProvider constructs an HTTPProvider from config.
func NewHTTPProvider(name string, pc config.Provider) (*HTTPProvider, error) {
	if strings.TrimSpace(pc.BaseURL) == "" {
		return nil, fmt.Errorf("provider %q: missing baseURL", name)
	}
	u, err := url.Parse(pc.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("provider %q: invalid baseURL: %w", name, err)
	}
	return &HTTPProvider{
		Name:   name,
		Base:   u,
		Auth:   &pc.Auth,
		Client: httpClient(pc),
		Cache:  cache.NewMemCache(),
	}, nil
}

// PageFetch executes one request (with optional pagination) against a provider.
type PageFetch struct {
	prov *HTTPProvider
	req  config.Request

	// Canonicalized once so the pagination loop doesn't recompute them.
	method      string      // upper-cased HTTP method, defaulting to GET
	baseHeaders http.Header // canonical headers derived from req.Headers
	baseBody    map[string]any
}

// NewPageFetch prepares a runnable request bound to this provider.
func NewPageFetch(p *HTTPProvider, req config.Request) *PageFetch {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	// Request headers are map[string]string at config level.
	hdr := http.Header{}
	for k, v := range req.Headers {
		if k != "" && v != "" {
			hdr.Set(k, v)
		}
	}

	baseBody := map[string]any{}
	if len(req.BodyJSON) > 0 {
		maps.Copy(baseBody, req.BodyJSON)
	}

	return &PageFetch{
		prov:        p,
		req:         req,
		method:      method,
		baseHeaders: hdr,
		baseBody:    baseBody,
	}
}

// Pages yields every fetched page payload in arrival order. Payloads are
// passed through as-is; whether a page is valid JSON is judged downstream
// under the configured parse policy. Pagination is the exception: the loop
// must read window counters, so an undecodable page ends the stream with
// an error after the page itself was yielded.
func (f *PageFetch) Pages(ctx context.Context) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		if !f.req.Paginate {
			raw, err := f.fetchOnce(ctx, f.req.Query, nil)
			yield(raw, err)
			return
		}

		prevStart := -1 // sentinel to detect no-progress loops
		nextQ := f.req.Query
		var nextBodyRaw []byte

		for pages := 0; pages < maxPageFetches; pages++ {
			raw, err := f.fetchOnce(ctx, nextQ, nextBodyRaw)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(raw, nil) {
				return
			}

			page, err := decodePage(raw)
			if err != nil {
				yield(nil, fmt.Errorf("invalid JSON page: %w", err))
				return
			}

			// Detect "no progress" loops where the backend ignores
			// start/limit and keeps returning the same window.
			curStart := intFrom(page[f.req.Page.StartField])
			if prevStart >= 0 && curStart == prevStart {
				return
			}
			prevStart = curStart

			// Compute next request parameters (stop if total indicates completion).
			ns, nl, ok := nextWindow(f.req.Page, page, pages+1)
			if !ok {
				return
			}

			// Decide where pagination params live and prepare the next request.
			switch strings.ToUpper(strings.TrimSpace(f.req.Page.Location)) {
			case "BODY":
				nextBodyRaw = bodyWithPage(f.baseBody, f.req.Page.ReqStart, f.req.Page.ReqLimit, ns, nl)
				nextQ = f.req.Query // keep base query stable when paginating in body
			default:
				nextQ = queryWithPage(f.req.Query, f.req.Page.ReqStart, f.req.Page.ReqLimit, ns, nl)
				nextBodyRaw = nil
			}
		}
	}
}

// fetchOnce normalizes one request, executes it with auth and cache, and
// returns the raw response payload.
func (f *PageFetch) fetchOnce(ctx context.Context, query map[string]string, bodyRaw []byte) ([]byte, error) {
	// Build exact body bytes and content type once; these bytes also feed the cache key.
	var (
		body        io.Reader
		contentType string
		bodyBytes   []byte
	)
	switch {
	case len(bytes.TrimSpace(bodyRaw)) > 0:
		// Pagination-injected JSON body.
		bodyBytes = bodyRaw
		body = bytes.NewReader(bodyBytes)
		contentType = "application/json"
	case len(f.baseBody) > 0 && strings.TrimSpace(f.req.Body) == "":
		raw, _ := json.Marshal(f.baseBody) // best-effort; upstream may still reject
		bodyBytes = raw
		body = bytes.NewReader(raw)
		contentType = "application/json"
	case strings.TrimSpace(f.req.Body) != "":
		// Raw payload provided (e.g., already-encoded JSON or other types).
		bodyBytes = []byte(f.req.Body)
		body = bytes.NewReader(bodyBytes)
	default:
		// No body at all.
		bodyBytes = nil
		body = nil
	}

	// Clone headers and ensure Content-Type if we constructed a JSON body.
	hdr := f.baseHeaders.Clone()
	if contentType != "" && hdr.Get("Content-Type") == "" {
		hdr.Set("Content-Type", contentType)
	}

	// Normalize: absolute URL + deterministic cache key.
	spec := fetcher.RequestSpec{
		URL:     f.req.Path,
		Method:  f.method,
		Query:   query,
		Headers: hdr,
		Body:    bodyBytes,
	}
	u, cacheKey, err := spec.Normalize(f.prov.Base)
	if err != nil {
		return nil, fmt.Errorf("normalize request: %w", err)
	}

	// Cache lookup if allowed.
	useCache := f.req.TTL > 0 && !fetcher.IsNoCache(ctx)
	if useCache {
		if cached, ok := f.prov.Cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, f.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header = hdr
	applyAuth(req, f.prov.Auth)

	res, err := f.prov.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close() // nolint:errcheck

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("upstream %d: %s", res.StatusCode, string(clip(raw, 2048)))
	}

	if useCache {
		f.prov.Cache.Set(cacheKey, raw, f.req.TTL)
	}
	return raw, nil
}

// decodePage decodes a page into a map using UseNumber to preserve
// integer precision in pagination counters.
func decodePage(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// PageSource adapts compiled fetches into the record stream consumed by
// the flattener. Every fetched page is one record.
type PageSource struct {
	fetches []*PageFetch
}

// Records yields one record per page across all requests, in order.
func (s *PageSource) Records(ctx context.Context) iter.Seq2[source.Record, error] {
	return func(yield func(source.Record, error) bool) {
		seq := 0
		for _, f := range s.fetches {
			page := 0
			for raw, err := range f.Pages(ctx) {
				if err != nil {
					yield(source.Record{}, fmt.Errorf("fetch %s %s: %w", f.prov.Name, f.req.Path, err))
					return
				}
				seq++
				page++
				rec := source.Record{
					Seq:    seq,
					Origin: fmt.Sprintf("%s:%s page %d", f.prov.Name, f.req.Path, page),
					Raw:    raw,
				}
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}
