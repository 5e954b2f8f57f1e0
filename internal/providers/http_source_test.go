package providers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gi8lino/issuetab/internal/config"
	"github.com/gi8lino/issuetab/internal/fetcher"
	"github.com/gi8lino/issuetab/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectPages drains a page stream into payload slices and a terminal error.
func collectPages(t *testing.T, f *PageFetch) ([][]byte, error) {
	t.Helper()
	var out [][]byte
	for raw, err := range f.Pages(t.Context()) {
		if err != nil {
			return out, err
		}
		out = append(out, raw)
	}
	return out, nil
}

// decodeMap unmarshals one page payload for assertions.
func decodeMap(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestNewHTTPProvider(t *testing.T) {
	t.Parallel()

	t.Run("missing baseURL", func(t *testing.T) {
		t.Parallel()
		_, err := NewHTTPProvider("p1", config.Provider{BaseURL: ""})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `provider "p1": missing baseURL`)
	})

	t.Run("invalid baseURL", func(t *testing.T) {
		t.Parallel()
		_, err := NewHTTPProvider("p1", config.Provider{BaseURL: ":// bad"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `provider "p1": invalid baseURL`)
	})

	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		p, err := NewHTTPProvider("p1", config.Provider{BaseURL: "http://example.com"})
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "p1", p.Name)
		assert.Equal(t, "http://example.com", p.Base.String())
		require.NotNil(t, p.Client)
		require.NotNil(t, p.Cache)
	})
}

func TestPageFetch_SinglePage_JSONBody_AndCache(t *testing.T) {
	t.Parallel()

	t.Run("single page with JSON body and cache", func(t *testing.T) {
		t.Parallel()

		var hits int
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			b, _ := io.ReadAll(r.Body)
			_ = r.Body.Close()
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ok":  true,
				"ct":  r.Header.Get("Content-Type"),
				"bdy": string(b),
			})
		}))
		t.Cleanup(ts.Close)

		p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
		require.NoError(t, err)

		f := NewPageFetch(p, config.Request{
			Provider: "p",
			Method:   http.MethodPost,
			Path:     "/anything",
			TTL:      500 * time.Millisecond,
			BodyJSON: map[string]any{"a": 1},
			Headers:  map[string]string{"X-Req": "1"}, // no Content-Type on purpose
		})

		// 1st stream -> upstream hit
		pages, err := collectPages(t, f)
		require.NoError(t, err)
		require.Len(t, pages, 1)

		page0 := decodeMap(t, pages[0])
		assert.Equal(t, true, page0["ok"])
		assert.Equal(t, "application/json", page0["ct"])
		assert.Contains(t, page0["bdy"].(string), `"a":1`)

		// 2nd stream -> cache hit, upstream still 1
		_, err = collectPages(t, f)
		require.NoError(t, err)
		assert.Equal(t, 1, hits, "expected cache hit on second stream")
	})

	t.Run("no-cache context bypasses the page cache", func(t *testing.T) {
		t.Parallel()

		var hits int
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		t.Cleanup(ts.Close)

		p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
		require.NoError(t, err)

		f := NewPageFetch(p, config.Request{Provider: "p", Path: "/x", TTL: time.Hour})

		for raw, err := range f.Pages(t.Context()) {
			require.NoError(t, err)
			require.NotEmpty(t, raw)
		}
		assert.Equal(t, 1, hits)

		ctx := fetcher.WithNoCache(t.Context())
		for raw, err := range f.Pages(ctx) {
			require.NoError(t, err)
			require.NotEmpty(t, raw)
		}
		assert.Equal(t, 2, hits, "no-cache stream should reach upstream")
	})
}

func TestPageFetch_RawBody_AndHeaderOverride(t *testing.T) {
	t.Parallel()

	t.Run("raw body respected", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			_ = r.Body.Close()
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ct":  r.Header.Get("Content-Type"),
				"bdy": string(b),
				"m":   r.Method,
			})
		}))
		t.Cleanup(ts.Close)

		p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
		require.NoError(t, err)

		f := NewPageFetch(p, config.Request{
			Provider: "p",
			Method:   http.MethodPut,
			Path:     "/raw",
			Body:     "hello",
			Headers:  map[string]string{"Content-Type": "text/plain"},
		})
		pages, err := collectPages(t, f)
		require.NoError(t, err)
		require.Len(t, pages, 1)

		page0 := decodeMap(t, pages[0])
		assert.Equal(t, "text/plain", page0["ct"])
		assert.Equal(t, "hello", page0["bdy"])
		assert.Equal(t, "PUT", page0["m"])
	})

	t.Run("BodyJSON but Content-Type preset -> do not override", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			_ = r.Body.Close()
			_ = json.NewEncoder(w).Encode(map[string]any{
				"ct":  r.Header.Get("Content-Type"),
				"bdy": string(b),
			})
		}))
		t.Cleanup(ts.Close)

		p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
		require.NoError(t, err)

		f := NewPageFetch(p, config.Request{
			Provider: "p",
			Method:   http.MethodPost,
			Path:     "/json",
			BodyJSON: map[string]any{"x": 1},
			Headers:  map[string]string{"Content-Type": "application/foo"},
		})
		pages, err := collectPages(t, f)
		require.NoError(t, err)
		require.Len(t, pages, 1)

		page0 := decodeMap(t, pages[0])
		assert.Equal(t, "application/foo", page0["ct"])
		assert.Contains(t, page0["bdy"].(string), `"x":1`)
	})
}

func TestPageFetch_Paginated_QueryParams(t *testing.T) {
	t.Parallel()

	// Simulate a dataset of 5 issues; pagination via query s,l
	data := []int{1, 2, 3, 4, 5}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		// parse ints, default 0/2 for robustness in this test
		start, limit := 0, 2
		if s := q.Get("s"); s != "" {
			start = testutils.AtoiSafe(s)
		}
		if l := q.Get("l"); l != "" {
			limit = testutils.AtoiSafe(l)
		}
		end := min(start+limit, len(data))
		issues := make([]map[string]any, 0, end-start)
		for _, v := range data[start:end] {
			issues = append(issues, map[string]any{"id": v})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"start":  start,
			"limit":  limit,
			"total":  len(data),
			"issues": issues,
		})
	}))
	t.Cleanup(ts.Close)

	p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
	require.NoError(t, err)

	f := NewPageFetch(p, config.Request{
		Provider: "p",
		Method:   http.MethodGet,
		Path:     "/items",
		Paginate: true,
		Page: config.PageConfig{
			Location:   "query",
			StartField: "start",
			LimitField: "limit",
			TotalField: "total",
			ReqStart:   "s",
			ReqLimit:   "l",
		},
	})

	pages, err := collectPages(t, f)
	require.NoError(t, err)
	require.Len(t, pages, 3, "5 items with limit=2 -> 3 pages")

	var ids []int
	for _, raw := range pages {
		page := decodeMap(t, raw)
		for _, it := range page["issues"].([]any) {
			ids = append(ids, testutils.AtoiAny(it.(map[string]any)["id"]))
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids)
}

func TestPageFetch_Paginated_Body(t *testing.T) {
	t.Parallel()

	// echo pagination from JSON body fields "startAt","maxResults"
	data := []int{10, 11, 12}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = r.Body.Close()

		start := testutils.AtoiAny(body["startAt"])
		limit := testutils.AtoiAny(body["maxResults"])
		if limit <= 0 {
			limit = 1
		}
		end := min(start+limit, len(data))
		items := make([]map[string]any, 0, end-start)
		for _, v := range data[start:end] {
			items = append(items, map[string]any{"id": v})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"startAt":    start,
			"maxResults": limit,
			"total":      len(data),
			"items":      items,
		})
	}))
	t.Cleanup(ts.Close)

	p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
	require.NoError(t, err)

	f := NewPageFetch(p, config.Request{
		Provider: "p",
		Method:   http.MethodPost,
		Path:     "/body",
		Paginate: true,
		Page: config.PageConfig{
			Location:   "body",
			StartField: "startAt",
			LimitField: "maxResults",
			TotalField: "total",
			ReqStart:   "startAt",
			ReqLimit:   "maxResults",
		},
		BodyJSON: map[string]any{"constant": "x"}, // retained and merged with pagination
	})

	pages, err := collectPages(t, f)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	var ids []int
	for _, raw := range pages {
		page := decodeMap(t, raw)
		for _, it := range page["items"].([]any) {
			ids = append(ids, testutils.AtoiAny(it.(map[string]any)["id"]))
		}
	}
	assert.Equal(t, []int{10, 11, 12}, ids)
}

func TestPageFetch_Paginated_Stops(t *testing.T) {
	t.Parallel()

	t.Run("no progress", func(t *testing.T) {
		t.Parallel()

		// backend ignores pagination params and repeats the same window
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"start":0,"limit":2,"total":100,"items":[{"id":1},{"id":2}]}`))
		}))
		t.Cleanup(ts.Close)

		p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
		require.NoError(t, err)

		f := NewPageFetch(p, config.Request{
			Provider: "p",
			Path:     "/stuck",
			Paginate: true,
			Page: config.PageConfig{
				StartField: "start",
				LimitField: "limit",
				TotalField: "total",
				ReqStart:   "s",
				ReqLimit:   "l",
			},
		})

		pages, err := collectPages(t, f)
		require.NoError(t, err)
		assert.Len(t, pages, 2, "second identical window should end the loop")
	})

	t.Run("limitPages cap", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := testutils.AtoiSafe(r.URL.Query().Get("s"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"start": start,
				"limit": 2,
				"total": 100,
				"items": []map[string]any{{"id": start}},
			})
		}))
		t.Cleanup(ts.Close)

		p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
		require.NoError(t, err)

		f := NewPageFetch(p, config.Request{
			Provider: "p",
			Path:     "/capped",
			Paginate: true,
			Page: config.PageConfig{
				StartField: "start",
				LimitField: "limit",
				TotalField: "total",
				ReqStart:   "s",
				ReqLimit:   "l",
				LimitPages: 2,
			},
		})

		pages, err := collectPages(t, f)
		require.NoError(t, err)
		assert.Len(t, pages, 2)
	})

	t.Run("undecodable page ends the stream with an error", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`this is not json`))
		}))
		t.Cleanup(ts.Close)

		p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
		require.NoError(t, err)

		f := NewPageFetch(p, config.Request{
			Provider: "p",
			Path:     "/garbage",
			Paginate: true,
			Page:     config.PageConfig{StartField: "start", LimitField: "limit", TotalField: "total"},
		})

		pages, err := collectPages(t, f)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON page")
		require.Len(t, pages, 1, "the fetched page is still yielded before the loop fails")
		assert.Equal(t, "this is not json", string(pages[0]))
	})
}

func TestPageFetch_UpstreamError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
	require.NoError(t, err)

	f := NewPageFetch(p, config.Request{Provider: "p", Path: "/fail"})

	pages, err := collectPages(t, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 500")
	assert.Contains(t, err.Error(), "boom")
	assert.Empty(t, pages)
}

func TestDecodePage(t *testing.T) {
	t.Parallel()

	t.Run("empty -> empty map", func(t *testing.T) {
		t.Parallel()
		out, err := decodePage(nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("number preserved as json.Number", func(t *testing.T) {
		t.Parallel()
		out, err := decodePage([]byte(`{"n":9007199254740993}`))
		require.NoError(t, err)

		v, ok := out["n"].(json.Number)
		require.True(t, ok, "expected json.Number, got %T", out["n"])
		assert.Equal(t, "9007199254740993", v.String())
	})
}

func TestPageSource_Records(t *testing.T) {
	t.Parallel()

	t.Run("origins and seq across requests", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"path": r.URL.Path})
		}))
		t.Cleanup(ts.Close)

		p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
		require.NoError(t, err)

		src := &PageSource{fetches: []*PageFetch{
			NewPageFetch(p, config.Request{Provider: "p", Path: "/a"}),
			NewPageFetch(p, config.Request{Provider: "p", Path: "/b"}),
		}}

		var seqs []int
		var origins []string
		for rec, err := range src.Records(t.Context()) {
			require.NoError(t, err)
			seqs = append(seqs, rec.Seq)
			origins = append(origins, rec.Origin)
		}
		assert.Equal(t, []int{1, 2}, seqs)
		assert.Equal(t, []string{"p:/a page 1", "p:/b page 1"}, origins)
	})

	t.Run("non-JSON payload passes through", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`plainly broken`))
		}))
		t.Cleanup(ts.Close)

		p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
		require.NoError(t, err)

		src := &PageSource{fetches: []*PageFetch{
			NewPageFetch(p, config.Request{Provider: "p", Path: "/odd"}),
		}}

		var got []string
		for rec, err := range src.Records(t.Context()) {
			require.NoError(t, err)
			got = append(got, string(rec.Raw))
		}
		assert.Equal(t, []string{"plainly broken"}, got)
	})

	t.Run("fetch error carries provider and path", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusNotFound)
		}))
		t.Cleanup(ts.Close)

		p, err := NewHTTPProvider("p", config.Provider{BaseURL: ts.URL})
		require.NoError(t, err)

		src := &PageSource{fetches: []*PageFetch{
			NewPageFetch(p, config.Request{Provider: "p", Path: "/missing"}),
		}}

		var streamErr error
		for _, err := range src.Records(t.Context()) {
			if err != nil {
				streamErr = err
				break
			}
		}
		require.Error(t, streamErr)
		assert.Contains(t, streamErr.Error(), "fetch p /missing")
		assert.Contains(t, streamErr.Error(), "upstream 404")
	})
}
