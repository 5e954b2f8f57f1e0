// Command mock-tracker serves canned issue-search responses so a fetch
// run can be pointed at a local backend instead of a live tracker.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"maps"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/containeroo/tinyflags"
	"gopkg.in/yaml.v3"
)

// Config is the mock tracker configuration root.
type Config struct {
	Port        int     `yaml:"port"`
	DataDir     string  `yaml:"dataDir"`
	RandomDelay bool    `yaml:"randomDelay"`
	Routes      []Route `yaml:"routes"`
}

// Route maps one HTTP path to a JSON data file.
type Route struct {
	Path       string    `yaml:"path"`                 // e.g. /rest/api/2/search
	File       string    `yaml:"file"`                 // data file served for this path
	ItemsField string    `yaml:"itemsField,omitempty"` // array to paginate, default "issues"
	Paginate   *Paginate `yaml:"paginate,omitempty"`   // nil serves the file verbatim
}

// Paginate defines window mechanics for a route.
type Paginate struct {
	Location     string `yaml:"location"`               // "query" | "body"
	StartField   string `yaml:"startField"`             // counter name in the response, e.g. "startAt"
	LimitField   string `yaml:"limitField"`             // e.g. "maxResults"
	TotalField   string `yaml:"totalField"`             // e.g. "total"
	ReqStart     string `yaml:"reqStart"`               // request key carrying the offset
	ReqLimit     string `yaml:"reqLimit"`               // request key carrying the window size
	DefaultStart int    `yaml:"defaultStart,omitempty"`
	DefaultLimit int    `yaml:"defaultLimit,omitempty"` // default 50
}

// main starts the mock tracker with a required YAML config.
func main() {
	var (
		flagConfigPath string
		flagLogBody    bool
	)

	tf := tinyflags.NewFlagSet("mock-tracker", tinyflags.ExitOnError)
	tf.StringVar(&flagConfigPath, "config", "", "Path to mock-tracker config.yaml (required)").Value()
	tf.BoolVar(&flagLogBody, "log-body", false, "Log JSON request bodies (may contain secrets)")

	if err := tf.Parse(os.Args[1:]); err != nil {
		log.Fatal("flag parse error:", err)
	}

	if strings.TrimSpace(flagConfigPath) == "" {
		log.Fatal("missing required --config=<path to yaml>")
	}

	cfg, err := loadConfig(flagConfigPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	// absolute stays absolute
	if !filepath.IsAbs(cfg.DataDir) {
		base := filepath.Dir(flagConfigPath)
		cfg.DataDir, _ = filepath.Abs(filepath.Join(base, cfg.DataDir))
	}

	mux := http.NewServeMux()
	for i := range cfg.Routes {
		rt := cfg.Routes[i] // capture per-iteration
		mux.HandleFunc(rt.Path, func(w http.ResponseWriter, r *http.Request) {
			if cfg.RandomDelay {
				applyRandomDelay(200, 1000)
			}
			logRequest(r, flagLogBody)
			serveRoute(w, r, cfg, rt)
		})
		log.Printf("route mounted: %s -> %s", rt.Path, rt.File)
	}

	addr := ":" + strconv.Itoa(cfg.Port)
	log.Printf("Mock tracker listening on %s (data-dir: %s)", addr, cfg.DataDir)
	log.Fatal(http.ListenAndServe(addr, mux))
}

// loadConfig reads and validates the YAML configuration file.
func loadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		cfg.Port = 8081
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./data"
	}

	for i := range cfg.Routes {
		rt := &cfg.Routes[i]
		if strings.TrimSpace(rt.Path) == "" {
			return Config{}, fmt.Errorf("route %d: missing path", i)
		}
		if strings.TrimSpace(rt.File) == "" {
			return Config{}, fmt.Errorf("route %q: missing file", rt.Path)
		}
		if rt.ItemsField == "" {
			rt.ItemsField = "issues"
		}
		if p := rt.Paginate; p != nil && p.DefaultLimit <= 0 {
			p.DefaultLimit = 50
		}
	}

	return cfg, nil
}

// serveRoute answers one request for a configured route.
func serveRoute(w http.ResponseWriter, r *http.Request, cfg Config, rt Route) {
	raw, err := os.ReadFile(filepath.Join(cfg.DataDir, rt.File))
	if err != nil {
		http.Error(w, "mock data not found: "+rt.File, http.StatusNotFound)
		return
	}

	// No pagination, serve the file verbatim.
	if rt.Paginate == nil {
		writeJSON(w, http.StatusOK, raw)
		return
	}

	payload, items, err := decodeItems(raw, rt.ItemsField)
	if err != nil {
		http.Error(w, "invalid mock JSON: "+err.Error(), http.StatusInternalServerError)
		return
	}

	start, limit := requestWindow(r, *rt.Paginate)
	page := buildPage(payload, items, rt.ItemsField, *rt.Paginate, start, limit)

	b, _ := json.Marshal(page) // nolint:errcheck
	writeJSON(w, http.StatusOK, b)
}

// decodeItems parses the data file and pulls out the array to paginate.
func decodeItems(raw []byte, itemsField string) (map[string]any, []any, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, nil, err
	}

	v, ok := payload[itemsField]
	if !ok {
		return nil, nil, fmt.Errorf("itemsField %q not present", itemsField)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, nil, fmt.Errorf("itemsField %q is not an array", itemsField)
	}
	return payload, items, nil
}

// requestWindow extracts start/limit from query or body per route config.
func requestWindow(r *http.Request, p Paginate) (start, limit int) {
	start = p.DefaultStart
	limit = p.DefaultLimit
	if limit <= 0 {
		limit = 50
	}

	if strings.EqualFold(p.Location, "query") {
		if v := r.URL.Query().Get(p.ReqStart); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				start = n
			}
		}
		if v := r.URL.Query().Get(p.ReqLimit); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		return start, limit
	}

	if strings.EqualFold(p.Location, "body") && r.Body != nil {
		defer r.Body.Close() // nolint:errcheck
		b, _ := io.ReadAll(r.Body)
		if len(b) > 0 {
			var m map[string]any
			if json.Unmarshal(b, &m) == nil {
				if v, ok := m[p.ReqStart]; ok {
					if n := asInt(v); n >= 0 {
						start = n
					}
				}
				if v, ok := m[p.ReqLimit]; ok {
					if n := asInt(v); n > 0 {
						limit = n
					}
				}
			}
			// restore body for any downstream reads
			r.Body = io.NopCloser(strings.NewReader(string(b)))
		}
	}
	return start, limit
}

// buildPage slices the items array and injects window counters.
func buildPage(payload map[string]any, items []any, itemsField string, p Paginate, start, limit int) map[string]any {
	total := len(items)

	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	if limit <= 0 {
		limit = 1
	}
	end := min(start+limit, total)

	out := make(map[string]any, len(payload)+3)
	maps.Copy(out, payload)
	out[itemsField] = items[start:end]
	out[p.StartField] = start
	out[p.LimitField] = limit
	out[p.TotalField] = total
	return out
}

// writeJSON writes a JSON response with status and bytes.
func writeJSON(w http.ResponseWriter, status int, raw []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw) // nolint:errcheck
}

// applyRandomDelay sleeps for a random duration between minMs and maxMs.
func applyRandomDelay(minMs, maxMs int) {
	if maxMs <= minMs {
		maxMs = minMs + 1
	}
	delta := rand.Intn(maxMs-minMs) + minMs
	time.Sleep(time.Duration(delta) * time.Millisecond)
}

// logRequest logs method, path, query, headers and optionally the JSON body.
func logRequest(r *http.Request, logBody bool) {
	redacted := http.Header{}
	for k, vv := range r.Header {
		if strings.EqualFold(k, "Authorization") || strings.EqualFold(k, "Cookie") {
			redacted[k] = []string{"<redacted>"}
		} else {
			redacted[k] = vv
		}
	}

	var bodyPreview string
	if logBody && r.Body != nil {
		b, _ := io.ReadAll(r.Body)
		bodyPreview = string(b)
		r.Body = io.NopCloser(strings.NewReader(bodyPreview))
	}

	log.Printf("REQ %s %s?%s headers=%v body=%s",
		r.Method, r.URL.Path, r.URL.RawQuery, redacted, truncateStr(bodyPreview, 2048))
}

// asInt converts numeric JSON values to int, zero on anything else.
func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}

// truncateStr returns at most n bytes of s.
func truncateStr(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
