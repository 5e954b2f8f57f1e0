package providers

import (
	"encoding/json"
	"maps"
	"strconv"
	"strings"

	"github.com/gi8lino/issuetab/internal/config"
)

// maxPageFetches caps the pagination loop for backends that never
// report completion.
const maxPageFetches = 1000

// nextWindow derives the follow-up request window from the counters of
// the page just received. ok is false once the window would reach the
// reported total or the configured page cap is hit.
func nextWindow(cfg config.PageConfig, page map[string]any, seenPages int) (start, limit int, ok bool) {
	if cfg.LimitPages > 0 && seenPages >= cfg.LimitPages {
		return 0, 0, false
	}

	cur := intFrom(page[cfg.StartField])
	limit = intFrom(page[cfg.LimitField])
	total := intFrom(page[cfg.TotalField])

	// Some backends echo the requested page size under the request
	// parameter name instead of the response counter field.
	if limit == 0 && strings.TrimSpace(cfg.ReqLimit) != "" {
		if echoed := intFrom(page[cfg.ReqLimit]); echoed > 0 {
			limit = echoed
		}
	}
	if limit <= 0 {
		limit = 1 // guarantee progress on broken counters
	}

	start = cur + limit
	if total > 0 && start >= total {
		return 0, 0, false
	}
	return start, limit, true
}

// queryWithPage clones q and sets the window parameters on the copy.
func queryWithPage(q map[string]string, reqStart, reqLimit string, start, limit int) map[string]string {
	out := make(map[string]string, len(q)+2)
	maps.Copy(out, q)
	if k := strings.TrimSpace(reqStart); k != "" {
		out[k] = strconv.Itoa(start)
	}
	if k := strings.TrimSpace(reqLimit); k != "" && limit > 0 {
		out[k] = strconv.Itoa(limit)
	}
	return out
}

// bodyWithPage clones base, sets the window fields and marshals the result.
func bodyWithPage(base map[string]any, reqStart, reqLimit string, start, limit int) []byte {
	body := make(map[string]any, len(base)+2)
	maps.Copy(body, base)
	if k := strings.TrimSpace(reqStart); k != "" {
		body[k] = start
	}
	if k := strings.TrimSpace(reqLimit); k != "" && limit > 0 {
		body[k] = limit
	}
	raw, _ := json.Marshal(body) // nolint:errcheck
	return raw
}
