package providers

import (
	"fmt"
	"strings"

	"github.com/gi8lino/issuetab/internal/config"
	"github.com/gi8lino/issuetab/internal/source"
)

// Registry maps provider names to HTTPProvider instances.
type Registry map[string]*HTTPProvider

// BuildRegistry constructs a Registry from configured providers.
// Names are folded to lower case so requests match case-insensitively.
func BuildRegistry(cfg map[string]config.Provider) (Registry, error) {
	out := make(Registry, len(cfg))
	for name, pc := range cfg {
		key := strings.ToLower(strings.TrimSpace(name))
		p, err := NewHTTPProvider(key, pc)
		if err != nil {
			return nil, err
		}
		out[key] = p
	}
	return out, nil
}

// BuildSource compiles all configured requests into one reader that
// yields a record per fetched page, in request order.
func BuildSource(reg Registry, reqs []config.Request) (source.Reader, error) {
	fetches := make([]*PageFetch, len(reqs))
	for i := range reqs {
		f, err := reg.compile(reqs[i])
		if err != nil {
			return nil, fmt.Errorf("request %d (%s): %w", i, reqs[i].Path, err)
		}
		fetches[i] = f
	}
	return &PageSource{fetches: fetches}, nil
}

// compile binds a request to its provider using the registry.
func (r Registry) compile(req config.Request) (*PageFetch, error) {
	name := strings.ToLower(strings.TrimSpace(req.Provider))
	p, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", req.Provider)
	}
	return NewPageFetch(p, req), nil
}
