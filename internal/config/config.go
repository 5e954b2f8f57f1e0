package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/containeroo/resolver"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads the pipeline configuration from the given path.
// Unknown fields are rejected.
func LoadConfig(path string) (PipelineConfig, error) {
	cfg := PipelineConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ValidateConfig checks the consistency of a pipeline config and then
// resolves auth secret indirections in place.
func ValidateConfig(cfg *PipelineConfig) error {
	var errs []string

	seen := make(map[string]string, len(cfg.Columns))
	for i, col := range cfg.Columns {
		label := fmt.Sprintf("column[%d]", i)
		if col.Name != "" {
			label += fmt.Sprintf(" (%s)", col.Name)
		}

		name := strings.TrimSpace(col.Name)
		if name == "" {
			errs = append(errs, fmt.Sprintf("%s: name is required", label))
		} else if other, dup := seen[name]; dup {
			errs = append(errs, fmt.Sprintf("%s: name already used by %s", label, other))
		} else {
			seen[name] = label
		}
		if strings.TrimSpace(col.Path) == "" {
			errs = append(errs, fmt.Sprintf("%s: path is required", label))
		}
	}

	// provider names are matched case-insensitively at build time
	known := make(map[string]bool, len(cfg.Providers))
	for name, p := range cfg.Providers {
		known[strings.ToLower(strings.TrimSpace(name))] = true

		label := fmt.Sprintf("provider %q", name)
		if strings.TrimSpace(p.BaseURL) == "" {
			errs = append(errs, fmt.Sprintf("%s: baseURL is required", label))
		}
		if p.Auth.Basic != nil && p.Auth.Bearer != nil {
			errs = append(errs, fmt.Sprintf("%s: basic and bearer auth are mutually exclusive", label))
		}
	}

	for i, req := range cfg.Requests {
		label := fmt.Sprintf("request[%d]", i)
		if req.Path != "" {
			label += fmt.Sprintf(" (%s)", req.Path)
		}

		provider := strings.ToLower(strings.TrimSpace(req.Provider))
		if provider == "" {
			errs = append(errs, fmt.Sprintf("%s: provider is required", label))
		} else if !known[provider] {
			errs = append(errs, fmt.Sprintf("%s: unknown provider %q", label, req.Provider))
		}
		if strings.TrimSpace(req.Path) == "" {
			errs = append(errs, fmt.Sprintf("%s: path is required", label))
		}
		if req.TTL < 0 {
			errs = append(errs, fmt.Sprintf("%s: ttl must be >= 0", label))
		}

		if req.Paginate {
			for _, field := range []struct{ name, val string }{
				{"page.startField", req.Page.StartField},
				{"page.limitField", req.Page.LimitField},
				{"page.totalField", req.Page.TotalField},
				{"page.reqStart", req.Page.ReqStart},
				{"page.reqLimit", req.Page.ReqLimit},
			} {
				if strings.TrimSpace(field.val) == "" {
					errs = append(errs, fmt.Sprintf("%s: %s is required when paginate is set", label, field.name))
				}
			}
			switch strings.ToLower(strings.TrimSpace(req.Page.Location)) {
			case "", "query", "body":
			default:
				errs = append(errs, fmt.Sprintf(`%s: page.location must be "query" or "body"`, label))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return resolveAuthSecrets(cfg)
}

// resolveAuthSecrets expands env:, file: and similar indirections in
// provider auth values. Plain values pass through unchanged.
func resolveAuthSecrets(cfg *PipelineConfig) error {
	for name, p := range cfg.Providers {
		if p.Auth.Basic != nil {
			username, err := resolver.ResolveVariable(p.Auth.Basic.Username)
			if err != nil {
				return fmt.Errorf("provider %q: resolve basic username: %w", name, err)
			}
			password, err := resolver.ResolveVariable(p.Auth.Basic.Password)
			if err != nil {
				return fmt.Errorf("provider %q: resolve basic password: %w", name, err)
			}
			p.Auth.Basic.Username = username
			p.Auth.Basic.Password = password
		}
		if p.Auth.Bearer != nil {
			token, err := resolver.ResolveVariable(p.Auth.Bearer.Token)
			if err != nil {
				return fmt.Errorf("provider %q: resolve bearer token: %w", name, err)
			}
			p.Auth.Bearer.Token = token
		}
	}
	return nil
}
