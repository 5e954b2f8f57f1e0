package config

import "time"

// PipelineConfig is the root of the optional YAML configuration.
type PipelineConfig struct {
	ArrayField string              `yaml:"arrayField,omitempty"` // array exploded per document, default "issues"
	Columns    []ColumnConfig      `yaml:"columns,omitempty"`    // projection override, default: canonical issue columns
	Providers  map[string]Provider `yaml:"providers,omitempty"`  // upstreams for the fetch source
	Requests   []Request           `yaml:"requests,omitempty"`   // fetch source requests, run in order
}

// ColumnConfig maps one output column to a dotted field path.
type ColumnConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Provider describes one upstream API.
type Provider struct {
	BaseURL       string     `yaml:"baseURL"`
	Auth          AuthConfig `yaml:"auth,omitempty"`
	SkipTLSVerify *bool      `yaml:"skipTLSVerify,omitempty"`
}

// AuthConfig selects basic or bearer authentication.
type AuthConfig struct {
	Basic  *BasicAuthConfig  `yaml:"basic,omitempty"`
	Bearer *BearerAuthConfig `yaml:"bearer,omitempty"`
}

// BasicAuthConfig holds basic auth credentials. Values may use
// resolver indirections such as env: or file:.
type BasicAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// BearerAuthConfig holds a bearer token, optionally via indirection.
type BearerAuthConfig struct {
	Token string `yaml:"token"`
}

// Request describes one fetch against a provider. Every response page
// becomes one Source Record.
type Request struct {
	Provider string            `yaml:"provider"`
	Method   string            `yaml:"method,omitempty"` // default GET
	Path     string            `yaml:"path"`
	Query    map[string]string `yaml:"query,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
	Body     string            `yaml:"body,omitempty"`     // raw request body
	BodyJSON map[string]any    `yaml:"bodyJSON,omitempty"` // JSON request body
	TTL      time.Duration     `yaml:"ttl,omitempty"`      // page cache TTL, 0 disables
	Paginate bool              `yaml:"paginate,omitempty"`
	Page     PageConfig        `yaml:"page,omitempty"`
}

// PageConfig drives the pagination loop of one request.
type PageConfig struct {
	Location   string `yaml:"location,omitempty"` // "query" (default) or "body"
	StartField string `yaml:"startField"`         // response field with the window start, e.g. startAt
	LimitField string `yaml:"limitField"`         // response field with the window size, e.g. maxResults
	TotalField string `yaml:"totalField"`         // response field with the total count, e.g. total
	ReqStart   string `yaml:"reqStart"`           // request param for the window start
	ReqLimit   string `yaml:"reqLimit"`           // request param for the window size
	LimitPages int    `yaml:"limitPages,omitempty"`
}
