package providers

import (
	"net/http"

	"github.com/gi8lino/issuetab/internal/config"
)

// applyAuth adds Authorization to the request using the provider's auth.
func applyAuth(r *http.Request, a *config.AuthConfig) {
	if a == nil {
		return
	}
	if a.Basic != nil {
		r.SetBasicAuth(a.Basic.Username, a.Basic.Password)
		return
	}
	if a.Bearer != nil {
		r.Header.Set("Authorization", "Bearer "+a.Bearer.Token)
	}
}

// AuthHeader returns the "Authorization" header value this provider
// would set on a dummy HTTP request. Intended for debug logging;
// callers should obfuscate the result.
func (p *HTTPProvider) AuthHeader() string {
	req, _ := http.NewRequest(http.MethodGet, "https://dummy", nil)
	applyAuth(req, p.Auth)
	return req.Header.Get("Authorization")
}
