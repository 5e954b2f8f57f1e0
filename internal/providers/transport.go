package providers

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/gi8lino/issuetab/internal/config"
)

// httpClient builds the pooled client all page fetches of one provider share.
func httpClient(pc config.Provider) *http.Client {
	insecure := pc.SkipTLSVerify != nil && *pc.SkipTLSVerify
	return &http.Client{
		Timeout:   15 * time.Second, // hard per-request cap
		Transport: pooledTransport(insecure),
	}
}

// pooledTransport returns a keep-alive Transport so consecutive pages
// reuse connections against the same host.
func pooledTransport(insecure bool) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 60 * time.Second,
	}
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecure, // NOTE: intended for dev only
		},
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
