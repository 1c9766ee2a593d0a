// Package transport builds the HTTP clients handed to the backend SDKs.
package transport

import (
	"fmt"
	"net/http"
	"net/url"
)

// ProxyClient routes plain and TLS traffic through the configured proxies.
// An empty HTTPS proxy reuses the HTTP one. With no proxy at all the
// default client is returned.
func ProxyClient(httpProxy, httpsProxy string) (*http.Client, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.DefaultClient, nil
	}
	if httpsProxy == "" {
		httpsProxy = httpProxy
	}

	proxies := make(map[string]*url.URL, 2)
	for _, p := range []struct{ scheme, raw string }{{"http", httpProxy}, {"https", httpsProxy}} {
		if p.raw == "" {
			continue
		}
		u, err := url.Parse(p.raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s proxy %q: %w", p.scheme, p.raw, err)
		}
		proxies[p.scheme] = u
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		return proxies[req.URL.Scheme], nil
	}
	return &http.Client{Transport: transport}, nil
}
