package shared

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// NewHTTPClient builds an [http.Client] that routes through proxyURL (when set) and gives up after timeout.
//
// A zero timeout leaves requests bounded only by the caller's context.
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("%w: proxy_url: %v", ErrInvalidConfig, err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return &http.Client{Transport: transport, Timeout: timeout}, nil
}
