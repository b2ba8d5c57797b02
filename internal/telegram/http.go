package telegram

import (
	"net/http"
	"time"
)

// requestTimeout bounds one Bot API call, including reading the response.
const requestTimeout = 30 * time.Second

// newHTTPClient returns the pooled client the bot talks through.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		},
	}
}
