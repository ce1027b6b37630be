// Package httpx builds the shared HTTP client every provider client uses:
// browser-realistic headers, redirect policy, TLS verification toggle, and
// retry/backoff. Adapted from an earlier hand-rolled HTTP validator,
// rebuilt on github.com/go-resty/resty/v2 so the bounded
// exponential-backoff-with-jitter retry policy is configuration rather
// than hand-rolled control flow.
package httpx

import (
	"crypto/tls"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Options configures a client built by New.
type Options struct {
	Timeout    time.Duration
	MaxRetries int
	SSLVerify  bool
}

// New builds a resty client with retryable (5xx/429/timeout) vs fatal
// (other 4xx) classification, exponential backoff with jitter, and a
// capped redirect chain.
func New(opts Options) *resty.Client {
	c := resty.New()
	c.SetTimeout(opts.Timeout)
	c.SetRetryCount(opts.MaxRetries)
	c.SetRetryWaitTime(1500 * time.Millisecond)
	c.SetRetryMaxWaitTime(15 * time.Second)
	c.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true // network error / timeout
		}
		code := r.StatusCode()
		if code == http.StatusTooManyRequests {
			return true
		}
		return code >= 500
	})
	c.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	c.SetHeader("User-Agent", randomUserAgent())
	c.SetHeader("Accept-Language", "en-US,en;q=0.9")

	if !opts.SSLVerify {
		c.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // explicit opt-out for institutional environments with broken certificate chains
	}

	return c
}

// BackoffWithJitter returns the delay before attempt n (1-indexed),
// base ~1.5s with jitter, used by components that roll their own retry
// loop outside resty (the Download Engine's per-URL retry).
func BackoffWithJitter(attempt int) time.Duration {
	base := 1500 * time.Millisecond
	backoff := base * time.Duration(1<<uint(attempt-1))
	jitter := time.Duration(rand.Int63n(int64(base)))
	return backoff + jitter
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

func randomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}
