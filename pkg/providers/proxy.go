package providers

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/btraven00/geofetch/internal/ratelimit"
	"github.com/btraven00/geofetch/pkg/models"
)

// ProxyClient rewrites a publisher URL through an institutional EZproxy-
// style base, configured via the INSTITUTIONAL_PROXY_BASE setting. It
// never originates its own URL: it only rewrites whatever the other
// providers found, so its Lookup/Search are no-ops.
type ProxyClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
}

func NewProxyClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *ProxyClient {
	return &ProxyClient{http: httpClient, limiter: limiter, baseURL: cfg.BaseURL}
}

func (c *ProxyClient) Name() string { return "proxy" }

func (c *ProxyClient) Lookup(ctx context.Context, id string) (*Record, error) {
	return nil, fmt.Errorf("proxy: not a metadata source")
}

func (c *ProxyClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	return nil, fmt.Errorf("proxy: not a metadata source")
}

// GetPDFURL is unused directly; Rewrite is what the URL Collector calls
// against every other provider's candidate URL when the proxy is
// enabled.
func (c *ProxyClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	return nil, nil
}

// Rewrite produces a proxied copy of src through the configured
// institutional base, using the EZproxy link-rewriting convention
// (base + "?url=" + URL-encoded target).
func (c *ProxyClient) Rewrite(src models.SourceURL) models.SourceURL {
	if c.baseURL == "" {
		return src
	}
	rewritten := src
	rewritten.URL = strings.TrimRight(c.baseURL, "/") + "?url=" + url.QueryEscape(src.URL)
	rewritten.Provider = c.Name()
	rewritten.Priority = models.PriorityProxy
	return rewritten
}
