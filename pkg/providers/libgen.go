package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/btraven00/geofetch/internal/ratelimit"
	"github.com/btraven00/geofetch/pkg/models"
)

// LibgenClient is the second gray-source fallback, queried by DOI through
// LibGen's scimag JSON index. Disabled by default, same gating as
// SciHubClient.
type LibgenClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
}

func NewLibgenClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *LibgenClient {
	return &LibgenClient{http: httpClient, limiter: limiter, baseURL: cfg.BaseURL}
}

func (c *LibgenClient) Name() string { return "libgen" }

func (c *LibgenClient) Lookup(ctx context.Context, doi string) (*Record, error) {
	return nil, fmt.Errorf("libgen: metadata lookup not supported, PDF resolution only")
}

func (c *LibgenClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	return nil, fmt.Errorf("libgen: search not supported")
}

type libgenScimagEntry struct {
	MD5 string `json:"md5"`
	DOI string `json:"doi"`
}

func (c *LibgenClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	if pub.DOI == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var entries []libgenScimagEntry
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("doi", pub.DOI).
		SetResult(&entries).
		Get(c.baseURL + "/scimag/api.php")
	if err != nil || resp.StatusCode() != http.StatusOK || len(entries) == 0 {
		return nil, nil
	}
	md5 := strings.ToLower(entries[0].MD5)
	if md5 == "" {
		return nil, nil
	}
	return &models.SourceURL{
		URL:        c.baseURL + "/scimag/ads.php?md5=" + md5,
		Provider:   c.Name(),
		URLType:    models.URLTypeLanding,
		Priority:   models.PriorityLibgen,
		Confidence: 0.4,
	}, nil
}
