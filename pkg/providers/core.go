package providers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/btraven00/geofetch/internal/ratelimit"
	"github.com/btraven00/geofetch/pkg/models"
)

// COREClient queries the CORE aggregator (core.ac.uk), an API-key-gated
// repository aggregator that frequently surfaces PDFs Unpaywall/OpenAlex
// miss. Disabled by default until a key is configured.
type COREClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
	apiKey  string
}

func NewCOREClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *COREClient {
	return &COREClient{http: httpClient, limiter: limiter, baseURL: cfg.BaseURL, apiKey: cfg.APIKey}
}

func (c *COREClient) Name() string { return "core" }

type coreWork struct {
	ID       int    `json:"id"`
	DOI      string `json:"doi"`
	Title    string `json:"title"`
	YearPublished int `json:"yearPublished"`
	DownloadURL   string `json:"downloadUrl"`
	Authors  []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

func (c *COREClient) authedReq(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetHeader("Authorization", "Bearer "+c.apiKey)
}

func (c *COREClient) Lookup(ctx context.Context, doi string) (*Record, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("core: api key required")
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var body struct {
		Results []coreWork `json:"results"`
	}
	resp, err := c.authedReq(ctx).
		SetQueryParam("q", "doi:"+strings.TrimSpace(doi)).
		SetResult(&body).
		Get(c.baseURL + "/search/works")
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("core: returned %d", resp.StatusCode())
	}
	if len(body.Results) == 0 {
		return nil, &NotFound{Provider: c.Name(), ID: doi}
	}
	return &Record{Publication: body.Results[0].toPublication(), RawProvider: c.Name()}, nil
}

func (c *COREClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("core: api key required")
	}
	if limit <= 0 {
		limit = 20
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var body struct {
		Results []coreWork `json:"results"`
	}
	resp, err := c.authedReq(ctx).
		SetQueryParam("q", query).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&body).
		Get(c.baseURL + "/search/works")
	if err != nil {
		return nil, fmt.Errorf("core: search: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("core: search returned %d", resp.StatusCode())
	}
	records := make([]Record, 0, len(body.Results))
	for i := range body.Results {
		records = append(records, Record{Publication: body.Results[i].toPublication(), RawProvider: c.Name()})
	}
	return records, nil
}

func (c *COREClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	if pub.DOI == "" || c.apiKey == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var body struct {
		Results []coreWork `json:"results"`
	}
	resp, err := c.authedReq(ctx).
		SetQueryParam("q", "doi:"+pub.DOI).
		SetResult(&body).
		Get(c.baseURL + "/search/works")
	if err != nil || resp.StatusCode() != http.StatusOK || len(body.Results) == 0 {
		return nil, nil
	}
	url := body.Results[0].DownloadURL
	if url == "" {
		return nil, nil
	}
	return &models.SourceURL{
		URL:        url,
		Provider:   c.Name(),
		URLType:    models.URLTypePDF,
		Priority:   models.PriorityCORE,
		Confidence: 0.7,
	}, nil
}

func (w coreWork) toPublication() *models.Publication {
	pub := &models.Publication{DOI: w.DOI, Title: w.Title, Year: w.YearPublished}
	for _, a := range w.Authors {
		if a.Name != "" {
			pub.Authors = append(pub.Authors, a.Name)
		}
	}
	pub.AddSource("core")
	return pub
}
