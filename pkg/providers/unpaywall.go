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

// UnpaywallClient resolves open-access PDF locations by DOI. It sits just
// below PMC in the URL priority table, above OpenAlex, since Unpaywall
// aggregates repository/publisher OA copies more directly than OpenAlex's
// derived best_oa_location.
type UnpaywallClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
	email   string
}

func NewUnpaywallClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *UnpaywallClient {
	return &UnpaywallClient{http: httpClient, limiter: limiter, baseURL: cfg.BaseURL, email: cfg.Email}
}

func (c *UnpaywallClient) Name() string { return "unpaywall" }

type unpaywallResponse struct {
	DOI          string `json:"doi"`
	Title        string `json:"title"`
	Year         int    `json:"year"`
	IsOA         bool   `json:"is_oa"`
	BestOALocation *struct {
		URLForPDF string `json:"url_for_pdf"`
		URL       string `json:"url"`
	} `json:"best_oa_location"`
}

func (c *UnpaywallClient) Lookup(ctx context.Context, doi string) (*Record, error) {
	if c.email == "" {
		return nil, fmt.Errorf("unpaywall: contact email required")
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var body unpaywallResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("email", c.email).
		SetResult(&body).
		Get(c.baseURL + "/" + strings.TrimSpace(doi))
	if err != nil {
		return nil, fmt.Errorf("unpaywall: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, &NotFound{Provider: c.Name(), ID: doi}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("unpaywall: returned %d", resp.StatusCode())
	}
	pub := &models.Publication{DOI: body.DOI, Title: body.Title, Year: body.Year}
	pub.AddSource(c.Name())
	return &Record{Publication: pub, RawProvider: c.Name()}, nil
}

// Search is not offered by the Unpaywall API; it is a pure DOI-lookup
// service.
func (c *UnpaywallClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	return nil, fmt.Errorf("unpaywall: search not supported")
}

func (c *UnpaywallClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	if pub.DOI == "" || c.email == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var body unpaywallResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("email", c.email).
		SetResult(&body).
		Get(c.baseURL + "/" + pub.DOI)
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil, nil
	}
	if !body.IsOA || body.BestOALocation == nil {
		return nil, nil
	}
	url := body.BestOALocation.URLForPDF
	urlType := models.URLTypePDF
	if url == "" {
		url = body.BestOALocation.URL
		urlType = models.URLTypeLanding
	}
	if url == "" {
		return nil, nil
	}
	return &models.SourceURL{
		URL:        url,
		Provider:   c.Name(),
		URLType:    urlType,
		Priority:   models.PriorityUnpaywall,
		Confidence: 0.85,
	}, nil
}
