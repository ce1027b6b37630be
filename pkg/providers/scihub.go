package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/btraven00/geofetch/internal/ratelimit"
	"github.com/btraven00/geofetch/pkg/models"
)

// SciHubClient is a gray-source fallback, disabled by default and only
// consulted when the enable_gray_sources setting is turned on. It scrapes
// the mirror's landing page for the embedded PDF iframe, the same
// goquery-based embed-extraction approach PMCClient and the Download
// Engine use for other landing pages.
type SciHubClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
}

func NewSciHubClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *SciHubClient {
	return &SciHubClient{http: httpClient, limiter: limiter, baseURL: cfg.BaseURL}
}

func (c *SciHubClient) Name() string { return "scihub" }

func (c *SciHubClient) Lookup(ctx context.Context, doi string) (*Record, error) {
	return nil, fmt.Errorf("scihub: metadata lookup not supported, PDF resolution only")
}

func (c *SciHubClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	return nil, fmt.Errorf("scihub: search not supported")
}

func (c *SciHubClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	if pub.DOI == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	resp, err := c.http.R().SetContext(ctx).Get(c.baseURL + "/" + pub.DOI)
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body())))
	if err != nil {
		return nil, nil
	}
	src, ok := doc.Find("embed#pdf, iframe#pdf").Attr("src")
	if !ok || src == "" {
		return nil, nil
	}
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	return &models.SourceURL{
		URL:        src,
		Provider:   c.Name(),
		URLType:    models.URLTypePDF,
		Priority:   models.PriorityScihub,
		Confidence: 0.5,
	}, nil
}
