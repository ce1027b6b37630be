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

// PMCClient resolves NIH-hosted full text for articles with a PMCID. It
// ranks first among the full-text sources in the URL priority table, after
// only the cache and institutional-proxy bands: PMC copies are free,
// stable, and rarely require auth.
type PMCClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
}

func NewPMCClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *PMCClient {
	return &PMCClient{http: httpClient, limiter: limiter, baseURL: cfg.BaseURL}
}

func (c *PMCClient) Name() string { return "pmc" }

func (c *PMCClient) Lookup(ctx context.Context, pmcID string) (*Record, error) {
	pmcID = normalizePMCID(pmcID)
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	resp, err := c.http.R().SetContext(ctx).Get(c.baseURL + "/articles/" + pmcID + "/")
	if err != nil {
		return nil, fmt.Errorf("pmc: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, &NotFound{Provider: c.Name(), ID: pmcID}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("pmc: returned %d", resp.StatusCode())
	}
	pub := &models.Publication{PMCID: pmcID}
	pub.AddSource(c.Name())
	return &Record{Publication: pub, RawProvider: c.Name()}, nil
}

// Search is not offered: publications enter PMC scope only once a
// candidate PMCID is already known (from PubMed or Europe PMC metadata).
func (c *PMCClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	return nil, fmt.Errorf("pmc: search not supported, resolve via pubmed/europepmc first")
}

// GetPDFURL fetches the article landing page and extracts the
// citation_pdf_url meta tag, the same goquery-based embed-extraction
// pattern the Download Engine uses for other publisher landing pages,
// applied here because PMC's PDF path is not a fixed pattern across all
// article types.
func (c *PMCClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	if pub.PMCID == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	resp, err := c.http.R().SetContext(ctx).Get(c.baseURL + "/articles/" + normalizePMCID(pub.PMCID) + "/")
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body())))
	if err != nil {
		return nil, nil
	}
	pdfURL, ok := doc.Find(`meta[name="citation_pdf_url"]`).Attr("content")
	if !ok || pdfURL == "" {
		return nil, nil
	}
	return &models.SourceURL{
		URL:        pdfURL,
		Provider:   c.Name(),
		URLType:    models.URLTypePDF,
		Priority:   models.PriorityPMC,
		Confidence: 0.95,
	}, nil
}

func normalizePMCID(id string) string {
	id = strings.TrimSpace(id)
	if !strings.HasPrefix(strings.ToUpper(id), "PMC") {
		return "PMC" + id
	}
	return strings.ToUpper(id)
}
