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

// BiorxivClient resolves bioRxiv/medRxiv preprints by DOI via the
// api.biorxiv.org details endpoint. Preprint servers sit below the
// peer-reviewed sources in the URL priority table but above the gray
// sources.
type BiorxivClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
}

func NewBiorxivClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *BiorxivClient {
	return &BiorxivClient{http: httpClient, limiter: limiter, baseURL: cfg.BaseURL}
}

func (c *BiorxivClient) Name() string { return "biorxiv" }

type biorxivCollection struct {
	Collection []struct {
		DOI     string `json:"doi"`
		Title   string `json:"title"`
		Authors string `json:"authors"`
		Date    string `json:"date"`
		Server  string `json:"server"`
	} `json:"collection"`
}

func (c *BiorxivClient) Lookup(ctx context.Context, doi string) (*Record, error) {
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var body biorxivCollection
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&body).
		Get(c.baseURL + "/details/biorxiv/" + strings.TrimSpace(doi))
	if err != nil {
		return nil, fmt.Errorf("biorxiv: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("biorxiv: returned %d", resp.StatusCode())
	}
	if len(body.Collection) == 0 {
		return nil, &NotFound{Provider: c.Name(), ID: doi}
	}
	e := body.Collection[len(body.Collection)-1] // last entry is the latest version
	pub := &models.Publication{DOI: e.DOI, Title: e.Title}
	if len(e.Date) >= 4 {
		if y, err := strconv.Atoi(e.Date[:4]); err == nil {
			pub.Year = y
		}
	}
	for _, name := range strings.Split(e.Authors, ";") {
		name = strings.TrimSpace(name)
		if name != "" {
			pub.Authors = append(pub.Authors, name)
		}
	}
	pub.AddSource(c.Name())
	return &Record{Publication: pub, RawProvider: c.Name()}, nil
}

// Search is not offered: bioRxiv's public API is detail-by-DOI/date-range
// only, not free-text query.
func (c *BiorxivClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	return nil, fmt.Errorf("biorxiv: free-text search not supported")
}

// GetPDFURL follows bioRxiv's stable content URL convention.
func (c *BiorxivClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	if pub.DOI == "" || !strings.Contains(pub.DOI, "10.1101/") {
		return nil, nil
	}
	return &models.SourceURL{
		URL:        "https://www.biorxiv.org/content/" + pub.DOI + "v1.full.pdf",
		Provider:   c.Name(),
		URLType:    models.URLTypePDF,
		Priority:   models.PriorityPreprint,
		Confidence: 0.7,
	}, nil
}
