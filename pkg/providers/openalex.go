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

// OpenAlexClient is the open-access resolution path grounded on the
// retrieval pack's research-engine acquire.go, which tries OpenAlex first
// for a DOI's open-access PDF before falling back to the publisher URL.
// Here that same "ask OpenAlex for the OA location" step is promoted from
// an inline helper to a full provider client.
type OpenAlexClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
	email   string
}

func NewOpenAlexClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *OpenAlexClient {
	return &OpenAlexClient{http: httpClient, limiter: limiter, baseURL: cfg.BaseURL, email: cfg.Email}
}

func (c *OpenAlexClient) Name() string { return "openalex" }

type openAlexWork struct {
	ID               string `json:"id"`
	DOI              string `json:"doi"`
	Title            string `json:"title"`
	PublicationYear  int    `json:"publication_year"`
	Abstract         any    `json:"abstract_inverted_index"`
	BestOALocation   *struct {
		PDFURL    string `json:"pdf_url"`
		IsOA      bool   `json:"is_oa"`
		LandingURL string `json:"landing_page_url"`
	} `json:"best_oa_location"`
	Authorships []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
}

func (c *OpenAlexClient) Lookup(ctx context.Context, doi string) (*Record, error) {
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var work openAlexWork
	req := c.http.R().SetContext(ctx).SetResult(&work)
	if c.email != "" {
		req.SetQueryParam("mailto", c.email)
	}
	resp, err := req.Get(c.baseURL + "/works/doi:" + strings.TrimSpace(doi))
	if err != nil {
		return nil, fmt.Errorf("openalex: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, &NotFound{Provider: c.Name(), ID: doi}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("openalex: lookup returned %d", resp.StatusCode())
	}
	return &Record{Publication: work.toPublication(), RawProvider: c.Name()}, nil
}

func (c *OpenAlexClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 25
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var page struct {
		Results []openAlexWork `json:"results"`
	}
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("search", query).
		SetQueryParam("per_page", strconv.Itoa(limit)).
		SetResult(&page)
	if c.email != "" {
		req.SetQueryParam("mailto", c.email)
	}
	resp, err := req.Get(c.baseURL + "/works")
	if err != nil {
		return nil, fmt.Errorf("openalex: search: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("openalex: search returned %d", resp.StatusCode())
	}
	records := make([]Record, 0, len(page.Results))
	for i := range page.Results {
		records = append(records, Record{Publication: page.Results[i].toPublication(), RawProvider: c.Name()})
	}
	return records, nil
}

// GetPDFURL resolves a publication's DOI through OpenAlex's best_oa_location,
// the exact field the retrieval pack's acquire.go reads.
func (c *OpenAlexClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	if pub.DOI == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var work openAlexWork
	req := c.http.R().SetContext(ctx).SetResult(&work)
	if c.email != "" {
		req.SetQueryParam("mailto", c.email)
	}
	resp, err := req.Get(c.baseURL + "/works/doi:" + pub.DOI)
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil, nil
	}
	if work.BestOALocation == nil || !work.BestOALocation.IsOA || work.BestOALocation.PDFURL == "" {
		return nil, nil
	}
	return &models.SourceURL{
		URL:        work.BestOALocation.PDFURL,
		Provider:   c.Name(),
		URLType:    models.URLTypePDF,
		Priority:   models.PriorityOpenAlex,
		Confidence: 0.8,
	}, nil
}

func (w openAlexWork) toPublication() *models.Publication {
	pub := &models.Publication{
		DOI:   strings.TrimPrefix(w.DOI, "https://doi.org/"),
		Title: w.Title,
		Year:  w.PublicationYear,
	}
	pub.AddSource("openalex")
	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			pub.Authors = append(pub.Authors, a.Author.DisplayName)
		}
	}
	return pub
}
