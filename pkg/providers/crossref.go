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

// CrossrefClient resolves publication metadata by DOI and runs
// bibliographic-query searches, grounded on the retrieval pack's
// research-engine fetchCrossRefMetadata call site (acquire.go) which also
// treats Crossref purely as a metadata source, never full text.
type CrossrefClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
	email   string
}

func NewCrossrefClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *CrossrefClient {
	return &CrossrefClient{http: httpClient, limiter: limiter, baseURL: cfg.BaseURL, email: cfg.Email}
}

func (c *CrossrefClient) Name() string { return "crossref" }

type crossrefWork struct {
	DOI     string `json:"DOI"`
	Title   []string `json:"title"`
	Author  []struct {
		Given  string `json:"given"`
		Family string `json:"family"`
	} `json:"author"`
	ContainerTitle []string `json:"container-title"`
	Published      struct {
		DateParts [][]int `json:"date-parts"`
	} `json:"published"`
	Link []struct {
		URL         string `json:"URL"`
		ContentType string `json:"content-type"`
	} `json:"link"`
}

func (c *CrossrefClient) Lookup(ctx context.Context, doi string) (*Record, error) {
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var body struct {
		Message crossrefWork `json:"message"`
	}
	req := c.http.R().SetContext(ctx).SetResult(&body)
	if c.email != "" {
		req.SetHeader("User-Agent", "geofetch/1.0 (mailto:"+c.email+")")
	}
	resp, err := req.Get(c.baseURL + "/works/" + strings.TrimSpace(doi))
	if err != nil {
		return nil, fmt.Errorf("crossref: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, &NotFound{Provider: c.Name(), ID: doi}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("crossref: returned %d", resp.StatusCode())
	}
	return &Record{Publication: body.Message.toPublication(), RawProvider: c.Name()}, nil
}

func (c *CrossrefClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var body struct {
		Message struct {
			Items []crossrefWork `json:"items"`
		} `json:"message"`
	}
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("query.bibliographic", query).
		SetQueryParam("rows", strconv.Itoa(limit)).
		SetResult(&body)
	if c.email != "" {
		req.SetHeader("User-Agent", "geofetch/1.0 (mailto:"+c.email+")")
	}
	resp, err := req.Get(c.baseURL + "/works")
	if err != nil {
		return nil, fmt.Errorf("crossref: search: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("crossref: search returned %d", resp.StatusCode())
	}
	records := make([]Record, 0, len(body.Message.Items))
	for i := range body.Message.Items {
		records = append(records, Record{Publication: body.Message.Items[i].toPublication(), RawProvider: c.Name()})
	}
	return records, nil
}

// GetPDFURL reads Crossref's "link" array for a text-mining/publisher PDF
// link when the publisher has registered one; frequently absent, in which
// case callers fall through to Unpaywall/OpenAlex.
func (c *CrossrefClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	if pub.DOI == "" {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var body struct {
		Message crossrefWork `json:"message"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&body).Get(c.baseURL + "/works/" + pub.DOI)
	if err != nil || resp.StatusCode() != http.StatusOK {
		return nil, nil
	}
	for _, link := range body.Message.Link {
		if strings.Contains(strings.ToLower(link.ContentType), "pdf") {
			return &models.SourceURL{
				URL:        link.URL,
				Provider:   c.Name(),
				URLType:    models.URLTypePDF,
				Priority:   models.PriorityCrossref,
				Confidence: 0.6,
				AuthRequired: true,
			}, nil
		}
	}
	return nil, nil
}

func (w crossrefWork) toPublication() *models.Publication {
	pub := &models.Publication{DOI: w.DOI}
	if len(w.Title) > 0 {
		pub.Title = w.Title[0]
	}
	if len(w.ContainerTitle) > 0 {
		pub.Journal = w.ContainerTitle[0]
	}
	if len(w.Published.DateParts) > 0 && len(w.Published.DateParts[0]) > 0 {
		pub.Year = w.Published.DateParts[0][0]
	}
	for _, a := range w.Author {
		name := strings.TrimSpace(a.Given + " " + a.Family)
		if name != "" {
			pub.Authors = append(pub.Authors, name)
		}
	}
	pub.AddSource("crossref")
	return pub
}
