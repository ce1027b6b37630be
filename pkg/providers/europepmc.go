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

// EuropePMCClient mirrors PubMed for European/preprint-heavy coverage and
// additionally offers a full-text-links endpoint PubMed does not, making it
// a useful secondary source for both metadata and PDFs.
type EuropePMCClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
}

func NewEuropePMCClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *EuropePMCClient {
	return &EuropePMCClient{http: httpClient, limiter: limiter, baseURL: cfg.BaseURL}
}

func (c *EuropePMCClient) Name() string { return "europepmc" }

type europePMCResult struct {
	PMID    string `json:"pmid"`
	DOI     string `json:"doi"`
	PMCID   string `json:"pmcid"`
	Title   string `json:"title"`
	AbstractText string `json:"abstractText"`
	JournalInfo struct {
		Journal struct {
			Title string `json:"title"`
		} `json:"journal"`
	} `json:"journalInfo"`
	PubYear string `json:"pubYear"`
	AuthorString string `json:"authorString"`
	IsOpenAccess string `json:"isOpenAccess"`
}

func (c *EuropePMCClient) Lookup(ctx context.Context, pmid string) (*Record, error) {
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	var body struct {
		ResultList struct {
			Result []europePMCResult `json:"result"`
		} `json:"resultList"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", "ext_id:"+pmid+" AND src:med").
		SetQueryParam("format", "json").
		SetResult(&body).
		Get(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("europepmc: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("europepmc: returned %d", resp.StatusCode())
	}
	if len(body.ResultList.Result) == 0 {
		return nil, &NotFound{Provider: c.Name(), ID: pmid}
	}
	return &Record{Publication: body.ResultList.Result[0].toPublication(), RawProvider: c.Name()}, nil
}

func (c *EuropePMCClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 25
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	term := query
	if geoID := filters["geo_id"]; geoID != "" {
		term = fmt.Sprintf("%s AND %s", geoID, query)
	}
	var body struct {
		ResultList struct {
			Result []europePMCResult `json:"result"`
		} `json:"resultList"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", term).
		SetQueryParam("format", "json").
		SetQueryParam("pageSize", strconv.Itoa(limit)).
		SetResult(&body).
		Get(c.baseURL + "/search")
	if err != nil {
		return nil, fmt.Errorf("europepmc: search: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("europepmc: search returned %d", resp.StatusCode())
	}
	records := make([]Record, 0, len(body.ResultList.Result))
	for i := range body.ResultList.Result {
		records = append(records, Record{Publication: body.ResultList.Result[i].toPublication(), RawProvider: c.Name()})
	}
	return records, nil
}

// GetPDFURL points at Europe PMC's rendered-PDF URL for the article's
// PMCID, without a network call. Open-access status is not checked: any
// publication with a PMCID gets a candidate.
func (c *EuropePMCClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	if pub.PMCID == "" {
		return nil, nil
	}
	return &models.SourceURL{
		URL:        "https://europepmc.org/articles/" + normalizePMCID(pub.PMCID) + "?pdf=render",
		Provider:   c.Name(),
		URLType:    models.URLTypePDF,
		Priority:   models.PriorityPMC,
		Confidence: 0.75,
	}, nil
}

func (r europePMCResult) toPublication() *models.Publication {
	pub := &models.Publication{
		PMID:     r.PMID,
		DOI:      r.DOI,
		PMCID:    r.PMCID,
		Title:    r.Title,
		Abstract: r.AbstractText,
		Journal:  r.JournalInfo.Journal.Title,
	}
	if y, err := strconv.Atoi(strings.TrimSpace(r.PubYear)); err == nil {
		pub.Year = y
	}
	for _, name := range strings.Split(r.AuthorString, ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			pub.Authors = append(pub.Authors, name)
		}
	}
	pub.AddSource("europepmc")
	return pub
}
