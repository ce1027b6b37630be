package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/btraven00/geofetch/internal/ratelimit"
	"github.com/btraven00/geofetch/pkg/models"
)

// geoAccessionPattern narrows a GEODownloader-style validation regex down
// to the series identifier this pipeline actually cares about.
var geoAccessionPattern = regexp.MustCompile(`^GSE\d+$`)

// GEOClient resolves Dataset metadata from NCBI GEO via the eutils
// esummary endpoint, narrowed from an earlier GEODownloader (which
// additionally validated GSM/GPL/GDS and drove a bulk FTP download) to
// metadata-only lookup, since download of dataset files themselves is out
// of scope here.
type GEOClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
	apiKey  string
}

// NewGEOClient builds a GEO client against the eutils base URL in cfg.
func NewGEOClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *GEOClient {
	return &GEOClient{
		http:    httpClient,
		limiter: limiter,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

func (c *GEOClient) Name() string { return "geo" }

// Lookup retrieves a single GEO series' summary fields.
func (c *GEOClient) Lookup(ctx context.Context, geoID string) (*Record, error) {
	clean := strings.ToUpper(strings.TrimSpace(geoID))
	if !geoAccessionPattern.MatchString(clean) {
		return nil, fmt.Errorf("geo: %q is not a GSE accession", geoID)
	}

	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}

	uid, err := c.resolveUID(ctx, clean)
	if err != nil {
		return nil, err
	}
	if uid == "" {
		return nil, &NotFound{Provider: c.Name(), ID: geoID}
	}

	ds, err := c.esummary(ctx, uid, clean)
	if err != nil {
		return nil, err
	}
	return &Record{Dataset: ds, RawProvider: c.Name()}, nil
}

// Search runs a free-text esearch against the GEO DataSets database
// restricted to Series-level (GSE) entries, then batch-resolves the
// resulting UIDs via esummary. This is the orchestrator's ingest path: a
// Search result populates the dataset index, Lookup then re-resolves a
// known accession.
func (c *GEOClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	term := strings.TrimSpace(query)
	if term == "" {
		return nil, fmt.Errorf("geo: empty search query")
	}
	if limit <= 0 {
		limit = 20
	}

	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}

	uids, err := c.esearchMulti(ctx, term+" AND gse[ETYP]", limit)
	if err != nil {
		return nil, fmt.Errorf("geo: search: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	datasets, err := c.esummaryBatch(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("geo: search: %w", err)
	}

	records := make([]Record, 0, len(datasets))
	for _, ds := range datasets {
		records = append(records, Record{Dataset: ds, RawProvider: c.Name()})
	}
	return records, nil
}

// GetPDFURL never applies to GEO: it is a dataset repository, not a
// full-text source.
func (c *GEOClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	return nil, nil
}

func (c *GEOClient) resolveUID(ctx context.Context, geoID string) (string, error) {
	uids, err := c.esearchMulti(ctx, geoID+"[ACCN]", 1)
	if err != nil {
		return "", err
	}
	if len(uids) == 0 {
		return "", nil
	}
	return uids[0], nil
}

// esearchMulti runs an esearch query against db=gds and returns up to limit
// matching UIDs in relevance order.
func (c *GEOClient) esearchMulti(ctx context.Context, term string, limit int) ([]string, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("db", "gds").
		SetQueryParam("term", term).
		SetQueryParam("retmode", "xml").
		SetQueryParam("retmax", strconv.Itoa(limit))
	if c.apiKey != "" {
		req.SetQueryParam("api_key", c.apiKey)
	}
	resp, err := req.Get(c.baseURL + "/esearch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("geo: esearch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("geo: esearch returned %d", resp.StatusCode())
	}

	var result struct {
		XMLName xml.Name `xml:"eSearchResult"`
		IDList  struct {
			IDs []string `xml:"Id"`
		} `xml:"IdList"`
	}
	if err := xml.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("geo: parse esearch xml: %w", err)
	}
	return result.IDList.IDs, nil
}

// esummaryBatch resolves multiple UIDs in a single esummary call, keeping
// only DocSums that carry a valid GSE accession (db=gds also holds GSM,
// GPL, and GDS-level entries that this pipeline doesn't track).
func (c *GEOClient) esummaryBatch(ctx context.Context, uids []string) ([]*models.Dataset, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("db", "gds").
		SetQueryParam("id", strings.Join(uids, ",")).
		SetQueryParam("retmode", "xml")
	if c.apiKey != "" {
		req.SetQueryParam("api_key", c.apiKey)
	}
	resp, err := req.Get(c.baseURL + "/esummary.fcgi")
	if err != nil {
		return nil, fmt.Errorf("geo: esummary: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("geo: esummary returned %d", resp.StatusCode())
	}

	var result struct {
		DocSums []struct {
			Items []struct {
				Name string `xml:"Name,attr"`
				Text string `xml:",chardata"`
			} `xml:"Item"`
		} `xml:"DocSum"`
	}
	if err := xml.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("geo: parse esummary xml: %w", err)
	}

	datasets := make([]*models.Dataset, 0, len(result.DocSums))
	for _, docSum := range result.DocSums {
		ds := &models.Dataset{}
		for _, item := range docSum.Items {
			switch item.Name {
			case "Accession":
				ds.GeoID = strings.ToUpper(strings.TrimSpace(item.Text))
			case "title":
				ds.Title = item.Text
			case "summary":
				ds.Summary = item.Text
			case "taxon":
				ds.Organism = item.Text
			case "gpl":
				ds.Platform = item.Text
			case "n_samples":
				if n, err := strconv.Atoi(strings.TrimSpace(item.Text)); err == nil {
					ds.SampleCount = n
				}
			case "PubMedIds":
				ds.PublicationPMIDs = splitNonEmpty(item.Text, ";")
			}
		}
		if !geoAccessionPattern.MatchString(ds.GeoID) {
			continue
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

func (c *GEOClient) esummary(ctx context.Context, uid, geoID string) (*models.Dataset, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("db", "gds").
		SetQueryParam("id", uid).
		SetQueryParam("retmode", "xml")
	if c.apiKey != "" {
		req.SetQueryParam("api_key", c.apiKey)
	}
	resp, err := req.Get(c.baseURL + "/esummary.fcgi")
	if err != nil {
		return nil, fmt.Errorf("geo: esummary: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("geo: esummary returned %d", resp.StatusCode())
	}

	var result struct {
		DocSums []struct {
			Items []struct {
				Name string `xml:"Name,attr"`
				Text string `xml:",chardata"`
			} `xml:"Item"`
		} `xml:"DocSum"`
	}
	if err := xml.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("geo: parse esummary xml: %w", err)
	}
	if len(result.DocSums) == 0 {
		return nil, &NotFound{Provider: c.Name(), ID: geoID}
	}

	ds := &models.Dataset{GeoID: geoID}
	for _, item := range result.DocSums[0].Items {
		switch item.Name {
		case "title":
			ds.Title = item.Text
		case "summary":
			ds.Summary = item.Text
		case "taxon":
			ds.Organism = item.Text
		case "gpl":
			ds.Platform = item.Text
		case "n_samples":
			if n, err := strconv.Atoi(strings.TrimSpace(item.Text)); err == nil {
				ds.SampleCount = n
			}
		case "PubMedIds":
			ds.PublicationPMIDs = splitNonEmpty(item.Text, ";")
		}
	}
	return ds, nil
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
