package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/btraven00/geofetch/internal/ratelimit"
	"github.com/btraven00/geofetch/pkg/models"
)

// ArxivClient queries the arXiv Atom export API, grounded on the retrieval
// pack's SciFind arxiv provider (internal/providers/arxiv/provider.go),
// which hits the same export.arxiv.org/api/query endpoint.
type ArxivClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
}

func NewArxivClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *ArxivClient {
	return &ArxivClient{http: httpClient, limiter: limiter, baseURL: cfg.BaseURL}
}

func (c *ArxivClient) Name() string { return "arxiv" }

type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID      string `xml:"id"`
	Title   string `xml:"title"`
	Summary string `xml:"summary"`
	Published string `xml:"published"`
	Authors []struct {
		Name string `xml:"name"`
	} `xml:"author"`
	Links []struct {
		Href string `xml:"href,attr"`
		Type string `xml:"type,attr"`
		Title string `xml:"title,attr"`
	} `xml:"link"`
}

func (c *ArxivClient) Lookup(ctx context.Context, arxivID string) (*Record, error) {
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("id_list", strings.TrimPrefix(arxivID, "arXiv:")).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("arxiv: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("arxiv: returned %d", resp.StatusCode())
	}
	var feed arxivFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("arxiv: parse atom: %w", err)
	}
	if len(feed.Entries) == 0 {
		return nil, &NotFound{Provider: c.Name(), ID: arxivID}
	}
	return &Record{Publication: feed.Entries[0].toPublication(), RawProvider: c.Name()}, nil
}

func (c *ArxivClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("search_query", "all:"+query).
		SetQueryParam("max_results", strconv.Itoa(limit)).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("arxiv: search: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("arxiv: search returned %d", resp.StatusCode())
	}
	var feed arxivFeed
	if err := xml.Unmarshal(resp.Body(), &feed); err != nil {
		return nil, fmt.Errorf("arxiv: parse atom: %w", err)
	}
	records := make([]Record, 0, len(feed.Entries))
	for i := range feed.Entries {
		records = append(records, Record{Publication: feed.Entries[i].toPublication(), RawProvider: c.Name()})
	}
	return records, nil
}

// GetPDFURL builds the https://arxiv.org/pdf/<id> URL from the
// publication's "arxiv_id" custom field without a network call, and
// returns (nil, nil) when that field is absent.
func (c *ArxivClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	arxivID := arxivIDFromCustom(pub)
	if arxivID == "" {
		return nil, nil
	}
	return &models.SourceURL{
		URL:        "https://arxiv.org/pdf/" + arxivID,
		Provider:   c.Name(),
		URLType:    models.URLTypePDF,
		Priority:   models.PriorityPreprint,
		Confidence: 0.75,
	}, nil
}

func arxivIDFromCustom(pub *models.Publication) string {
	if pub.CustomFields == nil {
		return ""
	}
	if v, ok := pub.CustomFields["arxiv_id"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func (e arxivEntry) toPublication() *models.Publication {
	id := e.ID
	if idx := strings.LastIndex(id, "/abs/"); idx >= 0 {
		id = id[idx+len("/abs/"):]
	}
	pub := &models.Publication{
		Title:    strings.TrimSpace(e.Title),
		Abstract: strings.TrimSpace(e.Summary),
		CustomFields: map[string]any{"arxiv_id": id},
	}
	if len(e.Published) >= 4 {
		if y, err := strconv.Atoi(e.Published[:4]); err == nil {
			pub.Year = y
		}
	}
	for _, a := range e.Authors {
		if a.Name != "" {
			pub.Authors = append(pub.Authors, a.Name)
		}
	}
	pub.AddSource("arxiv")
	return pub
}
