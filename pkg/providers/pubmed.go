package providers

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/go-resty/resty/v2"

	"github.com/btraven00/geofetch/internal/ratelimit"
	"github.com/btraven00/geofetch/pkg/models"
)

// PubMedClient resolves Publication metadata and runs citation-discovery
// style queries against NCBI's eutils. Grounded on the esearch/efetch
// two-step and the PubmedArticleSet XML shape in the retrieval pack's
// PubMedHunter (internal/pollard/hunters/pubmed.go).
type PubMedClient struct {
	http    *resty.Client
	limiter *ratelimit.Registry
	baseURL string
	apiKey  string
}

func NewPubMedClient(cfg Config, limiter *ratelimit.Registry, httpClient *resty.Client) *PubMedClient {
	return &PubMedClient{http: httpClient, limiter: limiter, baseURL: cfg.BaseURL, apiKey: cfg.APIKey}
}

func (c *PubMedClient) Name() string { return "pubmed" }

// Lookup fetches a single article by PMID.
func (c *PubMedClient) Lookup(ctx context.Context, pmid string) (*Record, error) {
	pubs, err := c.efetch(ctx, []string{pmid})
	if err != nil {
		return nil, err
	}
	if len(pubs) == 0 {
		return nil, &NotFound{Provider: c.Name(), ID: pmid}
	}
	return &Record{Publication: &pubs[0], RawProvider: c.Name()}, nil
}

// Search runs an esearch query, then efetches the resulting PMIDs. filters
// may carry "geo_id" to build a GEO-mention citation query (the second
// discovery strategy) or is empty for a free-text term search.
func (c *PubMedClient) Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error) {
	term := query
	if geoID := filters["geo_id"]; geoID != "" {
		term = fmt.Sprintf("%s AND %s", geoID, query)
	}

	pmids, err := c.esearch(ctx, term, limit)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return nil, nil
	}

	pubs, err := c.efetch(ctx, pmids)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(pubs))
	for i := range pubs {
		records = append(records, Record{Publication: &pubs[i], RawProvider: c.Name()})
	}
	return records, nil
}

// GetPDFURL never applies to PubMed directly: abstracts only, never full
// text. PMC (a separate client) is the full-text surface for NIH-hosted
// open-access copies.
func (c *PubMedClient) GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error) {
	return nil, nil
}

func (c *PubMedClient) esearch(ctx context.Context, term string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("db", "pubmed").
		SetQueryParam("term", term).
		SetQueryParam("retmax", strconv.Itoa(limit)).
		SetQueryParam("retmode", "xml").
		SetQueryParam("sort", "relevance")
	if c.apiKey != "" {
		req.SetQueryParam("api_key", c.apiKey)
	}
	resp, err := req.Get(c.baseURL + "/esearch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("pubmed: esearch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("pubmed: esearch returned %d", resp.StatusCode())
	}

	var result struct {
		XMLName xml.Name `xml:"eSearchResult"`
		IDList  struct {
			IDs []string `xml:"Id"`
		} `xml:"IdList"`
	}
	if err := xml.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("pubmed: parse esearch xml: %w", err)
	}
	return result.IDList.IDs, nil
}

func (c *PubMedClient) efetch(ctx context.Context, pmids []string) ([]models.Publication, error) {
	if len(pmids) == 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx, c.Name()); err != nil {
		return nil, err
	}

	req := c.http.R().
		SetContext(ctx).
		SetQueryParam("db", "pubmed").
		SetQueryParam("id", strings.Join(pmids, ",")).
		SetQueryParam("retmode", "xml")
	if c.apiKey != "" {
		req.SetQueryParam("api_key", c.apiKey)
	}
	resp, err := req.Get(c.baseURL + "/efetch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("pubmed: efetch: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("pubmed: efetch returned %d", resp.StatusCode())
	}

	return parsePubMedArticleSet(resp.Body())
}

type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	MedlineCitation struct {
		PMID struct {
			Value string `xml:",chardata"`
		} `xml:"PMID"`
		Article struct {
			ArticleTitle string `xml:"ArticleTitle"`
			Abstract     struct {
				AbstractText []struct {
					Text string `xml:",chardata"`
				} `xml:"AbstractText"`
			} `xml:"Abstract"`
			AuthorList struct {
				Authors []struct {
					LastName string `xml:"LastName"`
					ForeName string `xml:"ForeName"`
				} `xml:"Author"`
			} `xml:"AuthorList"`
			Journal struct {
				Title     string `xml:"Title"`
				PubDate struct {
					Year  string `xml:"Year"`
					Month string `xml:"Month"`
					Day   string `xml:"Day"`
				} `xml:"JournalIssue>PubDate"`
			} `xml:"Journal"`
			ELocationID []struct {
				EIDType string `xml:"EIdType,attr"`
				Value   string `xml:",chardata"`
			} `xml:"ELocationID"`
		} `xml:"Article"`
		OtherID []struct {
			Source string `xml:"Source,attr"`
			Value  string `xml:",chardata"`
		} `xml:"OtherID"`
	} `xml:"MedlineCitation"`
	PubmedData struct {
		ArticleIDList struct {
			ArticleIDs []struct {
				IDType string `xml:"IdType,attr"`
				Value  string `xml:",chardata"`
			} `xml:"ArticleId"`
		} `xml:"ArticleIdList"`
	} `xml:"PubmedData"`
}

func parsePubMedArticleSet(body []byte) ([]models.Publication, error) {
	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("pubmed: parse efetch xml: %w", err)
	}

	pubs := make([]models.Publication, 0, len(set.Articles))
	for _, a := range set.Articles {
		pub := models.Publication{
			PMID:    strings.TrimSpace(a.MedlineCitation.PMID.Value),
			Title:   a.MedlineCitation.Article.ArticleTitle,
			Journal: a.MedlineCitation.Article.Journal.Title,
		}
		pub.AddSource("pubmed")

		var abstract strings.Builder
		for _, part := range a.MedlineCitation.Article.Abstract.AbstractText {
			if abstract.Len() > 0 {
				abstract.WriteString(" ")
			}
			abstract.WriteString(part.Text)
		}
		pub.Abstract = abstract.String()

		for _, auth := range a.MedlineCitation.Article.AuthorList.Authors {
			name := strings.TrimSpace(auth.ForeName + " " + auth.LastName)
			if name != "" {
				pub.Authors = append(pub.Authors, name)
			}
		}

		if y := a.MedlineCitation.Article.Journal.PubDate.Year; y != "" {
			if n, err := strconv.Atoi(y); err == nil {
				pub.Year = n
			}
		} else if dt, err := dateparse.ParseAny(a.MedlineCitation.Article.Journal.PubDate.Month + " " + a.MedlineCitation.Article.Journal.PubDate.Day); err == nil {
			pub.Year = dt.Year()
		}

		for _, id := range a.PubmedData.ArticleIDList.ArticleIDs {
			if id.IDType == "doi" {
				pub.DOI = id.Value
			}
			if id.IDType == "pmc" {
				pub.PMCID = id.Value
			}
		}
		for _, eloc := range a.MedlineCitation.Article.ELocationID {
			if eloc.EIDType == "doi" && pub.DOI == "" {
				pub.DOI = eloc.Value
			}
		}

		pubs = append(pubs, pub)
	}
	return pubs, nil
}
