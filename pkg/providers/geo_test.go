package providers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-resty/resty/v2"

	"github.com/btraven00/geofetch/internal/ratelimit"
)

const esearchBody = `<?xml version="1.0"?>
<eSearchResult><IdList><Id>200012345</Id></IdList></eSearchResult>`

const esummaryBody = `<?xml version="1.0"?>
<eSummaryResult><DocSum>
<Item Name="title" Type="String">A breast cancer transcriptome study</Item>
<Item Name="summary" Type="String">RNA-seq of tumor samples</Item>
<Item Name="taxon" Type="String">Homo sapiens</Item>
<Item Name="gpl" Type="String">GPL570</Item>
<Item Name="n_samples" Type="Integer">24</Item>
<Item Name="PubMedIds" Type="String">111;222</Item>
</DocSum></eSummaryResult>`

func newGEOTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "esearch.fcgi"):
			w.Write([]byte(esearchBody))
		case strings.HasSuffix(r.URL.Path, "esummary.fcgi"):
			w.Write([]byte(esummaryBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestGEOClientLookup(t *testing.T) {
	srv := newGEOTestServer(t)
	defer srv.Close()

	limiter := ratelimit.NewRegistry()
	client := NewGEOClient(Config{BaseURL: srv.URL}, limiter, resty.New())

	rec, err := client.Lookup(t.Context(), "GSE12345")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if rec.Dataset == nil {
		t.Fatalf("expected a dataset record")
	}
	if rec.Dataset.GeoID != "GSE12345" {
		t.Errorf("GeoID = %q, want GSE12345", rec.Dataset.GeoID)
	}
	if rec.Dataset.SampleCount != 24 {
		t.Errorf("SampleCount = %d, want 24", rec.Dataset.SampleCount)
	}
	if len(rec.Dataset.PublicationPMIDs) != 2 {
		t.Errorf("expected 2 linked pmids, got %v", rec.Dataset.PublicationPMIDs)
	}
}

func TestGEOClientLookupRejectsBadAccession(t *testing.T) {
	limiter := ratelimit.NewRegistry()
	client := NewGEOClient(Config{BaseURL: "http://unused"}, limiter, resty.New())

	if _, err := client.Lookup(t.Context(), "not-an-accession"); err == nil {
		t.Errorf("expected an error for a malformed accession")
	}
}

const searchEsearchBody = `<?xml version="1.0"?>
<eSearchResult><IdList><Id>200012345</Id><Id>200067890</Id><Id>200099999</Id></IdList></eSearchResult>`

const searchEsummaryBody = `<?xml version="1.0"?>
<eSummaryResult>
<DocSum>
<Item Name="Accession" Type="String">GSE12345</Item>
<Item Name="title" Type="String">A breast cancer transcriptome study</Item>
<Item Name="taxon" Type="String">Homo sapiens</Item>
<Item Name="n_samples" Type="Integer">24</Item>
</DocSum>
<DocSum>
<Item Name="Accession" Type="String">GSE67890</Item>
<Item Name="title" Type="String">A second matching study</Item>
<Item Name="taxon" Type="String">Homo sapiens</Item>
<Item Name="n_samples" Type="Integer">8</Item>
</DocSum>
<DocSum>
<Item Name="Accession" Type="String">GSM99999</Item>
<Item Name="title" Type="String">A sample-level record that should be filtered out</Item>
</DocSum>
</eSummaryResult>`

func newGEOSearchTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "esearch.fcgi"):
			w.Write([]byte(searchEsearchBody))
		case strings.HasSuffix(r.URL.Path, "esummary.fcgi"):
			w.Write([]byte(searchEsummaryBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestGEOClientSearchReturnsSeriesLevelDatasets(t *testing.T) {
	srv := newGEOSearchTestServer(t)
	defer srv.Close()

	client := NewGEOClient(Config{BaseURL: srv.URL}, ratelimit.NewRegistry(), resty.New())

	records, err := client.Search(t.Context(), "breast cancer", nil, 10)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 series-level datasets (GSM entry filtered out), got %d", len(records))
	}
	if records[0].Dataset.GeoID != "GSE12345" || records[1].Dataset.GeoID != "GSE67890" {
		t.Errorf("unexpected accessions: %q, %q", records[0].Dataset.GeoID, records[1].Dataset.GeoID)
	}
}

func TestGEOClientSearchRejectsEmptyQuery(t *testing.T) {
	client := NewGEOClient(Config{}, ratelimit.NewRegistry(), resty.New())
	if _, err := client.Search(t.Context(), "   ", nil, 10); err == nil {
		t.Errorf("expected an error for an empty query")
	}
}

func TestGEOClientGetPDFURLAlwaysNil(t *testing.T) {
	client := NewGEOClient(Config{}, ratelimit.NewRegistry(), resty.New())
	url, err := client.GetPDFURL(t.Context(), nil)
	if err != nil || url != nil {
		t.Errorf("GetPDFURL() = (%v, %v), want (nil, nil)", url, err)
	}
}
