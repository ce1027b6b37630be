package download

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/btraven00/geofetch/pkg/content"
	"github.com/btraven00/geofetch/pkg/models"
)

func validPDFBody() []byte {
	body := bytes.NewBufferString("%PDF-1.4\n")
	body.Write(bytes.Repeat([]byte("x"), models.MinPDFSize))
	return body.Bytes()
}

func newTestStore(t *testing.T) *content.Store {
	t.Helper()
	return content.New(t.TempDir(), t.TempDir())
}

func TestDownloadSucceedsOnFirstCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(validPDFBody())
	}))
	defer srv.Close()

	root := t.TempDir()
	engine := New(root, resty.New(), 5*time.Second, newTestStore(t))
	pub := &models.Publication{PMID: "1", Title: "Test"}
	candidates := &models.CandidateURLs{URLs: []models.SourceURL{{URL: srv.URL, Provider: "pmc"}}}

	result := engine.Download(t.Context(), "GSE1", models.RelationOriginal, pub, candidates)

	if !result.Success {
		t.Fatalf("expected success, errors: %v", result.Errors)
	}
	if result.SuccessfulSource != "pmc" {
		t.Errorf("SuccessfulSource = %q, want pmc", result.SuccessfulSource)
	}
	if _, err := os.Stat(result.PDFPath); err != nil {
		t.Errorf("expected pdf file to exist at %s: %v", result.PDFPath, err)
	}
}

func TestDownloadFallsThroughToSecondCandidate(t *testing.T) {
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer badSrv.Close()
	goodSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(validPDFBody())
	}))
	defer goodSrv.Close()

	root := t.TempDir()
	engine := New(root, resty.New(), 5*time.Second, newTestStore(t))
	pub := &models.Publication{PMID: "2", Title: "Test2"}
	candidates := &models.CandidateURLs{URLs: []models.SourceURL{
		{URL: badSrv.URL, Provider: "scihub"},
		{URL: goodSrv.URL, Provider: "pmc"},
	}}

	result := engine.Download(t.Context(), "GSE2", models.RelationOriginal, pub, candidates)

	if !result.Success {
		t.Fatalf("expected success via fallthrough, errors: %v", result.Errors)
	}
	if result.SuccessfulSource != "pmc" {
		t.Errorf("SuccessfulSource = %q, want pmc", result.SuccessfulSource)
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected one recorded failure from the bad candidate, got %v", result.Errors)
	}
}

func TestDownloadExhaustsAllCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	root := t.TempDir()
	engine := New(root, resty.New(), 5*time.Second, newTestStore(t))
	pub := &models.Publication{PMID: "3"}
	candidates := &models.CandidateURLs{URLs: []models.SourceURL{{URL: srv.URL, Provider: "scihub"}}}

	result := engine.Download(t.Context(), "GSE3", models.RelationOriginal, pub, candidates)

	if result.Success {
		t.Fatalf("expected failure when all candidates 404")
	}
	if len(result.Errors) != 1 {
		t.Errorf("expected one recorded error, got %v", result.Errors)
	}
}

func TestDownloadUsesCacheWhenFileAlreadyExists(t *testing.T) {
	root := t.TempDir()
	engine := New(root, resty.New(), 5*time.Second, newTestStore(t))
	pub := &models.Publication{PMID: "4"}

	target := engine.pdfPath("GSE4", models.RelationOriginal, pub)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(target, validPDFBody(), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	candidates := &models.CandidateURLs{URLs: []models.SourceURL{{URL: "http://should-not-be-fetched.invalid", Provider: "pmc"}}}
	result := engine.Download(t.Context(), "GSE4", models.RelationOriginal, pub, candidates)

	if !result.Success || result.SuccessfulSource != "cache" {
		t.Errorf("expected a cache hit, got success=%v source=%q", result.Success, result.SuccessfulSource)
	}
}

func TestDownloadReusesCanonicalPDFAcrossDatasets(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(validPDFBody())
	}))
	defer srv.Close()

	root := t.TempDir()
	store := newTestStore(t)
	engine := New(root, resty.New(), 5*time.Second, store)
	pub := &models.Publication{PMID: "5"}
	candidates := &models.CandidateURLs{URLs: []models.SourceURL{{URL: srv.URL, Provider: "pmc"}}}

	first := engine.Download(t.Context(), "GSE5", models.RelationOriginal, pub, candidates)
	if !first.Success {
		t.Fatalf("expected first download to succeed, errors: %v", first.Errors)
	}

	second := engine.Download(t.Context(), "GSE6", models.RelationCiting, pub, candidates)
	if !second.Success || second.SuccessfulSource != "cache" {
		t.Errorf("expected the same publication cited by a second dataset to reuse the canonical pdf, got success=%v source=%q", second.Success, second.SuccessfulSource)
	}
	if calls != 1 {
		t.Errorf("expected only one network fetch across both datasets, got %d", calls)
	}
	if !store.HasPDF(pub.Identity()) {
		t.Errorf("expected the canonical store to hold the publication's pdf")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"pmid:123":          "pmid_123",
		"doi:10.1/abc.def":  "doi_10.1_abc.def",
		"":                  "publication",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPool_RunProcessesAllJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(validPDFBody())
	}))
	defer srv.Close()

	root := t.TempDir()
	engine := New(root, resty.New(), 5*time.Second, newTestStore(t))
	pool := NewPool(engine, 2)

	jobs := []Job{
		{GeoID: "GSE1", Relation: models.RelationOriginal, Publication: &models.Publication{PMID: "1"}, Candidates: &models.CandidateURLs{URLs: []models.SourceURL{{URL: srv.URL, Provider: "pmc"}}}},
		{GeoID: "GSE1", Relation: models.RelationCiting, Publication: &models.Publication{PMID: "2"}, Candidates: &models.CandidateURLs{URLs: []models.SourceURL{{URL: srv.URL, Provider: "pmc"}}}},
	}

	results := pool.Run(t.Context(), jobs)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if r == nil || !r.Success {
			t.Errorf("job %d: expected success, got %+v", i, r)
		}
	}
}
