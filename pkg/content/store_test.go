package content

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/btraven00/geofetch/pkg/models"
)

func TestHasPDF(t *testing.T) {
	s := New(t.TempDir(), t.TempDir())

	if s.HasPDF("pmid:missing") {
		t.Errorf("expected HasPDF to be false before PutPDF")
	}

	if _, err := s.PutPDF("pmid:1", []byte("%PDF-1.4")); err != nil {
		t.Fatalf("PutPDF() error: %v", err)
	}
	if !s.HasPDF("pmid:1") {
		t.Errorf("expected HasPDF to be true after PutPDF")
	}
}

func TestPutPDFGetPDFRoundtrip(t *testing.T) {
	s := New(t.TempDir(), t.TempDir())

	if _, err := s.GetPDF("pmid:1"); err == nil {
		t.Errorf("expected an error before the pdf is stored")
	}

	body := []byte("%PDF-1.4 some bytes")
	path, err := s.PutPDF("pmid:1", body)
	if err != nil {
		t.Fatalf("PutPDF() error: %v", err)
	}

	got, err := s.GetPDF("pmid:1")
	if err != nil {
		t.Fatalf("GetPDF() error: %v", err)
	}
	if got != path {
		t.Errorf("GetPDF() = %q, want %q", got, path)
	}
	if filepath.Base(got) != "pmid_1.pdf" {
		t.Errorf("GetPDF() path = %q, want a file named pmid_1.pdf", got)
	}
}

func TestPutPDFConvergesAcrossCallers(t *testing.T) {
	s := New(t.TempDir(), t.TempDir())

	first, err := s.PutPDF("pmid:1", []byte("from dataset A"))
	if err != nil {
		t.Fatalf("PutPDF() error: %v", err)
	}
	second, err := s.PutPDF("pmid:1", []byte("from dataset B, same publication"))
	if err != nil {
		t.Fatalf("PutPDF() error: %v", err)
	}
	if first != second {
		t.Errorf("expected the same publication to resolve to one canonical path, got %q and %q", first, second)
	}
}

func TestWriteCacheReadCacheRoundtrip(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, t.TempDir())

	parsed := &models.ParsedContent{
		PublicationID:       "pmid:1",
		Abstract:            "an abstract",
		ContentLength:       100,
		ExtractionTimestamp: time.Now(),
		MentionedAccessions: []string{"GSE1"},
	}
	if err := s.writeCache(parsed); err != nil {
		t.Fatalf("writeCache() error: %v", err)
	}

	got, err := s.readCache("pmid:1")
	if err != nil {
		t.Fatalf("readCache() error: %v", err)
	}
	if got.Abstract != "an abstract" || got.PublicationID != "pmid:1" {
		t.Errorf("readCache() = %+v, mismatch", got)
	}
}

func TestGetSummaryUsesCache(t *testing.T) {
	s := New(t.TempDir(), t.TempDir())

	if _, ok := s.GetSummary("pmid:nope"); ok {
		t.Errorf("expected GetSummary to miss when nothing is cached")
	}

	parsed := &models.ParsedContent{PublicationID: "pmid:1", Abstract: "abstract text", ContentLength: 42}
	if err := s.writeCache(parsed); err != nil {
		t.Fatalf("writeCache() error: %v", err)
	}

	summary, ok := s.GetSummary("pmid:1")
	if !ok {
		t.Fatalf("expected GetSummary to hit the cache")
	}
	if summary.PublicationID != "pmid:1" {
		t.Errorf("summary.PublicationID = %q, want pmid:1", summary.PublicationID)
	}
}

func TestGetParsedFailsWithoutStoredPDF(t *testing.T) {
	s := New(t.TempDir(), t.TempDir())
	if _, err := s.GetParsed(t.Context(), "pmid:nope"); err == nil {
		t.Errorf("expected an error when no pdf has been stored")
	}
}

func TestDedupe(t *testing.T) {
	got := dedupe([]string{"GSE1", "GSM1", "GSE1", "GSE2"})
	want := []string{"GSE1", "GSM1", "GSE2"}
	if len(got) != len(want) {
		t.Fatalf("dedupe() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("dedupe()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSanitizeID(t *testing.T) {
	if got := sanitizeID("pmid:123/x"); got != "pmid_123_x" {
		t.Errorf("sanitizeID() = %q, want pmid_123_x", got)
	}
}
