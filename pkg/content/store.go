// Package content implements PDF-to-text extraction, section
// segmentation, and a JSON on-disk cache for the result, grounded on an
// earlier internal/extractor package's docconv usage and section-detection
// heuristics, with a singleflight guard so concurrent requests for the
// same publication's content converge on one extraction instead of
// racing.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"code.sajari.com/docconv/v2"
	"golang.org/x/sync/singleflight"

	"github.com/btraven00/geofetch/pkg/models"
)

// Store owns the canonical, publication-identity-keyed PDF (PutPDF/GetPDF)
// plus text extraction and its on-disk JSON cache. mentionPattern reuses a
// GEO-accession regex family to populate MentionedAccessions. A publication
// discovered from two different datasets converges on the same file here
// regardless of which dataset's download triggered it first.
type Store struct {
	cacheDir string
	pdfDir   string
	group    singleflight.Group
	locks    *lockRegistry
}

var mentionPattern = regexp.MustCompile(`\b(GSE\d+|GSM\d+|GPL\d+|GDS\d+)\b`)

// New builds a content store persisting parsed JSON under cacheDir as
// {cacheDir}/{pub_id}.json and canonical PDFs under pdfDir as
// {pdfDir}/{pub_id}.pdf.
func New(cacheDir, pdfDir string) *Store {
	return &Store{cacheDir: cacheDir, pdfDir: pdfDir, locks: newLockRegistry()}
}

func (s *Store) cachePath(pubID string) string {
	return filepath.Join(s.cacheDir, sanitizeID(pubID)+".json")
}

func (s *Store) pdfPath(pubID string) string {
	return filepath.Join(s.pdfDir, sanitizeID(pubID)+".pdf")
}

func sanitizeID(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_' || r == '-':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

// HasPDF reports whether pubID's canonical PDF has been stored.
func (s *Store) HasPDF(pubID string) bool {
	info, err := os.Stat(s.pdfPath(pubID))
	return err == nil && !info.IsDir() && info.Size() > 0
}

// GetPDF returns the canonical on-disk path for pubID's PDF, or an error if
// it hasn't been stored yet.
func (s *Store) GetPDF(pubID string) (string, error) {
	if !s.HasPDF(pubID) {
		return "", fmt.Errorf("content: no pdf stored for %s", pubID)
	}
	return s.pdfPath(pubID), nil
}

// PutPDF writes data as pubID's canonical PDF, atomically (temp file then
// rename) and guarded by a per-id lock, so two concurrent downloads of the
// same publication surfaced by different datasets converge on one file
// instead of racing. Returns the path GetPDF would then return.
func (s *Store) PutPDF(pubID string, data []byte) (string, error) {
	unlock := s.locks.lock(pubID)
	defer unlock()

	path := s.pdfPath(pubID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("content: mkdir pdf dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("content: write temp pdf: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("content: rename pdf into place: %w", err)
	}
	return path, nil
}

// GetParsed extracts and segments pubID's stored PDF, using the on-disk
// JSON cache when present and a singleflight group to collapse concurrent
// requests for the same publication onto one extraction.
func (s *Store) GetParsed(ctx context.Context, pubID string) (*models.ParsedContent, error) {
	if cached, err := s.readCache(pubID); err == nil {
		return cached, nil
	}

	pdfPath, err := s.GetPDF(pubID)
	if err != nil {
		return nil, fmt.Errorf("content: get parsed %s: %w", pubID, err)
	}

	v, err, _ := s.group.Do(pubID, func() (any, error) {
		return s.extract(pubID, pdfPath)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ParsedContent), nil
}

func (s *Store) extract(pubID, pdfPath string) (*models.ParsedContent, error) {
	res, err := docconv.ConvertPath(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("content: convert %s: %w", pdfPath, err)
	}

	sections := segment(res.Body)
	parsed := &models.ParsedContent{
		PublicationID:       pubID,
		Abstract:            sections["abstract"],
		Methods:             sections["methods"],
		Results:             sections["results"],
		Discussion:          sections["discussion"],
		SourcePDFPath:       pdfPath,
		ContentLength:       len(res.Body),
		ExtractionTimestamp: time.Now(),
		MentionedAccessions: dedupe(mentionPattern.FindAllString(res.Body, -1)),
	}

	if err := s.writeCache(parsed); err != nil {
		return nil, err
	}
	return parsed, nil
}

func dedupe(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	return out
}

func (s *Store) readCache(pubID string) (*models.ParsedContent, error) {
	data, err := os.ReadFile(s.cachePath(pubID))
	if err != nil {
		return nil, err
	}
	var parsed models.ParsedContent
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (s *Store) writeCache(parsed *models.ParsedContent) error {
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return fmt.Errorf("content: mkdir cache dir: %w", err)
	}
	data, err := json.Marshal(parsed)
	if err != nil {
		return fmt.Errorf("content: marshal parsed content: %w", err)
	}
	tmp := s.cachePath(parsed.PublicationID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("content: write cache: %w", err)
	}
	return os.Rename(tmp, s.cachePath(parsed.PublicationID))
}

// GetSummary returns the lightweight ContentSummary view without forcing a
// full GetParsed if the content is already cached.
func (s *Store) GetSummary(pubID string) (*models.ContentSummary, bool) {
	parsed, err := s.readCache(pubID)
	if err != nil {
		return nil, false
	}
	summary := parsed.Summary()
	return &summary, true
}

// lockRegistry gives each publication identity an advisory in-process mutex
// so two concurrent PutPDF calls for the same publication never race on the
// same canonical file.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{locks: make(map[string]*sync.Mutex)}
}

func (r *lockRegistry) lock(key string) func() {
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &sync.Mutex{}
		r.locks[key] = l
	}
	r.mu.Unlock()

	l.Lock()
	return l.Unlock
}
