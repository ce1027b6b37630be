// Package download implements a per-URL state machine that walks a
// publication's sorted candidate URLs until one yields a validated PDF or
// the list is exhausted, persisting to a fixed filesystem layout with
// atomic rename, grounded on earlier downloader filesystem helpers and
// worker pool code.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/btraven00/geofetch/internal/httpx"
	"github.com/btraven00/geofetch/internal/logging"
	"github.com/btraven00/geofetch/pkg/content"
	"github.com/btraven00/geofetch/pkg/models"
)

// state names the Download Engine's state machine position for a single
// candidate URL.
type state int

const (
	stateIdle state = iota
	stateRequestIssued
	stateContentSniff
	stateValidated
	stateLandingPageParse
	stateSuccess
	stateFailThisURL
)

const maxRetriesPerURL = 2

// Engine drives the per-publication download state machine. Concurrency
// across publications is bounded by an external worker pool (Engine itself
// is stateless aside from its http client and locks map).
type Engine struct {
	http         *resty.Client
	root         string
	perPubBudget time.Duration
	locks        *lockRegistry
	store        *content.Store
}

// New builds a download engine rooted at dataRoot, using a
// {root}/{geo_id}/{original|citing}/{pub_filename}.pdf layout for the
// dataset-scoped view. Every successful download is also registered with
// store under the publication's identity, so a publication cited by two
// datasets resolves to one canonical file regardless of which dataset's
// download ran first.
func New(dataRoot string, httpClient *resty.Client, perPublicationBudget time.Duration, store *content.Store) *Engine {
	return &Engine{
		http:         httpClient,
		root:         dataRoot,
		perPubBudget: perPublicationBudget,
		locks:        newLockRegistry(),
		store:        store,
	}
}

var filenameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// sanitizeFilename mirrors an earlier common.SanitizeFilename: strip
// anything outside a conservative charset so provider-supplied titles
// never escape the target directory or collide with shell metacharacters.
func sanitizeFilename(name string) string {
	cleaned := filenameSanitizer.ReplaceAllString(name, "_")
	if cleaned == "" {
		cleaned = "publication"
	}
	if len(cleaned) > 120 {
		cleaned = cleaned[:120]
	}
	return cleaned
}

// pdfPath returns the deterministic target path for a publication.
func (e *Engine) pdfPath(geoID string, relation models.Relation, pub *models.Publication) string {
	subdir := "original"
	if relation == models.RelationCiting {
		subdir = "citing"
	}
	name := sanitizeFilename(pub.Identity()) + ".pdf"
	return filepath.Join(e.root, sanitizeFilename(geoID), subdir, name)
}

// Download walks candidates.URLs in priority order, advancing the per-URL
// state machine for each until one succeeds or the list is exhausted,
// bounded by e.perPubBudget for the whole publication.
func (e *Engine) Download(ctx context.Context, geoID string, relation models.Relation, pub *models.Publication, candidates *models.CandidateURLs) *models.DownloadResult {
	logger := logging.New("download")
	result := &models.DownloadResult{PublicationID: pub.Identity()}

	unlock := e.locks.lock(pub.Identity())
	defer unlock()

	target := e.pdfPath(geoID, relation, pub)
	if info, err := os.Stat(target); err == nil && info.Size() > 0 {
		result.Success = true
		result.PDFPath = target
		result.FileSize = info.Size()
		result.SuccessfulSource = "cache"
		result.DownloadedAt = time.Now()
		return result
	}

	if canonical, err := e.store.GetPDF(pub.Identity()); err == nil {
		if body, readErr := os.ReadFile(canonical); readErr == nil {
			if path, size, writeErr := writeAtomic(target, body); writeErr == nil {
				result.Success = true
				result.PDFPath = path
				result.FileSize = size
				result.SuccessfulSource = "cache"
				result.DownloadedAt = time.Now()
				return result
			}
		}
	}

	budgetCtx, cancel := context.WithTimeout(ctx, e.perPubBudget)
	defer cancel()

	for _, candidate := range candidates.URLs {
		select {
		case <-budgetCtx.Done():
			result.Errors = append(result.Errors, models.DownloadError{Provider: candidate.Provider, Reason: "publication budget exceeded"})
			return result
		default:
		}

		path, size, err := e.attempt(budgetCtx, pub.Identity(), candidate, target)
		if err != nil {
			result.Errors = append(result.Errors, models.DownloadError{Provider: candidate.Provider, Reason: err.Error()})
			logger.Debug("candidate url failed", "provider", candidate.Provider, "err", err)
			continue
		}
		result.Success = true
		result.PDFPath = path
		result.FileSize = size
		result.SuccessfulSource = candidate.Provider
		result.DownloadedAt = time.Now()
		return result
	}

	return result
}

// attempt drives Idle->RequestIssued->ContentSniff->(Validated|LandingPageParse)->Success|FailThisURL
// for a single candidate, retrying transient failures up to maxRetriesPerURL
// with BackoffWithJitter.
func (e *Engine) attempt(ctx context.Context, pubID string, candidate models.SourceURL, target string) (string, int64, error) {
	url := candidate.URL
	st := stateIdle

	for try := 0; try <= maxRetriesPerURL; try++ {
		if try > 0 {
			select {
			case <-time.After(httpx.BackoffWithJitter(try)):
			case <-ctx.Done():
				return "", 0, ctx.Err()
			}
		}

		st = stateRequestIssued
		resp, err := e.http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(url)
		if err != nil {
			continue
		}
		raw := resp.RawResponse
		body, readErr := io.ReadAll(raw.Body)
		raw.Body.Close()
		if readErr != nil {
			continue
		}

		st = stateContentSniff
		contentType := raw.Header.Get("Content-Type")

		if raw.StatusCode != http.StatusOK {
			if raw.StatusCode >= 500 || raw.StatusCode == http.StatusTooManyRequests {
				continue // transient, retry
			}
			st = stateFailThisURL
			return "", 0, fmt.Errorf("http %d", raw.StatusCode)
		}

		if models.LooksLikePDF(body) {
			st = stateValidated
			path, size, err := e.persist(pubID, target, body)
			if err != nil {
				return "", 0, err
			}
			st = stateSuccess
			return path, size, nil
		}

		if httpx.LooksLikeHTML(contentType) {
			st = stateLandingPageParse
			if embedded, ok := extractEmbeddedPDFURL(body); ok {
				url = embedded
				try = -1 // restart the retry budget against the embedded URL
				continue
			}
		}

		st = stateFailThisURL
		return "", 0, fmt.Errorf("response did not validate as pdf (content-type=%q, state=%d)", contentType, st)
	}

	return "", 0, fmt.Errorf("exhausted retries in state %d", st)
}

// persist validates minimum size, registers body as pubID's canonical PDF
// with the content store, then writes the dataset-scoped copy at target via
// the same tmp-then-rename idiom earlier downloaders used to avoid partial
// files surviving a crash.
func (e *Engine) persist(pubID, target string, body []byte) (string, int64, error) {
	if len(body) < models.MinPDFSize {
		return "", 0, fmt.Errorf("pdf smaller than minimum size (%d bytes)", len(body))
	}
	if _, err := e.store.PutPDF(pubID, body); err != nil {
		return "", 0, fmt.Errorf("store canonical pdf: %w", err)
	}
	return writeAtomic(target, body)
}

// writeAtomic writes body to target via a temp file plus rename.
func writeAtomic(target string, body []byte) (string, int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", 0, fmt.Errorf("mkdir: %w", err)
	}
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		return "", 0, fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return "", 0, fmt.Errorf("rename into place: %w", err)
	}
	return target, int64(len(body)), nil
}

// lockRegistry gives each publication identity an advisory in-process
// mutex so two concurrent download tasks for the same publication (e.g.
// original + a duplicate citing entry) never race on the same target file.
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

// extractEmbeddedPDFURL parses a landing page for an embedded PDF link via
// the same goquery selectors PMCClient/SciHubClient use for provider-hosted
// landing pages: citation_pdf_url meta tag first, then an embed/iframe.
func extractEmbeddedPDFURL(body []byte) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", false
	}
	if href, ok := doc.Find(`meta[name="citation_pdf_url"]`).Attr("content"); ok && href != "" {
		return href, true
	}
	if src, ok := doc.Find("embed#pdf, iframe#pdf").Attr("src"); ok && src != "" {
		if strings.HasPrefix(src, "//") {
			src = "https:" + src
		}
		return src, true
	}
	return "", false
}
