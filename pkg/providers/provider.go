// Package providers implements a client for each of the thirteen external
// metadata and full-text services, behind a single small interface.
// Adapted from an earlier downloaders.Downloader interface and registry,
// generalized from "download a dataset from a repository" to "resolve
// citation and full-text metadata for a publication or dataset".
package providers

import (
	"context"
	"time"

	"github.com/btraven00/geofetch/pkg/models"
)

// Record is the normalized, tagged-variant shape every provider adapter
// produces. Optional fields are genuinely optional: absence is not
// papered over with sentinels.
type Record struct {
	Publication *models.Publication
	Dataset     *models.Dataset
	RawProvider string
}

// Client is the uniform contract every provider implements. Lookup and
// Search are non-fatal on failure (return an error the caller treats as
// Absent); only GetPDFURL has an Absent return distinct from error, because
// "no PDF URL" is an expected steady-state outcome, not a failure.
type Client interface {
	// Name returns the provider tag used in priority bands, provenance,
	// and configuration.
	Name() string

	// Lookup resolves a single identifier (PMID, DOI, geo_id) to a Record.
	Lookup(ctx context.Context, id string) (*Record, error)

	// Search runs a free-text or filtered query, bounded by limit.
	Search(ctx context.Context, query string, filters map[string]string, limit int) ([]Record, error)

	// GetPDFURL resolves a candidate full-text URL for a publication, or
	// (nil, nil) if this provider has nothing to offer for it.
	GetPDFURL(ctx context.Context, pub *models.Publication) (*models.SourceURL, error)
}

// NotFound is returned by Lookup when the id is well-formed but the
// provider has no record of it — distinct from a TransientProviderError or
// FatalProviderError.
type NotFound struct {
	Provider string
	ID       string
}

func (e *NotFound) Error() string {
	return e.Provider + ": not found: " + e.ID
}

// Config is the per-provider runtime configuration a Client constructor
// consumes.
type Config struct {
	BaseURL       string
	Email         string
	APIKey        string
	Enable        bool
	SSLVerify     bool
	Timeout       time.Duration
	MaxRetries    int
	RateLimitPerS float64
}
