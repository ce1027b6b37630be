// Package urlcollect implements URL collection: for a publication, fan
// out to every enabled provider for a candidate full-text URL, filter out
// known-broken patterns, and produce a priority-sorted CandidateURLs.
package urlcollect

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/btraven00/geofetch/pkg/cache"
	"github.com/btraven00/geofetch/pkg/models"
	"github.com/btraven00/geofetch/pkg/providers"
)

const cacheNamespace = "urlcollect"

// Collector fans a single publication out to every registered provider's
// GetPDFURL, bounded by a semaphore sized from config.ConcurrencyConfig
// (the same "one semaphore per fan-out stage" shape as an earlier worker
// pool, rebuilt on golang.org/x/sync/semaphore instead of a raw channel
// since the fan-out width here is set per call, not per pool).
type Collector struct {
	registry    *providers.Registry
	cache       *cache.Cache
	proxy       *providers.ProxyClient
	perURL      time.Duration
	maxParallel int64
}

// New builds a Collector. proxy may be nil when no institutional proxy is
// configured.
func New(registry *providers.Registry, c *cache.Cache, proxy *providers.ProxyClient, perURLTimeout time.Duration, maxParallel int) *Collector {
	if maxParallel <= 0 {
		maxParallel = 5
	}
	return &Collector{registry: registry, cache: c, proxy: proxy, perURL: perURLTimeout, maxParallel: int64(maxParallel)}
}

// Collect resolves candidate URLs for pub, checking the fingerprint cache
// first and caching the sorted result as PositiveShort (a publisher can
// start/stop hosting a PDF, so results aren't cached as long-lived as
// provider metadata).
func (c *Collector) Collect(ctx context.Context, pub *models.Publication) (*models.CandidateURLs, error) {
	id := pub.Identity()
	if cached, ok := c.cache.Get(cacheNamespace, id); ok {
		if cu, ok := cached.(*models.CandidateURLs); ok {
			return cu, nil
		}
	}

	result := &models.CandidateURLs{PublicationID: id}
	sem := semaphore.NewWeighted(c.maxParallel)
	clients := c.registry.All()
	resultsCh := make(chan fetchOutcome, len(clients))

	var wg sync.WaitGroup
	for _, client := range clients {
		client := client
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context canceled or deadline exceeded before this (and any
			// remaining) client could be launched; stop launching instead
			// of blocking, the receive loop below only waits on goroutines
			// actually started.
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			resultsCh <- c.fetchOne(ctx, client, pub)
		}()
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	for outcome := range resultsCh {
		result.Provenance = append(result.Provenance, outcome.provenance)
		if outcome.url != nil && passesSanityFilter(*outcome.url) {
			su := *outcome.url
			su.ProviderOrdinal = c.registry.Ordinal(su.Provider)
			if c.proxy != nil {
				su = c.proxy.Rewrite(su)
			}
			result.URLs = append(result.URLs, su)
		}
	}

	result.Sort()
	c.cache.Set(cacheNamespace, id, result, cache.PositiveShort)
	return result, nil
}

type fetchOutcome struct {
	provenance models.ProviderOutcome
	url        *models.SourceURL
}

func (c *Collector) fetchOne(ctx context.Context, client providers.Client, pub *models.Publication) fetchOutcome {
	taskCtx, cancel := context.WithTimeout(ctx, c.perURL)
	defer cancel()

	url, err := client.GetPDFURL(taskCtx, pub)
	if err != nil {
		return fetchOutcome{provenance: models.ProviderOutcome{Provider: client.Name(), Found: false, Reason: err.Error()}}
	}
	if url == nil {
		return fetchOutcome{provenance: models.ProviderOutcome{Provider: client.Name(), Found: false, Reason: "not_found"}}
	}
	return fetchOutcome{provenance: models.ProviderOutcome{Provider: client.Name(), Found: true}, url: url}
}

// passesSanityFilter drops candidate URLs matching known-broken patterns —
// PMC's bulk OA endpoint returns an HTML 403 page for embargoed articles
// under a 200 status, so a URL through it without an explicit landing-page
// confirmation is untrustworthy here.
func passesSanityFilter(u models.SourceURL) bool {
	if strings.Contains(u.URL, "/pmc/utils/oa/oa.fcgi") {
		return false
	}
	if u.URL == "" {
		return false
	}
	return true
}
