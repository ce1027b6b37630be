// Package discovery implements citation discovery: for a dataset's
// original publication, find papers that cite it or mention its geo_id,
// using two independent strategies run concurrently.
package discovery

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/btraven00/geofetch/internal/config"
	"github.com/btraven00/geofetch/pkg/models"
	"github.com/btraven00/geofetch/pkg/providers"
)

// searchClient is the subset of providers.Client that citation discovery
// needs; only providers whose Search implementation is meaningful (pubmed,
// europepmc) are registered against it.
type searchClient = providers.Client

// Discoverer runs both citation-discovery strategies against a configured
// set of search-capable provider clients.
type Discoverer struct {
	clients []searchClient
	cfg     config.EnrichmentConfig
}

// New builds a Discoverer over clients (the search-capable subset of the
// registry — in practice pubmed and europepmc).
func New(clients []searchClient, cfg config.EnrichmentConfig) *Discoverer {
	return &Discoverer{clients: clients, cfg: cfg}
}

// Result is the outcome of discovering citations for one dataset: the
// deduplicated citing publications, the associations to persist, and the
// error reason for any strategy that failed. A total failure still
// reports why, rather than silently returning zero results; a strategy
// that succeeds with no papers records no reason.
type Result struct {
	Citing         []models.Publication
	Associations   []models.GEOAssociation
	UntriedReasons map[string]string
}

// Discover runs the PMID-citation strategy (a "cites:<doi>" search, with
// the title standing in when there is no DOI) and the geo_id-mention strategy (query containing the geo_id)
// concurrently via golang.org/x/sync/errgroup, then merges results
// sequentially (strategy A first, strategy B's additions appended after) so
// the final order never depends on which goroutine finished first. Papers
// found by both strategies have their discovered_by upgraded to "both" (via
// models.MergeDiscoveredBy). Bounded by cfg.MaxCitingPapers, which truncates
// this deterministic order rather than an arbitrary one.
func (d *Discoverer) Discover(ctx context.Context, geoID string, original *models.Publication) (*Result, error) {
	if !d.cfg.IncludeCitingPapers {
		return &Result{UntriedReasons: map[string]string{"citing_papers": "disabled by configuration"}}, nil
	}

	var mu sync.Mutex
	reasons := make(map[string]string)
	var pmidPubs, geoidPubs []models.Publication

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pubs, err := d.runStrategy(gctx, "pmid_citation", original)
		if err != nil {
			mu.Lock()
			reasons["pmid_citation"] = err.Error()
			mu.Unlock()
			return nil // a strategy failing is not fatal to the other
		}
		pmidPubs = pubs
		return nil
	})

	g.Go(func() error {
		pubs, err := d.runGeoIDStrategy(gctx, geoID)
		if err != nil {
			mu.Lock()
			reasons["geoid_mention"] = err.Error()
			mu.Unlock()
			return nil
		}
		geoidPubs = pubs
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	order, found, discoveredBy := mergeOrdered(pmidPubs, geoidPubs)

	citing := make([]models.Publication, 0, len(order))
	associations := make([]models.GEOAssociation, 0, len(order))
	for _, id := range order {
		if d.cfg.MaxCitingPapers > 0 && len(citing) >= d.cfg.MaxCitingPapers {
			break
		}
		citing = append(citing, *found[id])
		associations = append(associations, models.GEOAssociation{
			GeoID:         geoID,
			PublicationID: id,
			Relation:      models.RelationCiting,
			DiscoveredBy:  discoveredBy[id],
		})
	}

	return &Result{Citing: citing, Associations: associations, UntriedReasons: reasons}, nil
}

// mergeOrdered merges strategyA's results first, then appends strategyB's
// additions in its own order, returning the merge order alongside the
// deduplicated publications and discovered_by tags so callers never need to
// range over a map to reconstruct it.
func mergeOrdered(strategyA, strategyB []models.Publication) ([]string, map[string]*models.Publication, map[string]models.DiscoveredBy) {
	found := make(map[string]*models.Publication)
	discoveredBy := make(map[string]models.DiscoveredBy)
	var order []string

	add := func(pubs []models.Publication, by models.DiscoveredBy) {
		for i := range pubs {
			id := pubs[i].Identity()
			if existing, ok := found[id]; ok {
				existing.Merge(&pubs[i])
				discoveredBy[id] = models.MergeDiscoveredBy(discoveredBy[id], by)
				continue
			}
			p := pubs[i]
			found[id] = &p
			discoveredBy[id] = by
			order = append(order, id)
		}
	}

	add(strategyA, models.DiscoveredByPMIDCitation)
	add(strategyB, models.DiscoveredByGeoIDMention)
	return order, found, discoveredBy
}

// runStrategy queries every search-capable client for papers that cite the
// original publication, searching on its DOI, or on its title when the DOI
// is empty. The PMID is not used.
func (d *Discoverer) runStrategy(ctx context.Context, name string, original *models.Publication) ([]models.Publication, error) {
	if original == nil {
		return nil, fmt.Errorf("%s: no original publication to search citations for", name)
	}
	term := original.DOI
	if term == "" {
		term = original.Title
	}
	if term == "" {
		return nil, fmt.Errorf("%s: original publication has no doi or title to search on", name)
	}
	return d.searchAll(ctx, "cites:"+term, nil)
}

// runGeoIDStrategy queries every search-capable client for papers that
// mention geoID in full text or abstract.
func (d *Discoverer) runGeoIDStrategy(ctx context.Context, geoID string) ([]models.Publication, error) {
	if geoID == "" {
		return nil, fmt.Errorf("geoid_mention: no geo_id")
	}
	return d.searchAll(ctx, geoID, map[string]string{"geo_id": geoID})
}

func (d *Discoverer) searchAll(ctx context.Context, query string, filters map[string]string) ([]models.Publication, error) {
	if len(d.clients) == 0 {
		return nil, fmt.Errorf("no search-capable providers configured")
	}
	var pubs []models.Publication
	var lastErr error
	ok := false
	for _, c := range d.clients {
		records, err := c.Search(ctx, query, filters, 50)
		if err != nil {
			lastErr = err
			continue
		}
		ok = true
		for _, r := range records {
			if r.Publication != nil {
				pubs = append(pubs, *r.Publication)
			}
		}
	}
	if !ok {
		if lastErr != nil {
			return nil, lastErr
		}
		return nil, fmt.Errorf("no providers returned results")
	}
	return pubs, nil
}
