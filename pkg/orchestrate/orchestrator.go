// Package orchestrate implements the search and enrichment orchestrator:
// it runs a ranked dataset search, then fans out per-dataset enrichment
// (citation discovery, URL collection, download, content parsing) bounded
// by two semaphores (datasets in parallel, publications per dataset) and
// the download pool's worker count, grounded on an earlier worker-pool
// concurrency shape generalized from one stage to a multi-stage
// per-dataset pipeline.
package orchestrate

import (
	"bytes"
	"context"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/semaphore"

	"github.com/btraven00/geofetch/internal/config"
	"github.com/btraven00/geofetch/internal/logging"
	"github.com/btraven00/geofetch/pkg/content"
	"github.com/btraven00/geofetch/pkg/discovery"
	"github.com/btraven00/geofetch/pkg/download"
	"github.com/btraven00/geofetch/pkg/index"
	"github.com/btraven00/geofetch/pkg/models"
	"github.com/btraven00/geofetch/pkg/providers"
	"github.com/btraven00/geofetch/pkg/ranking"
	"github.com/btraven00/geofetch/pkg/urlcollect"
)

// EnrichedDataset is one search result after the optional enrichment
// phases have run.
type EnrichedDataset struct {
	Dataset      models.Dataset
	Score        ranking.Score
	Citing       []models.Publication
	Downloads    []models.DownloadResult
	ParsedByPub  map[string]models.ContentSummary
	FullContent  map[string]models.ParsedContent
}

// SearchRequest is the input to Search.
type SearchRequest struct {
	Query              string
	Limit              int
	IncludeFullContent bool
}

// SearchResponse is the Search operation's output, optionally
// gzip-compressed by AssembleCompressed when the caller is a transport
// boundary.
type SearchResponse struct {
	Results []EnrichedDataset
}

// Orchestrator wires together every component into the three pipeline
// operations: Search, Enrich, Assemble.
type Orchestrator struct {
	idx        *index.Index
	geo        providers.Client
	discoverer *discovery.Discoverer
	collector  *urlcollect.Collector
	downloads  *download.Pool
	contents   *content.Store
	cfg        *config.Config
	datasetSem *semaphore.Weighted
	pubSem     *semaphore.Weighted
}

// New builds an Orchestrator from its already-constructed component
// dependencies. geo is the GEO client Search uses to ingest new datasets
// into idx before ranking; it may be nil if GEO is disabled in
// configuration, in which case Search falls back to the index alone.
func New(idx *index.Index, geo providers.Client, discoverer *discovery.Discoverer, collector *urlcollect.Collector, downloads *download.Pool, contents *content.Store, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		idx:        idx,
		geo:        geo,
		discoverer: discoverer,
		collector:  collector,
		downloads:  downloads,
		contents:   contents,
		cfg:        cfg,
		datasetSem: semaphore.NewWeighted(int64(max1(cfg.Concurrency.DatasetsInParallel))),
		pubSem:     semaphore.NewWeighted(int64(max1(cfg.Concurrency.PubsPerDataset))),
	}
}

func max1(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

// Search runs the ranked-search phase: ingest fresh GEO results for the
// query into the index, then rank the index's matches (old and newly
// ingested alike) by term match + quality, returning datasets in
// best-first order. Enrichment is a separate, optional phase (Enrich), not
// run implicitly.
func (o *Orchestrator) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	terms := parseQuery(req.Query)
	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}

	if o.geo != nil {
		if err := o.ingest(ctx, req.Query, limit*4); err != nil {
			logging.New("orchestrate").Warn("geo search ingest failed, falling back to indexed datasets", "err", err)
		}
	}

	datasets, err := o.idx.SearchDatasets(ctx, req.Query, limit*4)
	if err != nil {
		return nil, fmt.Errorf("orchestrate: search: %w", err)
	}

	scores := ranking.Rank(datasets, terms)
	byID := make(map[string]models.Dataset, len(datasets))
	for _, ds := range datasets {
		byID[ds.GeoID] = ds
	}

	results := make([]EnrichedDataset, 0, limit)
	for _, sc := range scores {
		if len(results) >= limit {
			break
		}
		ds, ok := byID[sc.GeoID]
		if !ok {
			continue
		}
		results = append(results, EnrichedDataset{Dataset: ds, Score: sc})
	}

	return &SearchResponse{Results: results}, nil
}

// ingest runs a live GEO free-text search for query, using the historical
// generic-term-strip plus AND/OR heuristic to build the provider query, and
// upserts every result into the index so Search's ranking pass can see it.
func (o *Orchestrator) ingest(ctx context.Context, query string, limit int) error {
	providerQuery := buildProviderQuery(query)
	if providerQuery == "" {
		return nil
	}

	records, err := o.geo.Search(ctx, providerQuery, nil, limit)
	if err != nil {
		return fmt.Errorf("orchestrate: geo search: %w", err)
	}

	for _, rec := range records {
		if rec.Dataset == nil {
			continue
		}
		ds := *rec.Dataset
		ds.QualityScore = ranking.QualityFromInputs(models.QualityInputs{
			HasTitle:         ds.Title != "",
			HasSummary:       ds.Summary != "",
			HasOrganism:      ds.Organism != "",
			HasPlatform:      ds.Platform != "",
			SampleCount:      ds.SampleCount,
			HasLinkedPubMIDs: len(ds.PublicationPMIDs) > 0,
		})
		if err := o.idx.UpsertDataset(ctx, &ds); err != nil {
			return fmt.Errorf("orchestrate: upsert %s: %w", ds.GeoID, err)
		}
	}
	return nil
}

// Enrich runs citation discovery and, when PDF download is enabled, URL
// collection, download and parsing for one dataset's enrichment result in
// place, bounded by the dataset- and publication-level semaphores.
func (o *Orchestrator) Enrich(ctx context.Context, result *EnrichedDataset, original *models.Publication) error {
	if err := o.datasetSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer o.datasetSem.Release(1)

	geoID := result.Dataset.GeoID

	disco, err := o.discoverer.Discover(ctx, geoID, original)
	if err != nil {
		return fmt.Errorf("orchestrate: discover %s: %w", geoID, err)
	}
	result.Citing = disco.Citing

	if !o.cfg.Enrichment.DownloadPDFs {
		return nil
	}

	pubs := append([]models.Publication{}, disco.Citing...)
	if original != nil {
		pubs = append([]models.Publication{*original}, pubs...)
	}

	var jobs []download.Job
	for i := range pubs {
		pub := pubs[i]
		if err := o.pubSem.Acquire(ctx, 1); err != nil {
			break
		}
		candidates, cErr := o.collector.Collect(ctx, &pub)
		o.pubSem.Release(1)
		if cErr != nil {
			continue
		}
		relation := models.RelationCiting
		if original != nil && pub.Identity() == original.Identity() {
			relation = models.RelationOriginal
		}
		jobs = append(jobs, download.Job{GeoID: geoID, Relation: relation, Publication: &pub, Candidates: candidates})
	}

	downloadResults := o.downloads.Run(ctx, jobs)
	result.Downloads = make([]models.DownloadResult, 0, len(downloadResults))
	for _, dr := range downloadResults {
		if dr == nil {
			continue
		}
		result.Downloads = append(result.Downloads, *dr)
		if err := o.idx.RecordDownload(ctx, dr); err != nil {
			continue
		}
	}

	if o.cfg.Enrichment.IncludeFullContent {
		result.FullContent = make(map[string]models.ParsedContent)
		for _, dr := range result.Downloads {
			if !dr.Success {
				continue
			}
			parsed, err := o.contents.GetParsed(ctx, dr.PublicationID)
			if err != nil {
				continue
			}
			result.FullContent[dr.PublicationID] = *parsed
		}
	} else {
		result.ParsedByPub = make(map[string]models.ContentSummary)
		for _, dr := range result.Downloads {
			if summary, ok := o.contents.GetSummary(dr.PublicationID); ok {
				result.ParsedByPub[dr.PublicationID] = *summary
			}
		}
	}

	return nil
}

// AssembleCompressed gzip-compresses the JSON-encoded response body,
// useful at a transport boundary when the search result includes full
// content. Callers that don't need compression should marshal resp
// directly instead of going through this.
func AssembleCompressed(jsonBody []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(jsonBody); err != nil {
		return nil, fmt.Errorf("orchestrate: gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("orchestrate: gzip close: %w", err)
	}
	return buf.Bytes(), nil
}
