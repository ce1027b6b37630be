package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-resty/resty/v2"

	"github.com/btraven00/geofetch/internal/config"
	"github.com/btraven00/geofetch/internal/httpx"
	"github.com/btraven00/geofetch/internal/ratelimit"
	"github.com/btraven00/geofetch/pkg/cache"
	"github.com/btraven00/geofetch/pkg/content"
	"github.com/btraven00/geofetch/pkg/discovery"
	"github.com/btraven00/geofetch/pkg/download"
	"github.com/btraven00/geofetch/pkg/index"
	"github.com/btraven00/geofetch/pkg/models"
	"github.com/btraven00/geofetch/pkg/orchestrate"
	"github.com/btraven00/geofetch/pkg/providers"
	"github.com/btraven00/geofetch/pkg/urlcollect"
)

// app bundles every wired component the CLI commands drive. Building it is
// the single place that knows how the nine spec components connect.
type app struct {
	cfg          *config.Config
	idx          *index.Index
	orchestrator *orchestrate.Orchestrator
	cache        *cache.Cache
	registry     *providers.Registry
}

func buildApp(cfg *config.Config) (*app, error) {
	limiter := ratelimit.NewRegistry()
	for name, pc := range cfg.Providers {
		limiter.Register(name, pc.RateLimitPerS)
	}

	registry := providers.NewRegistry()
	httpClients := make(map[string]*resty.Client, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		httpClients[name] = httpx.New(httpx.Options{Timeout: pc.Timeout(), MaxRetries: pc.MaxRetries, SSLVerify: pc.SSLVerify})
	}

	var searchClients []providers.Client
	var proxyClient *providers.ProxyClient
	var geoClient *providers.GEOClient

	for name, pc := range cfg.Providers {
		if !pc.Enable {
			continue
		}
		pcfg := providers.Config{
			BaseURL: pc.BaseURL, Email: pc.Email, APIKey: pc.APIKey,
			Enable: pc.Enable, SSLVerify: pc.SSLVerify, Timeout: pc.Timeout(),
			MaxRetries: pc.MaxRetries, RateLimitPerS: pc.RateLimitPerS,
		}
		httpClient := httpClients[name]

		var client providers.Client
		switch name {
		case "geo":
			gc := providers.NewGEOClient(pcfg, limiter, httpClient)
			geoClient = gc
			client = gc
		case "pubmed":
			client = providers.NewPubMedClient(pcfg, limiter, httpClient)
			searchClients = append(searchClients, client)
		case "openalex":
			client = providers.NewOpenAlexClient(pcfg, limiter, httpClient)
		case "unpaywall":
			client = providers.NewUnpaywallClient(pcfg, limiter, httpClient)
		case "pmc":
			client = providers.NewPMCClient(pcfg, limiter, httpClient)
		case "crossref":
			client = providers.NewCrossrefClient(pcfg, limiter, httpClient)
		case "core":
			client = providers.NewCOREClient(pcfg, limiter, httpClient)
		case "europepmc":
			client = providers.NewEuropePMCClient(pcfg, limiter, httpClient)
			searchClients = append(searchClients, client)
		case "biorxiv":
			client = providers.NewBiorxivClient(pcfg, limiter, httpClient)
		case "arxiv":
			client = providers.NewArxivClient(pcfg, limiter, httpClient)
		case "scihub":
			client = providers.NewSciHubClient(pcfg, limiter, httpClient)
		case "libgen":
			client = providers.NewLibgenClient(pcfg, limiter, httpClient)
		case "proxy":
			pc := providers.NewProxyClient(pcfg, limiter, httpClient)
			proxyClient = pc
			client = pc
		default:
			continue
		}
		registry.Register(client)
	}

	fingerprintCache, err := cache.New()
	if err != nil {
		return nil, fmt.Errorf("cmd: build cache: %w", err)
	}

	idx, err := index.Open(cfg.Paths.IndexDBPath)
	if err != nil {
		return nil, fmt.Errorf("cmd: open index: %w", err)
	}

	discoverer := discovery.New(searchClients, cfg.Enrichment)
	collector := urlcollect.New(registry, fingerprintCache, proxyClient, cfg.Deadlines.PerURLTimeout(), cfg.Concurrency.PubsPerDataset)
	downloadClient := httpx.New(httpx.Options{Timeout: cfg.Deadlines.PerURLTimeout(), MaxRetries: 2, SSLVerify: true})
	store := content.New(cfg.Paths.CacheSpillPath, filepath.Join(cfg.Paths.DataRoot, "by_pub_id"))
	engine := download.New(cfg.Paths.DataRoot, downloadClient, cfg.Deadlines.PerPublicationBudget(), store)
	pool := download.NewPool(engine, cfg.Concurrency.DownloadsGlobal)

	var geoSearchClient providers.Client
	if geoClient != nil {
		geoSearchClient = geoClient
	}
	orchestrator := orchestrate.New(idx, geoSearchClient, discoverer, collector, pool, store, cfg)

	return &app{cfg: cfg, idx: idx, orchestrator: orchestrator, cache: fingerprintCache, registry: registry}, nil
}

// originalPublication resolves the publication record for a dataset's
// first linked PMID via the pubmed client, used by the enrich command to
// give the orchestrator an anchor for citation discovery.
func (a *app) originalPublication(ctx context.Context, geoID string) (*models.Publication, error) {
	ds, err := a.idx.GetDataset(ctx, geoID)
	if err != nil {
		return nil, fmt.Errorf("cmd: dataset %s not indexed: %w", geoID, err)
	}
	if len(ds.PublicationPMIDs) == 0 {
		return nil, nil
	}
	client, err := a.registry.Get("pubmed")
	if err != nil {
		return nil, nil
	}
	rec, err := client.Lookup(ctx, ds.PublicationPMIDs[0])
	if err != nil || rec == nil {
		return nil, nil
	}
	return rec.Publication, nil
}

func (a *app) Close() {
	a.idx.Close()
	a.cache.Close()
}
