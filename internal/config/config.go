// Package config loads typed configuration once at startup and hands it to
// every component by injection; there is no process-wide mutable config
// singleton.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// AuthMode is the provider auth contract: which credentials a provider
// expects to be configured with.
type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthEmail  AuthMode = "email"
	AuthAPIKey AuthMode = "api_key"
	AuthBoth   AuthMode = "both"
)

// ProviderConfig is one entry of the per-provider configuration contract.
type ProviderConfig struct {
	BaseURL        string
	Auth           AuthMode
	Email          string
	APIKey         string
	Enable         bool
	SSLVerify      bool
	TimeoutMS      int
	MaxRetries     int
	RateLimitPerS  float64
}

func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutMS <= 0 {
		return 15 * time.Second
	}
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

// ConcurrencyConfig bounds concurrency. DatasetsInParallel and
// PubsPerDataset size the orchestrator's two semaphores (PubsPerDataset
// also sizes the URL collector's per-publication fan-out). DownloadsGlobal
// is the download pool's worker count for each Run call; it is not a
// process-wide cap, so datasets enriched concurrently each get that many
// download workers.
type ConcurrencyConfig struct {
	DatasetsInParallel int
	PubsPerDataset     int
	DownloadsGlobal    int
}

// EnrichmentConfig toggles the optional enrichment phases: citing-paper
// discovery, PDF download, and full-text extraction.
type EnrichmentConfig struct {
	IncludeCitingPapers bool
	MaxCitingPapers     int
	DownloadPDFs        bool
	IncludeFullContent  bool
	EnableGraySources   bool
}

// DeadlineConfig bounds how long a single request, a single URL fetch, and
// the overall work on one publication are allowed to run.
type DeadlineConfig struct {
	RequestDeadlineMS     int
	PerURLTimeoutMS       int
	PerPublicationBudgetMS int
}

func (d DeadlineConfig) RequestDeadline() time.Duration {
	return time.Duration(orDefault(d.RequestDeadlineMS, 30000)) * time.Millisecond
}

func (d DeadlineConfig) PerURLTimeout() time.Duration {
	return time.Duration(orDefault(d.PerURLTimeoutMS, 10000)) * time.Millisecond
}

func (d DeadlineConfig) PerPublicationBudget() time.Duration {
	return time.Duration(orDefault(d.PerPublicationBudgetMS, 60000)) * time.Millisecond
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// PathsConfig is the on-disk layout for persisted state: downloaded PDFs,
// the index database, and cache spill files.
type PathsConfig struct {
	DataRoot      string
	IndexDBPath   string
	CacheSpillPath string
}

// Config is the fully typed, process-wide-but-injected configuration
// struct. It is read once at startup (Load) and passed by value/pointer
// into every component's constructor.
type Config struct {
	Providers   map[string]ProviderConfig
	Concurrency ConcurrencyConfig
	Enrichment  EnrichmentConfig
	Deadlines   DeadlineConfig
	Paths       PathsConfig
}

// providerNames is the full roster of metadata and full-text providers.
var providerNames = []string{
	"geo", "pubmed", "openalex", "unpaywall", "pmc", "crossref",
	"core", "europepmc", "biorxiv", "arxiv", "scihub", "libgen", "proxy",
}

// Default returns a Config with conservative defaults: NCBI 3 req/s
// without a key, OpenAlex 10 req/s, gray-source providers disabled,
// conservative concurrency.
func Default() *Config {
	cfg := &Config{
		Providers: map[string]ProviderConfig{
			"geo":       {Enable: true, BaseURL: "https://eutils.ncbi.nlm.nih.gov/entrez/eutils", Auth: AuthNone, SSLVerify: true, RateLimitPerS: 3, MaxRetries: 3, TimeoutMS: 15000},
			"pubmed":    {Enable: true, BaseURL: "https://eutils.ncbi.nlm.nih.gov/entrez/eutils", Auth: AuthNone, SSLVerify: true, RateLimitPerS: 3, MaxRetries: 3, TimeoutMS: 15000},
			"openalex":  {Enable: true, BaseURL: "https://api.openalex.org", Auth: AuthEmail, SSLVerify: true, RateLimitPerS: 10, MaxRetries: 3, TimeoutMS: 15000},
			"unpaywall": {Enable: true, BaseURL: "https://api.unpaywall.org/v2", Auth: AuthEmail, SSLVerify: true, RateLimitPerS: 5, MaxRetries: 3, TimeoutMS: 15000},
			"pmc":       {Enable: true, BaseURL: "https://www.ncbi.nlm.nih.gov/pmc", Auth: AuthNone, SSLVerify: true, RateLimitPerS: 3, MaxRetries: 3, TimeoutMS: 15000},
			"crossref":  {Enable: true, BaseURL: "https://api.crossref.org", Auth: AuthNone, SSLVerify: true, RateLimitPerS: 5, MaxRetries: 3, TimeoutMS: 15000},
			"core":      {Enable: false, BaseURL: "https://api.core.ac.uk/v3", Auth: AuthAPIKey, SSLVerify: true, RateLimitPerS: 2, MaxRetries: 3, TimeoutMS: 15000},
			"europepmc": {Enable: true, BaseURL: "https://www.ebi.ac.uk/europepmc/webservices/rest", Auth: AuthNone, SSLVerify: true, RateLimitPerS: 5, MaxRetries: 3, TimeoutMS: 15000},
			"biorxiv":   {Enable: true, BaseURL: "https://api.biorxiv.org", Auth: AuthNone, SSLVerify: true, RateLimitPerS: 3, MaxRetries: 3, TimeoutMS: 15000},
			"arxiv":     {Enable: true, BaseURL: "https://export.arxiv.org/api/query", Auth: AuthNone, SSLVerify: true, RateLimitPerS: 3, MaxRetries: 3, TimeoutMS: 15000},
			"scihub":    {Enable: false, BaseURL: "https://sci-hub.se", Auth: AuthNone, SSLVerify: true, RateLimitPerS: 1, MaxRetries: 2, TimeoutMS: 15000},
			"libgen":    {Enable: false, BaseURL: "https://libgen.is", Auth: AuthNone, SSLVerify: true, RateLimitPerS: 1, MaxRetries: 2, TimeoutMS: 15000},
			"proxy":     {Enable: false, BaseURL: "", Auth: AuthNone, SSLVerify: true, RateLimitPerS: 5, MaxRetries: 2, TimeoutMS: 15000},
		},
		Concurrency: ConcurrencyConfig{DatasetsInParallel: 5, PubsPerDataset: 5, DownloadsGlobal: 5},
		Enrichment: EnrichmentConfig{
			IncludeCitingPapers: true,
			MaxCitingPapers:     100,
			DownloadPDFs:        true,
			IncludeFullContent:  false,
			EnableGraySources:   false,
		},
		Deadlines: DeadlineConfig{RequestDeadlineMS: 30000, PerURLTimeoutMS: 10000, PerPublicationBudgetMS: 60000},
		Paths: PathsConfig{
			DataRoot:       "data/pdfs",
			IndexDBPath:    "data/index.db",
			CacheSpillPath: "data/cache",
		},
	}
	return cfg
}

// Load reads configuration from environment variables layered over
// Default(), using viper for env binding. Identifiers and keys are read
// once at startup; missing values degrade the affected provider rather
// than failing, unless a provider explicitly enabled requires a key.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GEOFETCH")
	v.AutomaticEnv()

	cfg := Default()

	if email := v.GetString("CONTACT_EMAIL"); email != "" {
		for name, pc := range cfg.Providers {
			if pc.Auth == AuthEmail || pc.Auth == AuthBoth {
				pc.Email = email
				cfg.Providers[name] = pc
			}
		}
	}

	if key := v.GetString("NCBI_API_KEY"); key != "" {
		for _, name := range []string{"geo", "pubmed"} {
			pc := cfg.Providers[name]
			pc.APIKey = key
			pc.RateLimitPerS = 10
			cfg.Providers[name] = pc
		}
	}

	if key := v.GetString("CORE_API_KEY"); key != "" {
		pc := cfg.Providers["core"]
		pc.APIKey = key
		cfg.Providers["core"] = pc
	}

	if base := v.GetString("INSTITUTIONAL_PROXY_BASE"); base != "" {
		pc := cfg.Providers["proxy"]
		pc.BaseURL = base
		pc.Enable = true
		cfg.Providers["proxy"] = pc
	}

	if v.GetString("ENABLE_GRAY_SOURCES") == "true" {
		cfg.Enrichment.EnableGraySources = true
		for _, name := range []string{"scihub", "libgen"} {
			pc := cfg.Providers[name]
			pc.Enable = true
			cfg.Providers[name] = pc
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the fatal-at-startup rules: a provider explicitly
// enabled that requires a key but has none, and an empty data root, are
// both configuration errors. Missing values otherwise degrade providers,
// they don't fail startup.
func (c *Config) Validate() error {
	for _, name := range providerNames {
		pc, ok := c.Providers[name]
		if !ok || !pc.Enable {
			continue
		}
		needsKey := pc.Auth == AuthAPIKey || pc.Auth == AuthBoth
		if needsKey && pc.APIKey == "" {
			return fmt.Errorf("config: provider %q is enabled and requires an api key but none was supplied", name)
		}
	}
	if c.Paths.DataRoot == "" {
		return fmt.Errorf("config: data_root must not be empty")
	}
	return nil
}
