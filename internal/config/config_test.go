package config

import (
	"os"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default() config should validate, got %v", err)
	}
}

func TestValidateRejectsEnabledProviderMissingKey(t *testing.T) {
	cfg := Default()
	pc := cfg.Providers["core"]
	pc.Enable = true
	pc.APIKey = ""
	cfg.Providers["core"] = pc

	if err := cfg.Validate(); err == nil {
		t.Errorf("expected validation error for enabled provider missing its required key")
	}
}

func TestValidateRejectsEmptyDataRoot(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataRoot = ""
	if err := cfg.Validate(); err == nil {
		t.Errorf("expected validation error for an empty data root")
	}
}

func TestProviderConfigTimeoutDefault(t *testing.T) {
	pc := ProviderConfig{}
	if pc.Timeout().Seconds() != 15 {
		t.Errorf("expected default timeout of 15s, got %v", pc.Timeout())
	}
	pc.TimeoutMS = 5000
	if pc.Timeout().Seconds() != 5 {
		t.Errorf("expected configured timeout of 5s, got %v", pc.Timeout())
	}
}

func TestDeadlineConfigDefaults(t *testing.T) {
	d := DeadlineConfig{}
	if d.RequestDeadline().Seconds() != 30 {
		t.Errorf("RequestDeadline() = %v, want 30s", d.RequestDeadline())
	}
	if d.PerURLTimeout().Seconds() != 10 {
		t.Errorf("PerURLTimeout() = %v, want 10s", d.PerURLTimeout())
	}
	if d.PerPublicationBudget().Seconds() != 60 {
		t.Errorf("PerPublicationBudget() = %v, want 60s", d.PerPublicationBudget())
	}
}

func TestLoadAppliesContactEmailToEmailAuthProviders(t *testing.T) {
	os.Setenv("GEOFETCH_CONTACT_EMAIL", "test@example.org")
	defer os.Unsetenv("GEOFETCH_CONTACT_EMAIL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Providers["unpaywall"].Email != "test@example.org" {
		t.Errorf("expected unpaywall email set, got %q", cfg.Providers["unpaywall"].Email)
	}
	if cfg.Providers["pmc"].Email != "" {
		t.Errorf("expected a no-auth provider to be left alone, got %q", cfg.Providers["pmc"].Email)
	}
}

func TestLoadEnablesGraySourcesFromEnv(t *testing.T) {
	os.Setenv("GEOFETCH_ENABLE_GRAY_SOURCES", "true")
	defer os.Unsetenv("GEOFETCH_ENABLE_GRAY_SOURCES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.Enrichment.EnableGraySources {
		t.Errorf("expected gray sources enabled")
	}
	if !cfg.Providers["scihub"].Enable || !cfg.Providers["libgen"].Enable {
		t.Errorf("expected scihub and libgen enabled, got %+v / %+v", cfg.Providers["scihub"], cfg.Providers["libgen"])
	}
}

func TestLoadNCBIKeyRaisesRateLimit(t *testing.T) {
	os.Setenv("GEOFETCH_NCBI_API_KEY", "abc123")
	defer os.Unsetenv("GEOFETCH_NCBI_API_KEY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Providers["geo"].RateLimitPerS != 10 {
		t.Errorf("expected geo rate limit raised to 10 with an api key, got %v", cfg.Providers["geo"].RateLimitPerS)
	}
	if cfg.Providers["geo"].APIKey != "abc123" {
		t.Errorf("expected api key propagated to geo provider")
	}
}
