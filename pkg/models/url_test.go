package models

import "testing"

func TestCandidateURLsSort(t *testing.T) {
	c := &CandidateURLs{
		URLs: []SourceURL{
			{Provider: "libgen", URLType: URLTypePDF, Priority: PriorityLibgen, Confidence: 0.9, ProviderOrdinal: 5},
			{Provider: "pmc", URLType: URLTypePDF, Priority: PriorityPMC, Confidence: 0.5, ProviderOrdinal: 1},
			{Provider: "unpaywall", URLType: URLTypeHTML, Priority: PriorityUnpaywall, Confidence: 0.99, ProviderOrdinal: 2},
			{Provider: "core", URLType: URLTypePDF, Priority: PriorityCORE, Confidence: 0.8, ProviderOrdinal: 3},
		},
	}
	c.Sort()

	want := []string{"pmc", "unpaywall", "core", "libgen"}
	if len(c.URLs) != len(want) {
		t.Fatalf("expected %d urls, got %d", len(want), len(c.URLs))
	}
	for i, provider := range want {
		if c.URLs[i].Provider != provider {
			t.Errorf("position %d: expected %s, got %s", i, provider, c.URLs[i].Provider)
		}
	}
}

func TestCandidateURLsSortPriorityOverridesType(t *testing.T) {
	c := &CandidateURLs{
		URLs: []SourceURL{
			{Provider: "libgen", URLType: URLTypePDF, Priority: PriorityLibgen, Confidence: 0.9},
			{Provider: "proxy", URLType: URLTypeLanding, Priority: PriorityProxy, Confidence: 0.6},
		},
	}
	c.Sort()
	if c.URLs[0].Provider != "proxy" {
		t.Errorf("expected the higher-priority landing page first despite its url_type, got %s", c.URLs[0].Provider)
	}
}

func TestCandidateURLsSortTiebreaksOnOrdinal(t *testing.T) {
	c := &CandidateURLs{
		URLs: []SourceURL{
			{Provider: "b", URLType: URLTypePDF, Priority: 1, Confidence: 0.5, ProviderOrdinal: 9},
			{Provider: "a", URLType: URLTypePDF, Priority: 1, Confidence: 0.5, ProviderOrdinal: 2},
		},
	}
	c.Sort()
	if c.URLs[0].Provider != "a" {
		t.Errorf("expected lower ordinal first, got %s", c.URLs[0].Provider)
	}
}

func TestURLTypeString(t *testing.T) {
	cases := map[URLType]string{
		URLTypePDF:     "pdf",
		URLTypeHTML:    "html",
		URLTypeLanding: "landing",
		URLType(99):    "unknown",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Errorf("URLType(%d).String() = %q, want %q", in, got, want)
		}
	}
}
