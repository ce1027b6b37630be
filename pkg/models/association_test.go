package models

import "testing"

func TestMergeDiscoveredBy(t *testing.T) {
	cases := []struct {
		name     string
		existing DiscoveredBy
		incoming DiscoveredBy
		want     DiscoveredBy
	}{
		{"empty existing takes incoming", "", DiscoveredByPMIDCitation, DiscoveredByPMIDCitation},
		{"same strategy stays", DiscoveredByPMIDCitation, DiscoveredByPMIDCitation, DiscoveredByPMIDCitation},
		{"different strategies upgrade to both", DiscoveredByPMIDCitation, DiscoveredByGeoIDMention, DiscoveredByBoth},
		{"existing both never downgrades", DiscoveredByBoth, DiscoveredByPMIDCitation, DiscoveredByBoth},
		{"incoming both upgrades", DiscoveredByPMIDCitation, DiscoveredByBoth, DiscoveredByBoth},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MergeDiscoveredBy(tc.existing, tc.incoming); got != tc.want {
				t.Errorf("MergeDiscoveredBy(%q, %q) = %q, want %q", tc.existing, tc.incoming, got, tc.want)
			}
		})
	}
}
