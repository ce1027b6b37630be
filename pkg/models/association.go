package models

import "time"

// GEOAssociation is the join record between a Dataset and a Publication,
// append-only in the dataset index.
type GEOAssociation struct {
	FirstSeen    time.Time    `json:"first_seen"`
	LastSeen     time.Time    `json:"last_seen"`
	GeoID        string       `json:"geo_id"`
	PublicationID string      `json:"publication_id"`
	Relation     Relation     `json:"relation"`
	DiscoveredBy DiscoveredBy `json:"discovered_by"`
}

// MergeDiscoveredBy upgrades a.DiscoveredBy to "both" when a new strategy
// contributes the same association. It never downgrades an existing
// "both".
func MergeDiscoveredBy(existing, incoming DiscoveredBy) DiscoveredBy {
	if existing == DiscoveredByBoth || incoming == DiscoveredByBoth {
		return DiscoveredByBoth
	}
	if existing == "" {
		return incoming
	}
	if existing == incoming {
		return existing
	}
	return DiscoveredByBoth
}
