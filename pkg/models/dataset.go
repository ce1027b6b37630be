// Package models defines the value objects shared across the pipeline:
// datasets, publications, candidate URLs, downloads, and parsed content.
package models

import "time"

// Dataset is a GEO series, identified globally by its geo_id. It is
// discovered by a search query and never mutated after ingest except by
// re-fetch.
type Dataset struct {
	LastSeen         time.Time      `json:"last_seen"`
	SubmissionDate   time.Time      `json:"submission_date,omitempty"`
	UpdateDate       time.Time      `json:"update_date,omitempty"`
	CustomFields     map[string]any `json:"custom_fields,omitempty"`
	GeoID            string         `json:"geo_id"`
	Title            string         `json:"title"`
	Summary          string         `json:"summary"`
	Organism         string         `json:"organism"`
	Platform         string         `json:"platform"`
	PublicationPMIDs []string       `json:"publication_pmids,omitempty"`
	SampleCount      int            `json:"sample_count"`
	QualityScore     float64        `json:"quality_score"`
	RelevanceScore   float64        `json:"relevance_score"` // query-dependent, transient
}

// QualityInputs captures the facts the quality score is a monotonic
// function of: metadata completeness, sample count, and presence of a
// linked publication. Kept as a distinct type so the derivation in
// pkg/ranking is independently testable.
type QualityInputs struct {
	HasTitle          bool
	HasSummary        bool
	HasOrganism       bool
	HasPlatform       bool
	SampleCount       int
	HasLinkedPubMIDs  bool
}
