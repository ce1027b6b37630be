// Package index implements the durable dataset index: datasets,
// publications, associations, and downloads persisted to SQLite via
// jmoiron/sqlx, grounded on the retrieval pack's research-engine knowledge
// store (internal/knowledge/store.go), which opens the same
// mattn/go-sqlite3 driver with WAL mode and foreign keys on
// (mattn/go-sqlite3 was already an indirect dependency here).
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/btraven00/geofetch/pkg/models"
)

// Index owns the SQLite connection backing the dataset index. Writes are
// serialized through a single transaction at a time: sqlite3's own
// file-level locking combined with a single *sql.DB handle is sufficient,
// so no extra in-process mutex is layered on top.
type Index struct {
	db *sqlx.DB
}

// Open creates or opens the index database at path, applying the schema if
// absent.
func Open(path string) (*Index, error) {
	db, err := sqlx.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite3 writer concurrency is per-connection serialized anyway
	idx := &Index{db: db}
	if err := idx.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) Close() error { return idx.db.Close() }

func (idx *Index) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS datasets (
			geo_id TEXT PRIMARY KEY,
			title TEXT,
			summary TEXT,
			organism TEXT,
			platform TEXT,
			sample_count INTEGER,
			submission_date TEXT,
			update_date TEXT,
			quality_score REAL,
			custom_fields TEXT,
			last_seen TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS publications (
			identity TEXT PRIMARY KEY,
			pmid TEXT,
			doi TEXT,
			pmcid TEXT,
			title TEXT,
			journal TEXT,
			abstract TEXT,
			year INTEGER,
			authors TEXT,
			sources TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS associations (
			geo_id TEXT NOT NULL REFERENCES datasets(geo_id),
			publication_id TEXT NOT NULL REFERENCES publications(identity),
			relation TEXT NOT NULL,
			discovered_by TEXT NOT NULL,
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL,
			PRIMARY KEY (geo_id, publication_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_associations_pub ON associations(publication_id)`,
		`CREATE TABLE IF NOT EXISTS downloads (
			publication_id TEXT PRIMARY KEY REFERENCES publications(identity),
			pdf_path TEXT,
			successful_source TEXT,
			success INTEGER NOT NULL,
			file_size INTEGER,
			errors TEXT,
			downloaded_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := idx.db.Exec(stmt); err != nil {
			return fmt.Errorf("index: schema: %w", err)
		}
	}
	return nil
}

// UpsertDataset idempotently inserts or updates a dataset row, keyed on
// geo_id: re-ingesting a dataset never duplicates it.
func (idx *Index) UpsertDataset(ctx context.Context, ds *models.Dataset) error {
	custom, err := json.Marshal(ds.CustomFields)
	if err != nil {
		return fmt.Errorf("index: marshal custom_fields: %w", err)
	}
	_, err = idx.db.ExecContext(ctx, `
		INSERT INTO datasets (geo_id, title, summary, organism, platform, sample_count, submission_date, update_date, quality_score, custom_fields, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(geo_id) DO UPDATE SET
			title=excluded.title, summary=excluded.summary, organism=excluded.organism,
			platform=excluded.platform, sample_count=excluded.sample_count,
			submission_date=excluded.submission_date, update_date=excluded.update_date,
			quality_score=excluded.quality_score, custom_fields=excluded.custom_fields,
			last_seen=excluded.last_seen`,
		ds.GeoID, ds.Title, ds.Summary, ds.Organism, ds.Platform, ds.SampleCount,
		formatTime(ds.SubmissionDate), formatTime(ds.UpdateDate), ds.QualityScore,
		string(custom), formatTime(ds.LastSeen))
	if err != nil {
		return fmt.Errorf("index: upsert dataset %s: %w", ds.GeoID, err)
	}
	return nil
}

// GetDataset returns the dataset for geo_id, or sql.ErrNoRows if absent.
func (idx *Index) GetDataset(ctx context.Context, geoID string) (*models.Dataset, error) {
	var row datasetRow
	err := idx.db.GetContext(ctx, &row, `SELECT * FROM datasets WHERE geo_id = ?`, geoID)
	if err != nil {
		return nil, err
	}
	return row.toModel()
}

// UpsertPublication idempotently inserts or merges a publication row,
// keyed on Identity().
func (idx *Index) UpsertPublication(ctx context.Context, pub *models.Publication) error {
	authors, err := json.Marshal(pub.Authors)
	if err != nil {
		return fmt.Errorf("index: marshal authors: %w", err)
	}
	sources, err := json.Marshal(pub.Sources)
	if err != nil {
		return fmt.Errorf("index: marshal sources: %w", err)
	}
	_, err = idx.db.ExecContext(ctx, `
		INSERT INTO publications (identity, pmid, doi, pmcid, title, journal, abstract, year, authors, sources)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			pmid=COALESCE(NULLIF(publications.pmid,''), excluded.pmid),
			doi=COALESCE(NULLIF(publications.doi,''), excluded.doi),
			pmcid=COALESCE(NULLIF(publications.pmcid,''), excluded.pmcid),
			title=COALESCE(NULLIF(publications.title,''), excluded.title),
			journal=COALESCE(NULLIF(publications.journal,''), excluded.journal),
			abstract=COALESCE(NULLIF(publications.abstract,''), excluded.abstract),
			year=CASE WHEN publications.year=0 THEN excluded.year ELSE publications.year END,
			sources=excluded.sources`,
		pub.Identity(), pub.PMID, pub.DOI, pub.PMCID, pub.Title, pub.Journal,
		pub.Abstract, pub.Year, string(authors), string(sources))
	if err != nil {
		return fmt.Errorf("index: upsert publication %s: %w", pub.Identity(), err)
	}
	return nil
}

// UpsertAssociation idempotently links a dataset to a publication,
// upgrading discovered_by to "both" when two strategies agree (via
// models.MergeDiscoveredBy).
func (idx *Index) UpsertAssociation(ctx context.Context, a *models.GEOAssociation) error {
	var existing string
	err := idx.db.GetContext(ctx, &existing, `SELECT discovered_by FROM associations WHERE geo_id = ? AND publication_id = ?`, a.GeoID, a.PublicationID)
	discoveredBy := a.DiscoveredBy
	if err == nil {
		discoveredBy = models.MergeDiscoveredBy(models.DiscoveredBy(existing), a.DiscoveredBy)
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("index: read association: %w", err)
	}

	now := formatTime(a.LastSeen)
	_, err = idx.db.ExecContext(ctx, `
		INSERT INTO associations (geo_id, publication_id, relation, discovered_by, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(geo_id, publication_id) DO UPDATE SET
			discovered_by=excluded.discovered_by, last_seen=excluded.last_seen`,
		a.GeoID, a.PublicationID, string(a.Relation), string(discoveredBy), formatTime(a.FirstSeen), now)
	if err != nil {
		return fmt.Errorf("index: upsert association %s/%s: %w", a.GeoID, a.PublicationID, err)
	}
	return nil
}

// AssociationsForDataset returns every publication linked to geo_id.
func (idx *Index) AssociationsForDataset(ctx context.Context, geoID string) ([]models.GEOAssociation, error) {
	var rows []associationRow
	if err := idx.db.SelectContext(ctx, &rows, `SELECT * FROM associations WHERE geo_id = ?`, geoID); err != nil {
		return nil, fmt.Errorf("index: associations for %s: %w", geoID, err)
	}
	out := make([]models.GEOAssociation, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// RecordDownload idempotently records the outcome of a download attempt.
func (idx *Index) RecordDownload(ctx context.Context, r *models.DownloadResult) error {
	errs, err := json.Marshal(r.Errors)
	if err != nil {
		return fmt.Errorf("index: marshal download errors: %w", err)
	}
	success := 0
	if r.Success {
		success = 1
	}
	_, err = idx.db.ExecContext(ctx, `
		INSERT INTO downloads (publication_id, pdf_path, successful_source, success, file_size, errors, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(publication_id) DO UPDATE SET
			pdf_path=excluded.pdf_path, successful_source=excluded.successful_source,
			success=excluded.success, file_size=excluded.file_size,
			errors=excluded.errors, downloaded_at=excluded.downloaded_at`,
		r.PublicationID, r.PDFPath, r.SuccessfulSource, success, r.FileSize, string(errs), formatTime(r.DownloadedAt))
	if err != nil {
		return fmt.Errorf("index: record download %s: %w", r.PublicationID, err)
	}
	return nil
}

// SearchDatasets runs a simple substring match over title/summary/organism,
// the fallback full-text surface the orchestrator's query layer narrows
// with ranking.
func (idx *Index) SearchDatasets(ctx context.Context, term string, limit int) ([]models.Dataset, error) {
	if limit <= 0 {
		limit = 100
	}
	like := "%" + term + "%"
	var rows []datasetRow
	err := idx.db.SelectContext(ctx, &rows, `
		SELECT * FROM datasets
		WHERE title LIKE ? OR summary LIKE ? OR organism LIKE ?
		LIMIT ?`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	out := make([]models.Dataset, 0, len(rows))
	for _, r := range rows {
		ds, err := r.toModel()
		if err != nil {
			continue
		}
		out = append(out, *ds)
	}
	return out, nil
}

type datasetRow struct {
	GeoID          string         `db:"geo_id"`
	Title          string         `db:"title"`
	Summary        string         `db:"summary"`
	Organism       string         `db:"organism"`
	Platform       string         `db:"platform"`
	SampleCount    int            `db:"sample_count"`
	SubmissionDate string         `db:"submission_date"`
	UpdateDate     string         `db:"update_date"`
	QualityScore   float64        `db:"quality_score"`
	CustomFields   string         `db:"custom_fields"`
	LastSeen       string         `db:"last_seen"`
}

func (r datasetRow) toModel() (*models.Dataset, error) {
	ds := &models.Dataset{
		GeoID:       r.GeoID,
		Title:       r.Title,
		Summary:     r.Summary,
		Organism:    r.Organism,
		Platform:    r.Platform,
		SampleCount: r.SampleCount,
		QualityScore: r.QualityScore,
	}
	ds.SubmissionDate = parseTime(r.SubmissionDate)
	ds.UpdateDate = parseTime(r.UpdateDate)
	ds.LastSeen = parseTime(r.LastSeen)
	if r.CustomFields != "" {
		if err := json.Unmarshal([]byte(r.CustomFields), &ds.CustomFields); err != nil {
			return nil, fmt.Errorf("index: unmarshal custom_fields: %w", err)
		}
	}
	return ds, nil
}

type associationRow struct {
	GeoID         string `db:"geo_id"`
	PublicationID string `db:"publication_id"`
	Relation      string `db:"relation"`
	DiscoveredBy  string `db:"discovered_by"`
	FirstSeen     string `db:"first_seen"`
	LastSeen      string `db:"last_seen"`
}

func (r associationRow) toModel() models.GEOAssociation {
	return models.GEOAssociation{
		GeoID:         r.GeoID,
		PublicationID: r.PublicationID,
		Relation:      models.Relation(r.Relation),
		DiscoveredBy:  models.DiscoveredBy(r.DiscoveredBy),
		FirstSeen:     parseTime(r.FirstSeen),
		LastSeen:      parseTime(r.LastSeen),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
