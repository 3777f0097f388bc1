package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/iXanadu/abouthr/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS venues (
	id                TEXT PRIMARY KEY,
	city              TEXT NOT NULL,
	venue_type        TEXT NOT NULL,
	name              TEXT NOT NULL,
	description       TEXT NOT NULL DEFAULT '',
	cuisine_type      TEXT NOT NULL DEFAULT '',
	address           TEXT NOT NULL DEFAULT '',
	website           TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	latitude          REAL,
	longitude         REAL,
	external_id       TEXT NOT NULL DEFAULT '',
	rating            REAL,
	rating_count      INTEGER,
	price_level       INTEGER,
	hours_payload     TEXT,
	photos_payload    TEXT,
	data_source       TEXT NOT NULL DEFAULT 'manual',
	enrichment_status TEXT NOT NULL DEFAULT 'none',
	last_enriched_at  DATETIME,
	is_published      INTEGER NOT NULL DEFAULT 1,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS provider_configs (
	id               TEXT PRIMARY KEY,
	provider         TEXT NOT NULL UNIQUE,
	enabled          INTEGER NOT NULL DEFAULT 0,
	api_key_name     TEXT NOT NULL DEFAULT '',
	daily_quota      INTEGER NOT NULL DEFAULT 10000,
	requests_today   INTEGER NOT NULL DEFAULT 0,
	quota_reset_date TEXT NOT NULL,
	venues_per_city  INTEGER NOT NULL DEFAULT 20,
	last_full_sync   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_venues_city_type ON venues(city, venue_type);
CREATE INDEX IF NOT EXISTS idx_venues_external_id ON venues(external_id);
CREATE INDEX IF NOT EXISTS idx_venues_status ON venues(enrichment_status);
CREATE INDEX IF NOT EXISTS idx_venues_enriched_at ON venues(last_enriched_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const venueColumns = `id, city, venue_type, name, description, cuisine_type,
	address, website, phone, latitude, longitude, external_id,
	rating, rating_count, price_level, hours_payload, photos_payload,
	data_source, enrichment_status, last_enriched_at, is_published,
	created_at, updated_at`

func (s *SQLiteStore) CreateVenue(ctx context.Context, v *model.Venue) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now
	if v.DataSource == "" {
		v.DataSource = model.SourceManual
	}
	if v.EnrichmentStatus == "" {
		v.EnrichmentStatus = model.EnrichmentNone
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO venues (`+venueColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.City, string(v.VenueType), v.Name, v.Description, v.CuisineType,
		v.Address, v.Website, v.Phone, v.Latitude, v.Longitude, v.ExternalID,
		v.Rating, v.RatingCount, v.PriceLevel, rawToNull(v.HoursPayload), rawToNull(v.PhotosPayload),
		string(v.DataSource), string(v.EnrichmentStatus), v.LastEnrichedAt, v.IsPublished,
		v.CreatedAt, v.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert venue %q", v.Name)
}

func (s *SQLiteStore) GetVenue(ctx context.Context, id string) (*model.Venue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = ?`, id)
	v, err := scanVenue(row)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("venue not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get venue")
	}
	return v, nil
}

func (s *SQLiteStore) ListVenues(ctx context.Context, filter VenueFilter) ([]model.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE 1=1`
	var args []any

	if filter.City != "" {
		query += ` AND city = ?`
		args = append(args, filter.City)
	}
	if len(filter.Types) > 0 {
		query += ` AND venue_type IN (` + placeholders(len(filter.Types)) + `)`
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}
	if filter.DataSource != "" {
		query += ` AND data_source = ?`
		args = append(args, string(filter.DataSource))
	}
	if filter.EnrichmentStatus != "" {
		query += ` AND enrichment_status = ?`
		args = append(args, string(filter.EnrichmentStatus))
	}
	if filter.Matched != nil {
		if *filter.Matched {
			query += ` AND external_id != ''`
		} else {
			query += ` AND external_id = ''`
		}
	}
	if filter.EnrichedBefore != nil {
		query += ` AND last_enriched_at IS NOT NULL AND last_enriched_at < ?`
		args = append(args, filter.EnrichedBefore.UTC())
	}

	if filter.OrderByOldestEnriched {
		query += ` ORDER BY last_enriched_at ASC`
	} else {
		query += ` ORDER BY name ASC`
	}
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list venues")
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan venue")
		}
		venues = append(venues, *v)
	}
	return venues, eris.Wrap(rows.Err(), "sqlite: list venues iterate")
}

func (s *SQLiteStore) FindVenueByExternalID(ctx context.Context, externalID string) (*model.Venue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE external_id = ? LIMIT 1`, externalID)
	v, err := scanVenue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find venue by external id")
	}
	return v, nil
}

func (s *SQLiteStore) FindVenueByName(ctx context.Context, city string, venueType model.VenueType, name string) (*model.Venue, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+venueColumns+` FROM venues
		 WHERE city = ? AND venue_type = ? AND name = ? COLLATE NOCASE LIMIT 1`,
		city, string(venueType), name)
	v, err := scanVenue(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: find venue by name")
	}
	return v, nil
}

func (s *SQLiteStore) UpdateVenueEnrichment(ctx context.Context, v *model.Venue) error {
	v.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE venues SET
			address = ?, website = ?, phone = ?, latitude = ?, longitude = ?,
			external_id = ?, rating = ?, rating_count = ?, price_level = ?,
			hours_payload = ?, photos_payload = ?,
			enrichment_status = ?, last_enriched_at = ?, updated_at = ?
		 WHERE id = ?`,
		v.Address, v.Website, v.Phone, v.Latitude, v.Longitude,
		v.ExternalID, v.Rating, v.RatingCount, v.PriceLevel,
		rawToNull(v.HoursPayload), rawToNull(v.PhotosPayload),
		string(v.EnrichmentStatus), v.LastEnrichedAt, v.UpdatedAt,
		v.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update venue enrichment %s", v.ID)
	}
	return checkRowsAffected(res, "venue", v.ID)
}

func (s *SQLiteStore) SetEnrichmentStatus(ctx context.Context, id string, status model.EnrichmentStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE venues SET enrichment_status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set enrichment status %s", id)
	}
	return checkRowsAffected(res, "venue", id)
}

func (s *SQLiteStore) FlagUnmatched(ctx context.Context, types []model.VenueType) (int, error) {
	query := `UPDATE venues SET enrichment_status = ?, updated_at = ?
		 WHERE external_id = '' AND enrichment_status = ?`
	args := []any{string(model.EnrichmentManualReview), time.Now().UTC(), string(model.EnrichmentNone)}
	if len(types) > 0 {
		query += ` AND venue_type IN (` + placeholders(len(types)) + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: flag unmatched")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) CountVenuesByStatus(ctx context.Context, types []model.VenueType) (map[model.EnrichmentStatus]int, error) {
	query := `SELECT enrichment_status, COUNT(*) FROM venues`
	var args []any
	if len(types) > 0 {
		query += ` WHERE venue_type IN (` + placeholders(len(types)) + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	query += ` GROUP BY enrichment_status`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by status")
	}
	defer rows.Close()

	counts := make(map[model.EnrichmentStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan status count")
		}
		counts[model.EnrichmentStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count by status iterate")
}

func (s *SQLiteStore) CountVenuesBySource(ctx context.Context, types []model.VenueType) (map[model.DataSource]int, error) {
	query := `SELECT data_source, COUNT(*) FROM venues`
	var args []any
	if len(types) > 0 {
		query += ` WHERE venue_type IN (` + placeholders(len(types)) + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	query += ` GROUP BY data_source`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by source")
	}
	defer rows.Close()

	counts := make(map[model.DataSource]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source count")
		}
		counts[model.DataSource(source)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count by source iterate")
}

const providerColumns = `id, provider, enabled, api_key_name, daily_quota,
	requests_today, quota_reset_date, venues_per_city, last_full_sync`

func (s *SQLiteStore) GetProviderConfig(ctx context.Context, provider model.ProviderName) (*model.ProviderConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+providerColumns+` FROM provider_configs WHERE provider = ?`, string(provider))
	cfg, err := scanProviderConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get provider config")
	}
	return cfg, nil
}

func (s *SQLiteStore) EnsureProviderConfig(ctx context.Context, provider model.ProviderName) (*model.ProviderConfig, error) {
	cfg, err := s.GetProviderConfig(ctx, provider)
	if err != nil || cfg != nil {
		return cfg, err
	}

	def := model.DefaultProviderConfig(provider, time.Now())
	def.ID = uuid.New().String()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO provider_configs (`+providerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		def.ID, string(def.Provider), def.Enabled, def.APIKeyName, def.DailyQuota,
		def.RequestsToday, def.QuotaResetDate, def.VenuesPerCity, def.LastFullSync,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: create provider config %s", provider)
	}
	return &def, nil
}

func (s *SQLiteStore) ListProviderConfigs(ctx context.Context) ([]model.ProviderConfig, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+providerColumns+` FROM provider_configs ORDER BY provider`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list provider configs")
	}
	defer rows.Close()

	var configs []model.ProviderConfig
	for rows.Next() {
		cfg, err := scanProviderConfig(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan provider config")
		}
		configs = append(configs, *cfg)
	}
	return configs, eris.Wrap(rows.Err(), "sqlite: list provider configs iterate")
}

func (s *SQLiteStore) UpdateProviderUsage(ctx context.Context, provider model.ProviderName, requestsToday int, resetDate string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE provider_configs SET requests_today = ?, quota_reset_date = ? WHERE provider = ?`,
		requestsToday, resetDate, string(provider),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update provider usage %s", provider)
	}
	return checkRowsAffected(res, "provider config", string(provider))
}

func (s *SQLiteStore) SetProviderEnabled(ctx context.Context, provider model.ProviderName, enabled bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE provider_configs SET enabled = ? WHERE provider = ?`,
		enabled, string(provider),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set provider enabled %s", provider)
	}
	return checkRowsAffected(res, "provider config", string(provider))
}

func (s *SQLiteStore) SetProviderQuota(ctx context.Context, provider model.ProviderName, dailyQuota int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE provider_configs SET daily_quota = ? WHERE provider = ?`,
		dailyQuota, string(provider),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set provider quota %s", provider)
	}
	return checkRowsAffected(res, "provider config", string(provider))
}

func (s *SQLiteStore) SetLastFullSync(ctx context.Context, provider model.ProviderName, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE provider_configs SET last_full_sync = ? WHERE provider = ?`,
		at.UTC(), string(provider),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set last full sync %s", provider)
	}
	return checkRowsAffected(res, "provider config", string(provider))
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func rawToNull(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanVenue(row scannable) (*model.Venue, error) {
	var v model.Venue
	var venueType, dataSource, status string
	var lat, lng, rating sql.NullFloat64
	var ratingCount, priceLevel sql.NullInt64
	var hours, photos sql.NullString
	var enrichedAt sql.NullTime

	err := row.Scan(
		&v.ID, &v.City, &venueType, &v.Name, &v.Description, &v.CuisineType,
		&v.Address, &v.Website, &v.Phone, &lat, &lng, &v.ExternalID,
		&rating, &ratingCount, &priceLevel, &hours, &photos,
		&dataSource, &status, &enrichedAt, &v.IsPublished,
		&v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	v.VenueType = model.VenueType(venueType)
	v.DataSource = model.DataSource(dataSource)
	v.EnrichmentStatus = model.EnrichmentStatus(status)
	if lat.Valid {
		v.Latitude = &lat.Float64
	}
	if lng.Valid {
		v.Longitude = &lng.Float64
	}
	if rating.Valid {
		v.Rating = &rating.Float64
	}
	if ratingCount.Valid {
		n := int(ratingCount.Int64)
		v.RatingCount = &n
	}
	if priceLevel.Valid {
		n := int(priceLevel.Int64)
		v.PriceLevel = &n
	}
	if hours.Valid {
		v.HoursPayload = []byte(hours.String)
	}
	if photos.Valid {
		v.PhotosPayload = []byte(photos.String)
	}
	if enrichedAt.Valid {
		t := enrichedAt.Time
		v.LastEnrichedAt = &t
	}
	return &v, nil
}

func scanProviderConfig(row scannable) (*model.ProviderConfig, error) {
	var cfg model.ProviderConfig
	var provider string
	var lastSync sql.NullTime

	err := row.Scan(
		&cfg.ID, &provider, &cfg.Enabled, &cfg.APIKeyName, &cfg.DailyQuota,
		&cfg.RequestsToday, &cfg.QuotaResetDate, &cfg.VenuesPerCity, &lastSync,
	)
	if err != nil {
		return nil, err
	}

	cfg.Provider = model.ProviderName(provider)
	if lastSync.Valid {
		t := lastSync.Time
		cfg.LastFullSync = &t
	}
	return &cfg, nil
}
