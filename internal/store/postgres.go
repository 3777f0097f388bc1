package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/iXanadu/abouthr/internal/db"
	"github.com/iXanadu/abouthr/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
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
	latitude          DOUBLE PRECISION,
	longitude         DOUBLE PRECISION,
	external_id       TEXT NOT NULL DEFAULT '',
	rating            DOUBLE PRECISION,
	rating_count      INTEGER,
	price_level       SMALLINT,
	hours_payload     JSONB,
	photos_payload    JSONB,
	data_source       TEXT NOT NULL DEFAULT 'manual',
	enrichment_status TEXT NOT NULL DEFAULT 'none',
	last_enriched_at  TIMESTAMPTZ,
	is_published      BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS provider_configs (
	id               TEXT PRIMARY KEY,
	provider         TEXT NOT NULL UNIQUE,
	enabled          BOOLEAN NOT NULL DEFAULT FALSE,
	api_key_name     TEXT NOT NULL DEFAULT '',
	daily_quota      INTEGER NOT NULL DEFAULT 10000,
	requests_today   INTEGER NOT NULL DEFAULT 0,
	quota_reset_date TEXT NOT NULL,
	venues_per_city  INTEGER NOT NULL DEFAULT 20,
	last_full_sync   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_venues_city_type ON venues(city, venue_type);
CREATE INDEX IF NOT EXISTS idx_venues_external_id ON venues(external_id);
CREATE INDEX IF NOT EXISTS idx_venues_status ON venues(enrichment_status);
CREATE INDEX IF NOT EXISTS idx_venues_enriched_at ON venues(last_enriched_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateVenue(ctx context.Context, v *model.Venue) error {
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

	_, err := s.pool.Exec(ctx,
		`INSERT INTO venues (`+venueColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
		v.ID, v.City, string(v.VenueType), v.Name, v.Description, v.CuisineType,
		v.Address, v.Website, v.Phone, v.Latitude, v.Longitude, v.ExternalID,
		v.Rating, v.RatingCount, v.PriceLevel, rawToNull(v.HoursPayload), rawToNull(v.PhotosPayload),
		string(v.DataSource), string(v.EnrichmentStatus), v.LastEnrichedAt, v.IsPublished,
		v.CreatedAt, v.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: insert venue %q", v.Name)
}

func (s *PostgresStore) GetVenue(ctx context.Context, id string) (*model.Venue, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = $1`, id)
	v, err := scanVenue(row)
	if isNoRows(err) {
		return nil, eris.Errorf("venue not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get venue")
	}
	return v, nil
}

func (s *PostgresStore) ListVenues(ctx context.Context, filter VenueFilter) ([]model.Venue, error) {
	query := `SELECT ` + venueColumns + ` FROM venues WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.City != "" {
		query += ` AND city = ` + arg(filter.City)
	}
	if len(filter.Types) > 0 {
		query += ` AND venue_type = ANY(` + arg(typeStrings(filter.Types)) + `)`
	}
	if filter.DataSource != "" {
		query += ` AND data_source = ` + arg(string(filter.DataSource))
	}
	if filter.EnrichmentStatus != "" {
		query += ` AND enrichment_status = ` + arg(string(filter.EnrichmentStatus))
	}
	if filter.Matched != nil {
		if *filter.Matched {
			query += ` AND external_id != ''`
		} else {
			query += ` AND external_id = ''`
		}
	}
	if filter.EnrichedBefore != nil {
		query += ` AND last_enriched_at IS NOT NULL AND last_enriched_at < ` + arg(filter.EnrichedBefore.UTC())
	}

	if filter.OrderByOldestEnriched {
		query += ` ORDER BY last_enriched_at ASC`
	} else {
		query += ` ORDER BY name ASC`
	}
	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list venues")
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan venue")
		}
		venues = append(venues, *v)
	}
	return venues, eris.Wrap(rows.Err(), "postgres: list venues iterate")
}

func (s *PostgresStore) FindVenueByExternalID(ctx context.Context, externalID string) (*model.Venue, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE external_id = $1 LIMIT 1`, externalID)
	v, err := scanVenue(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find venue by external id")
	}
	return v, nil
}

func (s *PostgresStore) FindVenueByName(ctx context.Context, city string, venueType model.VenueType, name string) (*model.Venue, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues
		 WHERE city = $1 AND venue_type = $2 AND lower(name) = lower($3) LIMIT 1`,
		city, string(venueType), name)
	v, err := scanVenue(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: find venue by name")
	}
	return v, nil
}

func (s *PostgresStore) UpdateVenueEnrichment(ctx context.Context, v *model.Venue) error {
	v.UpdatedAt = time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE venues SET
			address = $1, website = $2, phone = $3, latitude = $4, longitude = $5,
			external_id = $6, rating = $7, rating_count = $8, price_level = $9,
			hours_payload = $10, photos_payload = $11,
			enrichment_status = $12, last_enriched_at = $13, updated_at = $14
		 WHERE id = $15`,
		v.Address, v.Website, v.Phone, v.Latitude, v.Longitude,
		v.ExternalID, v.Rating, v.RatingCount, v.PriceLevel,
		rawToNull(v.HoursPayload), rawToNull(v.PhotosPayload),
		string(v.EnrichmentStatus), v.LastEnrichedAt, v.UpdatedAt,
		v.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update venue enrichment %s", v.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("venue not found: %s", v.ID)
	}
	return nil
}

func (s *PostgresStore) SetEnrichmentStatus(ctx context.Context, id string, status model.EnrichmentStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE venues SET enrichment_status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set enrichment status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("venue not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) FlagUnmatched(ctx context.Context, types []model.VenueType) (int, error) {
	query := `UPDATE venues SET enrichment_status = $1, updated_at = $2
		 WHERE external_id = '' AND enrichment_status = $3`
	args := []any{string(model.EnrichmentManualReview), time.Now().UTC(), string(model.EnrichmentNone)}
	if len(types) > 0 {
		query += ` AND venue_type = ANY($4)`
		args = append(args, typeStrings(types))
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: flag unmatched")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) CountVenuesByStatus(ctx context.Context, types []model.VenueType) (map[model.EnrichmentStatus]int, error) {
	query := `SELECT enrichment_status, COUNT(*) FROM venues`
	var args []any
	if len(types) > 0 {
		query += ` WHERE venue_type = ANY($1)`
		args = append(args, typeStrings(types))
	}
	query += ` GROUP BY enrichment_status`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by status")
	}
	defer rows.Close()

	counts := make(map[model.EnrichmentStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan status count")
		}
		counts[model.EnrichmentStatus(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count by status iterate")
}

func (s *PostgresStore) CountVenuesBySource(ctx context.Context, types []model.VenueType) (map[model.DataSource]int, error) {
	query := `SELECT data_source, COUNT(*) FROM venues`
	var args []any
	if len(types) > 0 {
		query += ` WHERE venue_type = ANY($1)`
		args = append(args, typeStrings(types))
	}
	query += ` GROUP BY data_source`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by source")
	}
	defer rows.Close()

	counts := make(map[model.DataSource]int)
	for rows.Next() {
		var source string
		var n int
		if err := rows.Scan(&source, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source count")
		}
		counts[model.DataSource(source)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count by source iterate")
}

func (s *PostgresStore) GetProviderConfig(ctx context.Context, provider model.ProviderName) (*model.ProviderConfig, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+providerColumns+` FROM provider_configs WHERE provider = $1`, string(provider))
	cfg, err := scanProviderConfig(row)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get provider config")
	}
	return cfg, nil
}

func (s *PostgresStore) EnsureProviderConfig(ctx context.Context, provider model.ProviderName) (*model.ProviderConfig, error) {
	cfg, err := s.GetProviderConfig(ctx, provider)
	if err != nil || cfg != nil {
		return cfg, err
	}

	def := model.DefaultProviderConfig(provider, time.Now())
	def.ID = uuid.New().String()
	_, err = s.pool.Exec(ctx,
		`INSERT INTO provider_configs (`+providerColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		def.ID, string(def.Provider), def.Enabled, def.APIKeyName, def.DailyQuota,
		def.RequestsToday, def.QuotaResetDate, def.VenuesPerCity, def.LastFullSync,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: create provider config %s", provider)
	}
	return &def, nil
}

func (s *PostgresStore) ListProviderConfigs(ctx context.Context) ([]model.ProviderConfig, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+providerColumns+` FROM provider_configs ORDER BY provider`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list provider configs")
	}
	defer rows.Close()

	var configs []model.ProviderConfig
	for rows.Next() {
		cfg, err := scanProviderConfig(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan provider config")
		}
		configs = append(configs, *cfg)
	}
	return configs, eris.Wrap(rows.Err(), "postgres: list provider configs iterate")
}

func (s *PostgresStore) UpdateProviderUsage(ctx context.Context, provider model.ProviderName, requestsToday int, resetDate string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE provider_configs SET requests_today = $1, quota_reset_date = $2 WHERE provider = $3`,
		requestsToday, resetDate, string(provider),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update provider usage %s", provider)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("provider config not found: %s", provider)
	}
	return nil
}

func (s *PostgresStore) SetProviderEnabled(ctx context.Context, provider model.ProviderName, enabled bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE provider_configs SET enabled = $1 WHERE provider = $2`,
		enabled, string(provider),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set provider enabled %s", provider)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("provider config not found: %s", provider)
	}
	return nil
}

func (s *PostgresStore) SetProviderQuota(ctx context.Context, provider model.ProviderName, dailyQuota int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE provider_configs SET daily_quota = $1 WHERE provider = $2`,
		dailyQuota, string(provider),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set provider quota %s", provider)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("provider config not found: %s", provider)
	}
	return nil
}

func (s *PostgresStore) SetLastFullSync(ctx context.Context, provider model.ProviderName, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE provider_configs SET last_full_sync = $1 WHERE provider = $2`,
		at.UTC(), string(provider),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set last full sync %s", provider)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("provider config not found: %s", provider)
	}
	return nil
}

// helpers

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

func typeStrings(types []model.VenueType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

