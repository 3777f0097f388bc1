package model

import "time"

// ProviderName identifies an external place-data provider.
type ProviderName string

const (
	ProviderGoogle ProviderName = "google"
	ProviderYelp   ProviderName = "yelp"
)

// Defaults applied when a provider config is created on first use.
const (
	DefaultDailyQuota    = 10000
	DefaultVenuesPerCity = 20
)

// ProviderConfig holds the persisted settings and daily quota counter for
// one provider. RequestsToday is only meaningful when QuotaResetDate is the
// current day; readers must treat a stale date as zero requests. The quota
// package owns that arithmetic.
type ProviderConfig struct {
	ID       string       `json:"id" db:"id"`
	Provider ProviderName `json:"provider" db:"provider"`
	Enabled  bool         `json:"enabled" db:"enabled"`

	// APIKeyName is the environment variable holding the provider's API key.
	APIKeyName string `json:"api_key_name" db:"api_key_name"`

	DailyQuota     int    `json:"daily_quota" db:"daily_quota"`
	RequestsToday  int    `json:"requests_today" db:"requests_today"`
	QuotaResetDate string `json:"quota_reset_date" db:"quota_reset_date"` // YYYY-MM-DD

	VenuesPerCity int        `json:"venues_per_city" db:"venues_per_city"`
	LastFullSync  *time.Time `json:"last_full_sync,omitempty" db:"last_full_sync"`
}

// DefaultProviderConfig returns the config created on first use of a provider.
func DefaultProviderConfig(provider ProviderName, today time.Time) ProviderConfig {
	keyName := "GOOGLE_PLACES_API_KEY"
	if provider == ProviderYelp {
		keyName = "YELP_FUSION_API_KEY"
	}
	return ProviderConfig{
		Provider:       provider,
		Enabled:        false,
		APIKeyName:     keyName,
		DailyQuota:     DefaultDailyQuota,
		RequestsToday:  0,
		QuotaResetDate: DateString(today),
		VenuesPerCity:  DefaultVenuesPerCity,
	}
}

// DateString formats a time as the calendar date used for quota windows.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}
