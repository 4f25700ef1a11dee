package esi

// Config holds configuration for the ESI client.
type Config struct {
	// BaseURL is the ESI API root.
	BaseURL string `mapstructure:"base_url" default:"https://esi.evetech.net/latest"`
	// UserAgent identifies this application to ESI (CCP requires one).
	UserAgent string `mapstructure:"user_agent" default:"blueprint-library/1.0"`
	// TimeoutSeconds is the per-request timeout. A timed-out call is reported
	// as an ordinary transport failure.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// RequestsPerSecond caps the outgoing request rate.
	RequestsPerSecond int `mapstructure:"requests_per_second" default:"20"`
	// Burst is the rate limiter burst size.
	Burst int `mapstructure:"burst" default:"40"`
}
