package sso

// Config holds configuration for the EVE SSO credential provider.
type Config struct {
	// TokenURL is the OAuth2 token endpoint used to refresh access tokens.
	TokenURL string `mapstructure:"token_url" default:"https://login.eveonline.com/v2/oauth/token"`
	// ClientID is the registered SSO application id.
	ClientID string `mapstructure:"client_id" default:""`
	// ClientSecret is the registered SSO application secret.
	ClientSecret string `mapstructure:"client_secret" default:""`
}
