// Package config loads the application configuration.
//
// Configuration comes from environment variables (optionally via a .env file)
// mapped onto nested keys: SERVER_PORT becomes server.port, ESI_BASE_URL
// becomes esi.base_url, and so on. Defaults are declared as 'default' struct
// tags on each partial config and bound through reflection.
package config
