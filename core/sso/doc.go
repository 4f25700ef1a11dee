// Package sso is the credential provider for authenticated ESI calls.
//
// Grants (refresh tokens) are registered per character and persisted in the
// database. Token exchanges a character id for a valid access token, reusing
// the cached one while it is still fresh and refreshing through the OAuth2
// token endpoint otherwise. Refresh token rotation is handled transparently.
//
// Credential failures are deliberately plain errors: the sync tasks absorb
// them per owner instead of aborting a pass.
package sso
