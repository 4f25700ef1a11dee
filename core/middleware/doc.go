// Package middleware groups the HTTP middlewares used by the server:
// rayid (request correlation ids) and auth (API key protection).
package middleware
