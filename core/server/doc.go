// Package server holds the HTTP server configuration.
//
// The actual Fiber application is assembled in cmd/start.go; this package only
// defines the partial configuration consumed there (listen port, API key).
package server
