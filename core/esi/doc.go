// Package esi implements the HTTP client for the EVE Online ESI API.
//
// The client is rate limited and enforces a fixed per-request timeout.
// Authenticated endpoints take a bearer token supplied by the caller; the
// client never manages credentials itself.
//
// Failures are never fatal by contract: a non-success status is returned as a
// typed *Error and transport problems as ordinary errors. Callers (the sync
// tasks) treat both as "skip this owner for this pass".
//
// List endpoints follow ESI's X-Pages pagination header and return the
// concatenation of all pages.
package esi
