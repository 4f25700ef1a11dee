// Package database provides the GORM-backed persisted store connection.
//
// MySQL is the production driver; sqlite (including ":memory:") is supported
// for local development and tests. Connection pooling and timeouts are
// configured here so callers only deal with a ready *gorm.DB.
package database
