// Package blueprints implements the blueprint library feature.
//
// It exposes read access to the collections maintained by the sync engine
// (blueprints, industry jobs, location names), filtered per request by an
// AccessScope value describing the viewer's visibility (personal, corporate
// or alliance-wide).
//
// # Components
//
//   - Service: scope-filtered queries and location-name annotation.
//   - Handler: HTTP endpoints.
//   - Feature: registers the feature with the application loader.
//   - sync subpackage: the synchronization and reconciliation engine.
//
// # HTTP Endpoints
//
//   - GET /blueprints           : scoped blueprint list, optional ?search=
//   - GET /blueprints/:id       : blueprint detail with linked industry jobs
//   - GET /industry/jobs        : scoped industry job list
//   - GET /locations            : location name cache (resolved and pending)
package blueprints
