// Package sync implements the synchronization and reconciliation engine.
//
// Three periodic tasks keep the library in agreement with ESI:
//
//   - blueprint sync and industry job sync reconcile each owner's persisted
//     collection against a freshly fetched remote snapshot: reported records
//     are upserted, unreported ones deleted (the snapshot is authoritative);
//   - location resolution fills in display names for location identifiers,
//     first through the bulk public resolver, then through authenticated
//     per-structure lookups.
//
// Failure isolation is per owner: a credential or transport failure skips that
// owner for the current pass without touching its persisted rows, and never
// aborts the pass for other owners. Only store failures propagate.
//
// Each owner's reconcile-and-delete sequence runs under a per-owner mutex and
// inside a transaction, so overlapping passes cannot interleave one pass's
// deletion phase with another's partial upserts.
package sync
