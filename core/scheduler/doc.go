// Package scheduler triggers the periodic synchronization tasks.
//
// Each task (blueprint sync, job sync, location resolution, type enrichment)
// is an independent, stateless job with its own interval. Job failures are
// logged and absorbed; the persisted data simply stays stale until the next
// successful run.
package scheduler
