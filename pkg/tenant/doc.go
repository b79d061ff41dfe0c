// Package tenant resolves tenant-scoped key/value settings.
//
// Settings live in a SQLite table partitioned by tenant id and are read
// through a short-TTL cache (in-memory or redis). The resolver is the only
// write path, so writes can invalidate the cache eagerly; readers tolerate
// staleness up to the TTL. Snapshot materializes the AI-related keys into an
// immutable per-call view for the completion proxy.
package tenant
