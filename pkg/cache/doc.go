// Package cache holds the most recent snapshot of an account's vehicles.
//
// A snapshot is the decoded response to [VehicleQuery], one bulk GraphQL query that returns every
// vehicle on the account together with the data points the client exposes. Fetching it is
// comparatively expensive, so a [SnapshotCache] keeps it for a while. How long depends on what the
// snapshot says: if any vehicle has its ignition on or reports a non-zero speed, the snapshot
// expires after [DefaultActiveTTL]; otherwise after [DefaultIdleTTL].
//
// Readers that arrive while the cache is cold or stale share a single fetch. A failed fetch
// empties the cache and the error is returned to every waiting reader; the next call tries again.
//
// A snapshot written with [SnapshotCache.Export] can be read back with [ImportFromFile] and served
// with [Static], which is useful for inspecting data offline. Snapshots include location data and
// should be protected accordingly.
package cache
