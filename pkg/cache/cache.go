package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jnxxx/connectedcars-go/internal/log"
	"github.com/jnxxx/connectedcars-go/internal/metrics"
	"github.com/jnxxx/connectedcars-go/pkg/graphql"
	"github.com/jnxxx/connectedcars-go/pkg/lookup"
)

const (
	// DefaultActiveTTL is how long a snapshot stays fresh while a vehicle is in use.
	DefaultActiveTTL = 45 * time.Second
	// DefaultIdleTTL is how long a snapshot stays fresh while all vehicles are parked.
	DefaultIdleTTL = 285 * time.Second
)

// ErrNoSnapshot is returned when a fetch completed but did not contain a vehicle list.
var ErrNoSnapshot = errors.New("no vehicle data in response")

var vehiclesPath = lookup.Path{"data", "viewer", "vehicles"}

// SnapshotCache fetches and caches the bulk vehicle snapshot. It's safe for concurrent use.
type SnapshotCache struct {
	ActiveTTL time.Duration
	IdleTTL   time.Duration
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	exec      graphql.Executor
	query     string
	lock      sync.Mutex
	payload   graphql.Response
	expiresAt time.Time
	flight    singleflight.Group
}

// New returns an empty SnapshotCache that fetches [VehicleQuery] using exec.
func New(exec graphql.Executor) *SnapshotCache {
	return &SnapshotCache{
		ActiveTTL: DefaultActiveTTL,
		IdleTTL:   DefaultIdleTTL,
		Clock:     time.Now,
		exec:      exec,
		query:     VehicleQuery,
	}
}

func (c *SnapshotCache) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

// cached returns the payload if it's still fresh.
func (c *SnapshotCache) cached() (graphql.Response, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.payload != nil && c.now().Before(c.expiresAt) {
		return c.payload, true
	}
	return nil, false
}

// Snapshot returns the cached payload, fetching a new one if the cache is empty or expired.
//
// The returned payload is shared between callers and must not be modified. If ctx ends while a
// fetch is in flight, Snapshot returns ctx.Err() and the fetch completes in the background.
func (c *SnapshotCache) Snapshot(ctx context.Context) (graphql.Response, error) {
	if payload, ok := c.cached(); ok {
		metrics.SnapshotHits.Inc()
		return payload, nil
	}

	result := c.flight.DoChan("snapshot", func() (interface{}, error) {
		if payload, ok := c.cached(); ok {
			return payload, nil
		}
		return c.fetch(context.WithoutCancel(ctx))
	})

	select {
	case r := <-result:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(graphql.Response), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *SnapshotCache) fetch(ctx context.Context) (graphql.Response, error) {
	log.Debug("Fetching vehicle snapshot")
	payload, err := c.exec.Execute(ctx, c.query)
	if err == nil && Vehicles(payload) == nil {
		err = ErrNoSnapshot
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if err != nil {
		c.payload = nil
		c.expiresAt = time.Time{}
		metrics.SnapshotFetches.WithLabelValues("failed").Inc()
		log.Warning("Failed to fetch vehicle snapshot: %s", err)
		return nil, err
	}

	ttl, outcome := c.IdleTTL, "idle"
	if Active(payload) {
		ttl, outcome = c.ActiveTTL, "active"
	}
	c.payload = payload
	c.expiresAt = c.now().Add(ttl)
	metrics.SnapshotFetches.WithLabelValues(outcome).Inc()
	log.Debug("Cached vehicle snapshot until %s (%s)", c.expiresAt.Format(time.RFC3339), outcome)
	return payload, nil
}

// Expiry returns the time at which the cached snapshot goes stale. The zero time means the cache
// is empty.
func (c *SnapshotCache) Expiry() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.expiresAt
}

// Invalidate empties the cache. The next call to [SnapshotCache.Snapshot] fetches.
func (c *SnapshotCache) Invalidate() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.payload = nil
	c.expiresAt = time.Time{}
}

// Export writes the cached snapshot to w as JSON, whether or not it's stale. Returns
// [ErrNoSnapshot] if the cache is empty.
func (c *SnapshotCache) Export(w io.Writer) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.payload == nil {
		return ErrNoSnapshot
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(c.payload)
}

// ExportToFile writes the cached snapshot to disk.
func (c *SnapshotCache) ExportToFile(filename string) error {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer file.Close()

	return c.Export(file)
}

// Import reads a snapshot previously written by [SnapshotCache.Export].
func Import(r io.Reader) (Static, error) {
	var payload Static
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, err
	}
	if Vehicles(graphql.Response(payload)) == nil {
		return nil, ErrNoSnapshot
	}
	return payload, nil
}

// ImportFromFile reads a snapshot from disk.
func ImportFromFile(filename string) (Static, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Import(file)
}

// Static is a fixed snapshot that never expires.
type Static map[string]any

// Snapshot returns s.
func (s Static) Snapshot(context.Context) (graphql.Response, error) {
	return graphql.Response(s), nil
}

// Vehicles returns the vehicle objects of a snapshot (the "vehicle" member of each entry in
// data.viewer.vehicles), or nil if payload has no vehicle list. Entries without a vehicle object
// are skipped.
func Vehicles(payload graphql.Response) []map[string]any {
	value, ok := lookup.Get(payload, vehiclesPath)
	if !ok {
		return nil
	}
	entries, ok := value.([]any)
	if !ok {
		return nil
	}
	vehicles := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		if vehicle, ok := lookup.Get(entry, lookup.Path{"vehicle"}); ok {
			if obj, ok := vehicle.(map[string]any); ok {
				vehicles = append(vehicles, obj)
			}
		}
	}
	return vehicles
}

// Active returns true if any vehicle in payload has its ignition on or is moving.
func Active(payload graphql.Response) bool {
	for _, vehicle := range Vehicles(payload) {
		if on, ok := lookup.GetBool(vehicle, lookup.Path{"ignition", "on"}); ok && on {
			return true
		}
		if speed, ok := lookup.GetFloat(vehicle, lookup.Path{"position", "speed"}); ok && speed > 0 {
			return true
		}
	}
	return false
}
