// Package vehicle answers questions about the vehicles on a connectedcars.io account.
//
// Most accessors read from the cached snapshot (see package cache) and never fail: a value that the
// vehicle does not report, or that could not be fetched, is reported as absent through a second
// boolean return value. A few metrics (leads, mileage over a period, trips) are not part of the
// snapshot and are fetched with a dedicated query on every call.
//
// A Client is safe for concurrent use. Create one per account:
//
//	snapshots := cache.New(graph)
//	client := vehicle.New(snapshots, graph)
//	on, ok := client.Value(ctx, id, lookup.Path{"ignition", "on"})
package vehicle

import (
	"context"
	"strconv"
	"time"

	"github.com/jnxxx/connectedcars-go/internal/log"
	"github.com/jnxxx/connectedcars-go/pkg/cache"
	"github.com/jnxxx/connectedcars-go/pkg/graphql"
	"github.com/jnxxx/connectedcars-go/pkg/lookup"
)

// SnapshotSource returns the current vehicle snapshot. *cache.SnapshotCache implements it.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (graphql.Response, error)
}

// Client exposes the data points of an account's vehicles.
type Client struct {
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	snapshots SnapshotSource
	exec      graphql.Executor
}

// New returns a Client that reads cached data from snapshots and sends on-demand queries using
// exec.
func New(snapshots SnapshotSource, exec graphql.Executor) *Client {
	return &Client{
		Clock:     time.Now,
		snapshots: snapshots,
		exec:      exec,
	}
}

func (c *Client) now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock()
}

// idOf returns a vehicle's ID. The API reports IDs as strings, but numeric IDs are accepted too.
func idOf(vehicle map[string]any) string {
	switch id := vehicle["id"].(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	}
	return ""
}

// find returns the snapshot object of the vehicle with the given ID.
func (c *Client) find(ctx context.Context, id string) (map[string]any, bool) {
	payload, err := c.snapshots.Snapshot(ctx)
	if err != nil {
		log.Debug("No snapshot for vehicle %s: %s", id, err)
		return nil, false
	}
	for _, vehicle := range cache.Vehicles(payload) {
		if idOf(vehicle) == id {
			return vehicle, true
		}
	}
	log.Debug("Vehicle %s is not in the snapshot", id)
	return nil, false
}

// Value returns the value at path within the snapshot object of vehicle id, e.g.
// lookup.Path{"outdoorTemperatures", 0, "celsius"}.
func (c *Client) Value(ctx context.Context, id string, path lookup.Path) (any, bool) {
	vehicle, ok := c.find(ctx, id)
	if !ok {
		return nil, false
	}
	return lookup.Get(vehicle, path)
}

// Float is like [Client.Value], but converts numbers and numeric strings to float64. Other values
// are absent.
func (c *Client) Float(ctx context.Context, id string, path lookup.Path) (float64, bool) {
	v, ok := c.Value(ctx, id, path)
	if !ok {
		return 0, false
	}
	return lookup.Float(v)
}

// LampStatus returns whether the warning lamp of the given type is lit. The second return value is
// false if the vehicle does not report that lamp.
func (c *Client) LampStatus(ctx context.Context, id, lampType string) (enabled bool, ok bool) {
	vehicle, found := c.find(ctx, id)
	if !found {
		return false, false
	}
	for _, lamp := range lampStates(vehicle) {
		if t, _ := lookup.GetString(lamp, lookup.Path{"type"}); t == lampType {
			return lookup.GetBool(lamp, lookup.Path{"enabled"})
		}
	}
	return false, false
}

func lampStates(vehicle map[string]any) []any {
	v, ok := lookup.Get(vehicle, lookup.Path{"lampStates"})
	if !ok {
		return nil
	}
	lamps, _ := v.([]any)
	return lamps
}

// NextServicePredicted returns the predicted date of the next service visit.
func (c *Client) NextServicePredicted(ctx context.Context, id string) (time.Time, bool) {
	s, ok := c.Value(ctx, id, lookup.Path{"service", "predictedDate"})
	if !ok {
		return time.Time{}, false
	}
	text, ok := s.(string)
	if !ok {
		return time.Time{}, false
	}
	date, err := parseDate(text)
	if err != nil {
		log.Debug("Unable to parse predicted service date %q: %s", text, err)
		return time.Time{}, false
	}
	return date, true
}

// parseDate accepts plain dates and RFC 3339 timestamps.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}
