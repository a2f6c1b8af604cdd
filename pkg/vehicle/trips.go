package vehicle

import (
	"context"
	"time"

	"github.com/jnxxx/connectedcars-go/internal/log"
	"github.com/jnxxx/connectedcars-go/pkg/lookup"
)

// Attribute keys returned by [Client.LatestMileage].
const (
	AttrPeriodStart          = "period_start"
	AttrPeriodEnd            = "period_end"
	AttrDriveDurationMinutes = "drive_duration_minutes"
	AttrTripCount            = "trip_count"
	AttrLongestTripKm        = "longest_trip_km"
)

// Trip is a single recorded drive.
type Trip struct {
	ID            string
	StartTime     time.Time
	EndTime       time.Time
	DistanceKm    *float64
	StartOdometer *float64
	EndOdometer   *float64
}

// LatestMileage returns the distance driven by vehicle id during the year (or, if monthly is true,
// the month) ending now. The attributes describe the period and include whatever trip statistics
// the server reported; each is present independently of the others.
func (c *Client) LatestMileage(ctx context.Context, id string, monthly bool) (float64, bool, map[string]any) {
	to := c.now()
	from := to.AddDate(-1, 0, 0)
	if monthly {
		from = to.AddDate(0, -1, 0)
	}
	attributes := map[string]any{
		AttrPeriodStart: from.UTC().Format(time.RFC3339),
		AttrPeriodEnd:   to.UTC().Format(time.RFC3339),
	}

	response, err := c.exec.Execute(ctx, mileageQuery(id, from, to))
	if err != nil {
		log.Debug("Mileage query failed for vehicle %s: %s", id, err)
		return 0, false, attributes
	}
	stats, ok := lookup.Get(response, lookup.Path{"data", "vehicle", "totalTripStatistics"})
	if !ok {
		return 0, false, attributes
	}

	if minutes, ok := lookup.GetFloat(stats, lookup.Path{"driveDurationInMinutes"}); ok {
		attributes[AttrDriveDurationMinutes] = minutes
	}
	if count, ok := lookup.GetFloat(stats, lookup.Path{"tripCount"}); ok {
		attributes[AttrTripCount] = int(count)
	}
	if longest, ok := lookup.GetFloat(stats, lookup.Path{"longestTripInKm"}); ok {
		attributes[AttrLongestTripKm] = longest
	}
	mileage, ok := lookup.GetFloat(stats, lookup.Path{"mileageInKm"})
	return mileage, ok, attributes
}

// TripAtTime returns the first trip of vehicle id that started at or after timestamp, an RFC 3339
// string.
func (c *Client) TripAtTime(ctx context.Context, id, timestamp string) (Trip, bool) {
	from, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		log.Debug("Invalid trip timestamp %q: %s", timestamp, err)
		return Trip{}, false
	}
	response, err := c.exec.Execute(ctx, tripAtTimeQuery(id, from))
	if err != nil {
		log.Debug("Trip query failed for vehicle %s: %s", id, err)
		return Trip{}, false
	}
	v, ok := lookup.Get(response, lookup.Path{"data", "vehicle", "trips", "items"})
	if !ok {
		return Trip{}, false
	}
	items, _ := v.([]any)
	for _, item := range items {
		trip, ok := parseTrip(item)
		if !ok {
			log.Debug("Skipping malformed trip of vehicle %s", id)
			continue
		}
		if !trip.StartTime.Before(from) {
			return trip, true
		}
	}
	return Trip{}, false
}

func parseTrip(item any) (Trip, bool) {
	obj, ok := item.(map[string]any)
	if !ok {
		return Trip{}, false
	}
	var trip Trip
	trip.ID, _ = lookup.GetString(obj, lookup.Path{"id"})
	start := optionalTime(obj, "startTime")
	if start == nil {
		return Trip{}, false
	}
	trip.StartTime = *start
	if end := optionalTime(obj, "endTime"); end != nil {
		trip.EndTime = *end
	}
	trip.DistanceKm = optionalFloat(obj, "mileageInKm")
	trip.StartOdometer = optionalFloat(obj, "startOdometer")
	trip.EndOdometer = optionalFloat(obj, "endOdometer")
	return trip, true
}

// MileageSinceRefuel returns the distance driven since the most recent refuel event: the current
// odometer reading minus the odometer at the start of the first trip after the refuel.
func (c *Client) MileageSinceRefuel(ctx context.Context, id string) (float64, bool) {
	vehicle, ok := c.find(ctx, id)
	if !ok {
		return 0, false
	}
	odometer, ok := lookup.GetFloat(vehicle, lookup.Path{"odometer", "odometer"})
	if !ok {
		return 0, false
	}
	refuel, ok := latestRefuel(vehicle)
	if !ok {
		return 0, false
	}
	trip, ok := c.TripAtTime(ctx, id, refuel.Format(time.RFC3339Nano))
	if !ok || trip.StartOdometer == nil {
		return 0, false
	}
	distance := odometer - *trip.StartOdometer
	if distance < 0 {
		log.Debug("Odometer of vehicle %s is behind the refuel trip (%.1f < %.1f)", id, odometer, *trip.StartOdometer)
		return 0, false
	}
	return distance, true
}

// latestRefuel returns the time of the most recent refuel event.
func latestRefuel(vehicle map[string]any) (time.Time, bool) {
	v, ok := lookup.Get(vehicle, lookup.Path{"refuelEvents"})
	if !ok {
		return time.Time{}, false
	}
	events, _ := v.([]any)
	var latest time.Time
	for _, event := range events {
		obj, ok := event.(map[string]any)
		if !ok {
			continue
		}
		if t := optionalTime(obj, "time"); t != nil && t.After(latest) {
			latest = *t
		}
	}
	return latest, !latest.IsZero()
}
