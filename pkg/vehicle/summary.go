package vehicle

import (
	"context"
	"slices"

	"github.com/jnxxx/connectedcars-go/internal/log"
	"github.com/jnxxx/connectedcars-go/pkg/cache"
	"github.com/jnxxx/connectedcars-go/pkg/lookup"
)

// Capabilities reported by [Client.Vehicles].
const (
	CapabilityIgnition             = "Ignition"
	CapabilityHealth               = "Health"
	CapabilityGeoLocation          = "GeoLocation"
	CapabilitySpeed                = "Speed"
	CapabilityOutdoorTemperature   = "outdoorTemperature"
	CapabilityBatteryVoltage       = "BatteryVoltage"
	CapabilityFuelPercentage       = "fuelPercentage"
	CapabilityFuelLevel            = "fuelLevel"
	CapabilityOdometer             = "odometer"
	CapabilityNextServicePredicted = "NextServicePredicted"
	CapabilityChargePercentage     = "EVchargePercentage"
	CapabilityHVBatteryTemperature = "EVHVBattTemp"
	CapabilityRangeTotalKm         = "RangeTotalKm"
	CapabilityRefuelEvents         = "RefuelEvents"
	CapabilityAdblue               = "Adblue"

	// Only reported when extended probing is requested.
	CapabilityTotalTripStatistics = "TotalTripStatistics"
	CapabilityComputedOdometer    = "ComputedOdometer"
	CapabilityLatestTrip          = "LatestTrip"
)

// Summary describes a vehicle and the data points it reports.
type Summary struct {
	ID           string
	VIN          string
	Name         string
	Make         string
	Model        string
	LicensePlate string
	// LampStates lists the types of warning lamps the vehicle reports, in snapshot order.
	LampStates []string
	// Capabilities lists the data categories present for this vehicle, in probe order.
	Capabilities []string
}

// Has returns true if the vehicle reports the given capability.
func (s *Summary) Has(capability string) bool {
	return slices.Contains(s.Capabilities, capability)
}

type probe struct {
	name string
	path lookup.Path
}

// Snapshot probes, evaluated in order. A capability is present if its path resolves.
var probes = []probe{
	{CapabilityIgnition, lookup.Path{"ignition", "on"}},
	{CapabilityHealth, lookup.Path{"health", "ok"}},
	{CapabilityGeoLocation, lookup.Path{"position", "latitude"}},
	{CapabilitySpeed, lookup.Path{"position", "speed"}},
	{CapabilityOutdoorTemperature, lookup.Path{"outdoorTemperatures", 0, "celsius"}},
	{CapabilityBatteryVoltage, lookup.Path{"latestBatteryVoltage", "voltage"}},
	{CapabilityFuelPercentage, lookup.Path{"fuelPercentage", "percent"}},
	{CapabilityFuelLevel, lookup.Path{"fuelLevel", "liter"}},
	{CapabilityOdometer, lookup.Path{"odometer", "odometer"}},
	{CapabilityNextServicePredicted, lookup.Path{"service", "predictedDate"}},
	{CapabilityChargePercentage, lookup.Path{"chargePercentage", "pct"}},
	{CapabilityHVBatteryTemperature, lookup.Path{"highVoltageBatteryTemperature", "celsius"}},
	{CapabilityRangeTotalKm, lookup.Path{"rangeTotalKm", "km"}},
	{CapabilityRefuelEvents, lookup.Path{"refuelEvents", 0, "time"}},
	{CapabilityAdblue, lookup.Path{"adblueRemainingKm", "km"}},
}

// extendedProbe issues its own query; a failure only affects that probe.
type extendedProbe struct {
	name  string
	query func(id string) string
	path  lookup.Path
}

var extendedProbes = []extendedProbe{
	{CapabilityTotalTripStatistics, totalTripStatisticsQuery, lookup.Path{"data", "vehicle", "totalTripStatistics", "mileageInKm"}},
	{CapabilityComputedOdometer, computedOdometerQuery, lookup.Path{"data", "vehicle", "computedOdometer", "odometer"}},
	{CapabilityLatestTrip, latestTripQuery, lookup.Path{"data", "vehicle", "trips", "items", 0, "id"}},
}

// Vehicles returns a summary of every vehicle on the account. If extended is true, each vehicle is
// additionally probed for data that is not part of the snapshot, at the cost of one query per
// vehicle and probe.
//
// Returns an error if the snapshot could not be fetched.
func (c *Client) Vehicles(ctx context.Context, extended bool) ([]Summary, error) {
	payload, err := c.snapshots.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	vehicles := cache.Vehicles(payload)
	summaries := make([]Summary, 0, len(vehicles))
	for _, vehicle := range vehicles {
		summary := summarize(vehicle)
		if extended {
			summary.Capabilities = append(summary.Capabilities, c.probeExtended(ctx, summary.ID)...)
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func summarize(vehicle map[string]any) Summary {
	str := func(key string) string {
		s, _ := lookup.GetString(vehicle, lookup.Path{key})
		return s
	}
	summary := Summary{
		ID:           idOf(vehicle),
		VIN:          str("vin"),
		Name:         str("name"),
		Make:         str("make"),
		Model:        str("model"),
		LicensePlate: str("licensePlate"),
	}
	for _, lamp := range lampStates(vehicle) {
		if t, ok := lookup.GetString(lamp, lookup.Path{"type"}); ok {
			summary.LampStates = append(summary.LampStates, t)
		}
	}
	for _, p := range probes {
		if _, ok := lookup.Get(vehicle, p.path); ok {
			summary.Capabilities = append(summary.Capabilities, p.name)
		}
	}
	return summary
}

func (c *Client) probeExtended(ctx context.Context, id string) []string {
	var found []string
	for _, p := range extendedProbes {
		ok, err := c.runProbe(ctx, id, p)
		if err != nil {
			log.Warning("Probe %s failed for vehicle %s: %s", p.name, id, err)
			continue
		}
		if ok {
			found = append(found, p.name)
		}
	}
	return found
}

func (c *Client) runProbe(ctx context.Context, id string, p extendedProbe) (bool, error) {
	response, err := c.exec.Execute(ctx, p.query(id))
	if err != nil {
		return false, err
	}
	_, ok := lookup.Get(response, p.path)
	return ok, nil
}
