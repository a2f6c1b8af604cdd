package vehicle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jnxxx/connectedcars-go/internal/log"
	"github.com/jnxxx/connectedcars-go/pkg/lookup"
)

// Lead types with a known context shape.
const (
	LeadServiceReminder   = "service_reminder"
	LeadErrorCode         = "error_code"
	LeadEngineLamp        = "engine_lamp"
	LeadConnectivityIssue = "connectivity_issue"
	LeadLowBatteryVoltage = "low_battery_voltage"
	LeadQuote             = "quote"
)

// contextFields lists the context keys kept for each lead type. Leads of other types keep every
// key.
var contextFields = map[string][]string{
	LeadServiceReminder:   {"serviceDate", "odometer", "oilEstimateUncertain"},
	LeadErrorCode:         {"errorCode", "ecu", "provider", "description", "severity", "errorCodeCreatedAt"},
	LeadEngineLamp:        {"lampType", "lampTime", "enabled"},
	LeadConnectivityIssue: {"issue", "lastSignalTime"},
	LeadLowBatteryVoltage: {"voltage", "voltageTime"},
	LeadQuote:             {"amount", "currency", "description"},
}

// Lead is an open maintenance, fault, or service event reported for a vehicle.
type Lead struct {
	ID                string
	Type              string
	CreatedTime       time.Time
	UpdatedTime       *time.Time
	BookingTime       *time.Time
	LastContactedTime *time.Time
	SeverityScore     *float64
	Value             *float64
	// Context holds the type-dependent details of the lead. Keys with null values are omitted.
	Context map[string]any
}

var errMalformedLead = errors.New("malformed lead")

// Leads returns the open leads of vehicle id. Leads that cannot be parsed are logged and skipped.
func (c *Client) Leads(ctx context.Context, id string) ([]Lead, error) {
	response, err := c.exec.Execute(ctx, leadsQuery(id))
	if err != nil {
		return nil, err
	}
	v, ok := lookup.Get(response, lookup.Path{"data", "vehicle", "leads"})
	if !ok {
		return nil, nil
	}
	records, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: leads of vehicle %s is not a list", errMalformedLead, id)
	}

	leads := make([]Lead, 0, len(records))
	for i, record := range records {
		lead, err := parseLead(record)
		if err != nil {
			log.Warning("Skipping lead %d of vehicle %s: %s", i, id, err)
			continue
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

func parseLead(record any) (Lead, error) {
	var lead Lead
	obj, ok := record.(map[string]any)
	if !ok {
		return lead, fmt.Errorf("%w: not an object", errMalformedLead)
	}
	if lead.Type, ok = lookup.GetString(obj, lookup.Path{"type"}); !ok || lead.Type == "" {
		return lead, fmt.Errorf("%w: missing type", errMalformedLead)
	}
	if lead.ID, ok = lookup.GetString(obj, lookup.Path{"id"}); !ok {
		if n, isNum := lookup.GetFloat(obj, lookup.Path{"id"}); isNum {
			lead.ID = fmt.Sprint(n)
		}
	}

	created, ok := lookup.GetString(obj, lookup.Path{"createdTime"})
	if !ok {
		return lead, fmt.Errorf("%w: missing createdTime", errMalformedLead)
	}
	var err error
	if lead.CreatedTime, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return lead, fmt.Errorf("%w: createdTime: %w", errMalformedLead, err)
	}

	lead.UpdatedTime = optionalTime(obj, "updatedTime")
	lead.BookingTime = optionalTime(obj, "bookingTime")
	lead.LastContactedTime = optionalTime(obj, "lastContactedTime")
	lead.SeverityScore = optionalFloat(obj, "severityScore")
	lead.Value = optionalFloat(obj, "value")

	if raw, ok := lookup.Get(obj, lookup.Path{"context"}); ok {
		fields, isObj := raw.(map[string]any)
		if !isObj {
			return lead, fmt.Errorf("%w: context is not an object", errMalformedLead)
		}
		lead.Context = pruneContext(lead.Type, fields)
	} else {
		lead.Context = map[string]any{}
	}
	return lead, nil
}

// pruneContext copies the fields kept for leadType, dropping null values.
func pruneContext(leadType string, fields map[string]any) map[string]any {
	pruned := make(map[string]any)
	keys, known := contextFields[leadType]
	if !known {
		for key, value := range fields {
			if value != nil {
				pruned[key] = value
			}
		}
		return pruned
	}
	for _, key := range keys {
		if value, ok := fields[key]; ok && value != nil {
			pruned[key] = value
		}
	}
	return pruned
}

func optionalTime(obj map[string]any, key string) *time.Time {
	s, ok := lookup.GetString(obj, lookup.Path{key})
	if !ok {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		log.Debug("Ignoring unparsable %s %q: %s", key, s, err)
		return nil
	}
	return &t
}

func optionalFloat(obj map[string]any, key string) *float64 {
	f, ok := lookup.GetFloat(obj, lookup.Path{key})
	if !ok {
		return nil
	}
	return &f
}
