package vehicle

import (
	"fmt"
	"strings"
)

// Sensitivity controls which leads raise a health alert.
type Sensitivity int

const (
	// SensitivityLow alerts on high-severity leads only.
	SensitivityLow Sensitivity = iota
	// SensitivityMedium alerts on medium- and high-severity leads.
	SensitivityMedium
	// SensitivityHigh alerts on any open lead.
	SensitivityHigh
)

// DefaultSensitivity is used when none is configured.
const DefaultSensitivity = SensitivityMedium

func (s Sensitivity) String() string {
	switch s {
	case SensitivityLow:
		return "low"
	case SensitivityMedium:
		return "medium"
	case SensitivityHigh:
		return "high"
	}
	return fmt.Sprintf("Sensitivity(%d)", int(s))
}

// ParseSensitivity parses "low", "medium", or "high" (case-insensitive). The empty string yields
// [DefaultSensitivity].
func ParseSensitivity(s string) (Sensitivity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultSensitivity, nil
	case "low":
		return SensitivityLow, nil
	case "medium":
		return SensitivityMedium, nil
	case "high":
		return SensitivityHigh, nil
	}
	return DefaultSensitivity, fmt.Errorf("unknown sensitivity %q", s)
}

type severity int

const (
	severityLow severity = iota
	severityMedium
	severityHigh
)

var leadSeverity = map[string]severity{
	LeadErrorCode:         severityHigh,
	LeadEngineLamp:        severityHigh,
	LeadLowBatteryVoltage: severityMedium,
	LeadConnectivityIssue: severityMedium,
	LeadServiceReminder:   severityLow,
	LeadQuote:             severityLow,
}

// severityOf classifies a lead by its severity score (0 to 1) when present, otherwise by type.
func severityOf(lead Lead) severity {
	if lead.SeverityScore != nil {
		switch score := *lead.SeverityScore; {
		case score >= 0.7:
			return severityHigh
		case score >= 0.4:
			return severityMedium
		default:
			return severityLow
		}
	}
	if s, ok := leadSeverity[lead.Type]; ok {
		return s
	}
	return severityMedium
}

// HealthAlert returns true if any lead is severe enough to warrant attention at the given
// sensitivity.
func HealthAlert(leads []Lead, sensitivity Sensitivity) bool {
	threshold := severityHigh
	switch sensitivity {
	case SensitivityMedium:
		threshold = severityMedium
	case SensitivityHigh:
		threshold = severityLow
	}
	for _, lead := range leads {
		if severityOf(lead) >= threshold {
			return true
		}
	}
	return false
}
