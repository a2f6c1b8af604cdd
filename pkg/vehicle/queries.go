package vehicle

import (
	"fmt"
	"strconv"
	"time"
)

const tripFields = `id
        startTime
        endTime
        mileageInKm
        startOdometer
        endOdometer`

func totalTripStatisticsQuery(id string) string {
	return fmt.Sprintf(`query TotalTripStatistics {
  vehicle(id: %s) {
    totalTripStatistics {
      mileageInKm
    }
  }
}`, strconv.Quote(id))
}

func computedOdometerQuery(id string) string {
	return fmt.Sprintf(`query ComputedOdometer {
  vehicle(id: %s) {
    computedOdometer {
      odometer
      time
    }
  }
}`, strconv.Quote(id))
}

func latestTripQuery(id string) string {
	return fmt.Sprintf(`query LatestTrip {
  vehicle(id: %s) {
    trips(last: 1) {
      items {
        %s
      }
    }
  }
}`, strconv.Quote(id), tripFields)
}

func tripAtTimeQuery(id string, from time.Time) string {
	return fmt.Sprintf(`query TripAtTime {
  vehicle(id: %s) {
    trips(first: 1, filter: {fromTime: %s}) {
      items {
        %s
      }
    }
  }
}`, strconv.Quote(id), strconv.Quote(from.UTC().Format(time.RFC3339)), tripFields)
}

func mileageQuery(id string, from, to time.Time) string {
	return fmt.Sprintf(`query Mileage {
  vehicle(id: %s) {
    totalTripStatistics(filter: {fromTime: %s, toTime: %s}) {
      mileageInKm
      driveDurationInMinutes
      tripCount
      longestTripInKm
    }
  }
}`, strconv.Quote(id), strconv.Quote(from.UTC().Format(time.RFC3339)), strconv.Quote(to.UTC().Format(time.RFC3339)))
}

func leadsQuery(id string) string {
	return fmt.Sprintf(`query Leads {
  vehicle(id: %s) {
    leads(statuses: [open]) {
      id
      type
      value
      severityScore
      createdTime
      updatedTime
      bookingTime
      lastContactedTime
      context {
        ... on ServiceReminderLeadContext {
          serviceDate
          odometer
          oilEstimateUncertain
        }
        ... on ErrorCodeLeadContext {
          errorCode
          ecu
          provider
          description
          severity
          errorCodeCreatedAt
        }
        ... on LampLeadContext {
          lampType
          lampTime
          enabled
        }
        ... on ConnectivityIssueLeadContext {
          issue
          lastSignalTime
        }
        ... on LowBatteryVoltageLeadContext {
          voltage
          voltageTime
        }
        ... on QuoteLeadContext {
          amount
          currency
          description
        }
      }
    }
  }
}`, strconv.Quote(id))
}
