package vehicle_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/jnxxx/connectedcars-go/mocks"
	"github.com/jnxxx/connectedcars-go/pkg/cache"
	"github.com/jnxxx/connectedcars-go/pkg/graphql"
	"github.com/jnxxx/connectedcars-go/pkg/lookup"
	"github.com/jnxxx/connectedcars-go/pkg/vehicle"
)

// queryNamed matches GraphQL queries by operation name.
type queryNamed string

func (q queryNamed) Matches(x any) bool {
	s, ok := x.(string)
	return ok && strings.HasPrefix(s, "query "+string(q)+" ")
}

func (q queryNamed) String() string {
	return fmt.Sprintf("is query %s", string(q))
}

var _ = Describe("Client", func() {
	var (
		ctrl      *gomock.Controller
		snapshots *mocks.SnapshotSource
		exec      *mocks.Executor
		client    *vehicle.Client
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		ctrl = gomock.NewController(GinkgoT())
		snapshots = mocks.NewSnapshotSource(ctrl)
		exec = mocks.NewExecutor(ctrl)
		client = vehicle.New(snapshots, exec)
	})

	Context("with a snapshot", func() {
		BeforeEach(func() {
			snapshots.EXPECT().Snapshot(gomock.Any()).Return(decode(twoVehicles), nil).AnyTimes()
		})

		Describe("Value", func() {
			It("reads values of the requested vehicle", func() {
				on, ok := client.Value(ctx, "101", lookup.Path{"ignition", "on"})
				Expect(ok).To(BeTrue())
				Expect(on).To(Equal(true))

				on, ok = client.Value(ctx, "202", lookup.Path{"ignition", "on"})
				Expect(ok).To(BeTrue())
				Expect(on).To(Equal(false))
			})

			It("reports missing data as absent", func() {
				_, ok := client.Value(ctx, "101", lookup.Path{"latestBatteryVoltage", "voltage"})
				Expect(ok).To(BeFalse())
				_, ok = client.Value(ctx, "101", lookup.Path{"outdoorTemperatures", 3, "celsius"})
				Expect(ok).To(BeFalse())
				_, ok = client.Value(ctx, "101", lookup.Path{"health", "recommendation"})
				Expect(ok).To(BeFalse())
			})

			It("reports unknown vehicles as absent", func() {
				_, ok := client.Value(ctx, "999", lookup.Path{"ignition", "on"})
				Expect(ok).To(BeFalse())
			})
		})

		Describe("Float", func() {
			DescribeTable("coerces numeric representations",
				func(path lookup.Path, expected float64) {
					value, ok := client.Float(ctx, "101", path)
					Expect(ok).To(BeTrue())
					Expect(value).To(BeNumerically("==", expected))
				},
				Entry("float", lookup.Path{"outdoorTemperatures", 0, "celsius"}, 6.5),
				Entry("integer", lookup.Path{"fuelLevel", "liter"}, 31.0),
				Entry("numeric string", lookup.Path{"fuelPercentage", "percent"}, 62.0),
			)

			It("rejects values that are not numbers", func() {
				_, ok := client.Float(ctx, "101", lookup.Path{"ignition", "on"})
				Expect(ok).To(BeFalse())
				_, ok = client.Float(ctx, "101", lookup.Path{"name"})
				Expect(ok).To(BeFalse())
			})
		})

		Describe("LampStatus", func() {
			It("returns the enabled flag of the matching lamp", func() {
				enabled, ok := client.LampStatus(ctx, "101", "engine_check")
				Expect(ok).To(BeTrue())
				Expect(enabled).To(BeTrue())

				enabled, ok = client.LampStatus(ctx, "202", "engine_check")
				Expect(ok).To(BeTrue())
				Expect(enabled).To(BeFalse())
			})

			It("reports unknown lamp types as absent", func() {
				_, ok := client.LampStatus(ctx, "101", "unknown_type")
				Expect(ok).To(BeFalse())
			})
		})

		Describe("NextServicePredicted", func() {
			It("parses the predicted date", func() {
				date, ok := client.NextServicePredicted(ctx, "101")
				Expect(ok).To(BeTrue())
				Expect(date).To(Equal(time.Date(2024, 9, 15, 0, 0, 0, 0, time.UTC)))
			})

			It("reports unparsable dates as absent", func() {
				_, ok := client.NextServicePredicted(ctx, "202")
				Expect(ok).To(BeFalse())
			})
		})

		Describe("Vehicles", func() {
			It("summarizes each vehicle and probes its capabilities in order", func() {
				summaries, err := client.Vehicles(ctx, false)
				Expect(err).ToNot(HaveOccurred())
				Expect(summaries).To(HaveLen(2))

				golf := summaries[0]
				Expect(golf.ID).To(Equal("101"))
				Expect(golf.VIN).To(Equal("WVWZZZAUZKW000001"))
				Expect(golf.Name).To(Equal("Family car"))
				Expect(golf.Make).To(Equal("Volkswagen"))
				Expect(golf.Model).To(Equal("Golf"))
				Expect(golf.LicensePlate).To(Equal("AB12345"))
				Expect(golf.LampStates).To(Equal([]string{"engine_check", "oil_level"}))
				Expect(golf.Capabilities).To(Equal([]string{
					vehicle.CapabilityIgnition,
					vehicle.CapabilityHealth,
					vehicle.CapabilityGeoLocation,
					vehicle.CapabilitySpeed,
					vehicle.CapabilityOutdoorTemperature,
					vehicle.CapabilityFuelPercentage,
					vehicle.CapabilityFuelLevel,
					vehicle.CapabilityOdometer,
					vehicle.CapabilityNextServicePredicted,
					vehicle.CapabilityRefuelEvents,
				}))
				Expect(golf.Has(vehicle.CapabilityBatteryVoltage)).To(BeFalse())

				Expect(summaries[1].Capabilities).To(Equal([]string{
					vehicle.CapabilityIgnition,
					vehicle.CapabilityNextServicePredicted,
					vehicle.CapabilityChargePercentage,
					vehicle.CapabilityHVBatteryTemperature,
					vehicle.CapabilityRangeTotalKm,
				}))
			})

			It("isolates failures of extended probes", func() {
				exec.EXPECT().Execute(gomock.Any(), queryNamed("TotalTripStatistics")).
					Return(decode(`{"data": {"vehicle": {"totalTripStatistics": {"mileageInKm": 12000}}}}`), nil).Times(2)
				exec.EXPECT().Execute(gomock.Any(), queryNamed("ComputedOdometer")).
					Return(nil, errors.New("connection reset")).Times(2)
				exec.EXPECT().Execute(gomock.Any(), queryNamed("LatestTrip")).
					Return(decode(`{"data": {"vehicle": {"trips": {"items": [{"id": "t-1"}]}}}}`), nil).Times(2)

				summaries, err := client.Vehicles(ctx, true)
				Expect(err).ToNot(HaveOccurred())
				for _, summary := range summaries {
					Expect(summary.Has(vehicle.CapabilityTotalTripStatistics)).To(BeTrue())
					Expect(summary.Has(vehicle.CapabilityComputedOdometer)).To(BeFalse())
					Expect(summary.Has(vehicle.CapabilityLatestTrip)).To(BeTrue())
				}
			})
		})

		Describe("MileageSinceRefuel", func() {
			It("subtracts the odometer at the first trip after the latest refuel", func() {
				exec.EXPECT().Execute(gomock.Any(), queryNamed("TripAtTime")).DoAndReturn(func(_ context.Context, query string) (graphql.Response, error) {
					Expect(query).To(ContainSubstring(`fromTime: "2024-02-20T17:30:00Z"`))
					return decode(`{"data": {"vehicle": {"trips": {"items": [
						{"id": "t-9", "startTime": "2024-02-21T07:10:00.000Z", "endTime": "2024-02-21T07:40:00.000Z", "mileageInKm": 22.4, "startOdometer": 44800, "endOdometer": 44822}
					]}}}}`), nil
				})
				distance, ok := client.MileageSinceRefuel(ctx, "101")
				Expect(ok).To(BeTrue())
				Expect(distance).To(BeNumerically("==", 410))
			})

			It("is absent without refuel events", func() {
				_, ok := client.MileageSinceRefuel(ctx, "202")
				Expect(ok).To(BeFalse())
			})
		})
	})

	Context("without a snapshot", func() {
		BeforeEach(func() {
			snapshots.EXPECT().Snapshot(gomock.Any()).Return(nil, cache.ErrNoSnapshot).AnyTimes()
		})

		It("degrades accessors to absent", func() {
			_, ok := client.Value(ctx, "101", lookup.Path{"ignition", "on"})
			Expect(ok).To(BeFalse())
			_, ok = client.LampStatus(ctx, "101", "engine_check")
			Expect(ok).To(BeFalse())
			_, ok = client.NextServicePredicted(ctx, "101")
			Expect(ok).To(BeFalse())
		})

		It("fails to list vehicles", func() {
			_, err := client.Vehicles(ctx, false)
			Expect(err).To(MatchError(cache.ErrNoSnapshot))
		})
	})

	Describe("Leads", func() {
		It("prunes null context fields and skips malformed records", func() {
			exec.EXPECT().Execute(gomock.Any(), queryNamed("Leads")).Return(decode(`{"data": {"vehicle": {"leads": [
				{"id": "l-1", "type": "service_reminder", "createdTime": "2024-02-01T10:00:00.000Z",
				 "bookingTime": null, "severityScore": 0.2, "value": 1500,
				 "context": {"serviceDate": "2024-04-01", "odometer": null, "oilEstimateUncertain": false}},
				"garbage",
				{"id": "l-2", "createdTime": "2024-02-02T10:00:00.000Z"},
				{"id": "l-3", "type": "error_code", "createdTime": "yesterday"},
				{"id": "l-4", "type": "error_code", "createdTime": "2024-02-03T10:00:00.000Z",
				 "updatedTime": "2024-02-04T10:00:00.000Z",
				 "context": {"errorCode": "P0300", "ecu": "engine", "provider": null, "unrelated": 1}},
				{"id": "l-5", "type": "battery_replacement", "createdTime": "2024-02-05T10:00:00.000Z",
				 "context": {"voltage": 11.8, "note": null}}
			]}}}`), nil)

			leads, err := client.Leads(ctx, "101")
			Expect(err).ToNot(HaveOccurred())
			Expect(leads).To(HaveLen(3))

			Expect(leads[0].ID).To(Equal("l-1"))
			Expect(leads[0].Type).To(Equal(vehicle.LeadServiceReminder))
			Expect(leads[0].CreatedTime).To(Equal(time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)))
			Expect(leads[0].BookingTime).To(BeNil())
			Expect(*leads[0].SeverityScore).To(BeNumerically("==", 0.2))
			Expect(*leads[0].Value).To(BeNumerically("==", 1500))
			Expect(leads[0].Context).To(Equal(map[string]any{"serviceDate": "2024-04-01", "oilEstimateUncertain": false}))

			Expect(leads[1].ID).To(Equal("l-4"))
			Expect(leads[1].UpdatedTime).ToNot(BeNil())
			Expect(leads[1].Context).To(Equal(map[string]any{"errorCode": "P0300", "ecu": "engine"}))

			Expect(leads[2].Context).To(Equal(map[string]any{"voltage": 11.8}))
		})

		It("returns no leads when the vehicle has none", func() {
			exec.EXPECT().Execute(gomock.Any(), queryNamed("Leads")).Return(nil, nil)
			leads, err := client.Leads(ctx, "101")
			Expect(err).ToNot(HaveOccurred())
			Expect(leads).To(BeEmpty())
		})

		It("propagates query failures", func() {
			exec.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))
			_, err := client.Leads(ctx, "101")
			Expect(err).To(MatchError("connection refused"))
		})
	})

	Describe("LatestMileage", func() {
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		BeforeEach(func() {
			client.Clock = func() time.Time { return now }
		})

		It("queries the past year and reports the statistics", func() {
			exec.EXPECT().Execute(gomock.Any(), queryNamed("Mileage")).DoAndReturn(func(_ context.Context, query string) (graphql.Response, error) {
				Expect(query).To(ContainSubstring(`fromTime: "2023-03-01T12:00:00Z"`))
				Expect(query).To(ContainSubstring(`toTime: "2024-03-01T12:00:00Z"`))
				return decode(`{"data": {"vehicle": {"totalTripStatistics": {
					"mileageInKm": 14210.5, "driveDurationInMinutes": 16020, "tripCount": 812, "longestTripInKm": 480.2}}}}`), nil
			})
			mileage, ok, attributes := client.LatestMileage(ctx, "101", false)
			Expect(ok).To(BeTrue())
			Expect(mileage).To(BeNumerically("==", 14210.5))
			Expect(attributes).To(Equal(map[string]any{
				vehicle.AttrPeriodStart:          "2023-03-01T12:00:00Z",
				vehicle.AttrPeriodEnd:            "2024-03-01T12:00:00Z",
				vehicle.AttrDriveDurationMinutes: 16020.0,
				vehicle.AttrTripCount:            812,
				vehicle.AttrLongestTripKm:        480.2,
			}))
		})

		It("reports partial statistics for a month", func() {
			exec.EXPECT().Execute(gomock.Any(), queryNamed("Mileage")).DoAndReturn(func(_ context.Context, query string) (graphql.Response, error) {
				Expect(query).To(ContainSubstring(`fromTime: "2024-02-01T12:00:00Z"`))
				return decode(`{"data": {"vehicle": {"totalTripStatistics": {"mileageInKm": null, "tripCount": 40}}}}`), nil
			})
			_, ok, attributes := client.LatestMileage(ctx, "101", true)
			Expect(ok).To(BeFalse())
			Expect(attributes).To(HaveKeyWithValue(vehicle.AttrTripCount, 40))
			Expect(attributes).ToNot(HaveKey(vehicle.AttrLongestTripKm))
		})

		It("keeps the period when the query fails", func() {
			exec.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout"))
			_, ok, attributes := client.LatestMileage(ctx, "101", true)
			Expect(ok).To(BeFalse())
			Expect(attributes).To(HaveLen(2))
		})
	})

	Describe("TripAtTime", func() {
		It("returns the first trip starting at or after the time", func() {
			exec.EXPECT().Execute(gomock.Any(), queryNamed("TripAtTime")).Return(decode(`{"data": {"vehicle": {"trips": {"items": [
				{"id": "early", "startTime": "2024-02-20T17:00:00.000Z"},
				{"id": "t-9", "startTime": "2024-02-20T17:30:00.000Z", "mileageInKm": 12, "startOdometer": 44800}
			]}}}}`), nil)
			trip, ok := client.TripAtTime(ctx, "101", "2024-02-20T17:30:00Z")
			Expect(ok).To(BeTrue())
			Expect(trip.ID).To(Equal("t-9"))
			Expect(*trip.StartOdometer).To(BeNumerically("==", 44800))
			Expect(trip.EndOdometer).To(BeNil())
			Expect(trip.EndTime.IsZero()).To(BeTrue())
		})

		It("rejects invalid timestamps without querying", func() {
			_, ok := client.TripAtTime(ctx, "101", "last tuesday")
			Expect(ok).To(BeFalse())
		})

		It("is absent when no trip matches", func() {
			exec.EXPECT().Execute(gomock.Any(), gomock.Any()).Return(decode(`{"data": {"vehicle": {"trips": {"items": []}}}}`), nil)
			_, ok := client.TripAtTime(ctx, "101", "2024-02-20T17:30:00Z")
			Expect(ok).To(BeFalse())
		})
	})
})

var _ = Describe("HealthAlert", func() {
	score := func(s float64) *float64 { return &s }

	DescribeTable("applies the sensitivity threshold",
		func(leads []vehicle.Lead, low, medium, high bool) {
			Expect(vehicle.HealthAlert(leads, vehicle.SensitivityLow)).To(Equal(low))
			Expect(vehicle.HealthAlert(leads, vehicle.SensitivityMedium)).To(Equal(medium))
			Expect(vehicle.HealthAlert(leads, vehicle.SensitivityHigh)).To(Equal(high))
		},
		Entry("no leads", nil, false, false, false),
		Entry("service reminder", []vehicle.Lead{{Type: vehicle.LeadServiceReminder}}, false, false, true),
		Entry("connectivity issue", []vehicle.Lead{{Type: vehicle.LeadConnectivityIssue}}, false, true, true),
		Entry("error code", []vehicle.Lead{{Type: vehicle.LeadErrorCode}}, true, true, true),
		Entry("score overrides type", []vehicle.Lead{{Type: vehicle.LeadErrorCode, SeverityScore: score(0.1)}}, false, false, true),
		Entry("high score", []vehicle.Lead{{Type: vehicle.LeadQuote, SeverityScore: score(0.9)}}, true, true, true),
	)

	DescribeTable("parses sensitivities",
		func(name string, expected vehicle.Sensitivity, canonical string) {
			sensitivity, err := vehicle.ParseSensitivity(name)
			Expect(err).ToNot(HaveOccurred())
			Expect(sensitivity).To(Equal(expected))
			Expect(sensitivity.String()).To(Equal(canonical))
		},
		Entry("default", "", vehicle.SensitivityMedium, "medium"),
		Entry("low", "low", vehicle.SensitivityLow, "low"),
		Entry("mixed case", "Medium", vehicle.SensitivityMedium, "medium"),
		Entry("padded", " HIGH ", vehicle.SensitivityHigh, "high"),
	)

	It("rejects unknown sensitivities", func() {
		_, err := vehicle.ParseSensitivity("paranoid")
		Expect(err).To(MatchError(ContainSubstring("unknown sensitivity")))
	})
})

var _ = Describe("end to end", func() {
	var (
		ctrl      *gomock.Controller
		exec      *mocks.Executor
		snapshots *cache.SnapshotCache
		client    *vehicle.Client
		now       time.Time
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		ctrl = gomock.NewController(GinkgoT())
		exec = mocks.NewExecutor(ctrl)
		snapshots = cache.New(exec)
		snapshots.Clock = func() time.Time { return now }
		client = vehicle.New(snapshots, exec)
	})

	It("serves a running vehicle from a snapshot that expires in 45 seconds", func() {
		exec.EXPECT().Execute(gomock.Any(), cache.VehicleQuery).Return(decode(twoVehicles), nil).Times(1)

		on, ok := client.Value(ctx, "101", lookup.Path{"ignition", "on"})
		Expect(ok).To(BeTrue())
		Expect(on).To(Equal(true))
		Expect(snapshots.Expiry()).To(Equal(now.Add(45 * time.Second)))

		_, ok = client.Value(ctx, "101", lookup.Path{"latestBatteryVoltage", "voltage"})
		Expect(ok).To(BeFalse())

		enabled, ok := client.LampStatus(ctx, "101", "engine_check")
		Expect(ok).To(BeTrue())
		Expect(enabled).To(BeTrue())
		_, ok = client.LampStatus(ctx, "101", "unknown_type")
		Expect(ok).To(BeFalse())
	})
})
