package cache

// VehicleQuery is the bulk query whose response makes up a snapshot.
const VehicleQuery = `query User {
  viewer {
    vehicles {
      primary
      vehicle {
        id
        vin
        licensePlate
        name
        brand
        make
        model
        year
        engineSize
        fuelType
        fuelEconomy
        fuelEconomyLiter100Km
        avgCO2EmissionKm
        isLockStatusAvailable
        odometerOffset
        fuelTankSize(limit: 1)
        odometer {
          time
          odometer
        }
        refuelEvents {
          id
          litersAfter
          time
        }
        fuelLevel {
          time
          liter
        }
        fuelPercentage {
          percent
          time
        }
        adblueRemainingKm(limit: 1) {
          km
          time
        }
        chargePercentage {
          pct
          time
        }
        highVoltageBatteryTemperature {
          celsius
          time
        }
        rangeTotalKm {
          km
          time
        }
        ignition {
          time
          on
        }
        lampStates {
          type
          time
          enabled
          lampDetails {
            title
            subtitle
          }
        }
        outdoorTemperatures(limit: 1) {
          celsius
          time
        }
        position {
          latitude
          longitude
          speed
          direction
        }
        service {
          predictedDate
          nextOilChangeInKmPredictedDate
          nextOilChangeInDaysPredictedDate
          nextIntervalServiceInKmPredictedDate
          nextIntervalServiceInDaysPredictedDate
        }
        latestBatteryVoltage {
          voltage
          time
        }
        health {
          ok
          recommendation
        }
      }
    }
  }
}`
