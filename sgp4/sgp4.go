// Package sgp4 propagates TLE records to TEME state vectors over a
// uniform time grid. It wraps joshuaferrara/go-satellite rather than
// reimplementing SGP4, adding the batch grid, epoch-age checks, and
// decay exclusion on top of the single-instant propagator.
package sgp4

import (
	"fmt"
	"math"
	"time"

	gosatellite "github.com/joshuaferrara/go-satellite"
	"github.com/sirupsen/logrus"

	"github.com/orbitquant/ntnfeas/constants"
	"github.com/orbitquant/ntnfeas/tle"
)

// TEMEState is one propagated sample: position and velocity in the TEME
// frame, km and km/s.
type TEMEState struct {
	Timestamp time.Time
	Position  [3]float64 // km
	Velocity  [3]float64 // km/s
}

// Satellite is one satellite's ordered TEME time series.
type Satellite struct {
	SatelliteID   string
	Constellation constants.Constellation
	Epoch         time.Time
	Algorithm     string
	States        []TEMEState
}

// Warning describes a non-fatal per-satellite condition raised during
// propagation (stale epoch, predicted decay).
type Warning struct {
	SatelliteID string
	Message     string
}

// Failure describes a satellite excluded from the batch result along with
// why; one satellite's failure never aborts the batch.
type Failure struct {
	SatelliteID string
	Err         error
}

// Result is the S2 stage output: one Satellite per successfully propagated
// TLE, plus warnings and per-satellite failures.
type Result struct {
	Satellites map[string]Satellite
	Warnings   []Warning
	Failures   []Failure
}

const (
	leoAltMinKm     = 200.0
	leoAltMaxKm     = 2000.0
	decayAltitudeKm = 150.0
	epochWarnDays   = 14.0
	epochFailDays   = 30.0
)

// Propagate runs SGP4 for every record in records over n samples of the
// given cadence starting at startUTC. Time samples for a single satellite
// are produced in increasing timestamp order; across satellites no
// ordering is implied by the returned map.
func Propagate(records []tle.Record, startUTC time.Time, cadence time.Duration, n int) Result {
	records = tle.DeduplicateByNORAD(records)
	earthRadiusKm := constants.Default().EarthMeanRadiusKm

	result := Result{Satellites: make(map[string]Satellite, len(records))}

	for _, rec := range records {
		ageDays := startUTC.Sub(rec.Epoch).Hours() / 24.0
		if ageDays > epochFailDays {
			result.Failures = append(result.Failures, Failure{
				SatelliteID: rec.SatelliteID,
				Err:         fmt.Errorf("sgp4: TLE epoch %.1f days old exceeds %g-day fail threshold", ageDays, epochFailDays),
			})
			continue
		}
		if ageDays > epochWarnDays {
			result.Warnings = append(result.Warnings, Warning{
				SatelliteID: rec.SatelliteID,
				Message:     fmt.Sprintf("TLE epoch %.1f days old exceeds %g-day warn threshold", ageDays, epochWarnDays),
			})
		}

		sat := gosatellite.TLEToSat(rec.Line1, rec.Line2, gosatellite.GravityWGS84)

		states := make([]TEMEState, 0, n)
		decayed := false
		for i := 0; i < n; i++ {
			t := startUTC.Add(time.Duration(i) * cadence)
			pos, vel, ok := propagateOne(sat, t)
			if !ok {
				decayed = true
				break
			}
			altKm := vecLen(pos) - earthRadiusKm
			if altKm < decayAltitudeKm {
				decayed = true
				break
			}
			states = append(states, TEMEState{Timestamp: t, Position: pos, Velocity: vel})
		}

		if decayed {
			result.Warnings = append(result.Warnings, Warning{
				SatelliteID: rec.SatelliteID,
				Message:     "predicted altitude fell below 150 km (decay); excluded",
			})
			continue
		}
		if len(states) == 0 {
			result.Failures = append(result.Failures, Failure{
				SatelliteID: rec.SatelliteID,
				Err:         fmt.Errorf("sgp4: no valid samples produced"),
			})
			continue
		}

		result.Satellites[rec.SatelliteID] = Satellite{
			SatelliteID:   rec.SatelliteID,
			Constellation: rec.Constellation,
			Epoch:         rec.Epoch,
			Algorithm:     "SGP4",
			States:        states,
		}
	}

	logrus.WithFields(logrus.Fields{
		"satellites": len(result.Satellites),
		"warnings":   len(result.Warnings),
		"failures":   len(result.Failures),
	}).Info("sgp4: propagation complete")

	return result
}

// propagateOne calls into go-satellite for a single calendar instant. ok is
// false if go-satellite reports a numerical blowup (NaN position), the
// spec's NumericalBlowup condition.
func propagateOne(sat gosatellite.Satellite, t time.Time) (posKm, velKmS [3]float64, ok bool) {
	u := t.UTC()
	pos, vel := gosatellite.Propagate(sat, u.Year(), int(u.Month()), u.Day(), u.Hour(), u.Minute(), u.Second())
	if math.IsNaN(pos.X) || math.IsNaN(pos.Y) || math.IsNaN(pos.Z) {
		return [3]float64{}, [3]float64{}, false
	}
	return [3]float64{pos.X, pos.Y, pos.Z}, [3]float64{vel.X, vel.Y, vel.Z}, true
}

func vecLen(v [3]float64) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}
