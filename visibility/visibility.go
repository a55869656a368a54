// Package visibility implements the stage-4 visibility calculator:
// ellipsoidal WGS84 topocentric geometry, constellation-aware
// connectability thresholds, and contiguous-window segmentation.
//
// Star-catalog alt/az math treats targets as directions at infinity and
// never subtracts the observer's own position — wrong for a satellite a
// few hundred kilometers overhead. This package therefore works from a
// real ellipsoidal geodetic→ECEF conversion (the same WGS84 constants
// coord.ITRFToGeodetic inverts) and a local east-north-up tangent frame.
package visibility

import (
	"math"
	"time"

	"github.com/orbitquant/ntnfeas/constants"
	"github.com/orbitquant/ntnfeas/frames"
)

// GroundStation is a mandatory geodetic observer position; it must be
// supplied, never defaulted.
type GroundStation struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

// TopoGeometry is one sample's topocentric geometry.
type TopoGeometry struct {
	Timestamp     time.Time
	ElevationDeg  float64
	AzimuthDeg    float64
	SlantRangeKm  float64
	IsConnectable bool
}

// Window is a contiguous run of connectable samples.
type Window struct {
	Start           time.Time
	End             time.Time
	DurationS       float64
	MaxElevationDeg float64
	MinRangeKm      float64
	SampleIndices   []int
}

// Satellite is the S4 output: S3 fields plus per-sample geometry and
// extracted visibility windows.
type Satellite struct {
	SatelliteID   string
	Constellation string
	Epoch         time.Time
	Series        []frames.WGS84Point
	Metrics       []TopoGeometry
	Windows       []Window
}

// Result is the S4 stage output.
type Result struct {
	Satellites map[string]Satellite
}

const defaultMinDurationMinutes = 2.0

// Compute runs the S4 visibility calculation for every S3 satellite
// against a single ground station. minDurationMinutes <= 0 falls back to
// the standard 2.0 minutes. cadenceS is the propagation time-grid sample
// spacing in seconds, used to size window durations off the sample count
// rather than the wall-clock span between the first and last sample.
func Compute(gs GroundStation, satellites map[string]frames.Satellite, minDurationMinutes, cadenceS float64) Result {
	if minDurationMinutes <= 0 {
		minDurationMinutes = defaultMinDurationMinutes
	}
	minDurationS := minDurationMinutes * 60.0

	phys := *constants.Default()
	gsECEF := geodeticToECEF(gs.LatDeg, gs.LonDeg, gs.AltM/1000.0, phys)
	east, north, up := enuBasis(gs.LatDeg, gs.LonDeg)

	out := make(map[string]Satellite, len(satellites))
	for id, sat := range satellites {
		constellation := constants.NormalizeConstellation(sat.Constellation)
		minElevDeg := constants.MinElevationFor(constellation)

		metrics := make([]TopoGeometry, len(sat.Series))
		for i, p := range sat.Series {
			satECEF := geodeticToECEF(p.LatDeg, p.LonDeg, p.AltM/1000.0, phys)
			metrics[i] = topoGeometry(p.Timestamp, gsECEF, satECEF, east, north, up, minElevDeg)
		}

		out[id] = Satellite{
			SatelliteID:   id,
			Constellation: sat.Constellation,
			Epoch:         sat.Epoch,
			Series:        sat.Series,
			Metrics:       metrics,
			Windows:       extractWindows(metrics, minDurationS, cadenceS),
		}
	}
	return Result{Satellites: out}
}

func topoGeometry(t time.Time, gsECEF, satECEF, east, north, up [3]float64, minElevDeg float64) TopoGeometry {
	los := sub(satECEF, gsECEF)
	slantKm := length(los)
	if slantKm == 0 {
		return TopoGeometry{Timestamp: t, IsConnectable: false}
	}
	losUnit := scale(los, 1.0/slantKm)

	e := dot(losUnit, east)
	n := dot(losUnit, north)
	u := dot(losUnit, up)

	elevDeg := math.Asin(clamp(u, -1, 1)) * 180.0 / math.Pi
	azDeg := math.Atan2(e, n) * 180.0 / math.Pi
	if azDeg < 0 {
		azDeg += 360.0
	}

	return TopoGeometry{
		Timestamp:     t,
		ElevationDeg:  elevDeg,
		AzimuthDeg:    azDeg,
		SlantRangeKm:  slantKm,
		IsConnectable: elevDeg >= minElevDeg,
	}
}

// extractWindows walks metrics in order and closes a window every time
// is_connectable toggles off, discarding any window shorter than
// minDurationS. Duration is sample count times cadence,
// not the wall-clock span between the first and last sample's
// timestamps — an N-sample window covers N cadence periods, not N-1.
func extractWindows(metrics []TopoGeometry, minDurationS, cadenceS float64) []Window {
	var windows []Window
	var openStart int = -1

	closeWindow := func(endIdx int) {
		if openStart < 0 {
			return
		}
		start := metrics[openStart].Timestamp
		end := metrics[endIdx].Timestamp
		duration := float64(endIdx-openStart+1) * cadenceS
		if duration >= minDurationS {
			w := Window{Start: start, End: end, DurationS: duration}
			w.MaxElevationDeg = metrics[openStart].ElevationDeg
			w.MinRangeKm = metrics[openStart].SlantRangeKm
			for i := openStart; i <= endIdx; i++ {
				w.SampleIndices = append(w.SampleIndices, i)
				if metrics[i].ElevationDeg > w.MaxElevationDeg {
					w.MaxElevationDeg = metrics[i].ElevationDeg
				}
				if metrics[i].SlantRangeKm < w.MinRangeKm {
					w.MinRangeKm = metrics[i].SlantRangeKm
				}
			}
			windows = append(windows, w)
		}
		openStart = -1
	}

	for i, m := range metrics {
		switch {
		case m.IsConnectable && openStart < 0:
			openStart = i
		case !m.IsConnectable && openStart >= 0:
			closeWindow(i - 1)
		}
	}
	if openStart >= 0 {
		closeWindow(len(metrics) - 1)
	}
	return windows
}

// GeodeticToECEFKm converts WGS84 geodetic coordinates (degrees, km
// altitude) to ECEF (km). Exported so other stages (the Doppler
// composition step in package analysis) can place a ground station in
// the same ellipsoidal ECEF frame this package uses, without
// duplicating the ellipsoid algebra.
func GeodeticToECEFKm(latDeg, lonDeg, altKm float64) [3]float64 {
	return geodeticToECEF(latDeg, lonDeg, altKm, *constants.Default())
}

// geodeticToECEF converts WGS84 geodetic coordinates to ECEF (km), using
// the real ellipsoid, not the spherical approximation package prefilter
// uses for its cheap rejection pass.
func geodeticToECEF(latDeg, lonDeg, altKm float64, phys constants.Physics) [3]float64 {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	a := phys.WGS84SemiMajorKm
	e2 := phys.WGS84EccentricitySq
	N := a / math.Sqrt(1.0-e2*sinLat*sinLat)

	return [3]float64{
		(N + altKm) * cosLat * cosLon,
		(N + altKm) * cosLat * sinLon,
		(N*(1.0-e2) + altKm) * sinLat,
	}
}

func enuBasis(latDeg, lonDeg float64) (east, north, up [3]float64) {
	lat := latDeg * math.Pi / 180.0
	lon := lonDeg * math.Pi / 180.0
	sinLat, cosLat := math.Sincos(lat)
	sinLon, cosLon := math.Sincos(lon)

	east = [3]float64{-sinLon, cosLon, 0}
	north = [3]float64{-sinLat * cosLon, -sinLat * sinLon, cosLat}
	up = [3]float64{cosLat * cosLon, cosLat * sinLon, sinLat}
	return
}

func sub(a, b [3]float64) [3]float64           { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func scale(a [3]float64, s float64) [3]float64 { return [3]float64{a[0] * s, a[1] * s, a[2] * s} }
func dot(a, b [3]float64) float64              { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func length(a [3]float64) float64              { return math.Sqrt(dot(a, a)) }
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
