// Package prefilter implements a cheap spherical-earth rejection pass
// that discards satellites that cannot possibly be visible, before the
// frame transformer pays for the full IAU rotations. It deliberately
// shares nothing with package frames: a simplified GMST and a spherical
// pseudo-ECEF are all the fast path needs.
package prefilter

import (
	"math"
	"time"

	"github.com/orbitquant/ntnfeas/iers"
	"github.com/orbitquant/ntnfeas/sgp4"
)

// Config holds the pre-filter's loose rejection thresholds.
type Config struct {
	MaxSlantRangeKm      float64
	MinRoughElevationDeg float64
}

// DefaultConfig returns the standard thresholds: 3000 km maximum slant
// range and a -10 degree rough-elevation floor, a safety margin below
// any real connectability threshold.
func DefaultConfig() Config {
	return Config{MaxSlantRangeKm: 3000.0, MinRoughElevationDeg: -10.0}
}

const (
	earthRadiusKm = 6378.137
	leoAltMinKm   = 200.0
	leoAltMaxKm   = 2000.0
)

// GroundStation is the minimal geometry a pre-filter pass needs: geodetic
// coordinates of the observer.
type GroundStation struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

// Keep reports whether a satellite should survive the pre-filter: it is
// retained if ANY of its samples passes all three spherical-earth tests.
// False negatives (wrongly rejecting a satellite) are the worst failure
// mode, so every tolerance here is intentionally loose.
func Keep(sat sgp4.Satellite, gs GroundStation, cfg Config) bool {
	gsECEF := gsPseudoECEF(gs)
	for _, s := range sat.States {
		if !passesOneSample(s.Timestamp, s.Position, gsECEF, cfg) {
			continue
		}
		return true
	}
	return false
}

func passesOneSample(t time.Time, posTEME, gsECEF [3]float64, cfg Config) bool {
	altKm := vecLen(posTEME) - earthRadiusKm
	if altKm < leoAltMinKm || altKm > leoAltMaxKm {
		return false
	}

	// Rotate TEME to a pseudo-ECEF frame using a cheap Meeus GMST — no
	// precession/nutation/polar-motion correction, deliberately so (this
	// is the fast path; package frames does the exact rotation later).
	gmstRad := meeusGMSTRad(t)
	satECEF := rotateZ(posTEME, -gmstRad)

	los := [3]float64{satECEF[0] - gsECEF[0], satECEF[1] - gsECEF[1], satECEF[2] - gsECEF[2]}
	slantKm := vecLen(los)
	if slantKm > cfg.MaxSlantRangeKm {
		return false
	}

	zenith := unit(gsECEF)
	elevDeg := math.Asin(dot(unit(los), zenith)) * 180.0 / math.Pi
	return elevDeg >= cfg.MinRoughElevationDeg
}

// gsPseudoECEF converts the ground station to a spherical-earth ECEF
// position (km), matching the approximation level of this fast path.
func gsPseudoECEF(gs GroundStation) [3]float64 {
	r := earthRadiusKm + gs.AltM/1000.0
	lat := gs.LatDeg * math.Pi / 180.0
	lon := gs.LonDeg * math.Pi / 180.0
	cosLat := math.Cos(lat)
	return [3]float64{
		r * cosLat * math.Cos(lon),
		r * cosLat * math.Sin(lon),
		r * math.Sin(lat),
	}
}

// meeusGMSTRad computes a simplified Greenwich Mean Sidereal Time (Meeus,
// Astronomical Algorithms ch. 12), in radians, cheaper than the full IAU
// GAST this package's callers deliberately avoid paying for here. The
// fast path carries no EOP table, so UT1 is approximated through the
// leap-second and ΔT tables instead of a published UT1−UTC.
func meeusGMSTRad(t time.Time) float64 {
	jdUT1 := iers.TTToUT1(iers.UTCToTT(iers.TimeToJDUTC(t)))
	T := (jdUT1 - 2451545.0) / 36525.0
	gmstDeg := 280.46061837 + 360.98564736629*(jdUT1-2451545.0) +
		0.000387933*T*T - T*T*T/38710000.0
	gmstDeg = math.Mod(gmstDeg, 360.0)
	if gmstDeg < 0 {
		gmstDeg += 360.0
	}
	return gmstDeg * math.Pi / 180.0
}

func rotateZ(v [3]float64, angleRad float64) [3]float64 {
	s, c := math.Sincos(angleRad)
	return [3]float64{c*v[0] - s*v[1], s*v[0] + c*v[1], v[2]}
}

func vecLen(v [3]float64) float64 { return math.Sqrt(dot(v, v)) }
func dot(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func unit(v [3]float64) [3]float64 {
	l := vecLen(v)
	if l == 0 {
		return v
	}
	return [3]float64{v[0] / l, v[1] / l, v[2] / l}
}
