// Package constants holds the shared physical and ellipsoid constants in
// a *Physics value initialized once at process start. Not every package
// reads them from here: coord keeps its own WGS84 ellipsoid literals,
// prefilter its own 6378.137 km Earth radius, signal its own Boltzmann
// constant, and pipeline its own speed of light in km/s.
package constants

import (
	"math"
	"strings"
)

// Physics holds the CODATA/WGS84/IAU constants shared by every stage.
// Construct once with Default() and pass the pointer down; it is immutable
// after construction so workers may read it without locking.
type Physics struct {
	// SpeedOfLightMS is the exact defined speed of light, m/s.
	SpeedOfLightMS float64
	// BoltzmannJK is the Boltzmann constant, J/K (CODATA 2019 exact value).
	BoltzmannJK float64

	// WGS84SemiMajorKm is the WGS84 ellipsoid equatorial radius, km.
	WGS84SemiMajorKm float64
	// WGS84Flattening is the WGS84 ellipsoid flattening 1/298.257223563.
	WGS84Flattening float64
	// WGS84EccentricitySq is the WGS84 first eccentricity squared, derived.
	WGS84EccentricitySq float64

	// EarthMeanRadiusKm is the mean spherical Earth radius used by the
	// SGP4 stage's decay-altitude check, km.
	EarthMeanRadiusKm float64

	// J2000JD is the Julian date of the J2000.0 epoch.
	J2000JD float64
	// SecPerDay is the number of SI seconds in a day.
	SecPerDay float64
}

// Default returns the standard CODATA 2018/2022 + WGS84 + IAU constant set.
func Default() *Physics {
	f := 1.0 / 298.257223563
	return &Physics{
		SpeedOfLightMS:      299792458.0,
		BoltzmannJK:         1.380649e-23,
		WGS84SemiMajorKm:    6378.137,
		WGS84Flattening:     f,
		WGS84EccentricitySq: f * (2.0 - f),
		EarthMeanRadiusKm:   6371.0,
		J2000JD:             2451545.0,
		SecPerDay:           86400.0,
	}
}

// LEOAltitudeBandKm is the [min, max] altitude band (km) defining LEO for
// this pipeline's purposes.
var LEOAltitudeBandKm = [2]float64{200.0, 2000.0}

// ConstellationThreshold is one row of the fixed, non-configurable
// per-constellation elevation/period table.
type ConstellationThreshold struct {
	MinElevationDeg   float64
	TargetSatsMin     int
	TargetSatsMax     int
	OrbitalPeriodMinM float64
	OrbitalPeriodMaxM float64
}

// Constellation identifies a satellite's parent mega-constellation.
type Constellation string

const (
	Starlink           Constellation = "starlink"
	OneWeb             Constellation = "oneweb"
	OtherConstellation Constellation = "other"
)

// Thresholds is the constellation-aware elevation/period table. It is a
// fixed table, not configurable ad-hoc.
var Thresholds = map[Constellation]ConstellationThreshold{
	Starlink: {MinElevationDeg: 5.0, TargetSatsMin: 10, TargetSatsMax: 15, OrbitalPeriodMinM: 90, OrbitalPeriodMaxM: 95},
	OneWeb:   {MinElevationDeg: 10.0, TargetSatsMin: 3, TargetSatsMax: 6, OrbitalPeriodMinM: 109, OrbitalPeriodMaxM: 115},
}

// DefaultThreshold is used for any constellation not present in Thresholds.
var DefaultThreshold = ConstellationThreshold{MinElevationDeg: 10.0, TargetSatsMin: 5, TargetSatsMax: 10, OrbitalPeriodMinM: 90, OrbitalPeriodMaxM: 120}

// MinElevationFor returns the minimum connectable elevation for the given
// constellation, falling back to DefaultThreshold for anything unrecognized.
func MinElevationFor(c Constellation) float64 {
	if t, ok := Thresholds[c]; ok {
		return t.MinElevationDeg
	}
	return DefaultThreshold.MinElevationDeg
}

// NormalizeConstellation maps a free-form constellation name (as it might
// appear in a TLE catalog comment or name field) onto the fixed enum.
func NormalizeConstellation(name string) Constellation {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "starlink"):
		return Starlink
	case strings.Contains(lower, "oneweb"):
		return OneWeb
	default:
		return OtherConstellation
	}
}

// OrbitPredictionErrorGrowth estimates SGP4 prediction-error growth (in
// seconds of equivalent timing error) as a function of TLE age in days.
// The factor steps up with age to 10x at 30 days and grows linearly, by
// 2 per day, past the 30-day staleness threshold.
func OrbitPredictionErrorGrowth(basePrecisionSeconds, ageDays float64) float64 {
	var factor float64
	switch {
	case ageDays <= 1:
		factor = 1.0
	case ageDays <= 3:
		factor = 1.5
	case ageDays <= 7:
		factor = 2.5
	case ageDays <= 14:
		factor = 5.0
	case ageDays <= 30:
		factor = 10.0
	default:
		factor = 10.0 + (ageDays-30)*2.0
	}
	return basePrecisionSeconds * factor
}

// Deg2Rad and Rad2Deg are the shared angle-conversion factors.
const (
	Deg2Rad = math.Pi / 180.0
	Rad2Deg = 180.0 / math.Pi
)
