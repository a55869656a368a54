package prefilter

import (
	"testing"
	"time"

	"github.com/orbitquant/ntnfeas/constants"
	"github.com/orbitquant/ntnfeas/sgp4"
)

// satAt places a satellite above the given point at time t. The position
// is built in pseudo-ECEF and rotated by +GMST into TEME, the inverse of
// the rotation Keep applies.
func satAt(lat, lon, altKm float64, t time.Time) sgp4.Satellite {
	gs := GroundStation{LatDeg: lat, LonDeg: lon}
	ecef := gsPseudoECEF(gs)
	r := earthRadiusKm + altKm
	scale := r / vecLen(ecef)
	pos := rotateZ([3]float64{ecef[0] * scale, ecef[1] * scale, ecef[2] * scale}, meeusGMSTRad(t))
	return sgp4.Satellite{
		SatelliteID:   "TEST",
		Constellation: constants.Starlink,
		States:        []sgp4.TEMEState{{Timestamp: t, Position: pos}},
	}
}

func TestKeep_DirectlyOverheadPasses(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	gs := GroundStation{LatDeg: 24.9439, LonDeg: 121.3708}
	sat := satAt(24.9439, 121.3708, 550, now)
	if !Keep(sat, gs, DefaultConfig()) {
		t.Fatal("expected overhead satellite to pass the pre-filter")
	}
}

func TestKeep_OppositeSideOfEarthRejected(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	gs := GroundStation{LatDeg: 24.9439, LonDeg: 121.3708}
	sat := satAt(-24.9439, 121.3708-180, 550, now)
	if Keep(sat, gs, DefaultConfig()) {
		t.Fatal("expected antipodal satellite to be rejected")
	}
}

func TestKeep_AltitudeOutsideLEOBandRejected(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	gs := GroundStation{LatDeg: 0, LonDeg: 0}
	sat := satAt(0, 0, 36000, now) // GEO altitude
	if Keep(sat, gs, DefaultConfig()) {
		t.Fatal("expected GEO-altitude satellite to be rejected")
	}
}
