package frames

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/orbitquant/ntnfeas/iers"
	"github.com/orbitquant/ntnfeas/sgp4"
)

func eopTableCovering(start time.Time) *iers.Table {
	var rows []iers.EarthOrientation
	for i := -2; i <= 2; i++ {
		rows = append(rows, iers.EarthOrientation{
			UTC:         start.AddDate(0, 0, i),
			XpArcsec:    0.12,
			YpArcsec:    0.25,
			UT1MinusUTC: -0.03,
		})
	}
	return iers.NewTable(rows)
}

// equatorialSat places one synthetic satellite at 550 km over the equator
// for n samples a minute apart.
func equatorialSat(start time.Time, n int) map[string]sgp4.Satellite {
	states := make([]sgp4.TEMEState, n)
	for i := range states {
		states[i] = sgp4.TEMEState{
			Timestamp: start.Add(time.Duration(i) * time.Minute),
			Position:  [3]float64{6928.137, 0, 0},
			Velocity:  [3]float64{0, 7.6, 0},
		}
	}
	return map[string]sgp4.Satellite{
		"SAT1": {
			SatelliteID:   "SAT1",
			Constellation: "starlink",
			Epoch:         start,
			States:        states,
		},
	}
}

func TestTransform_ProducesLEOBandGeodetics(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := Transform(equatorialSat(start, 5), eopTableCovering(start))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}

	sat, ok := result.Satellites["SAT1"]
	if !ok {
		t.Fatal("satellite missing from result")
	}
	if len(sat.Series) != 5 {
		t.Fatalf("expected 5 points, got %d", len(sat.Series))
	}
	for i, p := range sat.Series {
		if p.LatDeg < -90 || p.LatDeg > 90 {
			t.Errorf("point %d: latitude %v outside [-90, 90]", i, p.LatDeg)
		}
		if p.LonDeg <= -180 || p.LonDeg > 180 {
			t.Errorf("point %d: longitude %v outside (-180, 180]", i, p.LonDeg)
		}
		if p.AltM < 200e3 || p.AltM > 2e6 {
			t.Errorf("point %d: altitude %v m outside LEO band", i, p.AltM)
		}
		if math.IsNaN(p.LatDeg) || math.IsNaN(p.LonDeg) || math.IsNaN(p.AltM) {
			t.Errorf("point %d: NaN in output", i)
		}
	}
}

func TestTransform_EquatorialPositionNearZeroLatitude(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := Transform(equatorialSat(start, 1), eopTableCovering(start))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	p := result.Satellites["SAT1"].Series[0]
	// A TEME position on the equatorial plane stays near the equator after
	// the Earth-rotation and polar-motion corrections (both sub-arcsec in
	// latitude here).
	if math.Abs(p.LatDeg) > 0.1 {
		t.Errorf("expected near-zero latitude for an equatorial position, got %v", p.LatDeg)
	}
	if math.Abs(p.AltM-550e3) > 10e3 {
		t.Errorf("expected ~550 km altitude, got %v m", p.AltM)
	}
}

func TestTransform_AccuracyEstimateWithinBound(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := Transform(equatorialSat(start, 3), eopTableCovering(start))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	for i, p := range result.Satellites["SAT1"].Series {
		if p.AccuracyM <= 0 || p.AccuracyM > 50 {
			t.Errorf("point %d: accuracy estimate %v m outside (0, 50]", i, p.AccuracyM)
		}
		if p.ChainTag != "TEME-ICRS-ITRS-WGS84" {
			t.Errorf("point %d: chain tag %q", i, p.ChainTag)
		}
	}
}

func TestTransform_Deterministic(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	sats := equatorialSat(start, 4)
	eop := eopTableCovering(start)

	r1, err := Transform(sats, eop)
	if err != nil {
		t.Fatalf("first Transform: %v", err)
	}
	r2, err := Transform(sats, eop)
	if err != nil {
		t.Fatalf("second Transform: %v", err)
	}
	for i := range r1.Satellites["SAT1"].Series {
		a := r1.Satellites["SAT1"].Series[i]
		b := r2.Satellites["SAT1"].Series[i]
		if a.LatDeg != b.LatDeg || a.LonDeg != b.LonDeg || a.AltM != b.AltM {
			t.Fatalf("point %d differs across identical runs: %+v vs %+v", i, a, b)
		}
	}
}

func TestTransform_HorizonExceededFailsFast(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	// Table ends two days after start; the last sample lands beyond it.
	sats := equatorialSat(start.AddDate(0, 0, 3), 2)
	_, err := Transform(sats, eopTableCovering(start))
	if !errors.Is(err, iers.ErrHorizonExceeded) {
		t.Fatalf("expected ErrHorizonExceeded, got %v", err)
	}
}

func TestTransform_EmptyInputIsEmptyResult(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := Transform(nil, eopTableCovering(start))
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if len(result.Satellites) != 0 {
		t.Fatalf("expected empty result, got %d satellites", len(result.Satellites))
	}
}
