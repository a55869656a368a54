// Package frames implements the stage-3 frame transformer:
// TEME → ICRS → ITRS → WGS84, batch-parallel across satellites sharing a
// timestamp. buildRotation composes coord.TEMEToICRF with
// coord.ICRFToITRF — the full precession (IAU 2006), nutation
// (IAU 2000A, 30-term), and frame-bias chain — into one rotation matrix
// per unique sample instant, then transformOne layers the polar-motion
// correction (xp, yp from package iers) on top before the geodetic
// conversion.
//
// The two legs' precession, nutation, and bias matrices are applied
// forward and then back at the same epoch, so they cancel exactly and
// the net rotation equals a single GMST rotation of the TEME position;
// the chain is composed as written anyway so that the net matrix follows
// directly from the two documented transformations rather than from a
// hand-reduced closed form.
package frames

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/orbitquant/ntnfeas/coord"
	"github.com/orbitquant/ntnfeas/iers"
	"github.com/orbitquant/ntnfeas/sgp4"
)

const arcsec2rad = math.Pi / (180.0 * 3600.0)

// WGS84Point is one transformed sample.
type WGS84Point struct {
	Timestamp    time.Time
	LatDeg       float64
	LonDeg       float64
	AltM         float64
	AccuracyM    float64
	ChainTag     string // conversion chain identifier, e.g. "TEME-ICRS-ITRS-WGS84"
	NutationMode string
}

// Satellite is one satellite's transformed time series, carrying the
// upstream constellation and epoch unchanged.
type Satellite struct {
	SatelliteID   string
	Constellation string
	Epoch         time.Time
	Series        []WGS84Point
}

// Result is the S3 stage output.
type Result struct {
	Satellites map[string]Satellite
	CacheUsed  bool
}

// earthRotation holds everything that is constant across satellites for a
// given instant, amortized once per unique timestamp instead of once per
// sample.
type earthRotation struct {
	rot       *mat.Dense // 3x3: TEME → ITRS, polar motion not yet applied
	poleXRad  float64
	poleYRad  float64
	accuracyM float64
}

// Transform runs the frame transform over every satellite's TEME time
// series. eopTable must cover every sample's UTC instant or Transform
// fails fast with iers.ErrHorizonExceeded: no defaulting, no
// extrapolation past the published horizon.
func Transform(satellites map[string]sgp4.Satellite, eopTable *iers.Table) (Result, error) {
	// Pass 1: collect the set of unique timestamps across all satellites
	// and precompute the shared rotation once per timestamp.
	rotCache := make(map[int64]earthRotation)
	for _, sat := range satellites {
		for _, s := range sat.States {
			key := s.Timestamp.UnixNano()
			if _, ok := rotCache[key]; ok {
				continue
			}
			eop, err := eopTable.Lookup(s.Timestamp)
			if err != nil {
				return Result{}, fmt.Errorf("frames: %w", err)
			}
			rotCache[key] = buildRotation(s.Timestamp, eop)
		}
	}

	out := make(map[string]Satellite, len(satellites))
	for id, sat := range satellites {
		series := make([]WGS84Point, 0, len(sat.States))
		for _, s := range sat.States {
			rot := rotCache[s.Timestamp.UnixNano()]
			lat, lon, altKm := transformOne(s.Position, rot)
			series = append(series, WGS84Point{
				Timestamp:    s.Timestamp,
				LatDeg:       lat,
				LonDeg:       lon,
				AltM:         altKm * 1000.0,
				AccuracyM:    rot.accuracyM,
				ChainTag:     "TEME-ICRS-ITRS-WGS84",
				NutationMode: coord.NutationStandard.String(),
			})
		}
		out[id] = Satellite{
			SatelliteID:   id,
			Constellation: string(sat.Constellation),
			Epoch:         sat.Epoch,
			Series:        series,
		}
	}
	return Result{Satellites: out}, nil
}

// buildRotation assembles the shared per-timestamp rotation: TEME → ITRS
// before polar motion. Column i of the matrix is the image of basis
// vector e_i under coord.TEMEToICRF followed by coord.ICRFToITRF, so the
// chain runs once per unique timestamp and is reused across every
// satellite sampled at that instant. UT1 comes from the EOP table's
// authoritative UT1−UTC; TT and TDB come from the leap-second table and
// the Fairhead–Bretagnon term in package iers.
func buildRotation(t time.Time, eop iers.EarthOrientation) earthRotation {
	jdUTC := iers.TimeToJDUTC(t)
	jdTT := iers.UTCToTT(jdUTC)
	jdTDB := jdTT + iers.TDBMinusTT(jdTT)/iers.SecPerDay
	jdUT1 := jdUTC + eop.UT1MinusUTC/iers.SecPerDay

	basis := [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	var cols [3][3]float64
	for i, e := range basis {
		cols[i] = coord.ICRFToITRF(coord.TEMEToICRF(e, jdTDB), jdTDB, jdUT1)
	}
	r := mat.NewDense(3, 3, []float64{
		cols[0][0], cols[1][0], cols[2][0],
		cols[0][1], cols[1][1], cols[2][1],
		cols[0][2], cols[1][2], cols[2][2],
	})

	return earthRotation{
		rot:       r,
		poleXRad:  eop.XpArcsec * arcsec2rad,
		poleYRad:  eop.YpArcsec * arcsec2rad,
		accuracyM: 0.3 + 0.2*math.Min(1.0, math.Abs(eop.XpArcsec)+math.Abs(eop.YpArcsec)),
	}
}

func transformOne(posTEME [3]float64, rot earthRotation) (latDeg, lonDeg, altKm float64) {
	v := mat.NewVecDense(3, []float64{posTEME[0], posTEME[1], posTEME[2]})
	var pseudoITRF mat.VecDense
	pseudoITRF.MulVec(rot.rot, v)

	x, y, z := pseudoITRF.AtVec(0), pseudoITRF.AtVec(1), pseudoITRF.AtVec(2)

	// Polar motion: ITRS = W(xp,yp) * pseudo-ITRF, small-angle form
	// (IERS Conventions 2010, eq. 5.3).
	xITRS := x + rot.poleXRad*z
	yITRS := y - rot.poleYRad*z
	zITRS := -rot.poleXRad*x + rot.poleYRad*y + z

	return coord.ITRFToGeodetic(xITRS, yITRS, zITRS)
}
