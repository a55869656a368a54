// Package doppler implements the Doppler calculator (C10): radial
// velocity from the S2 TEME velocity vector, and the classical-versus-
// relativistic Doppler shift split at |beta| < 0.1.
package doppler

import (
	"math"

	"github.com/orbitquant/ntnfeas/constants"
)

// Result is one Doppler computation's output.
type Result struct {
	RadialVelocityKmS float64
	ShiftHz           float64
	Warning           string
}

const minSeparationKm = 0.001 // 1 m, below which the direction is undefined

// Compute returns the radial velocity and carrier Doppler shift for a
// satellite at posSatKm with velocity velSatKmS, observed from posObsKm,
// on a carrier of carrierHz. Separation below 1 m returns zeros with a
// warning rather than dividing by zero.
func Compute(posSatKm, velSatKmS, posObsKm [3]float64, carrierHz float64, phys *constants.Physics) Result {
	los := sub(posSatKm, posObsKm)
	rangeKm := length(los)
	if rangeKm < minSeparationKm {
		return Result{Warning: "satellite-observer separation below 1 m; Doppler undefined, returning zero"}
	}
	losUnit := scale(los, 1.0/rangeKm)

	vr := dot(velSatKmS, losUnit) // km/s, positive = receding

	c := phys.SpeedOfLightMS / 1000.0 // km/s
	beta := vr / c

	// fracShift is negative for a receding satellite (redshift, lower
	// observed frequency): classical -beta matches the relativistic
	// branch's sign and small-beta limit, sqrt((1-beta)/(1+beta))-1 ~ -beta.
	var fracShift float64
	if math.Abs(beta) < 0.1 {
		fracShift = -beta
	} else {
		fracShift = math.Sqrt((1-beta)/(1+beta)) - 1.0
	}

	return Result{RadialVelocityKmS: vr, ShiftHz: fracShift * carrierHz}
}

func sub(a, b [3]float64) [3]float64           { return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func scale(a [3]float64, s float64) [3]float64 { return [3]float64{a[0] * s, a[1] * s, a[2] * s} }
func dot(a, b [3]float64) float64              { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func length(a [3]float64) float64              { return math.Sqrt(dot(a, a)) }
