// Package analysis implements the stage-5 time-series analyzer:
// per-sample composition of geometry, atmosphere, Doppler, and the link
// budget into signal samples, plus the per-satellite summary
// (average/peak RSRP, quality-distribution bucketing).
package analysis

import (
	"math"
	"time"

	"github.com/orbitquant/ntnfeas/atmosphere"
	"github.com/orbitquant/ntnfeas/constants"
	"github.com/orbitquant/ntnfeas/coord"
	"github.com/orbitquant/ntnfeas/doppler"
	"github.com/orbitquant/ntnfeas/iers"
	"github.com/orbitquant/ntnfeas/sgp4"
	"github.com/orbitquant/ntnfeas/signal"
	"github.com/orbitquant/ntnfeas/visibility"
)

// Sample is one connectable sample's combined geometry and signal
// quality (S5's per-sample payload).
type Sample struct {
	Timestamp    time.Time
	ElevationDeg float64
	AzimuthDeg   float64
	SlantRangeKm float64
	signal.Sample
}

// Summary is the per-satellite rollup over all connectable samples.
type Summary struct {
	AvgRSRPdBm          float64
	PeakRSRPdBm         float64
	QualityDistribution map[string]int
}

// Satellite is the S5 output for one satellite.
type Satellite struct {
	SatelliteID   string
	Constellation string
	Series        []Sample
	Windows       []visibility.Window
	Summary       Summary
}

// Result is the S5 stage output.
type Result struct {
	Satellites map[string]Satellite
}

// AtmosphericConfig holds the mandatory T/P/rho_w inputs shared across a
// run: no per-sample defaults, one config for the whole pipeline
// invocation.
type AtmosphericConfig struct {
	TemperatureK  float64
	PressureHPa   float64
	WaterVaporGM3 float64
}

// ScintillationConfig holds the per-run antenna/percent-time parameters.
type ScintillationConfig struct {
	AntennaDiameterM  float64
	AntennaEfficiency float64
	PercentTime       float64
}

// Compose runs the per-sample composition for one satellite: for every
// connectable visibility sample, compute atmospheric and scintillation
// attenuation, the Doppler shift from the carried-through TEME velocity,
// and the link budget, then assemble a Sample. Samples with
// is_connectable = false are omitted entirely.
func Compose(
	visSat visibility.Satellite,
	temeSat sgp4.Satellite,
	gs visibility.GroundStation,
	sigCfg signal.Config,
	atmosCfg AtmosphericConfig,
	scintCfg ScintillationConfig,
	carrierHz float64,
) (Satellite, []string) {
	var warnings []string
	phys := constants.Default()

	gsECEFKm := visibility.GeodeticToECEFKm(gs.LatDeg, gs.LonDeg, gs.AltM/1000.0)

	series := make([]Sample, 0, len(visSat.Metrics))
	for i, geom := range visSat.Metrics {
		if !geom.IsConnectable {
			continue
		}

		gaseousDB, err := atmosphere.GaseousAttenuationDB(atmosphere.GaseousConfig{
			FrequencyGHz:  sigCfg.FrequencyGHz,
			ElevationDeg:  geom.ElevationDeg,
			TemperatureK:  atmosCfg.TemperatureK,
			PressureHPa:   atmosCfg.PressureHPa,
			WaterVaporGM3: atmosCfg.WaterVaporGM3,
		})
		if err != nil {
			warnings = append(warnings, "skipping sample: "+err.Error())
			continue
		}

		scint := atmosphere.ScintillationAttenuationDB(atmosphere.ScintillationConfig{
			LatDeg:            gs.LatDeg,
			LonDeg:            gs.LonDeg,
			ElevationDeg:      geom.ElevationDeg,
			FrequencyGHz:      sigCfg.FrequencyGHz,
			AntennaDiameterM:  scintCfg.AntennaDiameterM,
			AntennaEfficiency: scintCfg.AntennaEfficiency,
			PercentTime:       scintCfg.PercentTime,
		})
		warnings = append(warnings, scint.Warnings...)

		var dopplerHz float64
		if i < len(temeSat.States) {
			state := temeSat.States[i]
			obsTEME := observerPseudoTEME(gsECEFKm, state.Timestamp)
			dop := doppler.Compute(state.Position, state.Velocity, obsTEME, carrierHz, phys)
			if dop.Warning != "" {
				warnings = append(warnings, dop.Warning)
			}
			dopplerHz = dop.ShiftHz
		}

		sample, err := signal.Compute(sigCfg, geom.SlantRangeKm, geom.ElevationDeg, gaseousDB, scint.AttenuationDB, dopplerHz)
		if err != nil {
			warnings = append(warnings, "skipping sample: "+err.Error())
			continue
		}

		series = append(series, Sample{
			Timestamp:    geom.Timestamp,
			ElevationDeg: geom.ElevationDeg,
			AzimuthDeg:   geom.AzimuthDeg,
			SlantRangeKm: geom.SlantRangeKm,
			Sample:       sample,
		})
	}

	return Satellite{
		SatelliteID:   visSat.SatelliteID,
		Constellation: visSat.Constellation,
		Series:        series,
		Windows:       visSat.Windows,
		Summary:       summarize(series),
	}, warnings
}

// observerPseudoTEME rotates an ECEF ground-station position into an
// approximate TEME frame using the same cheap Meeus GMST approximation
// package prefilter uses for its fast rejection pass (no precession,
// nutation, or polar motion) — consistent enough with the SGP4 TEME
// position for a Doppler radial-velocity dot product, since Earth
// rotation's ~0.46 km/s equatorial speed is two orders of magnitude
// below LEO orbital velocity.
func observerPseudoTEME(gsECEFKm [3]float64, t time.Time) [3]float64 {
	jdUT1 := iers.TTToUT1(iers.UTCToTT(iers.TimeToJDUTC(t)))
	gmstRad := coord.GMST(jdUT1) * math.Pi / 180.0
	s, c := math.Sincos(gmstRad)
	return [3]float64{
		c*gsECEFKm[0] - s*gsECEFKm[1],
		s*gsECEFKm[0] + c*gsECEFKm[1],
		gsECEFKm[2],
	}
}

func summarize(series []Sample) Summary {
	dist := map[string]int{"excellent": 0, "good": 0, "fair": 0, "poor": 0}
	if len(series) == 0 {
		return Summary{QualityDistribution: dist}
	}
	var sum, peak float64
	peak = series[0].RSRPdBm
	for _, s := range series {
		sum += s.RSRPdBm
		if s.RSRPdBm > peak {
			peak = s.RSRPdBm
		}
		bucket(s.RSRPdBm, dist)
	}
	return Summary{
		AvgRSRPdBm:          sum / float64(len(series)),
		PeakRSRPdBm:         peak,
		QualityDistribution: dist,
	}
}

func bucket(rsrpDBm float64, dist map[string]int) {
	switch {
	case rsrpDBm >= -70:
		dist["excellent"]++
	case rsrpDBm >= -85:
		dist["good"]++
	case rsrpDBm >= -100:
		dist["fair"]++
	default:
		dist["poor"]++
	}
}
