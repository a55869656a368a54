// Package pipelinecfg holds the mandatory, never-defaulted configuration
// the pipeline needs at entry: ground-station location, time grid,
// atmospheric parameters, and signal-core parameters. Every
// mandatory sub-config is a pointer; a nil pointer is reported as
// validate.ErrConfigMissing rather than silently substituted with a
// plausible default.
package pipelinecfg

import (
	"fmt"
	"time"

	"github.com/orbitquant/ntnfeas/analysis"
	"github.com/orbitquant/ntnfeas/signal"
	"github.com/orbitquant/ntnfeas/validate"
	"github.com/orbitquant/ntnfeas/visibility"
)

// GroundStation is the mandatory observer location.
type GroundStation struct {
	LatDeg float64
	LonDeg float64
	AltM   float64
}

// TimeGrid is the mandatory sampling grid for the whole run.
type TimeGrid struct {
	StartUTC    time.Time
	CadenceS    float64
	SampleCount int
}

// Atmospheric holds the mandatory T/P/water-vapor inputs.
type Atmospheric struct {
	TemperatureK  float64
	PressureHPa   float64
	WaterVaporGM3 float64
}

// Config is the full set of run parameters; Validate reports the
// mandatory ones. A zero MinDurationMinutes falls back to 2 minutes in
// visibility.Compute and a zero MaxWorkers to the adaptive pool size in
// worker.Count; an empty OutDir disables file output. CacheDir and
// KeepRecent are not read by package pipeline, which takes its
// *cache.Store from the caller.
type Config struct {
	GroundStation *GroundStation
	TimeGrid      *TimeGrid
	Atmospheric   *Atmospheric
	Signal        *signal.Config
	Scintillation *analysis.ScintillationConfig

	CarrierHz          float64
	MinDurationMinutes float64
	MaxWorkers         int
	CacheDir           string
	KeepRecent         int
	OutDir             string
}

// Validate runs the structural and domain checks before any stage
// touches the config. A nil mandatory sub-config, an
// out-of-range time grid, or an out-of-range atmospheric input is
// reported here rather than discovered mid-pipeline.
func (c Config) Validate() validate.CheckResult {
	var check validate.Check

	if c.GroundStation == nil {
		check.Fail("%v: ground_station", validate.ErrConfigMissing)
	}
	if c.TimeGrid == nil {
		check.Fail("%v: time_grid", validate.ErrConfigMissing)
	} else {
		if c.TimeGrid.CadenceS < 1 || c.TimeGrid.CadenceS > 300 {
			check.Fail("time_grid.cadence_s %v outside [1, 300]", c.TimeGrid.CadenceS)
		}
		if c.TimeGrid.SampleCount <= 0 {
			check.Fail("time_grid.sample_count must be positive, got %d", c.TimeGrid.SampleCount)
		}
	}
	if c.Atmospheric == nil {
		check.Fail("%v: atmospheric", validate.ErrConfigMissing)
	} else {
		if c.Atmospheric.TemperatureK < 200 || c.Atmospheric.TemperatureK > 350 {
			check.Fail("atmospheric.temperature_k %v outside [200, 350]", c.Atmospheric.TemperatureK)
		}
		if c.Atmospheric.PressureHPa < 500 || c.Atmospheric.PressureHPa > 1100 {
			check.Fail("atmospheric.pressure_hpa %v outside [500, 1100]", c.Atmospheric.PressureHPa)
		}
		if c.Atmospheric.WaterVaporGM3 < 0 || c.Atmospheric.WaterVaporGM3 > 30 {
			check.Fail("atmospheric.water_vapor_density_g_m3 %v outside [0, 30]", c.Atmospheric.WaterVaporGM3)
		}
	}
	if c.Signal == nil {
		check.Fail("%v: signal", validate.ErrConfigMissing)
	}
	if c.Scintillation == nil {
		check.Fail("%v: scintillation", validate.ErrConfigMissing)
	}
	if c.CarrierHz <= 0 {
		check.Fail("carrier_hz must be positive, got %v", c.CarrierHz)
	}

	return check.Result()
}

// VisibilityGroundStation adapts the mandatory ground-station config to
// the type package visibility expects.
func (c Config) VisibilityGroundStation() visibility.GroundStation {
	return visibility.GroundStation{LatDeg: c.GroundStation.LatDeg, LonDeg: c.GroundStation.LonDeg, AltM: c.GroundStation.AltM}
}

// AnalysisAtmosphericConfig adapts the mandatory atmospheric config to
// the type package analysis expects.
func (c Config) AnalysisAtmosphericConfig() analysis.AtmosphericConfig {
	return analysis.AtmosphericConfig{
		TemperatureK:  c.Atmospheric.TemperatureK,
		PressureHPa:   c.Atmospheric.PressureHPa,
		WaterVaporGM3: c.Atmospheric.WaterVaporGM3,
	}
}

// String implements a compact human summary for log lines.
func (c Config) String() string {
	return fmt.Sprintf("pipelinecfg.Config{ground_station=%v carrier_hz=%.3e}", c.GroundStation, c.CarrierHz)
}
