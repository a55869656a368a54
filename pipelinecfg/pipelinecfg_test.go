package pipelinecfg

import (
	"testing"
	"time"

	"github.com/orbitquant/ntnfeas/analysis"
	"github.com/orbitquant/ntnfeas/signal"
)

func validConfig() Config {
	return Config{
		GroundStation: &GroundStation{LatDeg: 24.9, LonDeg: 121.3, AltM: 20},
		TimeGrid:      &TimeGrid{StartUTC: time.Now().UTC(), CadenceS: 30, SampleCount: 120},
		Atmospheric:   &Atmospheric{TemperatureK: 288, PressureHPa: 1013, WaterVaporGM3: 7.5},
		Signal: &signal.Config{
			BandwidthMHz: 20, SubcarrierSpacingKHz: 15, NoiseFigureDB: 7,
			TemperatureK: 290, TxPowerDBm: 43, TxGainDB: 30, RxGainDB: 35, FrequencyGHz: 12,
		},
		Scintillation: &analysis.ScintillationConfig{AntennaDiameterM: 0.6, AntennaEfficiency: 0.65, PercentTime: 0.1},
		CarrierHz:     12e9,
	}
}

func TestValidate_NilScintillationFails(t *testing.T) {
	cfg := validConfig()
	cfg.Scintillation = nil
	r := cfg.Validate()
	if r.Valid {
		t.Fatal("expected invalid config with nil scintillation parameters")
	}
}

func TestValidate_CompleteConfigPasses(t *testing.T) {
	r := validConfig().Validate()
	if !r.Valid {
		t.Fatalf("expected valid config, got errors: %v", r.Errors)
	}
}

func TestValidate_NilGroundStationFails(t *testing.T) {
	cfg := validConfig()
	cfg.GroundStation = nil
	r := cfg.Validate()
	if r.Valid {
		t.Fatal("expected invalid config with nil ground station")
	}
}

func TestValidate_CadenceOutOfRangeFails(t *testing.T) {
	cfg := validConfig()
	cfg.TimeGrid.CadenceS = 500
	r := cfg.Validate()
	if r.Valid {
		t.Fatal("expected invalid config with cadence > 300s")
	}
}

func TestValidate_TemperatureOutOfRangeFails(t *testing.T) {
	cfg := validConfig()
	cfg.Atmospheric.TemperatureK = 1000
	r := cfg.Validate()
	if r.Valid {
		t.Fatal("expected invalid config with out-of-range temperature")
	}
}
