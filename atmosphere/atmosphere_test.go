package atmosphere

import (
	"errors"
	"math"
	"testing"
)

func TestGaseousAttenuationDB_BelowHorizonIsSentinel(t *testing.T) {
	cfg := GaseousConfig{FrequencyGHz: 20, ElevationDeg: -5, TemperatureK: 288, PressureHPa: 1013, WaterVaporGM3: 7.5}
	got, err := GaseousAttenuationDB(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != BlockedByEarthDB {
		t.Errorf("expected sentinel %v, got %v", BlockedByEarthDB, got)
	}
}

func TestGaseousAttenuationDB_MissingTemperatureFails(t *testing.T) {
	cfg := GaseousConfig{FrequencyGHz: 20, ElevationDeg: 30, PressureHPa: 1013, WaterVaporGM3: 7.5}
	_, err := GaseousAttenuationDB(cfg)
	if !errors.Is(err, ErrMissingAtmosphericInput) {
		t.Fatalf("expected ErrMissingAtmosphericInput, got %v", err)
	}
}

func TestGaseousAttenuationDB_PositiveAndFinite(t *testing.T) {
	cfg := GaseousConfig{FrequencyGHz: 20, ElevationDeg: 30, TemperatureK: 288, PressureHPa: 1013, WaterVaporGM3: 7.5}
	got, err := GaseousAttenuationDB(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got <= 0 || math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("expected a finite positive attenuation, got %v", got)
	}
}

func TestGaseousAttenuationDB_LowerElevationAttenuatesMore(t *testing.T) {
	base := GaseousConfig{FrequencyGHz: 20, TemperatureK: 288, PressureHPa: 1013, WaterVaporGM3: 7.5}
	high, _ := GaseousAttenuationDB(GaseousConfig{FrequencyGHz: base.FrequencyGHz, ElevationDeg: 60, TemperatureK: base.TemperatureK, PressureHPa: base.PressureHPa, WaterVaporGM3: base.WaterVaporGM3})
	low, _ := GaseousAttenuationDB(GaseousConfig{FrequencyGHz: base.FrequencyGHz, ElevationDeg: 10, TemperatureK: base.TemperatureK, PressureHPa: base.PressureHPa, WaterVaporGM3: base.WaterVaporGM3})
	if low <= high {
		t.Errorf("expected lower elevation to attenuate more: high=%v low=%v", high, low)
	}
}

func TestScintillationAttenuationDB_ClampsOutOfRangeWithWarning(t *testing.T) {
	cfg := ScintillationConfig{
		LatDeg: 25, LonDeg: 121, ElevationDeg: 2, FrequencyGHz: 30,
		AntennaDiameterM: 0.6, AntennaEfficiency: 0.65, PercentTime: 0.001,
	}
	result := ScintillationAttenuationDB(cfg)
	if len(result.Warnings) == 0 {
		t.Error("expected clamp warnings for out-of-range elevation/frequency/percent_time")
	}
	if result.AttenuationDB <= 0 {
		t.Errorf("expected positive scintillation attenuation, got %v", result.AttenuationDB)
	}
}

func TestScintillationAttenuationDB_InRangeNoWarnings(t *testing.T) {
	cfg := ScintillationConfig{
		LatDeg: 25, LonDeg: 121, ElevationDeg: 30, FrequencyGHz: 12,
		AntennaDiameterM: 0.6, AntennaEfficiency: 0.65, PercentTime: 0.1,
	}
	result := ScintillationAttenuationDB(cfg)
	if len(result.Warnings) != 0 {
		t.Errorf("expected no warnings for in-range inputs, got %v", result.Warnings)
	}
}
