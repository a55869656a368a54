// Package signal implements the 3GPP TS 38.214/38.215 link budget:
// Friis path loss, Johnson–Nyquist noise floor, and the RSRP/RSRQ/SINR
// measurement chain with the TS 38.215 reporting clamps.
package signal

import (
	"errors"
	"fmt"
	"math"
)

// ErrMissingSignalInput marks a Config with a mandatory field left at its
// zero value; none of the link-budget inputs have defaults.
var ErrMissingSignalInput = errors.New("signal: mandatory parameter missing")

// Config holds the mandatory link-budget inputs. None of these are
// defaulted; Compute returns ErrMissingSignalInput if any required field
// is left at zero.
type Config struct {
	BandwidthMHz         float64
	SubcarrierSpacingKHz float64
	NoiseFigureDB        float64
	TemperatureK         float64
	TxPowerDBm           float64
	TxGainDB             float64
	RxGainDB             float64
	FrequencyGHz         float64
	SatelliteDensity     float64 // satellites per visible sky patch, for the interference model
}

func (c Config) validate() error {
	switch {
	case c.BandwidthMHz <= 0:
		return fmt.Errorf("%w: bandwidth_mhz", ErrMissingSignalInput)
	case c.SubcarrierSpacingKHz <= 0:
		return fmt.Errorf("%w: subcarrier_spacing_khz", ErrMissingSignalInput)
	case c.TemperatureK <= 0:
		return fmt.Errorf("%w: temperature_k", ErrMissingSignalInput)
	case c.FrequencyGHz <= 0:
		return fmt.Errorf("%w: frequency_ghz", ErrMissingSignalInput)
	}
	return nil
}

// Sample is one connectable sample's signal quality, clamped per 3GPP
// TS 38.215.
type Sample struct {
	RSRPdBm         float64
	RSRQdB          float64
	SINRdB          float64
	RSSIdBm         float64
	NoiseDBm        float64
	InterferenceDBm float64
	PathLossDB      float64
	AtmosDB         float64
	DopplerHz       float64
}

const boltzmannJK = 1.380649e-23
const interferenceToSignalDB = -15.0 // ITU-R S.1503-3 measured median

// NoiseFloorDBm is the Johnson–Nyquist thermal noise floor:
// N_dBm = 10*log10(k*T*B*1000) + NF.
func NoiseFloorDBm(temperatureK, bandwidthHz, noiseFigureDB float64) float64 {
	return 10*math.Log10(boltzmannJK*temperatureK*bandwidthHz*1000) + noiseFigureDB
}

// FreeSpacePathLossDB is the Friis path loss (ITU-R P.525-4):
// FSPL_dB = 92.45 + 20*log10(f_GHz) + 20*log10(d_km).
func FreeSpacePathLossDB(frequencyGHz, distanceKm float64) float64 {
	return 92.45 + 20*math.Log10(frequencyGHz) + 20*math.Log10(distanceKm)
}

// numResourceBlocks derives N_RB per TS 38.211: (BW_kHz - 2*guard_kHz) /
// (12*SCS_kHz), floored to a whole block. The guard band is the fixed
// 1500 kHz per edge from TS 38.101-1 Table 5.3.2-1.
func numResourceBlocks(bandwidthMHz, subcarrierSpacingKHz float64) float64 {
	const guardBandKHz = 1500.0
	bwKHz := bandwidthMHz * 1000.0
	return math.Floor((bwKHz - 2*guardBandKHz) / (12.0 * subcarrierSpacingKHz))
}

func interferenceDBm(rsrpDBm, elevationDeg, satelliteDensity float64) float64 {
	elevationPenalty := 0.0
	if elevationDeg < 10 {
		elevationPenalty = 5.0 * (10.0 - elevationDeg) / 10.0
	}
	densityFactor := 0.0
	if satelliteDensity > 0 {
		densityFactor = 10 * math.Log10(satelliteDensity)
	}
	return rsrpDBm + interferenceToSignalDB + elevationPenalty + densityFactor
}

func dbmToMW(dbm float64) float64 { return math.Pow(10, dbm/10) }
func mwToDBm(mw float64) float64  { return 10 * math.Log10(mw) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Compute assembles one SignalSample from the link-budget inputs: the
// geometry (distanceKm, elevationDeg) from S4, the atmospheric and
// scintillation attenuation from C8/C9, and the Doppler shift from C10.
func Compute(cfg Config, distanceKm, elevationDeg, atmosDB, scintillationDB, dopplerHz float64) (Sample, error) {
	if err := cfg.validate(); err != nil {
		return Sample{}, err
	}

	pathLossDB := FreeSpacePathLossDB(cfg.FrequencyGHz, distanceKm)

	rsrpDBm := cfg.TxPowerDBm + cfg.TxGainDB + cfg.RxGainDB - pathLossDB - atmosDB - scintillationDB
	rsrpDBm = clamp(rsrpDBm, -140, -44)
	rsrpMW := dbmToMW(rsrpDBm)

	nRB := numResourceBlocks(cfg.BandwidthMHz, cfg.SubcarrierSpacingKHz)

	noiseDBm := NoiseFloorDBm(cfg.TemperatureK, cfg.BandwidthMHz*1e6, cfg.NoiseFigureDB)
	noiseMW := dbmToMW(noiseDBm)

	interferenceDBmVal := interferenceDBm(rsrpDBm, elevationDeg, cfg.SatelliteDensity)
	interferenceMW := dbmToMW(interferenceDBmVal)

	rssiMW := 12*nRB*rsrpMW + interferenceMW + noiseMW
	rssiDBm := mwToDBm(rssiMW)

	rsrqDB := 10 * math.Log10(nRB*rsrpMW/rssiMW)
	rsrqDB = clamp(rsrqDB, -34, 2.5)

	sinrDB := 10 * math.Log10(rsrpMW/(interferenceMW+noiseMW))
	sinrDB = clamp(sinrDB, -23, 40)

	return Sample{
		RSRPdBm:         rsrpDBm,
		RSRQdB:          rsrqDB,
		SINRdB:          sinrDB,
		RSSIdBm:         rssiDBm,
		NoiseDBm:        noiseDBm,
		InterferenceDBm: interferenceDBmVal,
		PathLossDB:      pathLossDB,
		AtmosDB:         atmosDB,
		DopplerHz:       dopplerHz,
	}, nil
}
