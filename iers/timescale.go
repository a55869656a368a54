// Package iers provides Earth-orientation and time-scale services:
// leap seconds, ΔT, and the IERS Bulletin-A polar-motion / UT1-UTC table
// used by the frame transformer to rotate TEME states into WGS84.
//
// The time-scale conversions clamp at their tables' boundaries rather
// than extrapolate: ΔT outside [1800, 2200] returns the nearest anchor,
// and the leap-second offset past the last published entry stays at the
// latest known value. The EOP table is the one exception — it fails
// rather than clamps, because polar motion has no safe fallback.
package iers

import (
	"math"
	"time"
)

// SecPerDay is the number of SI seconds in a day.
const SecPerDay = 86400.0

const j2000JD = 2451545.0

// TimeToJDUTC converts a UTC time.Time to a Julian date (UTC time scale).
func TimeToJDUTC(t time.Time) float64 {
	u := t.UTC()
	unixNano := u.Unix()*1e9 + int64(u.Nanosecond())
	return 2440587.5 + float64(unixNano)/(SecPerDay*1e9)
}

type leapEntry struct {
	jd     float64
	offset float64
}

// leapSeconds is the full IERS TAI-UTC leap-second history since the 1972
// adoption of the current system. The last entry (2017-01-01, 37s) remains
// the latest as of this writing; no further leap seconds have been
// scheduled since.
var leapSeconds = buildLeapSeconds()

func buildLeapSeconds() []leapEntry {
	dates := []struct {
		y, m, d int
		offset  float64
	}{
		{1972, 1, 1, 10}, {1972, 7, 1, 11}, {1973, 1, 1, 12}, {1974, 1, 1, 13},
		{1975, 1, 1, 14}, {1976, 1, 1, 15}, {1977, 1, 1, 16}, {1978, 1, 1, 17},
		{1979, 1, 1, 18}, {1980, 1, 1, 19}, {1981, 7, 1, 20}, {1982, 7, 1, 21},
		{1983, 7, 1, 22}, {1985, 7, 1, 23}, {1988, 1, 1, 24}, {1990, 1, 1, 25},
		{1991, 1, 1, 26}, {1992, 7, 1, 27}, {1993, 7, 1, 28}, {1994, 7, 1, 29},
		{1996, 1, 1, 30}, {1997, 7, 1, 31}, {1999, 1, 1, 32}, {2006, 1, 1, 33},
		{2009, 1, 1, 34}, {2012, 7, 1, 35}, {2015, 7, 1, 36}, {2017, 1, 1, 37},
	}
	entries := make([]leapEntry, len(dates))
	for i, d := range dates {
		t := time.Date(d.y, time.Month(d.m), d.d, 0, 0, 0, 0, time.UTC)
		entries[i] = leapEntry{jd: TimeToJDUTC(t), offset: d.offset}
	}
	return entries
}

// LeapSecondOffset returns TAI-UTC (ΔAT), in seconds, for a given UTC
// Julian date. Before the first table entry it returns the initial 10s
// offset; after the last entry it returns the latest known offset — no
// attempt is made to predict future leap seconds.
func LeapSecondOffset(jdUTC float64) float64 {
	if jdUTC < leapSeconds[0].jd {
		return leapSeconds[0].offset
	}
	offset := leapSeconds[0].offset
	for _, e := range leapSeconds {
		if e.jd > jdUTC {
			break
		}
		offset = e.offset
	}
	return offset
}

// deltaTEntry is one (year, ΔT seconds) anchor point of the ΔT table.
type deltaTEntry struct {
	year float64
	dt   float64
}

// deltaTTable anchors ΔT = TT-UT1 at century marks. Values outside
// [1800,2200] are clamped to the nearest anchor rather than extrapolated,
// per this package's boundary-clamp contract.
var deltaTTable = []deltaTEntry{
	{1800, 18.3670},
	{1900, 1.0000},
	{2000, 63.8290},
	{2100, 93.0000},
	{2200, 180.0000},
}

// DeltaT returns ΔT = TT - UT1, in seconds, for a decimal year. Linearly
// interpolates between the nearest two table anchors; clamps to the first
// or last anchor outside the table's range.
func DeltaT(year float64) float64 {
	n := len(deltaTTable)
	if year <= deltaTTable[0].year {
		return deltaTTable[0].dt
	}
	if year >= deltaTTable[n-1].year {
		return deltaTTable[n-1].dt
	}
	idx := 0
	for i := 0; i < n-1; i++ {
		if year >= deltaTTable[i].year && year <= deltaTTable[i+1].year {
			idx = i
			break
		}
	}
	if idx >= n-1 {
		idx = n - 2
	}
	lo, hi := deltaTTable[idx], deltaTTable[idx+1]
	frac := (year - lo.year) / (hi.year - lo.year)
	return lo.dt + frac*(hi.dt-lo.dt)
}

// UTCToTT converts a UTC Julian date to the TT (Terrestrial Time) scale:
// TT = UTC + ΔAT + 32.184s.
func UTCToTT(jdUTC float64) float64 {
	offsetSec := LeapSecondOffset(jdUTC) + 32.184
	return jdUTC + offsetSec/SecPerDay
}

// TTToUT1 converts a TT Julian date to the UT1 scale using ΔT = TT - UT1
// evaluated at the corresponding decimal year.
func TTToUT1(jdTT float64) float64 {
	year := 2000.0 + (jdTT-j2000JD)/365.25
	dt := DeltaT(year)
	return jdTT - dt/SecPerDay
}

// TDBMinusTT returns TDB-TT in seconds for a TT Julian date, using the
// single-term Fairhead & Bretagnon approximation (amplitude ~1.7ms,
// sufficient for the sub-millisecond-irrelevant Doppler/frame-rotation use
// in this pipeline).
func TDBMinusTT(jdTT float64) float64 {
	g := 6.24004077 + 0.0172019699*(jdTT-j2000JD) // mean anomaly, radians
	return 0.001658 * math.Sin(g+0.0167*math.Sin(g))
}
