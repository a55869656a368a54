package iers

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrHorizonExceeded is returned by Table.Lookup when the requested time
// falls outside the loaded Bulletin-A-derived series. The frame
// transformer must fail fast rather than silently extrapolate polar
// motion or UT1-UTC beyond the published data.
var ErrHorizonExceeded = errors.New("iers: requested time exceeds EOP table horizon")

// EarthOrientation is one interpolated Earth-orientation sample: polar
// motion (arcsec) and UT1-UTC (seconds), plus the nutation corrections
// (arcsec) some Bulletin-A products carry alongside them.
type EarthOrientation struct {
	UTC         time.Time
	XpArcsec    float64
	YpArcsec    float64
	UT1MinusUTC float64
	DpsiArcsec  float64
	DepsArcsec  float64
}

// eopRow is one daily row as published in an IERS Bulletin-A / finals.data
// style series.
type eopRow struct {
	jd          float64
	xp, yp      float64
	ut1MinusUTC float64
	dpsi, deps  float64
}

// Table is a sorted, in-memory Earth-orientation-parameter series with
// linear-interpolation lookup. It is immutable after construction, so a
// single *Table may be shared read-only across worker goroutines (C13).
type Table struct {
	rows []eopRow
}

// NewTable builds a Table from rows in any order; it sorts them by time
// and merges duplicate timestamps keeping the last occurrence.
func NewTable(rows []EarthOrientation) *Table {
	sorted := make([]EarthOrientation, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].UTC.Before(sorted[j].UTC) })

	out := make([]eopRow, 0, len(sorted))
	for _, r := range sorted {
		jd := TimeToJDUTC(r.UTC)
		if len(out) > 0 && out[len(out)-1].jd == jd {
			out[len(out)-1] = eopRow{jd, r.XpArcsec, r.YpArcsec, r.UT1MinusUTC, r.DpsiArcsec, r.DepsArcsec}
			continue
		}
		out = append(out, eopRow{jd, r.XpArcsec, r.YpArcsec, r.UT1MinusUTC, r.DpsiArcsec, r.DepsArcsec})
	}
	return &Table{rows: out}
}

// Horizon reports the [earliest, latest] UTC instants covered by the table.
func (t *Table) Horizon() (earliest, latest time.Time, ok bool) {
	if len(t.rows) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return jdToTime(t.rows[0].jd), jdToTime(t.rows[len(t.rows)-1].jd), true
}

// Lookup linearly interpolates xp, yp, UT1-UTC, and the nutation
// corrections at the given UTC instant. It returns ErrHorizonExceeded if ut
// falls outside the table's covered span, rather than extrapolating.
func (t *Table) Lookup(ut time.Time) (EarthOrientation, error) {
	if len(t.rows) == 0 {
		return EarthOrientation{}, fmt.Errorf("iers: empty EOP table: %w", ErrHorizonExceeded)
	}
	jd := TimeToJDUTC(ut)
	if jd < t.rows[0].jd || jd > t.rows[len(t.rows)-1].jd {
		return EarthOrientation{}, fmt.Errorf("iers: time %s outside [%s, %s]: %w",
			ut.Format(time.RFC3339), jdToTime(t.rows[0].jd).Format(time.RFC3339),
			jdToTime(t.rows[len(t.rows)-1].jd).Format(time.RFC3339), ErrHorizonExceeded)
	}

	idx := sort.Search(len(t.rows), func(i int) bool { return t.rows[i].jd >= jd })
	if idx < len(t.rows) && t.rows[idx].jd == jd {
		r := t.rows[idx]
		return rowToEOP(r, ut), nil
	}
	lo, hi := t.rows[idx-1], t.rows[idx]
	frac := (jd - lo.jd) / (hi.jd - lo.jd)
	return EarthOrientation{
		UTC:         ut,
		XpArcsec:    lerp(lo.xp, hi.xp, frac),
		YpArcsec:    lerp(lo.yp, hi.yp, frac),
		UT1MinusUTC: lerp(lo.ut1MinusUTC, hi.ut1MinusUTC, frac),
		DpsiArcsec:  lerp(lo.dpsi, hi.dpsi, frac),
		DepsArcsec:  lerp(lo.deps, hi.deps, frac),
	}, nil
}

func rowToEOP(r eopRow, ut time.Time) EarthOrientation {
	return EarthOrientation{UTC: ut, XpArcsec: r.xp, YpArcsec: r.yp, UT1MinusUTC: r.ut1MinusUTC, DpsiArcsec: r.dpsi, DepsArcsec: r.deps}
}

func lerp(a, b, frac float64) float64 { return a + frac*(b-a) }

func jdToTime(jd float64) time.Time {
	days := jd - 2440587.5
	return time.Unix(0, int64(days*SecPerDay*1e9)).UTC()
}
