// Package tle parses and validates Two-Line Element records. It does not
// read files — supplying the raw name/line1/line2 triplets is the caller's
// concern — it only parses and validates what it is given.
package tle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/orbitquant/ntnfeas/constants"
)

// ErrInvalidChecksum is returned when a TLE line's modulo-10 checksum
// (the final character of each 69-char line) does not match its contents.
var ErrInvalidChecksum = errors.New("tle: invalid checksum")

// ErrMalformedLine is returned when a line is not 69 characters or its
// fixed-column fields do not parse.
var ErrMalformedLine = errors.New("tle: malformed line")

// ErrMeanMotionOutOfRange is returned when the parsed mean motion falls
// outside the [11, 20] rev/day band this pipeline treats as LEO.
var ErrMeanMotionOutOfRange = errors.New("tle: mean motion outside LEO band")

// Record is one validated TLE entry.
type Record struct {
	SatelliteID   string
	Name          string
	Line1         string
	Line2         string
	Epoch         time.Time
	Constellation constants.Constellation
	MeanMotion    float64 // rev/day
}

// Parse validates and parses a TLE name/line1/line2 triplet per the
// CelesTrak convention. name may be empty (some catalogs omit the title
// line); SatelliteID falls back to the NORAD catalog number in that case.
func Parse(name, line1, line2 string) (Record, error) {
	if len(line1) != 69 {
		return Record{}, fmt.Errorf("tle: line1 length %d, want 69: %w", len(line1), ErrMalformedLine)
	}
	if len(line2) != 69 {
		return Record{}, fmt.Errorf("tle: line2 length %d, want 69: %w", len(line2), ErrMalformedLine)
	}
	if err := checkChecksum(line1); err != nil {
		return Record{}, err
	}
	if err := checkChecksum(line2); err != nil {
		return Record{}, err
	}

	noradID := strings.TrimSpace(line1[2:7])

	epochYear, err := strconv.Atoi(strings.TrimSpace(line1[18:20]))
	if err != nil {
		return Record{}, fmt.Errorf("tle: epoch year field %q: %w", line1[18:20], ErrMalformedLine)
	}
	epochDay, err := strconv.ParseFloat(strings.TrimSpace(line1[20:32]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("tle: epoch day field %q: %w", line1[20:32], ErrMalformedLine)
	}
	epoch := epochFromYearDay(epochYear, epochDay)

	meanMotion, err := strconv.ParseFloat(strings.TrimSpace(line2[52:63]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("tle: mean motion field %q: %w", line2[52:63], ErrMalformedLine)
	}
	if meanMotion < 11.0 || meanMotion > 20.0 {
		return Record{}, fmt.Errorf("tle: mean motion %.6f rev/day: %w", meanMotion, ErrMeanMotionOutOfRange)
	}

	satID := noradID
	displayName := strings.TrimSpace(name)
	if displayName != "" {
		satID = displayName
	}

	return Record{
		SatelliteID:   satID,
		Name:          displayName,
		Line1:         line1,
		Line2:         line2,
		Epoch:         epoch,
		Constellation: constants.NormalizeConstellation(displayName),
		MeanMotion:    meanMotion,
	}, nil
}

// checkChecksum validates the modulo-10 checksum in the last column of a
// TLE line: digits sum at their face value, '-' counts as 1, everything
// else (letters, '.', '+', spaces) counts as 0.
func checkChecksum(line string) error {
	body := line[:68]
	want, err := strconv.Atoi(string(line[68]))
	if err != nil {
		return fmt.Errorf("tle: checksum column %q: %w", string(line[68]), ErrMalformedLine)
	}
	sum := 0
	for _, r := range body {
		switch {
		case r >= '0' && r <= '9':
			sum += int(r - '0')
		case r == '-':
			sum++
		}
	}
	if sum%10 != want {
		return fmt.Errorf("tle: checksum mismatch (computed %d, line has %d): %w", sum%10, want, ErrInvalidChecksum)
	}
	return nil
}

// epochFromYearDay converts a TLE two-digit year + fractional day-of-year
// into a UTC time.Time. Per the NORAD/CelesTrak convention, years 57-99
// mean 1957-1999 and 00-56 mean 2000-2056.
func epochFromYearDay(yy int, dayOfYear float64) time.Time {
	year := 1900 + yy
	if yy < 57 {
		year = 2000 + yy
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := dayOfYear - 1.0
	return start.Add(time.Duration(days * float64(24*time.Hour)))
}

// DeduplicateByNORAD keeps, for each distinct NORAD ID embedded in Line1,
// only the record with the latest epoch; catalogs routinely carry stale
// duplicates for the same object.
func DeduplicateByNORAD(records []Record) []Record {
	latest := make(map[string]Record, len(records))
	order := make([]string, 0, len(records))
	for _, r := range records {
		id := strings.TrimSpace(r.Line1[2:7])
		cur, ok := latest[id]
		if !ok {
			order = append(order, id)
			latest[id] = r
			continue
		}
		if r.Epoch.After(cur.Epoch) {
			latest[id] = r
		}
	}
	out := make([]Record, 0, len(order))
	for _, id := range order {
		out = append(out, latest[id])
	}
	return out
}
