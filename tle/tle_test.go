package tle

import (
	"errors"
	"testing"
	"time"
)

// issLine1 and issLine2 are an ISS (ZARYA)-like two-line element set with
// valid checksums, i~51.6 deg, mean motion ~15.5 rev/day, used across the
// test suite as a known-good LEO sample.
const (
	issLine1 = "1 25544U 98067A   24001.50000000  .00016717  00000-0  10270-3 0  9009"
	issLine2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0287 15.50103472 10007"
)

func TestParse_Valid(t *testing.T) {
	rec, err := Parse("ISS (ZARYA)", issLine1, issLine2)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if rec.MeanMotion < 15 || rec.MeanMotion > 16 {
		t.Errorf("mean motion = %v, want ~15.5", rec.MeanMotion)
	}
	if rec.Epoch.Year() != 2024 {
		t.Errorf("epoch year = %v, want 2024", rec.Epoch.Year())
	}
}

func TestParse_BadChecksum(t *testing.T) {
	bad := issLine1[:68] + "9"
	if bad == issLine1 {
		bad = issLine1[:68] + "8"
	}
	_, err := Parse("ISS", bad, issLine2)
	if !errors.Is(err, ErrInvalidChecksum) {
		t.Errorf("expected ErrInvalidChecksum, got %v", err)
	}
}

func TestParse_WrongLength(t *testing.T) {
	_, err := Parse("ISS", issLine1[:60], issLine2)
	if !errors.Is(err, ErrMalformedLine) {
		t.Errorf("expected ErrMalformedLine, got %v", err)
	}
}

func TestEpochFromYearDay(t *testing.T) {
	got := epochFromYearDay(24, 1.5)
	want := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("epochFromYearDay(24, 1.5) = %v, want %v", got, want)
	}
}

func TestEpochFromYearDay_PreY2K(t *testing.T) {
	got := epochFromYearDay(98, 1.0)
	if got.Year() != 1998 {
		t.Errorf("year = %v, want 1998", got.Year())
	}
}

func TestDeduplicateByNORAD_KeepsLatestEpoch(t *testing.T) {
	older, _ := Parse("ISS", issLine1, issLine2)
	older.Epoch = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older
	newer.Epoch = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	out := DeduplicateByNORAD([]Record{older, newer})
	if len(out) != 1 {
		t.Fatalf("expected 1 deduplicated record, got %d", len(out))
	}
	if !out[0].Epoch.Equal(newer.Epoch) {
		t.Errorf("expected the newer epoch to survive, got %v", out[0].Epoch)
	}
}
