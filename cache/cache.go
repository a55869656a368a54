// Package cache implements the content-addressed coordinate cache:
// a SHA-256 derived key over a run's inputs, gzip-compressed binary
// column blobs on disk, atomic tmp+rename writes, and bounded retention.
// klauspost/compress stands in for the standard library's compress/gzip
// for its faster level-9 throughput on large runs.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/orbitquant/ntnfeas/frames"
	"github.com/orbitquant/ntnfeas/sgp4"
)

// SchemaVersion is written into every blob and checked on load. Bump this
// whenever the on-disk column layout changes; a mismatch invalidates the
// cache rather than attempting a read.
const SchemaVersion = "ntnfeas-cache-v1"

// ErrCacheSchemaMismatch is returned (non-fatally — callers should treat
// it as a miss and recompute) when an on-disk blob was written by a
// different schema version.
var ErrCacheSchemaMismatch = errors.New("cache: schema version mismatch")

const magic = "NTNCACH1"
const timestampFieldLen = 64

// Key is a 16-hex-character content-address digest.
type Key string

// Column holds one satellite's transformed time series in struct-of-
// arrays form, the layout the blob stores column-wise.
type Column struct {
	SatelliteID string
	LatDeg      []float64
	LonDeg      []float64
	AltM        []float64
	Timestamps  []time.Time
}

// Blob is the full cache payload: one Column per satellite plus the
// schema-version and provenance metadata the on-disk format carries.
type Blob struct {
	SchemaVersion string
	CreatedAt     time.Time
	Metadata      map[string]any
	Columns       []Column
}

// DeriveKey hashes the inputs that determine S3 output: the sorted
// satellite ID list, the first and last TEME state of the first and last
// satellite (by ID), and the epoch-time-range bounds. Identical inputs
// always yield an identical key.
func DeriveKey(satellites map[string]sgp4.Satellite, rangeStart, rangeEnd time.Time) Key {
	ids := make([]string, 0, len(satellites))
	for id := range satellites {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	h := sha256.New()
	fmt.Fprintf(h, "n=%d\n", len(ids))
	for _, id := range ids {
		fmt.Fprintf(h, "id=%s\n", id)
	}
	if len(ids) > 0 {
		writeEndpoints(h, satellites[ids[0]])
		writeEndpoints(h, satellites[ids[len(ids)-1]])
	}
	fmt.Fprintf(h, "range=%s|%s\n", rangeStart.UTC().Format(time.RFC3339Nano), rangeEnd.UTC().Format(time.RFC3339Nano))

	sum := h.Sum(nil)
	return Key(fmt.Sprintf("%x", sum)[:16])
}

func writeEndpoints(h io.Writer, sat sgp4.Satellite) {
	if len(sat.States) == 0 {
		return
	}
	first, last := sat.States[0], sat.States[len(sat.States)-1]
	fmt.Fprintf(h, "first=%s,%v\n", first.Timestamp.UTC().Format(time.RFC3339Nano), first.Position[0])
	fmt.Fprintf(h, "last=%s,%v\n", last.Timestamp.UTC().Format(time.RFC3339Nano), last.Position[0])
}

// FromFramesResult packages an S3 frame-transformer result into a Blob
// ready to be saved.
func FromFramesResult(result frames.Result, metadata map[string]any) Blob {
	columns := make([]Column, 0, len(result.Satellites))
	ids := make([]string, 0, len(result.Satellites))
	for id := range result.Satellites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		sat := result.Satellites[id]
		col := Column{SatelliteID: id}
		for _, p := range sat.Series {
			col.LatDeg = append(col.LatDeg, p.LatDeg)
			col.LonDeg = append(col.LonDeg, p.LonDeg)
			col.AltM = append(col.AltM, p.AltM)
			col.Timestamps = append(col.Timestamps, p.Timestamp)
		}
		columns = append(columns, col)
	}
	return Blob{SchemaVersion: SchemaVersion, Metadata: metadata, Columns: columns}
}

// ToFramesResult reconstructs an S3-shaped result from a loaded blob,
// re-attaching constellation and epoch from the satellites that produced
// the original S2 input (the blob itself doesn't carry those fields).
func (b Blob) ToFramesResult(constellation map[string]string, epoch map[string]time.Time) frames.Result {
	out := make(map[string]frames.Satellite, len(b.Columns))
	for _, col := range b.Columns {
		series := make([]frames.WGS84Point, len(col.LatDeg))
		for i := range col.LatDeg {
			series[i] = frames.WGS84Point{
				Timestamp: col.Timestamps[i],
				LatDeg:    col.LatDeg[i],
				LonDeg:    col.LonDeg[i],
				AltM:      col.AltM[i],
				ChainTag:  "TEME-ICRS-ITRS-WGS84",
			}
		}
		out[col.SatelliteID] = frames.Satellite{
			SatelliteID:   col.SatelliteID,
			Constellation: constellation[col.SatelliteID],
			Epoch:         epoch[col.SatelliteID],
			Series:        series,
		}
	}
	return frames.Result{Satellites: out, CacheUsed: true}
}

// Store is a directory of content-addressed cache files. At most
// keepRecent files are retained; writer exclusivity for a given key is
// enforced by tmp-file + atomic rename, not by a lock, matching the
// single-writer-per-key assumption the pipeline's scheduler guarantees.
type Store struct {
	Dir        string
	KeepRecent int
}

// NewStore returns a Store rooted at dir, retaining keepRecent files
// (spec default 5; zero or negative falls back to 5).
func NewStore(dir string, keepRecent int) *Store {
	if keepRecent <= 0 {
		keepRecent = 5
	}
	return &Store{Dir: dir, KeepRecent: keepRecent}
}

func (s *Store) path(key Key) string {
	return filepath.Join(s.Dir, string(key)+".h5")
}

// Load reads a cached blob. A missing file is reported as (Blob{}, false,
// nil) — a plain cache miss, not an error. A schema mismatch is reported
// as (Blob{}, false, ErrCacheSchemaMismatch): callers should treat this
// exactly like a miss and recompute, never fail the run over it.
func (s *Store) Load(key Key) (Blob, bool, error) {
	f, err := os.Open(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return Blob{}, false, nil
	}
	if err != nil {
		return Blob{}, false, fmt.Errorf("cache: open: %w", err)
	}
	defer f.Close()

	blob, err := decode(f)
	if err != nil {
		return Blob{}, false, fmt.Errorf("cache: decode: %w", err)
	}
	if blob.SchemaVersion != SchemaVersion {
		return Blob{}, false, ErrCacheSchemaMismatch
	}
	return blob, true, nil
}

// Save writes blob under key, atomically, then prunes the directory down
// to KeepRecent most-recently-modified files.
func (s *Store) Save(key Key, blob Blob) error {
	blob.SchemaVersion = SchemaVersion
	if blob.CreatedAt.IsZero() {
		blob.CreatedAt = time.Now().UTC()
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("cache: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, "."+string(key)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("cache: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := encode(tmp, blob); err != nil {
		tmp.Close()
		return fmt.Errorf("cache: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cache: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		return fmt.Errorf("cache: rename: %w", err)
	}
	return s.prune()
}

func (s *Store) prune() error {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return fmt.Errorf("cache: readdir: %w", err)
	}
	type fileInfo struct {
		name    string
		modTime time.Time
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".h5" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{name: e.Name(), modTime: info.ModTime()})
	}
	if len(files) <= s.KeepRecent {
		return nil
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })
	for _, f := range files[s.KeepRecent:] {
		_ = os.Remove(filepath.Join(s.Dir, f.name))
	}
	return nil
}

// encode writes a Blob as: magic, gzip-level-9 compressed payload. The
// payload itself is a small hand-rolled binary framing (length-prefixed
// strings and float64 column arrays) — this is not an actual HDF5
// container, since no HDF5 binding is available, but it preserves the
// same per-satellite column layout and gzip-9 compression a real one
// would use.
func encode(w io.Writer, blob Blob) error {
	if _, err := w.Write([]byte(magic)); err != nil {
		return err
	}
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	defer gz.Close()

	if err := writeString(gz, blob.SchemaVersion); err != nil {
		return err
	}
	if err := binary.Write(gz, binary.LittleEndian, blob.CreatedAt.UnixNano()); err != nil {
		return err
	}
	metaJSON, err := json.Marshal(blob.Metadata)
	if err != nil {
		return err
	}
	if err := writeBytes(gz, metaJSON); err != nil {
		return err
	}

	if err := binary.Write(gz, binary.LittleEndian, uint32(len(blob.Columns))); err != nil {
		return err
	}
	for _, col := range blob.Columns {
		if err := writeString(gz, col.SatelliteID); err != nil {
			return err
		}
		n := uint32(len(col.LatDeg))
		if err := binary.Write(gz, binary.LittleEndian, n); err != nil {
			return err
		}
		if err := binary.Write(gz, binary.LittleEndian, col.LatDeg); err != nil {
			return err
		}
		if err := binary.Write(gz, binary.LittleEndian, col.LonDeg); err != nil {
			return err
		}
		if err := binary.Write(gz, binary.LittleEndian, col.AltM); err != nil {
			return err
		}
		for _, ts := range col.Timestamps {
			if err := writeFixedTimestamp(gz, ts); err != nil {
				return err
			}
		}
	}
	return gz.Close()
}

func decode(r io.Reader) (Blob, error) {
	var blob Blob

	gotMagic := make([]byte, len(magic))
	if _, err := io.ReadFull(r, gotMagic); err != nil {
		return blob, err
	}
	if string(gotMagic) != magic {
		return blob, fmt.Errorf("bad magic %q", gotMagic)
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return blob, err
	}
	defer gz.Close()

	schemaVersion, err := readString(gz)
	if err != nil {
		return blob, err
	}
	blob.SchemaVersion = schemaVersion

	var createdAtNano int64
	if err := binary.Read(gz, binary.LittleEndian, &createdAtNano); err != nil {
		return blob, err
	}
	blob.CreatedAt = time.Unix(0, createdAtNano).UTC()

	metaJSON, err := readBytes(gz)
	if err != nil {
		return blob, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &blob.Metadata); err != nil {
			return blob, err
		}
	}

	var numCols uint32
	if err := binary.Read(gz, binary.LittleEndian, &numCols); err != nil {
		return blob, err
	}
	blob.Columns = make([]Column, numCols)
	for i := range blob.Columns {
		id, err := readString(gz)
		if err != nil {
			return blob, err
		}
		var n uint32
		if err := binary.Read(gz, binary.LittleEndian, &n); err != nil {
			return blob, err
		}
		col := Column{SatelliteID: id, LatDeg: make([]float64, n), LonDeg: make([]float64, n), AltM: make([]float64, n)}
		if err := binary.Read(gz, binary.LittleEndian, col.LatDeg); err != nil {
			return blob, err
		}
		if err := binary.Read(gz, binary.LittleEndian, col.LonDeg); err != nil {
			return blob, err
		}
		if err := binary.Read(gz, binary.LittleEndian, col.AltM); err != nil {
			return blob, err
		}
		col.Timestamps = make([]time.Time, n)
		for j := range col.Timestamps {
			ts, err := readFixedTimestamp(gz)
			if err != nil {
				return blob, err
			}
			col.Timestamps[j] = ts
		}
		blob.Columns[i] = col
	}
	return blob, nil
}

func writeString(w io.Writer, s string) error { return writeBytes(w, []byte(s)) }

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readString(r io.Reader) (string, error) {
	b, err := readBytes(r)
	return string(b), err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func writeFixedTimestamp(w io.Writer, t time.Time) error {
	var buf [timestampFieldLen]byte
	copy(buf[:], t.UTC().Format(time.RFC3339Nano))
	_, err := w.Write(buf[:])
	return err
}

func readFixedTimestamp(r io.Reader) (time.Time, error) {
	var buf [timestampFieldLen]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return time.Time{}, err
	}
	s := bytes.TrimRight(buf[:], "\x00")
	return time.Parse(time.RFC3339Nano, string(s))
}
