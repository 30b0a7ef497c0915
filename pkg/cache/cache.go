// Package cache provides a local SQLite cache for fetched and predicted
// spectra, keyed by USI or prediction request key.
package cache

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-logr/logr"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/ms2pred/pkg/core"
)

// ErrMiss is returned by Get when the key is not cached.
var ErrMiss = errors.New("cache miss")

// Cache stores spectra in a local SQLite database. Peak arrays are
// encoded as little-endian float64 blobs.
type Cache struct {
	db  *sql.DB
	log logr.Logger
}

// Open opens or creates the cache database at the given path.
func Open(path string, log logr.Logger) (*Cache, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	c := &Cache{db: db, log: log}
	if err := c.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return c, nil
}

// createTables creates the required database schema
func (c *Cache) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS SpectrumCache (
		CacheKey TEXT PRIMARY KEY,
		USI TEXT,
		Sequence TEXT,
		Charge INTEGER,
		PrecursorMZ DOUBLE,
		RetentionTime DOUBLE,
		CollisionEnergy DOUBLE,
		ScanNumber INTEGER,
		Source TEXT,
		Model TEXT,
		Modifications TEXT,
		blobMass BLOB,
		blobIntensity BLOB,
		Annotations TEXT,
		CreatedAt TEXT
	);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// Put stores a spectrum under the given key, replacing any previous entry.
func (c *Cache) Put(ctx context.Context, key string, spec *core.Spectrum) error {
	if !spec.ArePeaksSorted() {
		spec.SortPeaks()
	}

	mods, err := json.Marshal(spec.Modifications)
	if err != nil {
		return fmt.Errorf("failed to encode modifications: %w", err)
	}

	var rt, ce interface{}
	if spec.RetentionTime != nil {
		rt = *spec.RetentionTime
	}
	if spec.CollisionEnergy != nil {
		ce = *spec.CollisionEnergy
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO SpectrumCache (
			CacheKey, USI, Sequence, Charge, PrecursorMZ, RetentionTime,
			CollisionEnergy, ScanNumber, Source, Model, Modifications,
			blobMass, blobIntensity, Annotations, CreatedAt
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		key,
		spec.USI,
		spec.Sequence,
		spec.Charge,
		spec.PrecursorMZ,
		rt,
		ce,
		spec.ScanNumber,
		spec.Source,
		spec.Model,
		string(mods),
		encodePeaksFloat64(spec.Peaks, true),
		encodePeaksFloat64(spec.Peaks, false),
		encodeAnnotations(spec.Peaks),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}

	c.log.V(1).Info("cached spectrum", "key", key, "peaks", len(spec.Peaks))
	return nil
}

// Get loads the spectrum stored under the key. Returns ErrMiss when the
// key is not present.
func (c *Cache) Get(ctx context.Context, key string) (*core.Spectrum, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT USI, Sequence, Charge, PrecursorMZ, RetentionTime,
			CollisionEnergy, ScanNumber, Source, Model, Modifications,
			blobMass, blobIntensity, Annotations
		FROM SpectrumCache WHERE CacheKey = ?
	`, key)

	var (
		spec        core.Spectrum
		rt, ce      sql.NullFloat64
		mods        string
		mzBlob      []byte
		intBlob     []byte
		annotations string
	)
	err := row.Scan(&spec.USI, &spec.Sequence, &spec.Charge, &spec.PrecursorMZ,
		&rt, &ce, &spec.ScanNumber, &spec.Source, &spec.Model, &mods,
		&mzBlob, &intBlob, &annotations)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMiss, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	if rt.Valid {
		v := rt.Float64
		spec.RetentionTime = &v
	}
	if ce.Valid {
		v := ce.Float64
		spec.CollisionEnergy = &v
	}

	if mods != "" {
		if err := json.Unmarshal([]byte(mods), &spec.Modifications); err != nil {
			return nil, fmt.Errorf("failed to decode modifications: %w", err)
		}
	}

	peaks, err := decodePeaks(mzBlob, intBlob, annotations)
	if err != nil {
		return nil, fmt.Errorf("failed to decode peaks for %s: %w", key, err)
	}
	spec.Peaks = peaks

	return &spec, nil
}

// Delete removes the entry for the key. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM SpectrumCache WHERE CacheKey = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Len returns the number of cached spectra.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM SpectrumCache`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}
	return nil
}

// encodePeaksFloat64 encodes peak data as little-endian float64 blob
func encodePeaksFloat64(peaks []core.Peak, useMZ bool) []byte {
	buf := make([]byte, len(peaks)*8)
	for i, peak := range peaks {
		var value float64
		if useMZ {
			value = peak.MZ
		} else {
			value = peak.Intensity
		}
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(value))
	}
	return buf
}

// encodeAnnotations joins peak annotations with semicolons, one slot per
// peak. The ion grammar never contains a semicolon.
func encodeAnnotations(peaks []core.Peak) string {
	parts := make([]string, len(peaks))
	for i, peak := range peaks {
		parts[i] = peak.Annotation
	}
	return strings.Join(parts, ";")
}

// decodePeaks rebuilds the peak list from the stored blobs.
func decodePeaks(mzBlob, intBlob []byte, annotations string) ([]core.Peak, error) {
	if len(mzBlob)%8 != 0 || len(mzBlob) != len(intBlob) {
		return nil, fmt.Errorf("malformed peak blobs: %d m/z bytes, %d intensity bytes",
			len(mzBlob), len(intBlob))
	}

	n := len(mzBlob) / 8
	peaks := make([]core.Peak, n)
	for i := 0; i < n; i++ {
		peaks[i] = core.Peak{
			MZ:        math.Float64frombits(binary.LittleEndian.Uint64(mzBlob[i*8:])),
			Intensity: math.Float64frombits(binary.LittleEndian.Uint64(intBlob[i*8:])),
			Charge:    1,
		}
	}

	if annotations != "" {
		parts := strings.Split(annotations, ";")
		if len(parts) != n {
			return nil, fmt.Errorf("malformed annotations: %d slots for %d peaks", len(parts), n)
		}
		for i, ann := range parts {
			if ann == "" {
				continue
			}
			peaks[i].Annotation = ann
			if _, _, z, err := core.ParseAnnotation(ann); err == nil {
				peaks[i].Charge = z
			}
		}
	}

	return peaks, nil
}
