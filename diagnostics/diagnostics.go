// Package diagnostics implements a SQLite-backed log of the
// singular-value spectra a tensor-network wavefunction exposes at every
// decompose_psi, for offline study of entanglement/bond-dimension growth.
// It does not participate in the simulator's own state: nothing here is
// read back by circuit.QCircuit.
package diagnostics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const tableSpectrum = "spectrum"

// Recorder logs the spectrum observed at every RecordSpectrum call,
// keyed by a monotonically increasing step counter and the link id being
// decomposed. It satisfies circuit.Diagnostics.
type Recorder struct {
	Path string
	db   *sql.DB
	step int
}

// Open creates (overwriting any existing contents) a SQLite-backed
// recorder at dbPath.
func Open(dbPath string) (*Recorder, error) {
	db, err := newDB(dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return &Recorder{Path: dbPath, db: db}, nil
}

// OpenMust is Open, panicking on error.
func OpenMust(dbPath string) *Recorder {
	r, err := Open(dbPath)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return r
}

// Close releases the underlying database handle. It does not delete the
// database file, so recordings survive the Recorder that wrote them.
func (r *Recorder) Close() error {
	return r.db.Close()
}

// RecordSpectrum logs spectrum (descending singular values) for link at
// the recorder's next step.
func (r *Recorder) RecordSpectrum(link int, spectrum []float64) error {
	r.step++
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for idx, sigma := range spectrum {
		if err := setItem(ctx, r.db, r.step, link, idx, sigma); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

// Step returns the number of RecordSpectrum calls made so far.
func (r *Recorder) Step() int { return r.step }

// BondDimension returns the length of the most recently recorded
// spectrum for link, or 0 if link was never recorded.
func (r *Recorder) BondDimension(link int) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT count(1) FROM %s WHERE link=? AND step=(SELECT max(step) FROM %s WHERE link=?)`, tableSpectrum, tableSpectrum)
	var n int
	if err := r.db.QueryRowContext(ctx, sqlStr, link, link).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "")
	}
	return n, nil
}

// MaxBondDimension returns the largest spectrum length recorded across
// every link and step.
func (r *Recorder) MaxBondDimension() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT count(1) c FROM %s GROUP BY step, link ORDER BY c DESC LIMIT 1`, tableSpectrum)
	var n int
	err := r.db.QueryRowContext(ctx, sqlStr).Scan(&n)
	switch {
	case err == sql.ErrNoRows:
		return 0, nil
	case err != nil:
		return 0, errors.Wrap(err, "")
	default:
		return n, nil
	}
}

// Spectrum returns the singular values recorded for link at step, in
// ascending index order (descending by value, since spectra are always
// recorded in that order).
func (r *Recorder) Spectrum(step, link int) ([]float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT sigma FROM %s WHERE step=? AND link=? ORDER BY idx`, tableSpectrum)
	rows, err := r.db.QueryContext(ctx, sqlStr, step, link)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var sigma float64
		if err := rows.Scan(&sigma); err != nil {
			return nil, errors.Wrap(err, "")
		}
		out = append(out, sigma)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return out, nil
}

func setItem(ctx context.Context, db *sql.DB, step, link, idx int, sigma float64) error {
	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s (step, link, idx, sigma) VALUES (?, ?, ?, ?)`, tableSpectrum)
	if _, err := db.ExecContext(ctx, sqlStr, step, link, idx, sigma); err != nil {
		return errors.Wrap(err, sqlStr)
	}
	return nil
}

func newDB(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}
	return db, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`DROP TABLE IF EXISTS %s`, tableSpectrum)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	sqlStr = fmt.Sprintf(`CREATE TABLE %s (step INTEGER, link INTEGER, idx INTEGER, sigma REAL, PRIMARY KEY (step, link, idx)) STRICT`, tableSpectrum)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
