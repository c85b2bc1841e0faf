// Package scoredb implements the score oracle over an indexed SQLite
// database, so that per-position functional-impact scores and per-element
// stop scores can be served without holding the whole scores file in memory.
// The database is opened read-only during analysis and is safe for
// concurrent use from multiple worker tasks.
package scoredb

import (
	"database/sql"
	"errors"
	"log"

	"github.com/carbocation/pfx"
	"github.com/jmoiron/sqlx"
	"gopkg.in/guregu/null.v3"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS scores (
	chrom   TEXT NOT NULL,
	pos     INTEGER NOT NULL,
	ref     TEXT NOT NULL,
	alt     TEXT NOT NULL,
	element TEXT NOT NULL DEFAULT '',
	value   REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS scores_pos ON scores (chrom, pos);

CREATE TABLE IF NOT EXISTS stops (
	element TEXT NOT NULL,
	value   REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS stops_element ON stops (element);
`

// DB wraps the scores database. It implements fml.ScoreOracle and
// fml.StopSource.
type DB struct {
	db *sqlx.DB
}

// Open opens (or creates) a scores database at path. Use ":memory:" for an
// in-memory database.
func Open(path string) (*DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, pfx.Err(err)
	}
	return &DB{db: db}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Score returns the impact score of the substitution, or an invalid
// null.Float when none is recorded. Scores stored with an element tag only
// resolve for that element; untagged scores resolve for every element.
func (d *DB) Score(elementID, chromosome string, position int, ref, alt string) null.Float {
	var value float64
	err := d.db.Get(&value,
		`SELECT value FROM scores
		 WHERE chrom = ? AND pos = ? AND ref = ? AND alt = ? AND (element = '' OR element = ?)
		 LIMIT 1`,
		chromosome, position, ref, alt, elementID)
	if errors.Is(err, sql.ErrNoRows) {
		return null.Float{}
	}
	if err != nil {
		// A broken scores database surfaces as unscoreable positions, not as
		// a fatal error in the middle of a worker task.
		log.Printf("scoredb: %s:%d %s>%s: %v", chromosome, position, ref, alt, err)
		return null.Float{}
	}
	return null.FloatFrom(value)
}

// StopScores returns the precomputed stop scores of the element, empty when
// none are recorded.
func (d *DB) StopScores(elementID string) []float64 {
	var values []float64
	if err := d.db.Select(&values, `SELECT value FROM stops WHERE element = ?`, elementID); err != nil {
		log.Printf("scoredb: stop scores for %s: %v", elementID, err)
		return nil
	}
	return values
}

// InsertScore records one substitution score. Pass an empty element to make
// the score visible to every element.
func (d *DB) InsertScore(chromosome string, position int, ref, alt, element string, value float64) error {
	_, err := d.db.Exec(
		`INSERT INTO scores (chrom, pos, ref, alt, element, value) VALUES (?, ?, ?, ?, ?, ?)`,
		chromosome, position, ref, alt, element, value)
	return pfx.Err(err)
}

// InsertStopScore records one stop score for an element.
func (d *DB) InsertStopScore(element string, value float64) error {
	_, err := d.db.Exec(`INSERT INTO stops (element, value) VALUES (?, ?)`, element, value)
	return pfx.Err(err)
}
