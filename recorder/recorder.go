// Package recorder persists a per-reference trace of a simulation run
// to SQLite, for runs that opt into --record-db. It is purely
// supplemental: the simulator's statistics and correctness never
// depend on a Recorder being attached.
package recorder

import (
	"database/sql"
	"fmt"

	"github.com/fatih/structs"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// Entry is one recorded reference. Flush inserts its field values in
// declaration order, which matches the column order of the backing
// table.
type Entry struct {
	RunID   string `structs:"run_id"`
	Cycle   uint64 `structs:"cycle"`
	CoreID  uint32 `structs:"core_id"`
	Address uint64 `structs:"address"`
	Type    string `structs:"type"`
	Hit     bool   `structs:"hit"`
	Delay   uint64 `structs:"delay"`
}

// Recorder batches Entry rows and flushes them to a SQLite database.
type Recorder struct {
	db        *sql.DB
	runID     string
	buffer    []Entry
	batchSize int
}

// New opens (creating if necessary) a SQLite database at path and
// registers an atexit hook so a run that ends through atexit.Exit
// without an explicit Close still flushes its buffered rows. A plain
// os.Exit does not run the hook.
func New(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording database: %w", err)
	}

	r := &Recorder{
		db:        db,
		runID:     xid.New().String(),
		batchSize: 500,
	}

	if err := r.createTable(); err != nil {
		_ = db.Close()
		return nil, err
	}

	atexit.Register(func() { _ = r.Flush() })

	return r, nil
}

func (r *Recorder) createTable() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS "references" (
		run_id  TEXT NOT NULL,
		cycle   INTEGER NOT NULL,
		core_id INTEGER NOT NULL,
		address INTEGER NOT NULL,
		type    TEXT NOT NULL,
		hit     INTEGER NOT NULL,
		delay   INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create references table: %w", err)
	}
	return nil
}

// Record queues one reference for the next Flush, flushing immediately
// once the buffer reaches batchSize.
func (r *Recorder) Record(e Entry) {
	e.RunID = r.runID
	r.buffer = append(r.buffer, e)
	if len(r.buffer) >= r.batchSize {
		_ = r.Flush()
	}
}

// Flush writes every buffered entry to the database in one
// transaction and clears the buffer.
func (r *Recorder) Flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin recording transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO "references"
		(run_id, cycle, core_id, address, type, hit, delay)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare recording insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range r.buffer {
		values := structs.Values(&e)
		if _, err := stmt.Exec(values...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert recorded entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recording transaction: %w", err)
	}

	r.buffer = r.buffer[:0]
	return nil
}

// Close flushes any buffered rows and closes the database.
func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	return r.db.Close()
}
