// Package results stores sweep results in a SQLite database so that runs can
// be compared after the process exits.
package results

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/benchmarks"
)

const (
	runsTable    = "runs"
	resultsTable = "results"
)

// RunRow is one sweep invocation.
type RunRow struct {
	RunID            string
	StartTime        string
	Command          string
	Seed             int64
	NumSets          int64
	Associativity    int64
	LineSize         int64
	HitLatency       int64
	MissLatency      int64
	WritebackLatency int64
}

// ResultRow is one sweep point of a run.
type ResultRow struct {
	RunID          string
	Workload       string
	Policy         string
	Prefetcher     string
	Reads          int64
	Writes         int64
	Hits           int64
	Misses         int64
	Evictions      int64
	Writebacks     int64
	Prefetches     int64
	PrefetchHits   int64
	PrefetchMisses int64
	HitRate        float64
	TotalCycles    int64
	AMAT           float64
	WallTimeNs     int64
}

// Recorder buffers run and result rows and writes them in batches.
//
// A Recorder is not safe for concurrent use.
type Recorder struct {
	*sql.DB

	path      string
	runID     string
	batchSize int
	runs      []RunRow
	results   []ResultRow
}

// New creates a database at path + ".sqlite3". An empty path picks a unique
// name. The file must not exist yet. Buffered rows are flushed at exit.
func New(path string) (*Recorder, error) {
	if path == "" {
		path = "cachesim_results_" + xid.New().String()
	}

	filename := path + ".sqlite3"
	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database: %w", err)
	}

	r, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	r.path = filename

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	return r, nil
}

// NewWithDB creates a Recorder on an open database, creating the tables if
// needed.
func NewWithDB(db *sql.DB) (*Recorder, error) {
	r := &Recorder{
		DB:        db,
		batchSize: 1000,
	}

	if err := r.createTable(runsTable, RunRow{}); err != nil {
		return nil, err
	}
	if err := r.createTable(resultsTable, ResultRow{}); err != nil {
		return nil, err
	}

	atexit.Register(func() {
		if err := r.Flush(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to flush results: %v\n", err)
		}
	})

	return r, nil
}

// Path returns the database file name, or "" for a Recorder created with
// NewWithDB.
func (r *Recorder) Path() string {
	return r.path
}

// RunID returns the ID of the current run, or "" before StartRun.
func (r *Recorder) RunID() string {
	return r.runID
}

func (r *Recorder) createTable(name string, sample any) error {
	fields := strings.Join(structs.Names(sample), ", \n\t")

	query := `CREATE TABLE IF NOT EXISTS ` + name +
		` (` + "\n\t" + fields + "\n" + `);`
	if _, err := r.Exec(query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	return nil
}

// StartRun begins a new run for config and returns its ID. Results recorded
// afterwards belong to this run.
func (r *Recorder) StartRun(config benchmarks.SweepConfig) string {
	r.runID = xid.New().String()

	row := RunRow{
		RunID:         r.runID,
		StartTime:     time.Now().Format("2006-01-02 15:04:05.000000000"),
		Command:       strings.Join(os.Args, " "),
		Seed:          int64(config.Seed),
		NumSets:       int64(config.Cache.NumSets),
		Associativity: int64(config.Cache.Associativity),
		LineSize:      int64(config.Cache.LineSize),
	}
	if config.Timing != nil {
		row.HitLatency = int64(config.Timing.HitLatency)
		row.MissLatency = int64(config.Timing.MissLatency)
		row.WritebackLatency = int64(config.Timing.WritebackLatency)
	}

	r.runs = append(r.runs, row)

	return r.runID
}

// ErrNoRun is returned by Record before StartRun.
var ErrNoRun = errors.New("no run started")

// Record buffers one result of the current run.
func (r *Recorder) Record(result benchmarks.BenchmarkResult) error {
	if r.runID == "" {
		return ErrNoRun
	}

	s := result.Stats
	r.results = append(r.results, ResultRow{
		RunID:          r.runID,
		Workload:       result.Workload,
		Policy:         result.Policy,
		Prefetcher:     result.Prefetcher,
		Reads:          int64(s.Reads),
		Writes:         int64(s.Writes),
		Hits:           int64(s.Hits),
		Misses:         int64(s.Misses),
		Evictions:      int64(s.Evictions),
		Writebacks:     int64(s.Writebacks),
		Prefetches:     int64(s.Prefetches),
		PrefetchHits:   int64(s.PrefetchHits),
		PrefetchMisses: int64(s.PrefetchMisses),
		HitRate:        result.HitRate,
		TotalCycles:    int64(result.TotalCycles),
		AMAT:           result.AMAT,
		WallTimeNs:     result.WallTime.Nanoseconds(),
	})

	if len(r.runs)+len(r.results) >= r.batchSize {
		return r.Flush()
	}

	return nil
}

// Flush writes all buffered rows in one transaction.
func (r *Recorder) Flush() error {
	if len(r.runs) == 0 && len(r.results) == 0 {
		return nil
	}

	tx, err := r.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := insertRows(tx, runsTable, r.runs); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := insertRows(tx, resultsTable, r.results); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}

	r.runs = nil
	r.results = nil

	return nil
}

func insertRows[T any](tx *sql.Tx, table string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}

	placeholders := structs.Names(rows[0])
	for i := range placeholders {
		placeholders[i] = "?"
	}

	stmt, err := tx.Prepare("INSERT INTO " + table +
		" VALUES (" + strings.Join(placeholders, ", ") + ")")
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(structs.Values(row)...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	return nil
}

// Close flushes buffered rows and closes the database.
func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	return r.DB.Close()
}
