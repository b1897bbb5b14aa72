package results

import (
	"database/sql"
	"fmt"
	"os"
)

// Open opens an existing results database for reading and appending.
func Open(filename string) (*Recorder, error) {
	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("cannot open results database: %w", err)
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

	return r, nil
}

// Runs returns every recorded run, oldest first.
func (r *Recorder) Runs() ([]RunRow, error) {
	rows, err := r.Query("SELECT * FROM " + runsTable + " ORDER BY StartTime, RunID")
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRow
	for rows.Next() {
		var run RunRow
		err := rows.Scan(
			&run.RunID, &run.StartTime, &run.Command, &run.Seed,
			&run.NumSets, &run.Associativity, &run.LineSize,
			&run.HitLatency, &run.MissLatency, &run.WritebackLatency,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Results returns the results of one run in the order they were recorded.
func (r *Recorder) Results(runID string) ([]ResultRow, error) {
	rows, err := r.Query(
		"SELECT * FROM "+resultsTable+" WHERE RunID = ? ORDER BY rowid", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []ResultRow
	for rows.Next() {
		var res ResultRow
		err := rows.Scan(
			&res.RunID, &res.Workload, &res.Policy, &res.Prefetcher,
			&res.Reads, &res.Writes, &res.Hits, &res.Misses,
			&res.Evictions, &res.Writebacks, &res.Prefetches,
			&res.PrefetchHits, &res.PrefetchMisses,
			&res.HitRate, &res.TotalCycles, &res.AMAT, &res.WallTimeNs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}

	return results, rows.Err()
}

// ListTables returns the names of the tables in the database.
func (r *Recorder) ListTables() ([]string, error) {
	rows, err := r.Query("SELECT name FROM sqlite_master WHERE type='table' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}
