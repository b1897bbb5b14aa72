// Command cachesim runs cache replacement and prefetch sweeps.
//
// Usage:
//
//	go run ./cmd/cachesim run [flags]
//	go run ./cmd/cachesim runs --db results.sqlite3
//
// Example:
//
//	# Compare the default policies on every workload
//	go run ./cmd/cachesim run
//
//	# Run a sweep file, output CSV and record into a database
//	go run ./cmd/cachesim run --config sweep.json --format csv --db sweep
package main

import (
	"github.com/tebeka/atexit"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
