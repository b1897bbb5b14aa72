package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/sarchlab/akita/v4/sim"
	"github.com/spf13/cobra"

	"github.com/sarchlab/cachesim/benchmarks"
	"github.com/sarchlab/cachesim/results"
	"github.com/sarchlab/cachesim/timing/cache"
)

type runOptions struct {
	configPath  string
	format      string
	dbPath      string
	record      bool
	verbose     bool
	parallelism int
	cpuProfile  string
	memProfile  string
	timeout     time.Duration
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a policy × prefetcher sweep.",
		Long: "`run` runs every workload of the sweep with every replacement " +
			"policy and prefetcher and prints the results.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "",
		"Path to sweep configuration JSON file")
	cmd.Flags().StringVar(&opts.format, "format", "text",
		"Output format: text, csv or json")
	cmd.Flags().StringVar(&opts.dbPath, "db", "",
		"Record results into this SQLite database (without .sqlite3)")
	cmd.Flags().BoolVar(&opts.record, "record", false,
		"Record results into a new database with a generated name")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false,
		"Log every cache access to stderr")
	cmd.Flags().IntVar(&opts.parallelism, "parallel", 0,
		"Number of sweep points simulated at once (default: number of CPUs)")
	cmd.Flags().StringVar(&opts.cpuProfile, "cpuprofile", "",
		"Write a CPU profile to file")
	cmd.Flags().StringVar(&opts.memProfile, "memprofile", "",
		"Write a memory profile to file")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0,
		"Stop the sweep after this duration (0 = no limit)")

	return cmd
}

func runSweep(cmd *cobra.Command, opts *runOptions) error {
	switch opts.format {
	case "text", "csv", "json":
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}

	sweep := benchmarks.DefaultSweepConfig()
	if opts.configPath != "" {
		var err error
		sweep, err = benchmarks.LoadSweepConfig(opts.configPath)
		if err != nil {
			return err
		}
	}

	config := benchmarks.DefaultConfig()
	config.Sweep = sweep
	config.Output = cmd.OutOrStdout()
	config.Parallelism = opts.parallelism
	if opts.verbose {
		logger := log.New(cmd.ErrOrStderr(), "", 0)
		config.Hooks = []sim.Hook{cache.NewLogHook(logger)}
	}

	harness := benchmarks.NewHarness(config)
	if len(sweep.Workloads) == 0 {
		harness.AddWorkloads(benchmarks.GetWorkloads())
	}

	var recorder *results.Recorder
	if opts.dbPath != "" || opts.record {
		var err error
		recorder, err = results.New(opts.dbPath)
		if err != nil {
			return err
		}
		defer recorder.Close()
	}

	if opts.format == "text" {
		fmt.Fprintln(cmd.OutOrStdout(), "cachesim Sweep")
		fmt.Fprintln(cmd.OutOrStdout(), "==============")
		fmt.Fprintf(cmd.OutOrStdout(), "Cache: %d sets x %d ways x %d B (%d KB)\n",
			sweep.Cache.NumSets, sweep.Cache.Associativity, sweep.Cache.LineSize,
			sweep.Cache.Size()>>10)
		fmt.Fprintf(cmd.OutOrStdout(), "Points: %d\n", len(harness.Points()))
		fmt.Fprintln(cmd.OutOrStdout(), "")
	}

	ctx := cmd.Context()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	stopProfile, err := startCPUProfile(opts.cpuProfile)
	if err != nil {
		return err
	}
	res, err := harness.RunAll(ctx)
	stopProfile()
	if err != nil {
		return err
	}

	if err := writeHeapProfile(opts.memProfile); err != nil {
		return err
	}

	switch opts.format {
	case "csv":
		harness.PrintCSV(res)
	case "json":
		if err := harness.PrintJSON(res); err != nil {
			return err
		}
	default:
		harness.PrintResults(res)
	}

	if recorder == nil {
		return nil
	}

	recorder.StartRun(sweep)
	for _, r := range res {
		if err := recorder.Record(r); err != nil {
			return err
		}
	}

	return recorder.Flush()
}
