package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/benchmarks"
	"github.com/sarchlab/cachesim/timing/cache"
)

var _ = Describe("cachesim", func() {
	var (
		tempDir string
		stdout  *bytes.Buffer
		stderr  *bytes.Buffer
	)

	execute := func(args ...string) error {
		stdout.Reset()
		stderr.Reset()

		root := newRootCmd()
		root.SetArgs(args)
		root.SetOut(stdout)
		root.SetErr(stderr)
		return root.Execute()
	}

	writeSweep := func(sweep benchmarks.SweepConfig) string {
		path := filepath.Join(tempDir, "sweep.json")
		Expect(sweep.SaveSweepConfig(path)).To(Succeed())
		return path
	}

	smallSweep := func() benchmarks.SweepConfig {
		sweep := benchmarks.DefaultSweepConfig()
		sweep.Cache = cache.Config{NumSets: 16, Associativity: 2, LineSize: 64}
		sweep.Workloads = []string{"working_set_loop"}
		return sweep
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "cachesim-test")
		Expect(err).NotTo(HaveOccurred())

		stdout = &bytes.Buffer{}
		stderr = &bytes.Buffer{}
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	Describe("config", func() {
		It("should write the default sweep", func() {
			path := filepath.Join(tempDir, "default.json")
			Expect(execute("config", path)).To(Succeed())
			Expect(stdout.String()).To(ContainSubstring(path))

			loaded, err := benchmarks.LoadSweepConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(benchmarks.DefaultSweepConfig()))
		})

		It("should require a path", func() {
			Expect(execute("config")).NotTo(Succeed())
		})
	})

	Describe("run", func() {
		It("should print one CSV row per sweep point", func() {
			path := writeSweep(smallSweep())
			Expect(execute("run", "--config", path, "--format", "csv")).To(Succeed())

			lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
			Expect(lines).To(HaveLen(1 + 3*2))
			Expect(lines[0]).To(HavePrefix("workload,policy,prefetcher,"))
			Expect(lines[1]).To(HavePrefix("working_set_loop,lru,null,"))
		})

		It("should run every workload when the sweep names none", func() {
			sweep := smallSweep()
			sweep.Workloads = nil
			sweep.Policies = []cache.PolicyConfig{{Name: cache.PolicyLRU}}
			sweep.Prefetchers = []cache.PrefetcherConfig{{Name: cache.PrefetcherNull}}
			path := writeSweep(sweep)

			Expect(execute("run", "--config", path, "--format", "csv")).To(Succeed())

			lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
			Expect(lines).To(HaveLen(1 + len(benchmarks.GetWorkloads())))
		})

		It("should print a JSON report", func() {
			path := writeSweep(smallSweep())
			Expect(execute("run", "--config", path, "--format", "json")).To(Succeed())

			var report benchmarks.BenchmarkReport
			Expect(json.Unmarshal(stdout.Bytes(), &report)).To(Succeed())
			Expect(report.Summary.TotalPoints).To(Equal(6))
			Expect(report.Metadata.Config.Cache.NumSets).To(Equal(uint32(16)))
		})

		It("should print a text report with a header", func() {
			path := writeSweep(smallSweep())
			Expect(execute("run", "--config", path)).To(Succeed())

			Expect(stdout.String()).To(ContainSubstring("Cache: 16 sets x 2 ways x 64 B (2 KB)"))
			Expect(stdout.String()).To(ContainSubstring("Points: 6"))
			Expect(stdout.String()).To(ContainSubstring("Workload: working_set_loop"))
		})

		It("should log accesses when verbose", func() {
			sweep := smallSweep()
			sweep.Policies = []cache.PolicyConfig{{Name: cache.PolicyLRU}}
			sweep.Prefetchers = []cache.PrefetcherConfig{{Name: cache.PrefetcherNull}}
			path := writeSweep(sweep)

			Expect(execute("run", "--config", path, "--format", "csv", "-v")).
				To(Succeed())

			lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
			Expect(lines[0]).To(Equal("demand R 0x00400000 set=0 tag=0x1000 miss"))
			Expect(stderr.String()).To(ContainSubstring("evict 0x00400000 set=0"))
		})

		It("should write CPU and memory profiles", func() {
			path := writeSweep(smallSweep())
			cpu := filepath.Join(tempDir, "cpu.prof")
			mem := filepath.Join(tempDir, "mem.prof")

			Expect(execute("run", "--config", path, "--format", "csv",
				"--cpuprofile", cpu, "--memprofile", mem)).To(Succeed())

			Expect(cpu).To(BeAnExistingFile())
			Expect(mem).To(BeAnExistingFile())
		})

		It("should stop at the timeout", func() {
			path := writeSweep(smallSweep())

			err := execute("run", "--config", path, "--timeout", "1ns")
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
		})

		It("should reject an unknown format", func() {
			Expect(execute("run", "--format", "xml")).
				To(MatchError(ContainSubstring("unknown format")))
		})

		It("should reject an invalid sweep file", func() {
			sweep := smallSweep()
			sweep.Cache.Associativity = 3
			path := writeSweep(sweep)

			err := execute("run", "--config", path)
			var configErr *cache.ConfigError
			Expect(errors.As(err, &configErr)).To(BeTrue())
			Expect(configErr.Field).To(Equal("associativity"))
		})
	})

	Describe("recording", func() {
		It("should record a run and list it", func() {
			db := filepath.Join(tempDir, "sweep")
			path := writeSweep(smallSweep())

			Expect(execute("run", "--config", path, "--format", "csv", "--db", db)).
				To(Succeed())
			Expect(db + ".sqlite3").To(BeAnExistingFile())

			Expect(execute("runs", "--db", db+".sqlite3")).To(Succeed())

			lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
			Expect(lines).To(HaveLen(1))
			Expect(lines[0]).To(ContainSubstring("16x2x64"))
			Expect(lines[0]).To(ContainSubstring("points=6"))
		})

		It("should require --db to list runs", func() {
			Expect(execute("runs")).NotTo(Succeed())
		})

		It("should fail on a missing database", func() {
			Expect(execute("runs", "--db", filepath.Join(tempDir, "none.sqlite3"))).
				NotTo(Succeed())
		})
	})
})
