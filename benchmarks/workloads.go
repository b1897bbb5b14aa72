package benchmarks

import (
	"math/rand/v2"

	"github.com/sarchlab/cachesim/timing/cache"
)

// Access is one memory access of a workload.
type Access struct {
	Addr uint32
	Op   cache.Op
}

// Workload defines a synthetic access pattern.
type Workload struct {
	// Name identifies the workload
	Name string

	// Description explains what the workload stresses
	Description string

	// Generate produces the access sequence. Workloads that draw random
	// addresses use seed, so the same seed always yields the same sequence.
	Generate func(seed uint64) []Access
}

// GetWorkloads returns the standard set of workloads for policy comparison.
// Each workload targets a specific cache characteristic.
func GetWorkloads() []Workload {
	return []Workload{
		sequentialScan(),
		stridedScan(),
		randomRead(),
		workingSetLoop(),
		readWriteMix(),
		matrixTranspose(),
	}
}

// GetCoreWorkloads returns a minimal set of workloads for quick validation.
func GetCoreWorkloads() []Workload {
	return []Workload{
		sequentialScan(),
		workingSetLoop(),
		readWriteMix(),
	}
}

// WorkloadByName looks up a workload from GetWorkloads.
func WorkloadByName(name string) (Workload, bool) {
	for _, w := range GetWorkloads() {
		if w.Name == name {
			return w, true
		}
	}
	return Workload{}, false
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0xda942042e4dd58b5))
}

// 1. Sequential Scan - 8-byte reads over 256KB, rewards next-line prefetching
func sequentialScan() Workload {
	return Workload{
		Name:        "sequential_scan",
		Description: "8-byte reads over a 256KB array - measures spatial locality",
		Generate: func(uint64) []Access {
			return scan(0x10000, 256<<10, 8, cache.Read)
		},
	}
}

// 2. Strided Scan - one read every 256 bytes, twice over 1MB
func stridedScan() Workload {
	return Workload{
		Name:        "strided_scan",
		Description: "256-byte stride reads over 1MB, two passes - rewards stride prefetching",
		Generate: func(uint64) []Access {
			pass := scan(0x100000, 1<<20, 256, cache.Read)
			return append(pass, pass...)
		},
	}
}

// 3. Random Read - uniform reads over 1MB, defeats prefetching
func randomRead() Workload {
	return Workload{
		Name:        "random_read",
		Description: "16K uniform random reads over 1MB - measures capacity misses",
		Generate: func(seed uint64) []Access {
			rng := newRand(seed)
			accesses := make([]Access, 16384)
			for i := range accesses {
				accesses[i] = Access{
					Addr: 0x200000 + rng.Uint32N(1<<20)&^7,
					Op:   cache.Read,
				}
			}
			return accesses
		},
	}
}

// 4. Working Set Loop - eight passes over 48KB, a hot set that may or may not fit
func workingSetLoop() Workload {
	return Workload{
		Name:        "working_set_loop",
		Description: "8 passes over a 48KB working set - measures temporal locality",
		Generate: func(uint64) []Access {
			pass := scan(0x400000, 48<<10, 64, cache.Read)
			accesses := make([]Access, 0, len(pass)*8)
			for range 8 {
				accesses = append(accesses, pass...)
			}
			return accesses
		},
	}
}

// 5. Read/Write Mix - 70% reads over 256KB, exercises write-back and prefer-clean
func readWriteMix() Workload {
	return Workload{
		Name:        "read_write_mix",
		Description: "16K random accesses over 256KB, 30% writes - measures write-back traffic",
		Generate: func(seed uint64) []Access {
			rng := newRand(seed)
			accesses := make([]Access, 16384)
			for i := range accesses {
				op := cache.Read
				if rng.IntN(10) < 3 {
					op = cache.Write
				}
				accesses[i] = Access{
					Addr: 0x800000 + rng.Uint32N(256<<10)&^7,
					Op:   op,
				}
			}
			return accesses
		},
	}
}

// 6. Matrix Transpose - column-order reads of a 128x128 uint32 matrix, row-order writes
func matrixTranspose() Workload {
	const (
		n    = 128
		elem = 4
		src  = 0x1000000
		dst  = src + n*n*elem
	)
	return Workload{
		Name:        "matrix_transpose",
		Description: "128x128 uint32 transpose - mixes unit-stride writes with large-stride reads",
		Generate: func(uint64) []Access {
			accesses := make([]Access, 0, 2*n*n)
			for i := range uint32(n) {
				for j := range uint32(n) {
					accesses = append(accesses,
						Access{Addr: src + (j*n+i)*elem, Op: cache.Read},
						Access{Addr: dst + (i*n+j)*elem, Op: cache.Write},
					)
				}
			}
			return accesses
		},
	}
}

// scan returns accesses to [base, base+size) every step bytes.
func scan(base, size, step uint32, op cache.Op) []Access {
	accesses := make([]Access, 0, size/step)
	for off := uint32(0); off < size; off += step {
		accesses = append(accesses, Access{Addr: base + off, Op: op})
	}
	return accesses
}
