package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/timing/cache"
)

type recordingIssuer struct {
	lineSize uint32
	addrs    []uint32
}

func (r *recordingIssuer) LineSize() uint32 {
	return r.lineSize
}

func (r *recordingIssuer) Prefetch(addr uint32) {
	r.addrs = append(r.addrs, addr)
}

var _ = Describe("Prefetchers", func() {
	var issuer *recordingIssuer

	BeforeEach(func() {
		issuer = &recordingIssuer{lineSize: 64}
	})

	It("should never prefetch with the null prefetcher", func() {
		p := cache.NewNullPrefetcher()

		Expect(p.OnAccess(issuer, 0x1000, true)).To(Equal(uint32(0)))
		Expect(issuer.addrs).To(BeEmpty())
	})

	It("should fetch the next N lines", func() {
		p := cache.NewSequentialPrefetcher(3)

		Expect(p.OnAccess(issuer, 0x1000, true)).To(Equal(uint32(3)))
		Expect(issuer.addrs).To(Equal([]uint32{0x1040, 0x1080, 0x10C0}))
	})

	It("should prefetch on hits as well", func() {
		p := cache.NewSequentialPrefetcher(2)

		Expect(p.OnAccess(issuer, 0x1000, false)).To(Equal(uint32(2)))
		Expect(issuer.addrs).To(HaveLen(2))
	})

	It("should keep the offset within the line", func() {
		p := cache.NewSequentialPrefetcher(1)

		p.OnAccess(issuer, 0x1004, true)
		Expect(issuer.addrs).To(Equal([]uint32{0x1044}))
	})

	It("should fetch the adjacent line", func() {
		p := cache.NewAdjacentPrefetcher()

		Expect(p.OnAccess(issuer, 0x2000, true)).To(Equal(uint32(1)))
		Expect(issuer.addrs).To(Equal([]uint32{0x2040}))
	})

	It("should fetch every stride-th line", func() {
		p := cache.NewStridePrefetcher(3, 4)

		Expect(p.OnAccess(issuer, 0x0, true)).To(Equal(uint32(3)))
		Expect(issuer.addrs).To(Equal([]uint32{0x100, 0x200, 0x300}))
	})

	It("should behave like sequential with a stride of one", func() {
		stride := cache.NewStridePrefetcher(3, 1)
		stride.OnAccess(issuer, 0x1000, true)

		seqIssuer := &recordingIssuer{lineSize: 64}
		cache.NewSequentialPrefetcher(3).OnAccess(seqIssuer, 0x1000, true)

		Expect(issuer.addrs).To(Equal(seqIssuer.addrs))
	})

	Describe("NewPrefetcher", func() {
		DescribeTable("should build prefetchers by name",
			func(config cache.PrefetcherConfig, expected []uint32) {
				p, err := cache.NewPrefetcher(config)
				Expect(err).NotTo(HaveOccurred())

				p.OnAccess(issuer, 0, true)
				Expect(issuer.addrs).To(Equal(expected))
			},
			Entry("null", cache.PrefetcherConfig{Name: cache.PrefetcherNull}, []uint32(nil)),
			Entry("empty name", cache.PrefetcherConfig{}, []uint32(nil)),
			Entry("sequential",
				cache.PrefetcherConfig{Name: cache.PrefetcherSequential, Amount: 2},
				[]uint32{64, 128}),
			Entry("adjacent",
				cache.PrefetcherConfig{Name: cache.PrefetcherAdjacent},
				[]uint32{64}),
			Entry("stride",
				cache.PrefetcherConfig{Name: cache.PrefetcherStride, Count: 2, Stride: 3},
				[]uint32{192, 384}),
		)

		It("should reject a zero stride", func() {
			_, err := cache.NewPrefetcher(cache.PrefetcherConfig{
				Name:  cache.PrefetcherStride,
				Count: 2,
			})
			Expect(err).To(BeAssignableToTypeOf(&cache.ConfigError{}))
		})

		It("should reject unknown names", func() {
			_, err := cache.NewPrefetcher(cache.PrefetcherConfig{Name: "markov"})
			Expect(err).To(MatchError(ContainSubstring("unknown prefetcher")))
		})
	})
})
