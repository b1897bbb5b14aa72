package cache

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

func newSetView(index int, lines ...Line) SetView {
	blocks := make([]*akitacache.Block, len(lines))
	for i, l := range lines {
		blocks[i] = &akitacache.Block{
			SetID:   index,
			WayID:   i,
			Tag:     uint64(l.Tag),
			IsValid: l.Valid,
			IsDirty: l.Status == Modified,
		}
	}
	return SetView{index: index, blocks: blocks}
}

func clean(tag uint32) Line { return Line{Tag: tag, Valid: true, Status: Clean} }
func dirty(tag uint32) Line { return Line{Tag: tag, Valid: true, Status: Modified} }

var _ = Describe("LRUPolicy", func() {
	var p *LRUPolicy

	BeforeEach(func() {
		p = NewLRUPolicy(2, 4)
	})

	It("should evict way 0 of a never-touched set", func() {
		set := newSetView(1, clean(1), clean(2), clean(3), clean(4))
		Expect(p.Victim(set)).To(Equal(0))
	})

	It("should evict the oldest stamp", func() {
		set := newSetView(0, clean(1), clean(2), clean(3), clean(4))
		p.OnAccess(set, 1)
		p.OnAccess(set, 2)
		p.OnAccess(set, 3)
		p.OnAccess(set, 4)
		p.OnAccess(set, 1)

		Expect(p.Victim(set)).To(Equal(1))
	})

	It("should share the clock across sets", func() {
		set0 := newSetView(0, clean(1), clean(2), clean(3), clean(4))
		set1 := newSetView(1, clean(1), clean(2), clean(3), clean(4))
		for tag := uint32(1); tag <= 4; tag++ {
			p.OnAccess(set0, tag)
			p.OnAccess(set1, tag)
		}

		Expect(p.clock).To(Equal(uint64(8)))
		Expect(p.stamps[1]).To(Equal([]uint64{2, 4, 6, 8}))
	})

	It("should ignore tags that are not in the set", func() {
		set := newSetView(0, clean(1), clean(2), clean(3), clean(4))
		p.OnAccess(set, 9)

		Expect(p.clock).To(Equal(uint64(0)))
	})

	It("should ignore invalid lines with a matching tag", func() {
		set := newSetView(0, Line{Tag: 7}, clean(2), clean(3), clean(4))
		p.OnAccess(set, 7)

		Expect(p.stamps[0]).To(Equal([]uint64{0, 0, 0, 0}))
	})

	It("should drop its stamps on close", func() {
		p.Close()
		Expect(p.stamps).To(BeNil())
	})
})

var _ = Describe("LRUPreferCleanPolicy", func() {
	var p *LRUPreferCleanPolicy

	BeforeEach(func() {
		p = NewLRUPreferCleanPolicy(1, 4)
	})

	touch := func(set SetView, tags ...uint32) {
		for _, tag := range tags {
			p.OnAccess(set, tag)
		}
	}

	It("should pick the oldest clean line over an older dirty one", func() {
		set := newSetView(0, dirty(1), clean(2), dirty(3), clean(4))
		touch(set, 1, 3, 4, 2)

		Expect(p.Victim(set)).To(Equal(3))
	})

	It("should not stop at the first clean line in scan order", func() {
		// Stamps: way0 clean 4, way1 dirty 1, way2 dirty 2, way3 clean 3
		set := newSetView(0, clean(1), dirty(2), dirty(3), clean(4))
		touch(set, 2, 3, 4, 1)

		Expect(p.Victim(set)).To(Equal(3))
	})

	It("should fall back to LRU when every line is dirty", func() {
		set := newSetView(0, dirty(1), dirty(2), dirty(3), dirty(4))
		touch(set, 2, 3, 1, 4)

		Expect(p.Victim(set)).To(Equal(1))
	})

	It("should break ties toward the lowest clean way", func() {
		set := newSetView(0, dirty(1), clean(2), clean(3), dirty(4))

		Expect(p.Victim(set)).To(Equal(1))
	})
})

var _ = Describe("RandomPolicy", func() {
	It("should be reproducible for a seed", func() {
		set := newSetView(0, clean(1), clean(2), clean(3), clean(4))
		a := NewRandomPolicy(1234)
		b := NewRandomPolicy(1234)

		for i := 0; i < 100; i++ {
			Expect(a.Victim(set)).To(Equal(b.Victim(set)))
		}
	})

	It("should cover every way", func() {
		set := newSetView(0, clean(1), clean(2), clean(3), clean(4))
		p := NewRandomPolicy(5)

		counts := make([]int, set.Len())
		for i := 0; i < 4000; i++ {
			way := p.Victim(set)
			Expect(way).To(BeNumerically(">=", 0))
			Expect(way).To(BeNumerically("<", set.Len()))
			counts[way]++
		}

		for _, n := range counts {
			Expect(n).To(BeNumerically(">", 800))
		}
	})
})

var _ = Describe("NewReplacementPolicy", func() {
	DescribeTable("should build policies by name",
		func(name string, expected ReplacementPolicy) {
			p, err := NewReplacementPolicy(PolicyConfig{Name: name}, 4, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeAssignableToTypeOf(expected))
		},
		Entry("lru", PolicyLRU, &LRUPolicy{}),
		Entry("lru_prefer_clean", PolicyLRUPreferClean, &LRUPreferCleanPolicy{}),
		Entry("rand", PolicyRandom, &RandomPolicy{}),
	)

	It("should reject unknown names", func() {
		_, err := NewReplacementPolicy(PolicyConfig{Name: "mru"}, 4, 2)
		Expect(err).To(BeAssignableToTypeOf(&ConfigError{}))
	})

	It("should reject a bad geometry", func() {
		_, err := NewReplacementPolicy(PolicyConfig{Name: PolicyLRU}, 3, 2)
		Expect(err).To(MatchError(ContainSubstring("num_sets")))
	})
})
