package cache

import (
	"math/rand/v2"
)

// ReplacementPolicy decides which line of a full set is evicted.
//
// The cache only calls Victim when every way of the set is valid; free ways are
// filled first without consulting the policy.
type ReplacementPolicy interface {
	// OnAccess is called after every hit and every fill of the line holding
	// tag.
	OnAccess(set SetView, tag uint32)

	// Victim returns the way to evict, in [0, set.Len()).
	Victim(set SetView) int

	// Close releases the policy's metadata.
	Close()
}

// Replacement policy names accepted by NewReplacementPolicy.
const (
	PolicyLRU            = "lru"
	PolicyLRUPreferClean = "lru_prefer_clean"
	PolicyRandom         = "rand"
)

// PolicyConfig selects and parameterizes a replacement policy.
type PolicyConfig struct {
	Name string `json:"name"`
	// Seed is only used by the random policy.
	Seed uint64 `json:"seed,omitempty"`
}

// NewReplacementPolicy builds the policy named by config for a cache with the
// given geometry.
func NewReplacementPolicy(
	config PolicyConfig,
	numSets, associativity uint32,
) (ReplacementPolicy, error) {
	if err := mustBePowerOfTwo("num_sets", numSets); err != nil {
		return nil, err
	}
	if err := mustBePowerOfTwo("associativity", associativity); err != nil {
		return nil, err
	}

	switch config.Name {
	case PolicyLRU:
		return NewLRUPolicy(numSets, associativity), nil
	case PolicyLRUPreferClean:
		return NewLRUPreferCleanPolicy(numSets, associativity), nil
	case PolicyRandom:
		return NewRandomPolicy(config.Seed), nil
	default:
		return nil, &ConfigError{
			Field:  "replacement_policy",
			Value:  config.Name,
			Reason: "unknown policy",
		}
	}
}

// LRUPolicy evicts the least recently used line. Every access stamps the line
// with a counter that is shared by all the sets of the cache.
type LRUPolicy struct {
	clock  uint64
	stamps [][]uint64
}

// NewLRUPolicy creates an LRU policy for numSets sets of associativity ways.
func NewLRUPolicy(numSets, associativity uint32) *LRUPolicy {
	p := &LRUPolicy{
		stamps: make([][]uint64, numSets),
	}
	for i := range p.stamps {
		p.stamps[i] = make([]uint64, associativity)
	}
	return p
}

// OnAccess stamps the line holding tag as the most recently used.
func (p *LRUPolicy) OnAccess(set SetView, tag uint32) {
	way, ok := set.Find(tag)
	if !ok {
		return
	}

	p.clock++
	p.stamps[set.Index()][way] = p.clock
}

// Victim returns the way with the oldest stamp. Ties go to the lowest way, so
// a never-touched way (stamp 0) is evicted first.
func (p *LRUPolicy) Victim(set SetView) int {
	way, _ := p.oldest(set, func(Line) bool { return true })
	return way
}

func (p *LRUPolicy) oldest(set SetView, eligible func(Line) bool) (int, bool) {
	stamps := p.stamps[set.Index()]
	victim, found := 0, false

	for way := 0; way < set.Len(); way++ {
		if !eligible(set.Line(way)) {
			continue
		}

		if !found || stamps[way] < stamps[victim] {
			victim = way
			found = true
		}
	}

	return victim, found
}

// Close drops the recency stamps.
func (p *LRUPolicy) Close() {
	p.stamps = nil
}

// LRUPreferCleanPolicy evicts the least recently used clean line, falling back
// to plain LRU when every line of the set is modified. It trades some hit rate
// for fewer write-backs.
type LRUPreferCleanPolicy struct {
	LRUPolicy
}

// NewLRUPreferCleanPolicy creates an LRU-prefer-clean policy.
func NewLRUPreferCleanPolicy(numSets, associativity uint32) *LRUPreferCleanPolicy {
	return &LRUPreferCleanPolicy{LRUPolicy: *NewLRUPolicy(numSets, associativity)}
}

// Victim returns the oldest clean way, or the oldest way if none is clean.
func (p *LRUPreferCleanPolicy) Victim(set SetView) int {
	way, found := p.oldest(set, func(l Line) bool { return l.Status == Clean })
	if found {
		return way
	}

	return p.LRUPolicy.Victim(set)
}

// RandomPolicy evicts a uniformly random way. It keeps no per-line state.
type RandomPolicy struct {
	rng *rand.Rand
}

// NewRandomPolicy creates a random policy. The same seed always produces the
// same sequence of victims.
func NewRandomPolicy(seed uint64) *RandomPolicy {
	return &RandomPolicy{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// OnAccess does nothing.
func (p *RandomPolicy) OnAccess(SetView, uint32) {}

// Victim returns a random way of the set.
func (p *RandomPolicy) Victim(set SetView) int {
	return p.rng.IntN(set.Len())
}

// Close drops the random source.
func (p *RandomPolicy) Close() {
	p.rng = nil
}
