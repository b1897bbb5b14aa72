package cache

// PrefetchIssuer is the handle a Prefetcher uses to read lines into the cache
// that notified it. Reads issued through it update cache state but never
// notify the prefetcher again.
type PrefetchIssuer interface {
	// LineSize returns the line size of the cache in bytes.
	LineSize() uint32

	// Prefetch reads the line holding addr into the cache.
	Prefetch(addr uint32)
}

// Prefetcher decides which extra lines to fetch on each demand access.
type Prefetcher interface {
	// OnAccess is called after every demand access, hit or miss, and returns
	// the number of lines it prefetched.
	OnAccess(issuer PrefetchIssuer, addr uint32, miss bool) uint32

	// Close releases the prefetcher's state.
	Close()
}

// Prefetcher names accepted by NewPrefetcher.
const (
	PrefetcherNull       = "null"
	PrefetcherSequential = "sequential"
	PrefetcherAdjacent   = "adjacent"
	PrefetcherStride     = "stride"
)

// PrefetcherConfig selects and parameterizes a prefetcher.
type PrefetcherConfig struct {
	Name string `json:"name"`
	// Amount is the number of lines fetched by the sequential prefetcher.
	Amount uint32 `json:"amount,omitempty"`
	// Count and Stride configure the stride prefetcher.
	Count  uint32 `json:"count,omitempty"`
	Stride uint32 `json:"stride,omitempty"`
}

// NewPrefetcher builds the prefetcher named by config.
func NewPrefetcher(config PrefetcherConfig) (Prefetcher, error) {
	switch config.Name {
	case PrefetcherNull, "":
		return NewNullPrefetcher(), nil
	case PrefetcherSequential:
		return NewSequentialPrefetcher(config.Amount), nil
	case PrefetcherAdjacent:
		return NewAdjacentPrefetcher(), nil
	case PrefetcherStride:
		if config.Stride == 0 {
			return nil, &ConfigError{
				Field:  "stride",
				Value:  config.Stride,
				Reason: "must be > 0",
			}
		}
		return NewStridePrefetcher(config.Count, config.Stride), nil
	default:
		return nil, &ConfigError{
			Field:  "prefetcher",
			Value:  config.Name,
			Reason: "unknown prefetcher",
		}
	}
}

// NullPrefetcher never prefetches. It is the baseline for measuring the
// benefit of the other prefetchers.
type NullPrefetcher struct{}

// NewNullPrefetcher creates a NullPrefetcher.
func NewNullPrefetcher() *NullPrefetcher {
	return &NullPrefetcher{}
}

// OnAccess does nothing and returns 0.
func (p *NullPrefetcher) OnAccess(PrefetchIssuer, uint32, bool) uint32 {
	return 0
}

// Close does nothing.
func (p *NullPrefetcher) Close() {}

// SequentialPrefetcher fetches the next N lines after every access.
type SequentialPrefetcher struct {
	amount uint32
}

// NewSequentialPrefetcher creates a prefetcher that fetches amount lines.
func NewSequentialPrefetcher(amount uint32) *SequentialPrefetcher {
	return &SequentialPrefetcher{amount: amount}
}

// OnAccess reads addr + k*lineSize for k = 1..N.
func (p *SequentialPrefetcher) OnAccess(
	issuer PrefetchIssuer,
	addr uint32,
	_ bool,
) uint32 {
	lineSize := issuer.LineSize()
	for k := uint32(1); k <= p.amount; k++ {
		issuer.Prefetch(addr + k*lineSize)
	}

	return p.amount
}

// Close does nothing.
func (p *SequentialPrefetcher) Close() {}

// AdjacentPrefetcher fetches the line right after every accessed line.
type AdjacentPrefetcher struct{}

// NewAdjacentPrefetcher creates an AdjacentPrefetcher.
func NewAdjacentPrefetcher() *AdjacentPrefetcher {
	return &AdjacentPrefetcher{}
}

// OnAccess reads addr + lineSize.
func (p *AdjacentPrefetcher) OnAccess(
	issuer PrefetchIssuer,
	addr uint32,
	_ bool,
) uint32 {
	issuer.Prefetch(addr + issuer.LineSize())
	return 1
}

// Close does nothing.
func (p *AdjacentPrefetcher) Close() {}

// StridePrefetcher fetches count lines spaced stride lines apart, so that
// count=3, stride=4 touches every 4th line three times.
type StridePrefetcher struct {
	count  uint32
	stride uint32
}

// NewStridePrefetcher creates a StridePrefetcher.
func NewStridePrefetcher(count, stride uint32) *StridePrefetcher {
	return &StridePrefetcher{count: count, stride: stride}
}

// OnAccess reads addr + k*stride*lineSize for k = 1..count.
func (p *StridePrefetcher) OnAccess(
	issuer PrefetchIssuer,
	addr uint32,
	_ bool,
) uint32 {
	step := p.stride * issuer.LineSize()
	for k := uint32(1); k <= p.count; k++ {
		issuer.Prefetch(addr + k*step)
	}

	return p.count
}

// Close does nothing.
func (p *StridePrefetcher) Close() {}
