package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// policyVictimFinder lets the akita directory pick victims with a
// ReplacementPolicy.
type policyVictimFinder struct {
	policy ReplacementPolicy
}

// FindVictim returns the lowest free way of the set. Once the set is full the
// choice is delegated to the policy.
func (f *policyVictimFinder) FindVictim(set *akitacache.Set) *akitacache.Block {
	for _, block := range set.Blocks {
		if !block.IsValid {
			return block
		}
	}

	view := SetView{index: set.Blocks[0].SetID, blocks: set.Blocks}

	way := f.policy.Victim(view)
	if way < 0 || way >= len(set.Blocks) {
		panic(&InvariantViolation{What: fmt.Sprintf(
			"replacement policy returned way %d for a %d-way set",
			way, len(set.Blocks))})
	}

	return set.Blocks[way]
}
