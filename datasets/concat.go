package datasets

import "fmt"

// ConcatDataset joins several member datasets into a single contiguous index
// space. Member i owns the global indices [cumCounts[i], cumCounts[i+1]) and
// carries one target mixing ratio. The cumulative boundaries and ratios are
// exactly what sampler.New consumes, so a ConcatDataset plugs straight into
// a balanced sampler.
type ConcatDataset struct {
	members []Dataset
	ratios  []float64

	// Cumulative counts for fast global index mapping; cumCounts[0] is 0.
	cumCounts []int
}

// NewConcatDataset builds a ConcatDataset from members and their mixing
// ratios. The two slices must have the same length and every member must be
// non-empty.
func NewConcatDataset(members []Dataset, ratios []float64) (*ConcatDataset, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("need at least one member dataset")
	}
	if len(ratios) != len(members) {
		return nil, fmt.Errorf("got %d ratios for %d members", len(ratios), len(members))
	}

	c := &ConcatDataset{
		members:   members,
		ratios:    append([]float64(nil), ratios...),
		cumCounts: make([]int, len(members)+1),
	}
	for i, m := range members {
		n := m.Len()
		if n == 0 {
			return nil, fmt.Errorf("member %d is empty", i)
		}
		c.cumCounts[i+1] = c.cumCounts[i] + n
	}
	return c, nil
}

// Len returns the total number of examples across all members.
func (c *ConcatDataset) Len() int {
	return c.cumCounts[len(c.members)]
}

// Ranges returns the cumulative member boundaries: member i owns the global
// indices [Ranges()[i-1], Ranges()[i]).
func (c *ConcatDataset) Ranges() []int {
	return append([]int(nil), c.cumCounts[1:]...)
}

// Ratios returns the target mixing ratio of each member.
func (c *ConcatDataset) Ratios() []float64 {
	return append([]float64(nil), c.ratios...)
}

// mapGlobalIndex maps a global index to (member index, index within member).
func (c *ConcatDataset) mapGlobalIndex(globalIdx int) (memberIdx, localIdx int) {
	for i := range c.members {
		if globalIdx < c.cumCounts[i+1] {
			return i, globalIdx - c.cumCounts[i]
		}
	}
	// Should never reach here if globalIdx is valid.
	last := len(c.members) - 1
	return last, c.cumCounts[last+1] - c.cumCounts[last] - 1
}

// Example reads a single example by global index, dispatching to the owning
// member.
func (c *ConcatDataset) Example(idx int) ([]float32, []float32, error) {
	if idx < 0 || idx >= c.Len() {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, c.Len())
	}
	memberIdx, localIdx := c.mapGlobalIndex(idx)
	return c.members[memberIdx].Example(localIdx)
}

// Batch reads multiple examples by global index. Indices belonging to the
// same member are fetched together so members that batch efficiently (like
// the CSV dataset) get one grouped read.
func (c *ConcatDataset) Batch(indices []int) ([][]float32, [][]float32, error) {
	inputs := make([][]float32, len(indices))
	labels := make([][]float32, len(indices))

	type position struct{ localIdx, batchPos int }
	groups := make(map[int][]position)
	for batchPos, idx := range indices {
		if idx < 0 || idx >= c.Len() {
			return nil, nil, fmt.Errorf("index %d out of range [0, %d)", idx, c.Len())
		}
		memberIdx, localIdx := c.mapGlobalIndex(idx)
		groups[memberIdx] = append(groups[memberIdx], position{localIdx, batchPos})
	}

	for memberIdx, group := range groups {
		local := make([]int, len(group))
		for i, p := range group {
			local[i] = p.localIdx
		}
		in, lab, err := c.members[memberIdx].Batch(local)
		if err != nil {
			return nil, nil, fmt.Errorf("member %d batch failed: %w", memberIdx, err)
		}
		for i, p := range group {
			inputs[p.batchPos] = in[i]
			labels[p.batchPos] = lab[i]
		}
	}
	return inputs, labels, nil
}
