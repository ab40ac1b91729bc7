package sampler

import (
	"fmt"
	"math"
)

// allocateBatchSizes splits totalBatch across ranges in proportion to ratios,
// producing integer per-range batch sizes that sum to totalBatch exactly.
//
// It uses largest-remainder rounding: floor every raw share, round up the
// entries whose fractional part is at least 0.5, then flip just enough
// rounding decisions (in range order) to close any remaining gap. The same
// inputs always produce the same output.
func allocateBatchSizes(ratios []float64, totalBatch int) ([]int, error) {
	if totalBatch <= 0 {
		return nil, fmt.Errorf("total batch size must be positive, got %d", totalBatch)
	}

	n := len(ratios)
	intPart := make([]int, n)
	roundUp := make([]bool, n)
	sumInt, sumUp := 0, 0
	for i, r := range ratios {
		raw := r * float64(totalBatch)
		ip := int(math.Floor(raw))
		intPart[i] = ip
		sumInt += ip
		if raw-float64(ip) >= 0.5 {
			roundUp[i] = true
			sumUp++
		}
	}

	// Close the gap between the initial rounding and totalBatch by flipping
	// the first |diff| decisions that disagree with the sign of the gap.
	diff := totalBatch - sumInt - sumUp
	if diff > 0 {
		left := diff
		for i := 0; i < n && left > 0; i++ {
			if !roundUp[i] {
				roundUp[i] = true
				left--
			}
		}
	} else if diff < 0 {
		left := -diff
		for i := 0; i < n && left > 0; i++ {
			if roundUp[i] {
				roundUp[i] = false
				left--
			}
		}
	}

	sizes := make([]int, n)
	sum := 0
	for i := range sizes {
		sizes[i] = intPart[i]
		if roundUp[i] {
			sizes[i]++
		}
		sum += sizes[i]
	}

	for i, s := range sizes {
		if s == 0 {
			return nil, fmt.Errorf("empty allocation: range %d received batch size 0 from ratio %v and total batch size %d (computed batch sizes %v)",
				i, ratios[i], totalBatch, sizes)
		}
	}
	if sum != totalBatch {
		return nil, fmt.Errorf("internal: allocated batch sizes %v sum to %d, want %d", sizes, sum, totalBatch)
	}
	return sizes, nil
}
