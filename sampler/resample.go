package sampler

import (
	"math"
	"math/rand"
)

// resampleTargets returns the per-range list length the resampler will
// produce for the given natural lengths and per-range batch sizes.
//
// The ratio lengths[i]/batchSizes[i] is how many full balanced batches range
// i can feed on its own. Oversampling stretches every range to the length
// implied by the largest such ratio (the most batch-scarce range sets the
// pace); downsampling shrinks every range to the length implied by the
// smallest. When both flags are set, oversampling wins. With neither flag the
// natural lengths are returned unchanged.
func resampleTargets(lengths, batchSizes []int, oversample, downsample bool) []int {
	targets := make([]int, len(lengths))
	if !oversample && !downsample {
		copy(targets, lengths)
		return targets
	}

	pratios := make([]float64, len(lengths))
	for i := range lengths {
		pratios[i] = float64(lengths[i]) / float64(batchSizes[i])
	}
	pick := pratios[0]
	for _, p := range pratios[1:] {
		if oversample && p > pick {
			pick = p
		}
		if !oversample && p < pick {
			pick = p
		}
	}
	for i, bs := range batchSizes {
		targets[i] = int(math.Ceil(pick * float64(bs)))
	}
	return targets
}

// oversampleLists grows each range's index list to its target length by
// appending whole reshuffled copies of the original list, then filling the
// remainder with a without-replacement sample drawn from the grown list.
func oversampleLists(lists [][]int, targets []int, shuffle bool, rng *rand.Rand) [][]int {
	out := make([][]int, len(lists))
	for i, list := range lists {
		cur := len(list)
		missing := targets[i] - cur
		reps := missing / cur
		mod := missing % cur

		grown := make([]int, 0, targets[i])
		grown = append(grown, list...)
		for r := 0; r < reps; r++ {
			cp := make([]int, cur)
			copy(cp, list)
			if shuffle {
				rng.Shuffle(len(cp), func(a, b int) { cp[a], cp[b] = cp[b], cp[a] })
			}
			grown = append(grown, cp...)
		}
		if mod > 0 {
			grown = append(grown, sampleWithoutReplacement(grown, mod, rng)...)
		}
		out[i] = grown
	}
	return out
}

// downsampleLists shrinks each range's index list to its target length with a
// uniform without-replacement sample.
func downsampleLists(lists [][]int, targets []int, rng *rand.Rand) [][]int {
	out := make([][]int, len(lists))
	for i, list := range lists {
		if targets[i] >= len(list) {
			out[i] = list
			continue
		}
		out[i] = sampleWithoutReplacement(list, targets[i], rng)
	}
	return out
}

// sampleWithoutReplacement draws n distinct positions from src uniformly at
// random via a partial Fisher-Yates shuffle over a copy.
func sampleWithoutReplacement(src []int, n int, rng *rand.Rand) []int {
	pool := make([]int, len(src))
	copy(pool, src)
	if n > len(pool) {
		n = len(pool)
	}
	for i := 0; i < n; i++ {
		j := i + rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
