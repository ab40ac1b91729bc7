package sampler

import "math/rand"

// buildRangeLists materializes one index list per range from the cumulative
// boundaries: range i holds the global indices [bounds[i-1], bounds[i]).
// With shuffle set, each list is independently permuted with rng.
func buildRangeLists(bounds []int, shuffle bool, rng *rand.Rand) [][]int {
	lists := make([][]int, len(bounds))
	start := 0
	for i, end := range bounds {
		list := make([]int, end-start)
		for j := range list {
			list[j] = start + j
		}
		if shuffle {
			rng.Shuffle(len(list), func(a, b int) { list[a], list[b] = list[b], list[a] })
		}
		lists[i] = list
		start = end
	}
	return lists
}

// assembleStream interleaves the per-range lists into a single stream of
// length totalSize.
//
// The head of the stream is totalSize/totalBatch whole balanced batches:
// batch b takes slice [b*bs_i, (b+1)*bs_i) from each range's list, in range
// order, so every batch-aligned window of totalBatch indices contains exactly
// bs_i indices from range i. Slices are clamped when a list runs short, which
// happens when no resampling is applied and the ranges are unequal. After the
// head come each range's leftover indices, in range order; this tail carries
// no balance guarantee. Finally the stream is padded by wrapping around to
// its own head, or truncated, to reach totalSize exactly.
//
// With shuffleBatch set, the contents of each whole batch are permuted with
// rng; the per-window composition is unchanged, only the order within the
// window.
func assembleStream(lists [][]int, batchSizes []int, totalSize, totalBatch int, shuffleBatch bool, rng *rand.Rand) []int {
	fullBatches := totalSize / totalBatch
	stream := make([]int, 0, totalSize)

	for b := 0; b < fullBatches; b++ {
		batchStart := len(stream)
		for i, bs := range batchSizes {
			lo := min(b*bs, len(lists[i]))
			hi := min((b+1)*bs, len(lists[i]))
			stream = append(stream, lists[i][lo:hi]...)
		}
		if shuffleBatch {
			window := stream[batchStart:]
			rng.Shuffle(len(window), func(a, b int) { window[a], window[b] = window[b], window[a] })
		}
	}

	for i, bs := range batchSizes {
		lo := min(fullBatches*bs, len(lists[i]))
		stream = append(stream, lists[i][lo:]...)
	}

	if len(stream) > totalSize {
		return stream[:totalSize]
	}
	for len(stream) < totalSize && len(stream) > 0 {
		n := min(totalSize-len(stream), len(stream))
		stream = append(stream, stream[:n]...)
	}
	return stream
}
