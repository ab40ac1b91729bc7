package sampler

import (
	"math/rand"
	"testing"
)

func TestResampleTargetsOversample(t *testing.T) {
	// pratios are 100/6 and 50/4; the scarcer second range (12.5) loses to
	// the first (16.67), which sets the pace for both.
	targets := resampleTargets([]int{100, 50}, []int{6, 4}, true, false)
	if targets[0] != 100 || targets[1] != 67 {
		t.Fatalf("expected [100 67], got %v", targets)
	}
	for i, target := range targets {
		if target < []int{100, 50}[i] {
			t.Fatalf("oversample target %d shrank range %d below its natural length", target, i)
		}
	}
}

func TestResampleTargetsDownsample(t *testing.T) {
	targets := resampleTargets([]int{100, 50}, []int{6, 4}, false, true)
	if targets[0] != 75 || targets[1] != 50 {
		t.Fatalf("expected [75 50], got %v", targets)
	}
	for i, target := range targets {
		if target > []int{100, 50}[i] {
			t.Fatalf("downsample target %d grew range %d beyond its natural length", target, i)
		}
	}
}

func TestResampleTargetsNoResampling(t *testing.T) {
	lengths := []int{100, 50}
	targets := resampleTargets(lengths, []int{6, 4}, false, false)
	for i := range lengths {
		if targets[i] != lengths[i] {
			t.Fatalf("expected natural lengths %v, got %v", lengths, targets)
		}
	}
}

// Oversample takes precedence when both flags are set.
func TestResampleTargetsOversampleWins(t *testing.T) {
	both := resampleTargets([]int{100, 50}, []int{6, 4}, true, true)
	over := resampleTargets([]int{100, 50}, []int{6, 4}, true, false)
	for i := range both {
		if both[i] != over[i] {
			t.Fatalf("both-flags targets %v differ from oversample-only %v", both, over)
		}
	}
}

func TestOversampleListsReachesTargetsWithOriginalIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	lists := buildRangeLists([]int{10, 15}, true, rng)
	targets := []int{25, 12}

	grown := oversampleLists(lists, targets, true, rng)
	for i, list := range grown {
		if len(list) != targets[i] {
			t.Fatalf("range %d grew to %d indices, want %d", i, len(list), targets[i])
		}
	}
	// Every index must still belong to its range.
	for _, idx := range grown[0] {
		if idx < 0 || idx >= 10 {
			t.Fatalf("range 0 contains foreign index %d", idx)
		}
	}
	for _, idx := range grown[1] {
		if idx < 10 || idx >= 15 {
			t.Fatalf("range 1 contains foreign index %d", idx)
		}
	}
	// Growth repeats whole lists first, so each original index appears at
	// least floor(target/natural) times.
	counts := make(map[int]int)
	for _, idx := range grown[0] {
		counts[idx]++
	}
	for idx := 0; idx < 10; idx++ {
		if counts[idx] < 2 {
			t.Fatalf("index %d appears %d times after growing 10 -> 25, want >= 2", idx, counts[idx])
		}
	}
}

func TestDownsampleListsDrawsWithoutReplacement(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	lists := buildRangeLists([]int{20, 30}, false, rng)
	targets := []int{8, 10}

	shrunk := downsampleLists(lists, targets, rng)
	for i, list := range shrunk {
		if len(list) != targets[i] {
			t.Fatalf("range %d shrank to %d indices, want %d", i, len(list), targets[i])
		}
		seen := make(map[int]bool)
		for _, idx := range list {
			if seen[idx] {
				t.Fatalf("range %d sampled index %d twice", i, idx)
			}
			seen[idx] = true
		}
	}
	for _, idx := range shrunk[0] {
		if idx < 0 || idx >= 20 {
			t.Fatalf("range 0 contains foreign index %d", idx)
		}
	}
	for _, idx := range shrunk[1] {
		if idx < 20 || idx >= 30 {
			t.Fatalf("range 1 contains foreign index %d", idx)
		}
	}
}

func TestBuildRangeLists(t *testing.T) {
	lists := buildRangeLists([]int{3, 7}, false, rand.New(rand.NewSource(0)))
	if len(lists) != 2 {
		t.Fatalf("expected 2 lists, got %d", len(lists))
	}
	for j, want := range []int{0, 1, 2} {
		if lists[0][j] != want {
			t.Fatalf("unshuffled range 0 is %v", lists[0])
		}
	}
	for j, want := range []int{3, 4, 5, 6} {
		if lists[1][j] != want {
			t.Fatalf("unshuffled range 1 is %v", lists[1])
		}
	}
}

func TestBuildRangeListsShuffleIsPermutation(t *testing.T) {
	lists := buildRangeLists([]int{5, 12}, true, rand.New(rand.NewSource(11)))
	seen := make(map[int]bool)
	for _, idx := range lists[1] {
		if idx < 5 || idx >= 12 {
			t.Fatalf("range 1 contains foreign index %d", idx)
		}
		if seen[idx] {
			t.Fatalf("shuffled range repeats index %d", idx)
		}
		seen[idx] = true
	}
	if len(seen) != 7 {
		t.Fatalf("shuffled range 1 has %d distinct indices, want 7", len(seen))
	}
}
