// Package sampler provides a deterministic, replica-aware index sampler that
// draws from several contiguous sub-ranges of a dataset according to a fixed
// target mixing ratio.
//
// A dataset is treated as an ordered concatenation of ranges, each paired
// with a ratio. At construction the ratios are converted into exact per-range
// batch sizes; every epoch the sampler rebuilds a global index stream whose
// batch-aligned windows all match that composition, then hands each replica
// its strided share of the stream. Two samplers built with the same seed and
// configuration produce identical streams on every replica, which is what
// keeps the per-replica shards disjoint and aligned.
package sampler

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// RangedDataset is the minimal interface the sampler needs from a dataset:
// a total length, the cumulative range boundaries, and one mixing ratio per
// range. datasets.ConcatDataset implements it; any dataset that partitions
// its index space into contiguous blocks can too.
type RangedDataset interface {
	// Len returns the total number of examples.
	Len() int

	// Ranges returns cumulative boundaries: range i covers the global
	// indices [Ranges()[i-1], Ranges()[i]), with Ranges()[-1] taken as 0.
	// The last boundary must equal Len().
	Ranges() []int

	// Ratios returns the target mixing ratio for each range, in the same
	// order as Ranges. The ratios must sum to 1.
	Ratios() []float64
}

// Config holds the construction-time knobs for a Sampler.
type Config struct {
	// Ratios overrides the dataset's mixing ratios when non-nil. Must have
	// one non-negative entry per range, summing to 1.
	Ratios []float64

	// SamplesPerReplica is the per-replica batch size. The global batch
	// size is SamplesPerReplica * numReplicas.
	SamplesPerReplica int

	// Shuffle permutes each range's index list (and every oversampled
	// repetition of it) at the start of each epoch.
	Shuffle bool

	// Oversample stretches every range to the length implied by the most
	// batch-scarce range, repeating and resampling indices as needed.
	Oversample bool

	// Downsample shrinks every range to the length implied by the least
	// batch-scarce range. Ignored when Oversample is also set.
	Downsample bool

	// ShuffleBatch permutes the order of indices inside each whole
	// balanced batch. The per-batch composition is unaffected.
	ShuffleBatch bool

	// DropLast rounds the total sample count down to a multiple of the
	// replica count instead of padding it up.
	DropLast bool

	// Eps is the largest allowed per-range deviation between the requested
	// ratios and the effective ratios implied by the computed integer batch
	// sizes. Zero means the default of 0.1.
	Eps float64

	// Seed is the base seed; each epoch's randomness derives from
	// Seed + epoch.
	Seed int64
}

// Sampler produces, per epoch, this replica's share of a balanced global
// index stream. Construct once per training run, call SetEpoch then Iterate
// once per epoch.
type Sampler struct {
	bounds     []int
	ratios     []float64
	batchSizes []int
	effective  []float64
	totalBatch int

	rank        int
	numReplicas int
	cfg         Config
	epoch       int

	// naturalSampleCount is the stream length before the pad/drop rounding
	// that fits it to the replica count. It is fixed by the range lengths
	// and the resampling mode, so it is computed once at construction.
	naturalSampleCount   int
	singleRankNumSamples int
	totalSize            int
}

// New builds a Sampler over ds for the given replica. rank must be in
// [0, numReplicas). Construction fails when the ratio/batch-size combination
// is unusable: a range would receive a zero batch size, or the effective
// ratios drift from the requested ones by more than Eps.
func New(ds RangedDataset, rank, numReplicas int, cfg Config) (*Sampler, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset cannot be nil")
	}
	if numReplicas < 1 {
		return nil, fmt.Errorf("numReplicas must be >= 1, got %d", numReplicas)
	}
	if rank < 0 || rank >= numReplicas {
		return nil, fmt.Errorf("rank %d out of range [0, %d)", rank, numReplicas)
	}
	if cfg.SamplesPerReplica < 1 {
		return nil, fmt.Errorf("SamplesPerReplica must be >= 1, got %d", cfg.SamplesPerReplica)
	}
	if cfg.Eps == 0 {
		cfg.Eps = 0.1
	}

	bounds := ds.Ranges()
	if len(bounds) == 0 {
		return nil, fmt.Errorf("dataset exposes no ranges")
	}
	prev := 0
	for i, b := range bounds {
		if b <= prev {
			return nil, fmt.Errorf("range %d is empty or out of order: boundary %d after %d", i, b, prev)
		}
		prev = b
	}
	if prev != ds.Len() {
		return nil, fmt.Errorf("last range boundary %d does not match dataset length %d", prev, ds.Len())
	}

	ratios := cfg.Ratios
	if ratios == nil {
		ratios = ds.Ratios()
	}
	if len(ratios) != len(bounds) {
		return nil, fmt.Errorf("got %d ratios for %d ranges", len(ratios), len(bounds))
	}
	for i, r := range ratios {
		if r < 0 {
			return nil, fmt.Errorf("ratio %d is negative: %v", i, r)
		}
	}
	if sum := floats.Sum(ratios); math.Abs(sum-1) > 1e-6 {
		return nil, fmt.Errorf("ratios %v sum to %v, want 1", ratios, sum)
	}

	totalBatch := cfg.SamplesPerReplica * numReplicas
	batchSizes, err := allocateBatchSizes(ratios, totalBatch)
	if err != nil {
		return nil, err
	}

	effective := make([]float64, len(batchSizes))
	maxDev := 0.0
	for i, bs := range batchSizes {
		effective[i] = float64(bs) / float64(totalBatch)
		if dev := math.Abs(effective[i] - ratios[i]); dev > maxDev {
			maxDev = dev
		}
	}
	if maxDev > cfg.Eps {
		return nil, fmt.Errorf("effective batch ratios drift too far from the requested ones: "+
			"computed batch sizes %v give ratios %v, requested %v, max deviation %v > eps %v; "+
			"consider increasing eps or the batch size", batchSizes, effective, ratios, maxDev, cfg.Eps)
	}

	s := &Sampler{
		bounds:      append([]int(nil), bounds...),
		ratios:      append([]float64(nil), ratios...),
		batchSizes:  batchSizes,
		effective:   effective,
		totalBatch:  totalBatch,
		rank:        rank,
		numReplicas: numReplicas,
		cfg:         cfg,
	}

	// Initial generation pass: learn how long the stream naturally is, then
	// freeze the padded (or drop-last-rounded) total for the sampler's
	// lifetime. Only the resampled lengths matter here, not the indices.
	targets := resampleTargets(s.rangeLengths(), batchSizes, cfg.Oversample, cfg.Downsample)
	s.naturalSampleCount = 0
	for _, t := range targets {
		s.naturalSampleCount += t
	}

	if cfg.DropLast && s.naturalSampleCount%numReplicas != 0 {
		s.singleRankNumSamples = int(math.Ceil(float64(s.naturalSampleCount-numReplicas) / float64(numReplicas)))
	} else {
		s.singleRankNumSamples = int(math.Ceil(float64(s.naturalSampleCount) / float64(numReplicas)))
	}
	s.totalSize = s.singleRankNumSamples * numReplicas

	return s, nil
}

// rangeLengths returns the natural length of each range.
func (s *Sampler) rangeLengths() []int {
	lengths := make([]int, len(s.bounds))
	start := 0
	for i, end := range s.bounds {
		lengths[i] = end - start
		start = end
	}
	return lengths
}

// SetEpoch sets the epoch used to derive this epoch's randomness. Call it
// before Iterate at the start of every epoch so all replicas agree on the
// shuffle.
func (s *Sampler) SetEpoch(epoch int) {
	s.epoch = epoch
}

// Iterate regenerates the global index stream for the current epoch and
// returns this replica's strided share of it, always of length Len(). A
// length mismatch after assembly or sharding indicates a bug, not a
// recoverable condition, and is returned as an error.
func (s *Sampler) Iterate() ([]int, error) {
	stream, err := s.generateStream()
	if err != nil {
		return nil, err
	}

	out := make([]int, 0, s.singleRankNumSamples)
	for i := s.rank; i < len(stream); i += s.numReplicas {
		out = append(out, stream[i])
	}
	if len(out) != s.singleRankNumSamples {
		return nil, fmt.Errorf("internal: rank %d extracted %d samples, want %d", s.rank, len(out), s.singleRankNumSamples)
	}
	return out, nil
}

// generateStream rebuilds the rank-independent index stream for the current
// epoch. Every replica computes the same stream for a given (seed, epoch).
func (s *Sampler) generateStream() ([]int, error) {
	rng := rand.New(rand.NewSource(s.cfg.Seed + int64(s.epoch)))

	lists := buildRangeLists(s.bounds, s.cfg.Shuffle, rng)
	targets := resampleTargets(s.rangeLengths(), s.batchSizes, s.cfg.Oversample, s.cfg.Downsample)
	if s.cfg.Oversample {
		lists = oversampleLists(lists, targets, s.cfg.Shuffle, rng)
	} else if s.cfg.Downsample {
		lists = downsampleLists(lists, targets, rng)
	}

	stream := assembleStream(lists, s.batchSizes, s.totalSize, s.totalBatch, s.cfg.ShuffleBatch, rng)
	if len(stream) != s.totalSize {
		return nil, fmt.Errorf("internal: assembled stream has %d indices, want %d", len(stream), s.totalSize)
	}
	return stream, nil
}

// Len returns the number of indices Iterate yields per epoch for this
// replica.
func (s *Sampler) Len() int {
	return s.singleRankNumSamples
}

// TotalSize returns the fixed length of the global per-epoch stream,
// Len() * numReplicas.
func (s *Sampler) TotalSize() int {
	return s.totalSize
}

// BatchSizes returns the per-range batch sizes derived from the ratios. The
// returned slice is a copy.
func (s *Sampler) BatchSizes() []int {
	return append([]int(nil), s.batchSizes...)
}

// EffectiveRatios returns the ratios actually realized by the integer batch
// sizes. The returned slice is a copy.
func (s *Sampler) EffectiveRatios() []float64 {
	return append([]float64(nil), s.effective...)
}
