package datasets

import (
	"fmt"
	"io"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/Noofbiz/balanceBowl/sampler"
)

// BalancedLoader feeds a training loop from a balanced sampler's per-replica
// index stream. It walks the stream in batch-sized steps, fetching each
// batch from the underlying ConcatDataset and converting it to gomlx
// tensors.
//
// Yield returns io.EOF when the epoch's stream is exhausted; Restart
// advances to the next epoch, which reshuffles the stream deterministically
// from the sampler's seed.
type BalancedLoader struct {
	ds *ConcatDataset
	s  *sampler.Sampler

	// BatchSize for yielding batches. Defaults to the sampler's per-replica
	// batch size.
	BatchSize int

	epoch int
	order []int
	pos   int
}

// NewBalancedLoader wires a ConcatDataset and a Sampler together and
// prepares epoch 0's index stream.
func NewBalancedLoader(ds *ConcatDataset, s *sampler.Sampler, batchSize int) (*BalancedLoader, error) {
	if ds == nil {
		return nil, fmt.Errorf("dataset cannot be nil")
	}
	if s == nil {
		return nil, fmt.Errorf("sampler cannot be nil")
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be >= 1, got %d", batchSize)
	}

	l := &BalancedLoader{ds: ds, s: s, BatchSize: batchSize}
	if err := l.regenerate(); err != nil {
		return nil, err
	}
	return l, nil
}

// regenerate pulls the current epoch's index stream from the sampler.
func (l *BalancedLoader) regenerate() error {
	l.s.SetEpoch(l.epoch)
	order, err := l.s.Iterate()
	if err != nil {
		return fmt.Errorf("failed to generate epoch %d indices: %w", l.epoch, err)
	}
	l.order = order
	l.pos = 0
	return nil
}

// Epoch returns the epoch the loader is currently serving.
func (l *BalancedLoader) Epoch() int {
	return l.epoch
}

// Name returns the name of the dataset, for gomlx training loop reporting.
func (l *BalancedLoader) Name() string {
	return "BalancedLoader"
}

// Yield returns the next batch of data for the gomlx Dataset interface. The
// final batch of an epoch may be smaller than BatchSize; after it, Yield
// returns io.EOF until Restart is called.
func (l *BalancedLoader) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if l.pos >= len(l.order) {
		return nil, nil, nil, io.EOF
	}
	end := min(l.pos+l.BatchSize, len(l.order))
	indices := l.order[l.pos:end]
	l.pos = end

	in, lab, err := l.ds.Batch(indices)
	if err != nil {
		return nil, nil, nil, err
	}
	flat, err := MakeBatchFlat(in, lab)
	if err != nil {
		return nil, nil, nil, err
	}
	inT, labT, err := flat.ToGomlxTensors()
	if err != nil {
		return nil, nil, nil, err
	}
	return nil, []*tensors.Tensor{inT}, []*tensors.Tensor{labT}, nil
}

// Restart advances to the next epoch and regenerates the index stream.
func (l *BalancedLoader) Restart() error {
	l.epoch++
	return l.regenerate()
}
