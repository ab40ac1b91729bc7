package main

// Example command that demonstrates wiring two member datasets into a
// ConcatDataset, building a balanced sampler over it, and streaming balanced
// batches through a BalancedLoader as gomlx tensors.
//
// Usage:
//   go run ./example

import (
	"fmt"
	"io"
	"log"

	"github.com/Noofbiz/balanceBowl/datasets"
	"github.com/Noofbiz/balanceBowl/sampler"
)

// sliceDataset is a tiny in-memory member dataset for the demo.
type sliceDataset struct {
	inputs [][]float32
	labels [][]float32
}

func (s *sliceDataset) Len() int { return len(s.inputs) }

func (s *sliceDataset) Example(i int) ([]float32, []float32, error) {
	if i < 0 || i >= len(s.inputs) {
		return nil, nil, fmt.Errorf("index %d out of range", i)
	}
	return s.inputs[i], s.labels[i], nil
}

func (s *sliceDataset) Batch(indices []int) ([][]float32, [][]float32, error) {
	inputs := make([][]float32, len(indices))
	labels := make([][]float32, len(indices))
	for i, idx := range indices {
		in, lab, err := s.Example(idx)
		if err != nil {
			return nil, nil, err
		}
		inputs[i] = in
		labels[i] = lab
	}
	return inputs, labels, nil
}

func synthetic(label float32, n int) *sliceDataset {
	ds := &sliceDataset{}
	for i := 0; i < n; i++ {
		ds.inputs = append(ds.inputs, []float32{float32(i), float32(i) * 2})
		ds.labels = append(ds.labels, []float32{label})
	}
	return ds
}

func main() {
	// Two members of unequal size, mixed 60/40 in every batch.
	concat, err := datasets.NewConcatDataset(
		[]datasets.Dataset{synthetic(0, 120), synthetic(1, 40)},
		[]float64{0.6, 0.4},
	)
	if err != nil {
		log.Fatalf("failed to build concat dataset: %v", err)
	}

	s, err := sampler.New(concat, 0, 1, sampler.Config{
		SamplesPerReplica: 10,
		Shuffle:           true,
		Oversample:        true,
		Seed:              42,
	})
	if err != nil {
		log.Fatalf("failed to build sampler: %v", err)
	}
	fmt.Printf("Per-range batch sizes: %v (effective ratios %v)\n", s.BatchSizes(), s.EffectiveRatios())
	fmt.Printf("Samples per epoch: %d\n", s.Len())

	loader, err := datasets.NewBalancedLoader(concat, s, 10)
	if err != nil {
		log.Fatalf("failed to build loader: %v", err)
	}

	for epoch := 0; epoch < 2; epoch++ {
		batches := 0
		for {
			_, inputs, labels, err := loader.Yield()
			if err == io.EOF {
				break
			}
			if err != nil {
				log.Fatalf("yield failed: %v", err)
			}
			batches++
			if batches == 1 {
				fmt.Printf("epoch %d first batch: inputs %v labels %v\n",
					loader.Epoch(), inputs[0].Shape(), labels[0].Shape())
			}
		}
		fmt.Printf("epoch %d: %d batches\n", loader.Epoch(), batches)
		if err := loader.Restart(); err != nil {
			log.Fatalf("restart failed: %v", err)
		}
	}
}
