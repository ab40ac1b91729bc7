package datasets

// This package provides the dataset side of balanced training: member
// datasets that load examples (CSV-backed or in-memory), a ConcatDataset
// that joins members into one contiguous index space with a mixing ratio per
// member, and a BalancedLoader that feeds gomlx training loops from a
// sampler's per-replica index stream.
//
// Member datasets use lazy loading where it matters - the CSV dataset stores
// file paths and only reads rows when a batch asks for them, minimizing
// memory usage.
//
// Notes on gomlx tensors:
//   - Batches are first collected into contiguous float32 buffers with shape
//     metadata (BatchFlat) and converted to gomlx tensors from there. This
//     keeps the loading code independent of any particular tensor helper and
//     makes the conversion into gomlx tensors a small, well-defined step.

// Dataset is the interface member datasets implement in order to participate
// in a ConcatDataset and be batched for training.
type Dataset interface {
	Len() int
	Example(i int) (inputs []float32, labels []float32, err error)
	Batch(indices []int) (inputs [][]float32, labels [][]float32, err error)
}
