package main

// mixreport builds balanced samplers over a described dataset mix and
// reports how well the generated index streams hold the target composition:
// per-batch range shares, drift statistics, the unbalanced tail size, and
// the cross-replica shard geometry. Optionally it plots the per-batch shares
// to a PNG.
//
// The run is described by a small YAML file; with no -config flag an
// embedded default describing a synthetic three-range mix is used.

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"os"
	"path/filepath"

	"github.com/Noofbiz/balanceBowl/datasets"
	"github.com/Noofbiz/balanceBowl/sampler"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gopkg.in/yaml.v3"
)

// defaultRunYAML is used when no -config path is given: three synthetic
// ranges of unequal size, oversampled into a 50/30/20 mix.
const defaultRunYAML = `
members:
  - name: web
    size: 1000
  - name: books
    size: 300
  - name: code
    size: 120
ratios: [0.5, 0.3, 0.2]
samples_per_replica: 10
num_replicas: 4
shuffle: true
oversample: true
seed: 42
epochs: 3
`

// memberSpec describes one range of the mix: either a synthetic size or a
// CSV glob pattern with feature/label columns.
type memberSpec struct {
	Name     string   `yaml:"name"`
	Size     int      `yaml:"size"`
	Pattern  string   `yaml:"pattern"`
	Features []string `yaml:"features"`
	Labels   []string `yaml:"labels"`
}

// runSpec is the YAML run description.
type runSpec struct {
	Members           []memberSpec `yaml:"members"`
	Ratios            []float64    `yaml:"ratios"`
	SamplesPerReplica int          `yaml:"samples_per_replica"`
	NumReplicas       int          `yaml:"num_replicas"`
	Shuffle           bool         `yaml:"shuffle"`
	Oversample        bool         `yaml:"oversample"`
	Downsample        bool         `yaml:"downsample"`
	ShuffleBatch      bool         `yaml:"shuffle_batch"`
	DropLast          bool         `yaml:"drop_last"`
	Eps               float64      `yaml:"eps"`
	Seed              int64        `yaml:"seed"`
	Epochs            int          `yaml:"epochs"`
}

// syntheticDataset is a placeholder member whose examples are just their own
// index; mixreport only cares about index geometry, not example contents.
type syntheticDataset struct {
	n int
}

func (s *syntheticDataset) Len() int { return s.n }

func (s *syntheticDataset) Example(i int) ([]float32, []float32, error) {
	if i < 0 || i >= s.n {
		return nil, nil, fmt.Errorf("index %d out of range [0, %d)", i, s.n)
	}
	return []float32{float32(i)}, []float32{0}, nil
}

func (s *syntheticDataset) Batch(indices []int) ([][]float32, [][]float32, error) {
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

func main() {
	configPath := flag.String("config", "", "YAML run description; embedded default when empty")
	outDir := flag.String("out", "output", "directory for generated reports and plots")
	epochs := flag.Int("epochs", 0, "override the number of epochs to walk")
	plotShares := flag.Bool("plot", false, "write a PNG of per-batch range shares")
	flag.Parse()

	spec, err := loadRunSpec(*configPath)
	if err != nil {
		log.Fatalf("failed to load run description: %v", err)
	}
	if *epochs > 0 {
		spec.Epochs = *epochs
	}
	if spec.Epochs == 0 {
		spec.Epochs = 1
	}

	concat, err := buildConcat(spec)
	if err != nil {
		log.Fatalf("failed to build dataset mix: %v", err)
	}

	cfg := sampler.Config{
		Ratios:            spec.Ratios,
		SamplesPerReplica: spec.SamplesPerReplica,
		Shuffle:           spec.Shuffle,
		Oversample:        spec.Oversample,
		Downsample:        spec.Downsample,
		ShuffleBatch:      spec.ShuffleBatch,
		DropLast:          spec.DropLast,
		Eps:               spec.Eps,
		Seed:              spec.Seed,
	}
	samplers := make([]*sampler.Sampler, spec.NumReplicas)
	for r := range samplers {
		samplers[r], err = sampler.New(concat, r, spec.NumReplicas, cfg)
		if err != nil {
			log.Fatalf("failed to build sampler for rank %d: %v", r, err)
		}
	}

	bounds := concat.Ranges()
	effective := samplers[0].EffectiveRatios()
	totalBatch := spec.SamplesPerReplica * spec.NumReplicas

	fmt.Printf("Mix: %d ranges, %d examples total\n", len(bounds), concat.Len())
	fmt.Printf("Batch sizes: %v (effective ratios %v)\n", samplers[0].BatchSizes(), effective)
	fmt.Printf("Stream: %d indices per epoch, %d per replica across %d replicas\n",
		samplers[0].TotalSize(), samplers[0].Len(), spec.NumReplicas)

	for epoch := 0; epoch < spec.Epochs; epoch++ {
		stream, err := reassemble(samplers, epoch)
		if err != nil {
			log.Fatalf("epoch %d: %v", epoch, err)
		}

		shares := batchShares(stream, bounds, totalBatch)
		fullBatches := len(stream) / totalBatch
		tail := len(stream) - fullBatches*totalBatch

		fmt.Printf("\nepoch %d: %d whole batches, %d tail indices\n", epoch, fullBatches, tail)
		for i := range bounds {
			drift := make([]float64, fullBatches)
			for b := 0; b < fullBatches; b++ {
				drift[b] = shares[i][b] - effective[i]
			}
			fmt.Printf("  range %d: share target %.4f, drift mean %+.5f stddev %.5f\n",
				i, effective[i], stat.Mean(drift, nil), stat.StdDev(drift, nil))
		}

		if *plotShares {
			path := filepath.Join(*outDir, fmt.Sprintf("shares_epoch%d.png", epoch))
			if err := plotBatchShares(path, shares, effective); err != nil {
				log.Fatalf("failed to plot epoch %d shares: %v", epoch, err)
			}
			log.Printf("share plot written to %s", path)
		}
	}
}

// loadRunSpec reads and validates the YAML run description.
func loadRunSpec(path string) (*runSpec, error) {
	raw := []byte(defaultRunYAML)
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}
	spec := &runSpec{}
	if err := yaml.Unmarshal(raw, spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(spec.Members) == 0 {
		return nil, fmt.Errorf("run description names no members")
	}
	if spec.NumReplicas < 1 {
		spec.NumReplicas = 1
	}
	return spec, nil
}

// buildConcat turns the member specs into a ConcatDataset.
func buildConcat(spec *runSpec) (*datasets.ConcatDataset, error) {
	members := make([]datasets.Dataset, len(spec.Members))
	for i, m := range spec.Members {
		switch {
		case m.Pattern != "":
			ds, err := datasets.NewCSVDataset(m.Pattern, m.Features, m.Labels)
			if err != nil {
				return nil, fmt.Errorf("member %q: %w", m.Name, err)
			}
			members[i] = ds
		case m.Size > 0:
			members[i] = &syntheticDataset{n: m.Size}
		default:
			return nil, fmt.Errorf("member %q needs a size or a pattern", m.Name)
		}
	}
	return datasets.NewConcatDataset(members, spec.Ratios)
}

// reassemble gathers every rank's shard for the epoch and interleaves them
// back into the global stream, verifying the shard geometry on the way.
func reassemble(samplers []*sampler.Sampler, epoch int) ([]int, error) {
	replicas := len(samplers)
	perRank := samplers[0].Len()
	stream := make([]int, perRank*replicas)
	for r, s := range samplers {
		s.SetEpoch(epoch)
		shard, err := s.Iterate()
		if err != nil {
			return nil, fmt.Errorf("rank %d iterate: %w", r, err)
		}
		if len(shard) != perRank {
			return nil, fmt.Errorf("rank %d yielded %d indices, rank 0 yielded %d", r, len(shard), perRank)
		}
		for i, idx := range shard {
			stream[i*replicas+r] = idx
		}
	}
	return stream, nil
}

// batchShares computes, per range, the share of each whole batch window
// occupied by that range's indices.
func batchShares(stream, bounds []int, totalBatch int) [][]float64 {
	fullBatches := len(stream) / totalBatch
	shares := make([][]float64, len(bounds))
	for i := range shares {
		shares[i] = make([]float64, fullBatches)
	}
	for b := 0; b < fullBatches; b++ {
		for _, idx := range stream[b*totalBatch : (b+1)*totalBatch] {
			shares[rangeOf(bounds, idx)][b] += 1.0 / float64(totalBatch)
		}
	}
	return shares
}

// rangeOf maps a global index to the range owning it.
func rangeOf(bounds []int, idx int) int {
	for i, b := range bounds {
		if idx < b {
			return i
		}
	}
	return len(bounds) - 1
}

// plotBatchShares writes a PNG with one line per range showing its share of
// every whole batch window, against the effective target shares.
func plotBatchShares(path string, shares [][]float64, effective []float64) error {
	p := plot.New()
	p.Title.Text = "Per-batch range shares"
	p.X.Label.Text = "batch"
	p.Y.Label.Text = "share"

	palette := []color.RGBA{
		{R: 20, G: 80, B: 200, A: 220},
		{R: 200, G: 30, B: 30, A: 220},
		{R: 40, G: 140, B: 40, A: 220},
		{R: 180, G: 120, B: 20, A: 220},
		{R: 120, G: 40, B: 160, A: 220},
	}
	for i, rangeShares := range shares {
		xys := make(plotter.XYs, len(rangeShares))
		for b, share := range rangeShares {
			xys[b] = plotter.XY{X: float64(b), Y: share}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = palette[i%len(palette)]
		line.Width = vg.Points(1.2)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("range %d (target %.3f)", i, effective[i]), line)
	}

	p.Add(plotter.NewGrid())
	p.Y.Min = 0
	p.Y.Max = 1

	if err := ensureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 6*vg.Inch, path)
}

func ensureDir(path string) error {
	// Attempt to create directory if it doesn't exist (silently succeed if present).
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0755)
}
