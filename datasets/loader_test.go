package datasets

import (
	"io"
	"testing"

	"github.com/Noofbiz/balanceBowl/sampler"
)

func newTestLoader(t *testing.T, cfg sampler.Config) (*ConcatDataset, *BalancedLoader) {
	t.Helper()
	c, err := NewConcatDataset(
		[]Dataset{newMemDataset(0, 6), newMemDataset(100, 4)},
		[]float64{0.6, 0.4},
	)
	if err != nil {
		t.Fatalf("NewConcatDataset failed: %v", err)
	}
	s, err := sampler.New(c, 0, 1, cfg)
	if err != nil {
		t.Fatalf("sampler.New failed: %v", err)
	}
	l, err := NewBalancedLoader(c, s, cfg.SamplesPerReplica)
	if err != nil {
		t.Fatalf("NewBalancedLoader failed: %v", err)
	}
	return c, l
}

func TestBalancedLoaderYieldsWholeEpoch(t *testing.T) {
	_, l := newTestLoader(t, sampler.Config{SamplesPerReplica: 5})

	// 10 samples at batch size 5: two full batches, then io.EOF.
	yields := 0
	for {
		_, inputs, labels, err := l.Yield()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Yield failed: %v", err)
		}
		if len(inputs) != 1 || len(labels) != 1 {
			t.Fatalf("expected one input and one label tensor, got %d and %d", len(inputs), len(labels))
		}
		if inputs[0] == nil || labels[0] == nil {
			t.Fatalf("Yield returned nil tensor(s)")
		}
		yields++
		if yields > 10 {
			t.Fatalf("Yield never returned io.EOF")
		}
	}
	if yields != 2 {
		t.Fatalf("expected 2 batches per epoch, got %d", yields)
	}
}

func TestBalancedLoaderRestartAdvancesEpoch(t *testing.T) {
	_, l := newTestLoader(t, sampler.Config{SamplesPerReplica: 5, Shuffle: true})

	if l.Epoch() != 0 {
		t.Fatalf("fresh loader reports epoch %d", l.Epoch())
	}
	for {
		if _, _, _, err := l.Yield(); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Yield failed: %v", err)
		}
	}

	if err := l.Restart(); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if l.Epoch() != 1 {
		t.Fatalf("expected epoch 1 after Restart, got %d", l.Epoch())
	}

	// The new epoch serves a full stream again.
	yields := 0
	for {
		_, _, _, err := l.Yield()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Yield failed after Restart: %v", err)
		}
		yields++
	}
	if yields != 2 {
		t.Fatalf("expected 2 batches in epoch 1, got %d", yields)
	}
}

func TestBalancedLoaderPartialFinalBatch(t *testing.T) {
	_, l := newTestLoader(t, sampler.Config{SamplesPerReplica: 4})

	// 10 samples at batch size 4: batches of 4, 4, then 2.
	var sizes []int
	for {
		_, inputs, _, err := l.Yield()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Yield failed: %v", err)
		}
		v := inputs[0].Value()
		rows, ok := v.([][]float32)
		if !ok {
			t.Fatalf("unexpected tensor value type %T", v)
		}
		sizes = append(sizes, len(rows))
	}
	want := []int{4, 4, 2}
	if len(sizes) != len(want) {
		t.Fatalf("expected %d batches, got %v", len(want), sizes)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("batch sizes %v, want %v", sizes, want)
		}
	}
}
