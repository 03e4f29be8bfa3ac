package datasets

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// SampleBatchFlat stores a batch of windows in contiguous buffers.
// Inputs is laid out [BatchSize][Window][Features], Labels is [BatchSize].
type SampleBatchFlat struct {
	Inputs    []float32
	Labels    []float32
	BatchSize int
	Window    int
	Features  int
}

// MakeSampleBatchFlat flattens samples. Samples labeled positiveLabel get
// label 1, all others 0. All samples must have the same window length and
// feature width.
func MakeSampleBatchFlat(samples []Sample, positiveLabel string) (*SampleBatchFlat, error) {
	if len(samples) == 0 {
		return &SampleBatchFlat{}, nil
	}

	window := len(samples[0].Hist)
	features := 0
	if window > 0 {
		features = len(samples[0].Hist[0])
	}
	stride := window * features

	b := &SampleBatchFlat{
		Inputs:    make([]float32, len(samples)*stride),
		Labels:    make([]float32, len(samples)),
		BatchSize: len(samples),
		Window:    window,
		Features:  features,
	}
	for i, s := range samples {
		if len(s.Hist) != window {
			return nil, fmt.Errorf("inconsistent window length at sample %d: expected %d, got %d",
				i, window, len(s.Hist))
		}
		for j, row := range s.Hist {
			if len(row) != features {
				return nil, fmt.Errorf("inconsistent feature width at sample %d step %d: expected %d, got %d",
					i, j, features, len(row))
			}
			copy(b.Inputs[i*stride+j*features:], row)
		}
		if s.Label == positiveLabel {
			b.Labels[i] = 1
		}
	}
	return b, nil
}

// ToGomlxTensors converts the batch to gomlx tensors shaped
// [batch, window, features] and [batch]. Empty batches and zero width
// windows give tensors with zero sized axes.
func (b *SampleBatchFlat) ToGomlxTensors() (*tensors.Tensor, *tensors.Tensor, error) {
	if want := b.BatchSize * b.Window * b.Features; len(b.Inputs) != want {
		return nil, nil, fmt.Errorf("inputs has %d values, want %d", len(b.Inputs), want)
	}
	if len(b.Labels) != b.BatchSize {
		return nil, nil, fmt.Errorf("labels has %d values, want %d", len(b.Labels), b.BatchSize)
	}
	inputs := tensors.FromFlatDataAndDimensions(b.Inputs, b.BatchSize, b.Window, b.Features)
	labels := tensors.FromFlatDataAndDimensions(b.Labels, b.BatchSize)
	return inputs, labels, nil
}
