package simple

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config holds configurable hyperparameters for the classifier and training.
type Config struct {
	// HiddenSizes is the list of hidden layer sizes. Example: []int{64, 32}
	// If empty, a single hidden layer of size 32 will be used.
	HiddenSizes []int

	// InputDim is the size of a flattened window (window length * feature
	// width). Required.
	InputDim int

	// LearningRate used by SGD. Default 0.05.
	LearningRate float64

	// Epochs to train for (default if 0 will be set by NewModel to 10).
	Epochs int

	// BatchSize for mini-batch updates (default if 0 will be set by NewModel to 16).
	BatchSize int

	// Seed controls RNG for weight init and shuffling. If zero, time-based seed is used.
	Seed int64
}

// Dataset is the minimal interface this package requires from a training set.
// datasets.TrainingSet satisfies it.
type Dataset interface {
	Len() int
	// Batch returns inputs and labels for the provided indices.
	// Inputs are flattened windows of InputDim values.
	// Labels are one element vectors, 1 for a beat window and 0 otherwise.
	Batch(indices []int) ([][]float32, [][]float32, error)
}

// Model is a small MLP that scores a window with the probability that it
// is centered on a beat. Hidden layers use ReLU, the single output unit a
// sigmoid, and training minimizes binary cross entropy.
type Model struct {
	// Config used for training / initialization.
	Config Config

	// layerSizes includes input size, hidden sizes, then output size.
	layerSizes []int

	// weights[l] is a matrix of shape [out][in] for layer l -> l+1
	weights [][][]float32

	// biases[l] is a vector of length out for layer l -> l+1
	biases [][]float32

	rng *rand.Rand
}

// NewModel creates a new Model instance with the provided configuration.
func NewModel(cfg Config) (*Model, error) {
	if cfg.InputDim <= 0 {
		return nil, errors.New("input dimension must be positive")
	}
	if len(cfg.HiddenSizes) == 0 {
		cfg.HiddenSizes = []int{32}
	}
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.05
	}
	if cfg.Epochs == 0 {
		cfg.Epochs = 10
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 16
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	m := &Model{
		Config: cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}

	sizes := make([]int, 0, 2+len(cfg.HiddenSizes))
	sizes = append(sizes, cfg.InputDim)
	sizes = append(sizes, cfg.HiddenSizes...)
	sizes = append(sizes, 1)
	m.layerSizes = sizes

	L := len(sizes) - 1
	m.weights = make([][][]float32, L)
	m.biases = make([][]float32, L)
	for l := 0; l < L; l++ {
		in := sizes[l]
		out := sizes[l+1]
		// Xavier/Glorot uniform initialization
		limit := float32(math.Sqrt(6.0 / float64(in+out)))
		mat := make([][]float32, out)
		for j := range mat {
			row := make([]float32, in)
			for i := range row {
				row[i] = (m.rng.Float32()*2 - 1) * limit
			}
			mat[j] = row
		}
		m.weights[l] = mat
		m.biases[l] = make([]float32, out)
	}
	return m, nil
}

func sigmoid(x float32) float32 {
	return float32(1 / (1 + math.Exp(-float64(x))))
}

// forwardSingle returns pre-activations per layer and activations per layer
// (activations[0] is the input, the last one the output probability).
func (m *Model) forwardSingle(input []float32) (preActs [][]float32, acts [][]float32, err error) {
	if len(input) != m.layerSizes[0] {
		return nil, nil, errors.New("input has incorrect dimension")
	}
	L := len(m.weights)
	acts = make([][]float32, L+1)
	acts[0] = input
	preActs = make([][]float32, L)
	for l := 0; l < L; l++ {
		inVec := acts[l]
		W := m.weights[l]
		pre := make([]float32, len(m.biases[l]))
		act := make([]float32, len(pre))
		for j := range pre {
			sum := m.biases[l][j]
			for i, x := range inVec {
				sum += W[j][i] * x
			}
			pre[j] = sum
			switch {
			case l == L-1:
				act[j] = sigmoid(sum)
			case sum > 0:
				act[j] = sum
			}
		}
		preActs[l] = pre
		acts[l+1] = act
	}
	return preActs, acts, nil
}

// PredictBatch returns the beat probability for each input as a one element
// vector.
func (m *Model) PredictBatch(inputs [][]float32) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		_, acts, err := m.forwardSingle(in)
		if err != nil {
			return nil, err
		}
		out[i] = []float32{acts[len(acts)-1][0]}
	}
	return out, nil
}

// TrainWithDataset runs mini-batch SGD over ds for Config.Epochs epochs.
func (m *Model) TrainWithDataset(ds Dataset) error {
	if ds == nil {
		return errors.New("dataset is nil")
	}
	n := ds.Len()
	if n == 0 {
		return errors.New("dataset has no examples")
	}
	lr := float32(m.Config.LearningRate)

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	L := len(m.weights)
	for ep := 0; ep < m.Config.Epochs; ep++ {
		m.rng.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})

		for bstart := 0; bstart < n; bstart += m.Config.BatchSize {
			bend := min(bstart+m.Config.BatchSize, n)
			inputs, labels, err := ds.Batch(indices[bstart:bend])
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				continue
			}

			gradW := make([][][]float32, L)
			gradB := make([][]float32, L)
			for l := 0; l < L; l++ {
				gradW[l] = make([][]float32, len(m.biases[l]))
				for j := range gradW[l] {
					gradW[l][j] = make([]float32, len(m.weights[l][j]))
				}
				gradB[l] = make([]float32, len(m.biases[l]))
			}

			for ex, in := range inputs {
				preacts, acts, err := m.forwardSingle(in)
				if err != nil {
					return err
				}
				// sigmoid + binary cross entropy: dLoss/dPre = p - y
				delta := []float32{acts[L][0] - labels[ex][0]}

				for l := L - 1; l >= 0; l-- {
					inAct := acts[l]
					for j, d := range delta {
						gradB[l][j] += d
						for i, x := range inAct {
							gradW[l][j][i] += d * x
						}
					}
					if l == 0 {
						break
					}
					prev := make([]float32, len(inAct))
					for i := range prev {
						if preacts[l-1][i] <= 0 {
							continue
						}
						var sum float32
						for j, d := range delta {
							sum += m.weights[l][j][i] * d
						}
						prev[i] = sum
					}
					delta = prev
				}
			}

			scale := lr / float32(len(inputs))
			for l := 0; l < L; l++ {
				for j := range m.biases[l] {
					m.biases[l][j] -= scale * gradB[l][j]
					for i := range m.weights[l][j] {
						m.weights[l][j][i] -= scale * gradW[l][j][i]
					}
				}
			}
		}
	}
	return nil
}

// predictAll scores every example of ds and returns the probabilities
// alongside the labels.
func (m *Model) predictAll(ds Dataset) ([][]float32, [][]float32, error) {
	n := ds.Len()
	if n == 0 {
		return nil, nil, errors.New("dataset has no examples")
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	inputs, labels, err := ds.Batch(indices)
	if err != nil {
		return nil, nil, err
	}
	preds, err := m.PredictBatch(inputs)
	if err != nil {
		return nil, nil, err
	}
	return preds, labels, nil
}

// Loss returns the mean binary cross entropy over ds.
func (m *Model) Loss(ds Dataset) (float64, error) {
	preds, labels, err := m.predictAll(ds)
	if err != nil {
		return 0, err
	}
	const eps = 1e-7
	var loss float64
	for i, p := range preds {
		prob := math.Min(math.Max(float64(p[0]), eps), 1-eps)
		y := float64(labels[i][0])
		loss -= y*math.Log(prob) + (1-y)*math.Log(1-prob)
	}
	return loss / float64(len(preds)), nil
}

// Accuracy returns the fraction of examples whose probability falls on the
// same side of threshold as their label.
func (m *Model) Accuracy(ds Dataset, threshold float32) (float64, error) {
	preds, labels, err := m.predictAll(ds)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i, p := range preds {
		if (p[0] >= threshold) == (labels[i][0] >= 0.5) {
			correct++
		}
	}
	return float64(correct) / float64(len(preds)), nil
}
