package datasets

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// TrainingSetConfig controls how windows are cut from each song.
type TrainingSetConfig struct {
	// Offset and Length define the window [i+Offset, i+Offset+Length)
	// around each chosen time step i. Length defaults to 1.
	Offset int
	Length int

	// NegativeRatio is the number of non-beat windows drawn per beat
	// window. Defaults to 1, a balanced set.
	NegativeRatio float64

	// Seed drives negative sampling and shuffling.
	Seed int64

	// Labels attached to the two classes. Default "positive", "negative".
	PositiveLabel string
	NegativeLabel string

	// BatchSize for Yield. Defaults to 32.
	BatchSize int
}

func (c TrainingSetConfig) withDefaults() TrainingSetConfig {
	if c.Length < 1 {
		c.Length = 1
	}
	if c.NegativeRatio <= 0 {
		c.NegativeRatio = 1
	}
	if c.PositiveLabel == "" {
		c.PositiveLabel = "positive"
	}
	if c.NegativeLabel == "" {
		c.NegativeLabel = "negative"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	return c
}

// TrainingSet holds beat and non-beat windows from a set of songs and
// serves them as a Dataset.
type TrainingSet struct {
	// BatchSize for yielding batches
	BatchSize int

	cfg     TrainingSetConfig
	samples []Sample
	order   []int
	rand    *rand.Rand
	cursor  int

	positives int
	negatives int
	skipped   int
}

var _ Dataset = (*TrainingSet)(nil)

// NewTrainingSet builds a training set from every song in dir. Songs that
// fail to load are logged and skipped; a metadata failure aborts.
func NewTrainingSet(dir *DataDir, cfg TrainingSetConfig) (*TrainingSet, error) {
	if _, err := dir.Metadata(); err != nil {
		return nil, err
	}
	ts := newTrainingSet(cfg)
	for song, err := range dir.Songs() {
		if err != nil {
			dir.logger.Warn("skipping song", slog.Any("error", err))
			ts.skipped++
			continue
		}
		ts.addSong(song)
	}
	dir.logger.Debug("built training set",
		slog.Int("positives", ts.positives),
		slog.Int("negatives", ts.negatives),
		slog.Int("skipped", ts.skipped))
	return ts, nil
}

// NewTrainingSetFromSongs builds a training set from already loaded songs.
func NewTrainingSetFromSongs(songs []*Song, cfg TrainingSetConfig) *TrainingSet {
	ts := newTrainingSet(cfg)
	for _, s := range songs {
		ts.addSong(s)
	}
	return ts
}

func newTrainingSet(cfg TrainingSetConfig) *TrainingSet {
	cfg = cfg.withDefaults()
	return &TrainingSet{
		BatchSize: cfg.BatchSize,
		cfg:       cfg,
		rand:      rand.New(rand.NewSource(cfg.Seed)),
	}
}

// addSong appends all beat windows of s and a random draw of non-beat
// windows sized by NegativeRatio.
func (t *TrainingSet) addSong(s *Song) {
	pos := s.Samples(s.BeatIndices(), t.cfg.PositiveLabel, t.cfg.Offset, t.cfg.Length)

	candidates := s.NonBeatIndices()
	want := int(math.Round(float64(len(pos)) * t.cfg.NegativeRatio))
	want = min(want, len(candidates))
	t.rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	chosen := candidates[:want]
	slices.Sort(chosen)
	neg := s.Samples(chosen, t.cfg.NegativeLabel, t.cfg.Offset, t.cfg.Length)

	for _, smp := range append(pos, neg...) {
		t.order = append(t.order, len(t.samples))
		t.samples = append(t.samples, smp)
	}
	t.positives += len(pos)
	t.negatives += len(neg)
}

// Len returns the number of windows.
func (t *TrainingSet) Len() int { return len(t.samples) }

// Positives is the number of beat windows.
func (t *TrainingSet) Positives() int { return t.positives }

// Negatives is the number of non-beat windows.
func (t *TrainingSet) Negatives() int { return t.negatives }

// Skipped is the number of songs that could not be loaded.
func (t *TrainingSet) Skipped() int { return t.skipped }

// Sample returns the window at position idx of the current order.
func (t *TrainingSet) Sample(idx int) (Sample, error) {
	if idx < 0 || idx >= len(t.order) {
		return Sample{}, fmt.Errorf("index %d out of range [0, %d)", idx, len(t.order))
	}
	return t.samples[t.order[idx]], nil
}

// Example returns the flattened window and its 0/1 label.
func (t *TrainingSet) Example(idx int) (inputs []float32, labels []float32, err error) {
	s, err := t.Sample(idx)
	if err != nil {
		return nil, nil, err
	}
	return flattenHist(s.Hist), []float32{t.labelValue(s)}, nil
}

// Batch reads multiple examples by their indices
func (t *TrainingSet) Batch(indices []int) ([][]float32, [][]float32, error) {
	inputs := make([][]float32, len(indices))
	labels := make([][]float32, len(indices))
	for i, idx := range indices {
		in, la, err := t.Example(idx)
		if err != nil {
			return nil, nil, err
		}
		inputs[i] = in
		labels[i] = la
	}
	return inputs, labels, nil
}

// Shuffle reorders the examples using seed.
func (t *TrainingSet) Shuffle(seed int64) {
	t.rand.Seed(seed)
	t.rand.Shuffle(len(t.order), func(i, j int) {
		t.order[i], t.order[j] = t.order[j], t.order[i]
	})
}

// Tensors returns the windows at indices as gomlx tensors.
func (t *TrainingSet) Tensors(indices []int) (inputs *tensors.Tensor, labels *tensors.Tensor, err error) {
	batch := make([]Sample, len(indices))
	for i, idx := range indices {
		if batch[i], err = t.Sample(idx); err != nil {
			return nil, nil, err
		}
	}
	flat, err := MakeSampleBatchFlat(batch, t.cfg.PositiveLabel)
	if err != nil {
		return nil, nil, err
	}
	return flat.ToGomlxTensors()
}

// Name returns the name of the dataset
func (t *TrainingSet) Name() string {
	return "TrainingSet"
}

// Yield returns the next BatchSize windows as tensors, a shorter batch at
// the end of the epoch and io.EOF once all windows were yielded.
func (t *TrainingSet) Yield() (spec any, inputs []*tensors.Tensor, labels []*tensors.Tensor, err error) {
	if t.cursor >= len(t.order) {
		return nil, nil, nil, io.EOF
	}
	end := min(t.cursor+t.BatchSize, len(t.order))
	indices := make([]int, 0, end-t.cursor)
	for i := t.cursor; i < end; i++ {
		indices = append(indices, i)
	}
	in, la, err := t.Tensors(indices)
	if err != nil {
		return nil, nil, nil, err
	}
	t.cursor = end
	return nil, []*tensors.Tensor{in}, []*tensors.Tensor{la}, nil
}

// Reset starts a new epoch.
func (t *TrainingSet) Reset() {
	t.cursor = 0
}

func (t *TrainingSet) labelValue(s Sample) float32 {
	if s.Label == t.cfg.PositiveLabel {
		return 1
	}
	return 0
}

func flattenHist(hist [][]float32) []float32 {
	n := 0
	for _, row := range hist {
		n += len(row)
	}
	out := make([]float32, 0, n)
	for _, row := range hist {
		out = append(out, row...)
	}
	return out
}
