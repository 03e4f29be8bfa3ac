// Package datasets loads the beat training data written by the mixxx_data
// producer and turns it into labeled training windows.
//
// A data directory holds one metadata record (info.pickle) and one record
// per song. DataDir reads the metadata once and loads songs on demand, so
// only the songs actually iterated are ever held in memory.
//
// Layout and intended usage:
//
//	dir := datasets.Open("/data/beats")
//	for song, err := range dir.Songs() {
//		if err != nil {
//			// missing or corrupt record, skip or abort
//			continue
//		}
//		pos := song.Samples(song.BeatIndices(), "positive", -2, 5)
//		neg := song.Samples(song.NonBeatIndices(), "negative", -2, 5)
//		...
//	}
//
// TrainingSet does the above for a whole directory and implements the
// Dataset interface below, including gomlx tensor batches.
package datasets

import "github.com/gomlx/gomlx/pkg/core/tensors"

// Dataset is the contract training loops consume. Inputs are flattened
// windows, labels are one element vectors (1 for beat, 0 for non-beat).
type Dataset interface {
	Len() int
	Example(i int) (inputs []float32, labels []float32, err error)
	Batch(indices []int) (inputs [][]float32, labels [][]float32, err error)
	Shuffle(seed int64)

	// To implement gomlx's train.Dataset interface
	Name() string
	Yield() (any, []*tensors.Tensor, []*tensors.Tensor, error)
	Reset()
}
