package datasets

import (
	"errors"
	"io"
	"reflect"
	"sort"
	"testing"
)

func TestTrainingSet_FromDirectory(t *testing.T) {
	tmp := t.TempDir()
	writeLegacyDir(t, tmp, "a.pickle", "missing.pickle", "b.pickle")
	// beats at 0, 3, 6, 9 in a 10 step song
	writePickle(t, tmp, "a.pickle", legacySong("a", rampHist(10, 2),
		[]bool{true, false, false, true, false, false, true, false, false, true}))
	// beats at 2, 5 in an 8 step song
	writePickle(t, tmp, "b.pickle", legacySong("b", rampHist(8, 2),
		[]bool{false, false, true, false, false, true, false, false}))

	ts, err := NewTrainingSet(Open(tmp), TrainingSetConfig{Offset: -1, Length: 3, Seed: 1})
	if err != nil {
		t.Fatalf("NewTrainingSet failed: %v", err)
	}
	if ts.Skipped() != 1 {
		t.Fatalf("expected the missing song to be skipped, got %d", ts.Skipped())
	}

	// Song a: windows [-1,2) and [8,11) fall outside, [2,5) and [5,8) stay.
	// Song b: [1,4) and [4,7) stay.
	if ts.Positives() != 4 {
		t.Fatalf("Positives = %d, want 4", ts.Positives())
	}
	if ts.Negatives() == 0 || ts.Negatives() > ts.Positives() {
		t.Fatalf("Negatives = %d, want between 1 and %d", ts.Negatives(), ts.Positives())
	}
	if ts.Len() != ts.Positives()+ts.Negatives() {
		t.Fatalf("Len %d != positives + negatives", ts.Len())
	}

	ones := 0
	for i := 0; i < ts.Len(); i++ {
		in, la, err := ts.Example(i)
		if err != nil {
			t.Fatalf("Example(%d) failed: %v", i, err)
		}
		if len(in) != 3*2 {
			t.Fatalf("Example(%d) has %d inputs, want 6", i, len(in))
		}
		if len(la) != 1 || (la[0] != 0 && la[0] != 1) {
			t.Fatalf("Example(%d) label = %v", i, la)
		}
		if la[0] == 1 {
			ones++
			// the middle step of a positive window is the beat
			smp, _ := ts.Sample(i)
			if !smp.BeatGrid[1] {
				t.Fatalf("positive window %d not centered on a beat: %v", i, smp.BeatGrid)
			}
		}
	}
	if ones != ts.Positives() {
		t.Fatalf("counted %d positive labels, want %d", ones, ts.Positives())
	}

	if _, _, err := ts.Example(ts.Len()); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestTrainingSet_MetadataFailureAborts(t *testing.T) {
	if _, err := NewTrainingSet(Open(t.TempDir()), TrainingSetConfig{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTrainingSet_NegativeRatio(t *testing.T) {
	s := newSong(50, 1, 10, 20, 30)
	ts := NewTrainingSetFromSongs([]*Song{s}, TrainingSetConfig{NegativeRatio: 2, Seed: 5})
	if ts.Positives() != 3 || ts.Negatives() != 6 {
		t.Fatalf("got %d positives / %d negatives, want 3 / 6", ts.Positives(), ts.Negatives())
	}

	// more negatives requested than available
	small := newSong(4, 1, 0, 1, 2)
	ts = NewTrainingSetFromSongs([]*Song{small}, TrainingSetConfig{NegativeRatio: 5})
	if ts.Negatives() != 1 {
		t.Fatalf("Negatives = %d, want 1", ts.Negatives())
	}

	// negatives never land on a beat
	for i := 0; i < ts.Len(); i++ {
		smp, _ := ts.Sample(i)
		if smp.Label == "negative" && smp.BeatGrid[0] {
			t.Fatalf("negative sample at %d is a beat", smp.Start)
		}
	}
}

func TestTrainingSet_ShufflePreservesExamples(t *testing.T) {
	s := newSong(30, 1, 2, 7, 11, 19, 23)
	ts := NewTrainingSetFromSongs([]*Song{s}, TrainingSetConfig{Seed: 9})

	starts := func() []int {
		out := make([]int, ts.Len())
		for i := range out {
			smp, _ := ts.Sample(i)
			out[i] = smp.Start
		}
		return out
	}
	before := starts()
	ts.Shuffle(42)
	after := starts()

	sort.Ints(before)
	sort.Ints(after)
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("shuffle changed the set of examples: %v vs %v", before, after)
		}
	}
}

func TestTrainingSet_YieldEpoch(t *testing.T) {
	s := newSong(20, 2, 3, 8, 13)
	ts := NewTrainingSetFromSongs([]*Song{s}, TrainingSetConfig{BatchSize: 4, Seed: 1})
	if ts.Len() != 6 {
		t.Fatalf("Len = %d, want 6", ts.Len())
	}

	batches := 0
	for {
		_, inputs, labels, err := ts.Yield()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Yield failed: %v", err)
		}
		if len(inputs) != 1 || len(labels) != 1 || inputs[0] == nil || labels[0] == nil {
			t.Fatalf("Yield returned %d inputs and %d labels", len(inputs), len(labels))
		}
		batches++
	}
	if batches != 2 {
		t.Fatalf("expected 2 batches (4 + 2), got %d", batches)
	}

	ts.Reset()
	if _, _, _, err := ts.Yield(); err != nil {
		t.Fatalf("Yield after Reset failed: %v", err)
	}
	if ts.Name() != "TrainingSet" {
		t.Fatalf("Name = %q", ts.Name())
	}
}

func TestMakeSampleBatchFlat(t *testing.T) {
	s := newSong(6, 3, 1, 4)
	samples := append(s.Samples([]int{1, 4}, "pos", 0, 2), s.Samples([]int{2}, "neg", 0, 2)...)
	// windows [1,3), [4,6) and [2,4) all fit a 6 step song
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}

	flat, err := MakeSampleBatchFlat(samples, "pos")
	if err != nil {
		t.Fatalf("MakeSampleBatchFlat failed: %v", err)
	}
	if flat.BatchSize != 3 || flat.Window != 2 || flat.Features != 3 {
		t.Fatalf("unexpected shape %d/%d/%d", flat.BatchSize, flat.Window, flat.Features)
	}
	if len(flat.Inputs) != 3*2*3 {
		t.Fatalf("Inputs has %d values, want 18", len(flat.Inputs))
	}
	// second step of the first window is song row 2
	if flat.Inputs[3] != 2 {
		t.Fatalf("Inputs[3] = %v, want 2", flat.Inputs[3])
	}
	if flat.Labels[0] != 1 || flat.Labels[1] != 1 || flat.Labels[2] != 0 {
		t.Fatalf("Labels = %v, want [1 1 0]", flat.Labels)
	}
	in, la, err := flat.ToGomlxTensors()
	if err != nil {
		t.Fatalf("ToGomlxTensors failed: %v", err)
	}
	if dims := in.Shape().Dimensions; !reflect.DeepEqual(dims, []int{3, 2, 3}) {
		t.Fatalf("input dimensions = %v, want [3 2 3]", dims)
	}
	if dims := la.Shape().Dimensions; !reflect.DeepEqual(dims, []int{3}) {
		t.Fatalf("label dimensions = %v, want [3]", dims)
	}

	mixed := append(s.Samples([]int{0}, "pos", 0, 1), s.Samples([]int{0}, "neg", 0, 2)...)
	if _, err := MakeSampleBatchFlat(mixed, "pos"); err == nil {
		t.Fatalf("expected error for inconsistent window lengths")
	}

	empty, err := MakeSampleBatchFlat(nil, "pos")
	if err != nil || empty.BatchSize != 0 {
		t.Fatalf("empty batch: %+v, %v", empty, err)
	}
	in, la, err = empty.ToGomlxTensors()
	if err != nil {
		t.Fatalf("empty ToGomlxTensors failed: %v", err)
	}
	if in.Shape().Size() != 0 || la.Shape().Size() != 0 {
		t.Fatalf("empty batch tensors have sizes %d and %d", in.Shape().Size(), la.Shape().Size())
	}

	// zero width histories give a zero sized feature axis
	flatSong := newSong(4, 0, 1)
	zero, err := MakeSampleBatchFlat(flatSong.Samples([]int{0, 1}, "pos", 0, 2), "pos")
	if err != nil {
		t.Fatalf("zero width batch: %v", err)
	}
	in, _, err = zero.ToGomlxTensors()
	if err != nil {
		t.Fatalf("zero width ToGomlxTensors failed: %v", err)
	}
	if dims := in.Shape().Dimensions; !reflect.DeepEqual(dims, []int{2, 2, 0}) {
		t.Fatalf("zero width dimensions = %v, want [2 2 0]", dims)
	}
}

func TestTrainingSet_EmptyTensors(t *testing.T) {
	ts := NewTrainingSetFromSongs(nil, TrainingSetConfig{})
	in, la, err := ts.Tensors(nil)
	if err != nil {
		t.Fatalf("Tensors(nil) failed: %v", err)
	}
	if in.Shape().Size() != 0 || la.Shape().Size() != 0 {
		t.Fatalf("expected empty tensors")
	}
}
