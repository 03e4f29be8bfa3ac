package main

// Example command that opens a producer data directory, walks its songs and
// turns a small batch of training windows into gomlx tensors.
//
// Songs are loaded lazily: the directory only reads a record when the
// iteration reaches it, so memory use stays at one song at a time while
// scanning.
//
// Usage:
//   go run ./datasets/example -dir path/to/data
//
// The directory must contain info.pickle and the song records it lists.

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/Noofbiz/beatTrainer/datasets"
)

func main() {
	dirPath := flag.String("dir", "data", "directory written by the producer")
	flag.Parse()

	dir := datasets.Open(*dirPath)
	info, err := dir.Metadata()
	if err != nil {
		log.Fatalf("failed to read metadata: %v", err)
	}
	fmt.Printf("Using %s (%s schema, %d files)\n", dir.MetadataPath(), info.Schema, len(info.FileNames()))

	for song, err := range dir.Songs() {
		if err != nil {
			log.Printf("skipping song: %v", err)
			continue
		}
		fmt.Printf("  %s: %d steps, %d beats\n", song.Title, song.Len(), len(song.BeatIndices()))
	}

	ts, err := datasets.NewTrainingSet(dir, datasets.TrainingSetConfig{Offset: -2, Length: 5, Seed: 1})
	if err != nil {
		log.Fatalf("failed to build training set: %v", err)
	}
	fmt.Printf("Training windows: %d (%d beat, %d non-beat)\n", ts.Len(), ts.Positives(), ts.Negatives())

	n := min(8, ts.Len())
	if n == 0 {
		return
	}
	ts.Shuffle(1)
	indices := make([]int, n)
	for i := range n {
		indices[i] = i
	}

	fmt.Printf("Loading batch of %d windows...\n", n)
	inT, laT, err := ts.Tensors(indices)
	if err != nil {
		log.Fatalf("failed to convert batch to gomlx tensors: %v", err)
	}
	fmt.Printf("Created tensors: input=%s label=%s\n", inT.Shape(), laT.Shape())

	// Yield walks the whole set in BatchSize chunks, as a training loop would.
	batches := 0
	for {
		_, _, _, err := ts.Yield()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Fatalf("failed to yield batch: %v", err)
		}
		batches++
	}
	fmt.Printf("Yielded %d batches of up to %d windows\n", batches, ts.BatchSize)
}
