package datasets

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pickle "github.com/kisielk/og-rek"
)

// writePickle encodes v as a pickle file at dir/name.
func writePickle(t *testing.T, dir, name string, v any) {
	t.Helper()
	var buf bytes.Buffer
	if err := pickle.NewEncoder(&buf).Encode(v); err != nil {
		t.Fatalf("failed to encode %s: %v", name, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func pickleHist(hist [][]float64) []any {
	rows := make([]any, len(hist))
	for i, r := range hist {
		row := make([]any, len(r))
		for j, v := range r {
			row[j] = v
		}
		rows[i] = row
	}
	return rows
}

func pickleGrid(grid []bool) []any {
	out := make([]any, len(grid))
	for i, b := range grid {
		out[i] = b
	}
	return out
}

// rampHist returns n rows of width w where row i holds the value i.
func rampHist(n, w int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		row := make([]float64, w)
		for j := range row {
			row[j] = float64(i)
		}
		out[i] = row
	}
	return out
}

// legacySong is the early producer layout: a tuple of (key, value) tuples.
func legacySong(title string, hist [][]float64, grid []bool) pickle.Tuple {
	return pickle.Tuple{
		pickle.Tuple{"title", title},
		pickle.Tuple{"bpm", 128.0},
		pickle.Tuple{"original_file", "/music/" + title + ".mp3"},
		pickle.Tuple{"hist", pickleHist(hist)},
		pickle.Tuple{"target", pickleGrid(grid)},
	}
}

func trackInfo(title string) map[any]any {
	return map[any]any{
		"title":  title,
		"loc":    "/music/" + title + ".flac",
		"bpm":    120.0,
		"offset": int64(0),
	}
}

// processedSong is the later ProcessedTrack layout.
func processedSong(title string, hist [][]float64, grid []bool) map[any]any {
	return map[any]any{
		"info":      trackInfo(title),
		"hist":      pickleHist(hist),
		"beat_grid": pickleGrid(grid),
	}
}

func writeLegacyDir(t *testing.T, dir string, files ...string) {
	t.Helper()
	list := make([]any, len(files))
	for i, f := range files {
		list[i] = f
	}
	writePickle(t, dir, "info.pickle", map[any]any{
		"f_low":     30.0,
		"f_high":    15000.0,
		"q":         5.0,
		"n_filters": int64(4),
		"rate":      100.0,
		"files":     list,
	})
}

// writePartitionedDir lists files as processed, each titled after its file
// name without extension.
func writePartitionedDir(t *testing.T, dir string, files ...string) {
	t.Helper()
	processed := make([]any, len(files))
	for i, f := range files {
		title := strings.TrimSuffix(f, filepath.Ext(f))
		processed[i] = map[any]any{"info": trackInfo(title), "filename": f}
	}
	writePickle(t, dir, "info.pickle", map[any]any{
		"params": map[any]any{
			"low": 30.0, "high": 15000.0, "q": 5.0, "n_filters": int64(4), "rate": 100.0,
		},
		"to_process": []any{trackInfo("queued")},
		"processed":  processed,
		"failed": []any{
			map[any]any{"info": trackInfo("broken"), "error": "Could not parse track file."},
		},
	})
}
