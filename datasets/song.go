package datasets

import (
	"fmt"
	"maps"

	"github.com/Noofbiz/beatTrainer/record"
)

// Song is one decoded song record: a feature history with one row per time
// step and a beat grid of the same length.
type Song struct {
	Title        string
	BPM          float64
	OriginalFile string

	// Hist holds one feature vector per time step.
	Hist [][]float32
	// BeatGrid is true at time steps that contain a beat.
	BeatGrid []bool

	// Info is the nested track info of the record. Early records carry no
	// info blob; for them it holds title, bpm and original_file.
	Info map[string]any
}

// Sample is a fixed length window into a song.
type Sample struct {
	// Start is the first time step of the window in the song.
	Start    int
	Hist     [][]float32
	BeatGrid []bool
	Info     map[string]any
	Label    string
}

// Len is the number of time steps.
func (s *Song) Len() int { return len(s.Hist) }

// Width is the feature vector size, 0 for an empty song.
func (s *Song) Width() int {
	if len(s.Hist) == 0 {
		return 0
	}
	return len(s.Hist[0])
}

// BeatIndices returns the time steps where the beat grid is set, ascending.
func (s *Song) BeatIndices() []int {
	var out []int
	for i, b := range s.BeatGrid {
		if b {
			out = append(out, i)
		}
	}
	return out
}

// NonBeatIndices returns the time steps without a beat, ascending.
func (s *Song) NonBeatIndices() []int {
	var out []int
	for i, b := range s.BeatGrid {
		if !b {
			out = append(out, i)
		}
	}
	return out
}

// Samples cuts the window [i+offset, i+offset+length) for every index i.
// Windows that do not lie entirely inside the song are dropped without
// error, so the result may be shorter than indices. Order is preserved.
//
// The returned slices share memory with the song and must not be
// modified.
func (s *Song) Samples(indices []int, label string, offset, length int) []Sample {
	if length < 1 {
		return nil
	}
	n := s.Len()
	out := make([]Sample, 0, len(indices))
	for _, i := range indices {
		a := i + offset
		b := a + length
		if a < 0 || b > n {
			continue
		}
		out = append(out, Sample{
			Start:    a,
			Hist:     s.Hist[a:b:b],
			BeatGrid: s.BeatGrid[a:b:b],
			Info:     maps.Clone(s.Info),
			Label:    label,
		})
	}
	return out
}

// SamplesAt returns single step windows at indices.
func (s *Song) SamplesAt(indices []int, label string) []Sample {
	return s.Samples(indices, label, 0, 1)
}

// Track returns the typed track info of a later layout record. Early
// records carry no offset and report false.
func (s *Song) Track() (TrackInfo, bool) {
	ti, err := parseTrackInfo(s.Info)
	if err != nil {
		return TrackInfo{}, false
	}
	return ti, true
}

// parseSong maps a decoded song record onto a Song. Records with an "info"
// key use the later layout (info, hist, beat_grid), all others the early one
// (title, bpm, original_file, hist, target).
func parseSong(rec map[string]any) (*Song, error) {
	s := &Song{}
	gridKey := "beat_grid"

	if rawInfo, ok := rec["info"]; ok {
		if err := requireKeys(rec, "info", "hist", "beat_grid"); err != nil {
			return nil, err
		}
		info, ok := record.Map(rawInfo)
		if !ok {
			return nil, fmt.Errorf("info: expected a mapping, got %T", rawInfo)
		}
		s.Info = info
		s.Title, _ = record.String(info["title"])
		s.BPM, _ = record.Float(info["bpm"])
		s.OriginalFile, _ = record.String(info["loc"])
	} else {
		if err := requireKeys(rec, "title", "bpm", "original_file", "hist", "target"); err != nil {
			return nil, err
		}
		var err error
		if s.Title, err = stringField(rec, "title"); err != nil {
			return nil, err
		}
		if s.BPM, err = floatField(rec, "bpm"); err != nil {
			return nil, err
		}
		if s.OriginalFile, err = stringField(rec, "original_file"); err != nil {
			return nil, err
		}
		s.Info = map[string]any{
			"title":         s.Title,
			"bpm":           s.BPM,
			"original_file": s.OriginalFile,
		}
		gridKey = "target"
	}

	hist, err := floatMatrix(rec["hist"])
	if err != nil {
		return nil, fmt.Errorf("hist: %w", err)
	}
	grid, err := boolVector(rec[gridKey])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", gridKey, err)
	}
	if len(hist) != len(grid) {
		return nil, fmt.Errorf("hist has %d steps but %s has %d", len(hist), gridKey, len(grid))
	}
	s.Hist = hist
	s.BeatGrid = grid
	return s, nil
}
