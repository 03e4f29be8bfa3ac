package datasets

import (
	"fmt"

	"github.com/Noofbiz/beatTrainer/record"
)

// Schema identifies which metadata layout a directory was written with.
type Schema int

const (
	// SchemaPartitioned is the current layout: params, to_process,
	// processed and failed.
	SchemaPartitioned Schema = iota
	// SchemaLegacy is the early layout with flat filter parameters and a
	// files list.
	SchemaLegacy
)

func (s Schema) String() string {
	if s == SchemaLegacy {
		return "legacy"
	}
	return "partitioned"
}

// ProcessingParams are the filter bank parameters the producer used.
type ProcessingParams struct {
	FLow     float64 // lowest captured frequency in Hz
	FHigh    float64 // highest captured frequency in Hz
	Q        float64
	NFilters int
	Rate     float64 // subsampling rate in Hz, one history row per 1/Rate seconds
}

// TrackInfo identifies the source track of a song record.
type TrackInfo struct {
	Title    string
	Location string
	BPM      float64
	Offset   int // first beat, in audio frames
}

// ProcessedEntry is a track that was written to Filename.
type ProcessedEntry struct {
	Info     TrackInfo
	Filename string
}

// FailedEntry is a track the producer could not process.
type FailedEntry struct {
	Info  TrackInfo
	Error string
}

// DataSetInfo is the decoded directory metadata record.
type DataSetInfo struct {
	Schema Schema
	Params ProcessingParams

	// Files is only set for SchemaLegacy.
	Files []string

	ToProcess []TrackInfo
	Processed []ProcessedEntry
	Failed    []FailedEntry

	// Raw is the decoded record as read from disk.
	Raw map[string]any
}

// FileNames lists the song record files in order.
func (i *DataSetInfo) FileNames() []string {
	if i.Schema == SchemaLegacy {
		return append([]string(nil), i.Files...)
	}
	names := make([]string, len(i.Processed))
	for n, p := range i.Processed {
		names[n] = p.Filename
	}
	return names
}

// parseDataSetInfo maps a decoded metadata record onto DataSetInfo. The
// presence of a "files" key selects the legacy layout.
func parseDataSetInfo(rec map[string]any) (*DataSetInfo, error) {
	info := &DataSetInfo{Raw: rec}

	if _, legacy := rec["files"]; legacy {
		if err := requireKeys(rec, "f_low", "f_high", "q", "n_filters", "rate", "files"); err != nil {
			return nil, err
		}
		params, err := parseParams(rec)
		if err != nil {
			return nil, err
		}
		files, err := stringList(rec["files"])
		if err != nil {
			return nil, fmt.Errorf("files: %w", err)
		}
		info.Schema = SchemaLegacy
		info.Params = params
		info.Files = files
		return info, nil
	}

	if err := requireKeys(rec, "params", "to_process", "processed", "failed"); err != nil {
		return nil, err
	}
	pm, ok := record.Map(rec["params"])
	if !ok {
		return nil, fmt.Errorf("params: expected a mapping, got %T", rec["params"])
	}
	params, err := parseParams(pm)
	if err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	info.Schema = SchemaPartitioned
	info.Params = params

	toProcess, err := listField(rec, "to_process")
	if err != nil {
		return nil, err
	}
	for i, v := range toProcess {
		ti, err := parseTrackInfo(v)
		if err != nil {
			return nil, fmt.Errorf("to_process[%d]: %w", i, err)
		}
		info.ToProcess = append(info.ToProcess, ti)
	}

	processed, err := listField(rec, "processed")
	if err != nil {
		return nil, err
	}
	for i, v := range processed {
		entry, filename, err := parseEntry(v, "filename")
		if err != nil {
			return nil, fmt.Errorf("processed[%d]: %w", i, err)
		}
		info.Processed = append(info.Processed, ProcessedEntry{Info: entry, Filename: filename})
	}

	failed, err := listField(rec, "failed")
	if err != nil {
		return nil, err
	}
	for i, v := range failed {
		entry, msg, err := parseEntry(v, "error")
		if err != nil {
			return nil, fmt.Errorf("failed[%d]: %w", i, err)
		}
		info.Failed = append(info.Failed, FailedEntry{Info: entry, Error: msg})
	}

	return info, nil
}

// parseParams accepts both the legacy key names (f_low, f_high) and the
// producer's struct field names (low, high).
func parseParams(m map[string]any) (ProcessingParams, error) {
	var p ProcessingParams
	var err error
	if p.FLow, err = floatField(m, "f_low", "low"); err != nil {
		return p, err
	}
	if p.FHigh, err = floatField(m, "f_high", "high"); err != nil {
		return p, err
	}
	if p.Q, err = floatField(m, "q"); err != nil {
		return p, err
	}
	if p.NFilters, err = intField(m, "n_filters"); err != nil {
		return p, err
	}
	if p.Rate, err = floatField(m, "rate"); err != nil {
		return p, err
	}
	return p, nil
}

func parseTrackInfo(v any) (TrackInfo, error) {
	var ti TrackInfo
	m, ok := record.Map(v)
	if !ok {
		return ti, fmt.Errorf("expected a track info mapping, got %T", v)
	}
	var err error
	if ti.Title, err = stringField(m, "title"); err != nil {
		return ti, err
	}
	if ti.Location, err = stringField(m, "loc"); err != nil {
		return ti, err
	}
	if ti.BPM, err = floatField(m, "bpm"); err != nil {
		return ti, err
	}
	if ti.Offset, err = intField(m, "offset"); err != nil {
		return ti, err
	}
	return ti, nil
}

// parseEntry reads a {info, <key>} mapping as used by processed and failed.
func parseEntry(v any, key string) (TrackInfo, string, error) {
	m, ok := record.Map(v)
	if !ok {
		return TrackInfo{}, "", fmt.Errorf("expected a mapping, got %T", v)
	}
	if err := requireKeys(m, "info", key); err != nil {
		return TrackInfo{}, "", err
	}
	ti, err := parseTrackInfo(m["info"])
	if err != nil {
		return TrackInfo{}, "", fmt.Errorf("info: %w", err)
	}
	s, err := stringField(m, key)
	if err != nil {
		return TrackInfo{}, "", err
	}
	return ti, s, nil
}
