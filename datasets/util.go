package datasets

import (
	"fmt"

	"github.com/Noofbiz/beatTrainer/record"
)

// requireKeys fails on the first key missing from rec.
func requireKeys(rec map[string]any, keys ...string) error {
	for _, k := range keys {
		if _, ok := rec[k]; !ok {
			return fmt.Errorf("missing required key %q", k)
		}
	}
	return nil
}

// firstPresent returns the value of the first key present in rec.
func firstPresent(rec map[string]any, keys ...string) (any, string, bool) {
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			return v, k, true
		}
	}
	return nil, "", false
}

func floatField(rec map[string]any, keys ...string) (float64, error) {
	v, key, ok := firstPresent(rec, keys...)
	if !ok {
		return 0, fmt.Errorf("missing required key %q", keys[0])
	}
	f, ok := record.Float(v)
	if !ok {
		return 0, fmt.Errorf("%s: expected a number, got %T", key, v)
	}
	return f, nil
}

func intField(rec map[string]any, key string) (int, error) {
	v, ok := rec[key]
	if !ok {
		return 0, fmt.Errorf("missing required key %q", key)
	}
	n, ok := record.Int(v)
	if !ok {
		return 0, fmt.Errorf("%s: expected an integer, got %T", key, v)
	}
	return n, nil
}

func stringField(rec map[string]any, key string) (string, error) {
	v, ok := rec[key]
	if !ok {
		return "", fmt.Errorf("missing required key %q", key)
	}
	s, ok := record.String(v)
	if !ok {
		return "", fmt.Errorf("%s: expected a string, got %T", key, v)
	}
	return s, nil
}

func listField(rec map[string]any, key string) ([]any, error) {
	v, ok := rec[key]
	if !ok {
		return nil, fmt.Errorf("missing required key %q", key)
	}
	l, ok := record.List(v)
	if !ok {
		return nil, fmt.Errorf("%s: expected a list, got %T", key, v)
	}
	return l, nil
}

func stringList(v any) ([]string, error) {
	items, ok := record.List(v)
	if !ok {
		return nil, fmt.Errorf("expected a list of strings, got %T", v)
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := record.String(item)
		if !ok {
			return nil, fmt.Errorf("[%d]: expected a string, got %T", i, item)
		}
		out[i] = s
	}
	return out, nil
}

// floatMatrix converts a list of numeric rows. All rows must share a width.
func floatMatrix(v any) ([][]float32, error) {
	rows, ok := record.List(v)
	if !ok {
		return nil, fmt.Errorf("expected a list of rows, got %T", v)
	}
	out := make([][]float32, len(rows))
	width := -1
	for i, r := range rows {
		cells, ok := record.List(r)
		if !ok {
			return nil, fmt.Errorf("row %d: expected a list, got %T", i, r)
		}
		if width == -1 {
			width = len(cells)
		} else if len(cells) != width {
			return nil, fmt.Errorf("row %d has width %d, expected %d", i, len(cells), width)
		}
		row := make([]float32, len(cells))
		for j, c := range cells {
			f, ok := record.Float(c)
			if !ok {
				return nil, fmt.Errorf("row %d col %d: expected a number, got %T", i, j, c)
			}
			row[j] = float32(f)
		}
		out[i] = row
	}
	return out, nil
}

func boolVector(v any) ([]bool, error) {
	items, ok := record.List(v)
	if !ok {
		return nil, fmt.Errorf("expected a list of booleans, got %T", v)
	}
	out := make([]bool, len(items))
	for i, item := range items {
		b, ok := record.Bool(item)
		if !ok {
			return nil, fmt.Errorf("[%d]: expected a boolean, got %v", i, item)
		}
		out[i] = b
	}
	return out, nil
}
