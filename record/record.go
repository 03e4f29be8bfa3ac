// Package record decodes the per-directory and per-song records written by
// the mixxx_data producer into generic key-value form.
//
// The on-disk encoding is owned by the producer. This package only exposes
// a narrow Codec boundary, decode(bytes) -> map[string]any, so the datasets
// package can work with pickle, BSON or JSON records without knowing which.
package record

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"

	pickle "github.com/kisielk/og-rek"
	"go.mongodb.org/mongo-driver/bson"
)

// Codec decodes one serialized record into a mapping of field name to value.
//
// Decoded values are normalized: mappings become map[string]any, tuples,
// lists and arrays become []any, integers become int64 and None becomes nil.
type Codec interface {
	// Name is the short identifier used in configuration ("pickle", "bson", "json").
	Name() string
	// Ext is the file extension including the leading dot.
	Ext() string
	// Decode turns raw bytes into a record.
	Decode(data []byte) (map[string]any, error)
}

// ByName returns the codec registered under name.
func ByName(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pickle", "pkl":
		return Pickle{}, nil
	case "bson":
		return BSON{}, nil
	case "json":
		return JSON{}, nil
	}
	return nil, fmt.Errorf("unknown record codec %q", name)
}

// normalize converts codec specific container types into plain Go values.
func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string, float64, int64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case *big.Int:
		if t.IsInt64() {
			return t.Int64(), nil
		}
		f, _ := new(big.Float).SetInt(t).Float64()
		return f, nil
	case pickle.None:
		return nil, nil
	case pickle.Tuple:
		return normalizeList([]any(t))
	case bson.A:
		return normalizeList([]any(t))
	case []any:
		return normalizeList(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string mapping key %v (%T)", k, k)
			}
			nv, err := normalize(val)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = nv
		}
		return out, nil
	case bson.M:
		return normalizeMap(t)
	case map[string]any:
		return normalizeMap(t)
	case bson.D:
		out := make(map[string]any, len(t))
		for _, e := range t {
			nv, err := normalize(e.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Key, err)
			}
			out[e.Key] = nv
		}
		return out, nil
	}

	// pickle byte strings and other string-like named types
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}

func normalizeList(in []any) ([]any, error) {
	out := make([]any, len(in))
	for i, val := range in {
		nv, err := normalize(val)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = nv
	}
	return out, nil
}

func normalizeMap(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, val := range in {
		nv, err := normalize(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// toRecord normalizes a decoded top-level value and requires it to be a
// mapping. A sequence of (string, value) pairs is folded into a mapping,
// which is how the producer writes its early song records.
func toRecord(v any) (map[string]any, error) {
	nv, err := normalize(v)
	if err != nil {
		return nil, err
	}
	switch t := nv.(type) {
	case map[string]any:
		return t, nil
	case []any:
		return foldPairs(t)
	}
	return nil, fmt.Errorf("top-level value is %T, want a mapping", nv)
}

func foldPairs(items []any) (map[string]any, error) {
	out := make(map[string]any, len(items))
	for i, item := range items {
		pair, ok := item.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("item %d is not a (key, value) pair", i)
		}
		key, ok := pair[0].(string)
		if !ok {
			return nil, fmt.Errorf("item %d has non-string key %T", i, pair[0])
		}
		out[key] = pair[1]
	}
	return out, nil
}
