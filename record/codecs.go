package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	pickle "github.com/kisielk/og-rek"
	"go.mongodb.org/mongo-driver/bson"
)

// Pickle decodes Python pickle streams (protocols 0 to 4), the producer's
// native format.
type Pickle struct{}

func (Pickle) Name() string { return "pickle" }
func (Pickle) Ext() string  { return ".pickle" }

// Decode never panics: og-rek can panic on corrupt length fields, which is
// reported as a decode error.
func (Pickle) Decode(data []byte) (rec map[string]any, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty pickle stream")
	}
	defer func() {
		if p := recover(); p != nil {
			rec, err = nil, fmt.Errorf("failed to unpickle: %v", p)
		}
	}()
	v, err := pickle.NewDecoder(bytes.NewReader(data)).Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to unpickle: %w", err)
	}
	return toRecord(v)
}

// BSON decodes a single BSON document.
type BSON struct{}

func (BSON) Name() string { return "bson" }
func (BSON) Ext() string  { return ".bson" }

func (BSON) Decode(data []byte) (map[string]any, error) {
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bson: %w", err)
	}
	return toRecord(doc)
}

// JSON decodes a single JSON object.
type JSON struct{}

func (JSON) Name() string { return "json" }
func (JSON) Ext() string  { return ".json" }

func (JSON) Decode(data []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal json: %w", err)
	}
	return toRecord(v)
}
