package entity

import (
	"encoding/json"
	"fmt"
)

// Document is a single record of a document store collection.
// Data is the JSON object of the record's fields, including "id".
type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Snapshot is the full contents of a collection at one point in time
type Snapshot struct {
	Collection string
	Documents  []Document
}

// Decode unmarshals the document's fields into v
func (d Document) Decode(v any) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", d.ID, err)
	}
	return nil
}

// DecodeDocuments decodes every document of a snapshot into T.
// Documents that fail to decode are skipped and reported in the returned error.
func DecodeDocuments[T any](docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	var firstErr error
	for _, d := range docs {
		var v T
		if err := d.Decode(&v); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		out = append(out, v)
	}
	return out, firstErr
}
