package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/scenesync/internal/canon"
)

// marshalData converts a record payload to canonical JSON TEXT for storage.
func marshalData(data canon.Object) (string, error) {
	raw, err := canon.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("marshal data: %w", err)
	}
	return string(raw), nil
}

// unmarshalData parses canonical JSON TEXT. canon.Object keeps integers as
// Int, so large values survive without float64 rounding.
func unmarshalData(data string) (canon.Object, error) {
	if data == "" || data == "{}" {
		return canon.Object{}, nil
	}
	var obj canon.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	return obj, nil
}
