package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// JSONEncode encodes a value to JSON bytes (fail-fast).
func JSONEncode(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, Internal(nil, "cannot encode nil value")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json encode failed: %w", err)
	}
	return data, nil
}

// JSONDecode decodes JSON bytes to a value (fail-fast).
// Trailing data after the first value is rejected.
func JSONDecode(data []byte, v interface{}) error {
	if len(data) == 0 {
		return Validation("request body is empty")
	}
	if v == nil {
		return Internal(nil, "cannot decode into nil value")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return Validation("invalid JSON body: %v", err)
	}
	if dec.More() {
		return Validation("invalid JSON body: trailing data")
	}
	return nil
}
