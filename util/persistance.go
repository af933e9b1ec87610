package util

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// PersistJSON atomically replaces filename with the JSON encoding of v.
func PersistJSON(filename string, v any) error {
	var w bytes.Buffer
	if err := json.NewEncoder(&w).Encode(v); err != nil {
		return fmt.Errorf("serializing: %w", err)
	}

	if err := atomic.WriteFile(filename, &w); err != nil {
		return fmt.Errorf("writing to disk: %w", err)
	}

	return nil
}

func LoadJSON(filename string, v any) error {
	data, err := os.ReadFile(filename) //#nosec G304
	if err != nil {
		return fmt.Errorf("loading file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("deserializing %s: %w", filename, err)
	}

	return nil
}
