package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalOptions converts RunOptions to JSON TEXT.
// Uses json.Encoder with HTML escaping disabled; struct field order is
// fixed, so output is byte-stable.
func marshalOptions(opts RunOptions) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(opts); err != nil {
		return "", fmt.Errorf("marshal options: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalOptions parses JSON TEXT to RunOptions.
func unmarshalOptions(data string) (RunOptions, error) {
	var opts RunOptions
	if data == "" || data == "{}" {
		return opts, nil
	}
	if err := json.Unmarshal([]byte(data), &opts); err != nil {
		return RunOptions{}, fmt.Errorf("unmarshal options: %w", err)
	}
	return opts, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
