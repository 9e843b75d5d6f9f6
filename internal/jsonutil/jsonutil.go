// Package jsonutil holds small JSON helpers shared by the wire decoders.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// UnmarshalWithContext unmarshals data into v and wraps any error with context.
func UnmarshalWithContext(data []byte, v any, context string) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}
	return nil
}

// Object decodes data as a JSON object. Anything else yields nil.
func Object(data []byte) map[string]any {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

// GetStringOr returns m[key] when it is a string, otherwise def.
func GetStringOr(m map[string]any, key, def string) string {
	if val, ok := m[key].(string); ok {
		return val
	}
	return def
}

// ToString renders a decoded JSON value for display.
// Whole floats print without a fractional part.
func ToString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any, map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}
