package sample

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNotObject is returned when a payload decodes to something other than an
// object.
var ErrNotObject = errors.New("sample: data must be an object")

// Decode parses a JSON object. Empty payloads decode to an empty object.
func Decode(payload []byte) (Data, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Data{}, nil
	}
	var raw any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("sample: decode json: %w", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Data(obj), nil
}

// DecodeYAML parses a YAML mapping, normalising nested maps to
// map[string]any.
func DecodeYAML(payload []byte) (Data, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return Data{}, nil
	}
	var raw any
	if err := yaml.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("sample: decode yaml: %w", err)
	}
	if raw == nil {
		return Data{}, nil
	}
	obj, ok := normalizeYAML(raw).(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return Data(obj), nil
}

// LoadFile reads sample data from a .json, .yaml or .yml file.
func LoadFile(path string) (Data, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sample: read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return DecodeYAML(payload)
	default:
		return Decode(payload)
	}
}

func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return v
	}
}
