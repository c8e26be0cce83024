// Package sample models the data object a template preview renders against:
// a tree of maps, slices and scalars that is either inferred from template
// text or supplied by the user.
package sample

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Data is the root of a sample data tree. Nested objects are plain
// map[string]any values so template engines can walk them without
// conversion.
type Data map[string]any

// New returns an empty data object.
func New() Data {
	return Data{}
}

// Assign sets value at path unless something is already there. Missing
// intermediate segments become objects; an intermediate segment holding a
// non-object value stops the assignment so existing data is never replaced.
// It reports whether the value was written.
func Assign(root map[string]any, path []string, value any) bool {
	if root == nil || len(path) == 0 {
		return false
	}
	cur := root
	for i, key := range path {
		if i == len(path)-1 {
			if _, exists := cur[key]; exists {
				return false
			}
			cur[key] = value
			return true
		}
		next, exists := cur[key]
		if !exists {
			child := map[string]any{}
			cur[key] = child
			cur = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return false
		}
		cur = child
	}
	return false
}

// Lookup returns the value at path.
func Lookup(root map[string]any, path []string) (any, bool) {
	if root == nil || len(path) == 0 {
		return nil, false
	}
	var cur any = root
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Merge copies src into dst without overwriting anything dst already holds.
// Objects present on both sides are merged recursively. Keys are visited in
// sorted order so results are deterministic.
func Merge(dst, src map[string]any) {
	if dst == nil || len(src) == 0 {
		return
	}
	for _, key := range sortedKeys(src) {
		value := src[key]
		existing, exists := dst[key]
		if !exists {
			dst[key] = value
			continue
		}
		dstChild, dstOK := existing.(map[string]any)
		srcChild, srcOK := value.(map[string]any)
		if dstOK && srcOK {
			Merge(dstChild, srcChild)
		}
	}
}

// Overlay returns a new top-level object holding base with top applied over
// it. Keys in top win on conflict; nested values are shared, not copied.
func Overlay(base, top map[string]any) Data {
	out := make(Data, len(base)+len(top))
	for key, value := range base {
		out[key] = value
	}
	for key, value := range top {
		out[key] = value
	}
	return out
}

// Clone deep-copies maps and slices in the tree.
func Clone(root map[string]any) Data {
	if root == nil {
		return nil
	}
	out := make(Data, len(root))
	for key, value := range root {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case Data:
		return map[string]any(Clone(v))
	case map[string]any:
		return map[string]any(Clone(v))
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// JSON renders the tree as indented JSON, the format the preview surface
// shows for editing.
func (d Data) JSON() string {
	if d == nil {
		d = Data{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any(d)); err != nil {
		return "{}"
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
