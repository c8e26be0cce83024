package template

import (
	"fmt"
	"sort"
	"strings"
)

// Interpolate replaces message placeholders with values from params, the way
// Twig's trans filter does. Keys are matched verbatim ("%name%", "{count}");
// a bare key also matches its "%key%" form. Non-map params are ignored.
func Interpolate(message string, params any) string {
	values := paramValues(params)
	if len(values) == 0 {
		return message
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	// longest first so "%name_full%" is not clobbered by "%name%"
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})

	pairs := make([]string, 0, len(keys)*4)
	for _, key := range keys {
		value := values[key]
		pairs = append(pairs, key, value)
		if !strings.ContainsAny(key, "%{}") {
			pairs = append(pairs, "%"+key+"%", value)
		}
	}
	return strings.NewReplacer(pairs...).Replace(message)
}

func paramValues(params any) map[string]string {
	out := map[string]string{}
	switch p := params.(type) {
	case map[string]any:
		for k, v := range p {
			out[k] = fmt.Sprint(v)
		}
	case map[string]string:
		for k, v := range p {
			out[k] = v
		}
	case map[any]any:
		for k, v := range p {
			out[fmt.Sprint(k)] = fmt.Sprint(v)
		}
	}
	return out
}
