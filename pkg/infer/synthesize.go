package infer

import (
	"strings"

	"github.com/goliatone/go-twigpreview/pkg/sample"
	"github.com/goliatone/go-twigpreview/pkg/syntax"
)

// synthesize attaches a single-element array to every collection seen in a
// loop. Collections addressed through an outer loop variable are nested into
// the outer element; all others land in result at their dotted path.
func synthesize(result sample.Data, loops *bindings, props *properties) {
	elements := make(map[string]map[string]any, len(props.order))
	for _, coll := range props.order {
		if !syntax.IsReference(coll) {
			continue
		}
		elements[coll] = map[string]any{}
	}

	// nested arrays go in before scalar fields so a property placeholder
	// never shadows them
	for _, coll := range props.order {
		element, ok := elements[coll]
		if !ok {
			continue
		}
		if parent, rest, nested := loops.parentOf(coll); nested {
			if parentElement, known := elements[parent]; known {
				attachArray(parentElement, rest, element)
				continue
			}
		}
		attachArray(result, syntax.SplitPath(coll), element)
	}

	for _, coll := range props.order {
		element, ok := elements[coll]
		if !ok {
			continue
		}
		for _, path := range props.paths[coll] {
			parts := strings.Split(path, ".")
			sample.Assign(element, parts, placeholder(parts[len(parts)-1]))
		}
	}
}

// placeholder is the sample value for a property on a synthesized element.
func placeholder(name string) string {
	if strings.EqualFold(name, "value") {
		return "valeur 1"
	}
	return name + " 1"
}

// attachArray places []any{element} at path when the location is empty or
// holds an empty array. Existing data is left alone.
func attachArray(root map[string]any, path []string, element map[string]any) {
	if len(path) == 0 {
		return
	}
	parent := root
	if len(path) > 1 {
		prefix := path[:len(path)-1]
		existing, ok := sample.Lookup(root, prefix)
		if !ok {
			sample.Assign(root, prefix, map[string]any{})
			existing, ok = sample.Lookup(root, prefix)
		}
		obj, isObj := existing.(map[string]any)
		if !ok || !isObj {
			return
		}
		parent = obj
	}

	key := path[len(path)-1]
	switch current := parent[key].(type) {
	case nil:
		if _, exists := parent[key]; exists {
			return
		}
		parent[key] = []any{element}
	case []any:
		if len(current) == 0 {
			parent[key] = []any{element}
		}
	}
}
