package resolve

// Visited tracks canonical paths already entered during one top-level
// inference or expansion pass.
type Visited map[string]struct{}

// NewVisited returns an empty set.
func NewVisited() Visited {
	return make(Visited)
}

// Has reports whether path was already entered.
func (v Visited) Has(path string) bool {
	if v == nil {
		return false
	}
	_, ok := v[path]
	return ok
}

// Add records path.
func (v Visited) Add(path string) {
	if v == nil {
		return
	}
	v[path] = struct{}{}
}

// Mark records path and reports whether it was newly added. A nil set never
// accepts entries, so callers must pass a set created with NewVisited.
func (v Visited) Mark(path string) bool {
	if v == nil || v.Has(path) {
		return false
	}
	v.Add(path)
	return true
}
