package infer

import (
	"strings"

	"github.com/goliatone/go-twigpreview/pkg/syntax"
)

// bindings maps loop variables to the collection they iterate. Collections
// keep first-seen order so synthesis is deterministic.
type bindings struct {
	byVar       map[string]string
	collections []string
	known       map[string]struct{}
}

func bindLoops(text string) *bindings {
	b := &bindings{
		byVar: make(map[string]string),
		known: make(map[string]struct{}),
	}
	for _, loop := range syntax.Loops(text) {
		// redefinitions overwrite
		b.byVar[loop.Var] = loop.Collection
		if _, seen := b.known[loop.Collection]; !seen {
			b.known[loop.Collection] = struct{}{}
			b.collections = append(b.collections, loop.Collection)
		}
	}
	return b
}

func (b *bindings) collection(loopVar string) (string, bool) {
	coll, ok := b.byVar[loopVar]
	return coll, ok
}

func (b *bindings) isCollection(path string) bool {
	_, ok := b.known[path]
	return ok
}

// parentOf reports the enclosing collection when coll is addressed through
// another loop variable, e.g. `cat.products` inside `for cat in cats`.
// Chains that loop back on themselves are treated as top-level.
func (b *bindings) parentOf(coll string) (parent string, rest []string, ok bool) {
	seen := map[string]struct{}{coll: {}}
	cur := coll
	for {
		parts := syntax.SplitPath(cur)
		if len(parts) < 2 {
			break
		}
		next, bound := b.byVar[parts[0]]
		if !bound {
			break
		}
		if _, loops := seen[next]; loops {
			return "", nil, false
		}
		seen[next] = struct{}{}
		cur = next
	}

	parts := syntax.SplitPath(coll)
	if len(parts) < 2 {
		return "", nil, false
	}
	parent, bound := b.byVar[parts[0]]
	if !bound || parent == coll {
		return "", nil, false
	}
	return parent, parts[1:], true
}

// properties records, per collection, the property paths referenced on its
// loop variable in first-seen order.
type properties struct {
	order []string
	paths map[string][]string
	seen  map[string]map[string]struct{}
}

func newProperties() *properties {
	return &properties{
		paths: make(map[string][]string),
		seen:  make(map[string]map[string]struct{}),
	}
}

func (p *properties) touch(coll string) {
	if _, ok := p.seen[coll]; ok {
		return
	}
	p.seen[coll] = make(map[string]struct{})
	p.order = append(p.order, coll)
}

func (p *properties) add(coll string, segments []string) {
	p.touch(coll)
	path := strings.Join(segments, ".")
	if _, ok := p.seen[coll][path]; ok {
		return
	}
	p.seen[coll][path] = struct{}{}
	p.paths[coll] = append(p.paths[coll], path)
}
