// Package neutralize keeps host-framework helper calls from breaking a
// preview render by registering empty stand-ins for them.
package neutralize

import (
	"regexp"

	"github.com/goliatone/go-twigpreview/pkg/render/template"
)

var (
	callPattern    = regexp.MustCompile(`([a-zA-Z_][\w:]*)\s*\(`)
	numericPattern = regexp.MustCompile(`^\d+$`)
	parentPattern  = regexp.MustCompile(`parent\s*\(\s*\)`)
	parentOutput   = regexp.MustCompile(`\{\{-?\s*parent\s*\(\s*\)\s*-?\}\}`)
)

// reserved control keywords that precede a parenthesis without being calls.
var reserved = map[string]struct{}{
	"if": {}, "for": {}, "set": {}, "block": {}, "extends": {},
	"include": {}, "in": {}, "is": {}, "not": {}, "filter": {},
}

// HostHelpers are helpers Twig hosts such as Symfony provide. They are
// neutralized up front whether or not the template calls them.
var HostHelpers = []string{
	"path", "asset", "url", "form_widget", "form_row", "csrf_token",
	"dump", "render", "form_start", "form_end", "include",
}

// Discover returns the distinct names used with call syntax in text, in
// first-seen order, skipping control keywords and numbers.
func Discover(text string) []string {
	var names []string
	seen := map[string]struct{}{}
	for _, m := range callPattern.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if _, skip := reserved[name]; skip || numericPattern.MatchString(name) {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// StripParentCalls removes every parent() call. Output tags holding nothing
// but the call are removed whole.
func StripParentCalls(text string) string {
	text = parentOutput.ReplaceAllString(text, "")
	return parentPattern.ReplaceAllString(text, "")
}

// Neutralize registers no-op callables for the host helpers, the extra
// names given, and every name discovered in text. It returns the names
// that were new to the registry.
func Neutralize(reg *template.Registry, text string, extra ...string) []string {
	var added []string
	register := func(names []string) {
		for _, name := range names {
			if reg.RegisterFunction(name, template.Noop) {
				added = append(added, name)
			}
		}
	}
	register(HostHelpers)
	register(extra)
	register(Discover(text))
	return added
}
