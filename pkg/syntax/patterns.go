// Package syntax holds the tag and expression patterns shared by the
// inference, expansion, inheritance and neutralization passes. Detection is
// heuristic: patterns match Twig tag shapes in raw text and never build a
// syntax tree.
package syntax

import (
	"regexp"
	"strings"
)

var (
	loopPattern    = regexp.MustCompile(`\{%\s*for\s+(\w+)\s+in\s+([\w\.]+)\s*%\}`)
	includePattern = regexp.MustCompile(`\{%\s*include\s+['"]([^'"]+)['"](?:\s+with\s+(\{[^}]*\}))?\s*%\}`)
	outputPattern  = regexp.MustCompile(`\{\{\s*([^}\s|]+)[^}]*\}\}`)
	literalPattern = regexp.MustCompile(`^(?:true|false|null|\d+|'.*'|".*")$`)
	ifPattern      = regexp.MustCompile(`\{%\s*if\s+([^\s%]+)\s*%\}`)
	extendsPattern = regexp.MustCompile(`\{%\s*extends\s+['"]([^'"]+)['"]\s*%\}`)
	blockPattern   = regexp.MustCompile(`\{%\s*block\s+(\w+)\s*%\}([\s\S]*?)\{%\s*endblock(?:\s+\w+)?\s*%\}`)
	indexPattern   = regexp.MustCompile(`\[.*\]`)

	// includeRefPattern matches any include tag, including argument forms the
	// expander does not understand, so referenced files can still be
	// registered with the engine.
	includeRefPattern = regexp.MustCompile(`\{%\s*include\s+['"]([^'"]+)['"][^%]*%\}`)
)

// Loop is a `{% for var in collection %}` binding.
type Loop struct {
	Var        string
	Collection string
}

// Include is one `{% include "ref" [with {...}] %}` occurrence.
type Include struct {
	Ref  string
	With string
	Tag  string
}

// Block is one `{% block name %}...{% endblock %}` region.
type Block struct {
	Name  string
	Inner string
	Tag   string
}

// Loops returns every loop binding in source order.
func Loops(text string) []Loop {
	matches := loopPattern.FindAllStringSubmatch(text, -1)
	out := make([]Loop, 0, len(matches))
	for _, m := range matches {
		out = append(out, Loop{
			Var:        strings.TrimSpace(m[1]),
			Collection: strings.TrimSpace(m[2]),
		})
	}
	return out
}

// Includes returns every include tag in source order.
func Includes(text string) []Include {
	matches := includePattern.FindAllStringSubmatch(text, -1)
	out := make([]Include, 0, len(matches))
	for _, m := range matches {
		out = append(out, Include{
			Ref:  strings.TrimSpace(m[1]),
			With: m[2],
			Tag:  m[0],
		})
	}
	return out
}

// ReplaceIncludes rewrites every include tag with the value returned by fn.
// Tags are visited in source order.
func ReplaceIncludes(text string, fn func(Include) string) string {
	return includePattern.ReplaceAllStringFunc(text, func(tag string) string {
		m := includePattern.FindStringSubmatch(tag)
		if m == nil {
			return tag
		}
		return fn(Include{Ref: strings.TrimSpace(m[1]), With: m[2], Tag: tag})
	})
}

// IncludeRefs returns the target of every include tag regardless of its
// argument syntax.
func IncludeRefs(text string) []string {
	matches := includeRefPattern.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// OutputHeads returns the addressed token of every `{{ expr }}` tag: the
// first run of characters that are not whitespace, a pipe or a brace.
func OutputHeads(text string) []string {
	matches := outputPattern.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// IfGuards returns the operand of every simple `{% if name %}` tag.
func IfGuards(text string) []string {
	matches := ifPattern.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}

// Extends returns the parent reference and the full tag of the first extends
// directive.
func Extends(text string) (ref string, tag string, ok bool) {
	m := extendsPattern.FindStringSubmatch(text)
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), m[0], true
}

// Blocks returns every block region in source order. Nested blocks are not
// supported; the first endblock closes the region.
func Blocks(text string) []Block {
	matches := blockPattern.FindAllStringSubmatch(text, -1)
	out := make([]Block, 0, len(matches))
	for _, m := range matches {
		out = append(out, Block{Name: m[1], Inner: m[2], Tag: m[0]})
	}
	return out
}

// ReplaceBlock substitutes every block called name with inner. The
// replacement is literal.
func ReplaceBlock(text, name, inner string) string {
	re := regexp.MustCompile(`\{%\s*block\s+` + regexp.QuoteMeta(name) + `\s*%\}([\s\S]*?)\{%\s*endblock(?:\s+\w+)?\s*%\}`)
	return re.ReplaceAllLiteralString(text, inner)
}

// StripBlocks unwraps every block region, keeping its inner content in place.
func StripBlocks(text string) string {
	return blockPattern.ReplaceAllString(text, "$2")
}

// IsLiteral reports whether token looks like a number, quoted string, boolean
// or null rather than a variable reference.
func IsLiteral(token string) bool {
	return literalPattern.MatchString(token)
}

// IsReference reports whether token starts like a variable name. Tokens such
// as `-1`, `"Hello` (a string split at whitespace) or `[1,2]` do not.
func IsReference(token string) bool {
	if token == "" {
		return false
	}
	c := token[0]
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// IsCall reports whether token contains a call.
func IsCall(token string) bool {
	return strings.Contains(token, "(")
}

// StripIndexing removes bracket indexing so only the base path remains.
func StripIndexing(token string) string {
	return indexPattern.ReplaceAllString(token, "")
}

// SplitPath splits a dotted path into trimmed, non-empty segments.
func SplitPath(path string) []string {
	raw := strings.Split(path, ".")
	out := make([]string, 0, len(raw))
	for _, part := range raw {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
