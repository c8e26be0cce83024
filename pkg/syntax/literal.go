package syntax

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var keyName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ParseWithLiteral parses the object literal of an include `with` clause.
// Single and double quoted keys and strings are accepted alike, bare keys are
// quoted, and whitespace may be irregular. The literal is parsed as a YAML
// flow mapping. Literals that do not parse, are not a mapping, or reference
// template variables by bare name are rejected as a whole.
func ParseWithLiteral(raw string) (map[string]any, bool) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, false
	}
	s = quoteKeys(s)

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(s), &doc); err != nil {
		return nil, false
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return nil, false
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode || hasBareReference(root) {
		return nil, false
	}

	out := map[string]any{}
	if err := root.Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}

// quoteKeys rewrites every mapping key to a double-quoted name followed by
// ": ". Keys are recognised only after `{` or `,` outside quoted strings, so
// string values are copied untouched.
func quoteKeys(s string) string {
	var b strings.Builder
	expectKey := false
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '\'' || c == '"':
			end := closingQuote(s, i)
			if end < 0 {
				b.WriteString(s[i:])
				return b.String()
			}
			if expectKey {
				key := strings.TrimSpace(s[i+1 : end])
				if colon := colonAt(s, end+1); colon >= 0 && keyName.MatchString(key) {
					b.WriteString(`"` + key + `": `)
					i = colon + 1
					expectKey = false
					continue
				}
			}
			b.WriteString(s[i : end+1])
			i = end + 1
			expectKey = false
		case c == '{' || c == ',':
			b.WriteByte(c)
			i++
			expectKey = true
		case expectKey && isSpace(c):
			b.WriteByte(c)
			i++
		case expectKey && isIdentStart(c):
			j := i
			for j < len(s) && isIdent(s[j]) {
				j++
			}
			if colon := colonAt(s, j); colon >= 0 {
				b.WriteString(`"` + s[i:j] + `": `)
				i = colon + 1
			} else {
				b.WriteString(s[i:j])
				i = j
			}
			expectKey = false
		default:
			b.WriteByte(c)
			i++
			expectKey = false
		}
	}
	return b.String()
}

// closingQuote returns the index of the quote closing the string opened at
// s[open], or -1. A backslash escapes the next byte.
func closingQuote(s string, open int) int {
	quote := s[open]
	for i := open + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i
		}
	}
	return -1
}

// colonAt returns the index of the first non-space byte from i if it is a
// colon, or -1.
func colonAt(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	if i < len(s) && s[i] == ':' {
		return i
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdent(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// hasBareReference reports whether any value is an unquoted string, which in
// a template literal is a variable reference rather than data.
func hasBareReference(node *yaml.Node) bool {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 1; i < len(node.Content); i += 2 {
			if hasBareReference(node.Content[i]) {
				return true
			}
		}
	case yaml.SequenceNode:
		for _, child := range node.Content {
			if hasBareReference(child) {
				return true
			}
		}
	case yaml.ScalarNode:
		return node.Style == 0 && node.ShortTag() == "!!str"
	case yaml.AliasNode:
		return true
	}
	return false
}
