package render

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-twigpreview/pkg/inherit"
)

// Stage is one render attempt. Sanitize rewrites the inheritance-resolved
// text before the attempt; a nil Sanitize renders the text unchanged.
// Sanitized text is cleaned of tags the rewrite emptied and has its block
// wrappers removed.
type Stage struct {
	Name     string
	Sanitize func(string) string
}

// Stage names of the default policy.
const (
	StageDirect       = "direct"
	StageStripHelpers = "strip-helpers"
	StageStripCalls   = "strip-calls"
)

// DefaultStages renders the text as is, then without known host helper
// calls, then without any call-like expression.
var DefaultStages = []Stage{
	{Name: StageDirect},
	{Name: StageStripHelpers, Sanitize: StripHelperCalls},
	{Name: StageStripCalls, Sanitize: StripAllCalls},
}

// KnownHelpers are the helper calls removed by the second stage.
var KnownHelpers = []string{"path", "asset", "url", "form_widget", "form_row", "csrf_token", "dump", "render"}

var (
	helperCallPattern = regexp.MustCompile(`\b(?:` + strings.Join(KnownHelpers, "|") + `)\s*\([^)]*\)`)
	anyCallPattern    = regexp.MustCompile(`\b([\w.:]+)\s*\([^)]*\)`)

	emptyOutputPattern = regexp.MustCompile(`\{\{-?\s*(?:\|[^}]*)?-?\}\}`)
	emptyIfPattern     = regexp.MustCompile(`\{%(-?)\s*(if|elseif|elif)\s*(-?)%\}`)
	emptySetPattern    = regexp.MustCompile(`\{%-?\s*set\s+\w+\s*=\s*-?%\}`)
)

// keywords that take a parenthesised operand without being calls.
var controlKeywords = map[string]struct{}{
	"if": {}, "elseif": {}, "elif": {}, "for": {}, "in": {}, "not": {},
	"and": {}, "or": {}, "is": {}, "set": {}, "with": {},
}

// StripHelperCalls removes calls to the known host helpers.
func StripHelperCalls(text string) string {
	return helperCallPattern.ReplaceAllString(text, "")
}

// StripAllCalls removes every `name(...)` expression, dotted method calls
// included. Control keywords followed by a parenthesis are kept.
func StripAllCalls(text string) string {
	return anyCallPattern.ReplaceAllStringFunc(text, func(match string) string {
		m := anyCallPattern.FindStringSubmatch(match)
		if _, keyword := controlKeywords[m[1]]; keyword {
			return match
		}
		return ""
	})
}

// Cleanup drops output tags left without an expression and turns
// conditions left without an operand into false.
func Cleanup(text string) string {
	text = emptyOutputPattern.ReplaceAllString(text, "")
	text = emptySetPattern.ReplaceAllString(text, "")
	return emptyIfPattern.ReplaceAllString(text, "{%$1 $2 false $3%}")
}

func (s Stage) prepare(resolved string) string {
	if s.Sanitize == nil {
		return resolved
	}
	return inherit.StripBlocks(Cleanup(s.Sanitize(resolved)))
}
