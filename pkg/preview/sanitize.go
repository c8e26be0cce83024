package preview

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	outputPolicyOnce sync.Once
	outputPolicy     *bluemonday.Policy
)

// SanitizeHTML strips scripts and event handlers from rendered output while
// keeping layout markup, classes and inline styles.
func SanitizeHTML(raw string) string {
	if raw == "" {
		return ""
	}
	return outputSanitizer().Sanitize(raw)
}

func outputSanitizer() *bluemonday.Policy {
	outputPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class", "id", "role").Globally()
		policy.AllowAttrs("style").Globally()
		policy.AllowStyling()
		policy.AllowElements("header", "footer", "main", "nav", "section", "article", "aside", "figure", "figcaption")
		policy.AllowDataAttributes()
		outputPolicy = policy
	})
	return outputPolicy
}
