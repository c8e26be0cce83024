package render

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-twigpreview/pkg/render/template"
)

// TemplateI18nConfig configures template-level translation helpers.
type TemplateI18nConfig struct {
	// Locale is the locale every lookup uses.
	Locale string
	// FuncName customizes the translator helper name (defaults to "t").
	FuncName string
	// OnMissing controls the string returned when a translation is missing.
	OnMissing MissingTranslationHandler
}

// TemplateI18nFuncs returns helpers to register ahead of neutralization so
// translation calls render real text instead of nothing:
//
//	t(key, params)      translated message
//	current_locale()    the configured locale
func TemplateI18nFuncs(t Translator, cfg TemplateI18nConfig) map[string]template.Func {
	name := strings.TrimSpace(cfg.FuncName)
	if name == "" {
		name = "t"
	}
	onMissing := cfg.OnMissing
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	locale := cfg.Locale

	return map[string]template.Func{
		name: func(args ...any) any {
			if len(args) == 0 || args[0] == nil {
				return ""
			}
			key := strings.TrimSpace(fmt.Sprint(args[0]))
			if key == "" {
				return ""
			}
			return translate(t, locale, key, args[1:], onMissing)
		},
		"current_locale": func(...any) any {
			return locale
		},
	}
}
