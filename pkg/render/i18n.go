package render

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-twigpreview/pkg/render/template"
	"github.com/goliatone/go-twigpreview/pkg/sample"
)

var (
	// ErrMissingTranslator is passed to the missing handler when no
	// translator is configured.
	ErrMissingTranslator = errors.New("render: no translator configured")
	// ErrMissingTranslation reports a key the catalog does not hold.
	ErrMissingTranslation = errors.New("render: missing translation")
)

// Translator resolves message keys for the trans filter.
type Translator interface {
	Translate(locale, key string, params ...any) (string, error)
}

// MissingTranslationHandler returns the text shown for an untranslated key.
type MissingTranslationHandler func(locale, key string, params []any, err error) string

// missingTranslationDefault shows the key itself, interpolated, which is how
// Symfony renders an unknown message.
func missingTranslationDefault(_ string, key string, params []any, _ error) string {
	if len(params) == 0 {
		return key
	}
	return template.Interpolate(key, params[0])
}

// Catalog is an in-memory Translator: locale to flattened message key to
// message.
type Catalog map[string]map[string]string

// LoadCatalog reads a messages file (.yaml, .yml or .json) whose top-level
// keys are locales and whose nested keys are joined with dots.
func LoadCatalog(path string) (Catalog, error) {
	data, err := sample.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("render: load catalog: %w", err)
	}
	return NewCatalog(data), nil
}

// NewCatalog flattens nested message trees keyed by locale.
func NewCatalog(messages map[string]any) Catalog {
	catalog := make(Catalog, len(messages))
	for locale, tree := range messages {
		flat := make(map[string]string)
		flatten("", tree, flat)
		catalog[locale] = flat
	}
	return catalog
}

func flatten(prefix string, value any, out map[string]string) {
	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			flatten(next, child, out)
		}
	case sample.Data:
		flatten(prefix, map[string]any(v), out)
	case nil:
	default:
		if prefix != "" {
			out[prefix] = fmt.Sprint(v)
		}
	}
}

// Translate looks key up in locale, then in the locale's language ("fr" for
// "fr_CA"), and fills placeholders from the first param.
func (c Catalog) Translate(locale, key string, params ...any) (string, error) {
	for _, candidate := range localeChain(locale) {
		if msg, ok := c[candidate][key]; ok {
			if len(params) > 0 {
				msg = template.Interpolate(msg, params[0])
			}
			return msg, nil
		}
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrMissingTranslation, key, locale)
}

// Locales lists the catalog's locales.
func (c Catalog) Locales() []string {
	out := make([]string, 0, len(c))
	for locale := range c {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

func localeChain(locale string) []string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return nil
	}
	chain := []string{locale}
	if i := strings.IndexAny(locale, "_-"); i > 0 {
		chain = append(chain, locale[:i])
	}
	return chain
}

// TransFilter adapts t to the trans filter signature. The filter input is the
// message key and its parameter the placeholder map.
func TransFilter(t Translator, locale string, onMissing MissingTranslationHandler) func(input, param any) (any, error) {
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	return func(input, param any) (any, error) {
		key := strings.TrimSpace(fmt.Sprint(input))
		if input == nil || key == "" {
			return "", nil
		}
		var params []any
		if param != nil {
			params = []any{param}
		}
		return translate(t, locale, key, params, onMissing), nil
	}
}

func translate(t Translator, locale, key string, params []any, onMissing MissingTranslationHandler) string {
	if t == nil {
		return onMissing(locale, key, params, ErrMissingTranslator)
	}
	msg, err := t.Translate(locale, key, params...)
	if err != nil || strings.TrimSpace(msg) == "" {
		return onMissing(locale, key, params, err)
	}
	return msg
}
