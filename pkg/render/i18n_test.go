package render_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-twigpreview/pkg/render"
	"github.com/goliatone/go-twigpreview/pkg/render/template"
	"github.com/goliatone/go-twigpreview/pkg/testsupport"
)

func TestCatalog_TranslateWithFallbackLocale(t *testing.T) {
	catalog := render.NewCatalog(map[string]any{
		"fr": map[string]any{
			"nav": map[string]any{"home": "Accueil"},
			"hi":  "Salut %name%",
		},
	})

	got, err := catalog.Translate("fr_CA", "nav.home")
	if err != nil || got != "Accueil" {
		t.Fatalf("unexpected translation %q err %v", got, err)
	}
	got, err = catalog.Translate("fr", "hi", map[string]any{"%name%": "Ada"})
	if err != nil || got != "Salut Ada" {
		t.Fatalf("unexpected interpolation %q err %v", got, err)
	}
	if _, err := catalog.Translate("de", "nav.home"); !errors.Is(err, render.ErrMissingTranslation) {
		t.Fatalf("expected ErrMissingTranslation, got %v", err)
	}
}

func TestLoadCatalog_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.yaml")
	if err := os.WriteFile(path, []byte("en:\n  cart:\n    count: \"{count} items\"\nde:\n  cart:\n    count: \"{count} Artikel\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	catalog, err := render.LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff([]string{"de", "en"}, catalog.Locales()); diff != "" {
		t.Fatalf("locales mismatch (-want +got):\n%s", diff)
	}
	if got, _ := catalog.Translate("de", "cart.count", map[string]any{"{count}": 2}); got != "2 Artikel" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestTransFilter_MissingShowsKey(t *testing.T) {
	filter := render.TransFilter(nil, "en", nil)
	got, err := filter("Hello %name%", map[string]any{"name": "Ada"})
	if err != nil || got != "Hello Ada" {
		t.Fatalf("unexpected output %v err %v", got, err)
	}

	var seen []string
	custom := render.TransFilter(render.Catalog{}, "en", func(locale, key string, _ []any, err error) string {
		seen = append(seen, locale+":"+key)
		return "??" + key
	})
	if got, _ := custom("x.y", nil); got != "??x.y" {
		t.Fatalf("expected custom missing text, got %v", got)
	}
	if diff := cmp.Diff([]string{"en:x.y"}, seen); diff != "" {
		t.Fatalf("missing handler calls mismatch (-want +got):\n%s", diff)
	}
}

func TestTemplateI18nFuncs(t *testing.T) {
	catalog := render.Catalog{"en": {"greeting": "Hello"}}
	funcs := render.TemplateI18nFuncs(catalog, render.TemplateI18nConfig{Locale: "en"})

	if got := funcs["t"]("greeting"); got != "Hello" {
		t.Fatalf("unexpected translation %v", got)
	}
	if got := funcs["t"]("unknown"); got != "unknown" {
		t.Fatalf("expected key fallback, got %v", got)
	}
	if got := funcs["current_locale"](); got != "en" {
		t.Fatalf("unexpected locale %v", got)
	}
}

func TestRenderer_TranslatesThroughCatalog(t *testing.T) {
	catalog := render.Catalog{"en": {"nav.home": "Home page", "hello": "Hello %name%"}}
	src := render.Source{Text: `{{ 'nav.home'|trans }}|{{ t('hello', params) }}|{{ current_locale() }}`}
	vars := map[string]any{"params": map[string]any{"%name%": "Ada"}}

	for _, opts := range engineOptions() {
		r := newRenderer(t, append(opts, render.WithTranslator(catalog, "en"))...)
		res := r.Render(testsupport.Context(), template.NewRegistry(), src, vars)
		if !res.OK() {
			t.Fatalf("%s: render: %v", r.Engine().Name(), res.Err)
		}
		if want := "Home page|Hello Ada|en"; res.HTML != want {
			t.Fatalf("%s: want %q, got %q", r.Engine().Name(), want, res.HTML)
		}
	}
}

func TestRenderer_UnknownTransKeyRendersKey(t *testing.T) {
	for _, opts := range engineOptions() {
		r := newRenderer(t, opts...)
		res := r.Render(testsupport.Context(), template.NewRegistry(), render.Source{Text: `<b>{{ 'menu.about'|trans }}</b>`}, nil)
		if res.HTML != "<b>menu.about</b>" {
			t.Fatalf("%s: unexpected output %q (err %v)", r.Engine().Name(), res.HTML, res.Err)
		}
	}
}

func TestRenderer_WithFunctionsBeatsNeutralization(t *testing.T) {
	funcs := map[string]template.Func{
		"asset": func(args ...any) any { return "/static/app.css" },
	}
	r := newRenderer(t, render.WithFunctions(funcs))
	res := r.Render(testsupport.Context(), template.NewRegistry(), render.Source{Text: `{{ asset('app.css') }}|{{ path('home') }}`}, nil)
	if !res.OK() || res.HTML != "/static/app.css|" {
		t.Fatalf("unexpected output %q (err %v)", res.HTML, res.Err)
	}
}
