package render_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-twigpreview/pkg/render"
	"github.com/goliatone/go-twigpreview/pkg/render/template"
	"github.com/goliatone/go-twigpreview/pkg/render/template/gonja"
	"github.com/goliatone/go-twigpreview/pkg/sample"
	"github.com/goliatone/go-twigpreview/pkg/testsupport"
)

func TestRender_UnknownHelperRendersEmpty(t *testing.T) {
	for _, opts := range engineOptions() {
		r := newRenderer(t, opts...)
		res := r.Render(testsupport.Context(), template.NewRegistry(), render.Source{Text: `<p>{{ myHelper(1, 2) }}</p>`}, nil)

		if !res.OK() {
			t.Fatalf("%s: unexpected failure: %v", r.Engine().Name(), res.Err)
		}
		if res.HTML != "<p></p>" || res.Stage != render.StageDirect {
			t.Fatalf("%s: got %q at stage %s", r.Engine().Name(), res.HTML, res.Stage)
		}
	}
}

func TestRender_CallerDataOverridesIncludeData(t *testing.T) {
	r := newRenderer(t)
	src := render.Source{
		Text:    `{% include "missing.twig" with {title: 'Inc', sub: 'S'} %}{{ title }} {{ sub }}`,
		BaseDir: t.TempDir(),
	}

	res := r.Render(testsupport.Context(), nil, src, sample.Data{"title": "Caller"})
	if !res.OK() {
		t.Fatalf("unexpected failure: %v", res.Err)
	}
	if res.HTML != "Caller S" {
		t.Fatalf("unexpected html %q", res.HTML)
	}
	if diff := cmp.Diff(sample.Data{"title": "Caller", "sub": "S"}, res.Data); diff != "" {
		t.Fatalf("merged data mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_ExtendsOverridesParentBlock(t *testing.T) {
	root := testsupport.WriteTree(t, map[string]string{
		"base.twig": `<title>{% block title %}Default{% endblock %}</title>`,
	})
	r := newRenderer(t)

	res := r.Render(testsupport.Context(), nil, render.Source{
		Text:    `{% extends "base.twig" %}{% block title %}Custom{% endblock %}`,
		BaseDir: root,
	}, nil)
	if res.HTML != "<title>Custom</title>" {
		t.Fatalf("unexpected html %q (err %v)", res.HTML, res.Err)
	}
}

func TestRender_ParentCallStripped(t *testing.T) {
	root := testsupport.WriteTree(t, map[string]string{
		"base.twig": `<h1>{% block title %}Default{% endblock %}</h1>`,
	})
	r := newRenderer(t)

	res := r.Render(testsupport.Context(), nil, render.Source{
		Text:    `{% extends "base.twig" %}{% block title %}{{ parent() }} more{% endblock %}`,
		BaseDir: root,
	}, nil)
	if res.HTML != "<h1> more</h1>" {
		t.Fatalf("unexpected html %q (err %v)", res.HTML, res.Err)
	}
}

func TestRender_RegistersTemplatesReferencedByParent(t *testing.T) {
	root := testsupport.WriteTree(t, map[string]string{
		"layouts/base.twig":  `<nav>{% include "partials/nav.twig" %}</nav>{% block body %}{% endblock %}`,
		"partials/nav.twig":  `Menu {{ user }}`,
		"layouts/other.twig": `unused`,
	})
	r := newRenderer(t)
	reg := template.NewRegistry()

	res := r.Render(testsupport.Context(), reg, render.Source{
		Text:    `{% extends "layouts/base.twig" %}{% block body %}B{% endblock %}`,
		BaseDir: root,
	}, sample.Data{"user": "Ada"})
	if res.HTML != "<nav>Menu Ada</nav>B" {
		t.Fatalf("unexpected html %q (err %v)", res.HTML, res.Err)
	}
	if diff := cmp.Diff([]string{"layouts/base.twig", "partials/nav.twig"}, reg.TemplateNames()); diff != "" {
		t.Fatalf("registered templates mismatch (-want +got):\n%s", diff)
	}
}

func TestRender_FallsBackToHelperStripping(t *testing.T) {
	r := newRenderer(t)
	res := r.Render(testsupport.Context(), nil, render.Source{
		Text: `<a href="{{ path('home', {'id': 1}) }}">Home</a>`,
	}, nil)

	if !res.OK() || res.Stage != render.StageStripHelpers {
		t.Fatalf("expected strip-helpers success, got stage %s err %v", res.Stage, res.Err)
	}
	if res.HTML != `<a href="">Home</a>` {
		t.Fatalf("unexpected html %q", res.HTML)
	}
}

func TestRender_FallsBackToStrippingAllCalls(t *testing.T) {
	r := newRenderer(t)
	res := r.Render(testsupport.Context(), nil, render.Source{
		Text: `<p>{{ app.user({'a': 1}) }}</p>{% if (flag) %}on{% endif %}`,
	}, sample.Data{"flag": true})

	if !res.OK() || res.Stage != render.StageStripCalls {
		t.Fatalf("expected strip-calls success, got stage %s err %v", res.Stage, res.Err)
	}
	if res.HTML != `<p></p>on` {
		t.Fatalf("unexpected html %q", res.HTML)
	}
}

func TestRender_FallbackDoesNotLeakBlocks(t *testing.T) {
	root := testsupport.WriteTree(t, map[string]string{
		"base.twig": `<h1>{% block head %}H{% endblock %}</h1>{% block body %}{% endblock %}`,
	})
	r := newRenderer(t)

	res := r.Render(testsupport.Context(), nil, render.Source{
		Text:    `{% extends "base.twig" %}{% block body %}{{ path('x', {'a': 1}) }}B{% endblock %}`,
		BaseDir: root,
	}, nil)
	if res.HTML != `<h1>H</h1>B` {
		t.Fatalf("unexpected html %q (stage %s, err %v)", res.HTML, res.Stage, res.Err)
	}
}

func TestRender_TerminalFailure(t *testing.T) {
	observer := &recordingObserver{}
	r := newRenderer(t, render.WithObserver(observer))

	res := r.Render(testsupport.Context(), nil, render.Source{Text: `{% endfor %}`}, nil)
	if res.OK() {
		t.Fatalf("expected failure, got %q", res.HTML)
	}

	var failure *render.FailureError
	if !errors.As(res.Err, &failure) {
		t.Fatalf("expected FailureError, got %T", res.Err)
	}
	if len(failure.Attempts) != len(render.DefaultStages) || res.Err.Error() == "" {
		t.Fatalf("unexpected failure detail: %+v", failure.Attempts)
	}
	want := []string{render.StageDirect, render.StageStripHelpers, render.StageStripCalls}
	if diff := cmp.Diff(want, observer.stages); diff != "" {
		t.Fatalf("observed stages mismatch (-want +got):\n%s", diff)
	}
	if observer.completed != 1 || observer.lastOK {
		t.Fatalf("expected one failed completion, got %d ok=%v", observer.completed, observer.lastOK)
	}
}

func TestRender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := newRenderer(t).Render(ctx, nil, render.Source{Text: `x`}, nil)
	if res.OK() || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", res.Err)
	}
}

func TestRender_CustomStages(t *testing.T) {
	r := newRenderer(t, render.WithStages(render.Stage{
		Name:     "fixed",
		Sanitize: func(string) string { return "fixed" },
	}))

	res := r.Render(testsupport.Context(), nil, render.Source{Text: `{{ broken(`}, nil)
	if res.HTML != "fixed" || res.Stage != "fixed" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRender_RegistryIsAppendOnly(t *testing.T) {
	r := newRenderer(t, render.WithHelpers("trans"))
	reg := template.NewRegistry()

	r.Render(testsupport.Context(), reg, render.Source{Text: `{{ first() }}`}, nil)
	r.Render(testsupport.Context(), reg, render.Source{Text: `{{ second() }}`}, nil)

	for _, name := range []string{"first", "second", "trans", "path"} {
		if _, ok := reg.Function(name); !ok {
			t.Fatalf("expected %q to stay registered", name)
		}
	}
}

func TestEngines_Default(t *testing.T) {
	engines, err := render.DefaultEngines()
	if err != nil {
		t.Fatalf("default engines: %v", err)
	}
	if diff := cmp.Diff([]string{"gonja", "pongo2"}, engines.List()); diff != "" {
		t.Fatalf("engines mismatch (-want +got):\n%s", diff)
	}
	if err := engines.Register(gonja.New()); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
	if _, err := engines.Get("twig"); err == nil {
		t.Fatal("expected unknown engine lookup to fail")
	}
}

func engineOptions() [][]render.Option {
	return [][]render.Option{
		nil,
		{render.WithEngine(gonja.New())},
	}
}

func newRenderer(t *testing.T, opts ...render.Option) *render.Renderer {
	t.Helper()
	r, err := render.New(opts...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

type recordingObserver struct {
	stages    []string
	completed int
	lastOK    bool
}

func (o *recordingObserver) StageAttempted(stage string, _ error) {
	o.stages = append(o.stages, stage)
}

func (o *recordingObserver) RenderCompleted(_ string, ok bool, _ time.Duration) {
	o.completed++
	o.lastOK = ok
}
