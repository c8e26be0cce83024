package neutralize_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-twigpreview/pkg/neutralize"
	"github.com/goliatone/go-twigpreview/pkg/render/template"
)

func TestDiscover(t *testing.T) {
	text := `{% if (a) %}{{ myHelper(1, 2) }}{% for x in (items) %}{{ x }}{% endfor %}
{{ myHelper(3) }}{{ 42(1) }}{{ app:route('home') }}{{ user.format (x) }}{% set y = (1) %}`

	want := []string{"myHelper", "app:route", "format"}
	if diff := cmp.Diff(want, neutralize.Discover(text)); diff != "" {
		t.Fatalf("discover mismatch (-want +got):\n%s", diff)
	}
}

func TestStripParentCalls(t *testing.T) {
	got := neutralize.StripParentCalls(`{% block a %}{{ parent() }}{{ parent( )|upper }}x{% endblock %}`)
	if got != `{% block a %}{{ |upper }}x{% endblock %}` {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestNeutralizeIsIdempotent(t *testing.T) {
	reg := template.NewRegistry()

	first := neutralize.Neutralize(reg, `{{ myHelper() }}{{ path('x') }}`, "trans")
	if len(first) != len(neutralize.HostHelpers)+2 {
		t.Fatalf("expected host helpers plus two names, got %v", first)
	}
	if again := neutralize.Neutralize(reg, `{{ myHelper() }}`); len(again) != 0 {
		t.Fatalf("expected no new registrations, got %v", again)
	}

	fn, ok := reg.Function("myHelper")
	if !ok {
		t.Fatal("myHelper not registered")
	}
	if got := fn(1, 2); got != "" {
		t.Fatalf("no-op returned %v", got)
	}
	if _, ok := reg.Function("trans"); !ok {
		t.Fatal("extra helper not registered")
	}
}
