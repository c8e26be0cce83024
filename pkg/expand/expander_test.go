package expand_test

import (
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-twigpreview/pkg/expand"
	"github.com/goliatone/go-twigpreview/pkg/resolve"
	"github.com/goliatone/go-twigpreview/pkg/sample"
	"github.com/goliatone/go-twigpreview/pkg/testsupport"
)

func TestExpand_InlinesNestedIncludes(t *testing.T) {
	root := testsupport.WriteTree(t, map[string]string{
		"header.twig":        `<header>{% include "partials/nav.twig" %}</header>`,
		"partials/nav.twig":  `<nav>{{ menu }}</nav>`,
		"partials/unused.tw": `never`,
	})

	out, vars := expand.Expand(`{% include 'header.twig' %}<main>{{ body }}</main>`, root)

	if want := `<header><nav>{{ menu }}</nav></header><main>{{ body }}</main>`; out != want {
		t.Fatalf("expanded text mismatch:\nwant %q\ngot  %q", want, out)
	}
	if diff := cmp.Diff(sample.Data{}, vars); diff != "" {
		t.Fatalf("unexpected vars (-want +got):\n%s", diff)
	}
}

func TestExpand_MissingTargetsBecomeEmpty(t *testing.T) {
	root := t.TempDir()

	out, _ := expand.Expand(`a{% include "nope.twig" %}b`, root)
	if out != "ab" {
		t.Fatalf("expected missing include to vanish, got %q", out)
	}

	out, _ = expand.Expand(`a{% include "nope.twig" %}b`, "")
	if out != "ab" {
		t.Fatalf("expected include without base dir to vanish, got %q", out)
	}
}

func TestExpand_CyclesTerminate(t *testing.T) {
	root := testsupport.WriteTree(t, map[string]string{
		"a.twig": `A[{% include "b.twig" %}]`,
		"b.twig": `B[{% include "a.twig" %}]`,
	})

	out, _ := expand.Expand(`{% include "a.twig" %}`, root)
	if want := `A[B[]]`; out != want {
		t.Fatalf("want %q, got %q", want, out)
	}
}

func TestExpand_RepeatedIncludeExpandsOnce(t *testing.T) {
	root := testsupport.WriteTree(t, map[string]string{
		"row.twig": `<tr/>`,
	})

	out, _ := expand.Expand(`{% include "row.twig" %}{% include "row.twig" %}`, root)
	if out != `<tr/>` {
		t.Fatalf("second include of a visited file should expand to empty, got %q", out)
	}
}

func TestExpand_CollectsLiteralsOuterFirst(t *testing.T) {
	root := testsupport.WriteTree(t, map[string]string{
		"card.twig":  `{% include "inner.twig" with {title: 'Inner', badge: 'new'} %}`,
		"inner.twig": `{{ title }}`,
	})

	out, vars := expand.Expand(`{% include "card.twig" with {title: 'Outer', user: {name: 'Ada'}} %}`, root)

	if out != `{{ title }}` {
		t.Fatalf("unexpected expansion %q", out)
	}
	want := sample.Data{
		"title": "Outer",
		"badge": "new",
		"user":  map[string]any{"name": "Ada"},
	}
	if diff := cmp.Diff(want, vars); diff != "" {
		t.Fatalf("vars mismatch (-want +got):\n%s", diff)
	}
}

func TestExpand_LiteralKeptWhenTargetMissing(t *testing.T) {
	out, vars := expand.Expand(`x{% include "ghost.twig" with {name: 'Bob'} %}y`, t.TempDir())
	if out != "xy" {
		t.Fatalf("unexpected expansion %q", out)
	}
	if diff := cmp.Diff(sample.Data{"name": "Bob"}, vars); diff != "" {
		t.Fatalf("vars mismatch (-want +got):\n%s", diff)
	}
}

func TestExpand_FSBacked(t *testing.T) {
	fsys := fstest.MapFS{
		"views/page.twig":         {Data: []byte(`{% include "parts/footer.twig" %}`)},
		"views/parts/footer.twig": {Data: []byte(`<footer>{{ year }}</footer>`)},
	}
	expander := expand.New(expand.WithResolver(resolve.New(resolve.WithFS(fsys))))

	out, _ := expander.Expand(`{% include "parts/footer.twig" %}`, "views", nil)
	if out != `<footer>{{ year }}</footer>` {
		t.Fatalf("unexpected expansion %q", out)
	}
}
