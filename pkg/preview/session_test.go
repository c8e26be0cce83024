package preview_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-twigpreview/pkg/preview"
	"github.com/goliatone/go-twigpreview/pkg/render"
	"github.com/goliatone/go-twigpreview/pkg/sample"
	"github.com/goliatone/go-twigpreview/pkg/testsupport"
)

type recorder struct {
	messages []preview.Outbound
}

func (r *recorder) Post(msg preview.Outbound) error {
	r.messages = append(r.messages, msg)
	return nil
}

func (r *recorder) types() []string {
	out := make([]string, 0, len(r.messages))
	for _, msg := range r.messages {
		out = append(out, msg.Type)
	}
	return out
}

func newSession(t *testing.T, source preview.Source, opts ...preview.Option) *preview.Session {
	t.Helper()
	renderer, err := render.New()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	return preview.NewSession(source, renderer, opts...)
}

func TestSession_StartSeedsVarsAndRenders(t *testing.T) {
	root := testsupport.WriteTree(t, map[string]string{
		"page.twig": `<h1>{{ title }}</h1>{% for p in posts %}<p>{{ p.name }}</p>{% endfor %}`,
	})
	session := newSession(t, preview.FileSource{Path: filepath.Join(root, "page.twig")})
	rec := &recorder{}
	session.Subscribe(rec)

	inferred, err := session.Start(testsupport.Context())
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	if diff := cmp.Diff([]string{preview.TypeVars, preview.TypeRendered}, rec.types()); diff != "" {
		t.Fatalf("message types mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(inferred, rec.messages[0].Vars); diff != "" {
		t.Fatalf("vars message mismatch (-want +got):\n%s", diff)
	}
	if want := `<h1>title</h1><p>name 1</p>`; rec.messages[1].HTML != want {
		t.Fatalf("want %q, got %q", want, rec.messages[1].HTML)
	}
}

func TestSession_RenderMessageUsesCallerVars(t *testing.T) {
	session := newSession(t, preview.StaticSource{Text: `Hi {{ name }}`})
	rec := &recorder{}
	session.Subscribe(rec)

	if err := session.HandleMessage(testsupport.Context(), []byte(`{"type":"render","vars":{"name":"Ada"}}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(rec.messages) != 1 || rec.messages[0].HTML != "Hi Ada" {
		t.Fatalf("unexpected messages %+v", rec.messages)
	}

	if err := session.HandleMessage(testsupport.Context(), []byte(`{"type":"render"}`)); err != nil {
		t.Fatalf("handle without vars: %v", err)
	}
	if got := rec.messages[1].HTML; got != "Hi " {
		t.Fatalf("expected empty vars render, got %q", got)
	}
}

func TestSession_RenderMessageRejectsNonObjectVars(t *testing.T) {
	session := newSession(t, preview.StaticSource{Text: `x`})
	rec := &recorder{}
	session.Subscribe(rec)

	err := session.HandleMessage(testsupport.Context(), []byte(`{"type":"render","vars":[1,2]}`))
	if !errors.Is(err, sample.ErrNotObject) {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}
	if len(rec.messages) != 1 || rec.messages[0].Type != preview.TypeError {
		t.Fatalf("expected an error message, got %+v", rec.messages)
	}
}

func TestSession_DocumentChangedRereadsSource(t *testing.T) {
	root := testsupport.WriteTree(t, map[string]string{
		"page.twig": `{% include "card.twig" with {title: 'From include'} %}{{ title }}`,
		"card.twig": `[card]`,
	})
	path := filepath.Join(root, "page.twig")
	session := newSession(t, preview.FileSource{Path: path})
	rec := &recorder{}
	session.Subscribe(rec)

	if msg := session.DocumentChanged(testsupport.Context()); msg.HTML != "[card]From include" {
		t.Fatalf("unexpected first render %+v", msg)
	}

	if err := os.WriteFile(path, []byte(`changed {{ title }}`), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if msg := session.DocumentChanged(testsupport.Context()); msg.HTML != "changed " {
		t.Fatalf("expected fresh read, got %+v", msg)
	}
}

func TestSession_FailureMessage(t *testing.T) {
	session := newSession(t, preview.StaticSource{Text: `{% endfor %}`})
	msg := session.Render(testsupport.Context(), nil)
	if msg.Type != preview.TypeError || msg.Message == "" {
		t.Fatalf("expected error message, got %+v", msg)
	}
}

func TestSession_OpenInBrowserWritesSnapshot(t *testing.T) {
	root := t.TempDir()
	var opened string
	session := newSession(t,
		preview.StaticSource{Path: filepath.Join(root, "page.twig"), Text: `x`},
		preview.WithOpener(preview.OpenerFunc(func(_ context.Context, path string) error {
			opened = path
			return nil
		})),
	)

	err := session.HandleMessage(testsupport.Context(), []byte(`{"type":"openInBrowser","html":"<b>snap</b>"}`))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	want := filepath.Join(root, preview.DefaultSnapshotName)
	if opened != want {
		t.Fatalf("opened %q, want %q", opened, want)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != "<b>snap</b>" {
		t.Fatalf("snapshot content %q err %v", data, err)
	}
}

func TestSession_OpenInBrowserNeedsDirectory(t *testing.T) {
	session := newSession(t, preview.StaticSource{Text: `x`})
	if _, err := session.OpenInBrowser(testsupport.Context(), "<p/>"); !errors.Is(err, preview.ErrNoDocumentDir) {
		t.Fatalf("expected ErrNoDocumentDir, got %v", err)
	}
}

func TestSession_SubscribeReplaysState(t *testing.T) {
	session := newSession(t, preview.StaticSource{Text: `{{ greeting }}`})
	if _, err := session.Start(testsupport.Context()); err != nil {
		t.Fatalf("start: %v", err)
	}

	late := &recorder{}
	unsubscribe := session.Subscribe(late)
	if diff := cmp.Diff([]string{preview.TypeVars, preview.TypeRendered}, late.types()); diff != "" {
		t.Fatalf("replay mismatch (-want +got):\n%s", diff)
	}

	unsubscribe()
	session.Render(testsupport.Context(), nil)
	if len(late.messages) != 2 {
		t.Fatalf("unsubscribed sink received %d messages", len(late.messages))
	}
}

func TestSession_SubscribeReplaysCallerVars(t *testing.T) {
	session := newSession(t, preview.StaticSource{Text: `Hi {{ name }}`})
	if _, err := session.Start(testsupport.Context()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := session.HandleMessage(testsupport.Context(), []byte(`{"type":"render","vars":{"name":"Ada"}}`)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	session.DocumentChanged(testsupport.Context())

	late := &recorder{}
	session.Subscribe(late)
	if diff := cmp.Diff([]string{preview.TypeVars, preview.TypeRendered}, late.types()); diff != "" {
		t.Fatalf("replay mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(sample.Data{"name": "Ada"}, late.messages[0].Vars); diff != "" {
		t.Fatalf("replayed vars mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_CloseRunsReleasers(t *testing.T) {
	session := newSession(t, preview.StaticSource{Text: `x`})
	var order []string
	session.OnClose(func() error { order = append(order, "watch"); return nil })
	session.OnClose(func() error { order = append(order, "socket"); return errors.New("boom") })

	err := session.Close()
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if diff := cmp.Diff([]string{"socket", "watch"}, order); diff != "" {
		t.Fatalf("close order mismatch (-want +got):\n%s", diff)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestSession_SanitizeOutput(t *testing.T) {
	session := newSession(t, preview.StaticSource{Text: `<p onclick="x()">ok</p><script>alert(1)</script>`}, preview.WithSanitize(true))
	msg := session.Render(testsupport.Context(), nil)
	if msg.HTML != "<p>ok</p>" {
		t.Fatalf("unexpected sanitized html %q", msg.HTML)
	}
}

func TestIsTemplate(t *testing.T) {
	cases := map[string]bool{
		"page.twig":      true,
		"PAGE.TWIG":      true,
		"page.html":      false,
		"page.html.tpl":  true,
		"no-extension":   false,
		"dir/layout.twig": true,
	}
	for path, want := range cases {
		if got := preview.IsTemplate(path, "tpl"); got != want {
			t.Errorf("IsTemplate(%q) = %v, want %v", path, got, want)
		}
	}
}
