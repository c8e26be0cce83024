// Package preview binds one template document to its preview surface: it
// seeds the surface with inferred data, re-renders on document changes and
// data edits, and writes browser snapshots.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-twigpreview/pkg/infer"
	"github.com/goliatone/go-twigpreview/pkg/render"
	"github.com/goliatone/go-twigpreview/pkg/render/template"
	"github.com/goliatone/go-twigpreview/pkg/resolve"
	"github.com/goliatone/go-twigpreview/pkg/sample"
)

// Sink receives outbound messages.
type Sink interface {
	Post(msg Outbound) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(msg Outbound) error

// Post calls f.
func (f SinkFunc) Post(msg Outbound) error {
	return f(msg)
}

// Option configures a Session.
type Option func(*Session)

// WithOpener sets how snapshots are opened.
func WithOpener(opener Opener) Option {
	return func(s *Session) {
		if opener != nil {
			s.opener = opener
		}
	}
}

// WithSnapshotName overrides the snapshot file name.
func WithSnapshotName(name string) Option {
	return func(s *Session) {
		if name != "" {
			s.snapshotName = name
		}
	}
}

// WithSanitize runs rendered HTML through SanitizeHTML before posting.
func WithSanitize(enabled bool) Option {
	return func(s *Session) {
		s.sanitize = enabled
	}
}

// WithInferrer replaces the inference engine.
func WithInferrer(engine *infer.Engine) Option {
	return func(s *Session) {
		if engine != nil {
			s.inferrer = engine
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Session is the preview of one document. Pipeline runs are serialized so
// the last message posted always comes from the most recent run. Function
// and template registrations accumulate in the session registry for its
// whole lifetime.
type Session struct {
	ID string

	mu           sync.Mutex
	source       Source
	renderer     *render.Renderer
	inferrer     *infer.Engine
	registry     *template.Registry
	opener       Opener
	snapshotName string
	sanitize     bool
	logger       *slog.Logger

	sinks   map[int]Sink
	nextID  int
	vars    *Outbound
	last    *Outbound
	closers []func() error
	closed  bool
}

// NewSession creates a session for source rendered by renderer.
func NewSession(source Source, renderer *render.Renderer, options ...Option) *Session {
	s := &Session{
		ID:           uuid.NewString(),
		source:       source,
		renderer:     renderer,
		registry:     template.NewRegistry(),
		opener:       SystemOpener{},
		snapshotName: DefaultSnapshotName,
		logger:       slog.Default(),
		sinks:        make(map[int]Sink),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.inferrer == nil {
		s.inferrer = infer.New(infer.WithLogger(s.logger))
	}
	s.logger = s.logger.With("session", s.ID)
	return s
}

// Registry exposes the session's function and template registry.
func (s *Session) Registry() *template.Registry {
	return s.registry
}

// Subscribe attaches a sink. The sink immediately receives the seeded data
// and the latest render, if any. The returned function detaches it. Sinks
// are called with the session locked and must not call back into it.
func (s *Session) Subscribe(sink Sink) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || sink == nil {
		return func() {}
	}

	id := s.nextID
	s.nextID++
	s.sinks[id] = sink
	for _, msg := range []*Outbound{s.vars, s.last} {
		if msg != nil {
			s.deliver(sink, *msg)
		}
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.sinks, id)
	}
}

// Start infers sample data from the document, posts it to seed the data
// editor and renders with it.
func (s *Session) Start(ctx context.Context) (sample.Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.source.Document()
	if err != nil {
		s.post(Failed(err.Error()))
		return nil, err
	}
	inferred := s.inferrer.Infer(doc.Text, doc.BaseDir(), resolve.NewVisited())
	vars := Vars(sample.Clone(inferred))
	s.vars = &vars
	s.post(vars)
	s.renderLocked(ctx, doc, inferred)
	return inferred, nil
}

// Render re-reads the document and renders it with vars. Non-empty vars
// replace the data replayed to sinks that subscribe later.
func (s *Session) Render(ctx context.Context, vars sample.Data) Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(vars) > 0 {
		current := Vars(sample.Clone(vars))
		s.vars = &current
	}

	doc, err := s.source.Document()
	if err != nil {
		msg := Failed(err.Error())
		s.post(msg)
		return msg
	}
	return s.renderLocked(ctx, doc, vars)
}

// DocumentChanged re-renders with empty caller data, so only data passed
// through include literals is applied.
func (s *Session) DocumentChanged(ctx context.Context) Outbound {
	return s.Render(ctx, sample.New())
}

// HandleMessage dispatches one raw inbound message.
func (s *Session) HandleMessage(ctx context.Context, payload []byte) error {
	msg, err := DecodeInbound(payload)
	if err != nil {
		return err
	}

	switch msg.Type {
	case TypeRender:
		vars, err := msg.Data()
		if err != nil {
			s.mu.Lock()
			s.post(Failed(err.Error()))
			s.mu.Unlock()
			return err
		}
		s.Render(ctx, vars)
		return nil
	case TypeOpenInBrowser:
		_, err := s.OpenInBrowser(ctx, msg.HTML)
		return err
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

// OpenInBrowser writes html next to the document and opens it.
func (s *Session) OpenInBrowser(ctx context.Context, html string) (string, error) {
	doc, err := s.source.Document()
	if err != nil {
		return "", err
	}
	target, err := WriteSnapshot(doc.BaseDir(), s.snapshotName, html)
	if err != nil {
		return "", err
	}
	if err := s.opener.Open(ctx, target); err != nil {
		return target, err
	}
	s.logger.Info("preview: snapshot opened", "path", target)
	return target, nil
}

// OnClose registers a release function run by Close.
func (s *Session) OnClose(fn func() error) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, fn)
}

// Close detaches every sink and runs the registered release functions.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.sinks = make(map[int]Sink)
	s.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) renderLocked(ctx context.Context, doc Document, vars sample.Data) Outbound {
	res := s.renderer.Render(ctx, s.registry, render.Source{Text: doc.Text, BaseDir: doc.BaseDir()}, vars)

	var msg Outbound
	if res.OK() {
		html := res.HTML
		if s.sanitize {
			html = SanitizeHTML(html)
		}
		msg = Rendered(html)
		s.logger.Debug("preview: rendered", "stage", res.Stage)
	} else {
		msg = Failed(res.Err.Error())
	}
	s.last = &msg
	s.post(msg)
	return msg
}

func (s *Session) post(msg Outbound) {
	if s.closed {
		return
	}
	for _, sink := range s.sinks {
		s.deliver(sink, msg)
	}
}

func (s *Session) deliver(sink Sink, msg Outbound) {
	if err := sink.Post(msg); err != nil {
		s.logger.Debug("preview: post failed", "type", msg.Type, "error", err)
	}
}
