package gotemplate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-twigpreview/pkg/render/template"
)

// EngineName identifies the pongo2 engine in configuration.
const EngineName = "pongo2"

// Option configures the pongo2 adapter before construction.
type Option func(*config)

// templateExt is appended to bare names passed to RenderTemplate.
const templateExt = ".twig"

type config struct {
	templates  fs.FS
	globalData map[string]any
}

// WithFS adds a loader for templates stored in an fs.FS.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithGlobalData seeds global context values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// Engine renders templates with pongo2. A fresh template set is built for
// every call so named templates come from the caller's registry and nothing
// is cached between renders.
type Engine struct {
	mu sync.RWMutex

	loaders []pongo2.TemplateLoader
	globals pongo2.Context
}

// Ensure Engine implements the TemplateRenderer interface.
var _ template.TemplateRenderer = (*Engine)(nil)

// New constructs an Engine using the provided configuration options.
func New(options ...Option) (*Engine, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	var loaders []pongo2.TemplateLoader
	if cfg.templates != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.templates))
	}

	engine := &Engine{
		loaders: loaders,
		globals: make(pongo2.Context),
	}
	registerDefaultFilters()

	if err := engine.GlobalContext(cfg.globalData); err != nil {
		return nil, fmt.Errorf("gotemplate: apply global data: %w", err)
	}
	return engine, nil
}

// Name reports the engine identifier.
func (e *Engine) Name() string {
	return EngineName
}

// RenderString parses templateContent and executes it against data.
func (e *Engine) RenderString(reg *template.Registry, templateContent string, data map[string]any, out ...io.Writer) (string, error) {
	if e == nil {
		return "", errors.New("gotemplate: engine is nil")
	}

	set := e.newSet(reg)
	tmpl, err := set.FromString(FilterArgs(templateContent))
	if err != nil {
		return "", fmt.Errorf("gotemplate: parse template string: %w", err)
	}
	return e.execute(tmpl, data, "template string", out...)
}

// RenderTemplate executes the template registered under name. Bare names are
// retried with the .twig extension.
func (e *Engine) RenderTemplate(reg *template.Registry, name string, data map[string]any, out ...io.Writer) (string, error) {
	if e == nil {
		return "", errors.New("gotemplate: engine is nil")
	}

	templatePath := name
	if _, ok := reg.Template(templatePath); !ok && !strings.HasSuffix(templatePath, templateExt) {
		if _, ok := reg.Template(templatePath + templateExt); ok || len(e.loaders) > 0 {
			templatePath += templateExt
		}
	}

	set := e.newSet(reg)
	tmpl, err := set.FromFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("gotemplate: load template %q: %w", templatePath, err)
	}
	return e.execute(tmpl, data, templatePath, out...)
}

// RegisterFilter registers a process-wide pongo2 filter.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("gotemplate: filter name and function required")
	}

	filter := func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "custom_filter", OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}

	// pongo2 filters are process wide; the latest registration wins
	filterMu.Lock()
	defer filterMu.Unlock()
	if pongo2.FilterExists(name) {
		return pongo2.ReplaceFilter(name, filter)
	}
	return pongo2.RegisterFilter(name, filter)
}

// GlobalContext seeds values visible to every template this engine renders.
func (e *Engine) GlobalContext(data any) error {
	if e == nil {
		return errors.New("gotemplate: engine is nil")
	}
	if data == nil {
		return nil
	}

	globalCtx, err := convertToContext(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.globals.Update(globalCtx)
	return nil
}

func (e *Engine) newSet(reg *template.Registry) *pongo2.TemplateSet {
	loaders := make([]pongo2.TemplateLoader, 0, len(e.loaders)+1)
	loaders = append(loaders, &registryLoader{registry: reg})
	loaders = append(loaders, e.loaders...)

	set := pongo2.NewSet("twigpreview", loaders...)

	e.mu.RLock()
	set.Globals.Update(e.globals)
	e.mu.RUnlock()

	for name, fn := range reg.Functions() {
		if !validIdentifier(name) {
			continue
		}
		set.Globals[name] = fn
	}
	return set
}

func (e *Engine) execute(tmpl *pongo2.Template, data map[string]any, label string, out ...io.Writer) (string, error) {
	viewContext, err := convertToContext(data)
	if err != nil {
		return "", fmt.Errorf("gotemplate: convert data: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteWriter(viewContext, &buf); err != nil {
		return "", fmt.Errorf("gotemplate: execute %s: %w", label, err)
	}

	rendered := buf.String()
	if err := template.WriteAll(rendered, out...); err != nil {
		return "", err
	}
	return rendered, nil
}

// registryLoader serves templates registered in a session registry by their
// reference name.
type registryLoader struct {
	registry *template.Registry
}

func (l *registryLoader) Abs(_, name string) string {
	return name
}

func (l *registryLoader) Get(path string) (io.Reader, error) {
	content, ok := l.registry.Template(path)
	if !ok {
		return nil, fmt.Errorf("gotemplate: template %q not registered", path)
	}
	return strings.NewReader(FilterArgs(content)), nil
}

var (
	tagPattern        = regexp.MustCompile(`(?s)\{\{.*?\}\}|\{%.*?%\}`)
	filterCallPattern = regexp.MustCompile(`\|\s*([A-Za-z_][A-Za-z0-9_]*)\(([^()]*)\)`)
)

// FilterArgs rewrites Twig filter calls with at most one argument,
// name(arg), into pongo2's name:arg form inside template tags. Calls with
// several arguments are left for the fallback stages.
func FilterArgs(text string) string {
	return tagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		return filterCallPattern.ReplaceAllStringFunc(tag, func(call string) string {
			m := filterCallPattern.FindStringSubmatch(call)
			arg := strings.TrimSpace(m[2])
			switch {
			case arg == "":
				return "|" + m[1]
			case topLevelComma(arg):
				return call
			default:
				return "|" + m[1] + ":" + arg
			}
		})
	})
}

func topLevelComma(s string) bool {
	depth := 0
	var quote rune
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '[' || r == '{':
			depth++
		case r == ']' || r == '}':
			depth--
		case r == ',' && depth == 0:
			return true
		}
	}
	return false
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

func validIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func
}

// convertToContext builds a pongo2 context from data. Keys that are not
// valid identifiers are dropped since pongo2 rejects them at execution.
func convertToContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return convertMapToContext(map[string]any(v))
	case map[string]any:
		return convertMapToContext(v)
	default:
		m, err := jsonToMap(v)
		if err != nil {
			return nil, err
		}
		return convertMapToContext(m)
	}
}

func convertMapToContext(in map[string]any) (pongo2.Context, error) {
	out := make(pongo2.Context, len(in))
	for key, value := range in {
		key = strings.TrimSpace(key)
		if !validIdentifier(key) {
			continue
		}
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = converted
	}
	return out, nil
}

func convertValue(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	if isCallable(value) {
		return value, nil
	}

	switch v := value.(type) {
	case string, bool, int, int64, float64:
		return v, nil
	case pongo2.Context:
		return convertMap(map[string]any(v))
	case map[string]any:
		return convertMap(v)
	case []any:
		return convertSlice(v)
	default:
		raw, err := jsonToAny(v)
		if err != nil {
			return nil, err
		}
		switch decoded := raw.(type) {
		case map[string]any:
			return convertMap(decoded)
		case []any:
			return convertSlice(decoded)
		default:
			return decoded, nil
		}
	}
}

func convertMap(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for key, value := range in {
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out[key] = converted
	}
	return out, nil
}

func convertSlice(in []any) ([]any, error) {
	out := make([]any, 0, len(in))
	for _, value := range in {
		converted, err := convertValue(value)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func jsonToMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func jsonToAny(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

var (
	registerFiltersOnce sync.Once
	filterMu            sync.Mutex
)

// registerDefaultFilters adds the Twig filter names templates commonly use
// that pongo2 spells differently or lacks.
func registerDefaultFilters() {
	registerFiltersOnce.Do(func() {
		defaults := map[string]pongo2.FilterFunction{
			"trim":       filterTrim,
			"lowerfirst": filterLowerFirst,
			"raw":        aliasFilter("safe"),
			"nl2br":      aliasFilter("linebreaksbr"),
			"capitalize": filterCapitalize,
			"trans":      filterTrans,
		}
		for name, fn := range defaults {
			if !pongo2.FilterExists(name) {
				_ = pongo2.RegisterFilter(name, fn)
			}
		}
	})
}

func aliasFilter(target string) pongo2.FilterFunction {
	return func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		return pongo2.ApplyFilter(target, in, param)
	}
}

// filterTrans returns the message key with its placeholders filled, which is
// what a template shows when no catalog is configured.
func filterTrans(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	var params any
	if param != nil && !param.IsNil() {
		params = param.Interface()
	}
	return pongo2.AsValue(template.Interpolate(in.String(), params)), nil
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsValue(strings.TrimSpace(in.String())), nil
}

// filterCapitalize upper-cases the first character and lower-cases the rest.
func filterCapitalize(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	t := in.String()
	if t == "" {
		return pongo2.AsValue(""), nil
	}
	r, size := utf8.DecodeRuneInString(t)
	return pongo2.AsValue(strings.ToUpper(string(r)) + strings.ToLower(t[size:])), nil
}

func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if in.Len() <= 0 {
		return pongo2.AsValue(""), nil
	}
	t := in.String()

	var (
		firstNonWhitespaceIndex int
		firstRune               rune
		firstRuneSize           int
	)

	for i, r := range t {
		if !strings.ContainsRune(" \t\n\r", r) {
			firstNonWhitespaceIndex = i
			firstRune = r
			firstRuneSize = utf8.RuneLen(r)
			break
		}
	}

	if firstRune == 0 {
		return pongo2.AsValue(t), nil
	}

	prefix := t[:firstNonWhitespaceIndex]
	loweredRune := strings.ToLower(string(firstRune))
	rest := t[firstNonWhitespaceIndex+firstRuneSize:]

	return pongo2.AsValue(prefix + loweredRune + rest), nil
}
