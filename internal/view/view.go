// Package view renders templates from an fs.FS with either html/template
// or text/template.
package view

import (
	htmltemplate "html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
	texttemplate "text/template"

	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// Engine selects the template package used to parse views.
type Engine string

const (
	EngineHTML Engine = "html"
	EngineText Engine = "text"
)

// ParseEngine accepts "html" and "text" (case-insensitive). The empty
// string means EngineHTML.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "html":
		return EngineHTML, nil
	case "text":
		return EngineText, nil
	default:
		return "", xerrors.Newf("unknown template engine %q (want html or text)", s)
	}
}

type executor interface {
	ExecuteTemplate(w io.Writer, name string, data any) error
}

// Renderer parses and caches templates on first use.
type Renderer struct {
	fsys     fs.FS
	engine   Engine
	partials string
	funcs    map[string]any
	cache    bool

	templates sync.Map // name -> executor
}

type Option func(*Renderer)

func WithEngine(e Engine) Option {
	return func(r *Renderer) { r.engine = e }
}

// WithPartials sets the glob of shared templates parsed alongside every
// view. Defaults to "partials/*.html".
func WithPartials(glob string) Option {
	return func(r *Renderer) { r.partials = glob }
}

func WithFuncs(funcs map[string]any) Option {
	return func(r *Renderer) { r.funcs = funcs }
}

// WithCache controls template caching. Disabled caching re-parses on every
// render, which picks up edits to an on-disk views directory.
func WithCache(enabled bool) Option {
	return func(r *Renderer) { r.cache = enabled }
}

func New(fsys fs.FS, opts ...Option) *Renderer {
	r := &Renderer{
		fsys:     fsys,
		engine:   EngineHTML,
		partials: "partials/*.html",
		cache:    true,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Renderer) Engine() Engine { return r.engine }

// Render executes the view at name (a slash-separated path in the FS).
func (r *Renderer) Render(w io.Writer, name string, data any) error {
	t, err := r.lookup(name)
	if err != nil {
		return err
	}
	if err := t.ExecuteTemplate(w, path.Base(name), data); err != nil {
		return xerrors.Wrapf(err, "execute template %s", name)
	}
	return nil
}

func (r *Renderer) lookup(name string) (executor, error) {
	if r.cache {
		if t, ok := r.templates.Load(name); ok {
			return t.(executor), nil
		}
	}

	t, err := r.parse(name)
	if err != nil {
		return nil, err
	}
	if r.cache {
		actual, _ := r.templates.LoadOrStore(name, t)
		return actual.(executor), nil
	}
	return t, nil
}

func (r *Renderer) parse(name string) (executor, error) {
	if r.fsys == nil {
		return nil, xerrors.Newf("parse template %s: no template filesystem", name)
	}
	src, err := fs.ReadFile(r.fsys, name)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read template %s", name)
	}

	var partials []string
	if r.partials != "" {
		partials, err = fs.Glob(r.fsys, r.partials)
		if err != nil {
			return nil, xerrors.Wrapf(err, "glob partials %s", r.partials)
		}
	}

	base := path.Base(name)
	switch r.engine {
	case EngineText:
		t := texttemplate.New(base).Funcs(r.funcs)
		if _, err := t.Parse(string(src)); err != nil {
			return nil, xerrors.Wrapf(err, "parse template %s", name)
		}
		if len(partials) > 0 {
			if _, err := t.ParseFS(r.fsys, partials...); err != nil {
				return nil, xerrors.Wrapf(err, "parse partials for %s", name)
			}
		}
		return t, nil
	default:
		t := htmltemplate.New(base).Funcs(r.funcs)
		if _, err := t.Parse(string(src)); err != nil {
			return nil, xerrors.Wrapf(err, "parse template %s", name)
		}
		if len(partials) > 0 {
			if _, err := t.ParseFS(r.fsys, partials...); err != nil {
				return nil, xerrors.Wrapf(err, "parse partials for %s", name)
			}
		}
		return t, nil
	}
}
