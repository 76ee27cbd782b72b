// Package errorpage picks and renders the HTML page shown for a failed
// request.
package errorpage

import (
	"bytes"
	"io/fs"
	"net/http"

	"github.com/keithlinneman/ikcamp-web/internal/view"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// Key selects the error template.
type Key string

const (
	Key400   Key = "400"
	Key404   Key = "404"
	Key500   Key = "500"
	KeyOther Key = "other"
)

// KeyFor maps a (coerced, >= 400) status to its template key. Statuses
// below 400 are treated as 500.
func KeyFor(status int) Key {
	switch status {
	case http.StatusBadRequest:
		return Key400
	case http.StatusNotFound:
		return Key404
	case http.StatusInternalServerError:
		return Key500
	}
	if status < http.StatusBadRequest {
		return Key500
	}
	return KeyOther
}

// File is the template file name for k inside a custom error folder.
func (k Key) File() string { return string(k) + ".html" }

const DefaultFile = "error.html"

type Options struct {
	// Env is exposed to templates as .env.
	Env    string
	Engine view.Engine

	// Folder holds 400.html, 404.html, 500.html and other.html. When nil
	// every failure renders Default/DefaultFile.
	Folder fs.FS

	Default     fs.FS
	DefaultFile string
}

type Renderer struct {
	env     string
	folder  *view.Renderer
	deflt   *view.Renderer
	defName string
}

func New(opts Options) *Renderer {
	r := &Renderer{env: opts.Env, defName: opts.DefaultFile}
	if r.defName == "" {
		r.defName = DefaultFile
	}
	engine := opts.Engine
	if engine == "" {
		engine = view.EngineHTML
	}
	vopts := []view.Option{view.WithEngine(engine), view.WithPartials("")}
	if opts.Folder != nil {
		r.folder = view.New(opts.Folder, vopts...)
	}
	r.deflt = view.New(opts.Default, vopts...)
	return r
}

// Template reports which file a given key renders, and whether it comes
// from the custom folder.
func (r *Renderer) Template(k Key) (name string, custom bool) {
	if r.folder != nil {
		return k.File(), true
	}
	return r.defName, false
}

// Model is the data passed to error templates.
func (r *Renderer) Model(status int, err error) map[string]any {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return map[string]any{
		"env":    r.env,
		"status": status,
		"error":  msg,
		"stack":  xerrors.StackText(err),
	}
}

// Render produces the page for status. Failures carry xerrors.KindRender.
func (r *Renderer) Render(status int, cause error) (string, error) {
	name, custom := r.Template(KeyFor(status))
	v := r.deflt
	if custom {
		v = r.folder
	}

	var buf bytes.Buffer
	if err := v.Render(&buf, name, r.Model(status, cause)); err != nil {
		return "", xerrors.WithKind(xerrors.WithStatus(xerrors.Wrap(err, "render error page"), http.StatusInternalServerError), xerrors.KindRender)
	}
	return buf.String(), nil
}
