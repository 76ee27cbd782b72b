package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/keithlinneman/ikcamp-web/internal/capability"
	"github.com/keithlinneman/ikcamp-web/internal/log"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// Renderer executes a named template.
type Renderer interface {
	Render(w io.Writer, name string, data any) error
}

// Context is the per-request state shared by every stage.
type Context struct {
	Request *http.Request
	Writer  *ResponseWriter

	// Logger is nil until a logging stage attaches one.
	Logger log.Logger

	Services    capability.Map[any]
	Controllers capability.Map[Controller]
	Views       Renderer

	// State is merged into every template model rendered through Render.
	State map[string]any
	// Form holds the parsed request body, if any.
	Form map[string]any

	Status int
	Body   any
	// Route is the matched route pattern, empty until dispatch.
	Route string

	dispatchErr error
}

func NewContext(w http.ResponseWriter, r *http.Request) *Context {
	return &Context{
		Request: r,
		Writer:  NewResponseWriter(w),
		State:   make(map[string]any),
	}
}

func (c *Context) Context() context.Context {
	if c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

// Log returns the attached logger or a no-op one.
func (c *Context) Log() log.Logger {
	if c.Logger == nil {
		return log.Nop()
	}
	return c.Logger
}

func (c *Context) Header() http.Header { return c.Writer.Header() }

// FormValue returns a parsed body field as a string, or "" if absent.
func (c *Context) FormValue(key string) string {
	v, ok := c.Form[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []string:
		if len(t) > 0 {
			return t[0]
		}
		return ""
	default:
		return fmt.Sprint(t)
	}
}

// Render executes the named view with State overlaid by data and sets the
// result as an HTML body.
func (c *Context) Render(name string, data map[string]any) error {
	if c.Views == nil {
		return xerrors.Newf("render %s: no view renderer attached", name)
	}

	model := make(map[string]any, len(c.State)+len(data))
	for k, v := range c.State {
		model[k] = v
	}
	for k, v := range data {
		model[k] = v
	}

	var buf bytes.Buffer
	if err := c.Views.Render(&buf, name, model); err != nil {
		return xerrors.Wrapf(err, "render %s", name)
	}

	c.Body = buf.String()
	if c.Status == 0 {
		c.Status = http.StatusOK
	}
	c.Header().Set("Content-Type", "text/html; charset=utf-8")
	return nil
}
