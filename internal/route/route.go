// Package route maps HTTP method and path to controller actions.
package route

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/ikcamp-web/internal/capability"
	"github.com/keithlinneman/ikcamp-web/internal/otelx"
	"github.com/keithlinneman/ikcamp-web/internal/web"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// Route binds a method and chi pattern to a controller action.
type Route struct {
	Method     string
	Pattern    string
	Controller string
	Action     string
}

// Default is the application route table.
func Default() []Route {
	return []Route{
		{Method: http.MethodGet, Pattern: "/", Controller: "home", Action: "index"},
		{Method: http.MethodGet, Pattern: "/user", Controller: "home", Action: "login"},
		{Method: http.MethodPost, Pattern: "/user/register", Controller: "home", Action: "register"},
	}
}

// Dispatcher is the final pipeline handler. Controllers are resolved per
// request from the injected controller map.
type Dispatcher struct {
	routes []Route
	mux    *chi.Mux
}

func New(routes []Route) *Dispatcher {
	mux := chi.NewRouter()
	for _, rt := range routes {
		mux.Method(rt.Method, rt.Pattern, web.Adapt(dispatch(rt)))
	}
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		web.Fail(r, xerrors.WithStatus(xerrors.Newf("no route for %s %s", r.Method, r.URL.Path), http.StatusNotFound))
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		web.Fail(r, xerrors.WithStatus(xerrors.Newf("method %s not allowed on %s", r.Method, r.URL.Path), http.StatusMethodNotAllowed))
	})
	return &Dispatcher{routes: routes, mux: mux}
}

func (d *Dispatcher) Routes() []Route { return append([]Route(nil), d.routes...) }

// Handler returns the dispatcher as the innermost pipeline handler.
func (d *Dispatcher) Handler() web.Handler { return web.Serve(d.mux) }

// Validate checks every route against a loaded controller map, so a
// missing controller or action fails at startup instead of per request.
func (d *Dispatcher) Validate(controllers capability.Map[web.Controller]) error {
	for _, rt := range d.routes {
		ctrl, ok := controllers.Get(rt.Controller)
		if !ok {
			return xerrors.Newf("route %s %s: controller %q not loaded", rt.Method, rt.Pattern, rt.Controller)
		}
		if _, ok := ctrl.Action(rt.Action); !ok {
			return xerrors.Newf("route %s %s: controller %q has no action %q", rt.Method, rt.Pattern, rt.Controller, rt.Action)
		}
	}
	return nil
}

func dispatch(rt Route) web.Handler {
	return func(c *web.Context) error {
		c.Route = rt.Pattern
		annotate(c.Request, rt.Pattern)

		ctrl, ok := c.Controllers.Get(rt.Controller)
		if !ok {
			return xerrors.Newf("controller %q not loaded", rt.Controller)
		}
		action, ok := ctrl.Action(rt.Action)
		if !ok {
			return xerrors.Newf("controller %q has no action %q", rt.Controller, rt.Action)
		}

		req := c.Request
		ctx, span := otelx.Tracer().Start(req.Context(), "controller "+rt.Controller+"."+rt.Action)
		defer span.End()
		c.Request = req.WithContext(ctx)

		err := action(c)
		c.Request = req
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}

// annotate sets the OTel http.route attribute and span name.
func annotate(r *http.Request, pattern string) {
	span := trace.SpanFromContext(r.Context())
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.String("http.route", pattern))
	span.SetName(r.Method + " " + pattern)
}
