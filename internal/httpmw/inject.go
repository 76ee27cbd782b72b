package httpmw

import (
	"github.com/keithlinneman/ikcamp-web/internal/capability"
	"github.com/keithlinneman/ikcamp-web/internal/web"
)

// Inject binds a loaded capability map into each request context. The same
// map is shared by every request and never mutated.
func Inject[T any](m capability.Map[T], bind func(c *web.Context, m capability.Map[T])) web.Stage {
	return web.StageFunc(func(c *web.Context, next web.Handler) error {
		bind(c, m)
		return next(c)
	})
}

func InjectServices(m capability.Map[any]) web.Stage {
	return Inject(m, func(c *web.Context, m capability.Map[any]) { c.Services = m })
}

func InjectControllers(m capability.Map[web.Controller]) web.Stage {
	return Inject(m, func(c *web.Context, m capability.Map[web.Controller]) { c.Controllers = m })
}

// Views attaches the template renderer used by Context.Render.
func Views(r web.Renderer) web.Stage {
	return web.StageFunc(func(c *web.Context, next web.Handler) error {
		c.Views = r
		return next(c)
	})
}
