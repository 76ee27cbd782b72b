package httpserver

import (
	"io/fs"
	"time"

	"github.com/keithlinneman/ikcamp-web/internal/capability"
	"github.com/keithlinneman/ikcamp-web/internal/httpmw"
	"github.com/keithlinneman/ikcamp-web/internal/log"
	"github.com/keithlinneman/ikcamp-web/internal/route"
	"github.com/keithlinneman/ikcamp-web/internal/web"
)

type Options struct {
	Logger log.Logger
	Port   int

	// Request pipeline
	Services    capability.Map[any]
	Controllers capability.Map[web.Controller]
	Views       web.Renderer
	StaticFS    fs.FS
	ErrorPages  httpmw.Pages
	Dispatcher  *route.Dispatcher
	RateLimit   web.Stage // nil disables rate limiting
	BodyParser  httpmw.BodyParserOptions

	// Transport
	MaxBodyBytes int64 // 0 disables the limit
	ClientIPOpts httpmw.ClientIPOptions
	Compress     bool
	UseRecoverMW bool

	// Hooks, typically metrics
	OnPanic         func()
	OnFailure       func(c *web.Context, status int, err error)
	OnRenderFailure func()
	OnComplete      func(c *web.Context, elapsed time.Duration)
	InflightMW      httpmw.Middleware
}
