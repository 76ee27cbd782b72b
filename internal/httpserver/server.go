package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/ikcamp-web/internal/httpmw"
	"github.com/keithlinneman/ikcamp-web/internal/log"
	"github.com/keithlinneman/ikcamp-web/internal/web"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// Stages returns the request stages, outermost first. A nil RateLimit is
// skipped by web.Compose.
func Stages(opts *Options) []web.Stage {
	return []web.Stage{
		httpmw.ErrorBoundary(httpmw.ErrorBoundaryOptions{
			Pages:     opts.ErrorPages,
			Logger:    opts.Logger,
			OnFailure: opts.OnFailure,
		}),
		httpmw.Timing(nil),
		httpmw.AttachLogger(opts.Logger),
		opts.RateLimit,
		httpmw.Views(opts.Views),
		httpmw.Static(httpmw.StaticOptions{FS: opts.StaticFS}),
		httpmw.BodyParser(opts.BodyParser),
		httpmw.Normalize(),
		httpmw.InjectServices(opts.Services),
		httpmw.InjectControllers(opts.Controllers),
	}
}

// Pipeline composes Stages around the dispatcher. It is built once.
func Pipeline(opts *Options) *web.Pipeline {
	final := func(*web.Context) error { return nil }
	if opts.Dispatcher != nil {
		final = opts.Dispatcher.Handler()
	}
	h := web.Compose(final, Stages(opts)...)

	if opts.OnRenderFailure != nil {
		inner := h
		h = func(c *web.Context) error {
			err := inner(c)
			if err != nil && xerrors.KindOf(err) == xerrors.KindRender {
				opts.OnRenderFailure()
			}
			return err
		}
	}

	p := web.NewPipeline(h)
	p.OnComplete = func(c *web.Context, elapsed time.Duration) {
		accessLog(c, elapsed)
		if opts.OnComplete != nil {
			opts.OnComplete(c, elapsed)
		}
	}
	return p
}

func accessLog(c *web.Context, elapsed time.Duration) {
	route := c.Route
	if route == "" {
		route = "-"
	}
	c.Log().Info(c.Context(), "http request",
		"http.route", route,
		"http.response.status_code", c.Writer.Status(),
		"http.response.body.size", c.Writer.Size(),
		"duration_ms", float64(elapsed.Microseconds())/1000,
		"user_agent.original", c.Request.UserAgent(),
	)
}

// NewHandler builds the pipeline and wraps it in the net/http layer.
// main() owns *http.Server so it can do graceful shutdown
func NewHandler(opts *Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}

	// panics inside the pipeline are caught by the error boundary; this
	// covers the transport layer
	var recoverMW httpmw.Middleware
	if opts.UseRecoverMW {
		recoverMW = httpmw.Recover(opts.Logger, opts.OnPanic)
	}

	// Compress text responses (HTML/CSS/JS/JSON/SVG)
	var compressMW httpmw.Middleware
	if opts.Compress {
		compressMW = middleware.Compress(5,
			"text/html",
			"text/css",
			"text/plain",
			"application/javascript",
			"text/javascript",
			"application/json",
			"image/svg+xml",
		)
	}

	tracing := func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(
			next,
			"http.server",
			otelhttp.WithFilter(func(r *http.Request) bool {
				return shouldTrace(r.URL.Path)
			}),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				// the dispatcher renames the span to the route pattern
				return r.Method + " " + r.URL.Path
			}),
			otelhttp.WithPublicEndpointFn(func(r *http.Request) bool { return true }),
		)
	}

	// first is outermost; security headers are served on every response
	return httpmw.Chain(Pipeline(opts),
		httpmw.SecurityHeaders,
		recoverMW,
		httpmw.RequestID(httpmw.DefaultRequestIDHeader),
		// client IP before the rate limit and logging stages
		httpmw.ClientIP(opts.ClientIPOpts),
		opts.InflightMW,
		tracing,
		// add trace-id headers to any requests with a recording trace
		httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id"),
		httpmw.MaxBody(opts.MaxBodyBytes),
		compressMW,
	)
}

// shouldTrace skips static assets.
func shouldTrace(p string) bool {
	if p == "/favicon.ico" || p == "/robots.txt" {
		return false
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg", ".ico", ".woff", ".woff2", ".map":
		return false
	}
	return true
}

// Server timeout defaults, shared with opshttp.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20 // 1 MB
)

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Start public HTTP server
// Returns stop(ctx) for graceful shutdown
func Start(ctx context.Context, opts *Options) (func(context.Context) error, error) {
	port := opts.Port
	if port == 0 {
		port = 3000
	}
	addr := fmt.Sprintf(":%d", port)

	handler := NewHandler(opts)
	srv := NewServer(addr, handler)

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.EnsureTrace(err)
	}

	go func() {
		opts.Logger.Info(ctx, "http server listening", "addr", addr)
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			opts.Logger.Error(ctx, err, "http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			opts.Logger.Info(sctx, "http server shutting down")
			c, cancel := context.WithTimeout(sctx, 5*time.Second)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}
	return stop, nil
}
