package httpmw

import (
	"net"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/ikcamp-web/internal/log"
	"github.com/keithlinneman/ikcamp-web/internal/web"
)

// AttachLogger derives a request-scoped logger from base and attaches it
// to the context, both as c.Logger and in the request's context.Context.
func AttachLogger(base log.Logger) web.Stage {
	if base == nil {
		base = log.Nop()
	}
	return web.StageFunc(func(c *web.Context, next web.Handler) error {
		r := c.Request
		ctx := r.Context()

		reqID := RequestIDFromContext(ctx)
		client := ClientIPFromContext(ctx)
		if client == "" {
			client = peerHost(r.RemoteAddr)
		}
		scheme := schemeOf(r)

		if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
			span.SetAttributes(
				attribute.String("request_id", reqID),
				attribute.String("client.address", client),
				attribute.String("url.scheme", scheme),
			)
		}

		L := base.With(
			"request_id", reqID,
			"client.address", client,
			"http.request.method", r.Method,
			"url.path", r.URL.Path,
			"url.scheme", scheme,
		)
		c.Logger = L
		c.Request = r.WithContext(log.WithContext(ctx, L))
		return next(c)
	})
}

func peerHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func schemeOf(r *http.Request) string {
	// ClientIP strips X-Forwarded-Proto from untrusted peers
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		return strings.TrimSpace(strings.Split(xf, ",")[0])
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
