package web

import (
	"context"
	"net/http"
)

type contextKey struct{}

// FromRequest returns the Context a request is being served under.
func FromRequest(r *http.Request) (*Context, bool) {
	c, ok := r.Context().Value(contextKey{}).(*Context)
	return c, ok && c != nil
}

// Serve turns an http.Handler (typically a router) into the final
// pipeline Handler. Handlers reached through it should be wrapped with
// Adapt so their errors flow back to the calling stages.
func Serve(h http.Handler) Handler {
	return func(c *Context) error {
		r := c.Request.WithContext(context.WithValue(c.Request.Context(), contextKey{}, c))
		c.Request = r
		c.dispatchErr = nil

		h.ServeHTTP(c.Writer, r)

		err := c.dispatchErr
		c.dispatchErr = nil
		return err
	}
}

// Adapt exposes a Handler as an http.Handler for use under Serve.
func Adapt(h Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := FromRequest(r)
		if !ok {
			http.Error(w, "handler used outside of a request pipeline", http.StatusInternalServerError)
			return
		}
		// routers add their own values to the request context
		c.Request = r
		c.dispatchErr = h(c)
	})
}

// Fail records err as the outcome of the current dispatch. Routers'
// fallback handlers (not found, method not allowed) use it.
func Fail(r *http.Request, err error) {
	if c, ok := FromRequest(r); ok {
		c.dispatchErr = err
	}
}
