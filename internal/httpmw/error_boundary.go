package httpmw

import (
	"net/http"

	"github.com/keithlinneman/ikcamp-web/internal/errorpage"
	"github.com/keithlinneman/ikcamp-web/internal/log"
	"github.com/keithlinneman/ikcamp-web/internal/web"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// Pages renders the error page for a status.
type Pages interface {
	Render(status int, cause error) (string, error)
}

type ErrorBoundaryOptions struct {
	Pages Pages

	// Logger is used when the failing request has no logger attached yet.
	Logger log.Logger

	// OnFailure is called once per caught failure with the final status.
	OnFailure func(c *web.Context, status int, err error)
}

// ErrorBoundary catches errors and panics from every inner stage and turns
// them into an HTML error page with a status >= 400. If the page cannot be
// rendered it returns a KindRender error, which nothing else catches.
func ErrorBoundary(opts ErrorBoundaryOptions) web.Stage {
	base := opts.Logger
	if base == nil {
		base = log.Nop()
	}

	return web.StageFunc(func(c *web.Context, next web.Handler) error {
		err := protect(c, next)
		if err == nil {
			return nil
		}

		status := xerrors.StatusOf(err)
		key := errorpage.KeyFor(status)

		L := c.Logger
		if L == nil {
			L = base
		}
		if status >= http.StatusInternalServerError {
			L.Error(c.Context(), err, "request failed",
				"http.response.status_code", status,
				"error_page", string(key),
			)
		} else {
			L.Info(c.Context(), "request rejected",
				"http.response.status_code", status,
				"error_page", string(key),
				"reason", err.Error(),
			)
		}

		if opts.OnFailure != nil {
			opts.OnFailure(c, status, err)
		}

		if c.Writer.Written() {
			// already streamed, nothing left to replace
			return nil
		}

		if opts.Pages == nil {
			return xerrors.WithKind(xerrors.New("no error pages configured"), xerrors.KindRender)
		}
		page, rerr := opts.Pages.Render(status, err)
		if rerr != nil {
			return xerrors.WithKind(rerr, xerrors.KindRender)
		}

		c.Status = status
		c.Body = page
		h := c.Header()
		h.Del("Content-Length")
		h.Set("Content-Type", "text/html; charset=utf-8")
		h.Set("Cache-Control", "no-store")
		return nil
	})
}

func protect(c *web.Context, next web.Handler) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler {
				panic(p)
			}
			err = panicError(p)
		}
	}()
	return next(c)
}
