package httpmw

import (
	"net/http"
)

// Middleware is a plain net/http decorator.
type Middleware = func(http.Handler) http.Handler

// Chain applies middlewares so that the first one listed is the outermost.
// Nil entries are skipped, which lets callers leave optional layers out.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	wrapped := h
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		wrapped = mws[i](wrapped)
	}
	return wrapped
}
