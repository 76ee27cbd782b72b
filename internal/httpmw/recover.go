package httpmw

import (
	"fmt"
	"net/http"

	"github.com/keithlinneman/ikcamp-web/internal/log"
	"github.com/keithlinneman/ikcamp-web/internal/xerrors"
)

// Recover is the last-resort panic handler for the net/http layer in front
// of the pipeline. Panics inside the pipeline are handled by ErrorBoundary
// and never reach it.
func Recover(logger log.Logger, onPanic func()) Middleware {
	if logger == nil {
		logger = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}
				if onPanic != nil {
					onPanic()
				}
				logger.With(
					"http.request.method", r.Method,
					"url.path", r.URL.Path,
				).Error(r.Context(), panicError(p), "httpserver panic recovered")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// panicError converts a recovered value into an error carrying the stack
// of the panicking goroutine.
func panicError(p any) error {
	if err, ok := p.(error); ok {
		return xerrors.WithStack(fmt.Errorf("panic: %w", err))
	}
	return xerrors.WithStack(fmt.Errorf("panic: %v", p))
}
