package httpmw

import (
	"time"

	"github.com/keithlinneman/ikcamp-web/internal/web"
)

// Timing measures the inner stages. On success it logs responseTime in
// milliseconds through the request logger, when one is attached, and
// passes the duration to observe. Errors pass through untouched.
func Timing(observe func(c *web.Context, elapsed time.Duration)) web.Stage {
	return web.StageFunc(func(c *web.Context, next web.Handler) error {
		start := time.Now()
		if err := next(c); err != nil {
			return err
		}
		elapsed := time.Since(start)

		if c.Logger != nil {
			c.Logger.Info(c.Context(), "request timing",
				"responseTime", elapsed.Milliseconds(),
			)
		}
		if observe != nil {
			observe(c, elapsed)
		}
		return nil
	})
}
