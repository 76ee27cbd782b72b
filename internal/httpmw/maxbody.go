package httpmw

import "net/http"

// MaxBody limits request body size. Reads past the limit fail with
// *http.MaxBytesError, which the body parser stage answers with 413.
// A non-positive limit disables the check.
func MaxBody(bytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		if bytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, bytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
