package web

import (
	"net/http"
)

// ResponseWriter records whether anything reached the client and with
// which status.
type ResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w}
}

func (rw *ResponseWriter) WriteHeader(code int) {
	if rw.status != 0 {
		return
	}
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// Written reports whether the header has been sent.
func (rw *ResponseWriter) Written() bool { return rw.status != 0 }

// Status is the status sent to the client, 0 if nothing was sent yet.
func (rw *ResponseWriter) Status() int { return rw.status }

// Size is the number of body bytes written.
func (rw *ResponseWriter) Size() int64 { return rw.bytes }

func (rw *ResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		if rw.status == 0 {
			rw.WriteHeader(http.StatusOK)
		}
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *ResponseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }
