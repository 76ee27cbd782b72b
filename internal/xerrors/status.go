package xerrors

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Kind classifies a failure travelling up the request pipeline.
type Kind int

const (
	// KindHandler is any error raised by a route handler or an inner stage.
	KindHandler Kind = iota
	// KindRender means the error page itself could not be produced. It is terminal.
	KindRender
)

func (k Kind) String() string {
	switch k {
	case KindRender:
		return "render"
	default:
		return "handler"
	}
}

type withStatus struct {
	err  error
	raw  string
	code int
}

func (w *withStatus) Error() string     { return w.err.Error() }
func (w *withStatus) Unwrap() error     { return w.err }
func (w *withStatus) IsXerrorsWrapper() {}

// StatusText returns the status exactly as it was attached.
func (w *withStatus) StatusText() string {
	if w.raw != "" {
		return w.raw
	}
	return strconv.Itoa(w.code)
}

// WithStatus attaches an HTTP status to err.
func WithStatus(err error, code int) error {
	if err == nil {
		return nil
	}
	return &withStatus{err: EnsureTrace(err), code: code}
}

// WithStatusText attaches a status in raw textual form, as received from
// an upstream or a descriptor. StatusOf parses it lazily.
func WithStatusText(err error, raw string) error {
	if err == nil {
		return nil
	}
	return &withStatus{err: EnsureTrace(err), raw: raw}
}

// StatusOf returns the HTTP status carried by err. Errors with no status,
// a status that does not parse as an integer, or a status below 400
// all report 500.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusInternalServerError
	}

	var code int
	found := false

	var ws *withStatus
	var sc interface{ StatusCode() int }
	switch {
	case errors.As(err, &ws):
		if ws.raw == "" {
			code, found = ws.code, true
		} else if n, perr := strconv.Atoi(strings.TrimSpace(ws.raw)); perr == nil {
			code, found = n, true
		}
	case errors.As(err, &sc):
		code, found = sc.StatusCode(), true
	}

	if !found || code < 400 {
		return http.StatusInternalServerError
	}
	return code
}

type withKind struct {
	err  error
	kind Kind
}

func (w *withKind) Error() string     { return w.err.Error() }
func (w *withKind) Unwrap() error     { return w.err }
func (w *withKind) IsXerrorsWrapper() {}

// WithKind tags err with a failure kind.
func WithKind(err error, k Kind) error {
	if err == nil {
		return nil
	}
	return &withKind{err: EnsureTrace(err), kind: k}
}

// KindOf reports the outermost kind tag in the chain, KindHandler if none.
func KindOf(err error) Kind {
	var wk *withKind
	if errors.As(err, &wk) {
		return wk.kind
	}
	return KindHandler
}
